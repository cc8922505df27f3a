package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"majifix/internal/core/apperror"
	"majifix/internal/core/id"
	"majifix/internal/core/locale"
	"majifix/internal/domain"
	"majifix/internal/domain/filter"
	"majifix/internal/domain/service"
)

// ServiceRepo is an in-memory implementation of service.Repository. It
// mirrors the PostgreSQL repository's behavior, including code and name
// uniqueness within a jurisdiction and soft deletes.
type ServiceRepo struct {
	mu sync.RWMutex

	services map[id.ID]*service.Service

	// dependents holds per-service request counts, settable by tests
	dependents map[id.ID]int64
}

var _ service.Repository = (*ServiceRepo)(nil)

// NewServiceRepo creates an empty repository.
func NewServiceRepo() *ServiceRepo {
	return &ServiceRepo{
		services:   make(map[id.ID]*service.Service),
		dependents: make(map[id.ID]int64),
	}
}

// SetDependents sets the service request count for a service.
func (r *ServiceRepo) SetDependents(serviceID id.ID, count int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dependents[serviceID] = count
}

func clone(s *service.Service) *service.Service {
	c := *s
	if s.Name != nil {
		c.Name = make(locale.Localized, len(s.Name))
		for k, v := range s.Name {
			c.Name[k] = v
		}
	}
	if s.Description != nil {
		c.Description = make(locale.Localized, len(s.Description))
		for k, v := range s.Description {
			c.Description[k] = v
		}
	}
	return &c
}

func sameScope(a, b *id.ID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// checkUnique enforces the jurisdiction-scoped code and name uniqueness the
// database indexes provide. Name uniqueness holds per locale: a clash on any
// locale value is a duplicate. Caller holds the lock.
func (r *ServiceRepo) checkUnique(candidate *service.Service) error {
	for _, existing := range r.services {
		if existing.ID == candidate.ID || existing.IsDeleted() {
			continue
		}
		if !sameScope(existing.JurisdictionID, candidate.JurisdictionID) {
			continue
		}
		if existing.Code == candidate.Code {
			return apperror.NewDuplicate(service.ModelName, "code")
		}
		for code, name := range candidate.Name {
			if name != "" && existing.Name.Get(code) == name {
				return apperror.NewDuplicate(service.ModelName, "name")
			}
		}
	}
	return nil
}

// Create stores a new service.
func (r *ServiceRepo) Create(ctx context.Context, s *service.Service) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkUnique(s); err != nil {
		return err
	}

	r.services[s.ID] = clone(s)
	return nil
}

// Update replaces an existing non-deleted service.
func (r *ServiceRepo) Update(ctx context.Context, s *service.Service) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.services[s.ID]
	if !ok || existing.IsDeleted() {
		return apperror.NewNotFound(service.ModelName, s.ID.String())
	}
	if err := r.checkUnique(s); err != nil {
		return err
	}

	r.services[s.ID] = clone(s)
	return nil
}

// GetByID retrieves a non-deleted service by id.
func (r *ServiceRepo) GetByID(ctx context.Context, serviceID id.ID) (*service.Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.services[serviceID]
	if !ok || s.IsDeleted() {
		return nil, apperror.NewNotFound(service.ModelName, serviceID.String())
	}
	return clone(s), nil
}

// SoftDelete sets the tombstone and returns the updated record.
func (r *ServiceRepo) SoftDelete(ctx context.Context, serviceID id.ID) (*service.Service, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.services[serviceID]
	if !ok || s.IsDeleted() {
		return nil, apperror.NewNotFound(service.ModelName, serviceID.String())
	}

	s.MarkDeleted()
	s.Touch()
	return clone(s), nil
}

func matchesSearch(s *service.Service, search string) bool {
	needle := strings.ToLower(search)
	if strings.Contains(strings.ToLower(s.Code), needle) {
		return true
	}
	for _, v := range s.Name {
		if strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	for _, v := range s.Description {
		if strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return false
}

// fieldValue resolves a filterable column to its value.
func fieldValue(s *service.Service, field string) (any, bool) {
	switch field {
	case "code":
		return s.Code, true
	case "color":
		return s.Color, true
	case "is_default":
		return s.Default, true
	case "jurisdiction_id":
		return s.JurisdictionID, true
	case "group_id":
		return s.GroupID, true
	case "type_id":
		return s.TypeID, true
	case "priority_id":
		return s.PriorityID, true
	default:
		return nil, false
	}
}

func valueEquals(val any, want any) bool {
	if p, ok := val.(*id.ID); ok {
		if p == nil {
			return want == nil
		}
		val = *p
	}
	if w, ok := want.(id.ID); ok {
		return val == w
	}
	if w, ok := want.(string); ok {
		if v, ok := val.(id.ID); ok {
			return v.String() == w
		}
		return fmt.Sprintf("%v", val) == w
	}
	return val == want
}

func matchesFilters(s *service.Service, items []filter.Item) (bool, error) {
	for _, item := range items {
		val, ok := fieldValue(s, item.Field)
		if !ok {
			return false, apperror.NewValidation("invalid filter column").
				WithDetail("field", item.Field)
		}

		switch item.Operator {
		case filter.Equal:
			if !valueEquals(val, item.Value) {
				return false, nil
			}
		case filter.NotEqual:
			if valueEquals(val, item.Value) {
				return false, nil
			}
		case filter.Contains:
			hay := strings.ToLower(fmt.Sprintf("%v", val))
			if !strings.Contains(hay, strings.ToLower(fmt.Sprintf("%v", item.Value))) {
				return false, nil
			}
		case filter.IsNull:
			if p, ok := val.(*id.ID); !ok || p != nil {
				return false, nil
			}
		case filter.IsNotNull:
			if p, ok := val.(*id.ID); !ok || p == nil {
				return false, nil
			}
		default:
			return false, apperror.NewValidation("invalid filter operator").
				WithDetail("operator", string(item.Operator))
		}
	}
	return true, nil
}

func (r *ServiceRepo) matching(f domain.ListFilter) ([]*service.Service, error) {
	var items []*service.Service
	for _, s := range r.services {
		if !f.IncludeDeleted && s.IsDeleted() {
			continue
		}
		if f.Search != "" && !matchesSearch(s, f.Search) {
			continue
		}
		if f.Jurisdiction != nil {
			if s.JurisdictionID == nil || *s.JurisdictionID != *f.Jurisdiction {
				continue
			}
		}
		if f.External != nil && s.Flags.External != *f.External {
			continue
		}
		ok, err := matchesFilters(s, f.Filters)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		items = append(items, s)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

// List retrieves services with filtering and pagination. A negative limit
// disables pagination.
func (r *ServiceRepo) List(ctx context.Context, f domain.ListFilter) (domain.ListResult[*service.Service], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := domain.ListResult[*service.Service]{
		Limit: f.Limit,
		Skip:  f.Skip,
	}

	items, err := r.matching(f)
	if err != nil {
		return result, err
	}
	result.Total = int64(len(items))

	if f.Skip > 0 {
		if f.Skip >= len(items) {
			items = nil
		} else {
			items = items[f.Skip:]
		}
	}
	if f.Limit > 0 && len(items) > f.Limit {
		items = items[:f.Limit]
	}

	result.Items = make([]*service.Service, 0, len(items))
	for _, s := range items {
		result.Items = append(result.Items, clone(s))
	}
	return result, nil
}

// GetOneOrDefault finds the best match for the criteria: id first, then
// filters, then the default service.
func (r *ServiceRepo) GetOneOrDefault(ctx context.Context, c service.Criteria) (*service.Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if c.ID != nil {
		if s, ok := r.services[*c.ID]; ok && !s.IsDeleted() {
			return clone(s), nil
		}
	}

	all, err := r.matching(domain.ListFilter{})
	if err != nil {
		return nil, err
	}

	if len(c.Filters) > 0 {
		for _, s := range all {
			ok, err := matchesFilters(s, c.Filters)
			if err != nil {
				return nil, err
			}
			if ok {
				return clone(s), nil
			}
		}
	}

	for _, s := range all {
		if s.Default {
			return clone(s), nil
		}
	}

	return nil, apperror.NewNotFound(service.ModelName, "matching criteria or default")
}

// FindByCode returns the service with the given code within a jurisdiction.
func (r *ServiceRepo) FindByCode(ctx context.Context, jurisdiction *id.ID, code string) (*service.Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.services {
		if s.IsDeleted() || s.Code != code {
			continue
		}
		if !sameScope(s.JurisdictionID, jurisdiction) {
			continue
		}
		return clone(s), nil
	}
	return nil, apperror.NewNotFound(service.ModelName, code)
}

// CountDependents counts service requests referencing the service.
func (r *ServiceRepo) CountDependents(ctx context.Context, serviceID id.ID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dependents[serviceID], nil
}
