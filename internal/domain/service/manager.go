package service

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/sync/errgroup"

	"majifix/internal/core/apperror"
	appctx "majifix/internal/core/context"
	"majifix/internal/core/entity"
	"majifix/internal/core/id"
	"majifix/internal/core/locale"
	"majifix/internal/domain"
	"majifix/internal/domain/reference"
	"majifix/pkg/logger"
)

// Manager is the business service for the Service aggregate. It wires the
// derivation and dependency rules into the generic entity lifecycle and
// populates reference projections on the way out.
type Manager struct {
	svc     *domain.EntityService[*Service]
	repo    Repository
	refs    reference.Store
	locales locale.Config
	log     *logger.Logger
}

// Config configures the manager.
type Config struct {
	Repo       Repository
	References reference.Store
	Locales    locale.Config
	Logger     *logger.Logger
}

// NewManager creates the manager and registers the lifecycle rules.
func NewManager(cfg Config) *Manager {
	if cfg.Locales.Default == "" {
		cfg.Locales = locale.DefaultConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	m := &Manager{
		repo:    cfg.Repo,
		refs:    cfg.References,
		locales: cfg.Locales,
		log:     cfg.Logger.WithComponent("service.manager"),
	}

	m.svc = domain.NewEntityService(domain.EntityServiceConfig[*Service]{
		Repo:       cfg.Repo,
		EntityName: ModelName,
	})

	hooks := m.svc.Hooks()
	hooks.OnBeforeCreate(m.prepareForSave)
	hooks.OnBeforeUpdate(m.prepareForSave)
	hooks.OnBeforeDelete(m.checkDependencies)

	return m
}

// resolvedRefs holds the reference records looked up for a save. Each
// goroutine writes its own field.
type resolvedRefs struct {
	jurisdiction *reference.Jurisdiction
	group        *reference.ServiceGroup
	priority     *reference.Priority
	serviceType  *reference.ServiceType
}

// runLookups fans the lookups out in parallel, except when the context is
// bound to a single database connection (an open pgx.Tx), where overlapping
// queries are not allowed and the lookups run one after another.
func runLookups(ctx context.Context, lookups []func(ctx context.Context) error) error {
	if appctx.IsSingleConn(ctx) {
		for _, lookup := range lookups {
			if err := lookup(ctx); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, lookup := range lookups {
		g.Go(func() error { return lookup(gctx) })
	}
	return g.Wait()
}

func (m *Manager) resolveRefs(ctx context.Context, s *Service) (*resolvedRefs, error) {
	refs := &resolvedRefs{}
	var lookups []func(ctx context.Context) error

	if s.JurisdictionID != nil {
		refID := *s.JurisdictionID
		lookups = append(lookups, func(ctx context.Context) error {
			rec, err := m.refs.GetJurisdiction(ctx, refID)
			if err != nil {
				return refErr("jurisdiction", refID, err)
			}
			refs.jurisdiction = rec
			return nil
		})
	}
	if s.GroupID != nil {
		refID := *s.GroupID
		lookups = append(lookups, func(ctx context.Context) error {
			rec, err := m.refs.GetGroup(ctx, refID)
			if err != nil {
				return refErr("group", refID, err)
			}
			refs.group = rec
			return nil
		})
	}
	if s.PriorityID != nil {
		refID := *s.PriorityID
		lookups = append(lookups, func(ctx context.Context) error {
			rec, err := m.refs.GetPriority(ctx, refID)
			if err != nil {
				return refErr("priority", refID, err)
			}
			refs.priority = rec
			return nil
		})
	}
	if s.TypeID != nil {
		refID := *s.TypeID
		lookups = append(lookups, func(ctx context.Context) error {
			rec, err := m.refs.GetType(ctx, refID)
			if err != nil {
				return refErr("type", refID, err)
			}
			refs.serviceType = rec
			return nil
		})
	}

	if err := runLookups(ctx, lookups); err != nil {
		return nil, err
	}
	return refs, nil
}

func refErr(field string, refID id.ID, err error) error {
	if apperror.IsNotFound(err) {
		return apperror.NewReferenceNotFound(field, refID.String())
	}
	if apperror.IsAppError(err) {
		return err
	}
	return apperror.NewInternal(fmt.Errorf("resolve %s: %w", field, err))
}

// prepareForSave resolves references and derives defaults before validation:
// color, then jurisdiction from group or priority, then priority from group,
// then code from the name.
func (m *Manager) prepareForSave(ctx context.Context, s *Service) error {
	refs, err := m.resolveRefs(ctx, s)
	if err != nil {
		return err
	}

	if s.Color == "" {
		s.Color = entity.RandomColor()
	}

	if s.JurisdictionID == nil {
		switch {
		case refs.group != nil && refs.group.JurisdictionID != nil:
			s.JurisdictionID = refs.group.JurisdictionID
		case refs.priority != nil && refs.priority.JurisdictionID != nil:
			s.JurisdictionID = refs.priority.JurisdictionID
		}
	}

	if s.PriorityID == nil && refs.group != nil && refs.group.PriorityID != nil {
		s.PriorityID = refs.group.PriorityID
	}

	if s.Code == "" {
		s.Code = deriveCode(s.Name, m.locales.Default)
	}
	s.Code = strings.ToUpper(strings.TrimSpace(s.Code))

	return nil
}

// deriveCode takes the first character of the name, preferring the default
// locale value.
func deriveCode(name locale.Localized, defaultLocale string) string {
	values := name.Values(defaultLocale)
	if len(values) == 0 {
		return ""
	}
	for _, r := range values[0] {
		return string(unicode.ToUpper(r))
	}
	return ""
}

// checkDependencies refuses deletion while service requests still reference
// the record.
func (m *Manager) checkDependencies(ctx context.Context, s *Service) error {
	count, err := m.repo.CountDependents(ctx, s.ID)
	if err != nil {
		return apperror.NewInternal(fmt.Errorf("count dependents: %w", err))
	}
	if count > 0 {
		return apperror.NewDependency(
			fmt.Sprintf("Fail to Delete. %d service requests depend on it", count),
			count,
		)
	}
	return nil
}

// populate resolves the reference projections for a response. Dangling ids
// are skipped rather than failing the read.
func (m *Manager) populate(ctx context.Context, s *Service) error {
	var lookups []func(ctx context.Context) error

	if s.JurisdictionID != nil && s.Jurisdiction == nil {
		refID := *s.JurisdictionID
		lookups = append(lookups, func(ctx context.Context) error {
			rec, err := m.refs.GetJurisdiction(ctx, refID)
			if err != nil {
				return skipNotFound(err)
			}
			s.Jurisdiction = rec.Projection()
			return nil
		})
	}
	if s.GroupID != nil && s.Group == nil {
		refID := *s.GroupID
		lookups = append(lookups, func(ctx context.Context) error {
			rec, err := m.refs.GetGroup(ctx, refID)
			if err != nil {
				return skipNotFound(err)
			}
			s.Group = rec.Projection()
			return nil
		})
	}
	if s.PriorityID != nil && s.Priority == nil {
		refID := *s.PriorityID
		lookups = append(lookups, func(ctx context.Context) error {
			rec, err := m.refs.GetPriority(ctx, refID)
			if err != nil {
				return skipNotFound(err)
			}
			s.Priority = rec.Projection()
			return nil
		})
	}
	if s.TypeID != nil && s.Type == nil {
		refID := *s.TypeID
		lookups = append(lookups, func(ctx context.Context) error {
			rec, err := m.refs.GetType(ctx, refID)
			if err != nil {
				return skipNotFound(err)
			}
			s.Type = rec.Projection()
			return nil
		})
	}

	return runLookups(ctx, lookups)
}

func skipNotFound(err error) error {
	if apperror.IsNotFound(err) {
		return nil
	}
	return err
}

func (m *Manager) populateAll(ctx context.Context, services []*Service) error {
	for _, s := range services {
		if err := m.populate(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// Create persists a new service after derivation and validation.
func (m *Manager) Create(ctx context.Context, s *Service) error {
	if id.IsNil(s.ID) {
		s.Base = entity.NewBase()
	}
	if err := m.svc.Create(ctx, s); err != nil {
		return err
	}
	m.log.WithContext(ctx).Infow("service created", "id", s.ID, "code", s.Code)
	return m.populate(ctx, s)
}

// Get retrieves a service by id with populated references.
func (m *Manager) Get(ctx context.Context, serviceID id.ID) (*Service, error) {
	s, err := m.svc.GetByID(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if err := m.populate(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Update persists changes to an existing service.
func (m *Manager) Update(ctx context.Context, s *Service) error {
	s.Touch()
	// Projections may be stale after reference ids changed
	s.Jurisdiction, s.Group, s.Priority, s.Type = nil, nil, nil, nil
	if err := m.svc.Update(ctx, s); err != nil {
		return err
	}
	m.log.WithContext(ctx).Infow("service updated", "id", s.ID, "code", s.Code)
	return m.populate(ctx, s)
}

// Delete soft-deletes a service unless requests depend on it, returning the
// deleted record.
func (m *Manager) Delete(ctx context.Context, serviceID id.ID) (*Service, error) {
	s, err := m.svc.Delete(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	m.log.WithContext(ctx).Infow("service deleted", "id", serviceID)
	if err := m.populate(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// List retrieves a page of services with populated references.
func (m *Manager) List(ctx context.Context, f domain.ListFilter) (domain.ListResult[*Service], error) {
	res, err := m.svc.List(ctx, f)
	if err != nil {
		return res, err
	}
	if err := m.populateAll(ctx, res.Items); err != nil {
		return res, err
	}
	return res, nil
}

// GetOneOrDefault finds the best match for the criteria, falling back to the
// default service when neither the id nor the filters match anything.
func (m *Manager) GetOneOrDefault(ctx context.Context, criteria Criteria) (*Service, error) {
	s, err := m.repo.GetOneOrDefault(ctx, criteria)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound(ModelName, criteria.ID)
		}
		if apperror.IsAppError(err) {
			return nil, err
		}
		return nil, apperror.NewInternal(fmt.Errorf("get one or default: %w", err))
	}
	if err := m.populate(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Open311Services lists the externally reportable services in their Open311
// form, optionally scoped to one jurisdiction. The listing is unpaginated.
func (m *Manager) Open311Services(ctx context.Context, jurisdiction *id.ID) ([]Open311, error) {
	external := true
	res, err := m.repo.List(ctx, domain.ListFilter{
		Jurisdiction: jurisdiction,
		External:     &external,
		Limit:        -1,
	})
	if err != nil {
		return nil, err
	}
	if err := m.populateAll(ctx, res.Items); err != nil {
		return nil, err
	}

	out := make([]Open311, 0, len(res.Items))
	for _, s := range res.Items {
		out = append(out, s.ToOpen311(m.locales.Default))
	}
	return out, nil
}

// ListAll retrieves every service matching the filter without pagination,
// with populated references. Used by the CSV export.
func (m *Manager) ListAll(ctx context.Context, f domain.ListFilter) ([]*Service, error) {
	f.Limit = -1
	f.Skip = 0
	res, err := m.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if err := m.populateAll(ctx, res.Items); err != nil {
		return nil, err
	}
	return res.Items, nil
}

// Seed upserts the given services: an existing record is matched by code
// within its jurisdiction and refreshed, anything else is created. Returns
// the number of records created.
func (m *Manager) Seed(ctx context.Context, seeds []*Service) (int, error) {
	created := 0
	for _, seed := range seeds {
		if err := m.prepareForSave(ctx, seed); err != nil {
			return created, err
		}

		existing, err := m.repo.FindByCode(ctx, seed.JurisdictionID, seed.Code)
		if err != nil && !apperror.IsNotFound(err) {
			return created, err
		}

		if existing == nil {
			if err := m.Create(ctx, seed); err != nil {
				return created, err
			}
			created++
			continue
		}

		existing.Name = seed.Name
		existing.Description = seed.Description
		existing.Color = seed.Color
		existing.Sla = seed.Sla
		existing.Flags = seed.Flags
		existing.Default = seed.Default
		existing.TypeID = seed.TypeID
		existing.PriorityID = seed.PriorityID
		if err := m.Update(ctx, existing); err != nil {
			return created, err
		}
	}
	return created, nil
}
