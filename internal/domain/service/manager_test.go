package service_test

import (
	"context"
	"fmt"
	"regexp"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"majifix/internal/core/apperror"
	appctx "majifix/internal/core/context"
	"majifix/internal/core/entity"
	"majifix/internal/core/id"
	"majifix/internal/core/locale"
	"majifix/internal/domain"
	"majifix/internal/domain/filter"
	"majifix/internal/domain/reference"
	"majifix/internal/domain/service"
	"majifix/internal/infrastructure/storage/memory"
)

type fixture struct {
	repo    *memory.ServiceRepo
	refs    *memory.ReferenceStore
	manager *service.Manager

	jurisdiction *reference.Jurisdiction
	priority     *reference.Priority
	group        *reference.ServiceGroup

	// bareGroup carries no jurisdiction or priority of its own
	bareGroup *reference.ServiceGroup
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		repo: memory.NewServiceRepo(),
		refs: memory.NewReferenceStore(),
	}

	f.jurisdiction = &reference.Jurisdiction{
		Base:  entity.NewBase(),
		Code:  "MJF",
		Name:  locale.Localized{"en": "Majifix Municipal"},
		Color: "#0A6EBD",
	}
	f.refs.AddJurisdiction(f.jurisdiction)

	f.priority = &reference.Priority{
		Base:           entity.NewBase(),
		JurisdictionID: &f.jurisdiction.ID,
		Code:           "NRM",
		Name:           locale.Localized{"en": "Normal"},
		Color:          "#4CAF50",
	}
	f.refs.AddPriority(f.priority)

	f.group = &reference.ServiceGroup{
		Base:           entity.NewBase(),
		JurisdictionID: &f.jurisdiction.ID,
		PriorityID:     &f.priority.ID,
		Code:           "WS",
		Name:           locale.Localized{"en": "Water Supply"},
		Color:          "#2196F3",
	}
	f.refs.AddGroup(f.group)

	f.bareGroup = &reference.ServiceGroup{
		Base: entity.NewBase(),
		Code: "OT",
		Name: locale.Localized{"en": "Other"},
	}
	f.refs.AddGroup(f.bareGroup)

	f.manager = service.NewManager(service.Config{
		Repo:       f.repo,
		References: f.refs,
		Locales:    locale.Config{Default: "en", Supported: []string{"en", "sw"}},
	})
	return f
}

func (f *fixture) newService(name string) *service.Service {
	return &service.Service{
		Base:    entity.NewBase(),
		GroupID: &f.group.ID,
		Name:    locale.Localized{"en": name},
	}
}

var colorPattern = regexp.MustCompile(`^#[0-9A-F]{6}$`)

func TestCreate_DerivesDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s := f.newService("Water Leakage")
	require.NoError(t, f.manager.Create(ctx, s))

	assert.Equal(t, "W", s.Code)
	require.NotNil(t, s.JurisdictionID)
	assert.Equal(t, f.jurisdiction.ID, *s.JurisdictionID)
	require.NotNil(t, s.PriorityID)
	assert.Equal(t, f.priority.ID, *s.PriorityID)
	assert.Regexp(t, colorPattern, s.Color)

	// References populated for the response
	require.NotNil(t, s.Group)
	assert.Equal(t, "WS", s.Group.Code)
	require.NotNil(t, s.Jurisdiction)
	assert.Equal(t, "MJF", s.Jurisdiction.Code)
}

func TestCreate_JurisdictionFromPriority(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s := &service.Service{
		Base:       entity.NewBase(),
		GroupID:    &f.bareGroup.ID,
		PriorityID: &f.priority.ID,
		Name:       locale.Localized{"en": "Sewage Overflow"},
	}
	require.NoError(t, f.manager.Create(ctx, s))

	require.NotNil(t, s.JurisdictionID)
	assert.Equal(t, f.jurisdiction.ID, *s.JurisdictionID)
}

func TestCreate_KeepsExplicitValues(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s := f.newService("Water Leakage")
	s.Code = "wl"
	s.Color = "#FFFFFF"
	require.NoError(t, f.manager.Create(ctx, s))

	// Explicit code is kept, but normalized to uppercase
	assert.Equal(t, "WL", s.Code)
	assert.Equal(t, "#FFFFFF", s.Color)
}

func TestCreate_ValidationFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		svc      *service.Service
		wantCode string
	}{
		{
			name: "missing group",
			svc: &service.Service{
				Base: entity.NewBase(),
				Name: locale.Localized{"en": "Orphan"},
			},
			wantCode: apperror.CodeValidation,
		},
		{
			name: "missing name",
			svc: &service.Service{
				Base:    entity.NewBase(),
				GroupID: &f.group.ID,
			},
			wantCode: apperror.CodeValidation,
		},
		{
			name: "unknown group",
			svc: &service.Service{
				Base:    entity.NewBase(),
				GroupID: ptr(id.New()),
				Name:    locale.Localized{"en": "Dangling"},
			},
			wantCode: apperror.CodeReferenceNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.manager.Create(ctx, tt.svc)
			require.Error(t, err)

			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, appErr.Code)
			assert.Equal(t, 400, appErr.HTTPStatus)
		})
	}
}

func TestCreate_Duplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.manager.Create(ctx, f.newService("Water Leakage")))

	// Same derived code within the same jurisdiction
	err := f.manager.Create(ctx, f.newService("Water Theft"))
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeDuplicate, appErr.Code)
	assert.Equal(t, 409, appErr.HTTPStatus)

	// Same name, different code
	dup := f.newService("Water Leakage")
	dup.Code = "X"
	err = f.manager.Create(ctx, dup)
	require.Error(t, err)
	appErr, ok = apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeDuplicate, appErr.Code)
}

func TestCreate_DuplicateNameInAnyLocale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.newService("Water Leakage")
	first.Name["sw"] = "Uvujaji wa Maji"
	require.NoError(t, f.manager.Create(ctx, first))

	// Distinct code and english name, but the swahili name clashes
	dup := f.newService("Leak Report")
	dup.Code = "LR"
	dup.Name["sw"] = "Uvujaji wa Maji"
	err := f.manager.Create(ctx, dup)
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeDuplicate, appErr.Code)
	assert.Equal(t, "name", appErr.Details["field"])
}

// serialStore records whether two lookups ever ran at the same time, the way
// a single database connection would reject them.
type serialStore struct {
	reference.Store
	inFlight   atomic.Int32
	overlapped atomic.Bool
}

func (s *serialStore) enter() func() {
	if s.inFlight.Add(1) > 1 {
		s.overlapped.Store(true)
	}
	time.Sleep(2 * time.Millisecond)
	return func() { s.inFlight.Add(-1) }
}

func (s *serialStore) GetJurisdiction(ctx context.Context, refID id.ID) (*reference.Jurisdiction, error) {
	defer s.enter()()
	return s.Store.GetJurisdiction(ctx, refID)
}

func (s *serialStore) GetGroup(ctx context.Context, refID id.ID) (*reference.ServiceGroup, error) {
	defer s.enter()()
	return s.Store.GetGroup(ctx, refID)
}

func (s *serialStore) GetPriority(ctx context.Context, refID id.ID) (*reference.Priority, error) {
	defer s.enter()()
	return s.Store.GetPriority(ctx, refID)
}

func (s *serialStore) GetType(ctx context.Context, refID id.ID) (*reference.ServiceType, error) {
	defer s.enter()()
	return s.Store.GetType(ctx, refID)
}

func TestCreate_SerializesLookupsOnSingleConnection(t *testing.T) {
	f := newFixture(t)
	store := &serialStore{Store: f.refs}
	manager := service.NewManager(service.Config{
		Repo:       memory.NewServiceRepo(),
		References: store,
		Locales:    locale.Config{Default: "en", Supported: []string{"en", "sw"}},
	})

	ctx := appctx.WithSingleConn(context.Background())
	s := &service.Service{
		Base:           entity.NewBase(),
		JurisdictionID: &f.jurisdiction.ID,
		GroupID:        &f.group.ID,
		PriorityID:     &f.priority.ID,
		Name:           locale.Localized{"en": "Water Leakage"},
	}
	require.NoError(t, manager.Create(ctx, s))

	assert.False(t, store.overlapped.Load(),
		"lookups must run one at a time on a single connection")
}

func TestUpdate_RerunsDerivation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s := f.newService("Water Leakage")
	require.NoError(t, f.manager.Create(ctx, s))

	s.Code = ""
	s.Name = locale.Localized{"en": "Leakage"}
	require.NoError(t, f.manager.Update(ctx, s))

	assert.Equal(t, "L", s.Code)
}

func TestDelete_BlockedByDependents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s := f.newService("Water Leakage")
	require.NoError(t, f.manager.Create(ctx, s))
	f.repo.SetDependents(s.ID, 2)

	_, err := f.manager.Delete(ctx, s.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsDependency(err))

	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, "Fail to Delete. 2 service requests depend on it", appErr.Message)
	assert.Equal(t, 400, appErr.HTTPStatus)

	// Still retrievable
	_, err = f.manager.Get(ctx, s.ID)
	assert.NoError(t, err)
}

func TestDelete_ReturnsDeletedRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s := f.newService("Water Leakage")
	require.NoError(t, f.manager.Create(ctx, s))

	deleted, err := f.manager.Delete(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, deleted.ID)
	assert.NotNil(t, deleted.DeletedAt)

	_, err = f.manager.Get(ctx, s.ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestGetOneOrDefault(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	water := f.newService("Water Leakage")
	require.NoError(t, f.manager.Create(ctx, water))

	fallback := f.newService("Other")
	fallback.Code = "OTH"
	fallback.Default = true
	require.NoError(t, f.manager.Create(ctx, fallback))

	t.Run("by id", func(t *testing.T) {
		got, err := f.manager.GetOneOrDefault(ctx, service.Criteria{ID: &water.ID})
		require.NoError(t, err)
		assert.Equal(t, water.ID, got.ID)
	})

	t.Run("unknown id falls back to default", func(t *testing.T) {
		got, err := f.manager.GetOneOrDefault(ctx, service.Criteria{ID: ptr(id.New())})
		require.NoError(t, err)
		assert.Equal(t, fallback.ID, got.ID)
	})

	t.Run("by filters", func(t *testing.T) {
		got, err := f.manager.GetOneOrDefault(ctx, service.Criteria{
			Filters: []filter.Item{{Field: "code", Operator: filter.Equal, Value: "W"}},
		})
		require.NoError(t, err)
		assert.Equal(t, water.ID, got.ID)
	})

	t.Run("no match falls back to default", func(t *testing.T) {
		got, err := f.manager.GetOneOrDefault(ctx, service.Criteria{
			Filters: []filter.Item{{Field: "code", Operator: filter.Equal, Value: "ZZ"}},
		})
		require.NoError(t, err)
		assert.Equal(t, fallback.ID, got.ID)
	})

	t.Run("empty criteria returns default", func(t *testing.T) {
		got, err := f.manager.GetOneOrDefault(ctx, service.Criteria{})
		require.NoError(t, err)
		assert.Equal(t, fallback.ID, got.ID)
	})

	t.Run("nothing at all", func(t *testing.T) {
		empty := newFixture(t)
		_, err := empty.manager.GetOneOrDefault(ctx, service.Criteria{})
		assert.True(t, apperror.IsNotFound(err))
	})
}

func TestList_Pagination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		s := f.newService(fmt.Sprintf("Service %02d", i))
		s.Code = fmt.Sprintf("S%02d", i)
		require.NoError(t, f.manager.Create(ctx, s))
	}

	// Default limit applies when none is given
	res, err := f.manager.List(ctx, domain.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, res.Items, 10)
	assert.Equal(t, int64(12), res.Total)
	assert.Equal(t, domain.DefaultLimit, res.Limit)

	res, err = f.manager.List(ctx, domain.ListFilter{Limit: 10, Skip: 10})
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)
}

func TestList_Filters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	external := f.newService("Water Leakage")
	external.Flags.External = true
	require.NoError(t, f.manager.Create(ctx, external))

	internal := f.newService("Meter Audit")
	internal.Code = "MA"
	require.NoError(t, f.manager.Create(ctx, internal))

	yes := true
	res, err := f.manager.List(ctx, domain.ListFilter{External: &yes})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, external.ID, res.Items[0].ID)

	res, err = f.manager.List(ctx, domain.ListFilter{Search: "leak"})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, external.ID, res.Items[0].ID)

	res, err = f.manager.List(ctx, domain.ListFilter{Jurisdiction: &f.jurisdiction.ID})
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)
}

func TestSeed_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seeds := func(ttr float64) []*service.Service {
		return []*service.Service{
			{
				Base:    entity.NewBase(),
				GroupID: &f.group.ID,
				Name:    locale.Localized{"en": "Water Leakage"},
				Sla:     service.Sla{TTR: ttr},
			},
			{
				Base:    entity.NewBase(),
				GroupID: &f.group.ID,
				Code:    "OTH",
				Name:    locale.Localized{"en": "Other"},
				Default: true,
			},
		}
	}

	created, err := f.manager.Seed(ctx, seeds(24))
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	// Second run matches by code and refreshes instead of duplicating
	created, err = f.manager.Seed(ctx, seeds(48))
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	res, err := f.manager.List(ctx, domain.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Total)

	got, err := f.manager.GetOneOrDefault(ctx, service.Criteria{
		Filters: []filter.Item{{Field: "code", Operator: filter.Equal, Value: "W"}},
	})
	require.NoError(t, err)
	assert.Equal(t, float64(48), got.Sla.TTR)
}

func ptr(v id.ID) *id.ID { return &v }
