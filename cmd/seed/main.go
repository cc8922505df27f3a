// Package main provides a CLI tool for seeding the database with initial
// reference data and services. Safe to run repeatedly: records are matched by
// code and refreshed in place.
package main

import (
	"context"
	"fmt"
	"os"

	"majifix/internal/core/entity"
	"majifix/internal/core/id"
	"majifix/internal/core/locale"
	"majifix/internal/domain/reference"
	"majifix/internal/domain/service"
	"majifix/internal/infrastructure/storage/postgres"
	"majifix/internal/infrastructure/storage/postgres/reference_repo"
	"majifix/internal/infrastructure/storage/postgres/service_repo"
	"majifix/internal/metrics"
	"majifix/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dbURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("connected to database")

	tm := postgres.NewTxManager(pool)
	locales := locale.DefaultConfig()
	if err := postgres.Migrate(ctx, tm, locales); err != nil {
		log.Fatalw("failed to migrate schema", "error", err)
	}

	refs := reference_repo.New(tm)
	manager := service.NewManager(service.Config{
		Repo:       service_repo.New(tm),
		References: refs,
		Locales:    locales,
		Logger:     log,
	})

	err = tm.RunInTransaction(ctx, func(ctx context.Context) error {
		jurisdiction, err := seedReferences(ctx, refs)
		if err != nil {
			return err
		}
		return seedServices(ctx, manager, refs, jurisdiction)
	})
	if err != nil {
		log.Fatalw("seeding failed", "error", err)
	}

	log.Info("seeding completed")
}

// seedReferences upserts the jurisdiction, default priority and service
// groups everything else hangs off.
func seedReferences(ctx context.Context, refs *reference_repo.Store) (*reference.Jurisdiction, error) {
	jurisdiction := &reference.Jurisdiction{
		Base:  entity.NewBase(),
		Code:  getEnv("SEED_JURISDICTION_CODE", "MJF"),
		Name:  locale.Localized{"en": getEnv("SEED_JURISDICTION_NAME", "Majifix Municipal")},
		Color: "#0A6EBD",
	}
	if err := refs.UpsertJurisdiction(ctx, jurisdiction); err != nil {
		return nil, fmt.Errorf("seed jurisdiction: %w", err)
	}
	jurisdiction, err := refs.GetJurisdictionByCode(ctx, jurisdiction.Code)
	if err != nil {
		return nil, fmt.Errorf("reload jurisdiction: %w", err)
	}

	priority := &reference.Priority{
		Base:           entity.NewBase(),
		JurisdictionID: &jurisdiction.ID,
		Code:           "NRM",
		Name:           locale.Localized{"en": "Normal"},
		Color:          "#4CAF50",
		Weight:         0,
	}
	if err := refs.UpsertPriority(ctx, priority); err != nil {
		return nil, fmt.Errorf("seed priority: %w", err)
	}
	priority, err = refs.GetPriorityByCode(ctx, priority.Code)
	if err != nil {
		return nil, fmt.Errorf("reload priority: %w", err)
	}

	groups := []*reference.ServiceGroup{
		{
			Base:           entity.NewBase(),
			JurisdictionID: &jurisdiction.ID,
			PriorityID:     &priority.ID,
			Code:           "WS",
			Name:           locale.Localized{"en": "Water Supply"},
			Color:          "#2196F3",
		},
		{
			Base:           entity.NewBase(),
			JurisdictionID: &jurisdiction.ID,
			PriorityID:     &priority.ID,
			Code:           "SN",
			Name:           locale.Localized{"en": "Sanitation"},
			Color:          "#795548",
		},
		{
			Base:           entity.NewBase(),
			JurisdictionID: &jurisdiction.ID,
			PriorityID:     &priority.ID,
			Code:           "OT",
			Name:           locale.Localized{"en": "Other"},
			Color:          "#9E9E9E",
		},
	}
	for _, g := range groups {
		if err := refs.UpsertGroup(ctx, g); err != nil {
			return nil, fmt.Errorf("seed group %s: %w", g.Code, err)
		}
	}

	return jurisdiction, nil
}

// seedServices upserts the starter services. Jurisdiction and priority are
// derived from each group by the save pipeline.
func seedServices(ctx context.Context, manager *service.Manager, refs *reference_repo.Store, jurisdiction *reference.Jurisdiction) error {
	groupID := func(code string) (*id.ID, error) {
		g, err := refs.GetGroupByCode(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("load group %s: %w", code, err)
		}
		return &g.ID, nil
	}

	water, err := groupID("WS")
	if err != nil {
		return err
	}
	sanitation, err := groupID("SN")
	if err != nil {
		return err
	}
	other, err := groupID("OT")
	if err != nil {
		return err
	}

	seeds := []*service.Service{
		{
			Base:        entity.NewBase(),
			GroupID:     water,
			Name:        locale.Localized{"en": "Water Leakage"},
			Description: locale.Localized{"en": "Water visibly leaking from a pipe or meter"},
			Sla:         service.Sla{TTR: 24},
			Flags:       service.Flags{External: true},
		},
		{
			Base:        entity.NewBase(),
			GroupID:     water,
			Code:        "BL",
			Name:        locale.Localized{"en": "Billing Enquiry"},
			Description: locale.Localized{"en": "Questions about a water bill"},
			Sla:         service.Sla{TTR: 48},
			Flags:       service.Flags{Account: true},
		},
		{
			Base:        entity.NewBase(),
			GroupID:     sanitation,
			Name:        locale.Localized{"en": "Sewage Overflow"},
			Description: locale.Localized{"en": "Sewage overflowing into streets or property"},
			Sla:         service.Sla{TTR: 12},
			Flags:       service.Flags{External: true},
		},
		{
			Base:        entity.NewBase(),
			GroupID:     other,
			Code:        "OTH",
			Name:        locale.Localized{"en": "Other"},
			Description: locale.Localized{"en": "Anything not covered by another service"},
			Sla:         service.Sla{TTR: 72},
			Flags:       service.Flags{External: true},
			Default:     true,
		},
	}

	created, err := manager.Seed(ctx, seeds)
	if err != nil {
		return err
	}
	metrics.ServicesSeeded.Add(float64(created))

	logger.Info(ctx, "services seeded",
		"jurisdiction", jurisdiction.Code,
		"created", created,
		"total", len(seeds),
	)
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
