package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/perkly/coupon-engine/internal/domain/coupon"
	"github.com/perkly/coupon-engine/internal/storage/postgres"
)

func main() {
	var databaseURL string

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	store := postgres.NewStore(pool)

	if err := seedCoupons(ctx, store); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	return nil
}

func seedCoupons(ctx context.Context, store *postgres.Store) error {
	now := time.Now().UTC()
	yearStart := now.AddDate(0, -1, 0)
	yearEnd := now.AddDate(1, 0, 0)
	summerEnd := now.AddDate(0, 3, 0)

	one := 1
	minCart500 := decimal.NewFromInt(500)
	minCart1000 := decimal.NewFromInt(1000)
	cap500 := decimal.NewFromInt(500)

	defs := []coupon.Definition{
		{
			Code:              "WELCOME100",
			Description:       "Flat ₹100 off your first order",
			DiscountType:      coupon.DiscountFlat,
			DiscountValue:     decimal.NewFromInt(100),
			StartDate:         yearStart,
			EndDate:           yearEnd,
			UsageLimitPerUser: &one,
			Eligibility: coupon.Eligibility{
				FirstOrderOnly: true,
				MinCartValue:   &minCart500,
			},
		},
		{
			Code:              "SUMMER20",
			Description:       "20% off fashion, up to ₹500",
			DiscountType:      coupon.DiscountPercent,
			DiscountValue:     decimal.NewFromInt(20),
			MaxDiscountAmount: &cap500,
			StartDate:         yearStart,
			EndDate:           summerEnd,
			Eligibility: coupon.Eligibility{
				ApplicableCategories: []string{"fashion"},
				MinCartValue:         &minCart1000,
			},
		},
		{
			Code:          "GOLD50",
			Description:   "Flat ₹50 off for GOLD members",
			DiscountType:  coupon.DiscountFlat,
			DiscountValue: decimal.NewFromInt(50),
			StartDate:     yearStart,
			EndDate:       yearEnd,
			Eligibility: coupon.Eligibility{
				AllowedUserTiers: []string{"GOLD"},
			},
		},
	}

	slog.Info("seeding demo coupons", slog.Int("count", len(defs)))

	for _, def := range defs {
		_, err := store.Create(ctx, def)
		if errors.Is(err, coupon.ErrDuplicateCode) {
			slog.Info("coupon already exists, skipping", slog.String("code", def.Code))
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "create coupon %s", def.Code)
		}

		slog.Info("created coupon", slog.String("code", def.Code), slog.String("description", def.Description))
	}

	return nil
}
