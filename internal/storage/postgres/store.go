package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/perkly/coupon-engine/internal/domain/coupon"
)

const (
	uniqueViolation = "23505"

	couponColumns = `id, code, description, discount_type, discount_value, max_discount_amount,
		start_date, end_date, usage_limit_per_user, eligibility, created_at, updated_at`

	insertCouponSQL = `INSERT INTO coupons
		(id, code, description, discount_type, discount_value, max_discount_amount,
		 start_date, end_date, usage_limit_per_user, eligibility, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
		RETURNING created_at`

	findAllSQL = `SELECT ` + couponColumns + ` FROM coupons ORDER BY created_at`

	findByCodeSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`

	findAllValidSQL = `SELECT ` + couponColumns + ` FROM coupons
		WHERE start_date <= $1 AND end_date >= $1 ORDER BY created_at`

	getUsageSQL = `SELECT usage_count FROM coupon_usage WHERE coupon_id = $1 AND user_id = $2`

	incrementUsageSQL = `INSERT INTO coupon_usage (coupon_id, user_id, usage_count)
		VALUES ($1, $2, 1)
		ON CONFLICT (coupon_id, user_id) DO UPDATE SET usage_count = coupon_usage.usage_count + 1`

	deleteByCodeSQL = `DELETE FROM coupons WHERE code = $1`
)

var _ coupon.Store = (*Store)(nil)

// Store implements coupon.Store backed by PostgreSQL. Usage rows cascade on
// coupon deletion, so DeleteByCode removes both in one statement.
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewStore returns a Store that uses the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, now: time.Now}
}

// Create persists a new coupon. A unique violation on the code column maps to
// coupon.ErrDuplicateCode.
func (s *Store) Create(ctx context.Context, def coupon.Definition) (*coupon.Coupon, error) {
	eligibilityJSON, err := json.Marshal(def.Eligibility)
	if err != nil {
		return nil, fmt.Errorf("marshaling eligibility: %w", err)
	}

	now := s.now()
	c := &coupon.Coupon{
		ID:                uuid.NewString(),
		Code:              def.Code,
		Description:       def.Description,
		DiscountType:      def.DiscountType,
		DiscountValue:     def.DiscountValue,
		MaxDiscountAmount: def.MaxDiscountAmount,
		StartDate:         def.StartDate,
		EndDate:           def.EndDate,
		UsageLimitPerUser: def.UsageLimitPerUser,
		Eligibility:       def.Eligibility,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	err = s.pool.QueryRow(ctx, insertCouponSQL,
		c.ID, c.Code, c.Description, string(c.DiscountType), c.DiscountValue,
		c.MaxDiscountAmount, c.StartDate, c.EndDate, c.UsageLimitPerUser,
		eligibilityJSON, now,
	).Scan(&c.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, coupon.ErrDuplicateCode
		}
		return nil, fmt.Errorf("creating coupon %q: %w", def.Code, err)
	}
	c.UpdatedAt = c.CreatedAt

	return c, nil
}

// FindAll returns every coupon in creation order.
func (s *Store) FindAll(ctx context.Context) ([]coupon.Coupon, error) {
	rows, err := s.pool.Query(ctx, findAllSQL)
	if err != nil {
		return nil, fmt.Errorf("listing coupons: %w", err)
	}
	return pgx.CollectRows(rows, scanCoupon)
}

// FindByCode looks up a coupon by its code.
// Returns coupon.ErrNotFound when no such coupon exists.
func (s *Store) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := s.pool.Query(ctx, findByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &c, nil
}

// FindAllValid returns coupons whose validity window contains asOf,
// inclusive on both ends.
func (s *Store) FindAllValid(ctx context.Context, asOf time.Time) ([]coupon.Coupon, error) {
	rows, err := s.pool.Query(ctx, findAllValidSQL, asOf)
	if err != nil {
		return nil, fmt.Errorf("listing valid coupons: %w", err)
	}
	return pgx.CollectRows(rows, scanCoupon)
}

// GetUsageCount returns the user's redemption count for the coupon,
// zero when no row exists.
func (s *Store) GetUsageCount(ctx context.Context, couponID, userID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, getUsageSQL, couponID, userID).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("getting usage count: %w", err)
	}
	return count, nil
}

// IncrementUsage bumps the user's redemption count for the coupon by one,
// inserting the row on first use.
func (s *Store) IncrementUsage(ctx context.Context, couponID, userID string) error {
	_, err := s.pool.Exec(ctx, incrementUsageSQL, couponID, userID)
	if err != nil {
		return fmt.Errorf("incrementing usage for coupon %q: %w", couponID, err)
	}
	return nil
}

// DeleteByCode removes the coupon; usage rows cascade. It reports whether a
// row was deleted.
func (s *Store) DeleteByCode(ctx context.Context, code string) (bool, error) {
	tag, err := s.pool.Exec(ctx, deleteByCodeSQL, code)
	if err != nil {
		return false, fmt.Errorf("deleting coupon %q: %w", code, err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c               coupon.Coupon
		discountType    string
		discountValue   decimal.Decimal
		maxDiscount     *decimal.Decimal
		usageLimit      *int32
		eligibilityJSON []byte
	)
	err := row.Scan(
		&c.ID, &c.Code, &c.Description, &discountType, &discountValue,
		&maxDiscount, &c.StartDate, &c.EndDate, &usageLimit,
		&eligibilityJSON, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return coupon.Coupon{}, err
	}

	c.DiscountType = coupon.DiscountType(discountType)
	c.DiscountValue = discountValue
	c.MaxDiscountAmount = maxDiscount
	if usageLimit != nil {
		limit := int(*usageLimit)
		c.UsageLimitPerUser = &limit
	}
	if err := json.Unmarshal(eligibilityJSON, &c.Eligibility); err != nil {
		return coupon.Coupon{}, fmt.Errorf("unmarshaling eligibility: %w", err)
	}
	return c, nil
}
