package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"debtster-collector/internal/domain"
)

type DebtorRepository struct {
	db *sql.DB
}

func NewDebtorRepository(db *sql.DB) *DebtorRepository {
	return &DebtorRepository{db: db}
}

const debtorColumns = `
	id, name, phone, email, company, address,
	business_type, credit_rating,
	payments_total, payments_on_time, payments_late, payments_defaulted, average_delay_days,
	is_blacklisted, is_active,
	contact_start_hour, contact_end_hour, contact_timezone,
	created_at, updated_at
`

func (r *DebtorRepository) Create(ctx context.Context, d *domain.Debtor) (int64, error) {
	query := `
		INSERT INTO debtors (
			name, phone, email, company, address,
			business_type, credit_rating,
			is_blacklisted, is_active,
			contact_start_hour, contact_end_hour, contact_timezone
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		d.Name,
		d.Phone,
		d.Email,
		d.Company,
		d.Address,
		string(d.BusinessType),
		string(d.CreditRating),
		d.IsBlacklisted,
		d.IsActive,
		d.ContactWindow.StartHour,
		d.ContactWindow.EndHour,
		d.ContactWindow.Timezone,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, fmt.Errorf("%w: phone %s already registered", domain.ErrValidation, d.Phone)
		}
		return 0, fmt.Errorf("create debtor: %w", err)
	}
	return id, nil
}

func (r *DebtorRepository) GetByID(ctx context.Context, id int64) (*domain.Debtor, error) {
	query := `SELECT ` + debtorColumns + ` FROM debtors WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *DebtorRepository) GetByPhone(ctx context.Context, phone string) (*domain.Debtor, error) {
	query := `SELECT ` + debtorColumns + ` FROM debtors WHERE phone = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, phone))
}

func (r *DebtorRepository) scanOne(row *sql.Row) (*domain.Debtor, error) {
	var d domain.Debtor
	var businessType, rating string

	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.Phone,
		&d.Email,
		&d.Company,
		&d.Address,
		&businessType,
		&rating,
		&d.History.TotalPayments,
		&d.History.OnTimePayments,
		&d.History.LatePayments,
		&d.History.DefaultedPayments,
		&d.History.AverageDelayDays,
		&d.IsBlacklisted,
		&d.IsActive,
		&d.ContactWindow.StartHour,
		&d.ContactWindow.EndHour,
		&d.ContactWindow.Timezone,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: debtor", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("scan debtor: %w", err)
	}

	d.BusinessType = domain.BusinessType(businessType)
	d.CreditRating = domain.CreditRating(rating)
	return &d, nil
}

// UpdateHistory persists the payment-history counters and the derived rating.
func (r *DebtorRepository) UpdateHistory(ctx context.Context, d *domain.Debtor) error {
	query := `
		UPDATE debtors SET
			payments_total = $2,
			payments_on_time = $3,
			payments_late = $4,
			payments_defaulted = $5,
			average_delay_days = $6,
			credit_rating = $7,
			updated_at = NOW()
		WHERE id = $1
	`

	res, err := r.db.ExecContext(ctx, query,
		d.ID,
		d.History.TotalPayments,
		d.History.OnTimePayments,
		d.History.LatePayments,
		d.History.DefaultedPayments,
		d.History.AverageDelayDays,
		string(d.CreditRating),
	)
	if err != nil {
		return fmt.Errorf("update debtor history: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: debtor %d", domain.ErrNotFound, d.ID)
	}
	return nil
}

// SetBlacklisted flips the operator blacklist flag.
func (r *DebtorRepository) SetBlacklisted(ctx context.Context, id int64, blacklisted bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE debtors SET is_blacklisted = $2, updated_at = NOW() WHERE id = $1`,
		id, blacklisted,
	)
	if err != nil {
		return fmt.Errorf("set blacklist: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: debtor %d", domain.ErrNotFound, id)
	}
	return nil
}
