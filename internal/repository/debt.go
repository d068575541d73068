package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"debtster-collector/internal/domain"
)

type DebtRepository struct {
	db *sql.DB
}

func NewDebtRepository(db *sql.DB) *DebtRepository {
	return &DebtRepository{db: db}
}

const debtColumns = `
	d.id, d.debtor_id, d.invoice_number, d.amount, d.currency,
	d.issue_date, d.due_date, d.status, d.priority,
	d.reminder_count, d.last_reminder_date, d.next_reminder_date, d.last_reminder_level,
	d.escalation_date, d.escalation_type,
	d.assigned_to, d.tags, d.notes, d.is_active,
	d.created_at, d.updated_at
`

// DebtWithDebtor carries the joined debtor identity used by outreach and the
// weekly report.
type DebtWithDebtor struct {
	domain.Debt
	DebtorName        string
	DebtorPhone       string
	DebtorBlacklisted bool
}

func (r *DebtRepository) Create(ctx context.Context, d *domain.Debt) (int64, error) {
	query := `
		INSERT INTO debts (
			debtor_id, invoice_number, amount, currency,
			issue_date, due_date, status, priority,
			assigned_to, tags, notes, is_active
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		d.DebtorID,
		d.InvoiceNumber,
		d.Amount,
		d.Currency,
		d.IssueDate,
		d.DueDate,
		string(d.Status),
		string(d.Priority),
		d.AssignedTo,
		joinTags(d.Tags),
		d.Notes,
		d.IsActive,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgerrcode.UniqueViolation:
				return 0, fmt.Errorf("%w: invoice %s already exists", domain.ErrValidation, d.InvoiceNumber)
			case pgerrcode.ForeignKeyViolation:
				return 0, fmt.Errorf("%w: debtor %d", domain.ErrNotFound, d.DebtorID)
			}
		}
		return 0, fmt.Errorf("create debt: %w", err)
	}
	return id, nil
}

func (r *DebtRepository) GetByID(ctx context.Context, id int64) (*domain.Debt, error) {
	query := `SELECT ` + debtColumns + ` FROM debts d WHERE d.id = $1`

	d, err := scanDebt(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadPayments(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// GetWithDebtor loads a debt plus the owning debtor's name and phone.
func (r *DebtRepository) GetWithDebtor(ctx context.Context, id int64) (*DebtWithDebtor, error) {
	query := `
		SELECT ` + debtColumns + `, dbt.name, dbt.phone, dbt.is_blacklisted
		FROM debts d
		JOIN debtors dbt ON dbt.id = d.debtor_id
		WHERE d.id = $1
	`

	row := r.db.QueryRowContext(ctx, query, id)
	out, err := scanDebtWithDebtor(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadPayments(ctx, &out.Debt); err != nil {
		return nil, err
	}
	return out, nil
}

// Update persists the mutable part of a debt record: status, reminder state,
// escalation fields and notes. Amounts and dates are immutable after create.
func (r *DebtRepository) Update(ctx context.Context, d *domain.Debt) error {
	query := `
		UPDATE debts SET
			status = $2,
			priority = $3,
			reminder_count = $4,
			last_reminder_date = $5,
			next_reminder_date = $6,
			last_reminder_level = $7,
			escalation_date = $8,
			escalation_type = $9,
			assigned_to = $10,
			tags = $11,
			notes = $12,
			is_active = $13,
			updated_at = NOW()
		WHERE id = $1
	`

	var escType *string
	if d.EscalationType != nil {
		s := string(*d.EscalationType)
		escType = &s
	}

	res, err := r.db.ExecContext(ctx, query,
		d.ID,
		string(d.Status),
		string(d.Priority),
		d.ReminderCount,
		d.LastReminderDate,
		d.NextReminderDate,
		d.LastReminderLevel,
		d.EscalationDate,
		escType,
		d.AssignedTo,
		joinTags(d.Tags),
		d.Notes,
		d.IsActive,
	)
	if err != nil {
		return fmt.Errorf("update debt: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: debt %d", domain.ErrNotFound, d.ID)
	}
	return nil
}

// AddPayment appends one payment row.
func (r *DebtRepository) AddPayment(ctx context.Context, p *domain.Payment) error {
	query := `
		INSERT INTO payments (id, debt_id, amount, payment_date, method, verified_by)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.DebtID, p.Amount, p.PaymentDate, string(p.Method), p.VerifiedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return fmt.Errorf("%w: debt %d", domain.ErrNotFound, p.DebtID)
		}
		return fmt.Errorf("add payment: %w", err)
	}
	return nil
}

// ListDueForReminder selects open, active debts whose next reminder is due, or
// overdue debts that were never reminded.
func (r *DebtRepository) ListDueForReminder(ctx context.Context, now time.Time) ([]DebtWithDebtor, error) {
	query := `
		SELECT ` + debtColumns + `, dbt.name, dbt.phone, dbt.is_blacklisted
		FROM debts d
		JOIN debtors dbt ON dbt.id = d.debtor_id
		WHERE d.is_active = TRUE
		  AND d.status IN ('pending', 'overdue', 'partially_paid')
		  AND dbt.is_blacklisted = FALSE
		  AND (
			d.next_reminder_date <= $1
			OR (d.next_reminder_date IS NULL AND d.due_date < $1 AND d.reminder_count = 0)
		  )
		ORDER BY d.due_date
	`

	return r.listWithDebtor(ctx, query, now)
}

// ListDueForEscalation selects open, active debts that are either past the
// overdue threshold or out of reminder attempts.
func (r *DebtRepository) ListDueForEscalation(ctx context.Context, now time.Time, p domain.ReminderPolicy) ([]DebtWithDebtor, error) {
	overdueCutoff := now.Add(-time.Duration(p.EscalationAfterDays) * 24 * time.Hour)

	query := `
		SELECT ` + debtColumns + `, dbt.name, dbt.phone, dbt.is_blacklisted
		FROM debts d
		JOIN debtors dbt ON dbt.id = d.debtor_id
		WHERE d.is_active = TRUE
		  AND d.status IN ('pending', 'overdue', 'partially_paid')
		  AND dbt.is_blacklisted = FALSE
		  AND (
			(d.due_date <= $1 AND d.status IN ('overdue', 'partially_paid'))
			OR d.reminder_count >= $2
		  )
		ORDER BY d.due_date
	`

	return r.listWithDebtor(ctx, query, overdueCutoff, p.MaxAttempts)
}

// ListOpenByPhone resolves the conversational context for an inbound message:
// every open debt owned by the debtor with this phone.
func (r *DebtRepository) ListOpenByPhone(ctx context.Context, phone string) ([]DebtWithDebtor, error) {
	query := `
		SELECT ` + debtColumns + `, dbt.name, dbt.phone, dbt.is_blacklisted
		FROM debts d
		JOIN debtors dbt ON dbt.id = d.debtor_id
		WHERE dbt.phone = $1
		  AND d.is_active = TRUE
		  AND d.status IN ('pending', 'overdue', 'partially_paid')
		ORDER BY d.due_date
	`

	return r.listWithDebtor(ctx, query, phone)
}

// ListPendingPastDue feeds the daily maintenance sweep: pending debts whose
// due date has passed and whose stored status is stale.
func (r *DebtRepository) ListPendingPastDue(ctx context.Context, now time.Time) ([]DebtWithDebtor, error) {
	query := `
		SELECT ` + debtColumns + `, dbt.name, dbt.phone, dbt.is_blacklisted
		FROM debts d
		JOIN debtors dbt ON dbt.id = d.debtor_id
		WHERE d.is_active = TRUE
		  AND d.status = 'pending'
		  AND d.due_date < $1
	`

	return r.listWithDebtor(ctx, query, now)
}

// ListActive returns every active debt with its debtor, for the report.
func (r *DebtRepository) ListActive(ctx context.Context) ([]DebtWithDebtor, error) {
	query := `
		SELECT ` + debtColumns + `, dbt.name, dbt.phone, dbt.is_blacklisted
		FROM debts d
		JOIN debtors dbt ON dbt.id = d.debtor_id
		WHERE d.is_active = TRUE
		ORDER BY d.due_date
	`

	return r.listWithDebtor(ctx, query)
}

// CountByStatus returns the portfolio breakdown used by the daily sweep log
// and the report summary sheet.
func (r *DebtRepository) CountByStatus(ctx context.Context) (map[domain.DebtStatus]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM debts WHERE is_active = TRUE GROUP BY status`,
	)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.DebtStatus]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[domain.DebtStatus(status)] = n
	}
	return out, rows.Err()
}

// SoftDelete marks a debt inactive instead of purging it.
func (r *DebtRepository) SoftDelete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE debts SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id,
	)
	if err != nil {
		return fmt.Errorf("soft delete debt: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: debt %d", domain.ErrNotFound, id)
	}
	return nil
}

func (r *DebtRepository) listWithDebtor(ctx context.Context, query string, args ...any) ([]DebtWithDebtor, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list debts: %w", err)
	}
	defer rows.Close()

	var result []DebtWithDebtor
	for rows.Next() {
		item, err := scanDebtWithDebtor(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range result {
		if err := r.loadPayments(ctx, &result[i].Debt); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (r *DebtRepository) loadPayments(ctx context.Context, d *domain.Debt) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, debt_id, amount, payment_date, method, verified_by, created_at
		FROM payments
		WHERE debt_id = $1
		ORDER BY payment_date
	`, d.ID)
	if err != nil {
		return fmt.Errorf("load payments: %w", err)
	}
	defer rows.Close()

	d.Payments = nil
	for rows.Next() {
		var p domain.Payment
		var method string
		if err := rows.Scan(&p.ID, &p.DebtID, &p.Amount, &p.PaymentDate, &method, &p.VerifiedBy, &p.CreatedAt); err != nil {
			return err
		}
		p.Method = domain.PaymentMethod(method)
		d.Payments = append(d.Payments, p)
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDebt(row rowScanner) (*domain.Debt, error) {
	var d domain.Debt
	if err := scanDebtInto(row, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func scanDebtWithDebtor(row rowScanner) (*DebtWithDebtor, error) {
	var out DebtWithDebtor
	if err := scanDebtInto(row, &out.Debt, &out.DebtorName, &out.DebtorPhone, &out.DebtorBlacklisted); err != nil {
		return nil, err
	}
	return &out, nil
}

func scanDebtInto(row rowScanner, d *domain.Debt, extra ...any) error {
	var status, priority, tags string
	var escType *string

	dest := []any{
		&d.ID,
		&d.DebtorID,
		&d.InvoiceNumber,
		&d.Amount,
		&d.Currency,
		&d.IssueDate,
		&d.DueDate,
		&status,
		&priority,
		&d.ReminderCount,
		&d.LastReminderDate,
		&d.NextReminderDate,
		&d.LastReminderLevel,
		&d.EscalationDate,
		&escType,
		&d.AssignedTo,
		&tags,
		&d.Notes,
		&d.IsActive,
		&d.CreatedAt,
		&d.UpdatedAt,
	}
	dest = append(dest, extra...)

	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: debt", domain.ErrNotFound)
		}
		return fmt.Errorf("scan debt: %w", err)
	}

	d.Status = domain.DebtStatus(status)
	d.Priority = domain.DebtPriority(priority)
	d.Tags = splitTags(tags)
	if escType != nil {
		t := domain.EscalationType(*escType)
		d.EscalationType = &t
	}
	return nil
}

func joinTags(tags []string) string {
	return strings.Join(tags, ",")
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
