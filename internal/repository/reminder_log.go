package repository

import (
	"context"
	"database/sql"
	"fmt"

	"debtster-collector/internal/domain"
)

type ReminderLogRepository struct {
	db *sql.DB
}

func NewReminderLogRepository(db *sql.DB) *ReminderLogRepository {
	return &ReminderLogRepository{db: db}
}

// Insert appends one outbound attempt. Rows are never updated afterwards.
func (r *ReminderLogRepository) Insert(ctx context.Context, l *domain.ReminderLog) error {
	query := `
		INSERT INTO reminder_logs (id, debt_id, level, message, status, error, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		l.ID, l.DebtID, l.Level, l.Message, string(l.Status), l.Error, l.SentAt,
	)
	if err != nil {
		return fmt.Errorf("insert reminder log: %w", err)
	}
	return nil
}

func (r *ReminderLogRepository) ListByDebt(ctx context.Context, debtID int64) ([]domain.ReminderLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, debt_id, level, message, status, error, sent_at
		FROM reminder_logs
		WHERE debt_id = $1
		ORDER BY sent_at DESC
	`, debtID)
	if err != nil {
		return nil, fmt.Errorf("list reminder logs: %w", err)
	}
	defer rows.Close()

	var out []domain.ReminderLog
	for rows.Next() {
		var l domain.ReminderLog
		var status string
		if err := rows.Scan(&l.ID, &l.DebtID, &l.Level, &l.Message, &status, &l.Error, &l.SentAt); err != nil {
			return nil, err
		}
		l.Status = domain.ReminderOutcome(status)
		out = append(out, l)
	}
	return out, rows.Err()
}
