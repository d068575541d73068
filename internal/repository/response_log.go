package repository

import (
	"context"
	"database/sql"
	"fmt"

	"debtster-collector/internal/domain"
)

type ResponseLogRepository struct {
	db *sql.DB
}

func NewResponseLogRepository(db *sql.DB) *ResponseLogRepository {
	return &ResponseLogRepository{db: db}
}

// Insert appends one classified inbound reply for one matched debt.
func (r *ResponseLogRepository) Insert(ctx context.Context, l *domain.DebtorResponseLog) error {
	query := `
		INSERT INTO debtor_responses (
			id, debt_id, phone, message,
			intent, sentiment, urgency, payment_commitment,
			suggested_action, confidence, summary, received_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	c := l.Classification
	_, err := r.db.ExecContext(ctx, query,
		l.ID, l.DebtID, l.Phone, l.Message,
		string(c.Intent), c.Sentiment, c.Urgency, c.PaymentCommitment,
		string(c.SuggestedAction), c.Confidence, c.Summary, l.ReceivedAt,
	)
	if err != nil {
		return fmt.Errorf("insert debtor response: %w", err)
	}
	return nil
}

func (r *ResponseLogRepository) ListByDebt(ctx context.Context, debtID int64) ([]domain.DebtorResponseLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, debt_id, phone, message,
		       intent, sentiment, urgency, payment_commitment,
		       suggested_action, confidence, summary, received_at
		FROM debtor_responses
		WHERE debt_id = $1
		ORDER BY received_at DESC
	`, debtID)
	if err != nil {
		return nil, fmt.Errorf("list debtor responses: %w", err)
	}
	defer rows.Close()

	var out []domain.DebtorResponseLog
	for rows.Next() {
		var l domain.DebtorResponseLog
		var intent, action string
		c := &l.Classification
		if err := rows.Scan(
			&l.ID, &l.DebtID, &l.Phone, &l.Message,
			&intent, &c.Sentiment, &c.Urgency, &c.PaymentCommitment,
			&action, &c.Confidence, &c.Summary, &l.ReceivedAt,
		); err != nil {
			return nil, err
		}
		c.Intent = domain.ResponseIntent(intent)
		c.SuggestedAction = domain.SuggestedAction(action)
		out = append(out, l)
	}
	return out, rows.Err()
}
