package repository

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"debtster-collector/internal/domain"
)

type PersonalAccessTokenRepository struct {
	db *sql.DB
}

func NewPersonalAccessTokenRepository(db *sql.DB) *PersonalAccessTokenRepository {
	return &PersonalAccessTokenRepository{db: db}
}

// FindTokenByPlainToken resolves a sanctum-style plain token ("<id>|<secret>"
// or bare secret) to its stored record by sha256 of the secret part.
func (r *PersonalAccessTokenRepository) FindTokenByPlainToken(ctx context.Context, plainToken string) (*domain.PersonalAccessToken, error) {
	plainToken = strings.TrimSpace(plainToken)
	if plainToken == "" {
		return nil, errors.New("empty token")
	}

	var (
		tokenID   *int64
		tokenPart string
	)

	if idx := strings.Index(plainToken, "|"); idx > 0 {
		if id, err := strconv.ParseInt(plainToken[:idx], 10, 64); err == nil {
			tokenID = &id
		}
		tokenPart = plainToken[idx+1:]
	} else {
		tokenPart = plainToken
	}

	sum := sha256.Sum256([]byte(tokenPart))
	hash := fmt.Sprintf("%x", sum)

	var pat domain.PersonalAccessToken
	var err error

	if tokenID != nil {
		err = r.db.QueryRowContext(ctx, `
			SELECT id, token, user_id, abilities, expires_at
			FROM personal_access_tokens
			WHERE id = $1 AND (expires_at IS NULL OR expires_at > $2)
		`, *tokenID, time.Now()).Scan(&pat.ID, &pat.TokenHash, &pat.UserID, &pat.Abilities, &pat.ExpiresAt)
	} else {
		err = r.db.QueryRowContext(ctx, `
			SELECT id, token, user_id, abilities, expires_at
			FROM personal_access_tokens
			WHERE token = $1 AND (expires_at IS NULL OR expires_at > $2)
		`, hash, time.Now()).Scan(&pat.ID, &pat.TokenHash, &pat.UserID, &pat.Abilities, &pat.ExpiresAt)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: token", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("find token: %w", err)
	}

	if tokenID != nil && pat.TokenHash != hash {
		return nil, fmt.Errorf("%w: token", domain.ErrNotFound)
	}

	return &pat, nil
}
