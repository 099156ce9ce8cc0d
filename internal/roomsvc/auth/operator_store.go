package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avvvet/tombola-service/internal/roomsvc/models"
)

const operatorsSchema = `
CREATE TABLE IF NOT EXISTS operators (
    id            BIGSERIAL PRIMARY KEY,
    email         TEXT NOT NULL UNIQUE,
    name          TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    super_admin   BOOLEAN NOT NULL DEFAULT FALSE,
    status        TEXT NOT NULL DEFAULT 'active',
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

type PgOperatorStore struct {
	db *pgxpool.Pool
}

func NewPgOperatorStore(db *pgxpool.Pool) *PgOperatorStore {
	return &PgOperatorStore{db: db}
}

func (r *PgOperatorStore) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, operatorsSchema); err != nil {
		return fmt.Errorf("create operators table: %w", err)
	}
	return nil
}

func (r *PgOperatorStore) Create(ctx context.Context, op models.Operator) (int64, error) {
	var id int64

	query := `
        INSERT INTO operators (email, name, password_hash, super_admin, status)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id;
    `

	err := r.db.QueryRow(ctx, query, strings.ToLower(op.Email), op.Name, op.PasswordHash, op.SuperAdmin, op.Status).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrEmailTaken
		}
		return 0, fmt.Errorf("could not create operator: %w", err)
	}

	return id, nil
}

func (r *PgOperatorStore) GetByEmail(ctx context.Context, email string) (*models.Operator, error) {
	row := r.db.QueryRow(ctx, `
        SELECT id, email, name, password_hash, super_admin, status, created_at, updated_at
        FROM operators
        WHERE email = $1
    `, strings.ToLower(email))

	op := &models.Operator{}
	err := row.Scan(
		&op.ID,
		&op.Email,
		&op.Name,
		&op.PasswordHash,
		&op.SuperAdmin,
		&op.Status,
		&op.CreatedAt,
		&op.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOperatorNotFound
		}
		return nil, fmt.Errorf("could not load operator: %w", err)
	}

	return op, nil
}
