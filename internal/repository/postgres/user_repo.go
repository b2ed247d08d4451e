package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Драйвер Postgres

	"github.com/quantenergx/filing-gateway/internal/domain"
)

// UserRepo хранит учетки операторов Console API
type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(connString string) *UserRepo {
	db, err := sql.Open("pgx", connString)
	if err != nil {
		log.Fatal(err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	return &UserRepo{db: db}
}

// GetUserByUsername возвращает nil, nil если пользователь не найден:
// сервис сам решает, как не светить причину отказа наружу
func (r *UserRepo) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `
		SELECT id, email, username, password_hash, role, scopes, created_at, updated_at
		FROM users WHERE username = $1`

	u := &domain.User{}
	var scopes []byte
	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.Role, &scopes, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: failed to fetch user: %w", err)
	}

	if len(scopes) > 0 {
		if err := json.Unmarshal(scopes, &u.Scopes); err != nil {
			return nil, fmt.Errorf("postgres: corrupt scopes for user %s: %w", u.ID, err)
		}
	}
	return u, nil
}

// Ping проверяет доступность базы при старте
func (r *UserRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
