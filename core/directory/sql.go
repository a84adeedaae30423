package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/arafat-telecom/chatbot/core/logger"
)

const (
	insertUserQuery = `INSERT INTO users (id, sender_id, email, password_hash, pin_hash, balance, is_verified, created_at)
VALUES (?, ?, ?, ?, ?, 0, FALSE, ?)`
	selectUserColumns = `SELECT id, sender_id, email, password_hash, pin_hash, balance, is_verified, created_at FROM users`
)

// userRow mirrors the users table; created_at is stored as unix milliseconds.
type userRow struct {
	User
	CreatedAtMS int64 `db:"created_at"`
}

func (r userRow) toUser() User {
	u := r.User
	u.CreatedAt = time.UnixMilli(r.CreatedAtMS).UTC()
	return u
}

// SQL is a Directory backed by the users table in postgres or sqlite.
type SQL struct {
	db *sqlx.DB
}

// NewSQL wraps an open connection. The schema is created by the database migrations.
func NewSQL(db *sqlx.DB) *SQL {
	return &SQL{db: db}
}

// Create inserts a user and maps unique violations to ErrDuplicateSender or ErrDuplicateEmail.
func (s *SQL) Create(ctx context.Context, u NewUser) (User, error) {
	user := User{
		ID:           uuid.NewString(),
		SenderID:     u.SenderID,
		Email:        NormalizeEmail(u.Email),
		PasswordHash: u.PasswordHash,
		PinHash:      u.PinHash,
		CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
	}
	start := time.Now()
	_, err := s.db.ExecContext(ctx, s.db.Rebind(insertUserQuery),
		user.ID, user.SenderID, user.Email, user.PasswordHash, user.PinHash, user.CreatedAt.UnixMilli(),
	)
	if err != nil {
		if dup := uniqueViolation(err); dup != nil {
			logger.Debug(ctx, "directory", "user.create",
				slog.String("status", "skip"),
				slog.String("reason", dup.Error()),
			)
			return User{}, dup
		}
		logger.Error(ctx, "directory", "user.create",
			slog.String("status", "fail"),
			slog.String("driver", s.db.DriverName()),
			slog.Duration("duration", logger.Took(start)),
			slog.String("err", err.Error()),
		)
		return User{}, fmt.Errorf("directory: insert user: %w", err)
	}
	logger.Info(ctx, "directory", "user.create",
		slog.String("status", "ok"),
		slog.String("user_id", user.ID),
		slog.Duration("duration", logger.Took(start)),
	)
	return user, nil
}

// FindByEmail returns the user registered with email, ignoring case.
func (s *SQL) FindByEmail(ctx context.Context, email string) (User, error) {
	return s.findOne(ctx, selectUserColumns+` WHERE email = ?`, NormalizeEmail(email))
}

func (s *SQL) findOne(ctx context.Context, query string, arg any) (User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(query), arg)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return User{}, ErrNotFound
	case err != nil:
		return User{}, fmt.Errorf("directory: select user: %w", err)
	}
	return row.toUser(), nil
}
