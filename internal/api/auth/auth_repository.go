package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/nmateus/go-user-accounts/app/observability/metrics"
	"github.com/nmateus/go-user-accounts/internal/types"
)

const uniqueViolationCode = "23505"

// PGXQuerier is the subset of pgxpool.Pool the repository needs. It is
// satisfied by *pgxpool.Pool and by pgxmock pools in tests.
type PGXQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ AuthRepo = (*PostgresAuthRepo)(nil)

// AuthRepo is the credential store contract the session core depends on.
type AuthRepo interface {
	// CreateUser inserts a new record. Returns types.ErrConflict when the
	// username or email unique constraint is violated.
	CreateUser(ctx context.Context, user *types.User) (*types.User, error)

	// GetUserByID returns types.ErrNotFound when no row matches.
	GetUserByID(ctx context.Context, userID uuid.UUID) (*types.User, error)

	// GetUserByUsernameOrEmail matches either identity field.
	GetUserByUsernameOrEmail(ctx context.Context, username, email string) (*types.User, error)

	// UpdateRefreshToken overwrites the single refresh-token slot.
	// A nil token clears it.
	UpdateRefreshToken(ctx context.Context, userID uuid.UUID, token *string) error

	// UpdatePassword replaces the stored password hash.
	UpdatePassword(ctx context.Context, userID uuid.UUID, newHash string) error
}

type PostgresAuthRepo struct {
	logger *slog.Logger
	db     PGXQuerier
}

func NewPostgresAuthRepo(db PGXQuerier, logger *slog.Logger) *PostgresAuthRepo {
	return &PostgresAuthRepo{
		logger: logger,
		db:     db,
	}
}

const userColumns = `id, full_name, username, email, password_hash, refresh_token,
       company, zone, branch, division, role, lob, created_at, updated_at`

func scanUser(row pgx.Row) (*types.User, error) {
	var u types.User
	err := row.Scan(
		&u.ID, &u.FullName, &u.Username, &u.Email, &u.PasswordHash, &u.RefreshToken,
		&u.Company, &u.Zone, &u.Branch, &u.Division, &u.Role, &u.Lob,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

func (r *PostgresAuthRepo) CreateUser(ctx context.Context, user *types.User) (*types.User, error) {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "CreateUser", trace.WithAttributes(
		attribute.String("user.username", user.Username),
	))
	defer span.End()
	defer r.observeQuery("create_user", time.Now())

	row := r.db.QueryRow(ctx, `
        INSERT INTO users (full_name, username, email, password_hash, company, zone, branch, division, role, lob)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING `+userColumns,
		user.FullName, user.Username, user.Email, user.PasswordHash,
		user.Company, user.Zone, user.Branch, user.Division, user.Role, user.Lob,
	)

	created, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			span.SetStatus(codes.Error, "unique violation")
			return nil, types.ErrConflict
		}
		span.SetStatus(codes.Error, "insert failed")
		return nil, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

func (r *PostgresAuthRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "GetUserByID", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()
	defer r.observeQuery("get_user_by_id", time.Now())

	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	return scanUser(row)
}

func (r *PostgresAuthRepo) GetUserByUsernameOrEmail(ctx context.Context, username, email string) (*types.User, error) {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "GetUserByUsernameOrEmail")
	defer span.End()
	defer r.observeQuery("get_user_by_identity", time.Now())

	row := r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1 OR email = $2`,
		username, email,
	)
	return scanUser(row)
}

func (r *PostgresAuthRepo) UpdateRefreshToken(ctx context.Context, userID uuid.UUID, token *string) error {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "UpdateRefreshToken", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()
	defer r.observeQuery("update_refresh_token", time.Now())

	tag, err := r.db.Exec(ctx,
		`UPDATE users SET refresh_token = $1, updated_at = now() WHERE id = $2`,
		token, userID,
	)
	if err != nil {
		span.SetStatus(codes.Error, "update failed")
		return fmt.Errorf("update refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *PostgresAuthRepo) UpdatePassword(ctx context.Context, userID uuid.UUID, newHash string) error {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "UpdatePassword", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()
	defer r.observeQuery("update_password", time.Now())

	tag, err := r.db.Exec(ctx,
		`UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2`,
		newHash, userID,
	)
	if err != nil {
		span.SetStatus(codes.Error, "update failed")
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *PostgresAuthRepo) observeQuery(name string, start time.Time) {
	metrics.Get().DbQueryDurationSeconds.Record(context.Background(),
		time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("query", name)),
	)
}
