package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nmateus/go-user-accounts/internal/types"
)

const uniqueViolationCode = "23505"

// PGXQuerier is the subset of pgxpool.Pool the repository needs; satisfied by
// *pgxpool.Pool and by pgxmock pools in tests.
type PGXQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ UserRepo = (*PostgresUserRepo)(nil)

// UserRepo is the persistence contract for account reads and profile/admin
// mutations. Sanitization happens at the JSON layer, so rows are returned
// whole.
type UserRepo interface {
	GetUserByID(ctx context.Context, userID uuid.UUID) (*types.User, error)
	GetAllUsers(ctx context.Context) ([]types.User, error)

	// UpdateAccount applies the provided fields only and returns the updated
	// row. Returns types.ErrConflict on a unique violation (email/username),
	// types.ErrNotFound when the user does not exist.
	UpdateAccount(ctx context.Context, userID uuid.UUID, params types.UpdateAccountParams) (*types.User, error)

	// DeleteUser removes the record. Returns types.ErrNotFound when nothing
	// was deleted.
	DeleteUser(ctx context.Context, userID uuid.UUID) error
}

type PostgresUserRepo struct {
	logger *slog.Logger
	db     PGXQuerier
}

func NewPostgresUserRepo(db PGXQuerier, logger *slog.Logger) *PostgresUserRepo {
	return &PostgresUserRepo{
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

func (r *PostgresUserRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "GetUserByID", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	return scanUser(row)
}

func (r *PostgresUserRepo) GetAllUsers(ctx context.Context) ([]types.User, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "GetAllUsers")
	defer span.End()

	rows, err := r.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		span.SetStatus(codes.Error, "query failed")
		return nil, fmt.Errorf("get all users: %w", err)
	}
	defer rows.Close()

	var users []types.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get all users: rows: %w", err)
	}
	return users, nil
}

func (r *PostgresUserRepo) UpdateAccount(ctx context.Context, userID uuid.UUID, params types.UpdateAccountParams) (*types.User, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "UpdateAccount", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	setClauses := []string{}
	args := []any{}
	argID := 1

	addSet := func(column string, value any) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argID))
		args = append(args, value)
		argID++
	}

	if params.FullName != nil {
		addSet("full_name", *params.FullName)
	}
	if params.Email != nil {
		addSet("email", strings.ToLower(strings.TrimSpace(*params.Email)))
	}
	if params.Company != nil {
		addSet("company", *params.Company)
	}
	if params.Zone != nil {
		addSet("zone", *params.Zone)
	}
	if params.Branch != nil {
		addSet("branch", *params.Branch)
	}
	if params.Division != nil {
		addSet("division", *params.Division)
	}
	if params.Role != nil {
		addSet("role", *params.Role)
	}
	if params.Lob != nil {
		addSet("lob", *params.Lob)
	}

	if len(setClauses) == 0 {
		return nil, types.ErrValidation
	}

	setClauses = append(setClauses, "updated_at = now()")
	query := fmt.Sprintf(
		`UPDATE users SET %s WHERE id = $%d RETURNING `+userColumns,
		strings.Join(setClauses, ", "), argID,
	)
	args = append(args, userID)

	updated, err := scanUser(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			span.SetStatus(codes.Error, "unique violation")
			return nil, types.ErrConflict
		}
		if errors.Is(err, types.ErrNotFound) {
			return nil, types.ErrNotFound
		}
		span.SetStatus(codes.Error, "update failed")
		return nil, fmt.Errorf("update account: %w", err)
	}
	return updated, nil
}

func (r *PostgresUserRepo) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "DeleteUser", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		span.SetStatus(codes.Error, "delete failed")
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}
