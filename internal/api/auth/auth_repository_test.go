package auth

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmateus/go-user-accounts/internal/types"
)

var userTestColumns = []string{
	"id", "full_name", "username", "email", "password_hash", "refresh_token",
	"company", "zone", "branch", "division", "role", "lob", "created_at", "updated_at",
}

func userRow(id uuid.UUID, username, email string) *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows(userTestColumns).AddRow(
		id, "Test User", username, email, "hashed-password", nil,
		nil, nil, nil, nil, nil, nil, now, now,
	)
}

func newRepoWithMock(t *testing.T) (*PostgresAuthRepo, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	return NewPostgresAuthRepo(mockPool, slog.Default()), mockPool
}

func TestPostgresAuthRepoCreateUser(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		repo, mockPool := newRepoWithMock(t)
		userID := uuid.New()

		mockPool.ExpectQuery("INSERT INTO users").
			WithArgs("Test User", "testuser", "test@example.com", "hashed-password",
				(*string)(nil), (*string)(nil), (*string)(nil), (*string)(nil), (*string)(nil), (*string)(nil)).
			WillReturnRows(userRow(userID, "testuser", "test@example.com"))

		created, err := repo.CreateUser(context.Background(), &types.User{
			FullName:     "Test User",
			Username:     "testuser",
			Email:        "test@example.com",
			PasswordHash: "hashed-password",
		})

		require.NoError(t, err)
		assert.Equal(t, userID, created.ID)
		assert.Equal(t, "testuser", created.Username)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("UniqueViolation", func(t *testing.T) {
		repo, mockPool := newRepoWithMock(t)

		mockPool.ExpectQuery("INSERT INTO users").
			WithArgs("Test User", "testuser", "test@example.com", "hashed-password",
				(*string)(nil), (*string)(nil), (*string)(nil), (*string)(nil), (*string)(nil), (*string)(nil)).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"})

		_, err := repo.CreateUser(context.Background(), &types.User{
			FullName:     "Test User",
			Username:     "testuser",
			Email:        "test@example.com",
			PasswordHash: "hashed-password",
		})

		assert.ErrorIs(t, err, types.ErrConflict)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPostgresAuthRepoGetUserByID(t *testing.T) {
	t.Run("Found", func(t *testing.T) {
		repo, mockPool := newRepoWithMock(t)
		userID := uuid.New()

		mockPool.ExpectQuery("SELECT (.+) FROM users WHERE id").
			WithArgs(userID).
			WillReturnRows(userRow(userID, "testuser", "test@example.com"))

		user, err := repo.GetUserByID(context.Background(), userID)

		require.NoError(t, err)
		assert.Equal(t, userID, user.ID)
		assert.Equal(t, "test@example.com", user.Email)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		repo, mockPool := newRepoWithMock(t)
		userID := uuid.New()

		mockPool.ExpectQuery("SELECT (.+) FROM users WHERE id").
			WithArgs(userID).
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetUserByID(context.Background(), userID)

		assert.ErrorIs(t, err, types.ErrNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPostgresAuthRepoGetUserByUsernameOrEmail(t *testing.T) {
	repo, mockPool := newRepoWithMock(t)
	userID := uuid.New()

	mockPool.ExpectQuery("SELECT (.+) FROM users WHERE username = \\$1 OR email = \\$2").
		WithArgs("testuser", "test@example.com").
		WillReturnRows(userRow(userID, "testuser", "test@example.com"))

	user, err := repo.GetUserByUsernameOrEmail(context.Background(), "testuser", "test@example.com")

	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPostgresAuthRepoUpdateRefreshToken(t *testing.T) {
	t.Run("SetToken", func(t *testing.T) {
		repo, mockPool := newRepoWithMock(t)
		userID := uuid.New()
		token := "new-refresh-token"

		mockPool.ExpectExec("UPDATE users SET refresh_token").
			WithArgs(&token, userID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.UpdateRefreshToken(context.Background(), userID, &token)

		assert.NoError(t, err)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("ClearToken", func(t *testing.T) {
		repo, mockPool := newRepoWithMock(t)
		userID := uuid.New()

		mockPool.ExpectExec("UPDATE users SET refresh_token").
			WithArgs((*string)(nil), userID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.UpdateRefreshToken(context.Background(), userID, nil)

		assert.NoError(t, err)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("UserMissing", func(t *testing.T) {
		repo, mockPool := newRepoWithMock(t)
		userID := uuid.New()

		mockPool.ExpectExec("UPDATE users SET refresh_token").
			WithArgs((*string)(nil), userID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.UpdateRefreshToken(context.Background(), userID, nil)

		assert.ErrorIs(t, err, types.ErrNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPostgresAuthRepoUpdatePassword(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		repo, mockPool := newRepoWithMock(t)
		userID := uuid.New()

		mockPool.ExpectExec("UPDATE users SET password_hash").
			WithArgs("new-hash", userID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.UpdatePassword(context.Background(), userID, "new-hash")

		assert.NoError(t, err)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("UserMissing", func(t *testing.T) {
		repo, mockPool := newRepoWithMock(t)
		userID := uuid.New()

		mockPool.ExpectExec("UPDATE users SET password_hash").
			WithArgs("new-hash", userID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.UpdatePassword(context.Background(), userID, "new-hash")

		assert.ErrorIs(t, err, types.ErrNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}
