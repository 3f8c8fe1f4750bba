package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"webforum/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_CreateAndLookupCaseInsensitive(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	u := &models.User{Username: "Alice", Email: "Alice@X.com", PasswordHash: "h"}
	require.NoError(t, repo.Create(ctx, u))
	assert.NotEqual(t, uuid.Nil, u.ID)

	byEmail, err := repo.GetByEmail(ctx, "alice@x.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, u.ID, byEmail.ID)
	assert.Equal(t, "Alice", byEmail.Username)

	byName, err := repo.GetByUsername(ctx, "ALICE")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, u.ID, byName.ID)

	missing, err := repo.GetByEmail(ctx, "nobody@x.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestUserRepository_CreateDuplicateIsConflict(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.User{Username: "alice", Email: "alice@x.com", PasswordHash: "h"}))

	err := repo.Create(ctx, &models.User{Username: "other", Email: "ALICE@x.com", PasswordHash: "h"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrConflict))

	err = repo.Create(ctx, &models.User{Username: "ALICE", Email: "fresh@x.com", PasswordHash: "h"})
	assert.True(t, errors.Is(err, models.ErrConflict))
}

func TestUserRepository_GetByIDNotFound(t *testing.T) {
	repo := NewUserRepository(setupTestDB(t))

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestUserRepository_SetModerator(t *testing.T) {
	repo := NewUserRepository(setupTestDB(t))
	ctx := context.Background()
	u := createUser(t, repo, "mod")

	require.NoError(t, repo.SetModerator(ctx, "MOD@example.com", true))
	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.IsModerator)

	err = repo.SetModerator(ctx, "ghost@example.com", true)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestUserRepository_PostgresErrors(t *testing.T) {
	t.Run("unique violation maps to conflict", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewUserRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "users"`)).
			WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})
		mock.ExpectRollback()

		err := repo.Create(context.Background(), &models.User{Username: "a", Email: "a@x.com", PasswordHash: "h"})
		assert.True(t, errors.Is(err, models.ErrConflict))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("driver failure maps to internal", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewUserRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users"`)).
			WillReturnError(errors.New("connection reset by peer"))

		_, err := repo.GetByID(context.Background(), uuid.New())
		assert.True(t, errors.Is(err, models.ErrInternal))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty result maps to not found", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewUserRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users"`)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "username"}))

		_, err := repo.GetByID(context.Background(), uuid.New())
		assert.True(t, errors.Is(err, models.ErrNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
