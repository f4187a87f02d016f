package org

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmateus/go-user-accounts/internal/types"
)

func newRepoWithMock(t *testing.T) (*PostgresOrgRepo, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	return NewPostgresOrgRepo(mockPool, slog.Default()), mockPool
}

func TestPostgresOrgRepoListTables(t *testing.T) {
	repo, mockPool := newRepoWithMock(t)

	tables := []struct {
		name  string
		table string
		list  func(context.Context) ([]types.LookupItem, error)
	}{
		{"Companies", "companies", repo.ListCompanies},
		{"Zones", "zones", repo.ListZones},
		{"Branches", "branches", repo.ListBranches},
		{"Divisions", "divisions", repo.ListDivisions},
		{"LinesOfBusiness", "lines_of_business", repo.ListLinesOfBusiness},
	}

	for _, tt := range tables {
		t.Run(tt.name, func(t *testing.T) {
			rows := pgxmock.NewRows([]string{"id", "name"}).
				AddRow(uuid.New(), "First").
				AddRow(uuid.New(), "Second")

			mockPool.ExpectQuery("SELECT id, name FROM " + tt.table + " ORDER BY name").
				WillReturnRows(rows)

			items, err := tt.list(context.Background())

			require.NoError(t, err)
			require.Len(t, items, 2)
			assert.Equal(t, "First", items[0].Name)
			assert.NoError(t, mockPool.ExpectationsWereMet())
		})
	}
}

func TestPostgresOrgRepoQueryError(t *testing.T) {
	repo, mockPool := newRepoWithMock(t)

	mockPool.ExpectQuery("SELECT id, name FROM companies ORDER BY name").
		WillReturnError(errors.New("connection reset"))

	_, err := repo.ListCompanies(context.Background())

	assert.Error(t, err)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
