package org

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nmateus/go-user-accounts/internal/types"
)

// PGXQuerier is the subset of pgxpool.Pool the repository needs.
type PGXQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ OrgRepo = (*PostgresOrgRepo)(nil)

// OrgRepo exposes the read-only organizational lookup tables users reference
// from their profile attributes.
type OrgRepo interface {
	ListCompanies(ctx context.Context) ([]types.LookupItem, error)
	ListZones(ctx context.Context) ([]types.LookupItem, error)
	ListBranches(ctx context.Context) ([]types.LookupItem, error)
	ListDivisions(ctx context.Context) ([]types.LookupItem, error)
	ListLinesOfBusiness(ctx context.Context) ([]types.LookupItem, error)
}

type PostgresOrgRepo struct {
	logger *slog.Logger
	db     PGXQuerier
}

func NewPostgresOrgRepo(db PGXQuerier, logger *slog.Logger) *PostgresOrgRepo {
	return &PostgresOrgRepo{
		logger: logger,
		db:     db,
	}
}

// listTable is shared by the five lookup queries; table names are fixed
// constants, never caller input.
func (r *PostgresOrgRepo) listTable(ctx context.Context, table string) ([]types.LookupItem, error) {
	ctx, span := otel.Tracer("OrgRepo").Start(ctx, "listTable", trace.WithAttributes(
		attribute.String("db.table", table),
	))
	defer span.End()

	rows, err := r.db.Query(ctx, fmt.Sprintf(`SELECT id, name FROM %s ORDER BY name`, table))
	if err != nil {
		span.SetStatus(codes.Error, "query failed")
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	var items []types.LookupItem
	for rows.Next() {
		var item types.LookupItem
		if err := rows.Scan(&item.ID, &item.Name); err != nil {
			return nil, fmt.Errorf("list %s: scan: %w", table, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: rows: %w", table, err)
	}
	return items, nil
}

func (r *PostgresOrgRepo) ListCompanies(ctx context.Context) ([]types.LookupItem, error) {
	return r.listTable(ctx, "companies")
}

func (r *PostgresOrgRepo) ListZones(ctx context.Context) ([]types.LookupItem, error) {
	return r.listTable(ctx, "zones")
}

func (r *PostgresOrgRepo) ListBranches(ctx context.Context) ([]types.LookupItem, error) {
	return r.listTable(ctx, "branches")
}

func (r *PostgresOrgRepo) ListDivisions(ctx context.Context) ([]types.LookupItem, error) {
	return r.listTable(ctx, "divisions")
}

func (r *PostgresOrgRepo) ListLinesOfBusiness(ctx context.Context) ([]types.LookupItem, error) {
	return r.listTable(ctx, "lines_of_business")
}
