// Package series_repo stores numbering series in PostgreSQL.
package series_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"kitanda/internal/core/apperror"
	"kitanda/internal/core/id"
	"kitanda/internal/domain/series"
	"kitanda/internal/infrastructure/storage/postgres"
)

const tableName = "series"

// Repo implements series.Repository.
type Repo struct {
	txManager  *postgres.TxManager
	selectCols []string
}

var _ series.Repository = (*Repo)(nil)

// New creates a series repository.
func New(txManager *postgres.TxManager) *Repo {
	return &Repo{
		txManager:  txManager,
		selectCols: postgres.ExtractDBColumns[series.Series](),
	}
}

func (r *Repo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Create implements series.Repository.
func (r *Repo) Create(ctx context.Context, s *series.Series) error {
	data := postgres.StructToMap(s)
	if s.AllowedUserIDs == nil {
		data["allowed_user_ids"] = []string{}
	}

	sql, args, err := r.builder().Insert(tableName).SetMap(data).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		if postgres.IsUniqueViolation(err) {
			return apperror.NewDuplicate("series", "code", s.Code).WithDetail("year", s.Year)
		}
		return fmt.Errorf("insert series: %w", err)
	}
	return nil
}

func (r *Repo) getOne(ctx context.Context, where squirrel.Sqlizer, key any) (*series.Series, error) {
	sql, args, err := r.builder().Select(r.selectCols...).From(tableName).Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	var s series.Series
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &s, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("series", key)
		}
		return nil, fmt.Errorf("get series: %w", err)
	}
	return &s, nil
}

// GetByID implements series.Repository.
func (r *Repo) GetByID(ctx context.Context, seriesID id.ID) (*series.Series, error) {
	return r.getOne(ctx, squirrel.Eq{"id": seriesID}, seriesID)
}

// GetByCode implements series.Repository.
func (r *Repo) GetByCode(ctx context.Context, code string, year int) (*series.Series, error) {
	return r.getOne(ctx, squirrel.Eq{"code": code, "year": year}, code)
}

// List implements series.Repository.
func (r *Repo) List(ctx context.Context, filter series.ListFilter) ([]*series.Series, error) {
	q := r.builder().Select(r.selectCols...).From(tableName).OrderBy("year", "code")
	if filter.Year != 0 {
		q = q.Where(squirrel.Eq{"year": filter.Year})
	}
	if filter.ActiveOnly {
		q = q.Where(squirrel.Eq{"is_active": true})
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	out := make([]*series.Series, 0)
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	return out, nil
}

// Update implements series.Repository. Code and year are immutable.
func (r *Repo) Update(ctx context.Context, s *series.Series) error {
	s.UpdatedAt = time.Now().UTC()
	data := postgres.StructToMap(s, "id", "code", "year", "created_at")
	if s.AllowedUserIDs == nil {
		data["allowed_user_ids"] = []string{}
	}

	sql, args, err := r.builder().Update(tableName).SetMap(data).Where(squirrel.Eq{"id": s.ID}).ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	result, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update series: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("series", s.ID)
	}
	return nil
}
