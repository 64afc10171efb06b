// Package document_repo stores fiscal documents and their items in PostgreSQL.
package document_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"kitanda/internal/core/apperror"
	"kitanda/internal/core/id"
	"kitanda/internal/domain/documents"
	"kitanda/internal/domain/totals"
	"kitanda/internal/infrastructure/storage/postgres"
)

const (
	documentsTable = "documents"
	itemsTable     = "document_items"
)

// Repo implements documents.Repository. Header and items are written in one
// transaction; nested calls join the caller's transaction.
type Repo struct {
	txManager  *postgres.TxManager
	docCols    []string
	itemCols   []string
	updateSkip []string
}

var _ documents.Repository = (*Repo)(nil)

// New creates a document repository.
func New(txManager *postgres.TxManager) *Repo {
	return &Repo{
		txManager:  txManager,
		docCols:    postgres.ExtractDBColumns[documentRow](),
		itemCols:   postgres.ExtractDBColumns[itemRow](),
		updateSkip: []string{"id", "doc_type", "series_id", "created_by", "created_at", "version", "updated_at"},
	}
}

func (r *Repo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *Repo) exec(ctx context.Context, q squirrel.Sqlizer, what string) (int64, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build %s: %w", what, err)
	}
	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Create implements documents.Repository.
func (r *Repo) Create(ctx context.Context, doc *documents.Document) error {
	return r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		row := toRow(doc)
		row.Version = 1
		if _, err := r.exec(ctx, r.builder().Insert(documentsTable).SetMap(postgres.StructToMap(row)), "insert"); err != nil {
			return r.translate(err, doc)
		}
		if err := r.insertItems(ctx, doc); err != nil {
			return err
		}
		doc.Version = 1
		return nil
	})
}

// Update implements documents.Repository.
func (r *Repo) Update(ctx context.Context, doc *documents.Document) error {
	return r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		q := r.builder().
			Update(documentsTable).
			SetMap(postgres.StructToMap(toRow(doc), r.updateSkip...)).
			Set("version", squirrel.Expr("version + 1")).
			Set("updated_at", time.Now().UTC()).
			Where(squirrel.Eq{"id": doc.ID, "version": doc.Version})

		affected, err := r.exec(ctx, q, "update")
		if err != nil {
			return r.translate(err, doc)
		}
		if affected == 0 {
			return apperror.NewConcurrentModification("document", doc.ID)
		}

		if _, err := r.exec(ctx, r.builder().Delete(itemsTable).Where(squirrel.Eq{"document_id": doc.ID}), "delete items"); err != nil {
			return fmt.Errorf("delete items: %w", err)
		}
		if err := r.insertItems(ctx, doc); err != nil {
			return err
		}
		doc.Version++
		return nil
	})
}

func (r *Repo) insertItems(ctx context.Context, doc *documents.Document) error {
	if len(doc.Items) == 0 {
		return nil
	}
	q := r.builder().Insert(itemsTable).Columns(r.itemCols...)
	for _, it := range toItemRows(doc) {
		m := postgres.StructToMap(it)
		values := make([]any, len(r.itemCols))
		for i, col := range r.itemCols {
			values[i] = m[col]
		}
		q = q.Values(values...)
	}
	if _, err := r.exec(ctx, q, "insert items"); err != nil {
		return fmt.Errorf("insert items: %w", err)
	}
	return nil
}

// translate maps constraint violations onto domain errors.
func (r *Repo) translate(err error, doc *documents.Document) error {
	if !postgres.IsUniqueViolation(err) {
		return fmt.Errorf("write document: %w", err)
	}
	if postgres.ConstraintName(err) == "documents_pkey" {
		return apperror.NewDuplicate("document", "id", doc.ID.String())
	}
	return apperror.NewDuplicate("document", "number", doc.Number).WithCause(err)
}

// GetByID implements documents.Repository.
func (r *Repo) GetByID(ctx context.Context, docID id.ID) (*documents.Document, error) {
	sql, args, err := r.builder().Select(r.docCols...).From(documentsTable).Where(squirrel.Eq{"id": docID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	var row documentRow
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("document", docID)
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	items, err := r.loadItems(ctx, []id.ID{docID})
	if err != nil {
		return nil, err
	}
	return row.toDocument(items[docID]), nil
}

// List implements documents.Repository.
func (r *Repo) List(ctx context.Context, filter documents.ListFilter) ([]*documents.Document, error) {
	q := r.builder().Select(r.docCols...).From(documentsTable).OrderBy("doc_date", "number")
	if !filter.From.IsZero() {
		q = q.Where(squirrel.GtOrEq{"doc_date": filter.From})
	}
	if !filter.To.IsZero() {
		q = q.Where(squirrel.Lt{"doc_date": filter.To})
	}
	if !id.IsNil(filter.SeriesID) {
		q = q.Where(squirrel.Eq{"series_id": filter.SeriesID})
	}
	switch filter.Kind {
	case totals.KindPurchase:
		q = q.Where(squirrel.Eq{"doc_type": string(documents.TypePurchaseInvoice)})
	case totals.KindSales:
		q = q.Where(squirrel.NotEq{"doc_type": string(documents.TypePurchaseInvoice)})
	}
	if len(filter.Types) > 0 {
		q = q.Where(squirrel.Eq{"doc_type": toStrings(filter.Types)})
	}
	if len(filter.Statuses) > 0 {
		q = q.Where(squirrel.Eq{"status": toStrings(filter.Statuses)})
	}
	if filter.DueBefore != nil {
		q = q.Where(squirrel.Lt{"due_date": *filter.DueBefore})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	var rows []documentRow
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	ids := make([]id.ID, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]*documents.Document, len(rows))
	for i, row := range rows {
		out[i] = row.toDocument(items[row.ID])
	}
	return out, nil
}

func (r *Repo) loadItems(ctx context.Context, docIDs []id.ID) (map[id.ID][]itemRow, error) {
	byDoc := make(map[id.ID][]itemRow, len(docIDs))
	if len(docIDs) == 0 {
		return byDoc, nil
	}
	sql, args, err := r.builder().
		Select(r.itemCols...).
		From(itemsTable).
		Where(squirrel.Eq{"document_id": idStrings(docIDs)}).
		OrderBy("document_id", "line_no").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select items: %w", err)
	}
	var rows []itemRow
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	for _, it := range rows {
		byDoc[it.DocumentID] = append(byDoc[it.DocumentID], it)
	}
	return byDoc, nil
}

// LastHash implements documents.Repository. Issue calls it after the
// counter row is locked, so the chain head cannot move underneath it.
func (r *Repo) LastHash(ctx context.Context, seriesID id.ID, docType documents.DocType) (string, error) {
	sql, args, err := r.builder().
		Select("hash").
		From(documentsTable).
		Where(squirrel.Eq{"series_id": seriesID, "doc_type": string(docType), "is_certified": true}).
		OrderBy("certified_at DESC", "sequence DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build select: %w", err)
	}
	var hash string
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &hash, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return "", nil
		}
		return "", fmt.Errorf("last hash: %w", err)
	}
	return hash, nil
}

func toStrings[T ~string](in []T) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}

// idStrings keeps squirrel from expanding each uuid array into 16 placeholders.
func idStrings(ids []id.ID) []string {
	out := make([]string, len(ids))
	for i, v := range ids {
		out[i] = v.String()
	}
	return out
}
