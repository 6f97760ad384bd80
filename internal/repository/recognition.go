package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/ttn-extractor/internal/common"
	"github.com/joseph-ayodele/ttn-extractor/internal/entity"
)

type RecognitionRepository interface {
	Insert(ctx context.Context, res *entity.RecognitionResult) error
	Get(ctx context.Context, id uuid.UUID) (*entity.RecognitionResult, error)
	ListByDocument(ctx context.Context, documentID string) ([]*entity.RecognitionResult, error)
}

type recognitionRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewRecognitionRepository(db *DB, logger *slog.Logger) RecognitionRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &recognitionRepository{db: db, logger: logger}
}

var recognitionColumns = []string{
	"id", "document_id", "engine", "profile", "text", "confidence", "field_count", "recognized_at",
}

func (r *recognitionRepository) Insert(ctx context.Context, res *entity.RecognitionResult) error {
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}
	if res.RecognizedAt.IsZero() {
		res.RecognizedAt = time.Now().UTC()
	}
	query, args := entsql.Dialect(r.db.Dialect()).
		Insert(RecognitionResultsTable.Name).
		Columns(recognitionColumns...).
		Values(res.ID, res.DocumentID, res.Engine, res.Profile, res.Text, res.Confidence, res.FieldCount, res.RecognizedAt.UTC()).
		Query()
	if err := r.db.Driver.Exec(ctx, query, args, nil); err != nil {
		r.logger.Error("failed to insert recognition result", "document_id", res.DocumentID, "engine", res.Engine, "error", err)
		return common.NewAppError(common.CodeDatabase, "insert recognition result", fmt.Errorf("%w: %w", common.ErrDatabase, err))
	}
	return nil
}

func (r *recognitionRepository) Get(ctx context.Context, id uuid.UUID) (*entity.RecognitionResult, error) {
	out, err := r.query(ctx, r.selector().Where(entsql.EQ("id", id)))
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, common.NewAppError(common.CodeNotFound, "recognition result "+id.String(), common.ErrNotFound)
	}
	return out[0], nil
}

func (r *recognitionRepository) ListByDocument(ctx context.Context, documentID string) ([]*entity.RecognitionResult, error) {
	return r.query(ctx, r.selector().
		Where(entsql.EQ("document_id", documentID)).
		OrderBy(entsql.Asc("recognized_at")))
}

func (r *recognitionRepository) selector() *entsql.Selector {
	d := entsql.Dialect(r.db.Dialect())
	return d.Select(recognitionColumns...).From(d.Table(RecognitionResultsTable.Name))
}

func (r *recognitionRepository) query(ctx context.Context, sel *entsql.Selector) ([]*entity.RecognitionResult, error) {
	query, args := sel.Query()
	rows := &entsql.Rows{}
	if err := r.db.Driver.Query(ctx, query, args, rows); err != nil {
		return nil, common.NewAppError(common.CodeDatabase, "query recognition results", fmt.Errorf("%w: %w", common.ErrDatabase, err))
	}
	defer func() { _ = rows.Close() }()

	var out []*entity.RecognitionResult
	for rows.Next() {
		var res entity.RecognitionResult
		if err := rows.Scan(&res.ID, &res.DocumentID, &res.Engine, &res.Profile, &res.Text,
			&res.Confidence, &res.FieldCount, &res.RecognizedAt); err != nil {
			return nil, common.NewAppError(common.CodeDatabase, "scan recognition result", fmt.Errorf("%w: %w", common.ErrDatabase, err))
		}
		out = append(out, &res)
	}
	return out, rows.Err()
}
