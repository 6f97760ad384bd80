package repository

import (
	"context"
	stdsql "database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/ttn-extractor/constants"
	"github.com/joseph-ayodele/ttn-extractor/internal/common"
	"github.com/joseph-ayodele/ttn-extractor/internal/entity"
)

// RecordFilter narrows List results. Zero values mean "any".
type RecordFilter struct {
	DocumentID   string
	Status       constants.ValidationStatus
	ManualReview *bool
	Limit        int
}

type RecordRepository interface {
	Save(ctx context.Context, rec *entity.ExtractionRecord) error
	Get(ctx context.Context, id uuid.UUID) (*entity.ExtractionRecord, error)
	GetLatestByDocument(ctx context.Context, documentID string) (*entity.ExtractionRecord, error)
	List(ctx context.Context, filter RecordFilter) ([]*entity.ExtractionRecord, error)
	UpdateValidation(ctx context.Context, rec *entity.ExtractionRecord) error
}

type recordRepository struct {
	db          *DB
	recognition RecognitionRepository
	logger      *slog.Logger
}

func NewRecordRepository(db *DB, logger *slog.Logger) RecordRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &recordRepository{
		db:          db,
		recognition: NewRecognitionRepository(db, logger),
		logger:      logger,
	}
}

var recordColumns = []string{
	"id", "document_id", "document_type", "fields", "overall_confidence", "raw_text",
	"validation_status", "validation_errors", "manual_review_required", "engine_used",
	"recognition_id", "revision", "created_at", "validated_at",
}

func (r *recordRepository) Save(ctx context.Context, rec *entity.ExtractionRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.Revision == 0 {
		rec.Revision = 1
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.ValidatedAt.IsZero() {
		rec.ValidatedAt = now
	}
	fieldsJSON, errorsJSON, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	var recognitionID any
	if rec.Recognition != nil {
		if err := r.recognition.Insert(ctx, rec.Recognition); err != nil {
			return err
		}
		recognitionID = rec.Recognition.ID
	}

	query, args := entsql.Dialect(r.db.Dialect()).
		Insert(ExtractionRecordsTable.Name).
		Columns(recordColumns...).
		Values(
			rec.ID, rec.DocumentID, string(rec.DocumentType), fieldsJSON, rec.OverallConfidence, rec.RawText,
			string(rec.ValidationStatus), errorsJSON, rec.ManualReviewRequired, rec.EngineUsed,
			recognitionID, rec.Revision, rec.CreatedAt.UTC(), rec.ValidatedAt.UTC(),
		).
		Query()
	if err := r.db.Driver.Exec(ctx, query, args, nil); err != nil {
		r.logger.Error("failed to save extraction record", "document_id", rec.DocumentID, "error", err)
		return common.NewAppError(common.CodeDatabase, "save extraction record", fmt.Errorf("%w: %w", common.ErrDatabase, err))
	}
	r.logger.Debug("extraction record saved", "id", rec.ID, "document_id", rec.DocumentID, "status", rec.ValidationStatus)
	return nil
}

func (r *recordRepository) Get(ctx context.Context, id uuid.UUID) (*entity.ExtractionRecord, error) {
	sel := r.selector().Where(entsql.EQ("id", id))
	return r.one(ctx, sel, "id", id.String())
}

func (r *recordRepository) GetLatestByDocument(ctx context.Context, documentID string) (*entity.ExtractionRecord, error) {
	sel := r.selector().
		Where(entsql.EQ("document_id", documentID)).
		OrderBy(entsql.Desc("created_at")).
		Limit(1)
	return r.one(ctx, sel, "document_id", documentID)
}

func (r *recordRepository) List(ctx context.Context, filter RecordFilter) ([]*entity.ExtractionRecord, error) {
	sel := r.selector()
	var preds []*entsql.Predicate
	if filter.DocumentID != "" {
		preds = append(preds, entsql.EQ("document_id", filter.DocumentID))
	}
	if filter.Status != "" {
		preds = append(preds, entsql.EQ("validation_status", string(filter.Status)))
	}
	if filter.ManualReview != nil {
		preds = append(preds, entsql.EQ("manual_review_required", *filter.ManualReview))
	}
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	sel.OrderBy(entsql.Asc("created_at"), entsql.Asc("id"))
	if filter.Limit > 0 {
		sel.Limit(filter.Limit)
	}
	recs, err := r.query(ctx, sel)
	if err != nil {
		return nil, err
	}
	return recs, nil
}

// UpdateValidation stores a re-validated record: fields, confidence, status and revision.
func (r *recordRepository) UpdateValidation(ctx context.Context, rec *entity.ExtractionRecord) error {
	fieldsJSON, errorsJSON, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	query, args := entsql.Dialect(r.db.Dialect()).
		Update(ExtractionRecordsTable.Name).
		Set("fields", fieldsJSON).
		Set("overall_confidence", rec.OverallConfidence).
		Set("validation_status", string(rec.ValidationStatus)).
		Set("validation_errors", errorsJSON).
		Set("manual_review_required", rec.ManualReviewRequired).
		Set("revision", rec.Revision).
		Set("validated_at", rec.ValidatedAt.UTC()).
		Where(entsql.EQ("id", rec.ID)).
		Query()

	var res stdsql.Result
	if err := r.db.Driver.Exec(ctx, query, args, &res); err != nil {
		r.logger.Error("failed to update extraction record", "id", rec.ID, "error", err)
		return common.NewAppError(common.CodeDatabase, "update extraction record", fmt.Errorf("%w: %w", common.ErrDatabase, err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.NewAppError(common.CodeNotFound, "extraction record "+rec.ID.String(), common.ErrNotFound)
	}
	return nil
}

func (r *recordRepository) selector() *entsql.Selector {
	d := entsql.Dialect(r.db.Dialect())
	return d.Select(recordColumns...).From(d.Table(ExtractionRecordsTable.Name))
}

func (r *recordRepository) one(ctx context.Context, sel *entsql.Selector, key, value string) (*entity.ExtractionRecord, error) {
	recs, err := r.query(ctx, sel)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, common.NewAppError(common.CodeNotFound, fmt.Sprintf("extraction record %s=%s", key, value), common.ErrNotFound)
	}
	return recs[0], nil
}

// query reads every row before touching the recognition table; SQLite runs on one connection.
func (r *recordRepository) query(ctx context.Context, sel *entsql.Selector) ([]*entity.ExtractionRecord, error) {
	query, args := sel.Query()
	rows := &entsql.Rows{}
	if err := r.db.Driver.Query(ctx, query, args, rows); err != nil {
		return nil, common.NewAppError(common.CodeDatabase, "query extraction records", fmt.Errorf("%w: %w", common.ErrDatabase, err))
	}

	var (
		out            []*entity.ExtractionRecord
		recognitionIDs []stdsql.NullString
	)
	for rows.Next() {
		rec, recognitionID, err := scanRecord(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		out = append(out, rec)
		recognitionIDs = append(recognitionIDs, recognitionID)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, common.NewAppError(common.CodeDatabase, "read extraction records", fmt.Errorf("%w: %w", common.ErrDatabase, err))
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	for i, id := range recognitionIDs {
		if !id.Valid || id.String == "" {
			continue
		}
		rid, err := uuid.Parse(id.String)
		if err != nil {
			continue
		}
		recog, err := r.recognition.Get(ctx, rid)
		if err != nil {
			r.logger.Warn("recognition result missing", "record_id", out[i].ID, "recognition_id", rid, "error", err)
			continue
		}
		out[i].Recognition = recog
	}
	return out, nil
}

func scanRecord(rows *entsql.Rows) (*entity.ExtractionRecord, stdsql.NullString, error) {
	var (
		rec                    entity.ExtractionRecord
		docType, status        string
		fieldsJSON, errorsJSON []byte
		recognitionID          stdsql.NullString
	)
	err := rows.Scan(
		&rec.ID, &rec.DocumentID, &docType, &fieldsJSON, &rec.OverallConfidence, &rec.RawText,
		&status, &errorsJSON, &rec.ManualReviewRequired, &rec.EngineUsed,
		&recognitionID, &rec.Revision, &rec.CreatedAt, &rec.ValidatedAt,
	)
	if err != nil {
		return nil, recognitionID, common.NewAppError(common.CodeDatabase, "scan extraction record", fmt.Errorf("%w: %w", common.ErrDatabase, err))
	}
	rec.DocumentType = constants.DocumentType(docType)
	rec.ValidationStatus = constants.ValidationStatus(status)
	if err := json.Unmarshal(fieldsJSON, &rec.Fields); err != nil {
		return nil, recognitionID, fmt.Errorf("decode fields: %w", err)
	}
	if err := json.Unmarshal(errorsJSON, &rec.ValidationErrors); err != nil {
		return nil, recognitionID, fmt.Errorf("decode validation errors: %w", err)
	}
	if rec.Fields == nil {
		rec.Fields = map[string]entity.ExtractedField{}
	}
	return &rec, recognitionID, nil
}

func encodeRecord(rec *entity.ExtractionRecord) (string, string, error) {
	fields := rec.Fields
	if fields == nil {
		fields = map[string]entity.ExtractedField{}
	}
	fb, err := json.Marshal(fields)
	if err != nil {
		return "", "", fmt.Errorf("encode fields: %w", err)
	}
	errs := rec.ValidationErrors
	if errs == nil {
		errs = []string{}
	}
	eb, err := json.Marshal(errs)
	if err != nil {
		return "", "", fmt.Errorf("encode validation errors: %w", err)
	}
	return string(fb), string(eb), nil
}
