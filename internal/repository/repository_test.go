package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/ttn-extractor/constants"
	"github.com/joseph-ayodele/ttn-extractor/internal/common"
	"github.com/joseph-ayodele/ttn-extractor/internal/entity"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()
	db, err := OpenSQLite(ctx, ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { Close(db, nil) })
	require.NoError(t, Migrate(ctx, db))
	return db
}

func sampleRecord(docID string, status constants.ValidationStatus, manual bool) *entity.ExtractionRecord {
	return &entity.ExtractionRecord{
		DocumentID:   docID,
		DocumentType: constants.DocumentTTN,
		Fields: map[string]entity.ExtractedField{
			constants.FieldINN: {Name: constants.FieldINN, Raw: "7707083893", Value: "7707083893", Confidence: 95},
		},
		OverallConfidence:    95,
		RawText:              "ИНН 7707083893",
		ValidationStatus:     status,
		ValidationErrors:     []string{"sender: is required"},
		ManualReviewRequired: manual,
		EngineUsed:           "tesseract",
	}
}

func TestRecords_SaveGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	repo := NewRecordRepository(db, nil)

	rec := sampleRecord("doc-1", constants.ValidationPartial, true)
	rec.Recognition = &entity.RecognitionResult{
		DocumentID: "doc-1", Engine: "tesseract", Profile: "main", Text: "ИНН 7707083893", Confidence: 81.5, FieldCount: 1,
	}
	require.NoError(t, repo.Save(ctx, rec))
	require.NotEqual(t, uuid.Nil, rec.ID)
	assert.Equal(t, 1, rec.Revision)

	got, err := repo.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.DocumentID, got.DocumentID)
	assert.Equal(t, constants.DocumentTTN, got.DocumentType)
	assert.Equal(t, rec.Fields, got.Fields)
	assert.Equal(t, []string{"sender: is required"}, got.ValidationErrors)
	assert.True(t, got.ManualReviewRequired)
	assert.Equal(t, constants.ValidationPartial, got.ValidationStatus)
	require.NotNil(t, got.Recognition)
	assert.Equal(t, "main", got.Recognition.Profile)
	assert.InDelta(t, 81.5, got.Recognition.Confidence, 0.001)
	assert.WithinDuration(t, rec.CreatedAt, got.CreatedAt, time.Second)
}

func TestRecords_GetMissing(t *testing.T) {
	repo := NewRecordRepository(openTestDB(t), nil)
	_, err := repo.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = repo.GetLatestByDocument(context.Background(), "nope")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestRecords_ListAndLatest(t *testing.T) {
	ctx := context.Background()
	repo := NewRecordRepository(openTestDB(t), nil)

	base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	first := sampleRecord("doc-1", constants.ValidationPartial, true)
	first.CreatedAt = base
	second := sampleRecord("doc-1", constants.ValidationValid, false)
	second.CreatedAt = base.Add(time.Minute)
	other := sampleRecord("doc-2", constants.ValidationInvalid, true)
	other.CreatedAt = base.Add(2 * time.Minute)
	for _, r := range []*entity.ExtractionRecord{first, second, other} {
		require.NoError(t, repo.Save(ctx, r))
	}

	latest, err := repo.GetLatestByDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)

	all, err := repo.List(ctx, RecordFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	manual := true
	flagged, err := repo.List(ctx, RecordFilter{ManualReview: &manual})
	require.NoError(t, err)
	assert.Len(t, flagged, 2)

	valid, err := repo.List(ctx, RecordFilter{Status: constants.ValidationValid})
	require.NoError(t, err)
	require.Len(t, valid, 1)
	assert.Equal(t, second.ID, valid[0].ID)

	limited, err := repo.List(ctx, RecordFilter{DocumentID: "doc-1", Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, first.ID, limited[0].ID)
}

func TestRecords_UpdateValidation(t *testing.T) {
	ctx := context.Background()
	repo := NewRecordRepository(openTestDB(t), nil)

	rec := sampleRecord("doc-1", constants.ValidationPartial, true)
	require.NoError(t, repo.Save(ctx, rec))

	rec.Fields[constants.FieldSender] = entity.ExtractedField{
		Name: constants.FieldSender, Value: "ООО Альфа", Confidence: 100, PatternIndex: entity.PatternIndexManual,
	}
	rec.ValidationStatus = constants.ValidationValid
	rec.ValidationErrors = nil
	rec.ManualReviewRequired = false
	rec.Revision = 2
	require.NoError(t, repo.UpdateValidation(ctx, rec))

	got, err := repo.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Revision)
	assert.Equal(t, constants.ValidationValid, got.ValidationStatus)
	assert.Empty(t, got.ValidationErrors)
	assert.Equal(t, entity.PatternIndexManual, got.Fields[constants.FieldSender].PatternIndex)

	missing := sampleRecord("x", constants.ValidationValid, false)
	missing.ID = uuid.New()
	assert.ErrorIs(t, repo.UpdateValidation(ctx, missing), common.ErrNotFound)
}

func TestRecognition_ListByDocument(t *testing.T) {
	ctx := context.Background()
	repo := NewRecognitionRepository(openTestDB(t), nil)

	base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Insert(ctx, &entity.RecognitionResult{DocumentID: "d", Engine: "ocrspace", Profile: "rus", Text: "a", RecognizedAt: base}))
	require.NoError(t, repo.Insert(ctx, &entity.RecognitionResult{DocumentID: "d", Engine: "tesseract", Profile: "main", Text: "b", RecognizedAt: base.Add(time.Second)}))
	require.NoError(t, repo.Insert(ctx, &entity.RecognitionResult{DocumentID: "other", Engine: "tesseract", Profile: "main", Text: "c"}))

	got, err := repo.ListByDocument(ctx, "d")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "ocrspace", got[0].Engine)
	assert.Equal(t, "tesseract", got[1].Engine)
}

func TestBatchRuns_StartFinish(t *testing.T) {
	ctx := context.Background()
	repo := NewBatchRunRepository(openTestDB(t), nil)

	run, err := repo.Start(ctx, "/inbox", 3)
	require.NoError(t, err)
	assert.Equal(t, constants.BatchStatusRunning, run.Status)

	got, err := repo.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Nil(t, got.FinishedAt)

	require.NoError(t, repo.Finish(ctx, run.ID, 2, 1, constants.BatchStatusPartial))
	got, err = repo.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.BatchStatusPartial, got.Status)
	assert.Equal(t, 2, got.Succeeded)
	assert.Equal(t, 1, got.Failed)
	assert.NotNil(t, got.FinishedAt)

	assert.ErrorIs(t, repo.Finish(ctx, uuid.New(), 0, 0, constants.BatchStatusDone), common.ErrNotFound)
	_, err = repo.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestHealthCheck_SQLite(t *testing.T) {
	db := openTestDB(t)
	assert.NoError(t, HealthCheck(context.Background(), db, time.Second, nil))
	assert.Equal(t, "sqlite3", db.Dialect())
}
