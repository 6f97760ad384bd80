package export

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/ttn-extractor/constants"
	"github.com/joseph-ayodele/ttn-extractor/internal/entity"
	"github.com/joseph-ayodele/ttn-extractor/internal/repository"
)

func readRows(t *testing.T, data []byte) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	return rows
}

func column(t *testing.T, name string) int {
	t.Helper()
	for i, h := range Headers() {
		if h == name {
			return i
		}
	}
	t.Fatalf("no column %q", name)
	return -1
}

func sampleRecord(docID string) *entity.ExtractionRecord {
	return &entity.ExtractionRecord{
		DocumentID: docID,
		Fields: map[string]entity.ExtractedField{
			constants.FieldDocumentNumber: {Name: constants.FieldDocumentNumber, Value: "ТТН-2024-001234", Confidence: 100},
			constants.FieldINN:            {Name: constants.FieldINN, Value: "7707083893", Confidence: 95},
		},
		OverallConfidence:    97.5,
		ValidationStatus:     constants.ValidationPartial,
		ValidationErrors:     []string{"sender: is required", "receiver: is required"},
		ManualReviewRequired: true,
		EngineUsed:           "ocrspace",
	}
}

func TestBatchReportXLSX(t *testing.T) {
	res := &entity.BatchResult{
		Items: []entity.BatchItem{
			{Index: 0, DocumentID: "d1", Source: "/in/a.png", Record: sampleRecord("d1")},
			{Index: 1, DocumentID: "d2", Source: "/in/b.pdf", Err: "decode error: unsupported media type", ErrorCode: "DECODE_ERROR"},
		},
		Succeeded: 1,
		Failed:    1,
	}
	data, err := NewService(nil, nil).BatchReportXLSX(context.Background(), res)
	require.NoError(t, err)

	rows := readRows(t, data)
	require.Len(t, rows, 3)
	assert.Equal(t, Headers()[:6], rows[0][:6])

	first := rows[1]
	assert.Equal(t, "d1", first[0])
	assert.Equal(t, "/in/a.png", first[1])
	assert.Equal(t, "partial", first[2])
	assert.Equal(t, "ТТН-2024-001234", first[column(t, constants.FieldDocumentNumber)])
	assert.Equal(t, "7707083893", first[column(t, constants.FieldINN)])
	assert.Equal(t, "sender: is required; receiver: is required", first[column(t, "Errors")])

	second := rows[2]
	assert.Equal(t, "invalid", second[2])
	assert.Equal(t, "decode error: unsupported media type", second[len(second)-1])

	_, err = NewService(nil, nil).BatchReportXLSX(context.Background(), nil)
	assert.Error(t, err)
}

func TestRecordsXLSX(t *testing.T) {
	ctx := context.Background()
	db, err := repository.OpenSQLite(ctx, ":memory:", nil)
	require.NoError(t, err)
	defer repository.Close(db, nil)
	require.NoError(t, repository.Migrate(ctx, db))

	records := repository.NewRecordRepository(db, nil)
	require.NoError(t, records.Save(ctx, sampleRecord("stored")))

	data, err := NewService(records, nil).RecordsXLSX(ctx, repository.RecordFilter{})
	require.NoError(t, err)
	rows := readRows(t, data)
	require.Len(t, rows, 2)
	assert.Equal(t, "stored", rows[1][0])
	assert.Equal(t, "ocrspace", rows[1][column(t, "Engine")])

	_, err = NewService(nil, nil).RecordsXLSX(ctx, repository.RecordFilter{})
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "Груз", truncate("Груз", 10))
	assert.Equal(t, "Гр…", truncate("Груз", 3))
	assert.Equal(t, "Г", truncate("Груз", 1))
}
