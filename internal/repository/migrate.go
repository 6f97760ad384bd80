package repository

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

var (
	// ExtractionRecordsColumns holds the columns of "extraction_records".
	ExtractionRecordsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "document_id", Type: field.TypeString},
		{Name: "document_type", Type: field.TypeString, Size: 32},
		{Name: "fields", Type: field.TypeJSON},
		{Name: "overall_confidence", Type: field.TypeFloat64},
		{Name: "raw_text", Type: field.TypeString, Size: 2147483647},
		{Name: "validation_status", Type: field.TypeString, Size: 16},
		{Name: "validation_errors", Type: field.TypeJSON},
		{Name: "manual_review_required", Type: field.TypeBool, Default: false},
		{Name: "engine_used", Type: field.TypeString},
		{Name: "recognition_id", Type: field.TypeUUID, Nullable: true},
		{Name: "revision", Type: field.TypeInt, Default: 1},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "validated_at", Type: field.TypeTime},
	}
	// ExtractionRecordsTable holds the schema information for the "extraction_records" table.
	ExtractionRecordsTable = &schema.Table{
		Name:       "extraction_records",
		Columns:    ExtractionRecordsColumns,
		PrimaryKey: []*schema.Column{ExtractionRecordsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "extractionrecord_document_id", Columns: []*schema.Column{ExtractionRecordsColumns[1]}},
			{Name: "extractionrecord_manual_review_required", Columns: []*schema.Column{ExtractionRecordsColumns[8]}},
		},
	}

	// RecognitionResultsColumns holds the columns of "recognition_results".
	RecognitionResultsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "document_id", Type: field.TypeString},
		{Name: "engine", Type: field.TypeString, Size: 64},
		{Name: "profile", Type: field.TypeString, Size: 64},
		{Name: "text", Type: field.TypeString, Size: 2147483647},
		{Name: "confidence", Type: field.TypeFloat64},
		{Name: "field_count", Type: field.TypeInt},
		{Name: "recognized_at", Type: field.TypeTime},
	}
	// RecognitionResultsTable holds the schema information for the "recognition_results" table.
	RecognitionResultsTable = &schema.Table{
		Name:       "recognition_results",
		Columns:    RecognitionResultsColumns,
		PrimaryKey: []*schema.Column{RecognitionResultsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "recognitionresult_document_id", Columns: []*schema.Column{RecognitionResultsColumns[1]}},
		},
	}

	// BatchRunsColumns holds the columns of "batch_runs".
	BatchRunsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "source", Type: field.TypeString},
		{Name: "status", Type: field.TypeString, Size: 16},
		{Name: "total", Type: field.TypeInt},
		{Name: "succeeded", Type: field.TypeInt, Default: 0},
		{Name: "failed", Type: field.TypeInt, Default: 0},
		{Name: "started_at", Type: field.TypeTime},
		{Name: "finished_at", Type: field.TypeTime, Nullable: true},
	}
	// BatchRunsTable holds the schema information for the "batch_runs" table.
	BatchRunsTable = &schema.Table{
		Name:       "batch_runs",
		Columns:    BatchRunsColumns,
		PrimaryKey: []*schema.Column{BatchRunsColumns[0]},
	}

	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		ExtractionRecordsTable,
		RecognitionResultsTable,
		BatchRunsTable,
	}
)

// Migrate creates missing tables, columns and indexes.
func Migrate(ctx context.Context, db *DB) error {
	m, err := schema.NewMigrate(db.Driver)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := m.Create(ctx, Tables...); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
