package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/ttn-extractor/constants"
	"github.com/joseph-ayodele/ttn-extractor/internal/entity"
	"github.com/joseph-ayodele/ttn-extractor/internal/repository"
)

const (
	sheetName = "Documents"
	maxErrLen = 240
)

// Service is a tiny façade over the record repository that produces XLSX bytes for reports.
type Service struct {
	records repository.RecordRepository
	logger  *slog.Logger
}

// NewService builds the exporter. records may be nil when only batch reports are needed.
func NewService(records repository.RecordRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{records: records, logger: logger}
}

// row is one document line of a report.
type row struct {
	source string
	docID  string
	rec    *entity.ExtractionRecord
	err    string
}

// Headers returns the report columns in order.
func Headers() []string {
	h := []string{
		"Document ID",
		"Source",
		"Validation Status",
		"Manual Review",
		"Overall Confidence",
		"Engine",
	}
	h = append(h, constants.ExportFieldOrder...)
	return append(h, "Errors")
}

// BatchReportXLSX renders one row per batch item, in input order.
func (s *Service) BatchReportXLSX(_ context.Context, res *entity.BatchResult) ([]byte, error) {
	if res == nil {
		return nil, fmt.Errorf("batch result is nil")
	}
	rows := make([]row, 0, len(res.Items))
	for _, it := range res.Items {
		rows = append(rows, row{source: it.Source, docID: it.DocumentID, rec: it.Record, err: it.Err})
	}
	return s.render("batch", rows)
}

// RecordsXLSX renders the stored records matching filter.
func (s *Service) RecordsXLSX(ctx context.Context, filter repository.RecordFilter) ([]byte, error) {
	if s.records == nil {
		return nil, fmt.Errorf("export: no record repository configured")
	}
	recs, err := s.records.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	rows := make([]row, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, row{docID: r.DocumentID, rec: r})
	}
	return s.render("records", rows)
}

func (s *Service) render(kind string, rows []row) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}
	activeIndex, _ := f.GetSheetIndex(sheetName)
	f.SetActiveSheet(activeIndex)

	headers := Headers()
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, h)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(headers), 1)
		_ = f.SetCellStyle(sheetName, "A1", last, style)
	}

	for i, r := range rows {
		line := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, line)
			_ = f.SetCellValue(sheetName, cell, v)
		}
		write(1, r.docID)
		write(2, r.source)

		errs := r.err
		if r.rec != nil {
			write(3, string(r.rec.ValidationStatus))
			write(4, r.rec.ManualReviewRequired)
			write(5, r.rec.OverallConfidence)
			write(6, r.rec.EngineUsed)
			for j, name := range constants.ExportFieldOrder {
				if fv, ok := r.rec.Fields[name]; ok {
					write(7+j, fv.Value)
				}
			}
			if errs == "" {
				errs = strings.Join(r.rec.ValidationErrors, "; ")
			}
		} else {
			write(3, string(constants.ValidationInvalid))
			write(4, true)
		}
		write(len(headers), truncate(errs, maxErrLen))
	}

	// Widen a few columns
	_ = f.SetColWidth(sheetName, "A", "A", 38) // document id
	_ = f.SetColWidth(sheetName, "B", "B", 40) // source
	_ = f.SetColWidth(sheetName, "C", "F", 16)
	lastField, _ := excelize.ColumnNumberToName(len(headers) - 1)
	_ = f.SetColWidth(sheetName, "G", lastField, 22)
	errCol, _ := excelize.ColumnNumberToName(len(headers))
	_ = f.SetColWidth(sheetName, errCol, errCol, 60)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"kind", kind,
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// truncate cuts s to n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
