package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/aluiziolira/go-patch-report/models"
)

// csvHeader is the CSV column layout. Severities holds the KB's ratings as a
// JSON array, in the order the deployments reported them.
var csvHeader = []string{"month", "report", "kb", "title", "release_date", "highest_severity", "severities", "url"}

// CSVWriter writes one row per report month and KB. It is not safe for
// concurrent use.
type CSVWriter struct {
	path   string
	file   *os.File
	csv    *csv.Writer
	rows   int
	closed bool
}

// NewCSVWriter creates path, including missing directories, and writes the
// header row.
func NewCSVWriter(path string) (*CSVWriter, error) {
	f, err := createFile(path)
	if err != nil {
		return nil, err
	}
	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	return &CSVWriter{path: path, file: f, csv: w}, nil
}

// WriteReport appends a row for each KB, tagged with the report's month.
func (cw *CSVWriter) WriteReport(report *models.ReportResult, kbs []*models.Kb) error {
	if cw.closed {
		return ErrPipelineClosed
	}
	for _, kb := range kbs {
		row, err := csvRow(report, kb)
		if err != nil {
			return err
		}
		if err := cw.csv.Write(row); err != nil {
			return fmt.Errorf("write csv row %s/%s: %w", report.Period(), kb.Kb, err)
		}
		cw.rows++
	}
	cw.csv.Flush()
	return cw.csv.Error()
}

// Close flushes buffered rows and closes the file.
func (cw *CSVWriter) Close() error {
	if cw.closed {
		return nil
	}
	cw.closed = true
	cw.csv.Flush()
	return errors.Join(cw.csv.Error(), cw.file.Close())
}

// Validate re-reads the closed file and checks the header and row count.
func (cw *CSVWriter) Validate() error {
	f, err := os.Open(cw.path)
	if err != nil {
		return fmt.Errorf("open csv output: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return fmt.Errorf("read csv output: %w", err)
	}
	if len(records) == 0 || !slices.Equal(records[0], csvHeader) {
		return fmt.Errorf("csv output %s: missing header", cw.path)
	}
	if got := len(records) - 1; got != cw.rows {
		return fmt.Errorf("csv output %s: %d rows on disk, %d written", cw.path, got, cw.rows)
	}
	return nil
}

func csvRow(report *models.ReportResult, kb *models.Kb) ([]string, error) {
	severities, err := json.Marshal(kb.Severity)
	if err != nil {
		return nil, fmt.Errorf("encode severities of %s: %w", kb.Kb, err)
	}
	if kb.Severity == nil {
		severities = []byte("[]")
	}
	return []string{
		report.Period(),
		report.Name,
		kb.Kb,
		kb.Title,
		kb.ReleaseDate,
		kb.HighestSeverity(),
		string(severities),
		kb.URL,
	}, nil
}

func createFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, nil
}
