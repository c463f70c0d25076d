package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/aluiziolira/go-patch-report/models"
)

// Document is the JSON export: every report with its counters and KBs.
type Document struct {
	Reports []*ReportDocument `json:"reports"`
}

// ReportDocument is one report month inside a Document.
type ReportDocument struct {
	Name     string         `json:"name"`
	Month    string         `json:"month"`
	PatchDay string         `json:"patchDay"`
	Window   models.Window  `json:"window"`
	Summary  models.Summary `json:"summary"`
	Kbs      []*models.Kb   `json:"kbs"`
}

// JSONWriter collects reports and writes them as a single Document on
// Close. It is not safe for concurrent use.
type JSONWriter struct {
	path   string
	file   *os.File
	doc    Document
	byRun  map[*models.ReportResult]*ReportDocument
	kbs    int
	closed bool
}

// NewJSONWriter creates path, including missing directories. Nothing is
// written until Close.
func NewJSONWriter(path string) (*JSONWriter, error) {
	f, err := createFile(path)
	if err != nil {
		return nil, err
	}
	return &JSONWriter{
		path:  path,
		file:  f,
		doc:   Document{Reports: []*ReportDocument{}},
		byRun: make(map[*models.ReportResult]*ReportDocument),
	}, nil
}

// WriteReport adds kbs to the document entry of report, creating the entry
// on first use.
func (jw *JSONWriter) WriteReport(report *models.ReportResult, kbs []*models.Kb) error {
	if jw.closed {
		return ErrPipelineClosed
	}
	entry, ok := jw.byRun[report]
	if !ok {
		entry = &ReportDocument{
			Name:     report.Name,
			Month:    report.Period(),
			PatchDay: report.PatchDay,
			Window:   report.Window,
			Summary:  report.Summary,
			Kbs:      []*models.Kb{},
		}
		jw.byRun[report] = entry
		jw.doc.Reports = append(jw.doc.Reports, entry)
	}
	entry.Kbs = append(entry.Kbs, kbs...)
	jw.kbs += len(kbs)
	return nil
}

// Close encodes the document and closes the file.
func (jw *JSONWriter) Close() error {
	if jw.closed {
		return nil
	}
	jw.closed = true

	enc := json.NewEncoder(jw.file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(jw.doc); err != nil {
		return errors.Join(fmt.Errorf("encode json document: %w", err), jw.file.Close())
	}
	return jw.file.Close()
}

// Validate decodes the closed file and checks it holds every report and KB.
func (jw *JSONWriter) Validate() error {
	data, err := os.ReadFile(jw.path)
	if err != nil {
		return fmt.Errorf("read json output: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode json output %s: %w", jw.path, err)
	}
	if len(doc.Reports) != len(jw.doc.Reports) {
		return fmt.Errorf("json output %s: %d reports on disk, %d written", jw.path, len(doc.Reports), len(jw.doc.Reports))
	}
	kbs := 0
	for _, r := range doc.Reports {
		kbs += len(r.Kbs)
	}
	if kbs != jw.kbs {
		return fmt.Errorf("json output %s: %d kbs on disk, %d written", jw.path, kbs, jw.kbs)
	}
	return nil
}
