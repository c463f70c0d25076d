package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/aluiziolira/go-patch-report/models"
)

func twoMonths() (*models.ReportResult, *models.ReportResult) {
	may := &models.ReportResult{
		Name:     "May",
		Year:     2023,
		Month:    5,
		PatchDay: "Tuesday, May 9, 2023",
		Window:   models.Window{Start: "2023-04-12", End: "2023-05-11"},
		Summary:  models.Summary{Total: 1, MiscUpdates: 1},
		Kbs: []*models.Kb{
			{Kb: "890830", Title: "Malicious Software Removal Tool", ReleaseDate: "2023-05-09", Severity: []string{}},
		},
	}
	june := &models.ReportResult{
		Name:     "June",
		Year:     2023,
		Month:    6,
		PatchDay: "Tuesday, June 13, 2023",
		Window:   models.Window{Start: "2023-05-10", End: "2023-06-15"},
		Summary:  models.Summary{Total: 2, MSRCUpdates: 1, MiscUpdates: 1, CVEs: 4},
		Kbs: []*models.Kb{
			{Kb: "5027231", URL: "https://support.microsoft.com/help/5027231", ReleaseDate: "2023-06-13", Severity: []string{"Important", "Critical", "Important"}},
			{Kb: "890830", Title: "Malicious Software Removal Tool", ReleaseDate: "2023-06-13"},
		},
	}
	return may, june
}

func TestCSVWriterRowsPerMonth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kbs.csv")
	w, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("create csv writer: %v", err)
	}

	may, june := twoMonths()
	if err := w.WriteReport(may, may.Kbs); err != nil {
		t.Fatalf("write may: %v", err)
	}
	if err := w.WriteReport(june, june.Kbs); err != nil {
		t.Fatalf("write june: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := w.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}

	want := [][]string{
		csvHeader,
		{"2023-05", "May", "890830", "Malicious Software Removal Tool", "2023-05-09", "N/A", "[]", ""},
		{"2023-06", "June", "5027231", "", "2023-06-13", "Critical", `["Important","Critical","Important"]`, "https://support.microsoft.com/help/5027231"},
		{"2023-06", "June", "890830", "Malicious Software Removal Tool", "2023-06-13", "N/A", "[]", ""},
	}
	if len(records) != len(want) {
		t.Fatalf("records=%d, want %d: %v", len(records), len(want), records)
	}
	for i := range want {
		for j := range want[i] {
			if records[i][j] != want[i][j] {
				t.Fatalf("record[%d][%d]=%q, want %q", i, j, records[i][j], want[i][j])
			}
		}
	}
}

func TestCSVWriterValidateDetectsTruncation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kbs.csv")
	w, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("create csv writer: %v", err)
	}
	_, june := twoMonths()
	if err := w.WriteReport(june, june.Kbs); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if err := os.WriteFile(path, []byte("month,report,kb,title,release_date,highest_severity,severities,url\n"), 0o644); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	if err := w.Validate(); err == nil {
		t.Fatalf("expected validation error for truncated output")
	}
}

func TestJSONWriterDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kbs.json")
	w, err := NewJSONWriter(path)
	if err != nil {
		t.Fatalf("create json writer: %v", err)
	}

	may, june := twoMonths()
	empty := &models.ReportResult{Name: "July", Year: 2023, Month: 7}
	if err := w.WriteReport(may, may.Kbs); err != nil {
		t.Fatalf("write may: %v", err)
	}
	// Batches of one report land in the same entry.
	if err := w.WriteReport(june, june.Kbs[:1]); err != nil {
		t.Fatalf("write june: %v", err)
	}
	if err := w.WriteReport(june, june.Kbs[1:]); err != nil {
		t.Fatalf("write june: %v", err)
	}
	if err := w.WriteReport(empty, nil); err != nil {
		t.Fatalf("write july: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := w.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read json: %v", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode json: %v", err)
	}

	if len(doc.Reports) != 3 {
		t.Fatalf("reports=%d, want 3", len(doc.Reports))
	}
	got := doc.Reports[1]
	if got.Month != "2023-06" || got.PatchDay != "Tuesday, June 13, 2023" || got.Window.End != "2023-06-15" {
		t.Fatalf("june entry=%+v", got)
	}
	if got.Summary != june.Summary {
		t.Fatalf("summary=%+v, want %+v", got.Summary, june.Summary)
	}
	if len(got.Kbs) != 2 || got.Kbs[0].Kb != "5027231" || got.Kbs[1].Kb != "890830" {
		t.Fatalf("june kbs=%+v", got.Kbs)
	}
	if sev := got.Kbs[0].Severity; len(sev) != 3 || sev[1] != "Critical" {
		t.Fatalf("severity=%v, want ordered list", sev)
	}
	if doc.Reports[2].Kbs == nil || len(doc.Reports[2].Kbs) != 0 {
		t.Fatalf("empty report kbs=%v, want []", doc.Reports[2].Kbs)
	}
}

func TestNewWriterFormats(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWriter("dual", filepath.Join(dir, "nested", "kbs.csv"))
	if err != nil {
		t.Fatalf("create dual writer: %v", err)
	}
	_, june := twoMonths()
	if err := w.WriteReport(june, june.Kbs); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := w.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	for _, name := range []string{"kbs.csv", "kbs.json"} {
		if info, err := os.Stat(filepath.Join(dir, "nested", name)); err != nil || info.Size() == 0 {
			t.Fatalf("%s missing or empty", name)
		}
	}

	for _, format := range []string{"csv", "json"} {
		w, err := NewWriter(format, filepath.Join(dir, format, "out"))
		if err != nil {
			t.Fatalf("create %s writer: %v", format, err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("close %s: %v", format, err)
		}
	}

	if _, err := NewWriter("xml", filepath.Join(dir, "kbs.xml")); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
}

func TestWriterRejectsWriteAfterClose(t *testing.T) {
	w, err := NewJSONWriter(filepath.Join(t.TempDir(), "kbs.json"))
	if err != nil {
		t.Fatalf("create json writer: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	_, june := twoMonths()
	if err := w.WriteReport(june, june.Kbs); err == nil {
		t.Fatalf("expected error after close")
	}
}
