// Package models defines data structures for the patch report.
package models

// Severity ratings used by the vendor, highest first.
const (
	SeverityCritical  = "Critical"
	SeverityImportant = "Important"
	SeverityModerate  = "Moderate"
	SeverityNone      = "N/A"
)

// Kb is one knowledge-base update in the monthly report.
type Kb struct {
	Kb          string   `csv:"kb" json:"kb"`
	URL         string   `csv:"url" json:"url"`
	Title       string   `csv:"title" json:"title"`
	ReleaseDate string   `csv:"release_date" json:"releaseDate"`
	Products    []string `csv:"products" json:"products"`
	Severity    []string `csv:"severity" json:"severity"`
	Description string   `csv:"description" json:"description"`
}

// NewKb returns a record with empty, non-nil collections.
func NewKb(kb string) *Kb {
	return &Kb{
		Kb:       kb,
		Products: []string{},
		Severity: []string{},
	}
}

// HighestSeverity reports the most severe rating attached to the KB.
func (k *Kb) HighestSeverity() string {
	for _, want := range []string{SeverityCritical, SeverityImportant, SeverityModerate} {
		for _, s := range k.Severity {
			if s == want {
				return want
			}
		}
	}
	return SeverityNone
}
