package models

import (
	"fmt"
	"time"
)

// Window is the half-open [Start, End) range of one release cycle, as ISO
// dates (yyyy-mm-dd).
type Window struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Collections holds everything fetched for one report.
type Collections struct {
	Deployments      []Deployment
	AffectedProducts []AffectedProduct
	Vulnerabilities  []Vulnerability
	MiscHTML         string
	OfficeHTML       string
}

// Summary holds the report counters handed to the caller.
type Summary struct {
	Total         int `json:"total"`
	MSRCUpdates   int `json:"msrcUpdates"`
	MiscUpdates   int `json:"miscUpdates"`
	OfficeUpdates int `json:"officeUpdates"`
	CVEs          int `json:"cves"`
}

// ReportResult is the outcome of one populated report run.
type ReportResult struct {
	Name      string
	Year      int
	Month     int
	PatchDay  string
	Window    Window
	Kbs       []*Kb
	Summary   Summary
	StartTime time.Time
	EndTime   time.Time
}

// Period is the report month as yyyy-mm. KBs are unique within a period,
// not across periods.
func (r *ReportResult) Period() string {
	return fmt.Sprintf("%04d-%02d", r.Year, r.Month)
}
