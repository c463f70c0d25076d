package report

import (
	"errors"
	"log/slog"

	"github.com/aluiziolira/go-patch-report/models"
	"github.com/aluiziolira/go-patch-report/parser"
)

// MoreInformationHeading is the bulletin section listing the monthly updates.
const MoreInformationHeading = "More Information"

// Merger folds fetched records into a list of unique KBs. KBs keep the order
// in which they were first seen.
type Merger struct {
	helpURL func(kb string) string
	kbs     []*models.Kb
	seen    map[string]*models.Kb
}

// NewMerger returns an empty merger. helpURL renders the article link of
// KBs that only appear in a bulletin.
func NewMerger(helpURL func(kb string) string) *Merger {
	return &Merger{
		helpURL: helpURL,
		seen:    make(map[string]*models.Kb),
	}
}

// AddDeployments merges deployment rows. Article names containing whitespace
// are labels, not KBs, and are skipped. A KB seen again gets the row's
// severity appended. Returns the number of new KBs.
func (m *Merger) AddDeployments(deployments []models.Deployment) int {
	added := 0
	for _, d := range deployments {
		if !parser.IsKbIdentifier(d.ArticleName) {
			continue
		}
		if kb, ok := m.seen[d.ArticleName]; ok {
			kb.Severity = append(kb.Severity, d.Severity)
			continue
		}

		kb := models.NewKb(d.ArticleName)
		kb.URL = d.ArticleURL
		kb.ReleaseDate = parser.ReleaseDay(d.ReleaseDate)
		kb.Severity = append(kb.Severity, d.Severity)
		m.add(kb)
		added++
	}
	return added
}

// AddMiscBulletin merges the KBs listed under patchDay in the "More
// Information" section of the bulletin. KBs already known are skipped; new
// ones are dated releaseDate. A bulletin without that section contributes
// nothing and the ParseError is returned for the caller to log.
func (m *Merger) AddMiscBulletin(doc parser.Document, patchDay, releaseDate string) (int, error) {
	section, err := doc.FindSection(MoreInformationHeading, patchDay)
	if err != nil {
		return 0, err
	}

	added := 0
	for _, l := range section.ChildLists() {
		title, id, ok := parser.ParseKbTitle(l.LeadText())
		if !ok {
			continue
		}
		if m.Known(id) {
			continue
		}

		kb := models.NewKb(id)
		kb.Title = title
		kb.ReleaseDate = releaseDate
		kb.URL = m.helpURL(id)
		m.add(kb)
		added++
	}
	return added, nil
}

// AddOfficeBulletin is the merge hook for the office-updates bulletin. It
// does not extract anything yet.
func (m *Merger) AddOfficeBulletin(html string) int {
	if html != "" {
		slog.Debug("office bulletin merge not implemented", slog.Int("bytes", len(html)))
	}
	return 0
}

// Known reports whether kb is already in the list.
func (m *Merger) Known(kb string) bool {
	_, ok := m.seen[kb]
	return ok
}

// Kbs returns the merged list.
func (m *Merger) Kbs() []*models.Kb {
	return m.kbs
}

func (m *Merger) add(kb *models.Kb) {
	m.kbs = append(m.kbs, kb)
	m.seen[kb.Kb] = kb
}

// MergeInput is everything one merge pass consumes.
type MergeInput struct {
	Collections models.Collections
	// PatchDay is the human form matched against bulletin sub-headings.
	PatchDay string
	// PatchDate is the ISO patch day given to bulletin-only KBs.
	PatchDate string
	HelpURL   func(kb string) string
}

// Merge builds the KB list and summary counters from fetched collections.
func Merge(in MergeInput) ([]*models.Kb, models.Summary) {
	m := NewMerger(in.HelpURL)
	var summary models.Summary

	summary.MSRCUpdates = m.AddDeployments(in.Collections.Deployments)

	if doc, err := parser.NewBulletin("misc", in.Collections.MiscHTML); err != nil {
		slog.Warn("misc bulletin unreadable", slog.Any("error", err))
	} else {
		added, err := m.AddMiscBulletin(doc, in.PatchDay, in.PatchDate)
		switch {
		case errors.Is(err, parser.ErrSectionNotFound):
			slog.Info("misc bulletin has no section for patch day", slog.String("patch_day", in.PatchDay))
		case err != nil:
			slog.Warn("misc bulletin merge failed", slog.Any("error", err))
		}
		summary.MiscUpdates = added
	}

	summary.OfficeUpdates = m.AddOfficeBulletin(in.Collections.OfficeHTML)
	summary.CVEs = countCVEs(in.Collections.Vulnerabilities)
	summary.Total = len(m.Kbs())
	return m.Kbs(), summary
}

func countCVEs(vulns []models.Vulnerability) int {
	seen := make(map[string]struct{}, len(vulns))
	for _, v := range vulns {
		if v.CveNumber == "" {
			continue
		}
		seen[v.CveNumber] = struct{}{}
	}
	return len(seen)
}
