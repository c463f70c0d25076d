package report

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-patch-report/models"
	"github.com/aluiziolira/go-patch-report/patchday"
	"github.com/aluiziolira/go-patch-report/scraper"
)

// Default vendor endpoints.
const (
	DefaultAPIBaseURL     = "https://api.msrc.microsoft.com"
	DefaultSupportBaseURL = "https://support.microsoft.com"
	CatalogBaseURL        = "https://www.catalog.update.microsoft.com"

	// MiscBulletinKB is the help article listing the monthly non-security
	// and tooling updates.
	MiscBulletinKB = "894199"
	// OfficeBulletinYear is the only year officeBulletins covers.
	OfficeBulletinYear = 2023
)

// ErrUnsupportedYear is returned when no office bulletin is known for a year.
var ErrUnsupportedYear = errors.New("report: office bulletin not available for year")

// officeBulletins maps month to the office-update help article for
// OfficeBulletinYear.
var officeBulletins = map[int]string{
	1:  "5002084",
	2:  "5002085",
	3:  "5002086",
	4:  "5002087",
	5:  "5002088",
	6:  "5002089",
	7:  "5002090",
	8:  "5002091",
	9:  "5002092",
	10: "5002093",
	11: "5002094",
	12: "5002095",
}

// NewWindow returns the release window for year/month: from the day after
// the previous month's patch Tuesday up to two days after this month's.
func NewWindow(year, month int) (models.Window, error) {
	end, err := patchday.Date(year, month, 2)
	if err != nil {
		return models.Window{}, err
	}
	py, pm := patchday.PreviousMonth(year, month)
	start, err := patchday.Date(py, pm, 1)
	if err != nil {
		return models.Window{}, err
	}
	return models.Window{Start: start, End: end}, nil
}

// QueryBuilder renders the vendor query URLs for one window. The filter
// strings are consumed verbatim by the vendor, including the fixed UTC
// offsets, and must not be re-encoded.
type QueryBuilder struct {
	apiBase     string
	supportBase string
	window      models.Window
}

// NewQueryBuilder returns a builder for window. Empty bases fall back to the
// public vendor endpoints.
func NewQueryBuilder(apiBase, supportBase string, window models.Window) *QueryBuilder {
	if apiBase == "" {
		apiBase = DefaultAPIBaseURL
	}
	if supportBase == "" {
		supportBase = DefaultSupportBaseURL
	}
	return &QueryBuilder{
		apiBase:     strings.TrimSuffix(apiBase, "/"),
		supportBase: strings.TrimSuffix(supportBase, "/"),
		window:      window,
	}
}

// DeploymentURL returns the deployment query for the page starting at skip.
func (q *QueryBuilder) DeploymentURL(skip int) string {
	return withSkip(q.apiBase + "/sug/v2.0/en-US/deployment/?%24orderBy=product+desc&%24filter=" +
		"%28releaseDate+gt+" + q.window.Start + "T00%3A00%3A00-06%3A00%29+and+" +
		"%28releaseDate+lt+" + q.window.End + "T23%3A59%3A59-06%3A00%29", skip)
}

// AffectedProductURL returns the affected-product query for the page
// starting at skip.
func (q *QueryBuilder) AffectedProductURL(skip int) string {
	return withSkip(q.apiBase + "/sug/v2.0/en-US/affectedProduct?%24orderBy=releaseDate+desc&%24filter=" +
		"%28releaseDate+gt+" + q.window.Start + "T00%3A00%3A00-05%3A00%29+and+" +
		"%28releaseDate+lt+" + q.window.End + "T23%3A59%3A59-05%3A00%29", skip)
}

// VulnerabilityURL returns the vulnerability query for the page starting at
// skip. It also matches CVEs revised inside the window.
func (q *QueryBuilder) VulnerabilityURL(skip int) string {
	start := q.window.Start + "T00%3A00%3A00-05%3A00"
	end := q.window.End + "T23%3A59%3A59-05%3A00"
	return withSkip(q.apiBase + "/sug/v2.0/en-US/vulnerability?%24orderBy=cveNumber+asc&%24filter=" +
		"%28releaseDate+gt+" + start + "+or+latestRevisionDate+gt+" + start + "%29+and+" +
		"%28releaseDate+lt+" + end + "+or+latestRevisionDate+lt+" + end + "%29", skip)
}

// MiscURL returns the miscellaneous-updates bulletin.
func (q *QueryBuilder) MiscURL() string {
	return q.HelpURL(MiscBulletinKB)
}

// OfficeURL returns the office-updates bulletin for the month the window
// ends in.
func (q *QueryBuilder) OfficeURL() (string, error) {
	end := q.window.End
	if len(end) < 7 {
		return "", fmt.Errorf("invalid window end %q", end)
	}
	year, err := strconv.Atoi(end[0:4])
	if err != nil {
		return "", fmt.Errorf("invalid window end %q: %w", end, err)
	}
	month, err := strconv.Atoi(end[5:7])
	if err != nil {
		return "", fmt.Errorf("invalid window end %q: %w", end, err)
	}
	return OfficeURL(q.supportBase, year, month)
}

// Pages appends the page offset to a query, for use with
// scraper.FetchCollection.
func Pages(query string) scraper.PageURL {
	return func(skip int) string {
		return withSkip(query, skip)
	}
}

func withSkip(query string, skip int) string {
	return query + "&$skip=" + strconv.Itoa(skip)
}

// HelpURL returns the help article for a KB number.
func (q *QueryBuilder) HelpURL(kb string) string {
	return q.supportBase + "/help/" + kb
}

// OfficeURL looks up the office-updates bulletin for year/month. Only
// OfficeBulletinYear is known; any other year yields ErrUnsupportedYear.
func OfficeURL(supportBase string, year, month int) (string, error) {
	if year != OfficeBulletinYear {
		return "", fmt.Errorf("%w: %d", ErrUnsupportedYear, year)
	}
	id, ok := officeBulletins[month]
	if !ok {
		return "", fmt.Errorf("%w: month %d", patchday.ErrInvalidCalendarInput, month)
	}
	if supportBase == "" {
		supportBase = DefaultSupportBaseURL
	}
	return strings.TrimSuffix(supportBase, "/") + "/help/" + id, nil
}
