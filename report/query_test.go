package report

import (
	"fmt"
	"strings"
	"testing"

	"github.com/aluiziolira/go-patch-report/models"
	"github.com/aluiziolira/go-patch-report/patchday"
	"github.com/stretchr/testify/require"
)

func TestNewWindowJune2023(t *testing.T) {
	w, err := NewWindow(2023, 6)
	require.NoError(t, err)
	require.Equal(t, "2023-05-10", w.Start)
	require.Equal(t, "2023-06-15", w.End)
}

func TestNewWindowJanuaryUsesPreviousDecember(t *testing.T) {
	w, err := NewWindow(2023, 1)
	require.NoError(t, err)
	// December 2022's patch Tuesday is the 13th.
	require.Equal(t, "2022-12-14", w.Start)
	require.Equal(t, "2023-01-12", w.End)
}

func TestNewWindowStartBeforeEnd(t *testing.T) {
	for year := 2016; year <= 2028; year++ {
		for month := 1; month <= 12; month++ {
			w, err := NewWindow(year, month)
			require.NoError(t, err)
			require.Less(t, w.Start, w.End, "%d-%02d", year, month)
			require.True(t, strings.HasPrefix(w.End, fmt.Sprintf("%d-%02d-", year, month)))
		}
	}
}

func TestNewWindowInvalidMonth(t *testing.T) {
	_, err := NewWindow(2023, 13)
	require.ErrorIs(t, err, patchday.ErrInvalidCalendarInput)
}

func TestQueryBuilderURLs(t *testing.T) {
	q := NewQueryBuilder("", "", models.Window{Start: "2023-05-10", End: "2023-06-15"})

	require.Equal(t,
		"https://api.msrc.microsoft.com/sug/v2.0/en-US/deployment/?%24orderBy=product+desc&%24filter=%28releaseDate+gt+2023-05-10T00%3A00%3A00-06%3A00%29+and+%28releaseDate+lt+2023-06-15T23%3A59%3A59-06%3A00%29&$skip=0",
		q.DeploymentURL(0))

	require.Equal(t,
		"https://api.msrc.microsoft.com/sug/v2.0/en-US/affectedProduct?%24orderBy=releaseDate+desc&%24filter=%28releaseDate+gt+2023-05-10T00%3A00%3A00-05%3A00%29+and+%28releaseDate+lt+2023-06-15T23%3A59%3A59-05%3A00%29&$skip=500",
		q.AffectedProductURL(500))

	require.Equal(t,
		"https://api.msrc.microsoft.com/sug/v2.0/en-US/vulnerability?%24orderBy=cveNumber+asc&%24filter=%28releaseDate+gt+2023-05-10T00%3A00%3A00-05%3A00+or+latestRevisionDate+gt+2023-05-10T00%3A00%3A00-05%3A00%29+and+%28releaseDate+lt+2023-06-15T23%3A59%3A59-05%3A00+or+latestRevisionDate+lt+2023-06-15T23%3A59%3A59-05%3A00%29&$skip=100",
		q.VulnerabilityURL(100))

	require.Equal(t, "https://support.microsoft.com/help/894199", q.MiscURL())
	require.Equal(t, "https://support.microsoft.com/help/5027231", q.HelpURL("5027231"))
}

func TestQueryBuilderCustomBase(t *testing.T) {
	q := NewQueryBuilder("http://api.test/", "http://support.test/", models.Window{Start: "2023-05-10", End: "2023-06-15"})
	require.True(t, strings.HasPrefix(q.DeploymentURL(0), "http://api.test/sug/v2.0/en-US/deployment/?"))
	require.Equal(t, "http://support.test/help/894199", q.MiscURL())
}

func TestOfficeURL(t *testing.T) {
	got, err := OfficeURL("", 2023, 6)
	require.NoError(t, err)
	require.Equal(t, "https://support.microsoft.com/help/5002089", got)

	got, err = OfficeURL("http://support.test", 2023, 12)
	require.NoError(t, err)
	require.Equal(t, "http://support.test/help/5002095", got)

	got, err = OfficeURL("", 2022, 6)
	require.ErrorIs(t, err, ErrUnsupportedYear)
	require.Empty(t, got)

	_, err = OfficeURL("", 2023, 0)
	require.ErrorIs(t, err, patchday.ErrInvalidCalendarInput)
}

func TestQueryBuilderOfficeURLUsesWindowEnd(t *testing.T) {
	w, err := NewWindow(2023, 6)
	require.NoError(t, err)
	got, err := NewQueryBuilder("", "", w).OfficeURL()
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(got, "/5002089"))

	// January 2024's window starts in 2023 but ends in 2024.
	w, err = NewWindow(2024, 1)
	require.NoError(t, err)
	_, err = NewQueryBuilder("", "", w).OfficeURL()
	require.ErrorIs(t, err, ErrUnsupportedYear)
}

func TestLookupURLs(t *testing.T) {
	q := NewQueryBuilder("", "", models.Window{})

	require.Equal(t,
		"https://api.msrc.microsoft.com/sug/v2.0/en-US/deployment/?%24orderBy=product+desc&%24filter=articleName+eq+%275027231%27",
		q.DeploymentByArticleURL("5027231"))
	require.Equal(t,
		"https://api.msrc.microsoft.com/sug/v2.0/en-US/affectedProduct?%24filter=cveNumber+eq+%27CVE-2023-32046%27",
		q.AffectedProductByCVEURL("CVE-2023-32046"))
	require.Equal(t,
		"https://api.msrc.microsoft.com/sug/v2.0/en-US/affectedProduct/12345",
		q.AffectedProductByIDURL("12345"))
	require.Equal(t,
		"https://api.msrc.microsoft.com/sug/v2.0/en-US/vulnerability?%24orderBy=cveNumber+desc&%24filter=cveNumber+eq+%27CVE-2023-32046%27",
		q.VulnerabilityByCVEURL("CVE-2023-32046"))
	require.Equal(t,
		"https://www.catalog.update.microsoft.com/Search.aspx?q=KB5027231",
		CatalogSearchURL("5027231"))
}

func TestPagesUsesWindowSkipSpelling(t *testing.T) {
	w, err := NewWindow(2023, 6)
	require.NoError(t, err)
	q := NewQueryBuilder("", "", w)

	page := Pages(q.DeploymentByArticleURL("5027231"))
	require.Equal(t, q.DeploymentByArticleURL("5027231")+"&$skip=100", page(100))
	require.True(t, strings.HasSuffix(q.DeploymentURL(100), "&$skip=100"))
}
