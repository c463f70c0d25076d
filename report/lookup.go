package report

import "net/url"

// Single-record lookups against the same vendor API. The report run itself
// only uses the window queries; these back ad-hoc inspection of one KB or
// CVE. Page them with Pages.

// DeploymentByArticleURL returns the deployments of one KB article.
func (q *QueryBuilder) DeploymentByArticleURL(articleName string) string {
	return q.apiBase + "/sug/v2.0/en-US/deployment/?%24orderBy=product+desc&%24filter=articleName+eq+%27" +
		url.QueryEscape(articleName) + "%27"
}

// AffectedProductByCVEURL returns the affected products of one CVE.
func (q *QueryBuilder) AffectedProductByCVEURL(cveNumber string) string {
	return q.apiBase + "/sug/v2.0/en-US/affectedProduct?%24filter=cveNumber+eq+%27" +
		url.QueryEscape(cveNumber) + "%27"
}

// AffectedProductByIDURL returns one affected-product row.
func (q *QueryBuilder) AffectedProductByIDURL(id string) string {
	return q.apiBase + "/sug/v2.0/en-US/affectedProduct/" + url.PathEscape(id)
}

// VulnerabilityByCVEURL returns the vulnerability record of one CVE.
func (q *QueryBuilder) VulnerabilityByCVEURL(cveNumber string) string {
	return q.apiBase + "/sug/v2.0/en-US/vulnerability?%24orderBy=cveNumber+desc&%24filter=cveNumber+eq+%27" +
		url.QueryEscape(cveNumber) + "%27"
}

// CatalogSearchURL returns the update catalog search for a KB number.
func CatalogSearchURL(articleName string) string {
	return CatalogBaseURL + "/Search.aspx?q=KB" + url.QueryEscape(articleName)
}
