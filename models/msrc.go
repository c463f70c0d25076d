package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Count is the total record count of a collection. The API has been seen to
// send it both as a number and as a numeric string.
type Count int

// UnmarshalJSON accepts 42 and "42".
func (c *Count) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("count %q: %w", s, err)
		}
		*c = Count(n)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*c = Count(n)
	return nil
}

// Flex is a scalar field the API emits either as a string or as a number.
type Flex string

// UnmarshalJSON keeps the textual form of a string or number.
func (f *Flex) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*f = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = Flex(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*f = Flex(n.String())
	}
	return nil
}

// CollectionPage is one page of a vendor collection. Count is the total
// across all pages, not the size of Value.
type CollectionPage[T any] struct {
	Count Count `json:"count" validate:"gte=0"`
	Value []T   `json:"value" validate:"required,dive"`
}

// Deployment links one KB article to one affected product and its severity.
type Deployment struct {
	ID               Flex   `json:"id"`
	Product          string `json:"product"`
	ProductID        Flex   `json:"productId"`
	ProductFamily    string `json:"productFamily"`
	ProductVersion   string `json:"productVersion"`
	Platform         string `json:"platform"`
	Architecture     string `json:"architecture"`
	CveNumber        string `json:"cveNumber"`
	ReleaseDate      string `json:"releaseDate" validate:"required,min=10"`
	ReleaseNumber    string `json:"releaseNumber"`
	ArticleName      string `json:"articleName" validate:"required"`
	ArticleType      string `json:"articleType"`
	ArticleURL       string `json:"articleUrl"`
	DownloadName     string `json:"downloadName"`
	DownloadURL      string `json:"downloadUrl"`
	Supercedence     string `json:"supercedence"`
	Severity         string `json:"severity"`
	Impact           string `json:"impact"`
	FixedBuildNumber string `json:"fixedBuildNumber"`
	KnownIssuesName  string `json:"knownIssuesName"`
	KnownIssuesURL   string `json:"knownIssuesUrl"`
}

// KbArticle is a KB reference embedded in an affected-product row.
type KbArticle struct {
	ArticleName  string `json:"articleName"`
	ArticleURL   string `json:"articleUrl"`
	DownloadURL  string `json:"downloadUrl"`
	Supercedence string `json:"supercedence"`
}

// AffectedProduct describes the impact of one CVE on one product.
type AffectedProduct struct {
	ID            Flex        `json:"id"`
	ReleaseDate   string      `json:"releaseDate"`
	ReleaseNumber string      `json:"releaseNumber"`
	CveNumber     string      `json:"cveNumber" validate:"required"`
	Product       string      `json:"product"`
	ProductID     Flex        `json:"productId"`
	ProductFamily string      `json:"productFamily"`
	Platform      string      `json:"platform"`
	Impact        string      `json:"impact"`
	Severity      string      `json:"severity"`
	BaseScore     Flex        `json:"baseScore"`
	TemporalScore Flex        `json:"temporalScore"`
	VectorString  string      `json:"vectorString"`
	KbArticles    []KbArticle `json:"kbArticles"`
}

// Vulnerability is CVE-level metadata.
type Vulnerability struct {
	ID                 Flex   `json:"id"`
	ReleaseDate        string `json:"releaseDate"`
	LatestRevisionDate string `json:"latestRevisionDate"`
	CveNumber          string `json:"cveNumber" validate:"required"`
	CveTitle           string `json:"cveTitle"`
	ReleaseNumber      string `json:"releaseNumber"`
	Severity           string `json:"severity"`
	Impact             string `json:"impact"`
	Tag                string `json:"tag"`
	IssuingCna         string `json:"issuingCna"`
	Exploited          string `json:"exploited"`
	PubliclyDisclosed  string `json:"publiclyDisclosed"`
	Description        string `json:"description"`
}
