package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aluiziolira/go-patch-report/models"
	"github.com/aluiziolira/go-patch-report/parser"
	"github.com/aluiziolira/go-patch-report/report"
	"github.com/aluiziolira/go-patch-report/scraper"
)

// lookupKB prints the deployment rows of one KB article.
func lookupKB(ctx context.Context, g scraper.Getter, m *scraper.Metrics, q *report.QueryBuilder, kb string, parallelism int, out io.Writer) error {
	kb = strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(kb)), "KB")
	deployments, err := scraper.FetchCollection[models.Deployment](ctx, g, m, report.CollectionDeployment,
		report.Pages(q.DeploymentByArticleURL(kb)), parallelism)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "KB%s: %d deployments\n", kb, len(deployments))
	fmt.Fprintf(out, "  Catalog: %s\n", report.CatalogSearchURL(kb))
	for _, d := range deployments {
		fmt.Fprintf(out, "  %-10s %-10s %s\n", parser.ReleaseDay(d.ReleaseDate), d.Severity, d.Product)
	}
	return nil
}

// lookupCVE prints the vulnerability record of one CVE and every product it
// affects, with the KBs that fix each product.
func lookupCVE(ctx context.Context, g scraper.Getter, m *scraper.Metrics, q *report.QueryBuilder, cve string, parallelism int, out io.Writer) error {
	cve = strings.ToUpper(strings.TrimSpace(cve))
	vulns, err := scraper.FetchCollection[models.Vulnerability](ctx, g, m, report.CollectionVulnerability,
		report.Pages(q.VulnerabilityByCVEURL(cve)), parallelism)
	if err != nil {
		return err
	}
	if len(vulns) == 0 {
		fmt.Fprintf(out, "%s: not found\n", cve)
		return nil
	}
	products, err := scraper.FetchCollection[models.AffectedProduct](ctx, g, m, report.CollectionAffectedProduct,
		report.Pages(q.AffectedProductByCVEURL(cve)), parallelism)
	if err != nil {
		return err
	}

	for _, v := range vulns {
		fmt.Fprintf(out, "%s: %s\n", v.CveNumber, v.CveTitle)
		fmt.Fprintf(out, "  Released: %s  Severity: %s  Impact: %s  Exploited: %s\n",
			parser.ReleaseDay(v.ReleaseDate), v.Severity, v.Impact, v.Exploited)
	}
	fmt.Fprintf(out, "  %d affected products\n", len(products))
	for _, ap := range products {
		fmt.Fprintf(out, "  %-10s %s\n", ap.Severity, ap.Product)
		if ap.ID != "" {
			fmt.Fprintf(out, "    %s\n", q.AffectedProductByIDURL(string(ap.ID)))
		}
		for _, a := range ap.KbArticles {
			if !parser.IsKbIdentifier(a.ArticleName) {
				continue
			}
			fmt.Fprintf(out, "    KB%-9s %s\n", a.ArticleName, report.CatalogSearchURL(a.ArticleName))
		}
	}
	return nil
}
