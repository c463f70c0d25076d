// Package report assembles the monthly patch report: it derives the release
// window, fetches the vendor collections and bulletins, and merges them into
// a deduplicated KB list.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-patch-report/config"
	"github.com/aluiziolira/go-patch-report/models"
	"github.com/aluiziolira/go-patch-report/patchday"
	"github.com/aluiziolira/go-patch-report/scraper"
	"golang.org/x/sync/errgroup"
)

// Collection names used for requests, errors and metrics.
const (
	CollectionDeployment      = "deployment"
	CollectionAffectedProduct = "affectedProduct"
	CollectionVulnerability   = "vulnerability"
	CollectionMisc            = "misc"
	CollectionOffice          = "office"
)

// ErrAlreadyPopulated is returned by Run on a report that already ran.
var ErrAlreadyPopulated = errors.New("report: already populated")

// State is the lifecycle state of a MonthlyReport.
type State int

const (
	// Unpopulated reports hold only their name and month.
	Unpopulated State = iota
	// Populated reports completed one successful run.
	Populated
)

func (s State) String() string {
	switch s {
	case Unpopulated:
		return "unpopulated"
	case Populated:
		return "populated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Options configures where and how a run fetches.
type Options struct {
	APIBaseURL     string
	SupportBaseURL string
	// Parallelism bounds concurrent follow-up page requests per collection.
	Parallelism int
	Metrics     *scraper.Metrics
}

// OptionsFromConfig maps the relevant config fields onto Options.
func OptionsFromConfig(cfg *config.Config, metrics *scraper.Metrics) Options {
	return Options{
		APIBaseURL:     cfg.APIBaseURL,
		SupportBaseURL: cfg.SupportBaseURL,
		Parallelism:    cfg.Parallelism,
		Metrics:        metrics,
	}
}

// MonthlyReport is the report for one year/month. It is not safe for
// concurrent use.
type MonthlyReport struct {
	Name  string
	Year  int
	Month int

	patchDay  string
	patchDate string
	window    models.Window

	state       State
	collections models.Collections
	result      *models.ReportResult
}

// New returns an unpopulated report, or ErrInvalidCalendarInput for an
// impossible year/month.
func New(name string, year, month int) (*MonthlyReport, error) {
	patchDay, err := patchday.Human(year, month)
	if err != nil {
		return nil, err
	}
	patchDate, err := patchday.Date(year, month, 0)
	if err != nil {
		return nil, err
	}
	window, err := NewWindow(year, month)
	if err != nil {
		return nil, err
	}
	return &MonthlyReport{
		Name:      name,
		Year:      year,
		Month:     month,
		patchDay:  patchDay,
		patchDate: patchDate,
		window:    window,
	}, nil
}

// PatchDay returns the human-readable patch Tuesday, e.g.
// "Tuesday, June 13, 2023".
func (r *MonthlyReport) PatchDay() string { return r.patchDay }

// PatchDate returns the patch Tuesday as yyyy-mm-dd.
func (r *MonthlyReport) PatchDate() string { return r.patchDate }

// Window returns the release window the queries cover.
func (r *MonthlyReport) Window() models.Window { return r.window }

// State returns the lifecycle state.
func (r *MonthlyReport) State() State { return r.state }

// Result returns the populated result, or nil before a successful run.
func (r *MonthlyReport) Result() *models.ReportResult { return r.result }

// Collections returns the fetched collections of a populated report.
func (r *MonthlyReport) Collections() models.Collections { return r.collections }

// Run fetches all collections and bulletins concurrently and merges them.
// Any failed fetch fails the run and leaves the report unpopulated; merging
// only starts once every fetch succeeded.
func (r *MonthlyReport) Run(ctx context.Context, g scraper.Getter, opts Options) (*models.ReportResult, error) {
	if r.state == Populated {
		return nil, ErrAlreadyPopulated
	}

	start := time.Now()
	slog.Info("starting report",
		slog.String("name", r.Name),
		slog.String("patch_day", r.patchDay),
		slog.String("window_start", r.window.Start),
		slog.String("window_end", r.window.End),
	)

	q := NewQueryBuilder(opts.APIBaseURL, opts.SupportBaseURL, r.window)
	collections, err := fetchAll(ctx, g, q, opts)
	if err != nil {
		return nil, fmt.Errorf("report %q: %w", r.Name, err)
	}

	kbs, summary := Merge(MergeInput{
		Collections: collections,
		PatchDay:    r.patchDay,
		PatchDate:   r.patchDate,
		HelpURL:     q.HelpURL,
	})

	r.collections = collections
	r.result = &models.ReportResult{
		Name:      r.Name,
		Year:      r.Year,
		Month:     r.Month,
		PatchDay:  r.patchDay,
		Window:    r.window,
		Kbs:       kbs,
		Summary:   summary,
		StartTime: start,
		EndTime:   time.Now(),
	}
	r.state = Populated

	slog.Info("report complete",
		slog.String("name", r.Name),
		slog.Int("kbs", summary.Total),
		slog.Int("misc_kbs", summary.MiscUpdates),
		slog.Int("cves", summary.CVEs),
		slog.Duration("duration", r.result.EndTime.Sub(start)),
	)
	return r.result, nil
}

// fetchAll runs the three collection fetches and the two bulletin fetches
// concurrently. Each goroutine writes its own field of the result.
func fetchAll(ctx context.Context, g scraper.Getter, q *QueryBuilder, opts Options) (models.Collections, error) {
	var out models.Collections

	officeURL, err := q.OfficeURL()
	if err != nil {
		slog.Warn("skipping office bulletin", slog.Any("error", err))
		officeURL = ""
	}

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		items, err := scraper.FetchCollection[models.Deployment](egCtx, g, opts.Metrics, CollectionDeployment, q.DeploymentURL, opts.Parallelism)
		out.Deployments = items
		return err
	})
	eg.Go(func() error {
		items, err := scraper.FetchCollection[models.AffectedProduct](egCtx, g, opts.Metrics, CollectionAffectedProduct, q.AffectedProductURL, opts.Parallelism)
		out.AffectedProducts = items
		return err
	})
	eg.Go(func() error {
		items, err := scraper.FetchCollection[models.Vulnerability](egCtx, g, opts.Metrics, CollectionVulnerability, q.VulnerabilityURL, opts.Parallelism)
		out.Vulnerabilities = items
		return err
	})
	eg.Go(func() error {
		body, err := g.Get(egCtx, CollectionMisc, q.MiscURL())
		out.MiscHTML = string(body)
		return err
	})
	if officeURL != "" {
		eg.Go(func() error {
			body, err := g.Get(egCtx, CollectionOffice, officeURL)
			out.OfficeHTML = string(body)
			return err
		})
	}

	if err := eg.Wait(); err != nil {
		return models.Collections{}, err
	}
	return out, nil
}
