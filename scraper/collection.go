package scraper

import (
	"context"
	"log/slog"

	"github.com/aluiziolira/go-patch-report/models"
	"github.com/aluiziolira/go-patch-report/parser"
	"golang.org/x/sync/errgroup"
)

// PageURL renders the request URL for the page starting at skip.
type PageURL func(skip int) string

// FetchCollection fetches page 0 of a collection, then every remaining page
// the reported total calls for. Follow-up pages run concurrently, at most
// parallelism at a time, and are reassembled in offset order.
func FetchCollection[T any](ctx context.Context, g Getter, m *Metrics, collection string, pageURL PageURL, parallelism int) ([]T, error) {
	first, err := fetchPage[T](ctx, g, m, collection, pageURL(0))
	if err != nil {
		return nil, err
	}

	items := first.Value
	offsets := PageOffsets(int(first.Count), len(items))
	if len(offsets) == 0 {
		return items, nil
	}

	slog.Debug("paginating collection",
		slog.String("collection", collection),
		slog.Int("count", int(first.Count)),
		slog.Int("page_size", len(items)),
		slog.Int("pages", len(offsets)+1),
	)

	pages := make([][]T, len(offsets))
	eg, egCtx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		eg.SetLimit(parallelism)
	}
	for i, skip := range offsets {
		eg.Go(func() error {
			page, err := fetchPage[T](egCtx, g, m, collection, pageURL(skip))
			if err != nil {
				return err
			}
			pages[i] = page.Value
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	for _, page := range pages {
		items = append(items, page...)
	}
	return items, nil
}

// PageOffsets returns the skip values of the pages after the first, given
// the collection total and the size of the first page. An empty first page
// yields no further pages.
func PageOffsets(count, pageSize int) []int {
	if pageSize <= 0 || count <= pageSize {
		return nil
	}
	var offsets []int
	for skip := pageSize; skip < count; skip += pageSize {
		offsets = append(offsets, skip)
	}
	return offsets
}

func fetchPage[T any](ctx context.Context, g Getter, m *Metrics, collection, url string) (*models.CollectionPage[T], error) {
	body, err := g.Get(ctx, collection, url)
	if err != nil {
		return nil, err
	}
	page, err := parser.DecodePage[T](collection, body)
	if err != nil {
		m.IncError("parse")
		return nil, &FetchError{Collection: collection, URL: url, Err: err}
	}
	m.AddPage(collection, len(page.Value))
	return page, nil
}
