// Package pipeline validates the KBs of finished reports and hands them to
// one or more export writers.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aluiziolira/go-patch-report/models"
	"github.com/aluiziolira/go-patch-report/parser"
)

var (
	// ErrPipelineClosed is returned when Process is called after shutdown.
	ErrPipelineClosed = errors.New("pipeline: closed")
)

// OutputWriter receives the KBs of one report, possibly across several calls.
// Every processed report reaches the writer at least once, with an empty
// slice when it has no KBs.
type OutputWriter interface {
	WriteReport(report *models.ReportResult, kbs []*models.Kb) error
	Close() error
	// Validate checks the closed output against what was written.
	Validate() error
}

// Pipeline validates and de-duplicates report KBs and writes them in
// batches. KBs are unique per report month; a KB recurring in another month
// is written again under that month. Input order is preserved.
type Pipeline struct {
	writer    OutputWriter
	batchSize int
	seen      map[string]struct{}

	metrics metrics

	mu     sync.Mutex // guards everything above
	closed bool
	err    error
}

// NewPipeline builds a pipeline that writes at most batchSize KBs per call.
func NewPipeline(writer OutputWriter, batchSize int) *Pipeline {
	if batchSize <= 0 {
		batchSize = 64
	}
	return &Pipeline{
		writer:    writer,
		batchSize: batchSize,
		seen:      make(map[string]struct{}),
		metrics:   newMetrics(),
	}
}

// Process writes the valid, previously unseen KBs of report.
func (p *Pipeline) Process(report *models.ReportResult) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}
	if p.closed {
		return ErrPipelineClosed
	}

	period := report.Period()
	kbs := make([]*models.Kb, 0, len(report.Kbs))
	for _, kb := range report.Kbs {
		if p.accept(period, kb) {
			kbs = append(kbs, kb)
		}
	}

	if len(kbs) == 0 {
		if err := p.writeLocked(report, kbs); err != nil {
			return err
		}
	}
	for start := 0; start < len(kbs); start += p.batchSize {
		end := min(start+p.batchSize, len(kbs))
		if err := p.writeLocked(report, kbs[start:end]); err != nil {
			return err
		}
	}
	p.metrics.addReport()
	return nil
}

// Close prevents more submissions. The writer is left open for the caller.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	return p.err
}

// Err returns the first error encountered during processing.
func (p *Pipeline) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// GetMetrics returns a snapshot of the internal counters.
func (p *Pipeline) GetMetrics() map[string]interface{} {
	return p.metrics.snapshot()
}

func (p *Pipeline) writeLocked(report *models.ReportResult, kbs []*models.Kb) error {
	if err := p.writer.WriteReport(report, kbs); err != nil {
		p.err = fmt.Errorf("write %s: %w", report.Period(), err)
		p.closed = true
		return p.err
	}
	p.metrics.addWritten(len(kbs))
	return nil
}

func (p *Pipeline) accept(period string, kb *models.Kb) bool {
	if err := parser.ValidateKb(kb); err != nil {
		slog.Debug("dropping invalid kb", slog.String("period", period), slog.Any("error", err))
		p.metrics.addValidation("invalid_record")
		return false
	}

	key := period + "/" + kb.Kb
	if _, ok := p.seen[key]; ok {
		p.metrics.addValidation("duplicate_kb")
		return false
	}
	p.seen[key] = struct{}{}

	p.metrics.incrementProcessed()
	return true
}

type metrics struct {
	mu         sync.Mutex
	reports    int64
	processed  int64
	written    int64
	validation map[string]int
}

func newMetrics() metrics {
	return metrics{
		validation: make(map[string]int),
	}
}

func (m *metrics) addReport() {
	m.mu.Lock()
	m.reports++
	m.mu.Unlock()
}

func (m *metrics) incrementProcessed() {
	m.mu.Lock()
	m.processed++
	m.mu.Unlock()
}

func (m *metrics) addWritten(n int) {
	m.mu.Lock()
	m.written += int64(n)
	m.mu.Unlock()
}

func (m *metrics) addValidation(kind string) {
	m.mu.Lock()
	m.validation[kind]++
	m.mu.Unlock()
}

func (m *metrics) snapshot() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	copyValidation := make(map[string]int, len(m.validation))
	for k, v := range m.validation {
		copyValidation[k] = v
	}

	return map[string]interface{}{
		"reports":           m.reports,
		"processed_kbs":     m.processed,
		"written_kbs":       m.written,
		"validation_errors": copyValidation,
	}
}
