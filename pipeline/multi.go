package pipeline

import (
	"errors"

	"github.com/aluiziolira/go-patch-report/models"
)

// MultiWriter passes every call to each of its writers in turn. WriteReport
// stops at the first failure; Close and Validate visit all writers.
type MultiWriter []OutputWriter

func (mw MultiWriter) WriteReport(report *models.ReportResult, kbs []*models.Kb) error {
	for _, w := range mw {
		if err := w.WriteReport(report, kbs); err != nil {
			return err
		}
	}
	return nil
}

func (mw MultiWriter) Close() error {
	var errs []error
	for _, w := range mw {
		errs = append(errs, w.Close())
	}
	return errors.Join(errs...)
}

func (mw MultiWriter) Validate() error {
	var errs []error
	for _, w := range mw {
		errs = append(errs, w.Validate())
	}
	return errors.Join(errs...)
}
