package pipeline

import (
	"github.com/couchcryptid/ndfd-forecast-etl/internal/domain"
	"github.com/couchcryptid/ndfd-forecast-etl/internal/summary"
)

// SummaryStore reads coalesced series and writes summaries.
type SummaryStore interface {
	ReadRecords(path string) ([]domain.CoalescedRecord, error)
	WriteSummaries(path string, summaries []domain.Summary) error
}

// SummarizeFile writes half-month statistics of the series at in to out and
// returns the number of summary rows.
func SummarizeFile(store SummaryStore, in, out string) (int, error) {
	records, err := store.ReadRecords(in)
	if err != nil {
		return 0, err
	}
	summaries := summary.Summarize(records)
	if err := store.WriteSummaries(out, summaries); err != nil {
		return 0, err
	}
	return len(summaries), nil
}
