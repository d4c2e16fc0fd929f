package derive

import (
	"fmt"

	"github.com/rescale/ncbi-refdl/internal/catalog"
)

// Policy decides what happens when a single row cannot be derived.
type Policy int

const (
	// PolicySkip drops the row (filename and URL together) and reports it.
	PolicySkip Policy = iota
	// PolicyAbort fails the whole derivation on the first bad row.
	PolicyAbort
)

// String returns a human-readable name for a Policy.
func (p Policy) String() string {
	switch p {
	case PolicySkip:
		return "skip"
	case PolicyAbort:
		return "abort"
	default:
		return "unknown"
	}
}

// Options controls URL derivation for a batch of rows.
type Options struct {
	UseHTTPS        bool
	IncludeExcluded bool
	Policy          Policy
}

// Record pairs the output filename and download URL of one catalog row.
type Record struct {
	// Index is the row's position in the filtered input.
	Index     int
	Accession string
	Filename  string
	URL       string
}

// All derives a Record for every row, in row order. Filename and URL come
// from the same row in the same iteration, so a skipped row removes both.
//
// Under PolicySkip, rows whose URL cannot be derived are returned in skipped
// and the remaining rows are still derived. Under PolicyAbort the first
// such row is returned as err.
func All(rows []catalog.Row, opts Options) (records []Record, skipped []error, err error) {
	records = make([]Record, 0, len(rows))
	for i, row := range rows {
		url, urlErr := URL(row, opts.UseHTTPS, opts.IncludeExcluded)
		if urlErr != nil {
			if opts.Policy == PolicyAbort {
				return nil, nil, fmt.Errorf("row %d: %w", i, urlErr)
			}
			skipped = append(skipped, urlErr)
			continue
		}

		records = append(records, Record{
			Index:     i,
			Accession: row.AssemblyAccession,
			Filename:  Filename(row),
			URL:       url,
		})
	}
	return records, skipped, nil
}
