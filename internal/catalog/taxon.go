package catalog

import (
	"errors"
	"fmt"
	"strings"
)

// Taxon is an NCBI GenBank taxonomic group with its own assembly summary.
type Taxon string

const (
	Viral    Taxon = "viral"
	Bacteria Taxon = "bacteria"
	Archaea  Taxon = "archaea"
	Protozoa Taxon = "protozoa"
	Fungi    Taxon = "fungi"
)

// Taxa lists the supported groups in display order.
func Taxa() []Taxon {
	return []Taxon{Viral, Bacteria, Archaea, Protozoa, Fungi}
}

// InvalidTaxonError is returned for a group outside the supported set.
type InvalidTaxonError struct {
	Name string
}

func (e *InvalidTaxonError) Error() string {
	names := make([]string, 0, len(Taxa()))
	for _, t := range Taxa() {
		names = append(names, "'"+string(t)+"'")
	}
	return fmt.Sprintf("%s not in list of %s; please double check spelling and try again",
		e.Name, strings.Join(names, ", "))
}

// IsInvalidTaxonError checks if an error is (or wraps) an InvalidTaxonError.
func IsInvalidTaxonError(err error) bool {
	var te *InvalidTaxonError
	return errors.As(err, &te)
}

// ParseTaxon validates name case-insensitively and returns the lower-case group.
func ParseTaxon(name string) (Taxon, error) {
	lower := strings.ToLower(strings.TrimSpace(name))
	for _, t := range Taxa() {
		if string(t) == lower {
			return t, nil
		}
	}
	return "", &InvalidTaxonError{Name: lower}
}

// SummaryFilename is the local cache filename for the group's catalog.
func (t Taxon) SummaryFilename() string {
	return string(t) + "_assembly_summary.txt"
}
