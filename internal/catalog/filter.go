package catalog

import "strings"

// Criteria selects catalog rows. Every enabled condition must hold.
type Criteria struct {
	// Genus is matched as a literal, case-sensitive substring of organism_name.
	// An empty Genus matches every row.
	Genus string

	// IncludeExcluded keeps rows excluded from RefSeq. By default only rows
	// whose excluded_from_refseq is "na" are kept.
	IncludeExcluded bool

	// CompleteOnly keeps only "Complete Genome" and "Chromosome" assemblies.
	CompleteOnly bool
}

// Matches reports whether row satisfies the criteria.
func (c Criteria) Matches(row Row) bool {
	if !strings.Contains(row.OrganismName, c.Genus) {
		return false
	}
	if !c.IncludeExcluded && row.IsExcludedFromRefSeq() {
		return false
	}
	if c.CompleteOnly && !row.IsComplete() {
		return false
	}
	return true
}

// Filter returns the rows matching c in catalog order. The input is not modified.
func Filter(rows []Row, c Criteria) []Row {
	filtered := make([]Row, 0, len(rows))
	for _, row := range rows {
		if c.Matches(row) {
			filtered = append(filtered, row)
		}
	}
	return filtered
}
