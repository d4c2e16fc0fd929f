package derive

import (
	"strings"

	"github.com/rescale/ncbi-refdl/internal/catalog"
)

// FastaSuffix is the extension of every derived filename.
const FastaSuffix = ".fna.gz"

var (
	organismReplacer  = strings.NewReplacer(" ", "_", "/", "-")
	qualifierReplacer = strings.NewReplacer("strain=", "_", " ", "_", "/", "-")
)

// Filename builds a human-readable output filename from the organism,
// strain, and isolate of row:
//
//	organism + strain + "_" + isolate + ".fna.gz"
//
// Spaces become "_" and "/" becomes "-". A "strain=" tag also becomes "_".
// An absent strain leaves a single "_" in its place, so a row with neither
// strain nor isolate ends in "__.fna.gz".
func Filename(row catalog.Row) string {
	organism := organismReplacer.Replace(row.OrganismName)

	strain := "_"
	if row.InfraspecificName != "" {
		strain = qualifierReplacer.Replace(row.InfraspecificName)
	}

	isolate := "_" + qualifierReplacer.Replace(row.Isolate)

	return organism + strain + isolate + FastaSuffix
}
