// Package catalog reads and filters NCBI assembly_summary.txt catalogs.
//
// A catalog is a tab-separated table: the first line is a free-text comment,
// the second line is the column header (prefixed with "# "), and every line
// after that is one assembly. Columns are addressed by header name so a
// reordered or extended catalog still parses.
package catalog

import "strings"

// Column names used from the assembly_summary.txt header.
const (
	ColAssemblyAccession  = "assembly_accession"
	ColOrganismName       = "organism_name"
	ColInfraspecificName  = "infraspecific_name"
	ColIsolate            = "isolate"
	ColAssemblyLevel      = "assembly_level"
	ColFTPPath            = "ftp_path"
	ColGBRSPairedAsm      = "gbrs_paired_asm"
	ColExcludedFromRefSeq = "excluded_from_refseq"
)

// RequiredColumns must be present in every catalog header.
var RequiredColumns = []string{
	ColOrganismName,
	ColInfraspecificName,
	ColIsolate,
	ColAssemblyLevel,
	ColFTPPath,
	ColExcludedFromRefSeq,
}

// Assembly levels that count as complete assemblies.
const (
	LevelCompleteGenome = "Complete Genome"
	LevelChromosome     = "Chromosome"
	LevelScaffold       = "Scaffold"
	LevelContig         = "Contig"
)

// NotExcluded is the excluded_from_refseq value of a RefSeq-eligible record.
const NotExcluded = "na"

// Row is one assembly record from the catalog.
type Row struct {
	AssemblyAccession  string
	OrganismName       string
	InfraspecificName  string // empty when absent
	Isolate            string // empty when absent
	AssemblyLevel      string
	FTPPath            string
	GBRSPairedAsm      string
	ExcludedFromRefSeq string
}

// IsComplete reports whether the assembly is a complete genome or chromosome.
func (r Row) IsComplete() bool {
	return r.AssemblyLevel == LevelCompleteGenome || r.AssemblyLevel == LevelChromosome
}

// IsExcludedFromRefSeq reports whether NCBI excluded the assembly from RefSeq.
func (r Row) IsExcludedFromRefSeq() bool {
	return r.ExcludedFromRefSeq != NotExcluded
}

// HasRefSeqPair reports whether the catalog lists a paired RefSeq assembly.
func (r Row) HasRefSeqPair() bool {
	return r.GBRSPairedAsm != "" && r.GBRSPairedAsm != NotExcluded
}

// missingTokens are cell values treated as an absent optional field.
var missingTokens = map[string]bool{
	"":     true,
	"NaN":  true,
	"nan":  true,
	"NA":   true,
	"N/A":  true,
	"n/a":  true,
	"null": true,
	"NULL": true,
	"None": true,
}

// optional normalizes an optional text cell, mapping missing-value tokens to "".
func optional(v string) string {
	v = strings.TrimSpace(v)
	if missingTokens[v] {
		return ""
	}
	return v
}
