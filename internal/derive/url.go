// Package derive turns catalog rows into (filename, URL) download records.
package derive

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rescale/ncbi-refdl/internal/catalog"
)

// FTPPathSegments is the number of "/"-separated segments in a catalog
// ftp_path, e.g. "ftp:", "", host, "genomes", "all", "GCA", "000", "001",
// "405", "GCA_000001405.1_Assembly".
const FTPPathSegments = 10

// GenomicSuffix is appended to the assembly directory name to form the
// genomic FASTA file name.
const GenomicSuffix = "_genomic.fna.gz"

// Accession prefixes for GenBank and RefSeq assemblies.
const (
	GenBankPrefix = "GCA"
	RefSeqPrefix  = "GCF"
)

// URLError indicates a row whose ftp_path does not have the expected shape.
type URLError struct {
	Accession string
	FTPPath   string
	Segments  int
}

func (e *URLError) Error() string {
	id := e.Accession
	if id == "" {
		id = "<unknown accession>"
	}
	return fmt.Sprintf("cannot derive URL for %s: ftp_path %q has %d segments, expected %d",
		id, e.FTPPath, e.Segments, FTPPathSegments)
}

// IsURLError checks if an error is (or wraps) a URLError.
func IsURLError(err error) bool {
	var ue *URLError
	return errors.As(err, &ue)
}

// URL builds the genomic FASTA URL for row.
//
// With useHTTPS the scheme is forced to https://, otherwise the scheme
// encoded in ftp_path is kept. When includeExcluded is false every GCA is
// rewritten to GCF so the URL points at the RefSeq copy of the assembly.
func URL(row catalog.Row, useHTTPS, includeExcluded bool) (string, error) {
	segments := strings.Split(row.FTPPath, "/")
	if len(segments) != FTPPathSegments {
		return "", &URLError{
			Accession: row.AssemblyAccession,
			FTPPath:   row.FTPPath,
			Segments:  len(segments),
		}
	}

	prefix := segments[0] + "//"
	if useHTTPS {
		prefix = "https://"
	}

	dirName := segments[FTPPathSegments-1]
	url := prefix + strings.Join(segments[2:], "/") + "/" + dirName + GenomicSuffix

	if !includeExcluded {
		url = strings.ReplaceAll(url, GenBankPrefix, RefSeqPrefix)
	}
	return url, nil
}
