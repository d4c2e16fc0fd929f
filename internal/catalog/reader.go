package catalog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// maxLineSize bounds a single catalog line. Real rows are well under 4 KB.
const maxLineSize = 1024 * 1024

// FormatError indicates a catalog that cannot be interpreted as an
// assembly summary, e.g. a truncated download or a file missing columns.
type FormatError struct {
	Path    string
	Missing []string
	Reason  string
}

func (e *FormatError) Error() string {
	where := "catalog"
	if e.Path != "" {
		where = "catalog " + e.Path
	}
	if len(e.Missing) > 0 {
		return fmt.Sprintf("%s: missing required columns: %s", where, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("%s: %s", where, e.Reason)
}

// IsFormatError checks if an error is (or wraps) a FormatError.
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}

// ReadFile opens and parses the catalog at path.
func ReadFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()

	rows, err := Read(f)
	if err != nil {
		var fe *FormatError
		if errors.As(err, &fe) {
			fe.Path = path
			return nil, fe
		}
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return rows, nil
}

// Read parses an assembly summary from r. The first line is skipped, the
// second line is the header, and the rest are data rows. Rows shorter than
// the header are padded with empty cells.
func Read(r io.Reader) ([]Row, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	// Metadata line
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, &FormatError{Reason: "empty file"}
	}

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		return nil, &FormatError{Reason: "missing header line"}
	}

	index, err := parseHeader(scanner.Text())
	if err != nil {
		return nil, err
	}

	var rows []Row
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		rows = append(rows, index.row(strings.Split(line, "\t")))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return rows, nil
}

// columnIndex maps header names to field positions.
type columnIndex map[string]int

func parseHeader(line string) (columnIndex, error) {
	fields := strings.Split(strings.TrimRight(line, "\r"), "\t")
	index := make(columnIndex, len(fields))
	for i, name := range fields {
		name = strings.TrimSpace(strings.TrimLeft(name, "#"))
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &FormatError{Missing: missing}
	}
	return index, nil
}

func (c columnIndex) get(fields []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(fields) {
		return ""
	}
	return fields[i]
}

func (c columnIndex) row(fields []string) Row {
	return Row{
		AssemblyAccession:  strings.TrimSpace(c.get(fields, ColAssemblyAccession)),
		OrganismName:       c.get(fields, ColOrganismName),
		InfraspecificName:  optional(c.get(fields, ColInfraspecificName)),
		Isolate:            optional(c.get(fields, ColIsolate)),
		AssemblyLevel:      strings.TrimSpace(c.get(fields, ColAssemblyLevel)),
		FTPPath:            strings.TrimSpace(c.get(fields, ColFTPPath)),
		GBRSPairedAsm:      strings.TrimSpace(c.get(fields, ColGBRSPairedAsm)),
		ExcludedFromRefSeq: strings.TrimSpace(c.get(fields, ColExcludedFromRefSeq)),
	}
}
