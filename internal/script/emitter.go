// Package script writes the bash download script for derived records.
package script

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rescale/ncbi-refdl/internal/derive"
)

// Shebang is the first line of every emitted script.
const Shebang = "#!/bin/bash"

// FileSuffix is appended to the output prefix to name the script.
const FileSuffix = "_download_script.sh"

// DefaultFilename is used when no output prefix is given.
const DefaultFilename = "download_script.sh"

// unsafeChars are replaced with "-" on every emitted command line.
var unsafeChars = strings.NewReplacer(")", "-", "(", "-", "=", "-", ";", "-")

// WriteError indicates the script could not be written.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write download script %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// IsWriteError checks if an error is (or wraps) a WriteError.
func IsWriteError(err error) bool {
	var we *WriteError
	return errors.As(err, &we)
}

// Path returns the script path for an output prefix.
func Path(prefix string) string {
	if prefix == "" {
		return DefaultFilename
	}
	return prefix + FileSuffix
}

// Line renders one fetch command with shell-unsafe characters scrubbed.
func Line(filename, url string) string {
	return unsafeChars.Replace("wget -O " + filename + " " + url)
}

// Write writes the shebang and one command per record to w.
func Write(w io.Writer, records []derive.Record) error {
	if _, err := io.WriteString(w, Shebang+"\n"); err != nil {
		return err
	}
	for _, rec := range records {
		if _, err := io.WriteString(w, Line(rec.Filename, rec.URL)+"\n"); err != nil {
			return err
		}
	}
	return nil
}

// Emit writes the script for records to path, replacing any existing file.
// The file is flushed and closed on every return path.
func Emit(path string, records []derive.Record) (err error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0755)
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = &WriteError{Path: path, Err: closeErr}
		}
	}()

	writer := bufio.NewWriter(file)
	if err := Write(writer, records); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if err := writer.Flush(); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}
