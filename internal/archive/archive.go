// Package archive reads and writes flux archive files.
//
// Two formats are supported: Parquet with columns fp_year and p3, and CSV
// with the same header, optionally gzip (.gz) or zstd (.zst) compressed.
// Times are stored as fractional years and converted to the hour clock
// used by domain.FluxSample.
package archive

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"fluence-lab/internal/domain"
)

// Column names shared by all formats.
const (
	ColumnTime = "fp_year"
	ColumnFlux = "p3"
)

// ErrUnsupportedFormat is returned for file extensions without a reader/writer.
var ErrUnsupportedFormat = errors.New("unsupported archive format")

// ReadFile reads samples from path, choosing the format by extension.
func ReadFile(path string) ([]domain.FluxSample, error) {
	switch formatOf(path) {
	case formatParquet:
		return ReadParquetFile(path)
	case formatCSV:
		return ReadCSVFile(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// WriteFile writes samples to path, choosing the format by extension.
func WriteFile(path string, samples []domain.FluxSample) error {
	switch formatOf(path) {
	case formatParquet:
		return WriteParquetFile(path, samples)
	case formatCSV:
		return WriteCSVFile(path, samples)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

type format int

const (
	formatUnknown format = iota
	formatParquet
	formatCSV
)

func formatOf(path string) format {
	name := strings.ToLower(filepath.Base(path))
	name = strings.TrimSuffix(name, ".gz")
	name = strings.TrimSuffix(name, ".zst")
	switch filepath.Ext(name) {
	case ".parquet":
		return formatParquet
	case ".csv":
		return formatCSV
	}
	return formatUnknown
}

// sortByTime orders samples chronologically in place.
func sortByTime(samples []domain.FluxSample) {
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].Time < samples[j].Time
	})
}

// writeFileAtomic writes via a temp file in the target directory and renames it over path,
// so readers never observe a partially written archive.
func writeFileAtomic(path string, write func(w io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = write(tmp); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
