package archive

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"

	"fluence-lab/internal/domain"
)

// ReadCSV reads "fp_year,p3" rows. The header is required; extra columns are ignored.
func ReadCSV(r io.Reader) ([]domain.FluxSample, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("read csv header: empty input")
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	timeIdx, fluxIdx := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case ColumnTime:
			timeIdx = i
		case ColumnFlux:
			fluxIdx = i
		}
	}
	if timeIdx < 0 || fluxIdx < 0 {
		return nil, fmt.Errorf("csv header must contain %q and %q", ColumnTime, ColumnFlux)
	}
	need := max(timeIdx, fluxIdx) + 1

	var samples []domain.FluxSample
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if len(rec) < need {
			return nil, fmt.Errorf("csv line %d: expected at least %d fields, got %d", line, need, len(rec))
		}

		fpYear, err := strconv.ParseFloat(strings.TrimSpace(rec[timeIdx]), 64)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: parse %s: %w", line, ColumnTime, err)
		}
		flux, err := strconv.ParseFloat(strings.TrimSpace(rec[fluxIdx]), 64)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: parse %s: %w", line, ColumnFlux, err)
		}

		samples = append(samples, domain.FluxSample{
			Time: domain.FractionalYearToHours(fpYear),
			Flux: flux,
		})
	}

	sortByTime(samples)
	return samples, nil
}

// WriteCSV writes samples with a "fp_year,p3" header.
func WriteCSV(w io.Writer, samples []domain.FluxSample) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{ColumnTime, ColumnFlux}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	rec := make([]string, 2)
	for _, s := range samples {
		rec[0] = strconv.FormatFloat(domain.HoursToFractionalYear(s.Time), 'f', -1, 64)
		rec[1] = strconv.FormatFloat(s.Flux, 'g', -1, 64)
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// ReadCSVFile reads a CSV archive, decompressing .gz and .zst files.
func ReadCSVFile(path string) ([]domain.FluxSample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	switch {
	case strings.HasSuffix(path, ".gz"):
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	case strings.HasSuffix(path, ".zst"):
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open zstd %s: %w", path, err)
		}
		defer zr.Close()
		r = zr
	}

	samples, err := ReadCSV(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return samples, nil
}

// WriteCSVFile atomically replaces path with a CSV archive, compressing .gz and .zst files.
func WriteCSVFile(path string, samples []domain.FluxSample) error {
	return writeFileAtomic(path, func(w io.Writer) error {
		switch {
		case strings.HasSuffix(path, ".gz"):
			gz := pgzip.NewWriter(w)
			if err := WriteCSV(gz, samples); err != nil {
				gz.Close()
				return err
			}
			return gz.Close()
		case strings.HasSuffix(path, ".zst"):
			zw, err := zstd.NewWriter(w)
			if err != nil {
				return fmt.Errorf("create zstd writer: %w", err)
			}
			if err := WriteCSV(zw, samples); err != nil {
				zw.Close()
				return err
			}
			return zw.Close()
		default:
			return WriteCSV(w, samples)
		}
	})
}
