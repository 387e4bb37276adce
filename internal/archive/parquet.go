package archive

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	"fluence-lab/internal/domain"
)

// parquetRow is the on-disk row layout.
type parquetRow struct {
	FpYear float64 `parquet:"fp_year"`
	P3     float64 `parquet:"p3"`
}

const parquetReadBatch = 4096

// ReadParquet reads all rows from a Parquet file and returns samples ordered by time.
func ReadParquet(r io.ReaderAt, size int64) ([]domain.FluxSample, error) {
	pf, err := parquet.OpenFile(r, size)
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}

	for _, col := range []string{ColumnTime, ColumnFlux} {
		if _, ok := pf.Schema().Lookup(col); !ok {
			return nil, fmt.Errorf("parquet schema missing column %q", col)
		}
	}

	reader := parquet.NewGenericReader[parquetRow](pf)
	defer reader.Close()

	samples := make([]domain.FluxSample, 0, reader.NumRows())
	rows := make([]parquetRow, parquetReadBatch)
	for {
		n, err := reader.Read(rows)
		for _, row := range rows[:n] {
			samples = append(samples, domain.FluxSample{
				Time: domain.FractionalYearToHours(row.FpYear),
				Flux: row.P3,
			})
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read parquet rows: %w", err)
		}
		if n == 0 {
			break
		}
	}

	sortByTime(samples)
	return samples, nil
}

// ReadParquetFile reads samples from a Parquet file on disk.
func ReadParquetFile(path string) ([]domain.FluxSample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	samples, err := ReadParquet(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return samples, nil
}

// WriteParquet writes samples as Parquet rows to w.
func WriteParquet(w io.Writer, samples []domain.FluxSample) error {
	writer := parquet.NewGenericWriter[parquetRow](w)

	rows := make([]parquetRow, len(samples))
	for i, s := range samples {
		rows[i] = parquetRow{FpYear: domain.HoursToFractionalYear(s.Time), P3: s.Flux}
	}

	if _, err := writer.Write(rows); err != nil {
		return fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}

// WriteParquetFile atomically replaces path with a Parquet file of samples.
func WriteParquetFile(path string, samples []domain.FluxSample) error {
	return writeFileAtomic(path, func(w io.Writer) error {
		return WriteParquet(w, samples)
	})
}
