package archive

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fluence-lab/internal/domain"
)

func testSamples() []domain.FluxSample {
	base := domain.FractionalYearToHours(2012.5)
	return []domain.FluxSample{
		{Time: base, Flux: 1200},
		{Time: base + 1, Flux: 1350.5},
		{Time: base + 2, Flux: -100000},
		{Time: base + 3, Flux: 0.25},
	}
}

func assertSamplesEqual(t *testing.T, want, got []domain.FluxSample) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.InDelta(t, want[i].Time, got[i].Time, 1e-6, "time[%d]", i)
		assert.Equal(t, want[i].Flux, got[i].Flux, "flux[%d]", i)
	}
}

func TestFileRoundTrip(t *testing.T) {
	samples := testSamples()

	for _, name := range []string{
		"flux.parquet",
		"flux.csv",
		"flux.csv.gz",
		"flux.csv.zst",
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)

			require.NoError(t, WriteFile(path, samples))

			got, err := ReadFile(path)
			require.NoError(t, err)
			assertSamplesEqual(t, samples, got)
		})
	}
}

func TestReadFile_UnsupportedFormat(t *testing.T) {
	_, err := ReadFile("flux.h5")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	err = WriteFile(filepath.Join(t.TempDir(), "flux.txt"), testSamples())
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestReadCSV_SortsAndIgnoresExtraColumns(t *testing.T) {
	input := "year,fp_year,p2,p3\n" +
		"2012,2012.0002,5,20\n" +
		"2012,2012.0001,4,10\n"

	got, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 10.0, got[0].Flux)
	assert.Equal(t, 20.0, got[1].Flux)
	assert.Less(t, got[0].Time, got[1].Time)
}

func TestReadCSV_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"missing column", "fp_year,p2\n2012.1,3\n"},
		{"bad number", "fp_year,p3\n2012.1,abc\n"},
		{"short row", "x,fp_year,p3\n1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestWriteCSV_Header(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, "fp_year,p3\n", buf.String())
}

func TestParquet_InMemory(t *testing.T) {
	samples := testSamples()

	var buf bytes.Buffer
	require.NoError(t, WriteParquet(&buf, samples))

	data := buf.Bytes()
	got, err := ReadParquet(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assertSamplesEqual(t, samples, got)
}

func TestWriteFile_ReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "flux.csv")

	require.NoError(t, WriteFile(path, testSamples()))
	require.NoError(t, WriteFile(path, testSamples()[:1]))

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	// no temp files left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
