package export

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"Student Name", "Email", "Status"},
		Rows: []map[string]string{
			{"Student Name": "Jane Doe", "Email": "jane@x.com", "Status": "Active"},
			{"Student Name": "John Roe", "Status": "Pending"},
		},
	}
}

func TestCSVExporter(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset(), "ignored")
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Student Name", "Email", "Status"},
		{"Jane Doe", "jane@x.com", "Active"},
		{"John Roe", "", "Pending"},
	}, records)
}

func TestPDFExporter(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset(), "Students")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestXLSXExporter(t *testing.T) {
	out, err := NewXLSXExporter("Students").Render(sampleDataset(), "Students")
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck

	rows, err := f.GetRows("Students")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Student Name", "Email", "Status"}, rows[0])
	assert.Equal(t, "Jane Doe", rows[1][0])
	assert.Equal(t, "Pending", rows[2][2])
}

func TestRenderersRequireHeaders(t *testing.T) {
	for _, r := range []Renderer{NewCSVExporter(), NewPDFExporter(), NewXLSXExporter("")} {
		_, err := r.Render(Dataset{}, "")
		assert.Error(t, err, r.Extension())
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate(" short ", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
