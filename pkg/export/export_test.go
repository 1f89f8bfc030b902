package export

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset(rows int) Dataset {
	d := Dataset{Headers: []string{"Student", "Percentage"}, Notes: []string{"Window: 2024-01-01 to 2024-01-31"}}
	for i := 0; i < rows; i++ {
		d.Rows = append(d.Rows, map[string]string{"Student": fmt.Sprintf("Student %d", i), "Percentage": "75%"})
	}
	return d
}

func TestCSVExporterRender(t *testing.T) {
	d := sampleDataset(1)
	d.Rows = append(d.Rows, map[string]string{"Student": "Budi, Jr."})

	out, err := NewCSVExporter().Render(d)
	require.NoError(t, err)
	assert.Equal(t, "Student,Percentage\nStudent 0,75%\n\"Budi, Jr.\",\n", string(out))

	withBOM, err := (&CSVExporter{BOM: true}).Render(d)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(withBOM, []byte("\ufeff")))
}

func TestExportersRequireHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.ErrorIs(t, err, ErrNoHeaders)
	_, err = NewPDFExporter().Render(Dataset{}, "x")
	assert.ErrorIs(t, err, ErrNoHeaders)
}

func TestPDFExporterRenderPaginates(t *testing.T) {
	short, err := NewPDFExporter().Render(sampleDataset(3), "Attendance Report")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(short, []byte("%PDF")))

	long, err := NewPDFExporter().Render(sampleDataset(120), "Attendance Report")
	require.NoError(t, err)
	pages := func(doc []byte) int { return bytes.Count(doc, []byte("/Type /Page")) }
	assert.Greater(t, pages(long), pages(short))
}
