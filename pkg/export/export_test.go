package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:   "Q3 Review",
		Meta:    []Field{{Label: "Reviewer", Value: "Mia Lopez"}},
		Headers: []string{"Order", "Prompt", "Reviewer Answer"},
		Rows: []map[string]string{
			{"Order": "1", "Prompt": "Key achievements, highlights", "Reviewer Answer": "Shipped X"},
			{"Order": "2", "Prompt": "Collaboration"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	expected := "Order,Prompt,Reviewer Answer\n1,\"Key achievements, highlights\",Shipped X\n2,Collaboration,\n"
	assert.Equal(t, expected, string(out))
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))

	_, err = NewPDFExporter().Render(Dataset{})
	assert.Error(t, err)
}
