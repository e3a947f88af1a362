package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterKeepsHeaderOrder(t *testing.T) {
	out, err := NewCSVExporter().Render(Dataset{
		Headers: []string{"id", "status"},
		Rows: []map[string]string{
			{"status": "pending", "id": "req-1"},
			{"id": "req-2", "status": "approved", "ignored": "x"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "id,status\nreq-1,pending\nreq-2,approved\n", string(out))
}

func TestExportersRequireHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRendersDocument(t *testing.T) {
	out, err := NewPDFExporter().Render(Dataset{
		Title:   "Approval queue",
		Headers: []string{"id", "reason"},
		Rows:    []map[string]string{{"id": "req-1", "reason": "a very long justification that will not fit inside a single table cell at all"}},
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestTruncateCell(t *testing.T) {
	assert.Equal(t, "short", truncateCell("short"))
	long := truncateCell(string(bytes.Repeat([]byte("a"), 100)))
	assert.Len(t, long, pdfMaxCell)
}

func TestCSVExporterEscapesFormulaCells(t *testing.T) {
	out, err := NewCSVExporter().Render(Dataset{
		Headers: []string{"id", "reason"},
		Rows: []map[string]string{
			{"id": "req-1", "reason": "=HYPERLINK(\"http://x\")"},
			{"id": "req-2", "reason": "@sum"},
			{"id": "req-3", "reason": "plain"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "id,reason\nreq-1,\"'=HYPERLINK(\"\"http://x\"\")\"\nreq-2,'@sum\nreq-3,plain\n", string(out))
}

func TestCSVExporterWritesByteOrderMark(t *testing.T) {
	var buf bytes.Buffer
	err := NewCSVExporter(WithByteOrderMark()).Write(&buf, Dataset{
		Headers: []string{"id"},
		Rows:    []map[string]string{{"id": "req-1"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "\ufeffid\nreq-1\n", buf.String())
}
