package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVRender(t *testing.T) {
	exporter := NewCSVExporter()
	content, err := exporter.Render(Dataset{
		Headers: []string{"ID", "Status"},
		Rows: [][]string{
			{"op-1", "approved"},
			{"op-2", "pending"},
		},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "ID,Status", lines[0])
	assert.Equal(t, "op-1,approved", lines[1])
}

func TestCSVRenderPadsShortRows(t *testing.T) {
	exporter := NewCSVExporter()
	content, err := exporter.Render(Dataset{
		Headers: []string{"ID", "Status", "Reason"},
		Rows:    [][]string{{"op-1"}},
	})
	require.NoError(t, err)
	assert.Contains(t, string(content), "op-1,,")
}

func TestCSVRenderRequiresHeaders(t *testing.T) {
	exporter := NewCSVExporter()
	_, err := exporter.Render(Dataset{})
	require.Error(t, err)
}

func TestPDFRender(t *testing.T) {
	exporter := NewPDFExporter()
	content, err := exporter.Render(Dataset{
		Headers: []string{"ID", "Status"},
		Rows:    [][]string{{"op-1", "approved"}},
	}, "Outpass History")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(content, []byte("%PDF")))
}
