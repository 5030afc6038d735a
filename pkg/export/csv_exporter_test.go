package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVRender(t *testing.T) {
	exporter := NewCSVExporter()
	payload, err := exporter.Render(Dataset{
		Headers: []string{"Day", "Course", "Room"},
		Rows: []map[string]string{
			{"Day": "Monday", "Course": "Calculus II", "Room": "A-101"},
			{"Day": "Tuesday", "Course": "Statistics I"},
		},
	})
	require.NoError(t, err)

	body := string(payload)
	assert.True(t, strings.HasPrefix(body, "\ufeffDay,Course,Room"), "output starts with a BOM and the header row")
	assert.Contains(t, body, "Monday,Calculus II,A-101")
	// Missing cells render empty, in header order.
	assert.Contains(t, body, "Tuesday,Statistics I,")
}

func TestCSVRenderRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
}
