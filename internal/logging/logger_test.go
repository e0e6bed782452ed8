package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONIncludesAttributes(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, "json")
	require.NoError(t, err)

	l.With("client", "abc").Warn(context.Background(), "storage unavailable", "attempt", 2)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "storage unavailable", entry["msg"])
	assert.Equal(t, "abc", entry["client"])
	assert.EqualValues(t, 2, entry["attempt"])
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, "text")
	require.NoError(t, err)

	l.Info(context.Background(), "ready")
	assert.Contains(t, buf.String(), "msg=ready")
}

func TestNew_RejectsUnknownFormat(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "xml")
	assert.Error(t, err)
}
