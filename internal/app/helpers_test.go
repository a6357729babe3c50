package app

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

// dropTime strips the time attribute from one JSON log line.
func dropTime(t *testing.T, line []byte) string {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(line, &m))
	delete(m, "time")
	out, err := json.Marshal(m)
	require.NoError(t, err)
	return string(out)
}
