package common

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupLogger(t *testing.T) {
	var buf bytes.Buffer
	log := SetupLogger(&LoggingOpts{
		JSON:    true,
		Service: "relay",
		Version: "v1.2.3",
		Writer:  &buf,
	})

	log.Debug("hidden")
	log.Info("visible", "key", "value")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "visible", entry["msg"])
	require.Equal(t, "relay", entry["service"])
	require.Equal(t, "v1.2.3", entry["version"])
	require.Equal(t, "value", entry["key"])

	buf.Reset()
	log = SetupLogger(&LoggingOpts{Debug: true, Writer: &buf})
	log.Debug("shown")
	require.Contains(t, buf.String(), "msg=shown")
}
