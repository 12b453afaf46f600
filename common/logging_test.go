package common

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogger(&LoggingOpts{
		JSON:    true,
		Service: "registry",
		Version: "v1.2.3",
		Output:  &buf,
	})

	logger.Info("hello", "k", "v")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, "registry", rec["service"])
	assert.Equal(t, "v1.2.3", rec["version"])
	assert.Equal(t, "v", rec["k"])
}

func TestSetupLogger_DebugLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogger(&LoggingOpts{Output: &buf})
	logger.Debug("hidden")
	assert.Empty(t, buf.String())

	buf.Reset()
	logger = SetupLogger(&LoggingOpts{Debug: true, Output: &buf})
	logger.Debug("shown")
	assert.Contains(t, buf.String(), "shown")
}
