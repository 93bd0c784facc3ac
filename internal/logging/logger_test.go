package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("debug", "JSON", &buf)
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	logger.WithField("offset", 30000).Info("progress")
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "progress", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.EqualValues(t, 30000, entry["offset"])
	assert.Contains(t, entry, "time")
}

func TestNewTextDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("", "", &buf)
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())

	logger.Debug("hidden")
	logger.Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown")
}

func TestNewRejectsUnknownSettings(t *testing.T) {
	_, err := New("loud", "text", nil)
	assert.Error(t, err)

	_, err = New("info", "xml", nil)
	assert.Error(t, err)
}
