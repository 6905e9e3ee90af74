package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"onboard/internal/platform/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, config.Log{Level: "info", Format: "json"})
	log.Debug("hidden")
	log.Info("case submitted", "user_id", "u-1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "case submitted", line["msg"])
	assert.Equal(t, "u-1", line["user_id"])
	assert.Equal(t, "onboard", line["service"])
}

func TestNewWithWriter_Text(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, config.Log{Level: "debug", Format: "text"})
	log.Debug("sweeping")
	assert.Contains(t, buf.String(), "msg=sweeping")
}
