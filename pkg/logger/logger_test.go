package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	return entry
}

func TestNewWithWriter_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("debug", "json", &buf)

	log.WithField("service", "dashboard").Info("fetched", Field{Key: "endpoint", Value: "all"})

	entry := decodeLine(t, &buf)
	assert.Equal(t, "fetched", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "dashboard", entry["service"])
	assert.Equal(t, "all", entry["endpoint"])
}

func TestNewWithWriter_UnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("chatty", "json", &buf)

	log.Debug("hidden")
	assert.Zero(t, buf.Len())

	log.Info("shown")
	assert.NotZero(t, buf.Len())
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", "json", &buf)

	log.WithError(errors.New("boom")).Error("request failed")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "boom", entry["error"])
}

func TestErrField(t *testing.T) {
	assert.Equal(t, Field{Key: "error", Value: "boom"}, Err(errors.New("boom")))
	assert.Nil(t, Err(nil).Value)
}

func TestSetDefault(t *testing.T) {
	prev := Default()
	defer SetDefault(prev)

	var buf bytes.Buffer
	SetDefault(NewWithWriter("info", "json", &buf))
	WithFields(Fields{"region": "US"}).Warn("stale")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "warning", entry["level"])
	assert.Equal(t, "US", entry["region"])
}
