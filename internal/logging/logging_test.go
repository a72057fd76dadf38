package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zap.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zap.WarnLevel, ParseLevel(" WARN "))
	assert.Equal(t, zap.InfoLevel, ParseLevel("nonsense"))
	assert.Equal(t, zap.InfoLevel, ParseLevel(""))
}

func TestLevelerPerName(t *testing.T) {
	l := GetLeveler()

	_ = New("leveler-test")
	l.SetLevel("leveler-test", zap.ErrorLevel)
	assert.Equal(t, zap.ErrorLevel, l.GetLevel("leveler-test"))

	logger := New("leveler-test")
	assert.False(t, logger.Desugar().Core().Enabled(zap.WarnLevel))
	assert.True(t, logger.Desugar().Core().Enabled(zap.ErrorLevel))
}

func TestSetAllAppliesToExistingAndNewLoggers(t *testing.T) {
	l := GetLeveler()
	t.Cleanup(func() { l.SetAll(zap.InfoLevel) })

	existing := New("set-all-existing")
	l.SetAll(zap.DebugLevel)

	assert.True(t, existing.Desugar().Core().Enabled(zap.DebugLevel))
	assert.Equal(t, zap.DebugLevel, l.GetLevel("set-all-new"))

	created := New("set-all-new")
	assert.True(t, created.Desugar().Core().Enabled(zap.DebugLevel))
}

func TestConfigure(t *testing.T) {
	t.Cleanup(func() { Configure("info", "console") })

	Configure("warn", "json")
	logger := New("configure-test")
	assert.False(t, logger.Desugar().Core().Enabled(zap.InfoLevel))
	assert.True(t, logger.Desugar().Core().Enabled(zap.WarnLevel))
}

var early = New("encoding-early")

func TestConfigureSwitchesExistingLoggers(t *testing.T) {
	var buf bytes.Buffer
	output(zapcore.AddSync(&buf))
	t.Cleanup(func() {
		cfgMu.Lock()
		sink = nil
		cfgMu.Unlock()
		Configure("info", "console")
	})

	Configure("info", "json")
	early.With(zap.Int("priority", 7)).Info("hello")

	line := strings.TrimSpace(buf.String())
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
	assert.Equal(t, "encoding-early", entry["logger"])
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, float64(7), entry["priority"])
	assert.Contains(t, entry["caller"], "logging_test.go")

	buf.Reset()
	Configure("info", "console")
	early.Info("again")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
	assert.Contains(t, buf.String(), "encoding-early")
}
