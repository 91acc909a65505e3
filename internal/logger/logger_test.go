package logger_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/ibeckermayer/tgharvest/internal/logger"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"bogus", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, logger.ParseLevel(tt.in))
		})
	}
}

func TestNew_WritesJSONToOutputPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scraping.log")

	log, err := logger.New(logger.Config{Level: "info", Development: true, OutputPaths: []string{path}})
	require.NoError(t, err)

	log.With(logger.String("channel", "DoctorsET")).Info("Scraped channel", logger.Int("messages", 3))
	log.Debug("hidden below info")
	log.Error("failed", logger.Error(errors.New("boom")))
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, `"msg":"Scraped channel"`)
	assert.Contains(t, out, `"channel":"DoctorsET"`)
	assert.Contains(t, out, `"messages":3`)
	assert.Contains(t, out, `"error":"boom"`)
	assert.False(t, strings.Contains(out, "hidden below info"))
}

func TestNewNop(t *testing.T) {
	log := logger.NewNop()
	log.Info("nothing", logger.Bool("ok", true))
	assert.NotNil(t, log.With(logger.Int64("id", 1)))
}
