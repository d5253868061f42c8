package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerErrorIncludesContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf})

	ctx := context.Background()
	ctx = log.WithRequestID(ctx, "req-123")
	ctx = log.WithUserID(ctx, "184467440737095516")
	ctx = log.WithOrderID(ctx, 42)

	log.Error(ctx, "checkout failed", errors.New("boom"))

	out := buf.String()
	assert.Contains(t, out, `"request_id":"req-123"`)
	assert.Contains(t, out, `"user_id":"184467440737095516"`)
	assert.Contains(t, out, `"order_id":42`)
	assert.Contains(t, out, `"error":"boom"`)
	assert.Contains(t, out, `"stack"`)
}

func TestLoggerWarnStackToggle(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf, WarnStack: true})
	log.Warn(context.Background(), "warny")
	assert.Contains(t, buf.String(), `"stack"`)

	buf.Reset()
	log = New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf})
	log.Warn(context.Background(), "warny")
	assert.NotContains(t, buf.String(), `"stack"`)
}

func TestLoggerLevelFiltersDebug(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("info"), Output: buf})
	log.Debug(context.Background(), "hidden")
	assert.Empty(t, buf.String())
}

func TestNilLoggerIsNoop(t *testing.T) {
	var log *Logger
	ctx := log.WithUserID(context.Background(), "1")
	require.NotNil(t, ctx)
	log.Info(ctx, "nothing")
	log.Error(ctx, "nothing", errors.New("x"))
}

func TestParseLevelDefaults(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("invalid"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" WARN "))
}

func TestLoggerStampsEnvAndInstance(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "api", Env: "prod", Instance: "pod-7", Output: buf})
	log.Info(log.WithFields(context.Background(), map[string]any{"route": "/api/v1/products"}), "request.complete")

	out := buf.String()
	assert.Contains(t, out, `"service":"api"`)
	assert.Contains(t, out, `"env":"prod"`)
	assert.Contains(t, out, `"instance":"pod-7"`)
	assert.Contains(t, out, `"route":"/api/v1/products"`)
}

func TestLoggerPrintfBacksGorm(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "api", Output: buf})
	log.Printf("%s\n[%.3fms] [rows:%v] %s", "orders/repository.go:88 SLOW SQL >= 250ms", 412.5, 3, "SELECT * FROM orders")

	out := buf.String()
	assert.Contains(t, out, `"source":"gorm"`)
	assert.Contains(t, out, `"level":"warn"`)
	assert.Contains(t, out, "SLOW SQL")
	assert.NotContains(t, out, `\n`)
}
