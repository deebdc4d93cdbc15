package observability

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"bagsoflaundry.com/web/internal/platform/requestctx"
)

func TestRequestLoggerLevelsByStatus(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	r := chi.NewRouter()
	r.Use(InjectLogger(logger), RequestLogger)
	r.Get("/ok", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Post("/start-basic", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusBadRequest) })
	r.Get("/broken", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusServiceUnavailable) })

	for _, tc := range []struct {
		method, path string
		level        zapcore.Level
	}{
		{http.MethodGet, "/ok", zapcore.InfoLevel},
		{http.MethodPost, "/start-basic", zapcore.WarnLevel},
		{http.MethodGet, "/broken", zapcore.ErrorLevel},
	} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(tc.method, tc.path, nil))
		entries := logs.TakeAll()
		require.Len(t, entries, 1)
		require.Equal(t, tc.level, entries[0].Level)
		require.Equal(t, tc.path, entries[0].ContextMap()["route"])
	}
}

func TestRecoveryAnswers500(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := InjectLogger(zap.New(core))(Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}

func TestTraceContinuesCloudTraceHeader(t *testing.T) {
	var got requestctx.TraceInfo
	h := Trace("bol-prod")(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got, _ = requestctx.Trace(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/checkout", nil)
	req.Header.Set(CloudTraceHeader, "105445aa7843bc8bf206b12000100000/1;o=1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	// the global no-op tracer propagates the remote span context unchanged
	require.Equal(t, "105445aa7843bc8bf206b12000100000", got.TraceID)
	require.Equal(t, "bol-prod", got.ProjectID)
	require.True(t, got.Sampled)
}

func TestParseCloudTrace(t *testing.T) {
	sc, ok := parseCloudTrace("105445aa7843bc8bf206b12000100000/123;o=0")
	require.True(t, ok)
	require.False(t, sc.IsSampled())
	require.Equal(t, "000000000000007b", sc.SpanID().String())

	for _, bad := range []string{"", "abc/1", "105445aa7843bc8bf206b12000100000", "105445aa7843bc8bf206b12000100000/"} {
		_, ok := parseCloudTrace(bad)
		require.False(t, ok, bad)
	}
}

func TestSanitize(t *testing.T) {
	require.Equal(t, "/", SanitizeRoute(""))
	require.Equal(t, "GETX", SanitizeMethod("GET\x00X"))
	require.Len(t, SanitizeField(strings.Repeat("a", 100)), 64)
	require.Equal(t, strings.Repeat("🧺", 64), SanitizeField(strings.Repeat("🧺", 70)))
	require.Equal(t, "/addonsforged", SanitizeRoute("/addons\r\nforged"))
}

func TestMaskEmail(t *testing.T) {
	require.Equal(t, "s***@example.com", MaskEmail(" sam@example.com "))
	require.Equal(t, "é***@example.com", MaskEmail("élise@example.com"))
	require.Equal(t, "***", MaskEmail("not-an-email"))
	require.Equal(t, "***", MaskEmail("@example.com"))
}

func TestNewLoggerTagsService(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.json")
	logger, err := newLogger("info", []string{path})
	require.NoError(t, err)
	logger.Info("order draft received")
	require.NoError(t, logger.Sync())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(raw, &entry))
	require.Equal(t, ServiceName, entry["service"])
	require.Equal(t, "INFO", entry["severity"])
	require.Equal(t, "order draft received", entry["message"])
}

func TestNewLoggerDefaultsToInfo(t *testing.T) {
	logger, err := newLogger("bogus", []string{"stderr"})
	require.NoError(t, err)
	require.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	require.True(t, logger.Core().Enabled(zapcore.InfoLevel))

	logger, err = newLogger("debug", []string{"stderr"})
	require.NoError(t, err)
	require.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}
