package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Checker 就绪检查，例如数据库或 Redis 的 Ping
type Checker func(ctx context.Context) error

// HTTPRecorder 接收请求指标，metrics.Collector 实现该接口
type HTTPRecorder interface {
	RecordHTTPRequest(method, path string, status int, duration time.Duration)
}

// OpsOptions 运维端点配置
type OpsOptions struct {
	Gatherer     prometheus.Gatherer
	Checks       map[string]Checker
	Version      string
	CheckTimeout time.Duration
	Recorder     HTTPRecorder
	Logger       *zap.Logger
}

type checkResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type readiness struct {
	Status string                 `json:"status"`
	Checks map[string]checkResult `json:"checks"`
}

// NewOpsHandler 挂载 /healthz、/readyz、/metrics 与 /version
func NewOpsHandler(opts OpsOptions) http.Handler {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if opts.CheckTimeout <= 0 {
		opts.CheckTimeout = 3 * time.Second
	}
	logger := opts.Logger.With(zap.String("component", "ops_http"))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), opts.CheckTimeout)
		defer cancel()

		status, body := runChecks(ctx, opts.Checks)
		if status != http.StatusOK {
			logger.Warn("readiness check failed", zap.Any("checks", body.Checks))
		}
		writeJSON(w, status, body)
	})
	mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"version": opts.Version})
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{
		ErrorLog: zap.NewStdLog(logger),
	}))

	if opts.Recorder == nil {
		return mux
	}
	return instrument(mux, opts.Recorder)
}

func runChecks(ctx context.Context, checks map[string]Checker) (int, readiness) {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	body := readiness{Status: "ok", Checks: make(map[string]checkResult, len(checks))}
	status := http.StatusOK
	for _, name := range names {
		if err := checks[name](ctx); err != nil {
			body.Checks[name] = checkResult{Status: "down", Error: err.Error()}
			body.Status = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		body.Checks[name] = checkResult{Status: "up"}
	}
	return status, body
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func instrument(next http.Handler, rec HTTPRecorder) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		rec.RecordHTTPRequest(r.Method, r.URL.Path, sw.status, time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
