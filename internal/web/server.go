// Package web exposes the labeling session over HTTP. Handlers follow a
// catch-message-continue discipline: every failure becomes a JSON error
// response and the session keeps its last successful state.
package web

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/lanelab/frameview/internal/export"
	"github.com/lanelab/frameview/internal/history"
	"github.com/lanelab/frameview/internal/session"
)

// ANSI escape codes for request log colouring
const (
	colorReset     = "\033[0m"
	colorYellow    = "\033[33m"
	colorBoldGreen = "\033[1;32m"
	colorBoldRed   = "\033[1;31m"
)

// Server wires the session, exporter and history log into HTTP handlers.
type Server struct {
	session    *session.Session
	exporter   *export.Exporter
	history    *history.Store
	imageRoots []string
}

// NewServer creates the handler set. history may be nil when auditing is
// disabled (some tests run without it).
func NewServer(sess *session.Session, exp *export.Exporter, hist *history.Store, imageRoots []string) *Server {
	return &Server{
		session:    sess,
		exporter:   exp,
		history:    hist,
		imageRoots: imageRoots,
	}
}

// ServeMux returns the API routes.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/upload", s.handleUpload)
	mux.HandleFunc("/table", s.handleTable)
	mux.HandleFunc("/sql/apply", s.handleApplySQL)
	mux.HandleFunc("/sql/column", s.handleAddColumn)
	mux.HandleFunc("/reset", s.handleReset)
	mux.HandleFunc("/label", s.handleSetLabel)
	mux.HandleFunc("/display", s.handleSetDisplayType)
	mux.HandleFunc("/columns/label", s.handleSetColumnLabel)
	mux.HandleFunc("/sort", s.handleSort)
	mux.HandleFunc("/export", s.handleExport)
	mux.HandleFunc("/image", s.handleImage)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/charts/diff", s.handleDiffChart)
	mux.HandleFunc("/history", s.handleHistory)
	return mux
}

// record writes a history entry, tolerating a missing or failing store.
func (s *Server) record(kind, detail string, rowCount int, opErr error) {
	if s.history == nil {
		return
	}
	errText := ""
	if opErr != nil {
		errText = opErr.Error()
	}
	if err := s.history.Add(kind, detail, rowCount, errText); err != nil {
		log.Printf("history write failed: %v", err)
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	default:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	}
}

// LoggingMiddleware logs method, path, status, and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf("[%s] %s %s %v", statusCodeColor(lrw.statusCode), r.Method, r.URL.Path, time.Since(start).Round(time.Millisecond))
	})
}
