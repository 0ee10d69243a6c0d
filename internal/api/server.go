// Package api exposes the cache index, light curve extraction, and plot
// rendering over HTTP.
package api

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/skywatch-data/lightcurve.report/internal/archive"
	"github.com/skywatch-data/lightcurve.report/internal/db"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	db         *db.DB
	archive    *archive.Client
	downloader *archive.Downloader
	cacheDir   string
	quality    int32
	timeScale  string
}

// NewServer wires the cache index and archive client into an HTTP
// server. quality is the default quality bitmask applied to light curve
// extraction, and timeScale the native scale reported when a file does
// not dictate one.
func NewServer(database *db.DB, ac *archive.Client, cacheDir string, quality int32, timeScale string) *Server {
	s := &Server{
		db:        database,
		archive:   ac,
		cacheDir:  cacheDir,
		quality:   quality,
		timeScale: timeScale,
	}
	if ac != nil {
		s.downloader = ac.NewDownloader(cacheDir)
	}
	return s
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Printf(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/files", s.listFiles)
	mux.HandleFunc("GET /api/files/{id}", s.showFile)
	mux.HandleFunc("GET /api/files/{id}/lightcurve", s.showLightCurve)
	mux.HandleFunc("GET /api/files/{id}/frame.png", s.frameImage)
	mux.HandleFunc("GET /api/files/{id}/curve.png", s.curveImage)
	mux.HandleFunc("DELETE /api/files/{id}", s.deleteFile)
	mux.HandleFunc("POST /api/fetch", s.fetchTarget)
	mux.HandleFunc("GET /api/stats", s.showStats)
	mux.HandleFunc("GET /api/config", s.showConfig)
	mux.HandleFunc("GET /api/version", s.showVersion)
	mux.HandleFunc("GET /debug/charts/{id}", s.debugChart)
	return mux
}
