package main

import (
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/Dan9191/card-service/internal/config"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus/hooks/test"
)

func testRouter() *mux.Router {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"success":false,"message":"route not found"}`))
	})
	r.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"success": true, "padding": strings.Repeat("card ", 200)})
	}).Methods("GET")
	return r
}

func TestBuildHandlerLogsUnmatchedRoutes(t *testing.T) {
	logger, hook := test.NewNullLogger()
	h := buildHandler(testRouter(), &config.Config{CORSOrigins: []string{"*"}}, logger)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/missing", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	entry := hook.LastEntry()
	if entry == nil {
		t.Fatalf("expected unmatched request to be logged")
	}
	if entry.Data["status"] != http.StatusNotFound || entry.Data["path"] != "/missing" {
		t.Fatalf("unexpected fields %v", entry.Data)
	}
}

func TestBuildHandlerCompressesJSON(t *testing.T) {
	logger, _ := test.NewNullLogger()
	h := buildHandler(testRouter(), &config.Config{CORSOrigins: []string{"*"}}, logger)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("expected gzip encoding, got %q", rr.Header().Get("Content-Encoding"))
	}
	zr, err := gzip.NewReader(rr.Body)
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	raw, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("read gzip body: %v", err)
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["success"] != true {
		t.Fatalf("unexpected body %v", body)
	}

	plain := httptest.NewRecorder()
	h.ServeHTTP(plain, httptest.NewRequest(http.MethodGet, "/stats", nil))
	if plain.Header().Get("Content-Encoding") != "" {
		t.Fatalf("expected no encoding without Accept-Encoding")
	}
}

func TestServeStopsOnSignal(t *testing.T) {
	logger, _ := test.NewNullLogger()
	server := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	stop := make(chan os.Signal, 1)

	done := make(chan error, 1)
	go func() { done <- serve(server, stop, logger) }()
	stop <- syscall.SIGTERM

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("serve did not return after stop signal")
	}
}

func TestServeReturnsListenError(t *testing.T) {
	logger, _ := test.NewNullLogger()
	server := &http.Server{Addr: "127.0.0.1:-1", Handler: http.NotFoundHandler()}

	done := make(chan error, 1)
	go func() { done <- serve(server, make(chan os.Signal), logger) }()

	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("expected listen error")
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("serve did not return on listen error")
	}
}
