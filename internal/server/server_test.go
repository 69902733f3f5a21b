package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docagent/internal/analyzer"
	"docagent/internal/config"
	"docagent/internal/processor"
)

func testServer(process processFunc) *Server {
	cfg := config.Default()
	cfg.Ollama.BaseURL = "http://127.0.0.1:1" // unreachable
	s := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if process != nil {
		s.process = process
	}
	return s
}

func fakeProcess(result *processor.Result, err error) processFunc {
	return func(ctx context.Context, source, providerName, model string) (*processor.Result, error) {
		if err != nil {
			return nil, err
		}
		out := *result
		out.Original = source
		return &out, nil
	}
}

func TestHandleGenerate(t *testing.T) {
	source := "def f():\n    return 1\n"
	documented := "def f():\n    \"\"\"Docs.\"\"\"\n    return 1\n"
	s := testServer(fakeProcess(&processor.Result{
		Documented:         documented,
		FunctionsProcessed: 1,
	}, nil))

	body, _ := json.Marshal(map[string]string{"source_code": source, "model": "ollama:llama3.2"})
	req := httptest.NewRequest(http.MethodPost, "/api/generate", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, source, resp["original"])
	assert.Equal(t, documented, resp["modified"])
	assert.Equal(t, float64(1), resp["elements_found"])
	assert.Equal(t, float64(1), resp["docstrings_added"])
}

func TestHandleGenerate_EmptySource(t *testing.T) {
	s := testServer(nil)

	body, _ := json.Marshal(map[string]string{"source_code": "   "})
	req := httptest.NewRequest(http.MethodPost, "/api/generate", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "No code provided.")
}

func TestHandleGenerate_SyntaxError(t *testing.T) {
	s := testServer(fakeProcess(nil, analyzer.ErrSyntax))

	body, _ := json.Marshal(map[string]string{"source_code": "def broken(:"})
	req := httptest.NewRequest(http.MethodPost, "/api/generate", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid Python syntax")
}

func TestHandleUpload(t *testing.T) {
	s := testServer(fakeProcess(&processor.Result{
		Documented:         "def f():\n    \"\"\"Docs.\"\"\"\n    pass\n",
		FunctionsProcessed: 1,
	}, nil))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "sample.py")
	require.NoError(t, err)
	_, err = fw.Write([]byte("def f():\n    pass\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "sample.py", resp["filename"])
}

func TestHandleUpload_RejectsNonPython(t *testing.T) {
	s := testServer(nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "sample.go")
	require.NoError(t, err)
	_, err = fw.Write([]byte("package main"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Only .py files")
}

func TestHandleProcessPath(t *testing.T) {
	dir := t.TempDir()
	source := "def f():\n    pass\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.py"), []byte(source), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.py"), []byte("X = 1\n"), 0o644))

	documented := "def f():\n    \"\"\"Docs.\"\"\"\n    pass\n"
	s := testServer(func(ctx context.Context, src, providerName, model string) (*processor.Result, error) {
		processed := 0
		out := src
		if strings.Contains(src, "def f") {
			processed = 1
			out = documented
		}
		return &processor.Result{Original: src, Documented: out, FunctionsProcessed: processed}, nil
	})

	body, _ := json.Marshal(map[string]any{"path": dir, "overwrite": true})
	req := httptest.NewRequest(http.MethodPost, "/api/process-path", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp pathResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.TotalProcessed)
	assert.Equal(t, 1, resp.TotalModified)
	assert.Equal(t, 0, resp.TotalErrors)
	require.Len(t, resp.Files, 2)
	assert.True(t, resp.Files[0].Changed)
	assert.False(t, resp.Files[1].Changed)

	// Overwrite wrote the documented text back.
	onDisk, err := os.ReadFile(filepath.Join(dir, "a.py"))
	require.NoError(t, err)
	assert.Equal(t, documented, string(onDisk))
}

func TestHandleProcessPath_MissingPath(t *testing.T) {
	s := testServer(nil)

	body, _ := json.Marshal(map[string]string{"path": "/does/not/exist"})
	req := httptest.NewRequest(http.MethodPost, "/api/process-path", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleOllamaModels_Unreachable(t *testing.T) {
	s := testServer(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/ollama-models", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"models": []}`, rec.Body.String())
}
