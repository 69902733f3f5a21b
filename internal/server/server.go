// Package server exposes the docstring generation API over HTTP. Routes
// mirror the CLI's capabilities: paste-code generation, file upload and
// server-side path processing.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"docagent/internal/analyzer"
	"docagent/internal/config"
	"docagent/internal/crawler"
	"docagent/internal/llm"
	"docagent/internal/processor"
)

// processFunc runs one source through the pipeline. It is a field so tests can
// exercise the handlers without a live provider.
type processFunc func(ctx context.Context, source, providerName, model string) (*processor.Result, error)

// Server serves the docstring generation API.
type Server struct {
	cfg     *config.Config
	logger  *slog.Logger
	crawler *crawler.Crawler
	process processFunc
}

func New(cfg *config.Config, logger *slog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		logger:  logger.With("component", "server"),
		crawler: crawler.New(),
	}
	s.process = s.runPipeline
	return s
}

func (s *Server) runPipeline(ctx context.Context, source, providerName, model string) (*processor.Result, error) {
	provider, err := llm.New(ctx, s.cfg, providerName, model, s.cfg.Temperature)
	if err != nil {
		return nil, err
	}
	if closer, ok := provider.(io.Closer); ok {
		defer closer.Close()
	}
	return processor.New(provider, s.cfg, s.logger).ProcessFile(ctx, source)
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/ollama-models", s.handleOllamaModels)
	mux.HandleFunc("POST /api/generate", s.handleGenerate)
	mux.HandleFunc("POST /api/upload", s.handleUpload)
	mux.HandleFunc("POST /api/process-path", s.handleProcessPath)
	return mux
}

// ListenAndServe blocks serving the API on the configured port.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf(":%d", s.cfg.Server.Port)
	s.logger.Info("serving docstring API", "addr", addr)
	return http.ListenAndServe(addr, s.Handler())
}

// Requests and responses

type generateRequest struct {
	SourceCode string `json:"source_code"`
	Model      string `json:"model"`
}

type pathRequest struct {
	Path      string `json:"path"`
	Recursive *bool  `json:"recursive"`
	Overwrite bool   `json:"overwrite"`
	Model     string `json:"model"`
}

type generateResponse struct {
	Original        string  `json:"original"`
	Modified        string  `json:"modified"`
	ElementsFound   int     `json:"elements_found"`
	DocstringsAdded int     `json:"docstrings_added"`
	ProcessingTime  float64 `json:"processing_time"`
	Filename        string  `json:"filename,omitempty"`
}

type fileResult struct {
	Filepath        string `json:"filepath"`
	Original        string `json:"original"`
	Modified        string `json:"modified"`
	ElementsFound   int    `json:"elements_found"`
	DocstringsAdded int    `json:"docstrings_added"`
	Changed         bool   `json:"changed"`
	Error           string `json:"error,omitempty"`
}

type pathResponse struct {
	Files          []fileResult `json:"files"`
	TotalProcessed int          `json:"total_processed"`
	TotalModified  int          `json:"total_modified"`
	TotalErrors    int          `json:"total_errors"`
	ProcessingTime float64      `json:"processing_time"`
}

// Handlers

func (s *Server) handleOllamaModels(w http.ResponseWriter, r *http.Request) {
	models := llm.ListOllamaModels(s.cfg.Ollama.BaseURL)
	if models == nil {
		models = []string{}
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"models": models})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.SourceCode) == "" {
		s.writeError(w, http.StatusBadRequest, "No code provided.")
		return
	}

	resp, status, errMsg := s.generateOne(r.Context(), req.SourceCode, req.Model, "")
	if errMsg != "" {
		s.writeError(w, status, errMsg)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	if !strings.HasSuffix(header.Filename, ".py") {
		s.writeError(w, http.StatusBadRequest, "Only .py files are supported.")
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	resp, status, errMsg := s.generateOne(r.Context(), string(content), r.FormValue("model"), header.Filename)
	if errMsg != "" {
		s.writeError(w, status, errMsg)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleProcessPath(w http.ResponseWriter, r *http.Request) {
	var req pathRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	recursive := true
	if req.Recursive != nil {
		recursive = *req.Recursive
	}

	files, err := s.crawler.CollectFiles(req.Path, recursive)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	}

	providerName, model := s.resolveModel(req.Model)
	start := time.Now()

	resp := pathResponse{Files: []fileResult{}, TotalProcessed: len(files)}
	for _, fpath := range files {
		entry := fileResult{Filepath: fpath}

		source, err := os.ReadFile(fpath)
		if err != nil {
			entry.Error = err.Error()
			resp.TotalErrors++
			resp.Files = append(resp.Files, entry)
			continue
		}

		result, err := s.process(r.Context(), string(source), providerName, model)
		if err != nil {
			entry.Error = err.Error()
			resp.TotalErrors++
			resp.Files = append(resp.Files, entry)
			// A quota failure will hit every remaining file too; stop here.
			if errors.Is(err, llm.ErrRateLimited) {
				break
			}
			continue
		}

		entry.Original = result.Original
		entry.Modified = result.Documented
		entry.ElementsFound = processor.CountDefinitions(r.Context(), result.Original)
		entry.DocstringsAdded = result.FunctionsProcessed
		entry.Changed = result.FunctionsProcessed > 0
		if entry.Changed {
			resp.TotalModified++
			if req.Overwrite {
				if err := os.WriteFile(fpath, []byte(result.Documented), 0o644); err != nil {
					entry.Error = err.Error()
					resp.TotalErrors++
				}
			}
		}
		resp.Files = append(resp.Files, entry)
	}

	resp.ProcessingTime = time.Since(start).Seconds()
	s.writeJSON(w, http.StatusOK, resp)
}

// Helpers

func (s *Server) generateOne(ctx context.Context, source, model, filename string) (*generateResponse, int, string) {
	providerName, modelName := s.resolveModel(model)
	start := time.Now()

	result, err := s.process(ctx, source, providerName, modelName)
	if err != nil {
		switch {
		case errors.Is(err, analyzer.ErrSyntax):
			return nil, http.StatusBadRequest, fmt.Sprintf("Invalid Python syntax: %v", err)
		case errors.Is(err, llm.ErrRateLimited):
			return nil, http.StatusTooManyRequests, err.Error()
		default:
			s.logger.Error("generation failed", "error", err)
			return nil, http.StatusInternalServerError, fmt.Sprintf("Generation failed: %v", err)
		}
	}

	return &generateResponse{
		Original:        result.Original,
		Modified:        result.Documented,
		ElementsFound:   processor.CountDefinitions(ctx, source),
		DocstringsAdded: result.FunctionsProcessed,
		ProcessingTime:  time.Since(start).Seconds(),
		Filename:        filename,
	}, 0, ""
}

// resolveModel maps a request's model string to (provider, model), falling
// back to the configured defaults when the request leaves it empty.
func (s *Server) resolveModel(model string) (string, string) {
	if model == "" {
		return s.cfg.Provider, s.cfg.Model
	}
	return llm.ParseModelString(model)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, detail string) {
	s.writeJSON(w, status, map[string]string{"detail": detail})
}
