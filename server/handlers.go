package server

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/milodocs/pagekit/bootstrap"
	"github.com/milodocs/pagekit/errors"
	"github.com/milodocs/pagekit/health"
	"github.com/milodocs/pagekit/search"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.IsInvalid(err):
		status = http.StatusBadRequest
	case errors.IsTransient(err):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	subs := []health.Status{
		health.NewHealthy("server", "serving"),
	}
	if s.index != nil {
		if n, err := s.index.Count(); err != nil {
			subs = append(subs, health.NewUnhealthy("search", "index unavailable"))
		} else if n == 0 {
			subs = append(subs, health.NewDegraded("search", "index empty"))
		} else {
			subs = append(subs, health.NewHealthy("search", "index loaded"))
		}
	}

	status := health.Aggregate("pagekit", subs)
	code := http.StatusOK
	if status.IsUnhealthy() {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query parameter is required"})
		return
	}

	answer, err := s.chat.Ask(r.Context(), query)
	if err != nil {
		s.logger.Warn("chat proxy failed", "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"answer": answer})
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Context string `json:"context"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
		return
	}

	summary, err := s.chat.Summarize(r.Context(), req.Context)
	if err != nil {
		s.logger.Warn("summarize proxy failed", "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"summarization": summary})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	section := r.URL.Query().Get("section")

	results, err := s.index.Search(r.Context(), q, section)
	if err != nil {
		writeError(w, err)
		return
	}
	if results == nil {
		results = []search.Result{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"query":   q,
		"results": results,
	})
}

func (s *Server) handlePreferenceKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := s.store.Keys(r.Context(), "")
	if err != nil {
		writeError(w, err)
		return
	}
	if keys == nil {
		keys = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"keys": keys})
}

func (s *Server) handlePreferenceGet(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	value, err := s.store.Get(r.Context(), key)
	if err != nil {
		if stderrors.Is(err, errors.ErrKeyNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "preference not found"})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key, "value": string(value)})
}

func (s *Server) handlePreferencePut(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	value, err := io.ReadAll(io.LimitReader(r.Body, 64<<10))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable request body"})
		return
	}
	if err := s.store.Put(r.Context(), key, value); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePreferenceDelete(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := s.store.Delete(r.Context(), key); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePage loads a rendered page from the content directory, runs the
// component runtime over it, and serves the enhanced HTML. The runtime
// shares the server's store, index, metrics, and bus, so preferences and
// event traffic carry across requests.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	rel := chi.URLParam(r, "*")
	if rel == "" || strings.HasSuffix(rel, "/") {
		rel += "index.html"
	}
	// Reject traversal outside the content directory.
	clean := path.Clean("/" + rel)
	file := filepath.Join(s.cfg.Server.ContentDir, filepath.FromSlash(clean))

	// Enhancement output varies by device class, so cache per class.
	cacheKey := string(bootstrap.DetectDevice(r.UserAgent())) + ":" + clean
	if s.pages != nil {
		if page, ok := s.pages.Get(cacheKey); ok {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write(page)
			return
		}
	}

	f, err := os.Open(file)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	rt, err := bootstrap.New(r.Context(), s.cfg, f, bootstrap.Options{
		UserAgent:   r.UserAgent(),
		Logger:      s.logger,
		Metrics:     s.metrics,
		Store:       s.store,
		SearchIndex: s.index,
		Bus:         s.bus,
	})
	if err != nil {
		s.logger.Error("page enhancement failed", "page", rel, "error", err)
		http.Error(w, "page enhancement failed", http.StatusInternalServerError)
		return
	}
	defer rt.Close()

	rt.Start(r.Context())

	var buf bytes.Buffer
	if err := rt.Document.Render(&buf); err != nil {
		s.logger.Error("page render failed", "page", rel, "error", err)
		http.Error(w, "page render failed", http.StatusInternalServerError)
		return
	}
	if s.pages != nil {
		s.pages.Set(cacheKey, buf.Bytes())
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}
