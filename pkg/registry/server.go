package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/drQedwards/ppm/pkg/errors"
	"github.com/drQedwards/ppm/pkg/pep508"
)

// maxUploadBytes caps one wheel upload.
const maxUploadBytes = 512 << 20

// Server serves the simple-index pages, artifact files and the upload
// API over one Store.
type Server struct {
	store  *Store
	token  string // required for uploads; empty disables upload auth
	logger *log.Logger
}

// NewServer creates a Server. An empty token leaves uploads open,
// which is only sensible for local testing.
func NewServer(store *Store, token string, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{store: store, token: token, logger: logger}
}

// Handler builds the route tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/simple/", s.handleIndex)
	r.Get("/simple/{project}/", s.handleProject)
	r.Get("/files/{filename}", s.handleFile)
	r.Post("/api/v1/upload", s.handleUpload)
	return r
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, "<!DOCTYPE html>\n<html><body>\n")
	for _, name := range s.store.Projects() {
		fmt.Fprintf(w, "<a href=\"/simple/%s/\">%s</a><br/>\n", name, html.EscapeString(name))
	}
	fmt.Fprint(w, "</body></html>\n")
}

func (s *Server) handleProject(w http.ResponseWriter, r *http.Request) {
	name, err := pep508.NormalizeName(chi.URLParam(r, "project"))
	if err != nil {
		http.Error(w, "bad project name", http.StatusBadRequest)
		return
	}
	files, err := s.store.Files(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<!DOCTYPE html>\n<html><body>\n<h1>Links for %s</h1>\n", html.EscapeString(name))
	for _, f := range files {
		fmt.Fprintf(w, "<a href=\"/files/%s#sha256=%s\">%s</a><br/>\n",
			f.Filename, f.SHA256, html.EscapeString(f.Filename))
	}
	fmt.Fprint(w, "</body></html>\n")
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	f, err := s.store.Open(chi.URLParam(r, "filename"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()
	w.Header().Set("Content-Type", "application/octet-stream")
	if _, err := io.Copy(w, f); err != nil {
		s.logger.Warn("serving file interrupted", "err", err)
	}
}

// handleUpload accepts a multipart POST: fields name, version, sha256
// and the wheel file itself. The declared hash must match the content.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.token != "" {
		auth := r.Header.Get("Authorization")
		got, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || got != s.token {
			writeJSONError(w, http.StatusUnauthorized, errors.New(errors.ErrCodeUnauthorized, "missing or invalid token"))
			return
		}
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSONError(w, http.StatusBadRequest, errors.Wrap(errors.ErrCodeInternal, err, "parsing upload"))
		return
	}
	file, header, err := r.FormFile("wheel")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, errors.New(errors.ErrCodeInternal, "missing wheel file field"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, errors.Wrap(errors.ErrCodeInternal, err, "reading upload"))
		return
	}

	if declared := r.FormValue("sha256"); declared != "" {
		sum := sha256.Sum256(data)
		if got := hex.EncodeToString(sum[:]); !strings.EqualFold(got, declared) {
			writeJSONError(w, http.StatusBadRequest, errors.New(errors.ErrCodeIntegrityMismatch,
				"declared sha256 %s does not match content %s", declared, got))
			return
		}
	}

	entry, err := s.store.Add(header.Filename, data)
	if err != nil {
		if errors.Is(err, errors.ErrCodeUnparseableFilename) {
			writeJSONError(w, http.StatusBadRequest, err)
			return
		}
		writeJSONError(w, http.StatusInternalServerError, err)
		return
	}

	s.logger.Info("artifact uploaded",
		"file", entry.Filename, "project", entry.Name, "version", entry.Version)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{
		"filename": entry.Filename,
		"name":     entry.Name,
		"version":  entry.Version,
		"sha256":   entry.SHA256,
	})
}

func writeJSONError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": errors.UserMessage(err)})
}
