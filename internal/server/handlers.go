package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redline-tools/redline/internal/document/pdfdoc"
	"github.com/redline-tools/redline/internal/version"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:  "healthy",
		Version: version.Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	}
	s.writeJSON(w, http.StatusOK, response)
}

// uploadHandler stores one side of a document pair. The role is fixed per
// route ("ref" or "final"); the session is taken from the form or created.
func (s *Server) uploadHandler(role string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		maxBytes := int64(s.cfg.MaxUploadMB) * 1024 * 1024
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			s.writeError(w, "invalid_form", "Failed to parse form data", http.StatusBadRequest)
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			s.writeError(w, "missing_file", "No document file provided", http.StatusBadRequest)
			return
		}
		defer func() { _ = file.Close() }()

		if header.Size > maxBytes {
			s.writeError(w, "file_too_large", "File too large", http.StatusRequestEntityTooLarge)
			return
		}
		uploadSizeBytes.Observe(float64(header.Size))

		sess, err := s.sessions.SaveUpload(r.FormValue("session_id"), role, file)
		if err != nil {
			s.writeError(w, "upload_failed", err.Error(), http.StatusBadRequest)
			return
		}

		// Open once to reject non-PDF uploads early and report the page
		// count.
		path := sess.RefPath
		if role == "final" {
			path = sess.FinalPath
		}
		doc, err := pdfdoc.Open(path)
		if err != nil {
			s.writeError(w, "invalid_document", fmt.Sprintf("Cannot read uploaded document: %v", err), http.StatusBadRequest)
			return
		}
		pages := doc.PageCount()
		_ = doc.Close()

		slog.Info("document uploaded",
			"session", sess.ID, "role", role, "filename", header.Filename, "pages", pages)
		s.writeJSON(w, http.StatusOK, UploadResponse{
			SessionID: sess.ID,
			Role:      role,
			Filename:  header.Filename,
			Pages:     pages,
		})
	}
}

// sessionDeleteHandler removes a session and its uploads immediately.
func (s *Server) sessionDeleteHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.sessions.Delete(id) {
		s.writeError(w, "unknown_session", "Session not found or expired", http.StatusNotFound)
		return
	}
	slog.Info("session deleted", "session", id)
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// sessionCleanupHandler marks a session as finished; the janitor removes it
// on its next sweep.
func (s *Server) sessionCleanupHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !s.sessions.MarkForCleanup(id) {
		s.writeError(w, "unknown_session", "Session not found or expired", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "scheduled"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, code, message string, status int) {
	s.writeJSON(w, status, ErrorResponse{Error: code, Message: message})
}
