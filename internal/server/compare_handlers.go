package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/redline-tools/redline/internal/document"
	"github.com/redline-tools/redline/internal/document/pdfdoc"
	"github.com/redline-tools/redline/internal/engine"
)

// compareImagesHandler runs the image-match comparison on a session's
// document pair.
func (s *Server) compareImagesHandler(w http.ResponseWriter, r *http.Request) {
	s.runComparison(w, r, "images", func(ctx context.Context, eng *engine.Engine, sess *Session, ref, final document.Document) (any, error) {
		report, err := eng.CompareImages(ctx, ref, final)
		if err == nil {
			sess.SetImageReport(report)
		}
		return report, err
	})
}

// compareAnnotationsHandler runs the annotation verification on a session's
// document pair.
func (s *Server) compareAnnotationsHandler(w http.ResponseWriter, r *http.Request) {
	s.runComparison(w, r, "annotations", func(ctx context.Context, eng *engine.Engine, sess *Session, ref, final document.Document) (any, error) {
		report, err := eng.CompareAnnotations(ctx, ref, final)
		if err == nil {
			sess.SetAnnotationReport(report)
		}
		return report, err
	})
}

// compareWordsHandler runs the word diff on a session's document pair.
func (s *Server) compareWordsHandler(w http.ResponseWriter, r *http.Request) {
	s.runComparison(w, r, "words", func(ctx context.Context, eng *engine.Engine, sess *Session, ref, final document.Document) (any, error) {
		report, err := eng.CompareWords(ctx, ref, final)
		if err == nil {
			sess.SetWordReport(report)
		}
		return report, err
	})
}

type compareFunc func(ctx context.Context, eng *engine.Engine, sess *Session, ref, final document.Document) (any, error)

// runComparison handles the shared request plumbing of the three compare
// endpoints: session resolution, document opening, timeouts, metrics and
// progress reporting.
func (s *Server) runComparison(w http.ResponseWriter, r *http.Request, mode string, run compareFunc) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := r.FormValue("session_id")
	if sessionID == "" {
		sessionID = r.URL.Query().Get("session_id")
	}
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		s.writeError(w, "unknown_session", "Session not found or expired", http.StatusNotFound)
		return
	}
	if sess.RefPath == "" || sess.FinalPath == "" {
		s.writeError(w, "incomplete_session", "Both reference and final documents must be uploaded first", http.StatusBadRequest)
		return
	}

	start := time.Now()
	status := "error"
	defer func() {
		compareRequestsTotal.WithLabelValues(mode, status).Inc()
		compareDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	}()

	s.progress.Publish(sess.ID, Progress{Stage: "opening", Mode: mode})

	ref, err := pdfdoc.Open(sess.RefPath)
	if err != nil {
		s.writeError(w, "document_error", "Cannot open reference document: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}
	defer func() { _ = ref.Close() }()

	final, err := pdfdoc.Open(sess.FinalPath)
	if err != nil {
		s.writeError(w, "document_error", "Cannot open final document: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}
	defer func() { _ = final.Close() }()

	ctx := r.Context()
	if s.cfg.TimeoutSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.cfg.TimeoutSec)*time.Second)
		defer cancel()
	}

	s.progress.Publish(sess.ID, Progress{Stage: "comparing", Mode: mode})

	eng := engine.New(s.engineCfg, s.checker)
	report, err := run(ctx, eng, sess, ref, final)
	if err != nil {
		s.progress.Publish(sess.ID, Progress{Stage: "failed", Mode: mode, Detail: err.Error()})
		s.writeCompareError(w, mode, err)
		return
	}

	status = "success"
	s.progress.Publish(sess.ID, Progress{Stage: "done", Mode: mode})
	slog.Info("comparison complete", "session", sess.ID, "mode", mode, "duration", time.Since(start).Round(time.Millisecond))
	s.writeJSON(w, http.StatusOK, report)
}

// writeCompareError maps engine error kinds onto HTTP statuses.
func (s *Server) writeCompareError(w http.ResponseWriter, mode string, err error) {
	if errors.Is(err, context.DeadlineExceeded) {
		s.writeError(w, "timeout", "Comparison timed out", http.StatusGatewayTimeout)
		return
	}
	switch engine.KindOf(err) {
	case engine.KindValidation:
		s.writeError(w, "validation_error", err.Error(), http.StatusBadRequest)
	case engine.KindExtraction, engine.KindLocate:
		s.writeError(w, "comparison_error", err.Error(), http.StatusUnprocessableEntity)
	default:
		slog.Error("comparison failed", "mode", mode, "error", err)
		s.writeError(w, "internal_error", "Comparison failed", http.StatusInternalServerError)
	}
}
