package server

import (
	"bytes"
	"fmt"
	"image/png"
	"net/http"
	"strconv"

	"github.com/redline-tools/redline/internal/document"
	"github.com/redline-tools/redline/internal/document/pdfdoc"
	"github.com/redline-tools/redline/internal/render"
)

// downloadHandler renders one overlay page as PNG. It draws on top of the
// report cached by the most recent comparison of the requested mode.
//
// Query parameters: session_id, mode (images|annotations|words),
// side (ref|final, default final), page (zero-based page index).
func (s *Server) downloadHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	sess, ok := s.sessions.Get(q.Get("session_id"))
	if !ok {
		s.writeError(w, "unknown_session", "Session not found or expired", http.StatusNotFound)
		return
	}

	side := q.Get("side")
	if side == "" {
		side = "final"
	}
	if side != "ref" && side != "final" {
		s.writeError(w, "invalid_side", fmt.Sprintf("Unknown side %q", side), http.StatusBadRequest)
		return
	}

	page, err := strconv.Atoi(q.Get("page"))
	if err != nil || page < 0 {
		s.writeError(w, "invalid_page", "Page must be a non-negative integer", http.StatusBadRequest)
		return
	}

	path := sess.FinalPath
	if side == "ref" {
		path = sess.RefPath
	}
	if path == "" {
		s.writeError(w, "missing_document", "Requested document has not been uploaded", http.StatusBadRequest)
		return
	}

	doc, err := pdfdoc.Open(path)
	if err != nil {
		s.writeError(w, "document_error", err.Error(), http.StatusUnprocessableEntity)
		return
	}
	defer func() { _ = doc.Close() }()

	renderer := render.New(s.renderCfg)
	overlay, err := s.buildOverlay(renderer, doc, sess, q.Get("mode"), side, page)
	if err != nil {
		s.writeError(w, "render_error", err.Error(), http.StatusBadRequest)
		return
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, overlay.Image); err != nil {
		s.writeError(w, "render_error", err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%s_%s_page%d.png", q.Get("mode"), side, page))
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) buildOverlay(renderer *render.Renderer, doc document.Document, sess *Session, mode, side string, page int) (*render.Overlay, error) {
	switch mode {
	case "images":
		report := sess.ImageReport()
		if report == nil {
			return nil, fmt.Errorf("no image comparison has been run for this session")
		}
		for _, pr := range report.Pages {
			if (side == "ref" && pr.RefPage == page) || (side == "final" && pr.FinalPage == page) {
				return renderer.ImageOverlay(doc, page, pr.Matches, side == "final")
			}
		}
		return nil, fmt.Errorf("page %d was not part of the comparison", page)

	case "annotations":
		report := sess.AnnotationReport()
		if report == nil {
			return nil, fmt.Errorf("no annotation comparison has been run for this session")
		}
		if side != "ref" {
			return nil, fmt.Errorf("annotation overlays are drawn on the reference document")
		}
		return renderer.AnnotationOverlay(doc, page, report.Results)

	case "words":
		report := sess.WordReport()
		if report == nil {
			return nil, fmt.Errorf("no word comparison has been run for this session")
		}
		for _, pr := range report.Pages {
			if side == "ref" && pr.RefPage == page {
				return renderer.WordOverlay(doc, page, pr.RefRegions)
			}
			if side == "final" && pr.FinalPage == page {
				return renderer.WordOverlay(doc, page, pr.FinalRegions)
			}
		}
		return nil, fmt.Errorf("page %d was not part of the comparison", page)

	default:
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
}
