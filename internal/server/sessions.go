package server

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/redline-tools/redline/internal/config"
	"github.com/redline-tools/redline/internal/engine"
)

// Session is one uploaded reference/final document pair. The most recent
// report of each comparison mode is kept so overlays can be rendered on
// download without re-running the comparison.
type Session struct {
	ID         string
	RefPath    string
	FinalPath  string
	Created    time.Time
	lastAccess time.Time

	reportMu    sync.Mutex
	imageReport *engine.ImageReport
	annotReport *engine.AnnotationReport
	wordReport  *engine.WordReport
}

// SetImageReport caches the latest image comparison result.
func (sess *Session) SetImageReport(r *engine.ImageReport) {
	sess.reportMu.Lock()
	sess.imageReport = r
	sess.reportMu.Unlock()
}

// ImageReport returns the cached image comparison result, if any.
func (sess *Session) ImageReport() *engine.ImageReport {
	sess.reportMu.Lock()
	defer sess.reportMu.Unlock()
	return sess.imageReport
}

// SetAnnotationReport caches the latest annotation verification result.
func (sess *Session) SetAnnotationReport(r *engine.AnnotationReport) {
	sess.reportMu.Lock()
	sess.annotReport = r
	sess.reportMu.Unlock()
}

// AnnotationReport returns the cached annotation result, if any.
func (sess *Session) AnnotationReport() *engine.AnnotationReport {
	sess.reportMu.Lock()
	defer sess.reportMu.Unlock()
	return sess.annotReport
}

// SetWordReport caches the latest word diff result.
func (sess *Session) SetWordReport(r *engine.WordReport) {
	sess.reportMu.Lock()
	sess.wordReport = r
	sess.reportMu.Unlock()
}

// WordReport returns the cached word diff result, if any.
func (sess *Session) WordReport() *engine.WordReport {
	sess.reportMu.Lock()
	defer sess.reportMu.Unlock()
	return sess.wordReport
}

// SessionStore keeps uploaded document pairs on disk and expires them after
// a TTL. Expired sessions are swept by a background janitor.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session

	dir      string
	ownedDir bool
	ttl      time.Duration

	done chan struct{}
	wg   sync.WaitGroup
}

// NewSessionStore creates the store and starts its cleanup loop.
func NewSessionStore(cfg config.ServerConfig) (*SessionStore, error) {
	dir := cfg.DataDir
	owned := false
	if dir == "" {
		tmp, err := os.MkdirTemp("", "redline-sessions-*")
		if err != nil {
			return nil, fmt.Errorf("server: create session dir: %w", err)
		}
		dir = tmp
		owned = true
	} else if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("server: create session dir %s: %w", dir, err)
	}

	s := &SessionStore{
		sessions: make(map[string]*Session),
		dir:      dir,
		ownedDir: owned,
		ttl:      time.Duration(cfg.SessionTTLMin) * time.Minute,
		done:     make(chan struct{}),
	}

	interval := time.Duration(cfg.CleanupIntervalMin) * time.Minute
	if interval > 0 {
		s.wg.Add(1)
		go s.janitor(interval)
	}
	return s, nil
}

// Create registers a new empty session.
func (s *SessionStore) Create() *Session {
	id := newSessionID()
	now := time.Now()
	sess := &Session{ID: id, Created: now, lastAccess: now}

	s.mu.Lock()
	s.sessions[id] = sess
	count := len(s.sessions)
	s.mu.Unlock()

	sessionsActive.Set(float64(count))
	return sess
}

// Get returns a session and refreshes its TTL.
func (s *SessionStore) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if ok {
		sess.lastAccess = time.Now()
	}
	return sess, ok
}

// Delete removes a session and its stored documents immediately.
func (s *SessionStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return false
	}
	removeSessionFiles(sess)
	delete(s.sessions, id)
	sessionsActive.Set(float64(len(s.sessions)))
	return true
}

// MarkForCleanup flags a session as done so the next sweep removes it.
func (s *SessionStore) MarkForCleanup(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return false
	}
	sess.lastAccess = time.Now().Add(-s.ttl - time.Minute)
	return true
}

// SaveUpload stores an uploaded document for the given role ("ref" or
// "final"). An empty session ID creates a new session.
func (s *SessionStore) SaveUpload(id, role string, r io.Reader) (*Session, error) {
	var sess *Session
	if id == "" {
		sess = s.Create()
	} else {
		var ok bool
		sess, ok = s.Get(id)
		if !ok {
			return nil, fmt.Errorf("server: unknown session %q", id)
		}
	}

	path := filepath.Join(s.dir, fmt.Sprintf("%s_%s.pdf", sess.ID, role))
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("server: store upload: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("server: store upload: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("server: store upload: %w", err)
	}

	s.mu.Lock()
	switch role {
	case "ref":
		sess.RefPath = path
	case "final":
		sess.FinalPath = path
	default:
		s.mu.Unlock()
		os.Remove(path)
		return nil, fmt.Errorf("server: unknown upload role %q", role)
	}
	s.mu.Unlock()
	return sess, nil
}

// Close stops the janitor and removes all stored documents.
func (s *SessionStore) Close() error {
	close(s.done)
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		removeSessionFiles(sess)
		delete(s.sessions, id)
	}
	sessionsActive.Set(0)
	if s.ownedDir {
		return os.RemoveAll(s.dir)
	}
	return nil
}

func (s *SessionStore) janitor(interval time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			s.sweep(now)
		}
	}
}

// sweep removes sessions idle past the TTL.
func (s *SessionStore) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		if now.Sub(sess.lastAccess) > s.ttl {
			slog.Info("expiring session", "session", id, "idle", now.Sub(sess.lastAccess).Round(time.Second))
			removeSessionFiles(sess)
			delete(s.sessions, id)
		}
	}
	sessionsActive.Set(float64(len(s.sessions)))
}

func removeSessionFiles(sess *Session) {
	if sess.RefPath != "" {
		_ = os.Remove(sess.RefPath)
	}
	if sess.FinalPath != "" {
		_ = os.Remove(sess.FinalPath)
	}
}

func newSessionID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand only fails when the platform entropy source is
		// broken; fall back to a time-derived ID rather than crash.
		return fmt.Sprintf("t%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}
