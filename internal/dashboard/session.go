package dashboard

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/IshaanNene/newsgoat/internal/analysis"
)

const sessionCookie = "newsgoat_session"

// Session holds the dataset one browser is looking at.
type Session struct {
	ID string

	mu       sync.Mutex
	dataset  *analysis.Dataset
	lastSeen time.Time
}

// Dataset returns the loaded dataset, or nil.
func (s *Session) Dataset() *analysis.Dataset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dataset
}

// SetDataset replaces the loaded dataset.
func (s *Session) SetDataset(ds *analysis.Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dataset = ds
}

// SessionStore maps cookie IDs to sessions and expires idle ones.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionStore creates a store whose sessions expire after ttl idle.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get returns the request's session, creating one and setting the
// cookie when the request has none or it expired.
func (s *SessionStore) Get(w http.ResponseWriter, r *http.Request) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)

	if c, err := r.Cookie(sessionCookie); err == nil {
		if sess, ok := s.sessions[c.Value]; ok {
			sess.lastSeen = now
			return sess
		}
	}

	sess := &Session{ID: uuid.NewString(), lastSeen: now}
	s.sessions[sess.ID] = sess
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sess
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *SessionStore) sweep(now time.Time) {
	if s.ttl <= 0 {
		return
	}
	for id, sess := range s.sessions {
		if now.Sub(sess.lastSeen) > s.ttl {
			delete(s.sessions, id)
		}
	}
}
