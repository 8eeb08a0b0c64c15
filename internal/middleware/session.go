package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"
)

type sessionCtxKey struct{}

// sessionLifetime bounds the browser-side cache cookies. Entries carry their
// own expiry; the cookie lifetime only keeps dead values from accumulating.
const sessionLifetime = 2 * time.Hour

// Session exposes the customer's cookies as a named-value session on the
// request context. Writes are queued and flushed as Set-Cookie headers when
// the response starts; writes after that point are dropped.
func Session() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &sessionWriter{ResponseWriter: w}
			st := newSessionState(r, sw)
			ctx := context.WithValue(r.Context(), sessionCtxKey{}, st)
			next.ServeHTTP(sw, r.WithContext(ctx))
		})
	}
}

// SessionState holds one request's session values and their write-back.
type SessionState struct {
	mu     sync.Mutex
	values map[string]string
	w      *sessionWriter
}

func newSessionState(r *http.Request, w *sessionWriter) *SessionState {
	st := &SessionState{
		values: make(map[string]string),
		w:      w,
	}
	for _, c := range r.Cookies() {
		st.values[c.Name] = c.Value
	}
	return st
}

func (s *SessionState) Value(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[name]
	return v, ok
}

func (s *SessionState) Set(name, value string) {
	s.mu.Lock()
	s.values[name] = value
	s.mu.Unlock()
	s.w.queue(&http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(sessionLifetime.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *SessionState) Delete(name string) {
	s.mu.Lock()
	delete(s.values, name)
	s.mu.Unlock()
	s.w.queue(&http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// SessionFrom returns the request's session state, or nil outside the
// Session middleware.
func SessionFrom(ctx context.Context) *SessionState {
	st, _ := ctx.Value(sessionCtxKey{}).(*SessionState)
	return st
}

// CookieSessionStore adapts the per-request session state to the cache
// layer's session tier. Outside an HTTP request every operation is a miss.
type CookieSessionStore struct{}

func NewCookieSessionStore() *CookieSessionStore {
	return &CookieSessionStore{}
}

func (CookieSessionStore) Value(ctx context.Context, name string) (string, bool) {
	st := SessionFrom(ctx)
	if st == nil {
		return "", false
	}
	return st.Value(name)
}

func (CookieSessionStore) SetValue(ctx context.Context, name, value string) {
	if st := SessionFrom(ctx); st != nil {
		st.Set(name, value)
	}
}

func (CookieSessionStore) DeleteValue(ctx context.Context, name string) {
	if st := SessionFrom(ctx); st != nil {
		st.Delete(name)
	}
}

// sessionWriter defers queued cookies until the response headers flush.
type sessionWriter struct {
	http.ResponseWriter
	mu      sync.Mutex
	pending []*http.Cookie
	wrote   bool
}

func (w *sessionWriter) queue(c *http.Cookie) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.wrote {
		return
	}
	w.pending = append(w.pending, c)
}

func (w *sessionWriter) WriteHeader(code int) {
	w.mu.Lock()
	if !w.wrote {
		for _, c := range w.pending {
			http.SetCookie(w.ResponseWriter, c)
		}
		w.pending = nil
		w.wrote = true
	}
	w.mu.Unlock()
	w.ResponseWriter.WriteHeader(code)
}

func (w *sessionWriter) Write(b []byte) (int, error) {
	w.mu.Lock()
	started := w.wrote
	w.mu.Unlock()
	if !started {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}
