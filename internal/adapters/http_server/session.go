package httpserver

import (
	"context"
	crand "crypto/rand"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/rs/zerolog/log"

	"sabor_menu/internal/domain"
)

const sessionName = "sabor_session"

type ctxKey int

const identityKey ctxKey = 0

// Sessions resolves the cookie session into a tagged Identity. Staff
// sessions hold the user id and are re-read from the user table on
// every request, so a deleted or demoted account loses access at once.
// Guest sessions hold no persisted identity at all.
type Sessions struct {
	store        *sessions.CookieStore
	users        domain.UserRepository
	rememberDays int
}

func NewSessions(secret string, rememberDays int, users domain.UserRepository) *Sessions {
	key := []byte(secret)
	if len(key) == 0 {
		// Ephemeral key: sessions die with the process.
		key = make([]byte, 32)
		if _, err := crand.Read(key); err != nil {
			log.Fatal().Err(err).Msg("session key generation failed")
		}
	}
	store := sessions.NewCookieStore(key)
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &Sessions{store: store, users: users, rememberDays: rememberDays}
}

func (s *Sessions) identity(r *http.Request) domain.Identity {
	sess, err := s.store.Get(r, sessionName)
	if err != nil {
		return domain.Anonymous()
	}
	switch kind, _ := sess.Values["kind"].(string); kind {
	case "guest":
		return domain.Guest()
	case "staff":
		uid, ok := sess.Values["uid"].(int64)
		if !ok {
			return domain.Anonymous()
		}
		u, err := s.users.GetUser(r.Context(), uid)
		if err != nil {
			return domain.Anonymous()
		}
		return domain.Staff(&u)
	default:
		return domain.Anonymous()
	}
}

func (s *Sessions) LoginStaff(w http.ResponseWriter, r *http.Request, userID int64, remember bool) error {
	sess, _ := s.store.Get(r, sessionName)
	sess.Values["kind"] = "staff"
	sess.Values["uid"] = userID
	if remember {
		sess.Options.MaxAge = s.rememberDays * 24 * 60 * 60
	} else {
		sess.Options.MaxAge = 0 // browser session only
	}
	return sess.Save(r, w)
}

func (s *Sessions) LoginGuest(w http.ResponseWriter, r *http.Request) error {
	sess, _ := s.store.Get(r, sessionName)
	sess.Values = map[any]any{"kind": "guest"}
	sess.Options.MaxAge = 0
	return sess.Save(r, w)
}

func (s *Sessions) Logout(w http.ResponseWriter, r *http.Request) error {
	sess, _ := s.store.Get(r, sessionName)
	sess.Values = map[any]any{}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// WithIdentity resolves the session once per request and stashes the
// result in the context for the guards below.
func (s *Sessions) WithIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), identityKey, s.identity(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func identityFrom(r *http.Request) domain.Identity {
	if id, ok := r.Context().Value(identityKey).(domain.Identity); ok {
		return id
	}
	return domain.Anonymous()
}

// RequireAuth rejects anonymous callers.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !identityFrom(r).IsAuth() {
			writeError(w, domain.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireNotGuest rejects guest sessions; used on every mutating route.
func RequireNotGuest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if identityFrom(r).IsGuest() {
			writeError(w, domain.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects any caller without the administrator role.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !identityFrom(r).IsAdmin() {
			writeError(w, domain.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
