// Package handlers serves the Felix Hub pages and JSON API.
package handlers

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/csrf"
	"github.com/gorilla/sessions"

	"github.com/vorokhovskii-creator/felix-hub/internal/i18n"
	"github.com/vorokhovskii-creator/felix-hub/internal/live"
	"github.com/vorokhovskii-creator/felix-hub/internal/models"
	"github.com/vorokhovskii-creator/felix-hub/internal/service"
	"github.com/vorokhovskii-creator/felix-hub/internal/store"
)

const (
	publicSession   = "felix-session"
	adminSession    = "admin-session"
	mechanicSession = "mechanic-session"

	// rememberFor is how long a "remember me" mechanic login lasts.
	rememberFor = 30 * 24 * 60 * 60
)

type Options struct {
	// PublicOrderList opens GET /api/orders to everyone.
	PublicOrderList bool
	DefaultLanguage string
	UploadDir       string
}

// Base carries what every handler needs.
type Base struct {
	Store        *store.Store
	Service      *service.Service
	SessionStore sessions.Store
	Templates    *TemplateCache
	Hub          *live.Hub
	Options
}

type ctxKey int

const mechanicKey ctxKey = iota

func withMechanic(ctx context.Context, m *models.Mechanic) context.Context {
	return context.WithValue(ctx, mechanicKey, m)
}

// mechanicFrom returns the mechanic put in ctx by RequireMechanic.
func mechanicFrom(ctx context.Context) *models.Mechanic {
	m, _ := ctx.Value(mechanicKey).(*models.Mechanic)
	return m
}

func (b *Base) session(r *http.Request, name string) *sessions.Session {
	s, err := b.SessionStore.Get(r, name)
	if err != nil {
		// A cookie signed with an old key; s is a fresh session.
		slog.Debug("Discarding unreadable session", "name", name, "error", err)
	}
	return s
}

// sessionMechanic loads the signed-in mechanic, or nil when nobody is
// signed in.
func (b *Base) sessionMechanic(r *http.Request) (*models.Mechanic, error) {
	if m := mechanicFrom(r.Context()); m != nil {
		return m, nil
	}
	id, ok := b.session(r, mechanicSession).Values["mechanic_id"].(int64)
	if !ok {
		return nil, nil
	}
	m, err := b.Store.GetMechanic(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return m, err
}

func (b *Base) isAdmin(r *http.Request) bool {
	auth, ok := b.session(r, adminSession).Values["authenticated"].(bool)
	return ok && auth
}

// lang resolves the display language: ?lang=, then the session choice,
// then the mechanic's preference, then Accept-Language.
func (b *Base) lang(r *http.Request) string {
	sessLang, _ := b.session(r, publicSession).Values["lang"].(string)
	var mechLang string
	if m := mechanicFrom(r.Context()); m != nil {
		mechLang = m.Language
	} else {
		mechLang, _ = b.session(r, mechanicSession).Values["lang"].(string)
	}
	return i18n.Pick(b.DefaultLanguage,
		r.URL.Query().Get("lang"),
		sessLang,
		mechLang,
		i18n.Negotiate(r.Header.Get("Accept-Language")),
	)
}

func (b *Base) setLang(w http.ResponseWriter, r *http.Request, lang string) error {
	s := b.session(r, publicSession)
	s.Values["lang"] = lang
	return s.Save(r, w)
}

func (b *Base) flash(w http.ResponseWriter, r *http.Request, kind, msg string) {
	s := b.session(r, publicSession)
	s.AddFlash(FlashMessage{Type: kind, Message: msg})
	if err := s.Save(r, w); err != nil {
		slog.Error("Failed to save flash", "error", err)
	}
}

// render executes a page template with the data every page needs.
func (b *Base) render(w http.ResponseWriter, r *http.Request, name string, data map[string]any) {
	tmpl := b.Templates.Get(name)
	if tmpl == nil {
		slog.Error("Template not found", "name", name)
		http.Error(w, "Template not found", http.StatusInternalServerError)
		return
	}
	if data == nil {
		data = map[string]any{}
	}
	lang := b.lang(r)
	s := b.session(r, publicSession)
	data["Lang"] = lang
	data["Dir"] = i18n.Dir(lang)
	data["Path"] = r.URL.Path
	data["CsrfField"] = csrf.TemplateField(r)
	data["CsrfToken"] = csrf.Token(r)
	data["Flashes"] = GetFlash(s)
	data["IsAdmin"] = b.isAdmin(r)
	if _, ok := data["Mechanic"]; !ok {
		data["Mechanic"] = mechanicFrom(r.Context())
	}
	if err := s.Save(r, w); err != nil {
		slog.Error("Failed to save session", "error", err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		slog.Error("Failed to render template", "name", name, "error", err)
		http.Error(w, "Error rendering page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	buf.WriteTo(w)
}

// deny answers a request that lacks the right session: JSON for the API,
// a flash and a login redirect for pages.
func (b *Base) deny(w http.ResponseWriter, r *http.Request, status int, key, loginPath string) {
	lang := b.lang(r)
	if isAPI(r) {
		writeJSON(w, status, errorBody{Error: i18n.T(lang, key)})
		return
	}
	b.flash(w, r, "error", i18n.T(lang, key))
	http.Redirect(w, r, loginPath+"?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
}

func isAPI(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/")
}

// safeNext returns next when it is a local path, fallback otherwise.
func safeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" {
		return fallback
	}
	return next
}
