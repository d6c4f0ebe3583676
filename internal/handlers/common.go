package handlers

import (
	"context"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/passport/internal/export"
	"github.com/lehigh-university-libraries/passport/internal/providers"
	"github.com/lehigh-university-libraries/passport/internal/session"
	"github.com/lehigh-university-libraries/passport/internal/storage"
)

// SessionCookie holds the browser's session ID.
const SessionCookie = "passport_session"

type Handler struct {
	sessionStore *storage.SessionStore
	editor       providers.Editor
	exporter     *export.Exporter
	templates    *template.Template
	client       *http.Client

	instruction string
	uploadLimit int64
	publicURL   string

	// baseCtx outlives individual requests so an edit keeps running after
	// the request that started it returns.
	baseCtx context.Context
	now     func() time.Time
}

// Options configure a Handler.
type Options struct {
	Editor      providers.Editor
	Exporter    *export.Exporter
	Instruction string
	UploadLimit int64
	// PublicURL is the base URL the rasterizer uses to load /render pages.
	PublicURL   string
	BaseContext context.Context

	// AllowPrivateURLs lets URL uploads reach loopback and private networks.
	AllowPrivateURLs bool
}

func New(store *storage.SessionStore, opts Options) *Handler {
	if opts.BaseContext == nil {
		opts.BaseContext = context.Background()
	}
	if opts.UploadLimit <= 0 {
		opts.UploadLimit = 10 * 1024 * 1024
	}
	return &Handler{
		sessionStore: store,
		editor:       opts.Editor,
		exporter:     opts.Exporter,
		templates:    parseTemplates(),
		client:       newDownloadClient(opts.AllowPrivateURLs),
		instruction:  opts.Instruction,
		uploadLimit:  opts.UploadLimit,
		publicURL:    strings.TrimRight(opts.PublicURL, "/"),
		baseCtx:      opts.BaseContext,
		now:          time.Now,
	}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data any) {
	h.writeJSONStatus(w, http.StatusOK, data)
}

func (h *Handler) writeJSONStatus(w http.ResponseWriter, code int, data any) {
	body, err := sonic.Marshal(data)
	if err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(body); err != nil {
		slog.Error("Unable to write JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}

// wantsJSON reports whether the caller is a script rather than a browser
// form submission.
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.Contains(r.Header.Get("Content-Type"), "application/json")
}

// done finishes an action: JSON callers get the session status, browsers
// are sent back to the page.
func (h *Handler) done(w http.ResponseWriter, r *http.Request, ctrl *session.Controller, code int) {
	if wantsJSON(r) {
		h.writeJSONStatus(w, code, h.status(ctrl))
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// fail reports a user-facing failure. Browsers see it as a notice on the
// next page render.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, ctrl *session.Controller, message string, code int) {
	if wantsJSON(r) {
		h.writeError(w, message, code)
		return
	}
	slog.Warn(message, "session_id", ctrl.ID())
	ctrl.Notify(message)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Session helpers

// session returns the caller's controller, creating a session and setting
// the cookie when there is none.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) *session.Controller {
	if ctrl, ok := h.lookup(r); ok {
		ctrl.Touch()
		return ctrl
	}

	id := uuid.NewString()
	ctrl := session.NewController(id, h.editor, h.instruction)
	h.sessionStore.Set(id, ctrl)
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	slog.Info("Session created", "session_id", id)
	return ctrl
}

func (h *Handler) lookup(r *http.Request) (*session.Controller, bool) {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return nil, false
	}
	return h.sessionStore.Get(c.Value)
}

func (h *Handler) getSessionOrError(w http.ResponseWriter, sessionID string) (*session.Controller, bool) {
	ctrl, exists := h.sessionStore.Get(sessionID)
	if !exists {
		h.writeError(w, "Session not found", http.StatusNotFound)
		return nil, false
	}
	return ctrl, true
}

func (h *Handler) renderURL(sessionID string) string {
	return h.publicURL + "/render/" + sessionID
}

func imageURL(sessionID, kind string) string {
	return "/image/" + sessionID + "/" + kind
}
