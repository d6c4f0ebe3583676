package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/lehigh-university-libraries/passport/internal/models"
	"github.com/lehigh-university-libraries/passport/internal/session"
	"github.com/lehigh-university-libraries/passport/internal/sheet"
)

func (h *Handler) status(ctrl *session.Controller) models.SessionStatus {
	return models.NewSessionStatus(ctrl.Snapshot(), ctrl.Notice())
}

func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.status(h.session(w, r)))
}

func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	ctrl := h.session(w, r)

	_, err := ctrl.Generate(h.baseCtx)
	switch {
	case errors.Is(err, session.ErrNoOriginal):
		slog.Debug("Generate ignored, no image", "session_id", ctrl.ID())
		h.done(w, r, ctrl, http.StatusBadRequest)
	case errors.Is(err, session.ErrAlreadyProcessing):
		slog.Debug("Generate ignored, edit in progress", "session_id", ctrl.ID())
		h.done(w, r, ctrl, http.StatusConflict)
	case err != nil:
		h.writeError(w, "Failed to start edit: "+err.Error(), http.StatusInternalServerError)
	default:
		h.done(w, r, ctrl, http.StatusAccepted)
	}
}

func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	ctrl := h.session(w, r)
	ctrl.Reset()
	h.done(w, r, ctrl, http.StatusOK)
}

func (h *Handler) HandleSpacing(w http.ResponseWriter, r *http.Request) {
	ctrl := h.session(w, r)

	spacing, err := strconv.Atoi(r.FormValue("spacing"))
	if err != nil {
		h.writeError(w, "Invalid spacing: "+r.FormValue("spacing"), http.StatusBadRequest)
		return
	}

	if err := ctrl.SetSpacing(spacing); err != nil {
		if errors.Is(err, sheet.ErrSpacingOutOfRange) {
			h.writeError(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.writeError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.done(w, r, ctrl, http.StatusOK)
}

func (h *Handler) HandleView(w http.ResponseWriter, r *http.Request) {
	ctrl := h.session(w, r)

	view, err := session.ParseViewMode(r.FormValue("view"))
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := ctrl.SetView(view); err != nil {
		if errors.Is(err, session.ErrNoEditedImage) {
			h.done(w, r, ctrl, http.StatusConflict)
			return
		}
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.done(w, r, ctrl, http.StatusOK)
}
