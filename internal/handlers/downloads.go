package handlers

import (
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/lehigh-university-libraries/passport/internal/export"
	"github.com/lehigh-university-libraries/passport/internal/session"
)

func (h *Handler) HandleDownloadPhoto(w http.ResponseWriter, r *http.Request) {
	ctrl := h.session(w, r)

	file, err := export.Photo(ctrl.Snapshot(), h.now())
	if errors.Is(err, export.ErrNothingToExport) {
		h.done(w, r, ctrl, http.StatusConflict)
		return
	}
	if err != nil {
		h.writeError(w, "Failed to export photo: "+err.Error(), http.StatusInternalServerError)
		return
	}

	slog.Info("Photo downloaded", "session_id", ctrl.ID(), "file", file.Name)
	writeAttachment(w, file)
}

func (h *Handler) HandleDownloadSheet(w http.ResponseWriter, r *http.Request) {
	ctrl := h.session(w, r)
	snap := ctrl.Snapshot()

	if h.exporter == nil {
		h.fail(w, r, ctrl, export.SheetFailureNotice, http.StatusServiceUnavailable)
		return
	}

	file, err := h.exporter.Sheet(r.Context(), snap, h.renderURL(snap.ID), h.now())
	if errors.Is(err, export.ErrNothingToExport) {
		h.done(w, r, ctrl, http.StatusConflict)
		return
	}
	if err != nil {
		slog.Error("Sheet download failed", "session_id", snap.ID, "err", err)
		h.fail(w, r, ctrl, export.SheetFailureNotice, http.StatusBadGateway)
		return
	}

	slog.Info("Sheet downloaded", "session_id", snap.ID, "file", file.Name, "bytes", len(file.Data))
	writeAttachment(w, file)
}

// HandleImage serves the raw bytes of a session image. It is addressed by
// session ID so the rasterizer can load it without the cookie.
func (h *Handler) HandleImage(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.getSessionOrError(w, r.PathValue("id"))
	if !ok {
		return
	}

	snap := ctrl.Snapshot()
	var img *session.Image
	switch r.PathValue("kind") {
	case "original":
		img = snap.OriginalImage
	case "edited":
		img = snap.EditedImage
	default:
		http.NotFound(w, r)
		return
	}
	if img == nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", img.MIMEType)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.Header().Set("Cache-Control", "no-store")
	if _, err := w.Write(img.Data); err != nil {
		slog.Error("Unable to write image", "session_id", snap.ID, "err", err)
	}
}

func writeAttachment(w http.ResponseWriter, file *export.File) {
	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Name}))
	if _, err := w.Write(file.Data); err != nil {
		slog.Error("Unable to write download", "file", file.Name, "err", err)
	}
}
