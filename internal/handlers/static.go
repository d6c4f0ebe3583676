package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/lehigh-university-libraries/passport/internal/geometry"
	"github.com/lehigh-university-libraries/passport/internal/session"
)

//go:embed templates/*.html static/*
var assets embed.FS

func parseTemplates() *template.Template {
	return template.Must(template.ParseFS(assets, "templates/*.html"))
}

type photoView struct {
	URL    string
	Style  template.CSS
	Shadow bool
}

type sheetView struct {
	SpacingMM int
	Tiles     []photoView
	// Decorated adds the on-screen outline and caption.
	Decorated bool
}

type pageView struct {
	ID           string
	View         string
	HasOriginal  bool
	HasEdited    bool
	IsProcessing bool
	Error        string
	Notice       string
	SpacingMM    int
	MinSpacing   int
	MaxSpacing   int
	OriginalURL  string
	Result       photoView
	Sheet        sheetView
}

func newPhotoView(url string, frame geometry.Frame) photoView {
	return photoView{
		URL:    url,
		Style:  template.CSS(frame.CSS()),
		Shadow: frame.Shadow,
	}
}

func newSheetView(snap session.Snapshot, decorated bool) sheetView {
	tile := newPhotoView(imageURL(snap.ID, "edited"), geometry.PrintFrame())
	tiles := make([]photoView, geometry.PhotosPerRow)
	for i := range tiles {
		tiles[i] = tile
	}
	return sheetView{
		SpacingMM: snap.SpacingMM,
		Tiles:     tiles,
		Decorated: decorated,
	}
}

func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	ctrl := h.session(w, r)
	snap := ctrl.Snapshot()

	h.render(w, "index.html", pageView{
		ID:           snap.ID,
		View:         string(snap.View),
		HasOriginal:  snap.OriginalImage != nil,
		HasEdited:    snap.EditedImage != nil,
		IsProcessing: snap.IsProcessing,
		Error:        snap.Error,
		Notice:       ctrl.TakeNotice(),
		SpacingMM:    snap.SpacingMM,
		MinSpacing:   geometry.MinSpacingMM,
		MaxSpacing:   geometry.MaxSpacingMM,
		OriginalURL:  imageURL(snap.ID, "original"),
		Result:       newPhotoView(imageURL(snap.ID, "edited"), geometry.DefaultFrame()),
		Sheet:        newSheetView(snap, true),
	})
}

// HandlePrint renders the sheet alone and opens the print dialog.
func (h *Handler) HandlePrint(w http.ResponseWriter, r *http.Request) {
	ctrl := h.session(w, r)
	snap := ctrl.Snapshot()
	if snap.EditedImage == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	slog.Info("Print requested", "session_id", snap.ID, "spacing_mm", snap.SpacingMM)
	h.render(w, "print.html", pageView{ID: snap.ID, Sheet: newSheetView(snap, false)})
}

// HandleRender serves the printable region for the rasterizer.
func (h *Handler) HandleRender(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.getSessionOrError(w, r.PathValue("id"))
	if !ok {
		return
	}
	snap := ctrl.Snapshot()
	if snap.EditedImage == nil {
		http.NotFound(w, r)
		return
	}

	h.render(w, "render.html", pageView{ID: snap.ID, Sheet: newSheetView(snap, false)})
}

func (h *Handler) HandleStatic(w http.ResponseWriter, r *http.Request) {
	filepath := strings.TrimPrefix(r.URL.Path, "/static/")

	// Prevent directory traversal attacks
	if filepath == "" || strings.Contains(filepath, "..") {
		http.Error(w, "Invalid file path", http.StatusBadRequest)
		return
	}

	// Set appropriate content type based on file extension
	switch {
	case strings.HasSuffix(filepath, ".css"):
		w.Header().Set("Content-Type", "text/css")
	case strings.HasSuffix(filepath, ".js"):
		w.Header().Set("Content-Type", "application/javascript")
	}

	http.ServeFileFS(w, r, assets, "static/"+filepath)
}

func (h *Handler) render(w http.ResponseWriter, name string, data pageView) {
	var buf bytes.Buffer
	if err := h.templates.ExecuteTemplate(&buf, name, data); err != nil {
		h.writeError(w, "Failed to render page: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("Unable to write page", "page", name, "err", err)
	}
}
