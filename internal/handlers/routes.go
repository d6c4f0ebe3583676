package handlers

import (
	"log/slog"
	"net/http"
)

// Routes returns the mux serving the web interface and its API.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", h.HandleIndex)
	mux.HandleFunc("GET /static/", h.HandleStatic)

	mux.HandleFunc("GET /api/session", h.HandleSession)
	mux.HandleFunc("POST /api/upload", h.HandleUpload)
	mux.HandleFunc("POST /api/generate", h.HandleGenerate)
	mux.HandleFunc("POST /api/reset", h.HandleReset)
	mux.HandleFunc("POST /api/spacing", h.HandleSpacing)
	mux.HandleFunc("POST /api/view", h.HandleView)

	mux.HandleFunc("GET /download/photo", h.HandleDownloadPhoto)
	mux.HandleFunc("GET /download/sheet", h.HandleDownloadSheet)
	mux.HandleFunc("GET /print", h.HandlePrint)
	mux.HandleFunc("GET /render/{id}", h.HandleRender)
	mux.HandleFunc("GET /image/{id}/{kind}", h.HandleImage)

	mux.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})

	return mux
}
