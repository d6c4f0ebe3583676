package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/lehigh-university-libraries/passport/internal/session"
)

func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctrl := h.session(w, r)

	// Check if this is a JSON request with image URL
	contentType := r.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") {
		h.handleURLUpload(w, r, ctrl)
		return
	}

	// Handle file upload
	h.handleFileUpload(w, r, ctrl)
}

func (h *Handler) handleURLUpload(w http.ResponseWriter, r *http.Request, ctrl *session.Controller) {
	var request struct {
		ImageURL string `json:"image_url"`
	}

	if err := sonic.ConfigStd.NewDecoder(http.MaxBytesReader(w, r.Body, 64*1024)).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	if request.ImageURL == "" {
		h.writeError(w, "image_url is required", http.StatusBadRequest)
		return
	}

	imageData, err := h.downloadImageFromURL(r.Context(), request.ImageURL)
	if err != nil {
		h.writeError(w, "Failed to process image URL: "+err.Error(), http.StatusBadRequest)
		return
	}

	h.load(w, r, ctrl, imageData)
}

func (h *Handler) handleFileUpload(w http.ResponseWriter, r *http.Request, ctrl *session.Controller) {
	// Allow for multipart overhead on top of the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, h.uploadLimit+1024*1024)

	file, _, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.fail(w, r, ctrl, h.tooLargeMessage(), http.StatusRequestEntityTooLarge)
			return
		}
		h.fail(w, r, ctrl, "Failed to read file: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	fileData, err := h.readLimited(file)
	if err != nil {
		if errors.Is(err, errTooLarge) {
			h.fail(w, r, ctrl, h.tooLargeMessage(), http.StatusRequestEntityTooLarge)
			return
		}
		h.fail(w, r, ctrl, "Failed to read file contents: "+err.Error(), http.StatusInternalServerError)
		return
	}

	h.load(w, r, ctrl, fileData)
}

// load hands the bytes to the session. Unreadable data leaves the session as
// it was.
func (h *Handler) load(w http.ResponseWriter, r *http.Request, ctrl *session.Controller, data []byte) {
	if err := ctrl.Upload(data); err != nil {
		if wantsJSON(r) {
			// The API reports the failure directly rather than as a notice.
			ctrl.TakeNotice()
			h.writeError(w, session.UploadFailureMessage, http.StatusBadRequest)
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.done(w, r, ctrl, http.StatusOK)
}

func (h *Handler) tooLargeMessage() string {
	return fmt.Sprintf("File too large (max %dMB)", h.uploadLimit/(1024*1024))
}
