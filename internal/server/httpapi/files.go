package httpapi

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func (h *handler) listRootFiles(w http.ResponseWriter, r *http.Request) {
	fs, err := h.files.ListRoot(r.Context(), UserIDFromContext(r.Context()))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondOK(w, http.StatusOK, fs)
}

func (h *handler) getFile(w http.ResponseWriter, r *http.Request) {
	f, err := h.files.Get(r.Context(), UserIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondOK(w, http.StatusOK, f)
}

func (h *handler) previewFile(w http.ResponseWriter, r *http.Request) {
	p, err := h.files.Preview(r.Context(), UserIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondOK(w, http.StatusOK, p)
}

func (h *handler) deleteFile(w http.ResponseWriter, r *http.Request) {
	if err := h.files.Remove(r.Context(), UserIDFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondOK(w, http.StatusOK, nil)
}

func (h *handler) setFilePrivacy(w http.ResponseWriter, r *http.Request) {
	f, err := h.files.SetPrivacy(r.Context(), UserIDFromContext(r.Context()), chi.URLParam(r, "id"), privacyParam(r))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondOK(w, http.StatusOK, f)
}

func (h *handler) downloadFile(w http.ResponseWriter, r *http.Request) {
	dl, err := h.files.Download(r.Context(), UserIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	defer dl.Body.Close()

	w.Header().Set("Content-Type", dl.File.MimeType)
	w.Header().Set("Content-Disposition", attachment(dl.File.Name))
	w.Header().Set("Content-Length", strconv.FormatInt(dl.File.Size, 10))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, dl.Body); err != nil {
		h.log.Warn(r.Context(), "file transfer interrupted", "file_id", dl.File.ID, "error", err)
	}
}
