package httpapi

import (
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/dmitrijs2005/filevault/internal/server/coordinator"
	"github.com/dmitrijs2005/filevault/internal/server/services"
	"github.com/go-chi/chi/v5"
)

// multipartMemory is how much of a multipart body is held in memory before
// parts spill to temporary files.
const multipartMemory = 32 << 20

// CreateFolderRequest is the body of POST /api/folders. An empty ParentID
// creates the folder at home.
type CreateFolderRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	ParentID string `json:"parent_id" validate:"omitempty,max=64"`
}

// UploadTreeResponse is returned by the bulk upload endpoint.
type UploadTreeResponse struct {
	Message string                  `json:"message"`
	Result  *coordinator.BulkResult `json:"result"`
}

func folderParam(r *http.Request) string {
	id := chi.URLParam(r, "id")
	if id == "" {
		return common.RootFolderID
	}
	return id
}

func (h *handler) createFolder(w http.ResponseWriter, r *http.Request) {
	var req CreateFolderRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	parent := req.ParentID
	if parent == "" {
		parent = common.RootFolderID
	}
	f, err := h.folders.Create(r.Context(), UserIDFromContext(r.Context()), parent, req.Name)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondOK(w, http.StatusCreated, f)
}

func (h *handler) listFolder(w http.ResponseWriter, r *http.Request) {
	l, err := h.folders.List(r.Context(), UserIDFromContext(r.Context()), folderParam(r))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondOK(w, http.StatusOK, l)
}

func (h *handler) folderPath(w http.ResponseWriter, r *http.Request) {
	p, err := h.folders.Path(r.Context(), UserIDFromContext(r.Context()), folderParam(r))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondOK(w, http.StatusOK, p)
}

func (h *handler) deleteFolder(w http.ResponseWriter, r *http.Request) {
	res, err := h.folders.Delete(r.Context(), UserIDFromContext(r.Context()), folderParam(r))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondOK(w, http.StatusOK, res)
}

func (h *handler) setFolderPrivacy(w http.ResponseWriter, r *http.Request) {
	res, err := h.folders.SetPrivacy(r.Context(), UserIDFromContext(r.Context()), folderParam(r), privacyParam(r))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondOK(w, http.StatusOK, res)
}

// parseMultipart bounds and parses the request body. On failure the error
// response has been written.
func (h *handler) parseMultipart(w http.ResponseWriter, r *http.Request) (*multipart.Form, bool) {
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			respondMessage(w, http.StatusRequestEntityTooLarge, "upload too large")
			return nil, false
		}
		respondMessage(w, http.StatusBadRequest, "invalid multipart body")
		return nil, false
	}
	return r.MultipartForm, true
}

func partMimeType(fh *multipart.FileHeader) string {
	if ct := fh.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return common.DefaultMimeType
}

func (h *handler) uploadFile(w http.ResponseWriter, r *http.Request) {
	form, ok := h.parseMultipart(w, r)
	if !ok {
		return
	}
	defer func() { _ = form.RemoveAll() }()

	fhs := form.File["file"]
	if len(fhs) == 0 {
		respondMessage(w, http.StatusBadRequest, "no file provided")
		return
	}
	fh := fhs[0]
	body, err := fh.Open()
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	defer body.Close()

	f, err := h.folders.Upload(r.Context(), UserIDFromContext(r.Context()), folderParam(r), services.UploadFile{
		Name:     fh.Filename,
		MimeType: partMimeType(fh),
		Size:     fh.Size,
		Body:     body,
	})
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondOK(w, http.StatusCreated, f)
}

// treeParts returns the file_N parts of form in index order together with
// their file_N_path values. Parts without a path use the file name.
func treeParts(form *multipart.Form) ([]*multipart.FileHeader, []string) {
	type part struct {
		idx  string
		fh   *multipart.FileHeader
		path string
	}
	var parts []part
	for key, fhs := range form.File {
		if !strings.HasPrefix(key, "file_") || strings.HasSuffix(key, "_path") || len(fhs) == 0 {
			continue
		}
		idx := strings.TrimPrefix(key, "file_")
		p := fhs[0].Filename
		if v := form.Value[key+"_path"]; len(v) > 0 && v[0] != "" {
			p = v[0]
		}
		parts = append(parts, part{idx: idx, fh: fhs[0], path: p})
	}
	sort.Slice(parts, func(i, j int) bool {
		a, errA := strconv.Atoi(parts[i].idx)
		b, errB := strconv.Atoi(parts[j].idx)
		if errA == nil && errB == nil {
			return a < b
		}
		return parts[i].idx < parts[j].idx
	})

	fhs := make([]*multipart.FileHeader, len(parts))
	paths := make([]string, len(parts))
	for i, p := range parts {
		fhs[i], paths[i] = p.fh, p.path
	}
	return fhs, paths
}

func (h *handler) uploadTree(w http.ResponseWriter, r *http.Request) {
	form, ok := h.parseMultipart(w, r)
	if !ok {
		return
	}
	defer func() { _ = form.RemoveAll() }()

	fhs, paths := treeParts(form)
	if len(fhs) == 0 {
		respondMessage(w, http.StatusBadRequest, "no files provided")
		return
	}

	items := make([]coordinator.BulkItem, 0, len(fhs))
	var opened []io.Closer
	defer func() {
		for _, c := range opened {
			_ = c.Close()
		}
	}()
	for i, fh := range fhs {
		body, err := fh.Open()
		if err != nil {
			respondError(w, r, h.log, err)
			return
		}
		opened = append(opened, body)
		items = append(items, coordinator.BulkItem{
			RelativePath: paths[i],
			MimeType:     partMimeType(fh),
			Size:         fh.Size,
			Body:         body,
		})
	}

	res, err := h.folders.UploadTree(r.Context(), UserIDFromContext(r.Context()), folderParam(r), items)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondOK(w, http.StatusCreated, UploadTreeResponse{Message: res.Summary(), Result: res})
}

func attachment(name string) string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": name})
}

func (h *handler) downloadFolder(w http.ResponseWriter, r *http.Request) {
	arc, err := h.folders.Download(r.Context(), UserIDFromContext(r.Context()), folderParam(r))
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	defer arc.Body.Close()

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", attachment(arc.Name))
	w.Header().Set("Content-Length", strconv.FormatInt(arc.Size, 10))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, arc.Body); err != nil {
		h.log.Warn(r.Context(), "archive transfer interrupted", "name", arc.Name, "error", err)
	}
}
