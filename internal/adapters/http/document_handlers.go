package httpadapter

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"path"
	"strings"

	"github.com/kirillkom/sanitary-filing/internal/core/domain"
)

const multipartMemoryBytes = 8 << 20

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	filingID, err := pathParam(r, "id")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	instances, err := rt.documents.ListByFiling(r.Context(), filingID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": instances})
}

func (rt *Router) createDocument(w http.ResponseWriter, r *http.Request) {
	filingID, err := pathParam(r, "id")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	var req struct {
		TemplateCode string         `json:"template_code"`
		Data         map[string]any `json:"data"`
	}
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeDomainError(w, r, err)
		return
	}
	if strings.TrimSpace(req.TemplateCode) == "" {
		writeDomainError(w, r, domain.NewError(domain.ErrInvalidInput, "create document", "template_code is required"))
		return
	}
	inst, err := rt.documents.Create(r.Context(), filingID, req.TemplateCode, req.Data)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, inst)
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	inst, err := rt.documents.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inst)
}

func (rt *Router) deleteDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if err := rt.documents.Delete(r.Context(), id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) fillDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	var req struct {
		Data map[string]any `json:"data"`
	}
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeDomainError(w, r, err)
		return
	}
	inst, err := rt.documents.FillData(r.Context(), id, req.Data)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inst)
}

func (rt *Router) uploadDocumentFiles(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	files, err := rt.readUploads(w, r)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	inst, err := rt.documents.UploadFiles(r.Context(), id, files)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inst)
}

func (rt *Router) verifyDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	inst, err := rt.documents.Verify(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inst)
}

func (rt *Router) finalizeDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathParam(r, "id")
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	inst, err := rt.documents.Finalize(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inst)
}

// readUploads buffers every "file" part. The whole request is capped at
// maxUploadBytes; per-template limits are enforced by the use case.
func (rt *Router) readUploads(w http.ResponseWriter, r *http.Request) ([]domain.FileUpload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, rt.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemoryBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, domain.NewError(domain.ErrFileTooLarge, "upload files", "request exceeds %d bytes", tooLarge.Limit)
		}
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload files", err)
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		return nil, domain.NewError(domain.ErrInvalidInput, "upload files", "multipart field 'file' is required")
	}
	files := make([]domain.FileUpload, 0, len(headers))
	for _, header := range headers {
		upload, err := readPart(header)
		if err != nil {
			return nil, err
		}
		files = append(files, upload)
	}
	return files, nil
}

func readPart(header *multipart.FileHeader) (domain.FileUpload, error) {
	f, err := header.Open()
	if err != nil {
		return domain.FileUpload{}, domain.WrapError(domain.ErrInvalidInput, "upload files", fmt.Errorf("open %q: %w", header.Filename, err))
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return domain.FileUpload{}, domain.WrapError(domain.ErrInvalidInput, "upload files", fmt.Errorf("read %q: %w", header.Filename, err))
	}
	mimeType := strings.TrimSpace(header.Header.Get("Content-Type"))
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(content)
	}
	return domain.FileUpload{
		FileName: header.Filename,
		MIMEType: mimeType,
		Content:  content,
	}, nil
}

func (rt *Router) downloadFile(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" {
		writeDomainError(w, r, domain.NewError(domain.ErrInvalidInput, "download file", "key is required"))
		return
	}
	rc, err := rt.files.Retrieve(r.Context(), key)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	defer rc.Close()

	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, path.Base(key)))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		slog.Warn("file_download_interrupted", "key", key, "error", err)
	}
}
