package transport

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"catalog-admin/internal/middleware"
	"catalog-admin/internal/storage"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MaxFilesPerUpload bounds a multi-file upload.
const MaxFilesPerUpload = 10

const uploadConcurrency = 4

// ImageUploader stores and removes product images
type ImageUploader interface {
	Upload(ctx context.Context, originalName string, r io.Reader) (*storage.Object, error)
	Remove(ctx context.Context, filename string) error
	MaxBytes() int64
}

// UploadResponse is returned for a single uploaded file
type UploadResponse struct {
	Message string `json:"message"`
	*storage.Object
}

// MultiUploadResponse is returned for a multi-file upload
type MultiUploadResponse struct {
	Message string            `json:"message"`
	Count   int               `json:"count"`
	Files   []*storage.Object `json:"files"`
}

// UploadHandler handles image uploads
type UploadHandler struct {
	uploader ImageUploader
	logger   *zap.Logger
}

// NewUploadHandler creates a new UploadHandler
func NewUploadHandler(uploader ImageUploader, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{uploader: uploader, logger: logger}
}

// RegisterRoutes registers the upload routes on an /api/admin router
func (h *UploadHandler) RegisterRoutes(r chi.Router) {
	r.Route("/upload", func(r chi.Router) {
		r.Post("/image", h.UploadImage)
		r.Post("/images", h.UploadImages)
		r.Delete("/{filename}", h.DeleteImage)
	})
}

// parseForm bounds the request body to files*maxBytes plus form overhead.
func (h *UploadHandler) parseForm(w http.ResponseWriter, r *http.Request, files int) error {
	limit := int64(files)*h.uploader.MaxBytes() + 1<<20
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	return r.ParseMultipartForm(h.uploader.MaxBytes())
}

func (h *UploadHandler) store(ctx context.Context, header *multipart.FileHeader) (*storage.Object, error) {
	if header.Size > h.uploader.MaxBytes() {
		return nil, storage.ErrTooLarge
	}

	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return h.uploader.Upload(ctx, header.Filename, file)
}

func (h *UploadHandler) respondWithFormError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		middleware.RespondWithError(w, http.StatusBadRequest, storage.ErrTooLarge.Error())
		return
	}
	middleware.RespondWithError(w, http.StatusBadRequest, "invalid multipart form")
}

// UploadImage handles POST /upload/image with a single "file" part
func (h *UploadHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	if err := h.parseForm(w, r, 1); err != nil {
		h.respondWithFormError(w, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		middleware.RespondWithError(w, http.StatusBadRequest, "no file uploaded")
		return
	}

	obj, err := h.store(r.Context(), headers[0])
	if err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, UploadResponse{
		Message: "File uploaded successfully",
		Object:  obj,
	})
}

// UploadImages handles POST /upload/images with up to MaxFilesPerUpload "files" parts
func (h *UploadHandler) UploadImages(w http.ResponseWriter, r *http.Request) {
	if err := h.parseForm(w, r, MaxFilesPerUpload); err != nil {
		h.respondWithFormError(w, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	switch {
	case len(headers) == 0:
		middleware.RespondWithError(w, http.StatusBadRequest, "no files uploaded")
		return
	case len(headers) > MaxFilesPerUpload:
		middleware.RespondWithError(w, http.StatusBadRequest, "too many files, at most 10 are accepted")
		return
	}

	// reject the batch before storing anything
	for _, header := range headers {
		if !storage.IsImageName(header.Filename) {
			middleware.RespondWithDomainError(w, h.logger, storage.ErrUnsupportedType)
			return
		}
	}

	files := make([]*storage.Object, len(headers))
	g, gctx := errgroup.WithContext(r.Context())
	g.SetLimit(uploadConcurrency)
	for i, header := range headers {
		i, header := i, header
		g.Go(func() error {
			obj, err := h.store(gctx, header)
			if err != nil {
				return err
			}
			files[i] = obj
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		h.rollback(r.Context(), files)
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusCreated, MultiUploadResponse{
		Message: "Files uploaded successfully",
		Count:   len(files),
		Files:   files,
	})
}

func (h *UploadHandler) rollback(ctx context.Context, files []*storage.Object) {
	for _, f := range files {
		if f == nil {
			continue
		}
		if err := h.uploader.Remove(ctx, f.Filename); err != nil {
			h.logger.Warn("Failed to remove partial upload", zap.String("filename", f.Filename), zap.Error(err))
		}
	}
}

// DeleteImage handles DELETE /upload/{filename}
func (h *UploadHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	if err := h.uploader.Remove(r.Context(), chi.URLParam(r, "filename")); err != nil {
		middleware.RespondWithDomainError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
