package api

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp"

	"github.com/JaimeStill/smartwaste/internal/reports"
	"github.com/JaimeStill/smartwaste/pkg/formatting"
	"github.com/JaimeStill/smartwaste/pkg/handlers"
	"github.com/JaimeStill/smartwaste/pkg/routes"
	"github.com/JaimeStill/smartwaste/pkg/storage"
)

const (
	photoField  = "photo"
	photoPrefix = "photos/"
)

var photoExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

var (
	errPhotoMissing     = errors.New("photo file is required")
	errPhotoTooLarge    = errors.New("photo exceeds size limit")
	errPhotoUnsupported = errors.New("photo must be JPEG, PNG, or WEBP")
	errPhotoCorrupt     = errors.New("photo could not be decoded")
)

// photoUpload describes a stored photo. Location is the GPS position from
// the JPEG EXIF block when the camera recorded one.
type photoUpload struct {
	Key         string            `json:"key"`
	ContentType string            `json:"content_type"`
	Size        int64             `json:"size"`
	Width       int               `json:"width"`
	Height      int               `json:"height"`
	Location    *reports.Location `json:"location,omitempty"`
}

type photoHandler struct {
	store   storage.System
	logger  *slog.Logger
	maxSize int64
	now     func() time.Time
}

func newPhotoHandler(store storage.System, logger *slog.Logger, maxSize int64) *photoHandler {
	return &photoHandler{
		store:   store,
		logger:  logger.With("handler", "photos"),
		maxSize: maxSize,
		now:     time.Now,
	}
}

func (h *photoHandler) routes() routes.Group {
	return routes.Group{
		Prefix: "/photos",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "", Handler: h.upload},
			{Method: "GET", Pattern: "/{key...}", Handler: h.download},
		},
	}
}

// upload stores a multipart "photo" file and returns its storage key.
func (h *photoHandler) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxSize+(1<<20))

	if err := r.ParseMultipartForm(h.maxSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			handlers.RespondError(w, h.logger, http.StatusRequestEntityTooLarge, errPhotoTooLarge)
			return
		}
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("%w: %w", handlers.ErrInvalidBody, err))
		return
	}

	file, header, err := r.FormFile(photoField)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, errPhotoMissing)
		return
	}
	defer file.Close()

	if header.Size > h.maxSize {
		handlers.RespondError(
			w, h.logger, http.StatusRequestEntityTooLarge,
			fmt.Errorf("%w: %s > %s", errPhotoTooLarge, formatting.FormatBytes(header.Size, 1), formatting.FormatBytes(h.maxSize, 1)),
		)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, h.maxSize+1))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, errPhotoMissing)
		return
	}
	if int64(len(data)) > h.maxSize {
		handlers.RespondError(w, h.logger, http.StatusRequestEntityTooLarge, errPhotoTooLarge)
		return
	}

	contentType := http.DetectContentType(data)
	ext, ok := photoExtensions[contentType]
	if !ok {
		handlers.RespondError(w, h.logger, http.StatusUnsupportedMediaType, errPhotoUnsupported)
		return
	}

	out, err := inspectPhoto(data, contentType)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusUnsupportedMediaType, err)
		return
	}

	out.Key = h.key(ext)
	if err := h.store.Upload(r.Context(), out.Key, bytes.NewReader(data), contentType); err != nil {
		handlers.RespondError(w, h.logger, storage.MapHTTPStatus(err), err)
		return
	}

	h.logger.Info(
		"photo uploaded",
		"key", out.Key,
		"size", out.Size,
		"content_type", contentType,
		"geotagged", out.Location != nil,
	)

	handlers.RespondJSON(w, http.StatusCreated, out)
}

// inspectPhoto decodes the image header and, for JPEG, the EXIF GPS tags.
// Missing or invalid EXIF data is not an error.
func inspectPhoto(data []byte, contentType string) (photoUpload, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return photoUpload{}, fmt.Errorf("%w: %w", errPhotoCorrupt, err)
	}

	out := photoUpload{
		ContentType: contentType,
		Size:        int64(len(data)),
		Width:       cfg.Width,
		Height:      cfg.Height,
	}

	if contentType != "image/jpeg" {
		return out, nil
	}

	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return out, nil
	}
	lat, lng, err := x.LatLong()
	if err != nil {
		return out, nil
	}

	loc := reports.Location{Lat: lat, Lng: lng}
	if loc.Validate() == nil {
		out.Location = &loc
	}
	return out, nil
}

func (h *photoHandler) download(w http.ResponseWriter, r *http.Request) {
	key := photoPrefix + strings.TrimPrefix(r.PathValue("key"), photoPrefix)

	if err := storage.ValidateKey(key); err != nil {
		handlers.RespondError(w, h.logger, storage.MapHTTPStatus(err), err)
		return
	}

	blob, err := h.store.Download(r.Context(), key)
	if err != nil {
		handlers.RespondError(w, h.logger, storage.MapHTTPStatus(err), err)
		return
	}
	defer blob.Body.Close()

	w.Header().Set("Content-Type", blob.ContentType)
	if blob.ContentLength > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(blob.ContentLength, 10))
	}
	w.WriteHeader(http.StatusOK)
	io.Copy(w, blob.Body)
}

func (h *photoHandler) key(ext string) string {
	now := h.now().UTC()
	return fmt.Sprintf("%s%04d/%02d/%s%s", photoPrefix, now.Year(), int(now.Month()), uuid.NewString(), ext)
}
