package handler

import (
	"bytes"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/service"
	"github.com/iliyamo/studio-booking/internal/storage"
)

// UploadHandler accepts admin image uploads and returns the public URL to
// store as image_url.
type UploadHandler struct {
	Store storage.Store
	Log   *zap.Logger
	Now   func() time.Time
}

func NewUploadHandler(st storage.Store, log *zap.Logger) *UploadHandler {
	return &UploadHandler{Store: st, Log: log, Now: time.Now}
}

var categoryPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,39}$`)

// Upload handles multipart field "file" with ?category= naming the key
// prefix.  Only images up to 5 MB are accepted; the type is sniffed from
// the content, not trusted from the client.
func (h *UploadHandler) Upload(c echo.Context) error {
	if h.Store == nil {
		return fail(c, h.Log, service.ErrStorageDisabled)
	}
	category := c.QueryParam("category")
	if !categoryPattern.MatchString(category) {
		return fail(c, h.Log, &service.ValidationError{Field: "category", Message: "use lowercase letters, digits, - or _"})
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return fail(c, h.Log, &service.ValidationError{Field: "file", Message: "is required"})
	}
	if fh.Size > storage.MaxUploadBytes {
		return fail(c, h.Log, storage.ErrTooLarge)
	}
	f, err := fh.Open()
	if err != nil {
		return fail(c, h.Log, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, storage.MaxUploadBytes+1))
	if err != nil {
		return fail(c, h.Log, err)
	}
	if len(data) > storage.MaxUploadBytes {
		return fail(c, h.Log, storage.ErrTooLarge)
	}
	ct := http.DetectContentType(data)
	ext, ok := storage.ImageExt(ct)
	if !ok {
		return fail(c, h.Log, &service.ValidationError{Field: "file", Message: "must be a jpeg, png, webp or gif image"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	key := storage.ObjectKey(category, ext, h.Now())
	url, err := h.Store.Put(ctx, key, bytes.NewReader(data), ct)
	if err != nil {
		return fail(c, h.Log, err)
	}
	h.Log.Info("image uploaded", zap.String("key", key), zap.Int("bytes", len(data)))
	return c.JSON(http.StatusCreated, echo.Map{"key": key, "url": url})
}
