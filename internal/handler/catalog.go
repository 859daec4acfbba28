package handler

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/middleware"
	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/repository"
	"github.com/iliyamo/studio-booking/internal/service"
)

// CatalogHandler serves the public catalog and its admin CRUD.  Writes
// purge the response cache so visitors see edits immediately.
type CatalogHandler struct {
	Catalog     *repository.CatalogRepo
	Redis       *redis.Client
	CachePrefix string
	Log         *zap.Logger
}

func NewCatalogHandler(catalog *repository.CatalogRepo, rdb *redis.Client, cachePrefix string, log *zap.Logger) *CatalogHandler {
	return &CatalogHandler{Catalog: catalog, Redis: rdb, CachePrefix: cachePrefix, Log: log}
}

type itemReq struct {
	CategoryID  *uint64         `json:"category_id"`
	Name        string          `json:"name" validate:"required,max=160"`
	Description string          `json:"description" validate:"max=4000"`
	PriceCents  uint64          `json:"price_cents" validate:"whole_units"`
	DurationMin uint32          `json:"duration_min" validate:"max=1440"`
	ImageURL    string          `json:"image_url" validate:"omitempty,url"`
	Metadata    json.RawMessage `json:"metadata"`
	IsActive    *bool           `json:"is_active"`
}

func (r itemReq) item(kind model.ItemKind) model.CatalogItem {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return model.CatalogItem{
		Kind: kind, CategoryID: r.CategoryID, Name: strings.TrimSpace(r.Name), Description: r.Description,
		PriceCents: r.PriceCents, DurationMin: r.DurationMin, ImageURL: r.ImageURL,
		Metadata: r.Metadata, IsActive: active,
	}
}

type categoryReq struct {
	Kind string `json:"kind" validate:"required"`
	Name string `json:"name" validate:"required,max=80"`
	Slug string `json:"slug" validate:"omitempty,max=80"`
}

func kindParam(c echo.Context) (model.ItemKind, error) {
	k, ok := model.ParseItemKind(strings.ToLower(c.Param("kind")))
	if !ok {
		return "", &service.ValidationError{Field: "kind", Message: "unknown catalog kind"}
	}
	return k, nil
}

// List returns the active items of a kind, optionally filtered by
// ?category_id=.
func (h *CatalogHandler) List(c echo.Context) error {
	kind, err := kindParam(c)
	if err != nil {
		return fail(c, h.Log, err)
	}
	catID, err := queryUint(c, "category_id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	var cat *uint64
	if catID > 0 {
		cat = &catID
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	items, err := h.Catalog.ListByKind(ctx, kind, cat, false)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"kind": kind, "items": items})
}

// Get returns one active item, checking that it is of the route's kind.
func (h *CatalogHandler) Get(kind model.ItemKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := pathID(c, "id")
		if err != nil {
			return fail(c, h.Log, err)
		}
		ctx, cancel := reqCtx(c)
		defer cancel()

		it, err := h.Catalog.GetByID(ctx, id)
		if err != nil {
			return fail(c, h.Log, err)
		}
		if it.Kind != kind || !it.IsActive {
			return fail(c, h.Log, repository.ErrNotFound)
		}
		return c.JSON(http.StatusOK, it)
	}
}

// Categories lists categories, optionally for one ?kind=.
func (h *CatalogHandler) Categories(c echo.Context) error {
	var kind model.ItemKind
	if k := c.QueryParam("kind"); k != "" {
		parsed, ok := model.ParseItemKind(strings.ToLower(k))
		if !ok {
			return fail(c, h.Log, &service.ValidationError{Field: "kind", Message: "unknown catalog kind"})
		}
		kind = parsed
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	cats, err := h.Catalog.ListCategories(ctx, kind)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, cats)
}

// ----- admin -----

// AdminList includes inactive items.
func (h *CatalogHandler) AdminList(c echo.Context) error {
	kind, err := kindParam(c)
	if err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	items, err := h.Catalog.ListByKind(ctx, kind, nil, true)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"kind": kind, "items": items})
}

func (h *CatalogHandler) Create(c echo.Context) error {
	kind, err := kindParam(c)
	if err != nil {
		return fail(c, h.Log, err)
	}
	var req itemReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	it := req.item(kind)

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Catalog.Create(ctx, &it); err != nil {
		return fail(c, h.Log, err)
	}
	h.purge(c)
	return c.JSON(http.StatusCreated, it)
}

func (h *CatalogHandler) Update(c echo.Context) error {
	kind, err := kindParam(c)
	if err != nil {
		return fail(c, h.Log, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	var req itemReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	it := req.item(kind)
	it.ID = id

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Catalog.Update(ctx, &it); err != nil {
		return fail(c, h.Log, err)
	}
	h.purge(c)
	return c.JSON(http.StatusOK, it)
}

func (h *CatalogHandler) Delete(c echo.Context) error {
	kind, err := kindParam(c)
	if err != nil {
		return fail(c, h.Log, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Catalog.Delete(ctx, kind, id); err != nil {
		return fail(c, h.Log, err)
	}
	h.purge(c)
	return c.NoContent(http.StatusNoContent)
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(s string) string {
	return strings.Trim(slugStrip.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

func (h *CatalogHandler) CreateCategory(c echo.Context) error {
	var req categoryReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	kind, ok := model.ParseItemKind(strings.ToLower(req.Kind))
	if !ok {
		return fail(c, h.Log, &service.ValidationError{Field: "kind", Message: "unknown catalog kind"})
	}
	slug := slugify(req.Slug)
	if slug == "" {
		slug = slugify(req.Name)
	}
	if slug == "" {
		return fail(c, h.Log, &service.ValidationError{Field: "slug", Message: "is required"})
	}
	cat := model.Category{Kind: kind, Name: strings.TrimSpace(req.Name), Slug: slug}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Catalog.CreateCategory(ctx, &cat); err != nil {
		return fail(c, h.Log, err)
	}
	h.purge(c)
	return c.JSON(http.StatusCreated, cat)
}

func (h *CatalogHandler) DeleteCategory(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Catalog.DeleteCategory(ctx, id); err != nil {
		return fail(c, h.Log, err)
	}
	h.purge(c)
	return c.NoContent(http.StatusNoContent)
}

func (h *CatalogHandler) purge(c echo.Context) {
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := middleware.PurgeCache(ctx, h.Redis, h.CachePrefix); err != nil {
		h.Log.Warn("cache purge failed", zap.Error(err))
	}
}
