package handler

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/middleware"
	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/service"
)

type FeedHandler struct {
	Feed *service.FeedService
	Log  *zap.Logger
}

func NewFeedHandler(feed *service.FeedService, log *zap.Logger) *FeedHandler {
	return &FeedHandler{Feed: feed, Log: log}
}

type postReq struct {
	Kind model.PostKind  `json:"kind" validate:"required"`
	Body json.RawMessage `json:"body" validate:"required"`
}

type reactReq struct {
	Reaction string `json:"reaction" validate:"omitempty,max=16"`
}

type voteReq struct {
	OptionID uint64 `json:"option_id" validate:"required"`
}

type commentReq struct {
	Body string `json:"body" validate:"required"`
}

// List pages the feed with ?before=<post id>&limit=.  Guests see counts
// but no reaction of their own.
func (h *FeedHandler) List(c echo.Context) error {
	before, err := queryUint(c, "before")
	if err != nil {
		return fail(c, h.Log, err)
	}
	limit, err := queryUint(c, "limit")
	if err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	posts, err := h.Feed.List(ctx, middleware.Session(c), before, int(limit))
	if err != nil {
		return fail(c, h.Log, err)
	}
	var next uint64
	if n := len(posts); n > 0 {
		next = posts[n-1].ID
	}
	return c.JSON(http.StatusOK, echo.Map{"posts": posts, "next_before": next})
}

func (h *FeedHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Feed.Get(ctx, middleware.Session(c), id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *FeedHandler) Create(c echo.Context) error {
	var req postReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Feed.Create(ctx, middleware.Session(c), req.Kind, req.Body)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, p)
}

// React toggles the caller's reaction; posting the same one again removes
// it.
func (h *FeedHandler) React(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	var req reactReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	if req.Reaction == "" {
		req.Reaction = "like"
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	st, err := h.Feed.ToggleLike(ctx, middleware.Session(c), id, req.Reaction)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, st)
}

// Vote casts the caller's single vote on a poll.
func (h *FeedHandler) Vote(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	var req voteReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	st, err := h.Feed.Vote(ctx, middleware.Session(c), id, req.OptionID)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *FeedHandler) Comment(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	var req commentReq
	if err := bind(c, &req); err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	cm, err := h.Feed.Comment(ctx, middleware.Session(c), id, req.Body)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, cm)
}

func (h *FeedHandler) Comments(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return fail(c, h.Log, err)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	list, err := h.Feed.Comments(ctx, id)
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, list)
}
