package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/repository"
	"github.com/iliyamo/studio-booking/internal/session"
	"github.com/iliyamo/studio-booking/internal/storage"
)

const (
	maxCommentLen = 1000
	maxPollLabels = 6
	feedPageSize  = 20
)

// FeedService is the server side of the social feed.  Counters are
// changed in the same transaction as the row they count, so they never
// drift from the likes, votes and comments tables.
type FeedService struct {
	feed  *repository.FeedRepo
	store storage.Store
	log   *zap.Logger
	now   func() time.Time
}

// NewFeedService wires the feed.  store may be nil; posts carrying an
// inline image are then refused.
func NewFeedService(feed *repository.FeedRepo, store storage.Store, log *zap.Logger) *FeedService {
	return &FeedService{feed: feed, store: store, log: log.Named("feed"), now: time.Now}
}

// List returns a page of posts, newest first, before beforeID (0 for the
// first page).
func (s *FeedService) List(ctx context.Context, sess session.Session, beforeID uint64, limit int) ([]model.Post, error) {
	if limit <= 0 || limit > 100 {
		limit = feedPageSize
	}
	return s.feed.ListPosts(ctx, sess.UserID, beforeID, limit)
}

func (s *FeedService) Get(ctx context.Context, sess session.Session, id uint64) (model.Post, error) {
	return s.feed.GetPost(ctx, id, sess.UserID)
}

// Create decodes the body for kind, uploads inline images and stores the
// post.
func (s *FeedService) Create(ctx context.Context, sess session.Session, kind model.PostKind, raw json.RawMessage) (model.Post, error) {
	if sess.Guest() {
		return model.Post{}, repository.ErrForbidden
	}
	body, err := model.DecodePostBody(kind, raw)
	if err != nil {
		return model.Post{}, invalid("body", err.Error())
	}
	if err := body.Validate(); err != nil {
		return model.Post{}, invalid("body", err.Error())
	}
	body, err = s.storeImages(ctx, body)
	if err != nil {
		return model.Post{}, err
	}

	p := model.Post{UserID: sess.UserID, Kind: kind, Body: body}
	if err := s.feed.CreatePost(ctx, &p); err != nil {
		return model.Post{}, err
	}
	s.log.Info("post created", zap.Uint64("post_id", p.ID), zap.String("kind", string(kind)))
	return p, nil
}

// storeImages replaces inline data URIs with uploaded URLs.
func (s *FeedService) storeImages(ctx context.Context, body model.PostBody) (model.PostBody, error) {
	upload := func(uri string) (string, error) {
		if !strings.HasPrefix(uri, "data:") {
			return uri, nil
		}
		if s.store == nil {
			return "", ErrStorageDisabled
		}
		urls, err := storage.UploadDataURIs(ctx, s.store, "posts", []string{uri}, s.now())
		if err != nil {
			return "", err
		}
		return urls[0], nil
	}
	var err error
	switch b := body.(type) {
	case model.ImageBody:
		b.ImageURL, err = upload(b.ImageURL)
		return b, err
	case model.PaintingBody:
		b.ImageURL, err = upload(b.ImageURL)
		return b, err
	case model.PollBody:
		if len(b.Options) > maxPollLabels {
			return nil, invalid("options", "too many poll options")
		}
		return b, nil
	case model.TextBody:
		return b, nil
	}
	return body, nil
}

// LikeState is the caller's reaction after a toggle and the new count.
type LikeState struct {
	PostID     uint64  `json:"post_id"`
	MyReaction *string `json:"my_reaction"`
	LikeCount  uint32  `json:"like_count"`
}

// ToggleLike applies a reaction click.
func (s *FeedService) ToggleLike(ctx context.Context, sess session.Session, postID uint64, reaction string) (LikeState, error) {
	if sess.Guest() {
		return LikeState{}, repository.ErrForbidden
	}
	if !model.Reactions[reaction] {
		return LikeState{}, invalid("reaction", "unknown reaction")
	}
	mine, count, err := s.feed.ToggleLike(ctx, postID, sess.UserID, reaction)
	if err != nil {
		return LikeState{}, err
	}
	return LikeState{PostID: postID, MyReaction: mine, LikeCount: count}, nil
}

// PollState is a poll after a vote.
type PollState struct {
	PostID         uint64             `json:"post_id"`
	Options        []model.PollOption `json:"options"`
	Percentages    []float64          `json:"percentages"`
	MyVoteOptionID uint64             `json:"user_vote_option_id"`
}

// Vote records the caller's single vote.  A second vote yields
// repository.ErrAlreadyVoted.
func (s *FeedService) Vote(ctx context.Context, sess session.Session, postID, optionID uint64) (PollState, error) {
	if sess.Guest() {
		return PollState{}, repository.ErrForbidden
	}
	opts, err := s.feed.Vote(ctx, postID, optionID, sess.UserID)
	if err != nil {
		return PollState{}, err
	}
	return PollState{PostID: postID, Options: opts, Percentages: model.PollPercentages(opts), MyVoteOptionID: optionID}, nil
}

// Comment adds a comment to a post.
func (s *FeedService) Comment(ctx context.Context, sess session.Session, postID uint64, body string) (model.Comment, error) {
	if sess.Guest() {
		return model.Comment{}, repository.ErrForbidden
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return model.Comment{}, invalid("body", "is required")
	}
	if utf8.RuneCountInString(body) > maxCommentLen {
		return model.Comment{}, invalid("body", "too long")
	}
	c := model.Comment{PostID: postID, UserID: sess.UserID, Body: body}
	if err := s.feed.AddComment(ctx, &c); err != nil {
		return model.Comment{}, err
	}
	return c, nil
}

func (s *FeedService) Comments(ctx context.Context, postID uint64) ([]model.Comment, error) {
	return s.feed.ListComments(ctx, postID)
}
