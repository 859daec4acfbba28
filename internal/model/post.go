package model

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// PostKind tags the variant stored in a post's body.
type PostKind string

const (
	PostText     PostKind = "text"
	PostImage    PostKind = "image"
	PostPoll     PostKind = "poll"
	PostPainting PostKind = "painting"
)

// PostBody is the sealed set of post variants.  Only the types in this file
// implement it, so switches over PostBody are exhaustive.
type PostBody interface {
	Kind() PostKind
	Validate() error
	postBody()
}

type TextBody struct {
	Text string `json:"text"`
}

type ImageBody struct {
	ImageURL string `json:"image_url"`
	Caption  string `json:"caption,omitempty"`
}

// PollBody stores the question; options and their counters live in
// poll_options so votes can be counted atomically.
type PollBody struct {
	Question string   `json:"question"`
	Options  []string `json:"options,omitempty"`
}

// PaintingBody showcases an artwork, optionally linked to a catalog item.
type PaintingBody struct {
	Title      string  `json:"title"`
	ImageURL   string  `json:"image_url"`
	ArtworkID  *uint64 `json:"artwork_id,omitempty"`
	PriceCents uint64  `json:"price_cents,omitempty"`
}

func (TextBody) Kind() PostKind     { return PostText }
func (ImageBody) Kind() PostKind    { return PostImage }
func (PollBody) Kind() PostKind     { return PostPoll }
func (PaintingBody) Kind() PostKind { return PostPainting }

func (TextBody) postBody()     {}
func (ImageBody) postBody()    {}
func (PollBody) postBody()     {}
func (PaintingBody) postBody() {}

func (b TextBody) Validate() error {
	if b.Text == "" {
		return fmt.Errorf("text is required")
	}
	return nil
}

func (b ImageBody) Validate() error {
	if b.ImageURL == "" {
		return fmt.Errorf("image_url is required")
	}
	return nil
}

func (b PollBody) Validate() error {
	if b.Question == "" {
		return fmt.Errorf("question is required")
	}
	if len(b.Options) < 2 {
		return fmt.Errorf("a poll needs at least two options")
	}
	for _, o := range b.Options {
		if o == "" {
			return fmt.Errorf("poll options must not be empty")
		}
	}
	return nil
}

func (b PaintingBody) Validate() error {
	if b.Title == "" || b.ImageURL == "" {
		return fmt.Errorf("title and image_url are required")
	}
	return nil
}

// DecodePostBody unmarshals raw into the variant selected by kind.
func DecodePostBody(kind PostKind, raw json.RawMessage) (PostBody, error) {
	var (
		body PostBody
		err  error
	)
	switch kind {
	case PostText:
		var b TextBody
		err = json.Unmarshal(raw, &b)
		body = b
	case PostImage:
		var b ImageBody
		err = json.Unmarshal(raw, &b)
		body = b
	case PostPoll:
		var b PollBody
		err = json.Unmarshal(raw, &b)
		body = b
	case PostPainting:
		var b PaintingBody
		err = json.Unmarshal(raw, &b)
		body = b
	default:
		return nil, fmt.Errorf("unknown post kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s body: %w", kind, err)
	}
	return body, nil
}

// Post is a feed entry.  MyReaction and MyVoteOptionID are filled per
// viewer and are nil for guests.
type Post struct {
	ID             uint64       `json:"id"`
	UserID         uint64       `json:"user_id"`
	Kind           PostKind     `json:"kind"`
	Body           PostBody     `json:"body"`
	LikeCount      uint32       `json:"like_count"`
	CommentCount   uint32       `json:"comment_count"`
	PollOptions    []PollOption `json:"poll_options,omitempty"`
	MyReaction     *string      `json:"my_reaction,omitempty"`
	MyVoteOptionID *uint64      `json:"user_vote_option_id,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

type PollOption struct {
	ID        uint64 `json:"id"`
	PostID    uint64 `json:"post_id"`
	Label     string `json:"label"`
	VoteCount uint32 `json:"vote_count"`
}

type Comment struct {
	ID        uint64    `json:"id"`
	PostID    uint64    `json:"post_id"`
	UserID    uint64    `json:"user_id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Reactions accepted by the like toggle.
var Reactions = map[string]bool{"like": true, "love": true, "wow": true, "fire": true}

// LikeOp is the store operation a reaction click resolves to.
type LikeOp int

const (
	LikeInsert LikeOp = iota
	LikeUpdate
	LikeDelete
)

// ToggleReaction resolves a click on clicked given the viewer's current
// reaction.  Clicking the same reaction removes it, a different one swaps
// it, and no prior reaction inserts.  delta is the change to the like count.
func ToggleReaction(current *string, clicked string) (next *string, op LikeOp, delta int) {
	switch {
	case current == nil:
		c := clicked
		return &c, LikeInsert, 1
	case *current == clicked:
		return nil, LikeDelete, -1
	default:
		c := clicked
		return &c, LikeUpdate, 0
	}
}

// PollPercentages returns each option's share of the votes, rounded to one
// decimal.  With no votes every share is zero.
func PollPercentages(opts []PollOption) []float64 {
	var total uint64
	for _, o := range opts {
		total += uint64(o.VoteCount)
	}
	out := make([]float64, len(opts))
	if total == 0 {
		return out
	}
	for i, o := range opts {
		out[i] = math.Round(float64(o.VoteCount)*1000/float64(total)) / 10
	}
	return out
}
