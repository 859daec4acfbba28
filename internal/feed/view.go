// Package feed holds the optimistic view of feed posts a client keeps while
// its like and vote requests are in flight.  Every optimistic change keeps
// the last server-confirmed copy of the post so a failed request can be
// rolled back exactly.
package feed

import (
	"errors"
	"sync"

	"github.com/iliyamo/studio-booking/internal/model"
)

var (
	ErrUnknownPost   = errors.New("unknown post")
	ErrNotPoll       = errors.New("post is not a poll")
	ErrUnknownOption = errors.New("unknown poll option")
	ErrVoteLocked    = errors.New("already voted")
	ErrBadReaction   = errors.New("unknown reaction")
)

// View is safe for concurrent use.
type View struct {
	mu    sync.Mutex
	order []uint64
	posts map[uint64]model.Post
	// confirmed holds the server copy of posts with pending optimistic
	// changes.
	confirmed map[uint64]model.Post
}

// NewView starts from server-provided posts.
func NewView(posts []model.Post) *View {
	v := &View{
		posts:     make(map[uint64]model.Post, len(posts)),
		confirmed: make(map[uint64]model.Post),
	}
	for _, p := range posts {
		v.order = append(v.order, p.ID)
		v.posts[p.ID] = clonePost(p)
	}
	return v
}

// Posts returns the current posts in feed order.
func (v *View) Posts() []model.Post {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]model.Post, 0, len(v.order))
	for _, id := range v.order {
		out = append(out, clonePost(v.posts[id]))
	}
	return out
}

// Post returns one post.
func (v *View) Post(id uint64) (model.Post, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	p, ok := v.posts[id]
	return clonePost(p), ok
}

// ToggleLike applies a reaction click optimistically and returns the
// updated post.
func (v *View) ToggleLike(postID uint64, reaction string) (model.Post, error) {
	if !model.Reactions[reaction] {
		return model.Post{}, ErrBadReaction
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	p, ok := v.posts[postID]
	if !ok {
		return model.Post{}, ErrUnknownPost
	}
	v.remember(p)

	next, _, delta := model.ToggleReaction(p.MyReaction, reaction)
	p.MyReaction = next
	switch {
	case delta > 0:
		p.LikeCount++
	case delta < 0 && p.LikeCount > 0:
		p.LikeCount--
	}
	v.posts[postID] = p
	return clonePost(p), nil
}

// Vote records the viewer's vote optimistically.  Once the viewer has a
// vote the poll is locked and nothing changes.
func (v *View) Vote(postID, optionID uint64) (model.Post, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	p, ok := v.posts[postID]
	if !ok {
		return model.Post{}, ErrUnknownPost
	}
	if p.Kind != model.PostPoll {
		return model.Post{}, ErrNotPoll
	}
	if p.MyVoteOptionID != nil {
		return clonePost(p), ErrVoteLocked
	}
	idx := -1
	for i, o := range p.PollOptions {
		if o.ID == optionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return model.Post{}, ErrUnknownOption
	}
	v.remember(p)

	p = clonePost(p)
	p.PollOptions[idx].VoteCount++
	id := optionID
	p.MyVoteOptionID = &id
	v.posts[postID] = p
	return clonePost(p), nil
}

// Percentages returns the poll's option shares.
func (v *View) Percentages(postID uint64) ([]float64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	p, ok := v.posts[postID]
	if !ok {
		return nil, ErrUnknownPost
	}
	if p.Kind != model.PostPoll {
		return nil, ErrNotPoll
	}
	return model.PollPercentages(p.PollOptions), nil
}

// Confirm replaces the post with the server's copy and forgets the
// optimistic baseline.
func (v *View) Confirm(p model.Post) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.posts[p.ID]; !ok {
		v.order = append(v.order, p.ID)
	}
	v.posts[p.ID] = clonePost(p)
	delete(v.confirmed, p.ID)
}

// Rollback restores the last confirmed copy of a post after a failed
// request.  It reports whether there was anything to undo.
func (v *View) Rollback(postID uint64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	p, ok := v.confirmed[postID]
	if !ok {
		return false
	}
	v.posts[postID] = p
	delete(v.confirmed, postID)
	return true
}

// Pending reports whether a post has unconfirmed changes.
func (v *View) Pending(postID uint64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.confirmed[postID]
	return ok
}

// remember keeps the first baseline only, so several optimistic steps roll
// back to the last server state rather than the previous step.
func (v *View) remember(p model.Post) {
	if _, ok := v.confirmed[p.ID]; !ok {
		v.confirmed[p.ID] = clonePost(p)
	}
}

func clonePost(p model.Post) model.Post {
	if p.PollOptions != nil {
		p.PollOptions = append([]model.PollOption(nil), p.PollOptions...)
	}
	if p.MyReaction != nil {
		r := *p.MyReaction
		p.MyReaction = &r
	}
	if p.MyVoteOptionID != nil {
		id := *p.MyVoteOptionID
		p.MyVoteOptionID = &id
	}
	return p
}
