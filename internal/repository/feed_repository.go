package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/iliyamo/studio-booking/internal/database"
	"github.com/iliyamo/studio-booking/internal/model"
)

// FeedRepo stores posts and their interaction counters.  Counter changes
// happen in the same transaction as the like/vote/comment row they count.
type FeedRepo struct {
	db *sql.DB
}

func NewFeedRepo(db *sql.DB) *FeedRepo { return &FeedRepo{db: db} }

// CreatePost inserts a post and, for polls, its options.
func (r *FeedRepo) CreatePost(ctx context.Context, p *model.Post) error {
	if p.Body == nil {
		return errors.New("post body is required")
	}
	body := p.Body
	var labels []string
	if poll, ok := body.(model.PollBody); ok {
		// options live in poll_options; the body keeps the question only
		labels = poll.Options
		body = model.PollBody{Question: poll.Question}
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `INSERT INTO posts (user_id, kind, body) VALUES (?, ?, ?)`,
		p.UserID, string(p.Body.Kind()), raw)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	p.Kind = p.Body.Kind()
	p.PollOptions = nil
	for _, label := range labels {
		res, err := tx.ExecContext(ctx, `INSERT INTO poll_options (post_id, label) VALUES (?, ?)`, p.ID, label)
		if err != nil {
			return err
		}
		oid, err := res.LastInsertId()
		if err != nil {
			return err
		}
		p.PollOptions = append(p.PollOptions, model.PollOption{ID: uint64(oid), PostID: p.ID, Label: label})
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

const postColumns = `p.id, p.user_id, p.kind, p.body, p.like_count, p.comment_count, p.created_at,
	(SELECT pl.reaction FROM post_likes pl WHERE pl.post_id = p.id AND pl.user_id = ?),
	(SELECT pv.option_id FROM poll_votes pv WHERE pv.post_id = p.id AND pv.user_id = ?)`

func scanPost(rs rowScanner) (model.Post, error) {
	var (
		p        model.Post
		kind     string
		raw      []byte
		reaction sql.NullString
		vote     sql.NullInt64
	)
	if err := rs.Scan(&p.ID, &p.UserID, &kind, &raw, &p.LikeCount, &p.CommentCount, &p.CreatedAt,
		&reaction, &vote); err != nil {
		return model.Post{}, err
	}
	p.Kind = model.PostKind(kind)
	body, err := model.DecodePostBody(p.Kind, raw)
	if err != nil {
		return model.Post{}, err
	}
	p.Body = body
	if reaction.Valid {
		v := reaction.String
		p.MyReaction = &v
	}
	if vote.Valid {
		v := uint64(vote.Int64)
		p.MyVoteOptionID = &v
	}
	return p, nil
}

// ListPosts returns up to limit posts older than beforeID (0 = newest),
// newest first, with the viewer's reaction and vote.  viewerID 0 is a guest.
func (r *FeedRepo) ListPosts(ctx context.Context, viewerID uint64, beforeID uint64, limit int) ([]model.Post, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	q := `SELECT ` + postColumns + ` FROM posts p`
	args := []any{viewerID, viewerID}
	if beforeID > 0 {
		q += ` WHERE p.id < ?`
		args = append(args, beforeID)
	}
	q += ` ORDER BY p.id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	posts := make([]model.Post, 0)
	var pollIDs []uint64
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		if p.Kind == model.PostPoll {
			pollIDs = append(pollIDs, p.ID)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(pollIDs) == 0 {
		return posts, nil
	}
	opts, err := r.optionsFor(ctx, pollIDs)
	if err != nil {
		return nil, err
	}
	for i := range posts {
		posts[i].PollOptions = opts[posts[i].ID]
	}
	return posts, nil
}

// GetPost returns one post with the viewer's state.
func (r *FeedRepo) GetPost(ctx context.Context, id, viewerID uint64) (model.Post, error) {
	p, err := scanPost(r.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts p WHERE p.id = ?`, viewerID, viewerID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Post{}, ErrNotFound
	}
	if err != nil {
		return model.Post{}, err
	}
	if p.Kind == model.PostPoll {
		opts, err := r.optionsFor(ctx, []uint64{p.ID})
		if err != nil {
			return model.Post{}, err
		}
		p.PollOptions = opts[p.ID]
	}
	return p, nil
}

func (r *FeedRepo) optionsFor(ctx context.Context, postIDs []uint64) (map[uint64][]model.PollOption, error) {
	ph := make([]string, len(postIDs))
	args := make([]any, len(postIDs))
	for i, id := range postIDs {
		ph[i] = "?"
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, post_id, label, vote_count FROM poll_options WHERE post_id IN (`+strings.Join(ph, ",")+`) ORDER BY id`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uint64][]model.PollOption, len(postIDs))
	for rows.Next() {
		var o model.PollOption
		if err := rows.Scan(&o.ID, &o.PostID, &o.Label, &o.VoteCount); err != nil {
			return nil, err
		}
		out[o.PostID] = append(out[o.PostID], o)
	}
	return out, rows.Err()
}

// ToggleLike applies a reaction click for userID on postID and returns the
// viewer's resulting reaction and the post's like count.
func (r *FeedRepo) ToggleLike(ctx context.Context, postID, userID uint64, reaction string) (*string, uint32, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var likes uint32
	err = tx.QueryRowContext(ctx, `SELECT like_count FROM posts WHERE id = ? FOR UPDATE`, postID).Scan(&likes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, ErrNotFound
	}
	if err != nil {
		return nil, 0, err
	}

	var current *string
	var cur string
	err = tx.QueryRowContext(ctx, `SELECT reaction FROM post_likes WHERE post_id = ? AND user_id = ?`, postID, userID).Scan(&cur)
	switch {
	case err == nil:
		current = &cur
	case !errors.Is(err, sql.ErrNoRows):
		return nil, 0, err
	}

	next, op, delta := model.ToggleReaction(current, reaction)
	switch op {
	case model.LikeInsert:
		_, err = tx.ExecContext(ctx, `INSERT INTO post_likes (post_id, user_id, reaction) VALUES (?, ?, ?)`, postID, userID, reaction)
	case model.LikeUpdate:
		_, err = tx.ExecContext(ctx, `UPDATE post_likes SET reaction = ? WHERE post_id = ? AND user_id = ?`, reaction, postID, userID)
	case model.LikeDelete:
		_, err = tx.ExecContext(ctx, `DELETE FROM post_likes WHERE post_id = ? AND user_id = ?`, postID, userID)
	}
	if err != nil {
		return nil, 0, err
	}
	switch {
	case delta > 0:
		_, err = tx.ExecContext(ctx, `UPDATE posts SET like_count = like_count + 1 WHERE id = ?`, postID)
		likes++
	case delta < 0 && likes > 0:
		_, err = tx.ExecContext(ctx, `UPDATE posts SET like_count = like_count - 1 WHERE id = ? AND like_count > 0`, postID)
		likes--
	}
	if err != nil {
		return nil, 0, err
	}
	if err := tx.Commit(); err != nil {
		return nil, 0, err
	}
	committed = true
	return next, likes, nil
}

// Vote records userID's single vote on a poll.  A second vote is
// ErrAlreadyVoted; an option of another post is ErrNotFound.
func (r *FeedRepo) Vote(ctx context.Context, postID, optionID, userID uint64) ([]model.PollOption, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var one int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM poll_options WHERE id = ? AND post_id = ?`, optionID, postID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO poll_votes (post_id, user_id, option_id) VALUES (?, ?, ?)`,
		postID, userID, optionID); err != nil {
		if database.IsDuplicate(err) {
			return nil, ErrAlreadyVoted
		}
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE poll_options SET vote_count = vote_count + 1 WHERE id = ?`, optionID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true

	opts, err := r.optionsFor(ctx, []uint64{postID})
	if err != nil {
		return nil, err
	}
	return opts[postID], nil
}

// AddComment inserts a comment and bumps the post's comment_count.
func (r *FeedRepo) AddComment(ctx context.Context, c *model.Comment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `UPDATE posts SET comment_count = comment_count + 1 WHERE id = ?`, c.PostID)
	if err != nil {
		return err
	}
	if err := notFoundIfNone(res); err != nil {
		return err
	}
	res, err = tx.ExecContext(ctx, `INSERT INTO comments (post_id, user_id, body) VALUES (?, ?, ?)`, c.PostID, c.UserID, c.Body)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = uint64(id)
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// ListComments returns a post's comments, oldest first.
func (r *FeedRepo) ListComments(ctx context.Context, postID uint64) ([]model.Comment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, post_id, user_id, body, created_at FROM comments WHERE post_id = ? ORDER BY created_at, id`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Comment, 0)
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.UserID, &c.Body, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
