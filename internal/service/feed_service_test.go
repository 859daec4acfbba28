package service

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/repository"
	"github.com/iliyamo/studio-booking/internal/session"
)

func newFeedService(t *testing.T) (*FeedService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewFeedService(repository.NewFeedRepo(db), nil, zap.NewNop()), mock
}

func TestCreatePollPost(t *testing.T) {
	svc, mock := newFeedService(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO posts")).
		WithArgs(uint64(7), "poll", []byte(`{"question":"Next guest artist?"}`)).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO poll_options")).
		WithArgs(uint64(2), "Mira").WillReturnResult(sqlmock.NewResult(21, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO poll_options")).
		WithArgs(uint64(2), "Theo").WillReturnResult(sqlmock.NewResult(22, 1))
	mock.ExpectCommit()

	raw := json.RawMessage(`{"question":"Next guest artist?","options":["Mira","Theo"]}`)
	p, err := svc.Create(context.Background(), customer, model.PostPoll, raw)
	require.NoError(t, err)
	assert.EqualValues(t, 2, p.ID)
	require.Len(t, p.PollOptions, 2)
	assert.Equal(t, "Theo", p.PollOptions[1].Label)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePostRejectsBadBodies(t *testing.T) {
	svc, mock := newFeedService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, customer, model.PostPoll, json.RawMessage(`{"question":"only one","options":["a"]}`))
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = svc.Create(ctx, customer, model.PostKind("video"), json.RawMessage(`{}`))
	assert.ErrorAs(t, err, &verr)

	_, err = svc.Create(ctx, customer, model.PostImage, json.RawMessage(`{"image_url":"data:image/png;base64,AAAA"}`))
	assert.ErrorIs(t, err, ErrStorageDisabled)

	_, err = svc.Create(ctx, session.Session{}, model.PostText, json.RawMessage(`{"text":"hi"}`))
	assert.ErrorIs(t, err, repository.ErrForbidden)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestToggleLikeRejectsUnknownReaction(t *testing.T) {
	svc, mock := newFeedService(t)
	_, err := svc.ToggleLike(context.Background(), customer, 1, "meh")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentRequiresText(t *testing.T) {
	svc, mock := newFeedService(t)
	_, err := svc.Comment(context.Background(), customer, 1, "   ")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.NoError(t, mock.ExpectationsWereMet())
}
