package handler

import (
	"net/http"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/studio-booking/internal/config"
	"github.com/iliyamo/studio-booking/internal/model"
	"github.com/iliyamo/studio-booking/internal/repository"
	"github.com/iliyamo/studio-booking/internal/utils"
)

func testConfig() config.Config {
	return config.Config{JWTSecret: secret, AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: 4}
}

var userCols = []string{"id", "email", "password_hash", "role", "is_active", "created_at", "updated_at"}

func authEcho(t *testing.T) (*echo.Echo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	a := NewAuthHandler(testConfig(), repository.NewUserRepo(db), repository.NewTokenRepo(db), zap.NewNop())
	e := newEcho()
	e.POST("/api/auth/register", a.Register)
	e.POST("/api/auth/login", a.Login)
	e.POST("/api/auth/logout", a.Logout)
	return e, mock
}

func TestLoginIssuesTokenPair(t *testing.T) {
	e, mock := authEcho(t)
	hash, err := utils.HashPassword("correct-horse", 4)
	require.NoError(t, err)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email=?")).
		WithArgs("ana@studio.test").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(5, "ana@studio.test", hash, model.RoleCustomer, true, now, now))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO refresh_tokens")).
		WithArgs(5, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	rec := send(e, http.MethodPost, "/api/auth/login", "", echo.Map{"email": " Ana@Studio.test ", "password": "correct-horse"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	access := body["access"].(map[string]any)["token"].(string)

	claims, err := utils.ParseAccessToken(secret, access)
	require.NoError(t, err)
	uid, err := claims.UserID()
	require.NoError(t, err)
	assert.EqualValues(t, 5, uid)
	assert.Equal(t, model.RoleCustomer, claims.Role)
	assert.NotEmpty(t, body["refresh"].(map[string]any)["token"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginRejectsUnknownAndWrongPassword(t *testing.T) {
	e, mock := authEcho(t)
	hash, err := utils.HashPassword("correct-horse", 4)
	require.NoError(t, err)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email=?")).
		WithArgs("ghost@studio.test").
		WillReturnRows(sqlmock.NewRows(userCols))
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE email=?")).
		WithArgs("ana@studio.test").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(5, "ana@studio.test", hash, model.RoleCustomer, true, now, now))

	rec := send(e, http.MethodPost, "/api/auth/login", "", echo.Map{"email": "ghost@studio.test", "password": "whatever1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = send(e, http.MethodPost, "/api/auth/login", "", echo.Map{"email": "ana@studio.test", "password": "battery-staple"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterAlwaysCreatesCustomer(t *testing.T) {
	e, mock := authEcho(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("new@studio.test", sqlmock.AnyArg(), model.RoleCustomer).
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO refresh_tokens")).
		WithArgs(11, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	rec := send(e, http.MethodPost, "/api/auth/register", "", echo.Map{
		"email": "new@studio.test", "password": "longenough", "role": model.RoleAdmin,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, model.RoleCustomer, decode(t, rec)["user"].(map[string]any)["role"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterWeakPassword(t *testing.T) {
	e, mock := authEcho(t)
	rec := send(e, http.MethodPost, "/api/auth/register", "", echo.Map{"email": "new@studio.test", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "password", decode(t, rec)["field"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogoutWithBearerRevokesAll(t *testing.T) {
	e, mock := authEcho(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens")).
		WithArgs(9).
		WillReturnResult(sqlmock.NewResult(0, 3))

	rec := send(e, http.MethodPost, "/api/auth/logout", bearer(t, 9, model.RoleCustomer), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())

	rec = send(e, http.MethodPost, "/api/auth/logout", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
