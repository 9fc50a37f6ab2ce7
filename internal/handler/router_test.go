package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/fairpipe/fairpipe-api/internal/apperr"
	"github.com/fairpipe/fairpipe-api/internal/auth"
	"github.com/fairpipe/fairpipe-api/internal/db/models"
	"github.com/fairpipe/fairpipe-api/internal/middleware"
	"github.com/fairpipe/fairpipe-api/internal/service"
	"github.com/fairpipe/fairpipe-api/internal/validation"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	router    *gin.Engine
	tokens    *auth.TokenManager
	accounts  *mockAccounts
	videos    *mockVideos
	reactions *mockReactions
	subtitles *mockSubtitles
	trending  *mockTrending
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, validation.Register())

	tokens, err := auth.NewTokenManager("handler-test-secret", time.Hour)
	require.NoError(t, err)

	s := &testServer{
		tokens:    tokens,
		accounts:  &mockAccounts{},
		videos:    &mockVideos{},
		reactions: &mockReactions{},
		subtitles: &mockSubtitles{},
		trending:  &mockTrending{},
	}

	cookie := CookieConfig{Name: "session", TTL: time.Hour}
	s.router = NewRouter(
		RouterConfig{AllowOrigins: []string{"http://localhost:5173"}},
		middleware.NewSessionAuth(tokens, cookie.Name),
		Handlers{
			Auth:      NewAuthHandler(s.accounts, cookie),
			User:      NewUserHandler(nil, 1<<20),
			Video:     NewVideoHandler(s.videos, 1<<20),
			Thumbnail: NewThumbnailHandler(nil, 1<<20),
			Subtitle:  NewSubtitleHandler(s.subtitles, 1<<10),
			Reaction:  NewReactionHandler(s.reactions),
			Sorting:   NewSortingHandler(s.trending),
			Health:    NewHealthHandler(nil, nil, nil),
		},
	)

	t.Cleanup(func() {
		s.accounts.AssertExpectations(t)
		s.videos.AssertExpectations(t)
		s.reactions.AssertExpectations(t)
		s.subtitles.AssertExpectations(t)
		s.trending.AssertExpectations(t)
	})

	return s
}

func (s *testServer) signIn(t *testing.T, req *http.Request) uuid.UUID {
	t.Helper()
	userID := uuid.New()
	token, err := s.tokens.Issue(userID, "user@example.com")
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: "session", Value: token})
	return userID
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func formRequest(method, target string, values url.Values) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func multipartRequest(t *testing.T, target string, fields map[string]string, filename, fileType string, content []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
		header.Set("Content-Type", fileType)
		part, err := mw.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestAuth_Login(t *testing.T) {
	s := newTestServer(t)
	user := &models.User{ID: uuid.New(), Email: "alice@example.com", Username: "alice"}

	s.accounts.On("Login", mock.Anything, "alice@example.com", "correct horse").
		Return(&service.SessionResult{User: user, Token: "signed-token"}, nil).Once()

	w := s.do(formRequest(http.MethodPost, "/auth/login", url.Values{
		"email":    {"alice@example.com"},
		"password": {"correct horse"},
	}))

	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "session", cookies[0].Name)
	assert.Equal(t, "signed-token", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestAuth_LoginInvalidCredentials(t *testing.T) {
	s := newTestServer(t)

	s.accounts.On("Login", mock.Anything, "alice@example.com", "wrong").
		Return(nil, apperr.Unauthorized("invalid email or password")).Once()

	w := s.do(formRequest(http.MethodPost, "/auth/login", url.Values{
		"email":    {"alice@example.com"},
		"password": {"wrong"},
	}))

	require.Equal(t, http.StatusUnauthorized, w.Code)
	resp := decodeError(t, w)
	assert.False(t, resp.Success)
	assert.Equal(t, "unauthorized", resp.Error)
	assert.Equal(t, "invalid email or password", resp.Message)
	assert.Empty(t, w.Result().Cookies())
}

func TestAuth_RegisterValidation(t *testing.T) {
	s := newTestServer(t)

	w := s.do(formRequest(http.MethodPost, "/auth/register", url.Values{
		"email":    {"not-an-email"},
		"username": {"alice"},
		"password": {"correct horse"},
	}))

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w).Message, "email must be a valid email address")
}

func TestAuth_RegisterJSON(t *testing.T) {
	s := newTestServer(t)
	user := &models.User{ID: uuid.New(), Email: "bob@example.com", Username: "bob"}

	s.accounts.On("Register", mock.Anything, service.RegisterInput{
		Email:    "bob@example.com",
		Username: "bob",
		Password: "correct horse",
	}).Return(user, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/auth/register",
		strings.NewReader(`{"email":"bob@example.com","username":"bob","password":"correct horse"}`))
	req.Header.Set("Content-Type", "application/json")

	w := s.do(req)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestAuth_Logout(t *testing.T) {
	s := newTestServer(t)

	w := s.do(httptest.NewRequest(http.MethodPost, "/auth/logout", nil))

	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestReaction_RequiresSession(t *testing.T) {
	s := newTestServer(t)

	w := s.do(formRequest(http.MethodPost, "/like_dislike/like", url.Values{"videoID": {uuid.NewString()}}))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestReaction_Like(t *testing.T) {
	s := newTestServer(t)
	videoID := uuid.NewString()

	req := formRequest(http.MethodPost, "/like_dislike/like", url.Values{"videoID": {videoID}})
	userID := s.signIn(t, req)

	s.reactions.On("React", mock.Anything, userID, videoID, models.ActionLike).
		Return(models.NewReactionStatus(models.ReactionLiked, 1, 0), nil).Once()

	w := s.do(req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Success bool                  `json:"success"`
		Result  models.ReactionStatus `json:"result"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, models.ReactionStatus{Liked: true, Likes: 1}, resp.Result)
}

func TestReaction_DislikeFromQuery(t *testing.T) {
	s := newTestServer(t)
	videoID := uuid.NewString()

	req := httptest.NewRequest(http.MethodPost, "/like_dislike/dislike?videoID="+videoID, nil)
	userID := s.signIn(t, req)

	s.reactions.On("React", mock.Anything, userID, videoID, models.ActionDislike).
		Return(models.NewReactionStatus(models.ReactionDisliked, 0, 1), nil).Once()

	assert.Equal(t, http.StatusOK, s.do(req).Code)
}

func TestReaction_UnknownVideo(t *testing.T) {
	s := newTestServer(t)
	videoID := uuid.NewString()

	req := httptest.NewRequest(http.MethodGet, "/like_dislike/get?videoID="+videoID, nil)
	userID := s.signIn(t, req)

	s.reactions.On("Status", mock.Anything, userID, videoID).
		Return(nil, apperr.NotFound("video not found")).Once()

	w := s.do(req)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decodeError(t, w).Error)
}

func TestReaction_MissingVideoID(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/like_dislike/like", nil)
	s.signIn(t, req)

	w := s.do(req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "videoID is required", decodeError(t, w).Message)
}

func TestVideo_Upload(t *testing.T) {
	s := newTestServer(t)
	newID := uuid.New()

	req := multipartRequest(t, "/video/upload",
		map[string]string{"title": "My clip", "description": "desc", "subtitles": "true"},
		"clip.mp4", "video/mp4", []byte("not really an mp4"))
	userID := s.signIn(t, req)

	s.videos.On("Upload", mock.Anything, mock.MatchedBy(func(in service.UploadVideoInput) bool {
		return in.UploaderID == userID &&
			in.Title == "My clip" &&
			in.Description == "desc" &&
			in.ManualSubtitles &&
			in.FileName == "clip.mp4" &&
			in.ContentType == "video/mp4" &&
			in.Size == int64(len("not really an mp4"))
	})).Return(newID, nil).Once()

	w := s.do(req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), newID.String())
}

func TestVideo_UploadTooLarge(t *testing.T) {
	s := newTestServer(t)

	req := multipartRequest(t, "/video/upload", map[string]string{"title": "big"},
		"big.mp4", "video/mp4", bytes.Repeat([]byte{0}, 1<<20+1))
	s.signIn(t, req)

	w := s.do(req)

	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "payload_too_large", decodeError(t, w).Error)
}

func TestVideo_UploadMissingFile(t *testing.T) {
	s := newTestServer(t)

	req := multipartRequest(t, "/video/upload", map[string]string{"title": "no file"}, "", "", nil)
	s.signIn(t, req)

	w := s.do(req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "file is required", decodeError(t, w).Message)
}

func TestVideo_UpdateNonOwner(t *testing.T) {
	s := newTestServer(t)
	videoID := uuid.NewString()

	req := formRequest(http.MethodPatch, "/video/update", url.Values{"id": {videoID}, "title": {"stolen"}})
	userID := s.signIn(t, req)

	s.videos.On("Update", mock.Anything, userID, videoID, mock.MatchedBy(func(title *string) bool {
		return title != nil && *title == "stolen"
	}), (*string)(nil)).Return(apperr.NotFound("video not found")).Once()

	w := s.do(req)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "video not found", decodeError(t, w).Message)
}

func TestVideo_DeleteByQuery(t *testing.T) {
	s := newTestServer(t)
	videoID := uuid.NewString()

	req := httptest.NewRequest(http.MethodDelete, "/video/delete?id="+videoID, nil)
	userID := s.signIn(t, req)

	s.videos.On("Delete", mock.Anything, userID, videoID).Return(nil).Once()

	w := s.do(req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())
}

func TestVideo_GetInternalErrorHidesCause(t *testing.T) {
	s := newTestServer(t)
	videoID := uuid.NewString()

	s.videos.On("Get", mock.Anything, videoID).
		Return(nil, apperr.Internal(errors.New("pq: relation videos does not exist"))).Once()

	w := s.do(httptest.NewRequest(http.MethodGet, "/video/get?id="+videoID, nil))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "relation")
	assert.Equal(t, "internal", decodeError(t, w).Error)
}

func TestVideo_ListDefaultsAndBounds(t *testing.T) {
	s := newTestServer(t)

	s.videos.On("List", mock.Anything, "", 20, 0).Return([]*models.Video{}, nil).Once()

	assert.Equal(t, http.StatusOK, s.do(httptest.NewRequest(http.MethodGet, "/video/list", nil)).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(httptest.NewRequest(http.MethodGet, "/video/list?limit=500", nil)).Code)
}

func TestSubtitles_UploadRejectsBadLanguage(t *testing.T) {
	s := newTestServer(t)

	req := multipartRequest(t, "/subtitles/upload",
		map[string]string{"id": uuid.NewString(), "language": "English", "language_short": "e_n"},
		"en.vtt", "text/vtt", []byte("WEBVTT\n"))
	s.signIn(t, req)

	w := s.do(req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w).Message, "language_short")
}

func TestSubtitles_Upload(t *testing.T) {
	s := newTestServer(t)
	videoID := uuid.NewString()

	req := multipartRequest(t, "/subtitles/upload",
		map[string]string{"id": videoID, "language": "English", "language_short": "en"},
		"en.vtt", "text/vtt", []byte("WEBVTT\n"))
	userID := s.signIn(t, req)

	s.subtitles.On("Upload", mock.Anything, userID, videoID, mock.MatchedBy(func(in service.UploadSubtitleInput) bool {
		return in.Language == "English" && in.LanguageShort == "en" && in.FileName == "en.vtt"
	})).Return(&service.SubtitleUpload{SubtitleID: "subs_en", Filename: "subs_en.vtt"}, nil).Once()

	w := s.do(req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"subtitle_id":"subs_en","filename":"subs_en.vtt"}`, w.Body.String())
}

func TestSorting_Cached(t *testing.T) {
	s := newTestServer(t)

	s.trending.On("Page", mock.Anything, 5, 10).
		Return(&service.TrendingPage{CachedVids: []string{"a", "b"}, Version: 3}, nil).Once()

	w := s.do(httptest.NewRequest(http.MethodGet, "/sorting/get?limit=5&offset=10", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"cachedVids":["a","b"],"version":3}`, w.Body.String())
}

func TestSorting_Refresh(t *testing.T) {
	s := newTestServer(t)

	s.trending.On("Refresh", mock.Anything).Return([]uuid.UUID{uuid.New(), uuid.New()}, nil).Once()

	w := s.do(httptest.NewRequest(http.MethodGet, "/sorting/upload", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"count":2}`, w.Body.String())
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := s.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
