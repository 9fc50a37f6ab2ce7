package handler

import (
	"context"

	"github.com/fairpipe/fairpipe-api/internal/db/models"
	"github.com/fairpipe/fairpipe-api/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type mockAccounts struct{ mock.Mock }

func (m *mockAccounts) Register(ctx context.Context, in service.RegisterInput) (*models.User, error) {
	args := m.Called(ctx, in)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *mockAccounts) Login(ctx context.Context, email, password string) (*service.SessionResult, error) {
	args := m.Called(ctx, email, password)
	result, _ := args.Get(0).(*service.SessionResult)
	return result, args.Error(1)
}

func (m *mockAccounts) AnonymousLogin(ctx context.Context) (*service.AnonymousResult, error) {
	args := m.Called(ctx)
	result, _ := args.Get(0).(*service.AnonymousResult)
	return result, args.Error(1)
}

type mockVideos struct{ mock.Mock }

func (m *mockVideos) Upload(ctx context.Context, in service.UploadVideoInput) (uuid.UUID, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *mockVideos) Get(ctx context.Context, rawID string) (*models.VideoDetails, error) {
	args := m.Called(ctx, rawID)
	video, _ := args.Get(0).(*models.VideoDetails)
	return video, args.Error(1)
}

func (m *mockVideos) Update(ctx context.Context, userID uuid.UUID, rawID string, title, description *string) error {
	return m.Called(ctx, userID, rawID, title, description).Error(0)
}

func (m *mockVideos) Delete(ctx context.Context, userID uuid.UUID, rawID string) error {
	return m.Called(ctx, userID, rawID).Error(0)
}

func (m *mockVideos) List(ctx context.Context, rawUploader string, limit, offset int) ([]*models.Video, error) {
	args := m.Called(ctx, rawUploader, limit, offset)
	videos, _ := args.Get(0).([]*models.Video)
	return videos, args.Error(1)
}

type mockReactions struct{ mock.Mock }

func (m *mockReactions) React(ctx context.Context, userID uuid.UUID, rawVideoID string, action models.ReactionAction) (*models.ReactionStatus, error) {
	args := m.Called(ctx, userID, rawVideoID, action)
	status, _ := args.Get(0).(*models.ReactionStatus)
	return status, args.Error(1)
}

func (m *mockReactions) Status(ctx context.Context, userID uuid.UUID, rawVideoID string) (*models.ReactionStatus, error) {
	args := m.Called(ctx, userID, rawVideoID)
	status, _ := args.Get(0).(*models.ReactionStatus)
	return status, args.Error(1)
}

type mockSubtitles struct{ mock.Mock }

func (m *mockSubtitles) Upload(ctx context.Context, userID uuid.UUID, rawVideoID string, in service.UploadSubtitleInput) (*service.SubtitleUpload, error) {
	args := m.Called(ctx, userID, rawVideoID, in)
	result, _ := args.Get(0).(*service.SubtitleUpload)
	return result, args.Error(1)
}

func (m *mockSubtitles) Get(ctx context.Context, rawVideoID string) (*service.SubtitleList, error) {
	args := m.Called(ctx, rawVideoID)
	list, _ := args.Get(0).(*service.SubtitleList)
	return list, args.Error(1)
}

func (m *mockSubtitles) Delete(ctx context.Context, userID uuid.UUID, rawVideoID, short string) error {
	return m.Called(ctx, userID, rawVideoID, short).Error(0)
}

type mockTrending struct{ mock.Mock }

func (m *mockTrending) Refresh(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	ids, _ := args.Get(0).([]uuid.UUID)
	return ids, args.Error(1)
}

func (m *mockTrending) Page(ctx context.Context, limit, offset int) (*service.TrendingPage, error) {
	args := m.Called(ctx, limit, offset)
	page, _ := args.Get(0).(*service.TrendingPage)
	return page, args.Error(1)
}

func (m *mockTrending) Ranked(ctx context.Context, limit, offset int) ([]*models.RankedVideo, error) {
	args := m.Called(ctx, limit, offset)
	videos, _ := args.Get(0).([]*models.RankedVideo)
	return videos, args.Error(1)
}
