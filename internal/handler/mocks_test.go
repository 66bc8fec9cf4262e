package handler

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"account-center/internal/dto"
)

// ============================================================================
// MockAccountService
// ============================================================================

type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) Register(ctx context.Context, registerDTO *dto.RegisterDTO) (*dto.UserProfileDTO, error) {
	args := m.Called(ctx, registerDTO)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.UserProfileDTO), args.Error(1)
}

func (m *MockAccountService) Login(ctx context.Context, loginDTO *dto.LoginDTO) (*dto.LoginResultDTO, error) {
	args := m.Called(ctx, loginDTO)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.LoginResultDTO), args.Error(1)
}

func (m *MockAccountService) Logout(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockAccountService) Authenticate(ctx context.Context, token string) (*dto.AuthDTO, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.AuthDTO), args.Error(1)
}

func (m *MockAccountService) GetHome(ctx context.Context, userID uint64) (*dto.UserProfileDTO, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.UserProfileDTO), args.Error(1)
}

func (m *MockAccountService) GetProfile(ctx context.Context, auth *dto.AuthDTO) (*dto.ProfileViewDTO, error) {
	args := m.Called(ctx, auth)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ProfileViewDTO), args.Error(1)
}

func (m *MockAccountService) UpdateProfile(ctx context.Context, updateDTO *dto.UpdateProfileDTO) (*dto.UserProfileDTO, error) {
	args := m.Called(ctx, updateDTO)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.UserProfileDTO), args.Error(1)
}

func (m *MockAccountService) UploadProfilePicture(ctx context.Context, uploadDTO *dto.UploadPictureDTO) (*dto.UserProfileDTO, error) {
	args := m.Called(ctx, uploadDTO)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.UserProfileDTO), args.Error(1)
}

func (m *MockAccountService) OpenProfilePicture(ctx context.Context, userID uint64) (io.ReadCloser, string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.String(1), args.Error(2)
}

func (m *MockAccountService) DeleteAccount(ctx context.Context, auth *dto.AuthDTO) error {
	args := m.Called(ctx, auth)
	return args.Error(0)
}

// ============================================================================
// MockActivityService
// ============================================================================

type MockActivityService struct {
	mock.Mock
}

func (m *MockActivityService) Record(ctx context.Context, userID uint64, action string) error {
	args := m.Called(ctx, userID, action)
	return args.Error(0)
}

func (m *MockActivityService) Recent(ctx context.Context, userID uint64) (*dto.ActivityPageDTO, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ActivityPageDTO), args.Error(1)
}

func (m *MockActivityService) Clear(ctx context.Context, userID uint64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}
