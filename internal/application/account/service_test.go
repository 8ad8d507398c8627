package account

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-ticket-otp/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) Put(ctx context.Context, u *domain.User) error {
	return m.Called(ctx, u).Error(0)
}
func (m *mockUserStore) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	return m.Called(ctx, userID, updates).Error(0)
}

type mockSigner struct{ mock.Mock }

func (m *mockSigner) Sign(u *domain.User, sessionID string) (string, error) {
	args := m.Called(u, sessionID)
	return args.String(0), args.Error(1)
}

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func verified() *domain.VerifiedRegistration {
	return &domain.VerifiedRegistration{Name: "Asha", Email: "asha@example.com", Phone: "+919876543210"}
}

func TestConfirm_NewUserIsCreated(t *testing.T) {
	repo := new(mockUserStore)
	signer := new(mockSigner)
	repo.On("GetByEmail", mock.Anything, "asha@example.com").
		Return(nil, fmt.Errorf("user: %w", domain.ErrNotFound))
	repo.On("Put", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
		return u.UserID != "" && u.Phone == "+919876543210" && u.EmailConfirmed && u.PhoneConfirmed && u.Enable == 1
	})).Return(nil)
	signer.On("Sign", mock.Anything, "sess-1").Return("tok", nil)

	svc := NewService(ServiceDeps{UserRepo: repo, Signer: signer, Now: func() time.Time { return fixedNow }})
	got, err := svc.Confirm(context.Background(), verified(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "tok", got.Token)
	assert.Equal(t, fixedNow, got.User.CreatedAt)
	repo.AssertExpectations(t)
}

func TestConfirm_ExistingUserIsUpdated(t *testing.T) {
	repo := new(mockUserStore)
	repo.On("GetByEmail", mock.Anything, "asha@example.com").
		Return(&domain.User{UserID: "u1", Email: "asha@example.com", Phone: "+910000000000"}, nil)
	repo.On("Update", mock.Anything, "u1", mock.MatchedBy(func(m map[string]interface{}) bool {
		return m["phone"] == "+919876543210" && m["phone_confirmed"] == true
	})).Return(nil)

	svc := NewService(ServiceDeps{UserRepo: repo})
	got, err := svc.Confirm(context.Background(), verified(), "")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.User.UserID)
	assert.Equal(t, "+919876543210", got.User.Phone)
	assert.Empty(t, got.Token)
	repo.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestConfirm_StoreErrorPropagates(t *testing.T) {
	repo := new(mockUserStore)
	repo.On("GetByEmail", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))

	_, err := NewService(ServiceDeps{UserRepo: repo}).Confirm(context.Background(), verified(), "")
	assert.ErrorContains(t, err, "throttled")
}

func TestConfirm_SignFailureOmitsToken(t *testing.T) {
	repo := new(mockUserStore)
	signer := new(mockSigner)
	repo.On("GetByEmail", mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)
	repo.On("Put", mock.Anything, mock.Anything).Return(nil)
	signer.On("Sign", mock.Anything, mock.Anything).Return("", errors.New("no key"))

	got, err := NewService(ServiceDeps{UserRepo: repo, Signer: signer}).Confirm(context.Background(), verified(), "")
	require.NoError(t, err)
	assert.Empty(t, got.Token)
}
