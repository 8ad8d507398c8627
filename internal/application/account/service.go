// Package account turns verified registrations into persisted ticket buyers.
package account

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-ticket-otp/internal/domain"
	"github.com/go-ticket-otp/internal/pkg/id"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldName           = "name"
	fieldPhone          = "phone"
	fieldEmailConfirmed = "email_confirmed"
	fieldPhoneConfirmed = "phone_confirmed"
	fieldEnable         = "enable"
)

// Confirmed is the outcome of Confirm. Token is empty when no signer is configured.
type Confirmed struct {
	User  *domain.User
	Token string
}

type Service interface {
	Confirm(ctx context.Context, v *domain.VerifiedRegistration, sessionID string) (*Confirmed, error)
}

type userStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Put(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type tokenSigner interface {
	Sign(u *domain.User, sessionID string) (string, error)
}

type service struct {
	repo   userStore
	signer tokenSigner
	now    func() time.Time
}

type ServiceDeps struct {
	UserRepo userStore
	Signer   tokenSigner // optional
	Now      func() time.Time
}

func NewService(deps ServiceDeps) Service {
	s := &service{repo: deps.UserRepo, signer: deps.Signer, now: deps.Now}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Confirm upserts the buyer by email with both contact points marked confirmed.
func (s *service) Confirm(ctx context.Context, v *domain.VerifiedRegistration, sessionID string) (*Confirmed, error) {
	now := s.now().UTC()
	u, err := s.repo.GetByEmail(ctx, v.Email)
	switch {
	case err == nil:
		if err := s.repo.Update(ctx, u.UserID, map[string]interface{}{
			fieldName:           v.Name,
			fieldPhone:          v.Phone,
			fieldEmailConfirmed: true,
			fieldPhoneConfirmed: true,
			fieldEnable:         1,
		}); err != nil {
			return nil, err
		}
		u.Name, u.Phone = v.Name, v.Phone
		u.EmailConfirmed, u.PhoneConfirmed, u.Enable = true, true, 1
		u.UpdatedAt = now
	case errors.Is(err, domain.ErrNotFound):
		u = &domain.User{
			UserID:         id.New(),
			Name:           v.Name,
			Email:          v.Email,
			Phone:          v.Phone,
			EmailConfirmed: true,
			PhoneConfirmed: true,
			Enable:         1,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.repo.Put(ctx, u); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	out := &Confirmed{User: u}
	if s.signer != nil {
		tok, err := s.signer.Sign(u, sessionID)
		if err != nil {
			slog.Warn("sign access token", "user_id", u.UserID, "err", err)
		} else {
			out.Token = tok
		}
	}
	return out, nil
}
