// Package registration issues one-time codes for ticket registrations and
// verifies them.
package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-ticket-otp/internal/domain"
	"github.com/go-ticket-otp/internal/pkg/email"
	"github.com/go-ticket-otp/internal/pkg/otp"
	"github.com/go-ticket-otp/internal/pkg/phone"
	"github.com/go-ticket-otp/internal/pkg/validate"
	"golang.org/x/crypto/bcrypt"
)

const DefaultTTL = 600 * time.Second

// Issued is returned by Register.
type Issued struct {
	CacheKey    string
	TaskID      string
	EmailTaskID string
}

type Service interface {
	Register(ctx context.Context, req domain.RegisterRequest) (*Issued, error)
	Verify(ctx context.Context, cacheKey, code string) (*domain.VerifiedRegistration, error)
}

type pendingStore interface {
	Save(ctx context.Context, p *domain.PendingRegistration, ttl time.Duration) error
	Load(ctx context.Context, key string) (*domain.PendingRegistration, error)
	Delete(ctx context.Context, key string) error
}

type submitter interface {
	Submit(ctx context.Context, ch domain.Channel, recipient, name, code string) (string, error)
}

type service struct {
	store       pendingStore
	dispatcher  submitter
	ttl         time.Duration
	otpLength   int
	countryCode string
	hashCost    int
	now         func() time.Time
}

type ServiceDeps struct {
	Store       pendingStore
	Dispatcher  submitter
	TTL         time.Duration
	OTPLength   int
	CountryCode string
	HashCost    int // bcrypt cost, bcrypt.DefaultCost when zero
	Now         func() time.Time
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		store:       deps.Store,
		dispatcher:  deps.Dispatcher,
		ttl:         deps.TTL,
		otpLength:   deps.OTPLength,
		countryCode: deps.CountryCode,
		hashCost:    deps.HashCost,
		now:         deps.Now,
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTTL
	}
	if s.otpLength <= 0 {
		s.otpLength = otp.DefaultLength
	}
	if s.countryCode == "" {
		s.countryCode = phone.DefaultCountryCode
	}
	if s.hashCost == 0 {
		s.hashCost = bcrypt.DefaultCost
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Register stores a pending registration and queues one SMS and one email job
// carrying the same code. Nothing is queued when validation fails.
func (s *service) Register(ctx context.Context, req domain.RegisterRequest) (*Issued, error) {
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrValidation)
	}
	name := strings.TrimSpace(req.Name)
	phoneNo, err := phone.Normalize(req.Phone, s.countryCode)
	if err != nil {
		return nil, err
	}
	addr, err := email.Normalize(req.Email)
	if err != nil {
		return nil, err
	}

	code, err := otp.Generate(s.otpLength)
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.hashCost)
	if err != nil {
		return nil, err
	}

	p := &domain.PendingRegistration{
		CacheKey:  CacheKey(name, addr, phoneNo),
		Name:      name,
		Email:     addr,
		Phone:     phoneNo,
		Code:      string(hash),
		Session:   req.SessionID,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Save(ctx, p, s.ttl); err != nil {
		return nil, fmt.Errorf("save pending registration: %w", err)
	}

	taskID, err := s.dispatcher.Submit(ctx, domain.ChannelSMS, phoneNo, name, code)
	if err != nil {
		return nil, err
	}
	emailTaskID, err := s.dispatcher.Submit(ctx, domain.ChannelEmail, addr, name, code)
	if err != nil {
		return nil, err
	}
	slog.Info("registration pending", "cache_key", p.CacheKey, "task_id", taskID, "email_task_id", emailTaskID)
	return &Issued{CacheKey: p.CacheKey, TaskID: taskID, EmailTaskID: emailTaskID}, nil
}

// Verify consumes the pending registration when code matches. A wrong code
// leaves the record in place until it expires.
func (s *service) Verify(ctx context.Context, cacheKey, code string) (*domain.VerifiedRegistration, error) {
	p, err := s.store.Load(ctx, cacheKey)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrExpiredOrUnknownKey
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(p.Code), []byte(code)) != nil {
		return nil, domain.ErrInvalidCode
	}
	if err := s.store.Delete(ctx, cacheKey); err != nil {
		return nil, fmt.Errorf("delete pending registration: %w", err)
	}
	return &domain.VerifiedRegistration{Name: p.Name, Email: p.Email, Phone: p.Phone}, nil
}
