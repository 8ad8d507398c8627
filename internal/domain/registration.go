package domain

import "time"

// PendingRegistration is held in the cache between /register and /otpVerify.
// It is never persisted relationally; verification deletes it, otherwise it expires.
type PendingRegistration struct {
	CacheKey  string    `json:"-"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone_no"`
	Code      string    `json:"otp"` // bcrypt hash of the issued code
	Session   string    `json:"session"`
	CreatedAt time.Time `json:"created_at"`
	TTL       int64     `json:"ttl"` // seconds
}

// VerifiedRegistration is what a successful verification hands back for persistence.
type VerifiedRegistration struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone_no"`
}

type RegisterRequest struct {
	Name      string `json:"name" form:"name" validate:"required,max=120"`
	Email     string `json:"email" form:"email" validate:"required"`
	Phone     string `json:"phone_no" form:"phone_no" validate:"required"`
	SessionID string `json:"-"`
}

type VerifyRequest struct {
	CacheKey string `json:"cache_key" validate:"required"`
	Code     string `json:"otp" validate:"required,numeric"`
}
