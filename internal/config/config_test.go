package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, "otp_queue_1", cfg.Queues.SMSPrimary)
	assert.Equal(t, "otp_queue_2", cfg.Queues.SMSRetry)
	assert.Equal(t, "email_otp_queue_1", cfg.Queues.EmailPrimary)
	assert.Equal(t, "email_otp_queue_2", cfg.Queues.EmailRetry)
	assert.Equal(t, 3, cfg.DeliveryMaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.DeliveryRetryDelay)
	assert.Equal(t, 600*time.Second, cfg.RegistrationTTL)
	assert.Equal(t, 6, cfg.OTPLength)
	assert.True(t, cfg.WorkerInProcess)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("REGISTRATION_TTL", "300")
	t.Setenv("DELIVERY_RETRY_DELAY", "250ms")
	t.Setenv("WORKER_INPROCESS", "false")
	t.Setenv("OTP_LENGTH", "not-a-number")

	cfg := Load()
	assert.Equal(t, 300*time.Second, cfg.RegistrationTTL)
	assert.Equal(t, 250*time.Millisecond, cfg.DeliveryRetryDelay)
	assert.False(t, cfg.WorkerInProcess)
	assert.Equal(t, 6, cfg.OTPLength)
}
