package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-ticket-otp/internal/application/dispatch"
	"github.com/go-ticket-otp/internal/application/registration"
	"github.com/go-ticket-otp/internal/config"
	"github.com/go-ticket-otp/internal/domain"
	memorystore "github.com/go-ticket-otp/internal/infrastructure/memory"
	"github.com/go-ticket-otp/internal/pkg/wire"
	"github.com/go-ticket-otp/internal/queue"
	"github.com/go-ticket-otp/internal/transport/ws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type stack struct {
	handler http.Handler
	broker  *memorystore.Broker
	kv      *memorystore.KV
}

func newStack(t *testing.T) *stack {
	t.Helper()
	cfg := &config.Config{
		AllowedOrigins:    []string{"*"},
		SessionCookieName: "session_id",
		RegistrationTTL:   10 * time.Minute,
	}
	kv := memorystore.NewKV()
	broker := memorystore.NewBroker()
	t.Cleanup(func() { _ = broker.Close() })
	hub := ws.NewHub()
	d := dispatch.NewDispatcher(dispatch.DispatcherDeps{
		Publisher: broker,
		Queues: map[domain.Channel]dispatch.Queues{
			domain.ChannelSMS:   {Primary: "otp_queue_1", Retry: "otp_queue_2"},
			domain.ChannelEmail: {Primary: "email_otp_queue_1", Retry: "email_otp_queue_2"},
		},
		Retries:  dispatch.NewRetryTracker(kv, cfg.RegistrationTTL),
		Notifier: hub,
	})
	svc := registration.NewService(registration.ServiceDeps{
		Store:      registration.NewPendingStore(kv),
		Dispatcher: d,
		TTL:        cfg.RegistrationTTL,
		HashCost:   bcrypt.MinCost,
	})
	return &stack{
		handler: NewRouter(cfg, &Deps{Registration: svc, Sessions: kv, Hub: hub}),
		broker:  broker,
		kv:      kv,
	}
}

func (s *stack) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

// takeCode pulls the queued SMS job and returns its code.
func (s *stack) takeCode(t *testing.T) string {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var code string
	go func() {
		_ = s.broker.Consume(ctx, "otp_queue_1", 1, func(_ context.Context, d queue.Delivery) {
			job, err := wire.Decode(d.Body)
			if err == nil {
				code = job.Code
			}
			_ = d.Ack()
			cancel()
		})
	}()
	<-ctx.Done()
	return code
}

func TestRegisterThenVerify(t *testing.T) {
	s := newStack(t)

	rr := s.do(t, http.MethodPost, "/v1/register",
		`{"name":"Asha","email":"asha@example.com","phone_no":"9876543210"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var reg map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &reg))
	assert.Equal(t, registration.CacheKey("Asha", "asha@example.com", "+919876543210"), reg["cache_key"])
	assert.Equal(t, reg["cache_key"], reg["redis_key"])
	assert.NotEmpty(t, reg["task_id"])
	assert.NotEmpty(t, reg["email_task_id"])
	assert.NotContains(t, rr.Body.String(), `"otp"`)
	assert.Equal(t, 1, s.broker.Len("otp_queue_1"))
	assert.Equal(t, 1, s.broker.Len("email_otp_queue_1"))

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "session_id", cookies[0].Name)

	code := s.takeCode(t)
	require.NotEmpty(t, code)

	rr = s.do(t, http.MethodPost, "/v1/otpVerify", `{"redis_key":"`+reg["cache_key"]+`","otp":"`+code+`"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var out struct {
		Message  string            `json:"message"`
		UserData map[string]string `json:"user_data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Equal(t, map[string]string{"name": "Asha", "email": "asha@example.com", "phone_no": "+919876543210"}, out.UserData)

	rr = s.do(t, http.MethodPost, "/v1/otpVerify", `{"cache_key":"`+reg["cache_key"]+`","otp":"`+code+`"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Invalid or expired OTP.")
}

func TestRegister_FormEncoded(t *testing.T) {
	s := newStack(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/register",
		strings.NewReader("name=Asha&email=asha%40example.com&phone_no=%2B919876543210"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
}

func TestVerify_FormEncoded(t *testing.T) {
	s := newStack(t)
	rr := s.do(t, http.MethodPost, "/v1/register",
		`{"name":"Asha","email":"asha@example.com","phone_no":"9876543210"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var reg map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &reg))
	code := s.takeCode(t)
	require.NotEmpty(t, code)

	form := url.Values{"redis_key": {reg["cache_key"]}, "otp": {code}}
	req := httptest.NewRequest(http.MethodPost, "/v1/otpVerify", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr = httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), "OTP verified successfully.")
}

func TestVerify_FormEncodedWrongCode(t *testing.T) {
	s := newStack(t)
	form := url.Values{"cache_key": {"user_data_x"}, "otp": {"123456"}}
	req := httptest.NewRequest(http.MethodPost, "/v1/otpVerify", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Invalid or expired OTP.")
}

func TestRegister_InvalidPhone(t *testing.T) {
	s := newStack(t)
	rr := s.do(t, http.MethodPost, "/v1/register", `{"name":"Asha","email":"asha@example.com","phone_no":"12345"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Invalid phone number format.")
	assert.Zero(t, s.broker.Len("otp_queue_1"))
	assert.Zero(t, s.broker.Len("email_otp_queue_1"))
}

func TestRegister_InvalidEmail(t *testing.T) {
	s := newStack(t)
	rr := s.do(t, http.MethodPost, "/v1/register", `{"name":"Asha","email":"nope","phone_no":"9876543210"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Invalid email format.")
}

func TestRegister_MissingFields(t *testing.T) {
	s := newStack(t)
	rr := s.do(t, http.MethodPost, "/v1/register", `{"name":"Asha"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestVerify_UnknownKey(t *testing.T) {
	s := newStack(t)
	rr := s.do(t, http.MethodPost, "/v1/otpVerify", `{"cache_key":"user_data_x","otp":"123456"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Invalid or expired OTP.")
}

func TestVerify_NonNumericCode(t *testing.T) {
	s := newStack(t)
	rr := s.do(t, http.MethodPost, "/v1/otpVerify", `{"cache_key":"user_data_x","otp":"abc"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newStack(t)
	rr := s.do(t, http.MethodGet, "/v1/health-check/ping", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "pong")

	rr = s.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}
