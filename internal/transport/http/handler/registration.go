package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-ticket-otp/internal/application/account"
	"github.com/go-ticket-otp/internal/application/registration"
	"github.com/go-ticket-otp/internal/domain"
	"github.com/go-ticket-otp/internal/pkg/validate"
	"github.com/go-ticket-otp/internal/transport/http/middleware"
)

const maxFormMemory = 1 << 20

// RegistrationHandler serves the register and verify endpoints.
type RegistrationHandler struct {
	svc      registration.Service
	accounts account.Service // nil when verified users are not persisted
}

func NewRegistrationHandler(svc registration.Service, accounts account.Service) *RegistrationHandler {
	return &RegistrationHandler{svc: svc, accounts: accounts}
}

// verifyBody accepts the key as cache_key or redis_key.
type verifyBody struct {
	CacheKey string `json:"cache_key"`
	RedisKey string `json:"redis_key"`
	OTP      string `json:"otp"`
}

// Register accepts JSON or form-encoded name, email and phone_no.
func (h *RegistrationHandler) Register(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRegister(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.SessionID = middleware.SessionFromContext(r.Context())

	issued, err := h.svc.Register(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, RegisterEnvelope{
		Message:     "OTP sent to your phone number and email.",
		CacheKey:    issued.CacheKey,
		RedisKey:    issued.CacheKey,
		TaskID:      issued.TaskID,
		EmailTaskID: issued.EmailTaskID,
	})
}

func (h *RegistrationHandler) Verify(w http.ResponseWriter, r *http.Request) {
	req, err := decodeVerify(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	v, err := h.svc.Verify(r.Context(), req.CacheKey, req.Code)
	if err != nil {
		httpError(w, err)
		return
	}
	out := VerifyEnvelope{Message: "OTP verified successfully.", UserData: v}
	if h.accounts != nil {
		c, err := h.accounts.Confirm(r.Context(), v, middleware.SessionFromContext(r.Context()))
		if err != nil {
			slog.Error("persist verified user", "email", v.Email, "err", err)
		} else {
			out.UserID = c.User.UserID
			out.Bearer = c.Token
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func isForm(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return strings.HasPrefix(ct, "application/x-www-form-urlencoded") || strings.HasPrefix(ct, "multipart/form-data")
}

// decodeVerify accepts JSON or form-encoded cache_key (or redis_key) and otp.
func decodeVerify(r *http.Request) (domain.VerifyRequest, error) {
	var body verifyBody
	if isForm(r) {
		if err := r.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return domain.VerifyRequest{}, err
		}
		body.CacheKey = r.PostFormValue("cache_key")
		body.RedisKey = r.PostFormValue("redis_key")
		body.OTP = r.PostFormValue("otp")
	} else if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return domain.VerifyRequest{}, err
	}
	req := domain.VerifyRequest{CacheKey: body.CacheKey, Code: strings.TrimSpace(body.OTP)}
	if req.CacheKey == "" {
		req.CacheKey = body.RedisKey
	}
	return req, nil
}

func decodeRegister(r *http.Request) (domain.RegisterRequest, error) {
	var req domain.RegisterRequest
	if isForm(r) {
		if err := r.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return req, err
		}
		req.Name = r.PostFormValue("name")
		req.Email = r.PostFormValue("email")
		req.Phone = r.PostFormValue("phone_no")
		return req, nil
	}
	err := json.NewDecoder(r.Body).Decode(&req)
	return req, err
}
