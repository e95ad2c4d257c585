package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/2beens/gymhustle/internal/telemetry/metrics"
	"github.com/2beens/gymhustle/internal/telemetry/tracing"
	"github.com/2beens/gymhustle/pkg"

	log "github.com/sirupsen/logrus"
)

type Handler struct {
	service        *Service
	metricsManager *metrics.Manager
}

func NewHandler(service *Service, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		service:        service,
		metricsManager: metricsManager,
	}
}

type SignupRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.signup")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var signupReq SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&signupReq); err != nil {
		log.Tracef("signup, unmarshal json params: %s", err)
		http.Error(w, "signup failed", http.StatusBadRequest)
		return
	}

	user, err := h.service.Signup(ctx, signupReq.Email, signupReq.Name, signupReq.Password, time.Now())
	if errors.Is(err, ErrEmailTaken) {
		http.Error(w, "email already taken", http.StatusConflict)
		return
	}
	if err != nil {
		log.Errorf("signup [%s]: %s", signupReq.Email, err)
		http.Error(w, "signup failed", http.StatusInternalServerError)
		return
	}

	h.metricsManager.CounterSignups.Inc()

	userJson, err := json.Marshal(user)
	if err != nil {
		log.Errorf("failed to marshal new user: %s", err)
		http.Error(w, "signup failed", http.StatusInternalServerError)
		return
	}

	log.Debugf("new user signed up: %s", user.Email)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, userJson, http.StatusCreated)
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.login")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var credentials Credentials
	if err := json.NewDecoder(r.Body).Decode(&credentials); err != nil {
		log.Tracef("login, unmarshal json params: %s", err)
		http.Error(w, "login failed", http.StatusBadRequest)
		return
	}

	token, user, err := h.service.Login(ctx, credentials, time.Now())
	if errors.Is(err, ErrWrongPassword) || errors.Is(err, ErrUserNotFound) {
		log.Tracef("failed login attempt for [%s]", credentials.Email)
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if err != nil {
		log.Errorf("login [%s]: %s", credentials.Email, err)
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}

	h.metricsManager.CounterLogins.Inc()

	loginRespJson, err := json.Marshal(LoginResponse{
		Token: token,
		User:  user,
	})
	if err != nil {
		log.Errorf("failed to marshal login response: %s", err)
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, loginRespJson, http.StatusOK)
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.logout")
	defer span.End()

	token := r.Header.Get("X-GH-TOKEN")
	if token == "" {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	loggedOut, err := h.service.Logout(ctx, token)
	if err != nil {
		log.Errorf("logout: %s", err)
		http.Error(w, "logout failed", http.StatusInternalServerError)
		return
	}
	if !loggedOut {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	pkg.WriteTextResponseOK(w, "logged-out")
}
