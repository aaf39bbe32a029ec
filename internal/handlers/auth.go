package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleetflow/internal/auth"
	"github.com/ukydev/fleetflow/internal/db"
	"github.com/ukydev/fleetflow/internal/middleware"
	"github.com/ukydev/fleetflow/internal/models"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	authService    *auth.Service
	userCollection db.UserCollection
	now            func() time.Time
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authService *auth.Service, userCollection db.UserCollection) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		userCollection: userCollection,
		now:            time.Now,
	}
}

// Login handles user login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var loginReq models.LoginRequest
	if err := decode(w, r, &loginReq); err != nil {
		badRequest(w, err)
		return
	}

	if strings.TrimSpace(loginReq.Username) == "" || loginReq.Password == "" {
		fail(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := h.userCollection.FindUserByUsername(r.Context(), auth.NormalizeUsername(loginReq.Username))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			fail(w, http.StatusUnauthorized, auth.ErrInvalidCredentials.Error())
			return
		}
		respondError(w, r, err)
		return
	}

	if !h.authService.CheckPassword(loginReq.Password, user.PasswordHash) {
		fail(w, http.StatusUnauthorized, auth.ErrInvalidCredentials.Error())
		return
	}

	h.issueToken(w, r, user, http.StatusOK)
}

// Register handles user registration
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var registerReq models.RegisterRequest
	if err := decode(w, r, &registerReq); err != nil {
		badRequest(w, err)
		return
	}

	if registerReq.Username == "" || registerReq.Password == "" || strings.TrimSpace(registerReq.Name) == "" {
		fail(w, http.StatusBadRequest, "username, password and name are required")
		return
	}
	if err := h.authService.ValidateUsername(registerReq.Username); err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.authService.ValidatePassword(registerReq.Password); err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}
	if registerReq.Role == "" {
		registerReq.Role = models.RoleDispatcher
	}
	if !models.IsValidRole(registerReq.Role) {
		fail(w, http.StatusBadRequest, "invalid role")
		return
	}

	passwordHash, err := h.authService.HashPassword(registerReq.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}

	now := h.now().UTC()
	user := models.User{
		Username:     auth.NormalizeUsername(registerReq.Username),
		PasswordHash: passwordHash,
		Name:         strings.TrimSpace(registerReq.Name),
		Role:         registerReq.Role,
		CompanyName:  strings.TrimSpace(registerReq.CompanyName),
		Avatar:       models.DefaultAvatar,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.userCollection.InsertUser(r.Context(), &user); err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			fail(w, http.StatusConflict, "username already taken")
			return
		}
		respondError(w, r, err)
		return
	}

	log.WithFields(log.Fields{"username": user.Username, "role": user.Role}).Info("user registered")
	h.issueToken(w, r, &user, http.StatusCreated)
}

func (h *AuthHandler) issueToken(w http.ResponseWriter, r *http.Request, user *models.User, status int) {
	token, err := h.authService.GenerateToken(user)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, status, models.LoginResponse{Token: token, User: *user})
}

// currentUser loads the account behind the request's token.
func (h *AuthHandler) currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		fail(w, http.StatusUnauthorized, "user context not found")
		return nil, false
	}
	user, err := h.userCollection.FindUserByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			fail(w, http.StatusUnauthorized, auth.ErrUserNotFound.Error())
			return nil, false
		}
		respondError(w, r, err)
		return nil, false
	}
	return user, true
}

// GetProfile returns the current user's profile
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	respond(w, http.StatusOK, user)
}

// UpdateProfile updates the current user's profile
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var updateReq models.ProfileRequest
	if err := decode(w, r, &updateReq); err != nil {
		badRequest(w, err)
		return
	}

	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	if updateReq.Name != nil {
		name := strings.TrimSpace(*updateReq.Name)
		if name == "" {
			fail(w, http.StatusBadRequest, "name cannot be empty")
			return
		}
		user.Name = name
	}
	if updateReq.CompanyName != nil {
		user.CompanyName = strings.TrimSpace(*updateReq.CompanyName)
	}
	if updateReq.Avatar != nil {
		user.Avatar = *updateReq.Avatar
		if user.Avatar == "" {
			user.Avatar = models.DefaultAvatar
		}
	}
	user.UpdatedAt = h.now().UTC()

	if err := h.userCollection.UpdateUser(r.Context(), *user); err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, user)
}

// ChangePassword changes the current user's password
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var passwordReq models.PasswordChangeRequest
	if err := decode(w, r, &passwordReq); err != nil {
		badRequest(w, err)
		return
	}

	if passwordReq.CurrentPassword == "" || passwordReq.NewPassword == "" {
		fail(w, http.StatusBadRequest, "current password and new password are required")
		return
	}
	if err := h.authService.ValidatePassword(passwordReq.NewPassword); err != nil {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}

	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	if !h.authService.CheckPassword(passwordReq.CurrentPassword, user.PasswordHash) {
		fail(w, http.StatusUnauthorized, "current password is incorrect")
		return
	}

	newPasswordHash, err := h.authService.HashPassword(passwordReq.NewPassword)
	if err != nil {
		respondError(w, r, err)
		return
	}

	user.PasswordHash = newPasswordHash
	user.UpdatedAt = h.now().UTC()
	if err := h.userCollection.UpdateUser(r.Context(), *user); err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"message": "password changed"})
}
