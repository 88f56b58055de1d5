package auth

import (
	"errors"
	"strings"

	"github.com/MuhamadAgungGumelar/ai-image-studio-be/internal/shared/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

const HeaderDeviceID = "X-Device-Id"

type Handler struct {
	authService *Service
	google      GoogleVerifier
}

func NewHandler(authService *Service, google GoogleVerifier) *Handler {
	return &Handler{authService: authService, google: google}
}

// RegisterRoutes mounts /auth on router. protected must run AuthMiddleware.
func (h *Handler) RegisterRoutes(router fiber.Router, protected fiber.Handler) {
	g := router.Group("/auth")
	g.Post("/register", h.Register)
	g.Post("/login", h.Login)
	g.Post("/google", h.LoginWithGoogle)
	g.Post("/refresh", h.RefreshToken)
	g.Post("/logout", protected, h.Logout)
	g.Get("/me", protected, h.Me)
}

func clientInfo(c *fiber.Ctx) ClientInfo {
	return ClientInfo{
		IP:       utils.ClientIP(c),
		DeviceID: strings.TrimSpace(c.Get(HeaderDeviceID)),
	}
}

// Register godoc
// @Summary Register new user
// @Description Create an account with email and password. New accounts may receive signup credits.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param X-Device-Id header string false "Client device fingerprint"
// @Param request body RegisterRequest true "Registration details"
// @Success 201 {object} AuthResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Router /auth/register [post]
func (h *Handler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Email and password are required",
		})
	}

	resp, err := h.authService.Register(c.UserContext(), &req, clientInfo(c))
	switch {
	case errors.Is(err, ErrEmailTaken):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrWeakPassword):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case err != nil:
		log.Error().Err(err).Msg("❌ Registration failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to register"})
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// Login godoc
// @Summary Login with email and password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /auth/login [post]
func (h *Handler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}
	if req.Email == "" || req.Password == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Email and password are required",
		})
	}

	resp, err := h.authService.Login(c.UserContext(), &req)
	if err != nil {
		if !errors.Is(err, ErrInvalidCredentials) {
			log.Error().Err(err).Msg("❌ Login failed")
		}
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid email or password",
		})
	}
	return c.JSON(resp)
}

// LoginWithGoogle godoc
// @Summary Login with Google
// @Description Authenticate with a Google ID token, creating the account on first login
// @Tags Authentication
// @Accept json
// @Produce json
// @Param X-Device-Id header string false "Client device fingerprint"
// @Param request body GoogleLoginRequest true "Google ID token"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /auth/google [post]
func (h *Handler) LoginWithGoogle(c *fiber.Ctx) error {
	var req GoogleLoginRequest
	if err := c.BodyParser(&req); err != nil || req.GoogleIDToken == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "google_id_token is required",
		})
	}

	googleUser, err := h.google.VerifyIDToken(c.UserContext(), req.GoogleIDToken)
	if err != nil {
		log.Warn().Err(err).Msg("Google token verification failed")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid Google ID token",
		})
	}

	resp, err := h.authService.LoginWithGoogle(c.UserContext(), googleUser, clientInfo(c))
	if err != nil {
		log.Error().Err(err).Msg("❌ Google login failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to login with Google",
		})
	}
	return c.JSON(resp)
}

// RefreshToken godoc
// @Summary Refresh access token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body RefreshTokenRequest true "Refresh token"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /auth/refresh [post]
func (h *Handler) RefreshToken(c *fiber.Ctx) error {
	var req RefreshTokenRequest
	if err := c.BodyParser(&req); err != nil || req.RefreshToken == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "refresh_token is required",
		})
	}

	resp, err := h.authService.RefreshToken(c.UserContext(), req.RefreshToken)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid or expired refresh token",
		})
	}
	return c.JSON(resp)
}

// Logout godoc
// @Summary Logout
// @Description Revoke the caller's refresh token
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Router /auth/logout [post]
func (h *Handler) Logout(c *fiber.Ctx) error {
	userID, ok := CurrentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	if err := h.authService.Logout(c.UserContext(), userID); err != nil {
		log.Error().Err(err).Msg("❌ Logout failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to logout",
		})
	}
	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}

// Me godoc
// @Summary Get current user
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} UserInfo
// @Failure 401 {object} map[string]interface{}
// @Router /auth/me [get]
func (h *Handler) Me(c *fiber.Ctx) error {
	userID, ok := CurrentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Unauthorized"})
	}
	user, err := h.authService.GetUser(c.UserContext(), userID)
	if errors.Is(err, ErrUserNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load user"})
	}
	return c.JSON(newUserInfo(user))
}
