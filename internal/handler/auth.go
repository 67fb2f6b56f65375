package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/taller-ot/productos-api/internal/config"
	"github.com/taller-ot/productos-api/internal/model"
	"github.com/taller-ot/productos-api/internal/repository"
	"github.com/taller-ot/productos-api/internal/utils"
)

// credencialesInvalidas is the single message for every login failure:
// unknown user, wrong password and disabled account are indistinguishable to
// the client, so usernames cannot be enumerated.
const credencialesInvalidas = "usuario o contraseña incorrectos, intente nuevamente por favor"

// TokenStore is the revocation-aware refresh token store consumed by the
// auth endpoints. The MySQL-backed repository.TokenRepo implements it; tests
// may inject an in-memory version.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
}

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Tokens TokenStore
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t TokenStore) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t}
}

// ----- DTOs -----

type registerReq struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}
type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
type refreshReq struct {
	Refresh string `json:"refresh"`
}

type userPart struct {
	ID        uint64 `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func toUserPart(u model.User) userPart {
	return userPart{ID: u.ID, Username: u.Username, Email: u.Email,
		FirstName: u.FirstName, LastName: u.LastName}
}

// issuePair signs a fresh access token and stores a new refresh token hash.
func (h *AuthHandler) issuePair(ctx context.Context, userID uint64, username string) (utils.AccessToken, utils.RefreshToken, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, userID, username, h.Cfg.AccessTTLMin)
	if err != nil {
		return utils.AccessToken{}, utils.RefreshToken{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return utils.AccessToken{}, utils.RefreshToken{}, err
	}
	if err := h.Tokens.StoreRefresh(ctx, userID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return utils.AccessToken{}, utils.RefreshToken{}, err
	}
	return access, refresh, nil
}

// Register handles POST /auth/register/: create the account and return a
// token pair immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cuerpo de petición inválido"})
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username y password son requeridos"})
	}
	if len(req.Password) < 8 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "la contraseña debe tener al menos 8 caracteres"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Username, req.Email, req.Password, req.FirstName, req.LastName, h.Cfg.BcryptCost)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUsernameExists), errors.Is(err, repository.ErrEmailExists):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		c.Logger().Errorf("registrar usuario %q: %v", req.Username, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "error interno del servidor"})
	}

	access, refresh, err := h.issuePair(ctx, uid, req.Username)
	if err != nil {
		c.Logger().Errorf("emitir tokens para %q: %v", req.Username, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "error interno del servidor"})
	}
	c.Logger().Infof("usuario registrado: %s", req.Username)

	return c.JSON(http.StatusCreated, echo.Map{
		"mensaje": "usuario registrado exitosamente",
		"user": userPart{ID: uid, Username: req.Username, Email: strings.ToLower(strings.TrimSpace(req.Email)),
			FirstName: req.FirstName, LastName: req.LastName},
		"tokens": echo.Map{"access": access.Token, "refresh": refresh.Raw},
	})
}

// Login handles POST /auth/login/: verify credentials and return a new pair
// plus the public user fields.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cuerpo de petición inválido"})
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "usuario y contraseña son requeridos"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": credencialesInvalidas})
		}
		c.Logger().Errorf("buscar usuario %q: %v", req.Username, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "error interno del servidor"})
	}
	if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": credencialesInvalidas})
	}

	access, refresh, err := h.issuePair(ctx, u.ID, u.Username)
	if err != nil {
		c.Logger().Errorf("emitir tokens para %q: %v", u.Username, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "error interno del servidor"})
	}
	c.Logger().Infof("login exitoso: %s", u.Username)

	return c.JSON(http.StatusOK, echo.Map{
		"access":  access.Token,
		"refresh": refresh.Raw,
		"user":    toUserPart(u),
	})
}

// Refresh handles POST /auth/refresh/: validate the refresh token by hash,
// revoke it and issue a rotated pair. Revoked, expired and unknown tokens all
// fail with the same invalid-token error.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Refresh) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token de refresh es requerido"})
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.Refresh))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token de refresh inválido"})
	}
	// Rotation is single-use: never hand out a new pair while the old token
	// could still be exchanged.
	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
		c.Logger().Errorf("revocar refresh rotado: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "error interno del servidor"})
	}

	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token de refresh inválido"})
		}
		c.Logger().Errorf("cargar usuario %d: %v", userID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "error interno del servidor"})
	}

	access, refresh, err := h.issuePair(ctx, u.ID, u.Username)
	if err != nil {
		c.Logger().Errorf("emitir tokens para %q: %v", u.Username, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "error interno del servidor"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"access":  access.Token,
		"refresh": refresh.Raw,
	})
}

// Logout handles POST /auth/logout/: blacklist the supplied refresh token so
// later refresh calls with it fail.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Refresh) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token de refresh es requerido"})
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.Refresh))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Tokens.ValidateRefresh(ctx, hash); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token de refresh inválido"})
	}
	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
		c.Logger().Errorf("revocar refresh: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "error interno del servidor"})
	}
	return c.JSON(http.StatusOK, echo.Map{"mensaje": "sesión cerrada exitosamente"})
}

// Profile handles GET /auth/profile/ and returns the caller's own public
// fields. Requires a valid access token.
func (h *AuthHandler) Profile(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "no autorizado"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "no autorizado"})
		}
		c.Logger().Errorf("cargar perfil %d: %v", uid, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "error interno del servidor"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"id":          u.ID,
		"username":    u.Username,
		"email":       u.Email,
		"first_name":  u.FirstName,
		"last_name":   u.LastName,
		"date_joined": u.CreatedAt,
		"is_active":   u.IsActive,
	})
}
