package middleware

import (
	"net/http"
	"strings"

	"github.com/vibast-solutions/ms-go-userauth/app/security"
	"github.com/vibast-solutions/ms-go-userauth/app/types"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const (
	tokenCookie         = "token"
	messageUnauthorized = "Not authorized"
)

type accessTokenValidator interface {
	ValidateAccessToken(tokenString string) (*security.Claims, error)
}

type AuthMiddleware struct {
	authService accessTokenValidator
}

func NewAuthMiddleware(authService accessTokenValidator) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

// RequireAuth accepts an access token from the Authorization header and falls
// back to the token cookie.
func (m *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tokenString, ok := tokenFromRequest(c)
		if !ok {
			logrus.Debug("Missing or malformed access token")
			return unauthorized(c)
		}

		claims, err := m.authService.ValidateAccessToken(tokenString)
		if err != nil {
			logrus.Debug("Invalid or expired access token")
			return unauthorized(c)
		}

		c.Set("user_id", claims.UserID)

		return next(c)
	}
}

func tokenFromRequest(c echo.Context) (string, bool) {
	if authHeader := c.Request().Header.Get(echo.HeaderAuthorization); authHeader != "" {
		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return "", false
		}
		return parts[1], true
	}

	cookie, err := c.Cookie(tokenCookie)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, &types.ErrorResponse{Success: false, Message: messageUnauthorized})
}
