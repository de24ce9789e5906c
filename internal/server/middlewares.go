package server

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/librarease/images/internal/config"
)

var (
	errNoCredentials = errors.New("authorization header is required")
	errNoVerifier    = errors.New("token verification is not configured")
)

// getUID resolves the caller. Trusted internal clients identify with the
// shared client id, everyone else with a bearer token.
func (s *Server) getUID(c echo.Context) (string, error) {
	var (
		reqClientID = c.Request().Header.Get(config.HEADER_KEY_X_CLIENT_ID)
		reqUID      = c.Request().Header.Get(config.HEADER_KEY_X_UID)
	)

	if reqClientID != "" &&
		reqUID != "" &&
		s.cfg.ClientID != "" &&
		reqClientID == s.cfg.ClientID {
		return reqUID, nil
	}

	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok || token == "" {
		return "", errNoCredentials
	}
	if s.verifier == nil {
		return "", errNoVerifier
	}
	return s.verifier.VerifyIDToken(c.Request().Context(), token)
}

// AuthMiddleware gates destructive calls. With DELETE_AUTH=optional callers
// without credentials pass through, but presented credentials must be valid.
func (s *Server) AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		uid, err := s.getUID(c)
		if errors.Is(err, errNoCredentials) && s.cfg.DeleteAuth == config.DELETE_AUTH_OPTIONAL {
			return next(c)
		}
		if err != nil {
			s.logger.InfoContext(ctx, "unauthorized", slog.String("err", err.Error()))
			return c.JSON(401, map[string]string{
				"error":   err.Error(),
				"message": "Invalid token",
			})
		}

		ctx = context.WithValue(ctx, config.CTX_KEY_USER_ID, uid)
		c.SetRequest(c.Request().WithContext(ctx))

		return next(c)
	}
}
