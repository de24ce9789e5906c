package server

import (
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"golang.org/x/time/rate"
)

const serviceName = "images"

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestID())
	e.Use(NewEchoLogger(s.logger))
	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware(serviceName))

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"https://*", "http://*"},
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Client-Id", "X-Uid"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	e.GET("/health", s.healthHandler)

	e.POST("/upload/:kind/:owner_id", s.UploadImage, s.uploadMiddlewares()...)

	var imageGroup = e.Group("/images")
	imageGroup.GET("/:kind/:owner_id/:filename", s.GetImage)
	imageGroup.DELETE("/:kind/:owner_id/:filename", s.DeleteImage, s.AuthMiddleware)

	return e
}

// uploadMiddlewares bounds the request body well above the upload ceiling,
// so oversized files still reach validation and get a descriptive 400.
func (s *Server) uploadMiddlewares() []echo.MiddlewareFunc {
	limitKB := (2*s.cfg.MaxUploadBytes)/1024 + 1024
	mw := []echo.MiddlewareFunc{
		middleware.BodyLimit(fmt.Sprintf("%dK", limitKB)),
	}

	if s.cfg.RateLimitRPS > 0 {
		mw = append(mw, middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
			Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(s.cfg.RateLimitRPS),
				Burst:     int(math.Ceil(s.cfg.RateLimitRPS)) * 2,
				ExpiresIn: 3 * time.Minute,
			}),
			IdentifierExtractor: func(c echo.Context) (string, error) {
				return c.RealIP(), nil
			},
			DenyHandler: func(c echo.Context, _ string, _ error) error {
				return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "too many requests"})
			},
		}))
	}
	return mw
}

func (s *Server) healthHandler(ctx echo.Context) error {
	stats := s.server.Health(ctx.Request().Context())
	if stats["status"] != "up" {
		return ctx.JSON(http.StatusServiceUnavailable, stats)
	}
	return ctx.JSON(http.StatusOK, stats)
}
