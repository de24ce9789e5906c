package server

import (
	"context"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/librarease/images/internal/config"
	"github.com/librarease/images/internal/usecase"
)

// Service is the image pipeline the handlers call into.
type Service interface {
	// Health returns a map of health status information.
	Health(context.Context) map[string]string

	Upload(context.Context, usecase.OwnerKind, string, usecase.Upload) (usecase.Descriptor, error)
	Fetch(context.Context, usecase.OwnerKind, string, string) (usecase.Object, error)
	Delete(context.Context, usecase.OwnerKind, string, string) (usecase.DeleteResult, error)
}

// TokenVerifier resolves a bearer token to a user id.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, token string) (string, error)
}

type Server struct {
	server    Service
	verifier  TokenVerifier
	validator *validator.Validate
	cfg       config.Config
	logger    *slog.Logger
}

// NewServer builds the HTTP layer. verifier may be nil, in which case only
// trusted internal clients can pass AuthMiddleware.
func NewServer(sv Service, verifier TokenVerifier, cfg config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		server:    sv,
		verifier:  verifier,
		validator: validator.New(),
		cfg:       cfg,
		logger:    logger,
	}
}
