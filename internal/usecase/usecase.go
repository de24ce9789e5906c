package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// FileStorageProvider persists asset bytes. Missing objects are reported
// as ErrNotFound.
type FileStorageProvider interface {
	Put(ctx context.Context, partition, key string, data []byte) error
	Get(ctx context.Context, partition, key string) ([]byte, error)
	Exists(ctx context.Context, partition, key string) (bool, error)
	Delete(ctx context.Context, partition, key string) error
}

// HealthChecker is implemented by providers that can probe their backend.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Policy        Policy
	Quality       int
	RetireKinds   []OwnerKind
	ExtractColors bool
	Logger        *slog.Logger
}

func New(fsp FileStorageProvider, pp PartitionProvider, opt Options) Usecase {
	logger := opt.Logger
	if logger == nil {
		logger = slog.Default()
	}
	policy := opt.Policy
	if len(policy.AllowedExtensions) == 0 && policy.MaxBytes == 0 {
		policy = DefaultPolicy
	}
	return Usecase{
		policy:              policy,
		normalizer:          Normalizer{Quality: opt.Quality},
		namespace:           NewNamespace(pp, opt.RetireKinds, logger),
		fileStorageProvider: fsp,
		extractColors:       opt.ExtractColors,
		logger:              logger,
		tracer:              otel.Tracer("github.com/librarease/images/internal/usecase"),
	}
}

// Usecase runs the upload, fetch and delete pipelines. The same pipeline
// serves every owner kind.
type Usecase struct {
	policy              Policy
	normalizer          Normalizer
	namespace           Namespace
	fileStorageProvider FileStorageProvider
	extractColors       bool
	logger              *slog.Logger
	tracer              trace.Tracer
}

func (u Usecase) Upload(ctx context.Context, kind OwnerKind, ownerID string, up Upload) (d Descriptor, err error) {
	ctx, span := u.tracer.Start(ctx, "usecase.Upload", trace.WithAttributes(
		attribute.String("owner.kind", kind.String()),
		attribute.String("owner.id", ownerID),
	))
	defer func() { endSpan(span, err) }()

	if _, err := u.namespace.Locate(kind, ownerID); err != nil {
		return Descriptor{}, err
	}

	if err := u.policy.Validate(up); err != nil {
		u.logger.InfoContext(ctx, "upload rejected",
			slog.String("owner_kind", kind.String()),
			slog.String("owner_id", ownerID),
			slog.String("filename", up.Filename),
			slog.String("content_type", up.ContentType),
			slog.String("err", err.Error()))
		return Descriptor{}, err
	}

	raw, err := io.ReadAll(up.Body)
	if err != nil {
		return Descriptor{}, fmt.Errorf("%w: read: %w", ErrMissingInput, err)
	}

	data, img, err := u.normalizer.normalize(raw)
	if err != nil {
		u.logger.ErrorContext(ctx, "image conversion failed",
			slog.String("filename", up.Filename),
			slog.String("err", err.Error()))
		return Descriptor{}, err
	}

	p, err := u.namespace.ResolvePartition(ctx, kind, ownerID)
	if err != nil {
		u.logger.ErrorContext(ctx, "resolve partition failed", slog.String("err", err.Error()))
		return Descriptor{}, err
	}
	id, err := u.namespace.MintAssetID()
	if err != nil {
		return Descriptor{}, err
	}

	if err := u.fileStorageProvider.Put(ctx, p.Key(), id, data); err != nil {
		u.logger.ErrorContext(ctx, "store image failed",
			slog.String("partition", p.Key()),
			slog.String("key", id),
			slog.String("err", err.Error()))
		return Descriptor{}, fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}

	asset := Asset{Partition: p, ID: id, Size: int64(len(data))}
	if u.extractColors {
		asset.Colors = dominantColors(img)
	}

	u.logger.InfoContext(ctx, "image stored",
		slog.String("owner_kind", kind.String()),
		slog.String("owner_id", ownerID),
		slog.String("key", id),
		slog.Int("source_bytes", len(raw)),
		slog.Int64("stored_bytes", asset.Size))

	return asset.Descriptor(), nil
}

func (u Usecase) Fetch(ctx context.Context, kind OwnerKind, ownerID, filename string) (o Object, err error) {
	ctx, span := u.tracer.Start(ctx, "usecase.Fetch", trace.WithAttributes(
		attribute.String("owner.kind", kind.String()),
		attribute.String("owner.id", ownerID),
	))
	defer func() { endSpan(span, err) }()

	p, err := u.locate(kind, ownerID, filename)
	if err != nil {
		return Object{}, err
	}

	data, err := u.fileStorageProvider.Get(ctx, p.Key(), filename)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Object{}, ErrNotFound
		}
		u.logger.ErrorContext(ctx, "read image failed",
			slog.String("partition", p.Key()),
			slog.String("key", filename),
			slog.String("err", err.Error()))
		return Object{}, err
	}
	return Object{Name: filename, Data: data, MediaType: CanonicalMediaType}, nil
}

func (u Usecase) Delete(ctx context.Context, kind OwnerKind, ownerID, filename string) (r DeleteResult, err error) {
	ctx, span := u.tracer.Start(ctx, "usecase.Delete", trace.WithAttributes(
		attribute.String("owner.kind", kind.String()),
		attribute.String("owner.id", ownerID),
	))
	defer func() { endSpan(span, err) }()

	p, err := u.locate(kind, ownerID, filename)
	if err != nil {
		return DeleteResult{}, err
	}

	if err := u.fileStorageProvider.Delete(ctx, p.Key(), filename); err != nil {
		if errors.Is(err, ErrNotFound) {
			return DeleteResult{}, ErrNotFound
		}
		u.logger.ErrorContext(ctx, "delete image failed",
			slog.String("partition", p.Key()),
			slog.String("key", filename),
			slog.String("err", err.Error()))
		return DeleteResult{}, fmt.Errorf("%w: %w", ErrDeleteFailed, err)
	}

	return DeleteResult{PartitionRemoved: u.namespace.Retire(ctx, p)}, nil
}

// Health probes the storage backend when it supports it.
func (u Usecase) Health(ctx context.Context) map[string]string {
	stats := map[string]string{"status": "up"}
	hc, ok := u.fileStorageProvider.(HealthChecker)
	if !ok {
		return stats
	}
	if err := hc.Ping(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("storage down: %v", err)
	}
	return stats
}

func (u Usecase) locate(kind OwnerKind, ownerID, filename string) (Partition, error) {
	if !isSafeSegment(filename) {
		return Partition{}, fmt.Errorf("%w: file name %q", ErrInvalidPath, filename)
	}
	return u.namespace.Locate(kind, ownerID)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
