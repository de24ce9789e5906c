package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// ErrPartitionNotEmpty is returned by a PartitionProvider when a partition
// still holds objects and therefore was kept.
var ErrPartitionNotEmpty = errors.New("partition not empty")

// PartitionProvider manages the containers assets are grouped in.
// Object stores with flat key spaces implement both methods as no-ops.
type PartitionProvider interface {
	// MakePartition creates the partition if it is absent. Creating an
	// existing partition is not an error.
	MakePartition(ctx context.Context, partition string) error
	// RemovePartition removes the partition only if it is empty.
	RemovePartition(ctx context.Context, partition string) error
}

// Partition is the set of assets under one owner.
type Partition struct {
	Kind    OwnerKind
	OwnerID string
}

// Key is the storage location of the partition, relative to the storage root.
func (p Partition) Key() string {
	return p.OwnerID
}

// Namespace resolves partitions, mints asset ids and reclaims empty partitions.
type Namespace struct {
	provider PartitionProvider
	retire   map[OwnerKind]bool
	logger   *slog.Logger
}

func NewNamespace(provider PartitionProvider, retireKinds []OwnerKind, logger *slog.Logger) Namespace {
	retire := make(map[OwnerKind]bool, len(retireKinds))
	for _, k := range retireKinds {
		retire[k] = true
	}
	if logger == nil {
		logger = slog.Default()
	}
	return Namespace{provider: provider, retire: retire, logger: logger}
}

// Locate returns the partition for an owner without creating it.
func (n Namespace) Locate(kind OwnerKind, ownerID string) (Partition, error) {
	if !isSafeSegment(ownerID) {
		return Partition{}, fmt.Errorf("%w: owner id %q", ErrInvalidPath, ownerID)
	}
	return Partition{Kind: kind, OwnerID: ownerID}, nil
}

// ResolvePartition returns the partition for an owner, creating it on demand.
func (n Namespace) ResolvePartition(ctx context.Context, kind OwnerKind, ownerID string) (Partition, error) {
	p, err := n.Locate(kind, ownerID)
	if err != nil {
		return Partition{}, err
	}
	if err := n.provider.MakePartition(ctx, p.Key()); err != nil {
		return Partition{}, fmt.Errorf("%w: create partition: %w", ErrWriteFailed, err)
	}
	return p, nil
}

// MintAssetID returns a fresh asset identifier including the canonical extension.
func (n Namespace) MintAssetID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("%w: mint id: %w", ErrWriteFailed, err)
	}
	return id.String() + CanonicalExt, nil
}

// Retire removes the partition if it is empty and retiring is enabled for
// its kind. It reports whether the partition was removed and never fails.
func (n Namespace) Retire(ctx context.Context, p Partition) bool {
	if !n.retire[p.Kind] {
		return false
	}
	err := n.provider.RemovePartition(ctx, p.Key())
	switch {
	case err == nil:
		n.logger.DebugContext(ctx, "partition removed", slog.String("partition", p.Key()))
		return true
	case errors.Is(err, ErrPartitionNotEmpty):
		n.logger.DebugContext(ctx, "partition kept", slog.String("partition", p.Key()))
	default:
		n.logger.WarnContext(ctx, "partition retire failed",
			slog.String("partition", p.Key()),
			slog.String("err", err.Error()))
	}
	return false
}

// isSafeSegment reports whether s can be used as a single path segment.
// Dot-prefixed names are reserved for in-flight writes.
func isSafeSegment(s string) bool {
	if s == "" || strings.HasPrefix(s, ".") || len(s) > 255 {
		return false
	}
	return !strings.ContainsAny(s, "/\\\x00")
}
