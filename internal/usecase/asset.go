package usecase

import (
	"fmt"
	"net/url"
)

// Asset is one stored, immutable image.
type Asset struct {
	Partition Partition
	ID        string
	Size      int64
	Colors    [][4]uint8
}

// Descriptor is what callers get back for a stored asset. It is derived
// from the Asset and never persisted.
type Descriptor struct {
	ImageURL string
	FileName string
	FileSize int64
	MimeType string
	Colors   [][4]uint8
}

func (a Asset) Descriptor() Descriptor {
	return Descriptor{
		ImageURL: ImageURL(a.Partition.Kind, a.Partition.OwnerID, a.ID),
		FileName: a.ID,
		FileSize: a.Size,
		MimeType: CanonicalMediaType,
		Colors:   a.Colors,
	}
}

// ImageURL is the owner scoped retrieval path of an asset.
func ImageURL(kind OwnerKind, ownerID, filename string) string {
	return fmt.Sprintf("/images/%s/%s/%s", kind, url.PathEscape(ownerID), url.PathEscape(filename))
}

// Object is a fetched asset payload.
type Object struct {
	Name      string
	Data      []byte
	MediaType string
}

// DeleteResult reports the side effects of a delete.
type DeleteResult struct {
	PartitionRemoved bool
}
