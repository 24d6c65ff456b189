package media

import (
	"time"

	"github.com/google/uuid"
)

// Asset is the metadata record for an uploaded media file. The bytes
// themselves live in object storage keyed by the asset ID.
type Asset struct {
	ID        uuid.UUID
	Filename  string
	MimeType  string
	SizeBytes int64
	Alt       string
	OwnerID   int64
	OwnerName string
	CreatedAt time.Time
	UpdatedAt time.Time
}
