package voices

import (
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("voices: voice not found")
	ErrPreviewTooLarge = errors.New("voices: preview audio exceeds size limit")
)

// Voice is a catalog voice mirrored from the synthesis provider.
// Rows are written only by catalog sync and preview organization.
type Voice struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description,omitempty" db:"description"`
	Language    string    `json:"language,omitempty" db:"language"`
	PreviewURL  string    `json:"preview_url,omitempty" db:"preview_url"`
	StoragePath string    `json:"storage_path,omitempty" db:"storage_path"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
