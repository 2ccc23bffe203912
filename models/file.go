package models

import "time"

const (
	FileStatusProcessing = "processing"
	FileStatusVectorized = "vectorized"
	FileStatusError      = "error"
)

// Folder groups uploaded résumés.
type Folder struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`

	Files []File `gorm:"foreignKey:FolderID" json:"files"`
}

// File is an uploaded résumé and its ingestion state.
type File struct {
	ID           string     `gorm:"primaryKey;size:36" json:"id"`
	FolderID     string     `gorm:"size:36;not null;index" json:"folder_id"`
	Filename     string     `gorm:"not null" json:"filename"`
	StoragePath  string     `gorm:"not null" json:"storage_path"`
	Size         int64      `json:"size"`
	Status       string     `gorm:"size:16;default:'processing'" json:"status"`
	ErrorMessage string     `gorm:"type:text" json:"error_message,omitempty"`
	VectorizedAt *time.Time `json:"vectorized_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Done reports whether ingestion has reached a terminal state.
func (f *File) Done() bool {
	return f.Status == FileStatusVectorized || f.Status == FileStatusError
}

// Embedding stores the vector produced for a file's extracted text.
type Embedding struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	FileID    string    `gorm:"size:36;not null;index" json:"file_id"`
	FolderID  string    `gorm:"size:36;index" json:"folder_id"`
	Vector    []float32 `gorm:"type:jsonb;serializer:json" json:"embedding"`
	CreatedAt time.Time `json:"created_at"`
}
