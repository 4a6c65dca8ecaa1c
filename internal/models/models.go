package models

import (
	"time"
)

// Task represents one user-submitted transcription job tracked through the
// status lifecycle. Rows live in the tasks table.
type Task struct {
	ID            int64      `db:"id" json:"id"`
	UserID        int64      `db:"user_id" json:"user_id"`
	FilePath      string     `db:"file_path" json:"file_path"`
	Filename      string     `db:"filename" json:"filename"`
	Language      string     `db:"language" json:"language"` // BCP-47 code or "auto"
	Model         string     `db:"model" json:"model"`       // whisper model name (tiny, base, small, ...)
	Status        TaskStatus `db:"status" json:"status"`
	Progress      int        `db:"progress" json:"progress"` // 0-100
	Priority      int        `db:"priority" json:"priority"` // higher = more urgent
	FailureReason *string    `db:"failure_reason" json:"failure_reason,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
	CompletedAt   *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}

// Subtitle is one rendered output belonging to a completed task. At most one
// row exists per (task_id, format) pair.
type Subtitle struct {
	ID        int64          `db:"id" json:"id"`
	TaskID    int64          `db:"task_id" json:"task_id"`
	Format    SubtitleFormat `db:"format" json:"format"`
	Content   string         `db:"content" json:"content"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// Segment is a timed unit of transcribed text. Segments are transient: they
// flow from the transcriber into the subtitle encoders and are never persisted.
type Segment struct {
	Start time.Duration `json:"start"`
	End   time.Duration `json:"end"`
	Text  string        `json:"text"`
}
