package dbmysql

import (
	"time"
)

// Message is one persisted chat message. MessageID is the public identifier
// used as the pagination cursor; the auto-increment ID only breaks
// created_at ties.
type Message struct {
	ID           uint   `gorm:"primaryKey"`
	MessageID    string `gorm:"uniqueIndex;size:36"`
	CourseID     string `gorm:"index:idx_course_created;size:64"`
	SenderID     string `gorm:"size:36"`
	SenderName   string `gorm:"size:100"`
	SenderRole   string `gorm:"size:16"`
	Type         string `gorm:"size:16"`
	Content      string `gorm:"type:text"`
	FileURL      string `gorm:"size:512"`
	Filename     string `gorm:"size:255"`
	FileSize     int64
	MimeType     string `gorm:"size:100"`
	DurationMS   int64
	Resolution   string `gorm:"size:16"`
	ThumbnailURL string    `gorm:"size:512"`
	CreatedAt    time.Time `gorm:"index:idx_course_created"`
}
