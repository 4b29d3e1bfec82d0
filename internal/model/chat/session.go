package chat

import "time"

// DefaultTitle is assigned to a session until its first user message arrives.
const DefaultTitle = "New Chat"

// Session is a persisted conversation thread shown in the sidebar.
type Session struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Title      string    `gorm:"size:255;not null" json:"title"`
	Persona    string    `gorm:"size:50;not null;index" json:"persona"`
	IsArchived bool      `gorm:"not null;default:false;index" json:"isArchived"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	// MessageCount is derived, filled by the service layer for list/detail views.
	MessageCount int64 `gorm:"-" json:"messageCount"`
}
