package chat

import "time"

// Message roles as stored and as sent to the completion API.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn in a session. Rows are append-only.
type Message struct {
	ID        uint     `gorm:"primaryKey" json:"id"`
	SessionID uint     `gorm:"not null;index" json:"sessionId"`
	Session   *Session `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Role      string   `gorm:"size:20;not null" json:"role"`
	Content   string   `gorm:"type:text;not null" json:"content"`
	VoiceUsed string   `gorm:"size:50" json:"voiceUsed,omitempty"`
	// ResponseMS records upstream latency for assistant turns.
	ResponseMS int64     `json:"responseMs,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}
