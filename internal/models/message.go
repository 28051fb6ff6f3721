package models

import (
	"time"

	"github.com/portfolio-dashboard/internal/types"
)

// ConversationMessage is one turn of the assistant conversation.
// The role travels as "type" on the wire.
type ConversationMessage struct {
	ID        string     `json:"id"`
	Role      types.Role `json:"type"`
	Content   string     `json:"content"`
	Timestamp time.Time  `json:"timestamp"`
}
