package models

import (
	"time"
)

// ChatMessage is one turn of the help chat widget.
type ChatMessage struct {
	ID        uint      `json:"id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"` // "user", "assistant", "system"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	UserID   string   `json:"user_id" binding:"required"`
	Message  string   `json:"message" binding:"required"`
	Language Language `json:"language"`
	ResultID uint     `json:"result_id,omitempty"` // Optional result to discuss
}
