package protocol

import (
	"encoding/json"
	"time"
)

// The server never looks inside relayed frames. The shapes below are the
// conventions the Nocturne clients agree on between themselves.

// ChatBody is the "message" object of a chat_message frame.
type ChatBody struct {
	Content   string `json:"content"`
	Sender    string `json:"sender"`
	Timestamp string `json:"timestamp"`
}

// ChatFrame is a chat_message as sent by clients.
type ChatFrame struct {
	Type    string   `json:"type"`
	RoomID  string   `json:"roomId,omitempty"`
	Message ChatBody `json:"message"`
}

// NewChatFrame builds a chat_message frame stamped with the current time.
func NewChatFrame(roomID, sender, content string) ChatFrame {
	return ChatFrame{
		Type:   TypeChatMessage,
		RoomID: roomID,
		Message: ChatBody{
			Content:   content,
			Sender:    sender,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}
}

// SignalFrame carries call-setup data: an SDP description for
// video_offer/video_answer, or a candidate for ice_candidate.
type SignalFrame struct {
	Type      string          `json:"type"`
	SDP       json.RawMessage `json:"sdp,omitempty"`
	Candidate json.RawMessage `json:"candidate,omitempty"`
}

// Request is a generic client frame used for the control messages.
type Request struct {
	Type      string `json:"type"`
	RoomID    string `json:"roomId,omitempty"`
	Username  string `json:"username,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Reason    string `json:"reason,omitempty"`
}
