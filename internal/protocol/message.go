// Package protocol defines the JSON frames exchanged over the /ws endpoint.
//
// Inbound frames are decoded once, at the gateway boundary, into a closed set
// of variants. Outbound events are typed values that know their own wire tag.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Inbound message types (client to server).
const (
	TypeJoinRoom     = "join_room"
	TypeLeaveRoom    = "leave_room"
	TypeChatMessage  = "chat_message"
	TypeVideoOffer   = "video_offer"
	TypeVideoAnswer  = "video_answer"
	TypeICECandidate = "ice_candidate"
	TypeJoinRandom   = "join_random"
	TypeCancelWait   = "cancel_wait"
	TypeUserReport   = "user_report"
	TypeEndSession   = "end_session"
)

// Outbound message types (server to client).
const (
	TypeRoomJoined          = "room_joined"
	TypeUserJoined          = "user_joined"
	TypeUserLeft            = "user_left"
	TypeWaitingForPair      = "waiting_for_pair"
	TypeRandomPaired        = "random_paired"
	TypePartnerDisconnected = "partner_disconnected"
	TypeSessionEnded        = "session_ended"
)

// Reasons carried by session_ended.
const (
	ReasonReported  = "reported"
	ReasonUserEnded = "user_ended"
)

// ErrMalformed is returned by Decode for frames that are not a JSON object
// with a string "type" field, or whose fields do not fit the declared type.
var ErrMalformed = errors.New("malformed frame")

// Inbound is one decoded client frame. The set of implementations is closed:
// JoinRoom, LeaveRoom, Relay, JoinRandom, CancelWait, UserReport, EndSession
// and Unknown.
type Inbound interface {
	Type() string
	inbound()
}

// JoinRoom asks to enter an explicit (multi-party) room.
type JoinRoom struct {
	RoomID   string `json:"roomId"`
	Username string `json:"username"`
}

// LeaveRoom leaves the current room, if any.
type LeaveRoom struct{}

// Relay is a payload forwarded verbatim to the other members of the room:
// chat messages and call-setup signals alike.
type Relay struct {
	Kind string
	Raw  json.RawMessage
}

// JoinRandom asks the matchmaker for an anonymous partner.
type JoinRandom struct {
	Username string `json:"username"`
}

// CancelWait withdraws a pending pairing request.
type CancelWait struct{}

// UserReport ends the reporter's current room for everyone in it.
type UserReport struct {
	Raw json.RawMessage
}

// EndSession ends the sender's current room for everyone in it.
type EndSession struct {
	SessionID string `json:"sessionId,omitempty"`
}

// Unknown is a well-formed frame whose type this server does not recognise.
type Unknown struct {
	Kind string
}

func (JoinRoom) Type() string   { return TypeJoinRoom }
func (LeaveRoom) Type() string  { return TypeLeaveRoom }
func (r Relay) Type() string    { return r.Kind }
func (JoinRandom) Type() string { return TypeJoinRandom }
func (CancelWait) Type() string { return TypeCancelWait }
func (UserReport) Type() string { return TypeUserReport }
func (EndSession) Type() string { return TypeEndSession }
func (u Unknown) Type() string  { return u.Kind }

func (JoinRoom) inbound()   {}
func (LeaveRoom) inbound()  {}
func (Relay) inbound()      {}
func (JoinRandom) inbound() {}
func (CancelWait) inbound() {}
func (UserReport) inbound() {}
func (EndSession) inbound() {}
func (Unknown) inbound()    {}

// IsRelayed reports whether frames of type t are forwarded verbatim.
// Adding a new pass-through type only needs an entry here.
func IsRelayed(t string) bool {
	switch t {
	case TypeChatMessage, TypeVideoOffer, TypeVideoAnswer, TypeICECandidate:
		return true
	}
	return false
}

// Decode parses one frame into its variant.
func Decode(data []byte) (Inbound, error) {
	var head struct {
		Type *string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if head.Type == nil || *head.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	}

	kind := *head.Type
	switch {
	case kind == TypeJoinRoom:
		return decodeInto[JoinRoom](data)
	case kind == TypeLeaveRoom:
		return LeaveRoom{}, nil
	case IsRelayed(kind):
		raw := make(json.RawMessage, len(data))
		copy(raw, data)
		return Relay{Kind: kind, Raw: raw}, nil
	case kind == TypeJoinRandom:
		return decodeInto[JoinRandom](data)
	case kind == TypeCancelWait:
		return CancelWait{}, nil
	case kind == TypeUserReport:
		raw := make(json.RawMessage, len(data))
		copy(raw, data)
		return UserReport{Raw: raw}, nil
	case kind == TypeEndSession:
		return decodeInto[EndSession](data)
	default:
		return Unknown{Kind: kind}, nil
	}
}

func decodeInto[T Inbound](data []byte) (Inbound, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return v, nil
}
