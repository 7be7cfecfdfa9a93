package protocol

import (
	"encoding/json"
	"time"
)

// Now stamps outbound events. Tests replace it for stable output.
var Now = func() time.Time { return time.Now().UTC() }

// Outbound is an event the server sends to a connection.
type Outbound interface {
	Type() string
	json.Marshaler
}

// RoomJoined confirms a join to the joiner.
type RoomJoined struct {
	RoomID      string `json:"roomId"`
	MemberCount int    `json:"memberCount"`
}

// UserJoined tells existing members that someone entered.
type UserJoined struct {
	Username    string `json:"username"`
	MemberCount int    `json:"memberCount"`
}

// UserLeft tells remaining members that someone left.
type UserLeft struct {
	MemberCount int `json:"memberCount"`
}

// WaitingForPair tells a requester it was queued.
type WaitingForPair struct{}

// RandomPaired tells both participants of a new pair where to talk.
type RandomPaired struct {
	RoomID          string `json:"roomId"`
	PartnerUsername string `json:"partnerUsername"`
}

// PartnerDisconnected goes to the last member of a paired room.
type PartnerDisconnected struct{}

// SessionEnded goes to every member of a room that was ended.
type SessionEnded struct {
	Reason string `json:"reason"`
}

// Forward carries a relayed frame. It is written out byte for byte.
type Forward struct {
	Kind string
	Raw  json.RawMessage
}

func (RoomJoined) Type() string          { return TypeRoomJoined }
func (UserJoined) Type() string          { return TypeUserJoined }
func (UserLeft) Type() string            { return TypeUserLeft }
func (WaitingForPair) Type() string      { return TypeWaitingForPair }
func (RandomPaired) Type() string        { return TypeRandomPaired }
func (PartnerDisconnected) Type() string { return TypePartnerDisconnected }
func (SessionEnded) Type() string        { return TypeSessionEnded }
func (f Forward) Type() string           { return f.Kind }

func (e RoomJoined) MarshalJSON() ([]byte, error) {
	type alias RoomJoined
	return json.Marshal(struct {
		header
		alias
	}{stamp(TypeRoomJoined), alias(e)})
}

func (e UserJoined) MarshalJSON() ([]byte, error) {
	type alias UserJoined
	return json.Marshal(struct {
		header
		alias
	}{stamp(TypeUserJoined), alias(e)})
}

func (e UserLeft) MarshalJSON() ([]byte, error) {
	type alias UserLeft
	return json.Marshal(struct {
		header
		alias
	}{stamp(TypeUserLeft), alias(e)})
}

func (WaitingForPair) MarshalJSON() ([]byte, error) {
	return json.Marshal(stamp(TypeWaitingForPair))
}

func (e RandomPaired) MarshalJSON() ([]byte, error) {
	type alias RandomPaired
	return json.Marshal(struct {
		header
		alias
	}{stamp(TypeRandomPaired), alias(e)})
}

func (PartnerDisconnected) MarshalJSON() ([]byte, error) {
	return json.Marshal(stamp(TypePartnerDisconnected))
}

func (e SessionEnded) MarshalJSON() ([]byte, error) {
	type alias SessionEnded
	return json.Marshal(struct {
		header
		alias
	}{stamp(TypeSessionEnded), alias(e)})
}

func (f Forward) MarshalJSON() ([]byte, error) {
	if len(f.Raw) == 0 {
		return []byte("null"), nil
	}
	return f.Raw, nil
}

type header struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
}

func stamp(t string) header {
	return header{Type: t, Timestamp: Now().Format(time.RFC3339)}
}

// Encode serialises an outbound event into one frame.
func Encode(ev Outbound) ([]byte, error) {
	if f, ok := ev.(Forward); ok {
		return f.Raw, nil
	}
	return json.Marshal(ev)
}

// Event is the client-side view of any server frame. Fields that a given
// type does not use stay zero; Raw keeps the full frame.
type Event struct {
	Type            string `json:"type"`
	RoomID          string `json:"roomId,omitempty"`
	Username        string `json:"username,omitempty"`
	PartnerUsername string `json:"partnerUsername,omitempty"`
	MemberCount     int    `json:"memberCount,omitempty"`
	Reason          string `json:"reason,omitempty"`
	Timestamp       string `json:"timestamp,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// DecodeEvent parses a server frame on the client side.
func DecodeEvent(data []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	ev.Raw = append(json.RawMessage(nil), data...)
	return &ev, nil
}
