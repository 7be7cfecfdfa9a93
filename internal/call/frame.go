package call

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Frame kinds carried over the data channel.
const (
	KindChat = "chat"
	KindBye  = "bye"
)

// Frame is one data-channel message.
type Frame struct {
	Kind   string `msgpack:"k"`
	From   string `msgpack:"f,omitempty"`
	Text   string `msgpack:"t,omitempty"`
	SentAt int64  `msgpack:"s"`
}

// Time returns SentAt as a time.
func (f Frame) Time() time.Time { return time.UnixMilli(f.SentAt) }

// EncodeFrame packs f.
func EncodeFrame(f Frame) ([]byte, error) {
	return msgpack.Marshal(&f)
}

// DecodeFrame unpacks a frame and rejects ones without a kind.
func DecodeFrame(data []byte) (Frame, error) {
	var f Frame
	if err := msgpack.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	if f.Kind == "" {
		return Frame{}, fmt.Errorf("decode frame: missing kind")
	}
	return f, nil
}
