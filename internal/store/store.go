// Package store records relayed chat payloads for later retrieval.
//
// The relay only ever appends, through a Writer, and never waits for the
// result. The history API reads it back.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/config"
)

// ErrUnknownDriver is returned by Open for an unrecognised STORE_DRIVER.
var ErrUnknownDriver = errors.New("store: unknown driver")

// Message is one recorded payload.
type Message struct {
	SessionID string          `json:"sessionId"`
	Sender    string          `json:"sender"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Sink is a durable (or not) home for relayed messages.
type Sink interface {
	// Append records m.
	Append(ctx context.Context, m Message) error

	// History returns up to limit messages for sessionID, oldest first.
	// limit <= 0 means the sink's own cap.
	History(ctx context.Context, sessionID string, limit int) ([]Message, error)

	// Sessions lists session ids that have history.
	Sessions(ctx context.Context) ([]string, error)

	Close() error
}

// Open builds the sink selected by cfg.Driver.
func Open(ctx context.Context, cfg config.Store, log *slog.Logger) (Sink, error) {
	switch cfg.Driver {
	case "", config.DriverMemory:
		return NewMemory(cfg.HistoryLimit, cfg.MemoryTTL), nil

	case config.DriverPostgres:
		pg, err := NewPostgres(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		if err := RunMigrations(ctx, pg, log); err != nil {
			pg.Close()
			return nil, err
		}
		return pg, nil

	case config.DriverRedis:
		return NewRedis(ctx, cfg, log)

	case config.DriverNone:
		return Nop{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
}

// Nop discards everything.
type Nop struct{}

func (Nop) Append(context.Context, Message) error { return nil }

func (Nop) History(context.Context, string, int) ([]Message, error) { return nil, nil }

func (Nop) Sessions(context.Context) ([]string, error) { return nil, nil }

func (Nop) Close() error { return nil }
