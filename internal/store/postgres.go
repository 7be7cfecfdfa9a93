package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/config"
)

// Postgres stores messages in the relay_messages table.
type Postgres struct {
	pool  *pgxpool.Pool
	log   *slog.Logger
	limit int
}

// NewPostgres connects to postgres and returns a pool wrapper
func NewPostgres(ctx context.Context, cfg config.Store, log *slog.Logger) (*Postgres, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.PGURL)
	if err != nil {
		return nil, fmt.Errorf("postgres config: %w", err)
	}
	if cfg.PGMaxConn > 0 {
		pcfg.MaxConns = int32(cfg.PGMaxConn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return &Postgres{pool: pool, log: log, limit: cfg.HistoryLimit}, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// Append inserts one message. The payload is stored as jsonb.
func (p *Postgres) Append(ctx context.Context, m Message) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO relay_messages (session_id, sender, payload, created_at)
		VALUES ($1, $2, $3::jsonb, $4)
	`, m.SessionID, m.Sender, string(m.Payload), m.CreatedAt)
	return err
}

// History returns the newest limit messages of a session, oldest first.
func (p *Postgres) History(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	if limit <= 0 || (p.limit > 0 && limit > p.limit) {
		limit = p.limit
	}
	rows, err := p.pool.Query(ctx, `
		SELECT session_id, sender, payload::text, created_at
		FROM (
			SELECT id, session_id, sender, payload, created_at
			FROM relay_messages
			WHERE session_id = $1
			ORDER BY id DESC
			LIMIT $2
		) recent
		ORDER BY id ASC
	`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var (
			m       Message
			payload string
		)
		if err := rows.Scan(&m.SessionID, &m.Sender, &payload, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Payload = []byte(payload)
		out = append(out, m)
	}
	return out, rows.Err()
}

// Sessions lists sessions, most recently active first.
func (p *Postgres) Sessions(ctx context.Context) ([]string, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT session_id
		FROM relay_messages
		GROUP BY session_id
		ORDER BY MAX(id) DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
