package syncx

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/jackc/pgx/v5"
)

// feedChannel is the NOTIFY channel fed by the sync_entities trigger
// (see db/migrations).
const feedChannel = "sync_entity_changes"

// PgFeed implements Feed over Postgres LISTEN/NOTIFY. Each subscription holds
// a dedicated connection, since a listening connection cannot be shared with
// query traffic.
type PgFeed struct {
	connString string
	log        logging.Logger
}

func NewPgFeed(connString string, log logging.Logger) *PgFeed {
	return &PgFeed{connString: connString, log: log}
}

// Subscribe opens a listening connection scoped to userID and dispatches
// decoded events to fn until the returned unsubscribe function is called or
// ctx is cancelled. Events for other users are filtered out client-side.
func (f *PgFeed) Subscribe(ctx context.Context, userID string, fn func(FeedEvent)) (func(), error) {
	conn, err := pgx.Connect(ctx, f.connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect listener: %w", err)
	}

	if _, err := conn.Exec(ctx, "listen "+feedChannel); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("failed to listen on %s: %w", feedChannel, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			n, err := conn.WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() == nil {
					f.log.Warn(ctx, "change feed interrupted", "err", err)
				}
				return
			}
			event, err := decodeNotification(n.Payload)
			if err != nil {
				f.log.Warn(ctx, "dropping undecodable feed notification", "err", err)
				continue
			}
			if event.Row.UserID != userID {
				continue
			}
			fn(*event)
		}
	}()

	unsubscribe := func() {
		cancel()
		<-done
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		_ = conn.Close(closeCtx)
	}
	return unsubscribe, nil
}

// notifyRow mirrors the json_build_object emitted by the trigger; binary
// columns arrive hex-encoded to survive the text NOTIFY payload.
type notifyRow struct {
	EntityID   string    `json:"entity_id"`
	UserID     string    `json:"user_id"`
	EntityType string    `json:"entity_type"`
	Ciphertext string    `json:"ciphertext"`
	Nonce      string    `json:"nonce"`
	AuthTag    string    `json:"auth_tag"`
	Version    int64     `json:"version"`
	Deleted    bool      `json:"is_deleted"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type notifyPayload struct {
	Op  string    `json:"op"`
	Row notifyRow `json:"row"`
}

func decodeNotification(payload string) (*FeedEvent, error) {
	var p notifyPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return nil, fmt.Errorf("malformed notification payload: %w", err)
	}

	var eventType FeedEventType
	switch p.Op {
	case string(FeedInsert), string(FeedUpdate), string(FeedDelete):
		eventType = FeedEventType(p.Op)
	default:
		return nil, fmt.Errorf("unknown feed op: %q", p.Op)
	}

	ciphertext, err := hex.DecodeString(p.Row.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("bad ciphertext encoding: %w", err)
	}
	nonce, err := hex.DecodeString(p.Row.Nonce)
	if err != nil {
		return nil, fmt.Errorf("bad nonce encoding: %w", err)
	}
	authTag, err := hex.DecodeString(p.Row.AuthTag)
	if err != nil {
		return nil, fmt.Errorf("bad auth tag encoding: %w", err)
	}

	return &FeedEvent{
		Type: eventType,
		Row: &EntityRow{
			EntityID:   p.Row.EntityID,
			UserID:     p.Row.UserID,
			EntityType: p.Row.EntityType,
			Ciphertext: ciphertext,
			Nonce:      nonce,
			AuthTag:    authTag,
			Version:    p.Row.Version,
			Deleted:    p.Row.Deleted,
			UpdatedAt:  p.Row.UpdatedAt,
		},
	}, nil
}
