// ABOUTME: Matrix bridge core for ledger-matrix
// ABOUTME: Filters inbound room messages and answers them through the conversation handler

package main

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"github.com/2389/state-ledger/internal/config"
	"github.com/2389/state-ledger/internal/conversation"
	"github.com/2389/state-ledger/internal/dedupe"
	"github.com/2389/state-ledger/internal/metrics"
)

// Reasons an inbound event is dropped, used as metric labels.
const (
	dropOwn       = "own"
	dropNotText   = "not_text"
	dropEdit      = "edit"
	dropStale     = "stale"
	dropRoom      = "room"
	dropUser      = "user"
	dropPrefix    = "prefix"
	dropEmpty     = "empty"
	dropDuplicate = "duplicate"
)

// matrixSender is the part of the Matrix client the bridge sends through.
type matrixSender interface {
	SendMessageEvent(ctx context.Context, roomID id.RoomID, eventType event.Type, contentJSON any, extra ...mautrix.ReqSendEvent) (*mautrix.RespSendEvent, error)
	UserTyping(ctx context.Context, roomID id.RoomID, typing bool, timeout time.Duration) (*mautrix.RespTyping, error)
}

// Bridge connects Matrix rooms to the conversation handler.
type Bridge struct {
	config   config.MatrixConfig
	matrix   *mautrix.Client
	sender   matrixSender
	handler  *conversation.Handler
	seen     *dedupe.Window
	recorder metrics.Recorder
	logger   *slog.Logger

	// started filters out timeline history delivered by the first sync;
	// replaying it would repeat withdrawals.
	started time.Time

	// mu keeps message handling strictly one at a time.
	mu sync.Mutex
}

// NewBridge creates a new Matrix bridge.
func NewBridge(cfg config.MatrixConfig, handler *conversation.Handler, seen *dedupe.Window, recorder metrics.Recorder, logger *slog.Logger) (*Bridge, error) {
	client, err := mautrix.NewClient(cfg.Homeserver, id.UserID(cfg.UserID), cfg.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("creating matrix client: %w", err)
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}

	return &Bridge{
		config:   cfg,
		matrix:   client,
		sender:   client,
		handler:  handler,
		seen:     seen,
		recorder: recorder,
		logger:   logger.With("component", "bridge"),
		started:  time.Now(),
	}, nil
}

// Run starts syncing and blocks until ctx is cancelled.
func (b *Bridge) Run(ctx context.Context) error {
	b.logger.Info("starting matrix bridge",
		"homeserver", b.config.Homeserver,
		"user_id", b.config.UserID,
	)

	syncer, ok := b.matrix.Syncer.(*mautrix.DefaultSyncer)
	if !ok {
		return fmt.Errorf("unexpected syncer type: %T", b.matrix.Syncer)
	}
	syncer.OnEventType(event.EventMessage, b.handleMessageEvent)

	b.started = time.Now()

	syncCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	syncErr := make(chan error, 1)
	go func() {
		syncErr <- b.matrix.SyncWithContext(syncCtx)
	}()

	b.logger.Info("matrix bridge running")

	select {
	case <-ctx.Done():
		b.logger.Info("shutting down matrix bridge")
		cancel()
		return nil
	case err := <-syncErr:
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("matrix sync failed: %w", err)
	}
}

// handleMessageEvent runs on the sync goroutine, so messages are handled in
// arrival order and the next sync waits for the current reply.
func (b *Bridge) handleMessageEvent(ctx context.Context, evt *event.Event) {
	body, reason := b.accept(evt)
	if reason != "" {
		b.recorder.IncDroppedEvent(reason)
		b.logger.Debug("ignoring event", "event_id", evt.ID.String(), "reason", reason)
		return
	}

	b.logger.Info("received message",
		"room", evt.RoomID.String(),
		"sender", evt.Sender.String(),
		"content", truncate(body, 50),
	)

	b.processMessage(ctx, evt.RoomID, body)
}

// accept returns the command text of evt, or the reason it should be ignored.
func (b *Bridge) accept(evt *event.Event) (string, string) {
	if evt.Sender == id.UserID(b.config.UserID) {
		return "", dropOwn
	}

	content, ok := evt.Content.Parsed.(*event.MessageEventContent)
	if !ok || content.MsgType != event.MsgText {
		return "", dropNotText
	}
	if content.RelatesTo != nil && content.RelatesTo.Type == event.RelReplace {
		return "", dropEdit
	}

	if time.UnixMilli(evt.Timestamp).Before(b.started) {
		return "", dropStale
	}

	if !isAllowed(b.config.AllowedRooms, evt.RoomID.String()) {
		return "", dropRoom
	}
	if !isAllowed(b.config.AllowedUsers, evt.Sender.String()) {
		return "", dropUser
	}

	body := content.Body
	if prefix := b.config.CommandPrefix; prefix != "" {
		if !strings.HasPrefix(body, prefix) {
			return "", dropPrefix
		}
		body = strings.TrimPrefix(body, prefix)
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return "", dropEmpty
	}

	if b.seen != nil && b.seen.Seen(evt.ID.String()) {
		return "", dropDuplicate
	}

	return body, ""
}

// processMessage runs the handler and sends its reply. Storage failures are
// logged and answered with the catalog's failure line.
func (b *Bridge) processMessage(ctx context.Context, roomID id.RoomID, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.config.TypingIndicator {
		b.setTyping(roomID, true)
		defer b.setTyping(roomID, false)
	}

	reply, err := b.handler.Handle(ctx, text)
	if err != nil {
		b.logger.Error("handling message failed", "room", roomID.String(), "error", err)
		reply = b.handler.FailureReply()
	}

	b.sendReply(roomID, reply)
}

// isAllowed reports whether value is in list. An empty list allows everything.
func isAllowed(list []string, value string) bool {
	return len(list) == 0 || slices.Contains(list, value)
}

// typingTimeout is the duration the typing indicator shows (30 seconds).
const typingTimeout = 30 * time.Second

// networkTimeout is the timeout for Matrix API calls.
const networkTimeout = 10 * time.Second

// setTyping sends typing indicator to room.
func (b *Bridge) setTyping(roomID id.RoomID, typing bool) {
	var timeout time.Duration
	if typing {
		timeout = typingTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), networkTimeout)
	defer cancel()
	if _, err := b.sender.UserTyping(ctx, roomID, typing, timeout); err != nil {
		b.logger.Debug("failed to set typing indicator", "room", roomID.String(), "error", err)
	}
}

// sendReply renders and sends a reply to a room.
func (b *Bridge) sendReply(roomID id.RoomID, reply conversation.Reply) {
	ctx, cancel := context.WithTimeout(context.Background(), networkTimeout)
	defer cancel()
	if _, err := b.sender.SendMessageEvent(ctx, roomID, event.EventMessage, renderReply(reply)); err != nil {
		b.logger.Error("failed to send message", "room", roomID.String(), "error", err)
	}
}

// truncate shortens a string to the given max rune count, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
