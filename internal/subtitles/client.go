package subtitles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"plenum/internal/api"
	"plenum/internal/logging"
	"plenum/internal/reconnect"
)

// Options tunes a subtitle stream client. The zero value uses defaults.
type Options struct {
	// BufferSize is the rolling window of finalized subtitles.
	BufferSize int
	// ReconnectDelay is the fixed delay before re-dialing a closed stream.
	ReconnectDelay time.Duration
	// OnUpdate, when set, is invoked after every state change (new
	// subtitle, interim text, connect, disconnect) for render loops.
	OnUpdate func()
	// Logger receives debug-level stream diagnostics.
	Logger *slog.Logger
}

// Client consumes the live subtitle stream of a single meeting.
//
// All exported accessors are safe for concurrent use. Every mutation path
// first checks the run context: once Stop has cancelled it, in-flight
// messages and late network callbacks cannot alter observable state.
type Client struct {
	url        string
	meetingID  int64
	dialer     *websocket.Dialer
	supervisor *reconnect.Supervisor
	onUpdate   func()
	logger     *slog.Logger

	mu        sync.Mutex
	buffer    *Buffer
	connected bool
	conn      *websocket.Conn
	running   bool
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewClient builds a client for one meeting against the ws base URL from
// config, e.g. "ws://127.0.0.1:8000".
func NewClient(wsBase string, meetingID int64, opts Options) (*Client, error) {
	wsBase = strings.TrimRight(strings.TrimSpace(wsBase), "/")
	if wsBase == "" {
		return nil, errors.New("subtitles: ws base URL required")
	}

	delay := opts.ReconnectDelay
	if delay <= 0 {
		delay = 5 * time.Second
	}

	logger := logging.NewComponentLogger(opts.Logger, "subtitle-stream").With(
		logging.Int64(logging.FieldMeetingID, meetingID),
	)

	client := &Client{
		url:       fmt.Sprintf("%s/ws/meetings/%d/subtitles?client_id=%s", wsBase, meetingID, uuid.NewString()),
		meetingID: meetingID,
		dialer:    &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		onUpdate:  opts.OnUpdate,
		logger:    logger,
		buffer:    NewBuffer(opts.BufferSize),
	}
	client.supervisor = reconnect.New(delay, client.dial, logger)
	return client, nil
}

// Start opens the stream. The dial happens asynchronously; use Connected to
// observe the result.
func (c *Client) Start(ctx context.Context) error {
	if c == nil {
		return errors.New("subtitle client unavailable")
	}
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return errors.New("subtitle client already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.ctx = runCtx
	c.cancel = cancel
	c.running = true
	c.mu.Unlock()

	go c.dial()
	return nil
}

// Stop tears the stream down: terminal supervisor state, cancelled context,
// closed socket. No state mutation is possible afterwards.
func (c *Client) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	cancel := c.cancel
	conn := c.conn
	c.conn = nil
	c.connected = false
	c.mu.Unlock()

	c.supervisor.Stop()
	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close()
	}
	c.wg.Wait()
}

// Reconnect manually re-dials a closed stream, skipping the retry delay.
// It reports false when the stream is not in a reconnectable state.
func (c *Client) Reconnect() bool {
	return c.supervisor.Reconnect()
}

// Connected reports whether the stream is currently established.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Subtitles returns the buffered finalized subtitles, most recent first.
func (c *Client) Subtitles() []api.Subtitle {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buffer.Display()
}

// Interim returns the current interim recognition text, empty when none.
func (c *Client) Interim() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buffer.Interim()
}

// State returns the supervisor's lifecycle state for diagnostics output.
func (c *Client) State() reconnect.State {
	return c.supervisor.State()
}

func (c *Client) dial() {
	if !c.supervisor.BeginConnect() {
		return
	}
	ctx := c.runContext()
	if ctx == nil || ctx.Err() != nil {
		return
	}

	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		if ctx.Err() == nil {
			c.logger.Debug("subtitle stream dial failed", logging.Error(err))
		}
		// MarkClosed schedules the next attempt.
		c.supervisor.MarkClosed()
		return
	}

	c.mu.Lock()
	if !c.running || ctx.Err() != nil {
		c.mu.Unlock()
		_ = conn.Close()
		return
	}
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	c.supervisor.MarkOpen()
	c.logger.Debug("subtitle stream connected")
	c.notifyUpdate()

	c.wg.Add(1)
	go c.readLoop(ctx, conn)
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer c.wg.Done()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.handleDisconnect(ctx, conn, err)
			return
		}
		c.handleMessage(ctx, data)
	}
}

func (c *Client) handleDisconnect(ctx context.Context, conn *websocket.Conn, err error) {
	_ = conn.Close()

	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
		c.connected = false
	}
	c.mu.Unlock()

	if ctx.Err() != nil {
		return
	}
	c.logger.Debug("subtitle stream disconnected", logging.Error(err))
	c.supervisor.MarkClosed()
	c.notifyUpdate()
}

func (c *Client) handleMessage(ctx context.Context, data []byte) {
	var envelope api.SubtitleEvent
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.logger.Debug("dropping malformed subtitle event", logging.Error(err))
		return
	}

	switch envelope.Type {
	case api.SubtitleEventHistory:
		var payload api.SubtitleHistoryPayload
		if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
			c.logger.Debug("dropping malformed history payload", logging.Error(err))
			return
		}
		c.mutate(ctx, func(buffer *Buffer) {
			buffer.ReplaceHistory(payload.Subtitles)
		})
	case api.SubtitleEventCreated:
		var payload api.Subtitle
		if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
			c.logger.Debug("dropping malformed subtitle payload", logging.Error(err))
			return
		}
		c.mutate(ctx, func(buffer *Buffer) {
			buffer.Append(payload)
		})
	case api.SubtitleEventInterim:
		var payload api.SubtitleInterimPayload
		if err := json.Unmarshal(envelope.Payload, &payload); err != nil {
			c.logger.Debug("dropping malformed interim payload", logging.Error(err))
			return
		}
		c.mutate(ctx, func(buffer *Buffer) {
			buffer.SetInterim(payload.Text)
		})
	default:
		c.logger.Debug("ignoring unknown subtitle event",
			logging.String("type", envelope.Type),
		)
	}
}

// mutate applies fn to the buffer only while the client is live. The
// context check inside the lock is the teardown guard: a message already
// in flight when Stop ran must not alter observable state.
func (c *Client) mutate(ctx context.Context, fn func(*Buffer)) {
	c.mu.Lock()
	if !c.running || ctx.Err() != nil {
		c.mu.Unlock()
		return
	}
	fn(c.buffer)
	c.mu.Unlock()

	c.notifyUpdate()
}

func (c *Client) notifyUpdate() {
	if c.onUpdate != nil {
		c.onUpdate()
	}
}

func (c *Client) runContext() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ctx
}
