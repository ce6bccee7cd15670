package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bnema/coachsync/internal/ports"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait                = 10 * time.Second
	defaultHeartbeatInterval = 25 * time.Second
	defaultJoinTimeout       = 10 * time.Second
	maxFrameSize             = 1 << 20
	sendBuffer               = 256
)

var ErrClosed = errors.New("realtime socket closed")

type Config struct {
	// URL is the realtime websocket endpoint, e.g.
	// wss://project.supabase.co/realtime/v1/websocket.
	URL    string
	APIKey string
	// AccessToken supplies the user token sent with every join.
	AccessToken       func() string
	HeartbeatInterval time.Duration
	JoinTimeout       time.Duration
	Dialer            *websocket.Dialer
	Logger            *zap.Logger
}

// Client multiplexes realtime channels over one websocket. The socket is
// dialed on first subscribe and redialed after it drops.
type Client struct {
	cfg    Config
	logger *zap.Logger
	ref    atomic.Uint64

	mu       sync.Mutex
	conn     *connection
	channels map[string]*channel
}

var _ ports.RealtimeTransport = (*Client)(nil)

type connection struct {
	ws   *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *connection) stop() {
	c.once.Do(func() { close(c.done) })
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("realtime url is required")
	}
	parsed, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse realtime url: %w", err)
	}
	if parsed.Scheme != "ws" && parsed.Scheme != "wss" {
		return nil, errors.New("realtime url must use ws or wss")
	}

	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = defaultHeartbeatInterval
	}
	if cfg.JoinTimeout <= 0 {
		cfg.JoinTimeout = defaultJoinTimeout
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{cfg: cfg, logger: logger, channels: map[string]*channel{}}, nil
}

func (c *Client) Subscribe(ctx context.Context, spec ports.ChannelSpec) (ports.RealtimeChannel, error) {
	if spec.Topic == "" {
		return nil, errors.New("channel topic is required")
	}

	conn, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}

	topic := topicPrefix + spec.Topic
	ch := newChannel(c, conn, spec.Topic, topic, c.nextRef())

	c.mu.Lock()
	if previous, ok := c.channels[topic]; ok {
		c.mu.Unlock()
		previous.terminate()
		c.mu.Lock()
	}
	c.channels[topic] = ch
	c.mu.Unlock()

	var token string
	if c.cfg.AccessToken != nil {
		token = c.cfg.AccessToken()
	}
	payload, err := json.Marshal(newJoinPayload(spec, token))
	if err != nil {
		c.forget(ch)
		return nil, fmt.Errorf("encode join payload: %w", err)
	}

	ch.armJoinTimeout(c.cfg.JoinTimeout)
	if err := c.write(ctx, conn, frame{Topic: topic, Event: eventJoin, Payload: payload, Ref: ch.joinRef, JoinRef: ch.joinRef}); err != nil {
		c.forget(ch)
		ch.terminate()
		return nil, fmt.Errorf("join %s: %w", spec.Topic, err)
	}

	return ch, nil
}

// Close leaves every channel and closes the socket.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	channels := make([]*channel, 0, len(c.channels))
	for _, ch := range c.channels {
		channels = append(channels, ch)
	}
	c.channels = map[string]*channel{}
	c.conn = nil
	c.mu.Unlock()

	for _, ch := range channels {
		ch.terminate()
	}
	if conn != nil {
		conn.stop()
		return conn.ws.Close()
	}
	return nil
}

func (c *Client) connect(ctx context.Context) (*connection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		select {
		case <-c.conn.done:
		default:
			return c.conn, nil
		}
	}

	endpoint, err := url.Parse(c.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse realtime url: %w", err)
	}
	query := endpoint.Query()
	if c.cfg.APIKey != "" {
		query.Set("apikey", c.cfg.APIKey)
	}
	query.Set("vsn", "1.0.0")
	endpoint.RawQuery = query.Encode()

	header := http.Header{}
	if c.cfg.APIKey != "" {
		header.Set("apikey", c.cfg.APIKey)
	}

	wsConn, resp, err := c.cfg.Dialer.DialContext(ctx, endpoint.String(), header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dial realtime: %w", err)
	}

	conn := &connection{ws: wsConn, send: make(chan []byte, sendBuffer), done: make(chan struct{})}
	c.conn = conn
	go c.writeLoop(conn)
	go c.readLoop(conn)

	c.logger.Debug("realtime socket connected", zap.String("url", c.cfg.URL))
	return conn, nil
}

func (c *Client) nextRef() string {
	return strconv.FormatUint(c.ref.Add(1), 10)
}

func (c *Client) write(ctx context.Context, conn *connection, msg frame) error {
	if msg.Ref == "" {
		msg.Ref = c.nextRef()
	}
	if msg.Payload == nil {
		msg.Payload = json.RawMessage("{}")
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}

	select {
	case conn.send <- data:
		return nil
	case <-conn.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) writeLoop(conn *connection) {
	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer func() {
		ticker.Stop()
		_ = conn.ws.Close()
	}()

	for {
		select {
		case data := <-conn.send:
			if !c.sendMessage(conn, websocket.TextMessage, data) {
				conn.stop()
				return
			}
		case <-ticker.C:
			heartbeat, _ := json.Marshal(frame{Topic: phoenixTopic, Event: eventHeartbeat, Payload: json.RawMessage("{}"), Ref: c.nextRef()})
			if !c.sendMessage(conn, websocket.TextMessage, heartbeat) {
				conn.stop()
				return
			}
		case <-conn.done:
			_ = conn.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *Client) sendMessage(conn *connection, msgType int, data []byte) bool {
	_ = conn.ws.SetWriteDeadline(time.Now().Add(writeWait))

	if err := conn.ws.WriteMessage(msgType, data); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.logger.Warn("realtime write failed", zap.Error(err))
		}
		return false
	}

	return true
}

func (c *Client) readLoop(conn *connection) {
	var readErr error
	defer func() {
		conn.stop()
		c.dropConnection(conn, readErr)
	}()

	conn.ws.SetReadLimit(maxFrameSize)
	for {
		_, raw, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.logger.Warn("realtime read failed", zap.Error(err))
			}
			readErr = err
			return
		}

		var msg frame
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.logger.Debug("ignore malformed realtime frame", zap.Error(err))
			continue
		}
		if msg.Topic == phoenixTopic {
			continue
		}

		c.mu.Lock()
		ch := c.channels[msg.Topic]
		c.mu.Unlock()
		if ch == nil {
			continue
		}
		ch.dispatch(msg)
	}
}

// dropConnection fails every channel that was riding on conn.
func (c *Client) dropConnection(conn *connection, cause error) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	var affected []*channel
	for topic, ch := range c.channels {
		if ch.conn == conn {
			affected = append(affected, ch)
			delete(c.channels, topic)
		}
	}
	c.mu.Unlock()

	if cause == nil {
		cause = ErrClosed
	}
	for _, ch := range affected {
		ch.fail(ports.StatusChannelError, cause)
	}
}

func (c *Client) forget(ch *channel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channels[ch.fullTopic] == ch {
		delete(c.channels, ch.fullTopic)
	}
}
