package mirror

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"
)

type MultichainConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Stream   string
	Timeout  time.Duration
}

// MultichainClient speaks the node's JSON-RPC: publish writes one stream item
// keyed by event type, liststreamitems reads them back.
type MultichainClient struct {
	url      string
	user     string
	password string
	stream   string
	hc       *http.Client
	now      func() time.Time
}

var _ Publisher = (*MultichainClient)(nil)

func NewMultichainClient(cfg MultichainConfig) *MultichainClient {
	if cfg.Stream == "" {
		cfg.Stream = DefaultStream
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &MultichainClient{
		url:      "http://" + net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		user:     cfg.User,
		password: cfg.Password,
		stream:   cfg.Stream,
		hc:       &http.Client{Timeout: cfg.Timeout},
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// withURL points the client at a test server.
func (c *MultichainClient) withURL(u string) *MultichainClient {
	c.url = u
	return c
}

type rpcRequest struct {
	Method string `json:"method"`
	Params []any  `json:"params"`
	ID     int    `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("multichain rpc error %d: %s", e.Code, e.Message)
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *MultichainClient) call(ctx context.Context, method string, params []any, out any) error {
	body, err := json.Marshal(rpcRequest{Method: method, Params: params, ID: 1})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.user, c.password)

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("multichain %s: %w", method, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("multichain %s: read body: %w", method, err)
	}

	var rr rpcResponse
	if err := json.Unmarshal(raw, &rr); err != nil {
		return fmt.Errorf("multichain %s: http %d: %w", method, resp.StatusCode, err)
	}
	if rr.Error != nil {
		return rr.Error
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(rr.Result, out)
}

// Publish stores {event_type, timestamp, data} hex-encoded under key eventType.
func (c *MultichainClient) Publish(ctx context.Context, eventType string, data any) (string, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	doc, err := json.Marshal(Event{EventType: eventType, Timestamp: c.now(), Data: payload})
	if err != nil {
		return "", err
	}

	var txID string
	if err := c.call(ctx, "publish", []any{c.stream, eventType, hex.EncodeToString(doc)}, &txID); err != nil {
		return "", err
	}
	log.Printf("mirror: published %s tx=%s", eventType, txID)
	return txID, nil
}

type streamItem struct {
	Data json.RawMessage `json:"data"`
}

// Events reads the stream back, newest last. An empty eventType returns all.
// Items that are not hex-encoded JSON events are skipped.
func (c *MultichainClient) Events(ctx context.Context, eventType string) ([]Event, error) {
	var items []streamItem
	if err := c.call(ctx, "liststreamitems", []any{c.stream}, &items); err != nil {
		return nil, err
	}
	out := []Event{}
	for _, it := range items {
		ev, err := decodeItem(it.Data)
		if err != nil {
			continue
		}
		if eventType == "" || ev.EventType == eventType {
			out = append(out, ev)
		}
	}
	return out, nil
}

var errNotHex = errors.New("stream item data is not a hex string")

func decodeItem(raw json.RawMessage) (Event, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || s == "" {
		return Event{}, errNotHex
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return Event{}, err
	}
	var ev Event
	if err := json.Unmarshal(b, &ev); err != nil {
		return Event{}, err
	}
	return ev, nil
}
