package console

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	etlerrors "github.com/kapu/game-character-etl/pkg/errors"
)

// Client talks to a running console server: REST for metadata and one
// lazily dialed WebSocket for queries.
type Client struct {
	baseURL    string
	httpClient *http.Client
	dialer     *websocket.Dialer
	logger     *zap.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewClient(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

func (c *Client) Databases(ctx context.Context) ([]LogicalDatabaseView, error) {
	var views []LogicalDatabaseView
	if err := c.doRequest(ctx, "/api/databases", &views); err != nil {
		c.logger.Error("Failed to list databases", zap.Error(err))
		return nil, err
	}
	return views, nil
}

func (c *Client) Examples(ctx context.Context, database, schema string) ([]Example, error) {
	var examples []Example
	path := fmt.Sprintf("/api/databases/%s/schemas/%s/examples", database, schema)
	if err := c.doRequest(ctx, path, &examples); err != nil {
		return nil, err
	}
	return examples, nil
}

// Query sends one query over the WebSocket and waits for its response.
// Server-side query errors come back as an error with the server message.
func (c *Client) Query(ctx context.Context, database, query string) (*Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
		_ = conn.SetReadDeadline(deadline)
		defer func() {
			_ = conn.SetWriteDeadline(time.Time{})
			_ = conn.SetReadDeadline(time.Time{})
		}()
	}

	if err := conn.WriteJSON(QueryRequest{Database: database, Query: query}); err != nil {
		c.drop()
		return nil, fmt.Errorf("failed to send query: %w", err)
	}
	var response QueryResponse
	if err := conn.ReadJSON(&response); err != nil {
		c.drop()
		return nil, fmt.Errorf("failed to read query response: %w", err)
	}
	if response.Error != "" {
		return nil, etlerrors.NewETLError(response.Error, etlerrors.CodeETLError, etlerrors.StageQuery,
			map[string]any{"database": database})
	}

	return &Result{
		Columns:   response.Columns,
		Rows:      response.Rows,
		Truncated: response.Truncated,
		Elapsed:   time.Duration(response.ElapsedMS) * time.Millisecond,
	}, nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	err := c.conn.Close()
	c.conn = nil
	return err
}

// must be called with mu held
func (c *Client) connect(ctx context.Context) (*websocket.Conn, error) {
	if c.conn != nil {
		return c.conn, nil
	}
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/ws/query"
	conn, _, err := c.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		c.logger.Error("Failed to connect WebSocket", zap.String("url", wsURL), zap.Error(err))
		return nil, err
	}
	c.logger.Debug("WebSocket connected", zap.String("url", wsURL))
	c.conn = conn
	return conn, nil
}

// must be called with mu held
func (c *Client) drop() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) doRequest(ctx context.Context, path string, respBody any) error {
	url := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var body struct {
			Error string `json:"error"`
		}
		data, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(data, &body) == nil && body.Error != "" {
			return fmt.Errorf("console API error: %s: %s", resp.Status, body.Error)
		}
		return fmt.Errorf("console API error: %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
