// Package signaling is the HTTP client for the signaling service REST
// API. The base address is injected once at construction, never
// scattered through call sites.
package signaling

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/domain"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type tokenResponse struct {
	Token string `json:"token"`
}

type roomResponse struct {
	RoomName string `json:"room_name"`
}

type initiateResponse struct {
	NewRoomName string `json:"new_room_name"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (c *Client) IssueToken(ctx context.Context, room domain.RoomName, identity string) (string, error) {
	q := url.Values{"room": {string(room)}, "identity": {identity}}
	var res tokenResponse
	if err := c.post(ctx, "/api/token", q, nil, &res); err != nil {
		return "", err
	}
	return res.Token, nil
}

func (c *Client) CreateRoom(ctx context.Context) (domain.RoomName, error) {
	var res roomResponse
	if err := c.post(ctx, "/api/create_room", nil, nil, &res); err != nil {
		return "", err
	}
	return domain.RoomName(res.RoomName), nil
}

func (c *Client) InitiateTransfer(ctx context.Context, currentRoom domain.RoomName) (domain.RoomName, error) {
	q := url.Values{"current_room": {string(currentRoom)}}
	var res initiateResponse
	if err := c.post(ctx, "/api/initiate_transfer", q, nil, &res); err != nil {
		return "", err
	}
	return domain.RoomName(res.NewRoomName), nil
}

func (c *Client) CompleteTransfer(ctx context.Context, fromRoom, toRoom domain.RoomName) error {
	q := url.Values{"from_room": {string(fromRoom)}, "to_room": {string(toRoom)}}
	return c.post(ctx, "/api/complete_transfer", q, nil, nil)
}

// PollMoveEvent returns nil when no move is pending. Transport errors
// and 5xx responses come back as *domain.TransientError so the poller
// backs off instead of surfacing them.
func (c *Client) PollMoveEvent(ctx context.Context, room domain.RoomName) (*domain.MoveEvent, error) {
	q := url.Values{"room": {string(room)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/move_events?"+q.Encode(), nil)
	if err != nil {
		return nil, &domain.TransientError{Err: err}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.TransientError{Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return nil, nil
	case resp.StatusCode == http.StatusOK:
		var ev domain.MoveEvent
		if err := json.NewDecoder(resp.Body).Decode(&ev); err != nil {
			return nil, &domain.TransientError{Err: err}
		}
		if ev.NewRoom == "" {
			return nil, nil
		}
		return &ev, nil
	default:
		return nil, &domain.TransientError{Err: fmt.Errorf("poll status %d", resp.StatusCode)}
	}
}

func (c *Client) Summarize(ctx context.Context, transcript string) (string, error) {
	body := map[string]string{"transcript": transcript}
	var res struct {
		Summary string `json:"summary"`
	}
	if err := c.post(ctx, "/api/summarize", nil, body, &res); err != nil {
		return "", err
	}
	return res.Summary, nil
}

func (c *Client) DialOut(ctx context.Context, number string, room domain.RoomName) error {
	body := map[string]string{"number": number, "room": string(room)}
	return c.post(ctx, "/api/dial", nil, body, nil)
}

// post performs a JSON request and maps non-2xx responses onto
// *domain.RemoteError carrying the server detail verbatim.
func (c *Client) post(ctx context.Context, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("signaling request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var detail errorResponse
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(data, &detail)
		return &domain.RemoteError{Status: resp.StatusCode, Detail: detail.Detail}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
