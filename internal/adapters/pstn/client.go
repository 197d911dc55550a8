// Package pstn dials external numbers into a room through a
// Twilio-style REST API.
package pstn

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/core"
	"github.com/ThatGuyChandan/livekit-warm-transfer/internal/domain"
)

type Client struct {
	baseURL    string
	accountSid string
	authToken  string
	fromNumber string
	voiceURL   string
	httpClient *http.Client
}

// NewClient configures the dial-out integration. voiceURL is the
// publicly reachable webhook handed to the carrier, with the room name
// appended per call.
func NewClient(baseURL, accountSid, authToken, fromNumber, voiceURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		accountSid: accountSid,
		authToken:  authToken,
		fromNumber: fromNumber,
		voiceURL:   voiceURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Dial is fire-and-forget: the call outcome does not feed back into
// transfer coordination.
func (c *Client) Dial(ctx context.Context, number string, room domain.RoomName) error {
	if c.baseURL == "" || c.accountSid == "" {
		return core.ErrNotConfigured
	}

	form := url.Values{
		"To":     {number},
		"From":   {c.fromNumber},
		"Url":    {c.voiceURL + "?room_name=" + url.QueryEscape(string(room))},
		"Method": {"POST"},
	}
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Calls.json", c.baseURL, c.accountSid)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.accountSid, c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("dial request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("dial status %d: %s", resp.StatusCode, data)
	}
	log.Info().Str("module", "pstn").Str("to", number).Str("room", string(room)).Msg("dial placed")
	return nil
}
