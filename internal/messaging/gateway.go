package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// GatewayClient calls the external WhatsApp messaging gateway. The gateway
// handles session validation and the actual push to WhatsApp.
type GatewayClient struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewGatewayClient(baseURL, token string) *GatewayClient {
	return &GatewayClient{
		BaseURL: baseURL,
		Token:   token,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type sendTextRequest struct {
	AiID string `json:"aiId"`
	To   string `json:"to"`
	Text string `json:"text"`
}

// SendText pushes a text message to the given phone number through the
// assistant's gateway session.
func (g *GatewayClient) SendText(ctx context.Context, aiID, to, text string) error {
	payload := sendTextRequest{AiID: aiID, To: to, Text: text}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal gateway payload: %w", err)
	}

	url := fmt.Sprintf("%s/chat/send/text", g.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.Token != "" {
		req.Header.Set("token", g.Token)
	}

	resp, err := g.Client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, string(b))
	}
	return nil
}
