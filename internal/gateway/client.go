package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"whatsapp-console/internal/campaign"
	"whatsapp-console/internal/config"
)

// Client talks to the external messaging gateway that performs the actual
// network delivery. One send per call, at most once; delivery and read
// acknowledgments come back later through the status webhook.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.GatewayURL, "/"),
		token:   cfg.GatewayToken,
		// The timeout keeps a hung gateway call from stalling a campaign.
		http: &http.Client{Timeout: cfg.GatewayTimeout},
	}
}

type sendRequest struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

type sendResponse struct {
	Success      bool   `json:"success"`
	MessageID    string `json:"message_id,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// Send delivers text to phone through the given session. A transport error
// is returned as err; a refusal reported by the gateway comes back in the
// result with Success false.
func (c *Client) Send(sessionID, phone, text string) (campaign.SendResult, error) {
	url := fmt.Sprintf("%s/sessions/%s/messages", c.baseURL, sessionID)

	payload, err := json.Marshal(sendRequest{To: phone, Body: text})
	if err != nil {
		return campaign.SendResult{}, err
	}

	req, err := http.NewRequest("POST", url, bytes.NewBuffer(payload))
	if err != nil {
		return campaign.SendResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return campaign.SendResult{}, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return campaign.SendResult{}, err
	}

	var result sendResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		if resp.StatusCode >= 400 {
			return campaign.SendResult{}, fmt.Errorf("gateway error: %s - %s", resp.Status, string(respBody))
		}
		return campaign.SendResult{}, err
	}

	if resp.StatusCode >= 400 && result.ErrorMessage == "" {
		result.ErrorMessage = resp.Status
	}

	return campaign.SendResult{
		Success:      result.Success,
		MessageID:    result.MessageID,
		ErrorMessage: result.ErrorMessage,
	}, nil
}
