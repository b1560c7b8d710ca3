package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// SMSConfig carries the provider credentials. Values are cleaned of stray
// quotes, commas and semicolons that tend to leak in from env files.
type SMSConfig struct {
	APIKey    string
	PartnerID string
	Shortcode string
	URL       string
}

// SMSClient sends messages through an HTTP JSON SMS provider.
type SMSClient struct {
	config     SMSConfig
	httpClient *http.Client
}

func NewSMSClient(config SMSConfig) *SMSClient {
	config.APIKey = cleanCredential(config.APIKey)
	config.PartnerID = cleanCredential(config.PartnerID)
	config.Shortcode = cleanCredential(config.Shortcode)
	config.URL = cleanCredential(config.URL)

	return &SMSClient{
		config:     config,
		httpClient: &http.Client{},
	}
}

type smsRequest struct {
	APIKey    string `json:"apikey"`
	PartnerID string `json:"partnerID"`
	Message   string `json:"message"`
	Shortcode string `json:"shortcode"`
	Mobile    string `json:"mobile"`
}

type smsResponse struct {
	ResponseCode int    `json:"response-code"`
	Errors       any    `json:"errors"`
	Description  string `json:"response-description"`
}

func (c *SMSClient) Send(ctx context.Context, phone, message string) error {
	payload, err := json.Marshal(smsRequest{
		APIKey:    c.config.APIKey,
		PartnerID: c.config.PartnerID,
		Message:   message,
		Shortcode: c.config.Shortcode,
		Mobile:    phone,
	})
	if err != nil {
		return fmt.Errorf("failed to encode sms request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send sms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sms provider returned status %d: %s", resp.StatusCode, string(body))
	}

	var result smsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("failed to decode sms response: %w", err)
	}

	if result.ResponseCode != http.StatusOK {
		return fmt.Errorf("sms provider rejected message: code %d, %s", result.ResponseCode, result.Description)
	}

	return nil
}

func cleanCredential(val string) string {
	replacer := strings.NewReplacer(`"`, "", "'", "", ",", "", ";", "")
	return strings.TrimSpace(replacer.Replace(val))
}
