// Package whatsapp implements the WhatsApp Cloud API webhook and text sender.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/arafat-telecom/chatbot/core/outbound"
)

// Name is the transport name used in logs and metrics.
const Name = "whatsapp"

const maxErrorBody = 512

// ClientOptions configure a Cloud API client.
type ClientOptions struct {
	BaseURL       string
	APIVersion    string
	PhoneNumberID string
	Token         string
	HTTPClient    *http.Client
}

// Client sends text messages through the Cloud API.
type Client struct {
	http     *http.Client
	endpoint string
	token    string
}

// NewClient validates opts and returns a Client.
func NewClient(opts ClientOptions) (*Client, error) {
	if strings.TrimSpace(opts.Token) == "" {
		return nil, errors.New("whatsapp: token is required")
	}
	if strings.TrimSpace(opts.PhoneNumberID) == "" {
		return nil, errors.New("whatsapp: phone number id is required")
	}
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = "https://graph.facebook.com"
	}
	version := strings.Trim(strings.TrimSpace(opts.APIVersion), "/")
	if version == "" {
		version = "v20.0"
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{
		http:     hc,
		endpoint: fmt.Sprintf("%s/%s/%s/messages", base, version, opts.PhoneNumberID),
		token:    opts.Token,
	}, nil
}

type textBody struct {
	Body string `json:"body"`
}

type sendRequest struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

// Name identifies the transport.
func (c *Client) Name() string { return Name }

// SendText posts a text message to the phone number to.
func (c *Client) SendText(ctx context.Context, to, text string) error {
	payload, err := json.Marshal(sendRequest{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             textBody{Body: text},
	})
	if err != nil {
		return fmt.Errorf("whatsapp: encode message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("whatsapp: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp: send: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &outbound.APIError{Transport: Name, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return nil
}
