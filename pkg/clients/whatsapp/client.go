package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/lashiva/stockrecon/internal/config"
)

// ErrEmptyMessage is returned when a message has no recipient or body.
var ErrEmptyMessage = errors.New("whatsapp: recipient and body are required")

// Client sends plain text notifications.
type Client interface {
	SendText(ctx context.Context, msg TextMessage) (string, error)
}

// APIClient talks to the Meta Graph API through resty.
type APIClient struct {
	http          *resty.Client
	phoneNumberID string
}

// NewClient builds an APIClient from cfg.
func NewClient(cfg config.WhatsAppConfig) *APIClient {
	base := strings.TrimSuffix(cfg.BaseURL, "/")

	rc := resty.New().
		SetBaseURL(base+"/"+cfg.APIVersion).
		SetAuthToken(cfg.AccessToken).
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)

	return &APIClient{http: rc, phoneNumberID: cfg.PhoneNumberID}
}

// TextMessage is a text notification addressed to one phone number.
type TextMessage struct {
	To         string
	Body       string
	PreviewURL bool
}

type textPayload struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type textBody struct {
	Body       string `json:"body"`
	PreviewURL bool   `json:"preview_url"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

type graphError struct {
	Error struct {
		Message   string `json:"message"`
		Code      int    `json:"code"`
		FBTraceID string `json:"fbtrace_id"`
	} `json:"error"`
}

// SendText delivers msg and returns the message id assigned by the API.
func (c *APIClient) SendText(ctx context.Context, msg TextMessage) (string, error) {
	if msg.To == "" || strings.TrimSpace(msg.Body) == "" {
		return "", ErrEmptyMessage
	}

	payload := textPayload{
		MessagingProduct: "whatsapp",
		To:               msg.To,
		Type:             "text",
		Text:             textBody{Body: msg.Body, PreviewURL: msg.PreviewURL},
	}

	out := new(sendResponse)
	apiErr := new(graphError)
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(out).
		SetError(apiErr).
		Post(c.phoneNumberID + "/messages")
	if err != nil {
		return "", fmt.Errorf("send whatsapp message: %w", err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		code := resp.StatusCode()
		if apiErr.Error.Code != 0 {
			code = apiErr.Error.Code
		}
		return "", fmt.Errorf("whatsapp api error: code=%d, message=%s", code, apiErr.Error.Message)
	}

	if len(out.Messages) == 0 {
		return "", nil
	}
	return out.Messages[0].ID, nil
}
