package graph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"supporthub/internal/platform"
)

const defaultBaseURL = "https://graph.facebook.com/v19.0"

type Config struct {
	BaseURL   string
	AppID     string
	AppSecret string
	// Per-call ceiling so one stuck platform call cannot pin a worker.
	Timeout time.Duration
}

// Client talks to the Meta Graph API. It implements platform.ProfileAPI,
// platform.SendAPI, platform.OAuthAPI and platform.IdentityAPI.
type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

type graphErrorBody struct {
	Error *struct {
		Message      string `json:"message"`
		Type         string `json:"type"`
		Code         int    `json:"code"`
		ErrorSubcode int    `json:"error_subcode"`
	} `json:"error"`
}

type profileBody struct {
	Name           string `json:"name"`
	Username       string `json:"username"`
	ProfilePic     string `json:"profile_pic"`
	FollowerCount  int    `json:"follower_count"`
	IsVerifiedUser bool   `json:"is_verified_user"`
}

// FetchProfile looks up a platform user by external id.
func (c *Client) FetchProfile(ctx context.Context, accessToken, externalID string) (platform.Profile, error) {
	q := url.Values{}
	q.Set("fields", "name,username,profile_pic,follower_count,is_verified_user")
	q.Set("access_token", accessToken)
	endpoint := fmt.Sprintf("%s/%s?%s", c.cfg.BaseURL, url.PathEscape(externalID), q.Encode())

	var body profileBody
	if err := c.get(ctx, endpoint, &body); err != nil {
		return platform.Profile{}, err
	}
	return platform.Profile{
		Name:          body.Name,
		Username:      body.Username,
		AvatarURL:     body.ProfilePic,
		FollowerCount: body.FollowerCount,
		Verified:      body.IsVerifiedUser,
	}, nil
}

type meBody struct {
	ID string `json:"id"`
}

// FetchAccountID resolves the account id the token was issued for.
func (c *Client) FetchAccountID(ctx context.Context, accessToken string) (string, error) {
	q := url.Values{}
	q.Set("fields", "id")
	q.Set("access_token", accessToken)
	endpoint := fmt.Sprintf("%s/me?%s", c.cfg.BaseURL, q.Encode())

	var body meBody
	if err := c.get(ctx, endpoint, &body); err != nil {
		return "", err
	}
	return body.ID, nil
}

type sendRequest struct {
	MessagingType string          `json:"messaging_type"`
	Recipient     sendRecipient   `json:"recipient"`
	Message       json.RawMessage `json:"message"`
}

type sendRecipient struct {
	ID string `json:"id"`
}

type sendResponse struct {
	MessageID string `json:"message_id"`
}

// SendText delivers a text message to the recipient.
func (c *Client) SendText(ctx context.Context, accessToken, recipientID, text string) (platform.SendResult, error) {
	msg, _ := json.Marshal(map[string]string{"text": text})
	return c.send(ctx, accessToken, recipientID, msg)
}

// SendAttachment delivers one attachment by public URL as its own call.
func (c *Client) SendAttachment(ctx context.Context, accessToken, recipientID, fileType, attachmentURL string) (platform.SendResult, error) {
	msg, _ := json.Marshal(map[string]any{
		"attachment": map[string]any{
			"type":    fileType,
			"payload": map[string]string{"url": attachmentURL},
		},
	})
	return c.send(ctx, accessToken, recipientID, msg)
}

func (c *Client) send(ctx context.Context, accessToken, recipientID string, message json.RawMessage) (platform.SendResult, error) {
	payload, err := json.Marshal(sendRequest{
		MessagingType: "RESPONSE",
		Recipient:     sendRecipient{ID: recipientID},
		Message:       message,
	})
	if err != nil {
		return platform.SendResult{}, err
	}

	endpoint := fmt.Sprintf("%s/me/messages?access_token=%s", c.cfg.BaseURL, url.QueryEscape(accessToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return platform.SendResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	var body sendResponse
	if err := c.do(req, &body); err != nil {
		return platform.SendResult{}, err
	}
	return platform.SendResult{MessageID: body.MessageID}, nil
}

func (c *Client) get(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	var errBody graphErrorBody
	if err := json.Unmarshal(raw, &errBody); err == nil && errBody.Error != nil {
		return &platform.APIError{
			Code:    errBody.Error.Code,
			Subcode: errBody.Error.ErrorSubcode,
			Type:    errBody.Error.Type,
			Message: errBody.Error.Message,
		}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("graph api: unexpected status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}
