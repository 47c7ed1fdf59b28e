package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"inkflow/utils"
)

const (
	defaultGraphBaseURL = "https://graph.instagram.com/v22.0"
	maxImageSizeBytes   = 16 << 20
)

// Client sends direct messages through the Instagram Graph API.
type Client struct {
	accessToken string
	baseURL     string
	httpClient  *http.Client
	logger      *zap.Logger
}

// ClientOption customizes Client.
type ClientOption func(*Client)

func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		if url != "" {
			c.baseURL = strings.TrimRight(url, "/")
		}
	}
}

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func NewClient(accessToken string, logger *zap.Logger, opts ...ClientOption) (*Client, error) {
	if strings.TrimSpace(accessToken) == "" {
		return nil, errors.New("instagram access token is required")
	}
	c := &Client{
		accessToken: accessToken,
		baseURL:     defaultGraphBaseURL,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		logger:      logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

type sendRequest struct {
	Recipient recipient `json:"recipient"`
	Message   message   `json:"message"`
}

type recipient struct {
	ID string `json:"id"`
}

type message struct {
	Text string `json:"text"`
}

type graphError struct {
	Error struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// SendMessage delivers one text message to the given user.
func (c *Client) SendMessage(ctx context.Context, recipientID, text string) error {
	body, err := json.Marshal(sendRequest{
		Recipient: recipient{ID: recipientID},
		Message:   message{Text: text},
	})
	if err != nil {
		return fmt.Errorf("marshal send request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/me/messages", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return utils.NewServiceError("instagram", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var ge graphError
		if json.Unmarshal(raw, &ge) == nil && ge.Error.Message != "" {
			return utils.NewServiceError("instagram",
				fmt.Errorf("send failed: %s (code %d)", ge.Error.Message, ge.Error.Code))
		}
		return utils.NewServiceError("instagram",
			fmt.Errorf("send failed: status %d", resp.StatusCode))
	}

	c.logger.Debug("message sent", zap.String("recipient", recipientID), zap.Int("length", len(text)))
	return nil
}

// SendLong splits text at the platform limit and delivers the chunks
// in order. Delivery stops at the first failure so the customer never
// sees a reply with a hole in the middle.
func (c *Client) SendLong(ctx context.Context, recipientID, text string) error {
	for _, part := range SplitMessage(text, utils.MessageMaxLength) {
		if err := c.SendMessage(ctx, recipientID, part); err != nil {
			return err
		}
	}
	return nil
}

// DownloadImage fetches an attachment to a temp file and returns its
// path. The caller owns the file and removes it after analysis.
func (c *Client) DownloadImage(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build download request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", utils.NewServiceError("instagram", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", utils.NewServiceError("instagram",
			fmt.Errorf("download failed: status %d", resp.StatusCode))
	}

	path := filepath.Join(os.TempDir(), "ig-image-"+uuid.New().String()+".jpg")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, io.LimitReader(resp.Body, maxImageSizeBytes)); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write temp file: %w", err)
	}

	c.logger.Debug("image downloaded", zap.String("path", path))
	return path, nil
}
