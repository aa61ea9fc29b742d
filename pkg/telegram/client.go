// Package telegram locates the MasterCal source text in a chat. The sync
// core only consumes the matched message body; how it is located is this
// package's concern alone.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"time"

	log "github.com/sirupsen/logrus"
)

const defaultBaseURL = "https://api.telegram.org"

var ErrNoPinnedMatch = fmt.Errorf("no pinned message matched the pattern")

type Client interface {
	// LatestPinnedText returns the body of the chat's latest pinned
	// message whose text matches the pattern.
	LatestPinnedText(ctx context.Context, chatID int64, pattern string) (string, error)
}

type BotClient struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

func NewBotClient(token string) *BotClient {
	return &BotClient{
		token:      token,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type message struct {
	MessageID int64  `json:"message_id"`
	Text      string `json:"text"`
}

type chatResult struct {
	PinnedMessage *message `json:"pinned_message"`
}

type apiResponse struct {
	OK          bool       `json:"ok"`
	Description string     `json:"description"`
	Result      chatResult `json:"result"`
}

func (c *BotClient) LatestPinnedText(ctx context.Context, chatID int64, pattern string) (string, error) {
	rx, err := regexp.Compile(pattern)
	if err != nil {
		return "", fmt.Errorf("invalid message pattern %q: %v", pattern, err)
	}

	log.Debugf("fetching pinned message for chat %d", chatID)
	url := fmt.Sprintf("%s/bot%s/getChat?chat_id=%d", c.baseURL, c.token, chatID)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		log.Errorf("Failed to create request: %v", err)
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Errorf("Failed to execute request: %v", err)
		return "", err
	}
	defer resp.Body.Close()

	var response apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		log.Errorf("Failed to decode response: %v", err)
		return "", err
	}
	if resp.StatusCode != http.StatusOK || !response.OK {
		err := fmt.Errorf("Telegram API returned status %d: %s", resp.StatusCode, response.Description)
		log.Error(err)
		return "", err
	}

	pinned := response.Result.PinnedMessage
	if pinned == nil {
		return "", fmt.Errorf("%w: chat %d has no pinned message", ErrNoPinnedMatch, chatID)
	}
	if !rx.MatchString(pinned.Text) {
		return "", fmt.Errorf("%w: pinned message %d does not match %q", ErrNoPinnedMatch, pinned.MessageID, pattern)
	}
	log.Infof("matched pinned message id=%d textLen=%d", pinned.MessageID, len(pinned.Text))
	return pinned.Text, nil
}
