package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/set-night/tripmind/internal/config"
)

// Client talks to the remote planning service.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	probeClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: config.EnhanceTimeout},
		probeClient: &http.Client{Timeout: config.ProbeTimeout},
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Chat posts one user query. A non-nil error means the request never
// produced a reply; any status and body is returned as a RawReply.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*RawReply, error) {
	ctx, cancel := context.WithTimeout(ctx, config.RequestTimeout)
	defer cancel()
	return c.post(ctx, "/api/chat", req)
}

func (c *Client) EnhanceItinerary(ctx context.Context, req EnhanceRequest) (*RawReply, error) {
	ctx, cancel := context.WithTimeout(ctx, config.EnhanceTimeout)
	defer cancel()
	return c.post(ctx, "/api/enhance", req)
}

func (c *Client) EnhanceTransit(ctx context.Context, req TransitEnhanceRequest) (*RawReply, error) {
	ctx, cancel := context.WithTimeout(ctx, config.EnhanceTimeout)
	defer cancel()
	return c.post(ctx, "/api/enhance-bus", req)
}

// FollowUps returns the suggested next queries. The service answers either
// with a bare list or with {"follow_up_questions": [...]}.
func (c *Client) FollowUps(ctx context.Context, req FollowUpRequest) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, config.FollowUpTimeout)
	defer cancel()

	raw, err := c.post(ctx, "/api/follow_up", req)
	if err != nil {
		return nil, err
	}
	if !raw.OK() {
		return nil, fmt.Errorf("follow-up status %d", raw.Status)
	}

	var list []string
	if err := json.Unmarshal(raw.Body, &list); err == nil && list != nil {
		return list, nil
	}
	var wrapped struct {
		FollowUpQuestions []string `json:"follow_up_questions"`
	}
	if err := json.Unmarshal(raw.Body, &wrapped); err != nil {
		return nil, fmt.Errorf("parse follow-ups: %w", err)
	}
	if wrapped.FollowUpQuestions == nil {
		return nil, fmt.Errorf("follow-up reply has no list")
	}
	return wrapped.FollowUpQuestions, nil
}

func (c *Client) Finalize(ctx context.Context, req FinalizeRequest) (*FinalizeReply, error) {
	ctx, cancel := context.WithTimeout(ctx, config.RequestTimeout)
	defer cancel()

	raw, err := c.post(ctx, "/api/finalize-plan", req)
	if err != nil {
		return nil, err
	}
	var reply FinalizeReply
	if err := json.Unmarshal(raw.Body, &reply); err != nil {
		return nil, fmt.Errorf("parse finalize reply (status %d): %w", raw.Status, err)
	}
	return &reply, nil
}

func (c *Client) Summarize(ctx context.Context, planData any) (*SummarizeReply, error) {
	ctx, cancel := context.WithTimeout(ctx, config.RequestTimeout)
	defer cancel()

	raw, err := c.post(ctx, "/api/summarize-plan", planData)
	if err != nil {
		return nil, err
	}
	var reply SummarizeReply
	if err := json.Unmarshal(raw.Body, &reply); err != nil {
		return nil, fmt.Errorf("parse summary reply (status %d): %w", raw.Status, err)
	}
	return &reply, nil
}

func (c *Client) ListConversations(ctx context.Context, limit int) ([]Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, config.RequestTimeout)
	defer cancel()

	raw, err := c.get(ctx, "/api/conversations?limit="+strconv.Itoa(limit))
	if err != nil {
		return nil, err
	}
	var result struct {
		Success       bool           `json:"success"`
		Conversations []Conversation `json:"conversations"`
		Error         string         `json:"error"`
	}
	if err := json.Unmarshal(raw.Body, &result); err != nil {
		return nil, fmt.Errorf("parse conversations: %w", err)
	}
	if !raw.OK() || !result.Success {
		return nil, fmt.Errorf("list conversations: status %d: %s", raw.Status, result.Error)
	}
	return result.Conversations, nil
}

func (c *Client) ConversationMessages(ctx context.Context, id string) ([]StoredMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, config.RequestTimeout)
	defer cancel()

	raw, err := c.get(ctx, "/api/conversations/"+url.PathEscape(id)+"/messages")
	if err != nil {
		return nil, err
	}
	var result struct {
		Success  bool            `json:"success"`
		Messages []StoredMessage `json:"messages"`
		Error    string          `json:"error"`
	}
	if raw.Status == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if err := json.Unmarshal(raw.Body, &result); err != nil {
		return nil, fmt.Errorf("parse messages: %w", err)
	}
	if !raw.OK() || !result.Success {
		return nil, fmt.Errorf("load messages: status %d: %s", raw.Status, result.Error)
	}
	return result.Messages, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) (*RawReply, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(c.httpClient, req)
}

func (c *Client) get(ctx context.Context, path string) (*RawReply, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return c.do(c.httpClient, req)
}

func (c *Client) do(client *http.Client, req *http.Request) (*RawReply, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return &RawReply{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}
