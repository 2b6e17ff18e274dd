package planner

import (
	"context"
	"errors"
	"net/http"

	"github.com/set-night/tripmind/internal/config"
)

var ErrNotFound = errors.New("conversation not found")

// Health calls the liveness endpoint.
func (c *Client) Health(ctx context.Context) (Probe, error) {
	ctx, cancel := context.WithTimeout(ctx, config.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return Probe{}, err
	}
	raw, err := c.do(c.probeClient, req)
	if err != nil {
		return Probe{}, err
	}
	return Probe{Status: raw.Status, Body: truncate(string(raw.Body), config.ProbeBodyLimit), Host: req.URL.Host}, nil
}

// Preflight issues a cross-origin preflight against the chat route.
func (c *Client) Preflight(ctx context.Context) (Probe, error) {
	ctx, cancel := context.WithTimeout(ctx, config.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodOptions, c.baseURL+"/api/chat", nil)
	if err != nil {
		return Probe{}, err
	}
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Origin", "null")
	raw, err := c.do(c.probeClient, req)
	if err != nil {
		return Probe{}, err
	}
	return Probe{Status: raw.Status, Host: req.URL.Host}, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
