// Package historyclient talks to the answer-history service and keeps a local
// snapshot of the signed-in user's records.
package historyclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/enem-practice/backend/internal/apperr"
	"github.com/enem-practice/backend/internal/models"
)

// API is the subset of the history service the State depends on.
type API interface {
	List(ctx context.Context) ([]models.AnswerRecord, error)
	Add(ctx context.Context, req models.AddAnswerRequest) (*models.AnswerRecord, error)
	Clear(ctx context.Context) error
}

// Client is an HTTP API bound to one bearer token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient targets the server at baseURL (without the /api prefix). A nil
// httpClient uses http.DefaultClient.
func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    httpClient,
	}
}

func (c *Client) List(ctx context.Context) ([]models.AnswerRecord, error) {
	var resp models.HistoryListResponse
	if err := c.do(ctx, http.MethodGet, "/api/history", nil, &resp); err != nil {
		return nil, err
	}
	if resp.History == nil {
		resp.History = []models.AnswerRecord{}
	}
	return resp.History, nil
}

func (c *Client) Add(ctx context.Context, req models.AddAnswerRequest) (*models.AnswerRecord, error) {
	var resp models.AddAnswerResponse
	if err := c.do(ctx, http.MethodPost, "/api/history/add", req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success || resp.Data == nil {
		return nil, fmt.Errorf("%w: add answer: empty response", apperr.ErrInternal)
	}
	return resp.Data, nil
}

func (c *Client) Clear(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/history", nil, nil)
}

func (c *Client) Stats(ctx context.Context) (*models.HistoryStats, error) {
	var stats models.HistoryStats
	if err := c.do(ctx, http.MethodGet, "/api/history/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: encode request: %v", apperr.ErrInvalidArgument, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", apperr.ErrInternal, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", apperr.ErrInternal, method, path, err)
	}
	defer resp.Body.Close()

	if sentinel := apperr.FromStatus(resp.StatusCode); sentinel != nil {
		var e models.ErrorResponse
		if json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&e) == nil && e.Error != "" {
			return fmt.Errorf("%w: %s", sentinel, e.Error)
		}
		return fmt.Errorf("%w: %s %s: status %d", sentinel, method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s response: %v", apperr.ErrInternal, path, err)
	}
	return nil
}
