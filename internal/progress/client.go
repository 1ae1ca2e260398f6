// Package progress talks to the word-server REST API that persists learned
// words and keeps score.
package progress

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"lexilens/internal/domain"
)

// Client implements the progress backend over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type addWordRequest struct {
	Word        string `json:"word"`
	Translation string `json:"translation"`
	LanguageID  int    `json:"languageId"`
	LearnedAt   string `json:"learnedAt"`
}

type addWordResponse struct {
	Success     bool               `json:"success"`
	LearnedWord domain.LearnedWord `json:"learnedWord"`
	Score       int                `json:"score"`
	Level       int                `json:"level"`
}

// AddLearnedWord records a word for the user and returns the updated score.
func (c *Client) AddLearnedWord(ctx context.Context, userID int, word, translation string, languageID int) (domain.ProgressResult, error) {
	payload := addWordRequest{
		Word:        word,
		Translation: translation,
		LanguageID:  languageID,
		LearnedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	var response addWordResponse
	url := fmt.Sprintf("%s/api/users/%d/words", c.baseURL, userID)
	if err := c.do(ctx, http.MethodPost, url, payload, &response); err != nil {
		return domain.ProgressResult{}, err
	}
	return domain.ProgressResult{
		Score:       response.Score,
		Level:       response.Level,
		LearnedWord: response.LearnedWord,
	}, nil
}

// Languages fetches the learnable language catalog.
func (c *Client) Languages(ctx context.Context) ([]domain.Language, error) {
	var response struct {
		Languages []domain.Language `json:"languages"`
	}
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/api/languages", nil, &response); err != nil {
		return nil, err
	}
	return response.Languages, nil
}

// LearnedWords fetches the user's vocabulary, newest first.
func (c *Client) LearnedWords(ctx context.Context, userID int) ([]domain.LearnedWord, error) {
	var response struct {
		LearnedWords []domain.LearnedWord `json:"learnedWords"`
	}
	url := fmt.Sprintf("%s/api/users/%d/words", c.baseURL, userID)
	if err := c.do(ctx, http.MethodGet, url, nil, &response); err != nil {
		return nil, err
	}
	return response.LearnedWords, nil
}

// Score fetches the user's current score and level.
func (c *Client) Score(ctx context.Context, userID int) (domain.UserScore, error) {
	var response struct {
		UserScore domain.UserScore `json:"userScore"`
	}
	url := fmt.Sprintf("%s/api/users/%d/score", c.baseURL, userID)
	if err := c.do(ctx, http.MethodGet, url, nil, &response); err != nil {
		return domain.UserScore{}, err
	}
	return response.UserScore, nil
}

func (c *Client) do(ctx context.Context, method, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("progress backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("progress backend returned %d: %s", resp.StatusCode, detail)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
