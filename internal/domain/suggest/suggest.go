// Package suggest drafts goal text with the Gemini generateContent API. The
// feature is optional: without an API key the service reports unavailable and
// the rest of the application is unaffected.
package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var ErrUnavailable = errors.New("suggestions are not configured")

const defaultEndpoint = "https://generativelanguage.googleapis.com/v1beta"

// Draft is a proposed goal for the user to edit before submitting. It never
// enters the database directly.
type Draft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

type Service struct {
	apiKey   string
	endpoint string
	model    string
	client   *http.Client
}

func New(apiKey, endpoint string) *Service {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &Service{
		apiKey:   apiKey,
		endpoint: strings.TrimRight(endpoint, "/"),
		model:    "gemini-2.0-flash",
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *Service) Available() bool {
	return s.apiKey != ""
}

type generateRequest struct {
	Contents []content `json:"contents"`
	Config   genConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type genConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// DraftGoal asks the model for one goal draft in the given category, themed
// around the free-text focus the user supplied.
func (s *Service) DraftGoal(ctx context.Context, category, focus string) (Draft, error) {
	if !s.Available() {
		return Draft{}, ErrUnavailable
	}

	prompt := fmt.Sprintf(`Draft one workplace performance goal in the %q category focused on: %s

Return strict JSON with structure:
{"title": string, "description": string, "category": %q}

The title must be under 100 characters and the description under 400.
Return ONLY the raw JSON without markdown formatting or additional text.`, category, focus, category)

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		Config:   genConfig{Temperature: 0.4, MaxOutputTokens: 512},
	})
	if err != nil {
		return Draft{}, err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", s.endpoint, s.model, s.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Draft{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return Draft{}, fmt.Errorf("suggestion request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Draft{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return Draft{}, fmt.Errorf("suggestion request failed with status %d", resp.StatusCode)
	}

	var decoded generateResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return Draft{}, fmt.Errorf("suggestion response unreadable: %w", err)
	}
	text, err := firstCandidateText(decoded)
	if err != nil {
		return Draft{}, err
	}

	var draft Draft
	if err := json.Unmarshal([]byte(stripFences(text)), &draft); err != nil {
		return Draft{}, fmt.Errorf("suggestion was not valid JSON: %w", err)
	}
	if strings.TrimSpace(draft.Title) == "" {
		return Draft{}, errors.New("suggestion had no title")
	}
	if draft.Category == "" {
		draft.Category = category
	}
	return draft, nil
}

func firstCandidateText(resp generateResponse) (string, error) {
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("suggestion response had no candidates")
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}

// stripFences removes markdown code fences the model sometimes wraps its JSON
// in despite instructions, then trims to the outermost object.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}
