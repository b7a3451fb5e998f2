// Package analysis submits segment and frame payloads to the external
// vision-language capability and fans calls out in input order.
package analysis

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// PayloadKind selects how the payload bytes are presented to the capability.
type PayloadKind int

const (
	// PayloadVideo is a whole segment file (segment-level analysis).
	PayloadVideo PayloadKind = iota
	// PayloadImage is a single extracted frame (object-level analysis).
	PayloadImage
)

// Caller is the narrow surface the dispatch engine needs; the production
// implementation is Client.
type Caller interface {
	Generate(ctx context.Context, prompt string, kind PayloadKind, payloadPath string) (string, error)
}

// Client talks to a generateContent-style endpoint: prompt plus an inline
// media part and a sampling temperature in, unconstrained free text out.
type Client struct {
	endpoint    string
	apiKey      string
	model       string
	Temperature float64

	httpClient *http.Client
}

// NewClient builds a client for the configured endpoint. The HTTP client
// carries no timeout of its own; per-call deadlines are owned by the engine.
func NewClient(endpoint, apiKey, model string, temperature float64) *Client {
	return &Client{
		endpoint:    endpoint,
		apiKey:      apiKey,
		model:       model,
		Temperature: temperature,
		httpClient:  &http.Client{},
	}
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generationConfig struct {
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate uploads the payload inline with the prompt and returns the raw
// reply text.
func (c *Client) Generate(ctx context.Context, prompt string, kind PayloadKind, payloadPath string) (string, error) {
	data, err := os.ReadFile(payloadPath)
	if err != nil {
		return "", fmt.Errorf("reading payload: %w", err)
	}

	reqBody := generateRequest{
		Contents: []content{{
			Parts: []part{
				{Text: prompt},
				{InlineData: &inlineData{
					MimeType: mimeTypeFor(kind, payloadPath),
					Data:     base64.StdEncoding.EncodeToString(data),
				}},
			},
		}},
		GenerationConfig: generationConfig{Temperature: c.Temperature},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimSuffix(c.endpoint, "/"), c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("analysis request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	var genResp generateResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}

	if genResp.Error != nil {
		return "", fmt.Errorf("analysis API error %d: %s", genResp.Error.Code, genResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("analysis API returned status %d", resp.StatusCode)
	}
	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from analysis API")
	}

	var sb strings.Builder
	for _, p := range genResp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}

func mimeTypeFor(kind PayloadKind, path string) string {
	if kind == PayloadImage {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".png":
			return "image/png"
		default:
			return "image/jpeg"
		}
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".webm":
		return "video/webm"
	case ".mkv":
		return "video/x-matroska"
	default:
		return "video/mp4"
	}
}

// DefaultCallTimeout bounds a single capability call when config supplies
// nothing. Segment uploads are large; timeouts surface as failure markers,
// never as hangs.
const DefaultCallTimeout = 10 * time.Minute
