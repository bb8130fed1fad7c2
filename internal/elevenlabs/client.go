// Package elevenlabs implements the streaming text-to-speech pipeline: the
// HTTP client, the audio/transcript stream demultiplexer and the synthesis
// request orchestration on top of them.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"
)

// HeaderHistoryItemID is the correlation header tying a response to its
// server-side history record. Its absence is a protocol violation.
const HeaderHistoryItemID = "History-Item-Id"

// HTTPDoer abstracts the HTTP transport so the pipeline can be driven by a
// test double that counts invocations or serves canned streams.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client issues synthesis and voice-catalog requests against the ElevenLabs
// API. It is safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	http    HTTPDoer
	log     zerolog.Logger
}

// NewClient creates a client for the given API base URL. A nil httpClient
// falls back to http.DefaultClient semantics with no extra timeouts; stream
// lifetimes are governed by the caller's context.
func NewClient(baseURL, apiKey string, httpClient HTTPDoer, log zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    httpClient,
		log:     log.With().Str("component", "elevenlabs-client").Logger(),
	}
}

// synthesisBody is the JSON request payload shared by all synthesis
// endpoints.
type synthesisBody struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id,omitempty"`
	VoiceSettings VoiceSettings `json:"voice_settings"`
}

// newSynthesisRequest builds the outbound HTTP request for req. Streaming
// requests hit the chunked-transfer endpoints; the with-timestamps variant is
// selected when character timing was asked for.
func (c *Client) newSynthesisRequest(ctx context.Context, req SynthesisRequest, mode Mode) (*http.Request, error) {
	payload, err := json.Marshal(synthesisBody{
		Text:          req.Text,
		ModelID:       req.ModelID,
		VoiceSettings: req.Settings,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal synthesis body: %w", err)
	}

	path := "/v1/text-to-speech/" + url.PathEscape(req.VoiceID)
	if mode == ModeStreaming {
		if req.WithTimestamps {
			path += "/stream/with-timestamps"
		} else {
			path += "/stream"
		}
	}

	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("build synthesis url: %w", err)
	}
	q := u.Query()
	q.Set("output_format", string(req.OutputFormat))
	if req.Latency >= 0 {
		q.Set("optimize_streaming_latency", strconv.Itoa(req.Latency))
	}
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build synthesis request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", c.apiKey)

	return httpReq, nil
}

// do executes req and verifies the status line. Response headers are
// available to the caller before the body has completed; the body is left
// open for incremental reads.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("synthesis request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("api returned status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	return resp, nil
}

// get issues a JSON GET against path and decodes the response into out.
func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("get %s: api returned status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
