package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/rotisserie/eris"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "whisper-1"
)

// Client performs speech-to-text transcription.
type Client interface {
	Transcribe(ctx context.Context, req TranscribeRequest) (*TranscribeResponse, error)
}

// TranscribeRequest describes one audio upload.
type TranscribeRequest struct {
	Audio    []byte
	Filename string // e.g. "voice.ogg"; the extension tells the API the container
	Language string // ISO-639-1 hint, e.g. "ru"
}

// TranscribeResponse is the JSON body returned by the API.
type TranscribeResponse struct {
	Text string `json:"text"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithModel overrides the transcription model.
func WithModel(model string) Option {
	return func(c *httpClient) {
		c.model = model
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
}

// NewClient creates an OpenAI-compatible transcription client. No request
// timeout is set; callers bound the call through ctx.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		model:   defaultModel,
		http:    &http.Client{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Transcribe(ctx context.Context, tr TranscribeRequest) (*TranscribeResponse, error) {
	filename := tr.Filename
	if filename == "" {
		filename = "voice.ogg"
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, eris.Wrap(err, "whisper: create form file")
	}
	if _, err := fw.Write(tr.Audio); err != nil {
		return nil, eris.Wrap(err, "whisper: write audio")
	}
	if err := mw.WriteField("model", c.model); err != nil {
		return nil, eris.Wrap(err, "whisper: write model field")
	}
	if tr.Language != "" {
		if err := mw.WriteField("language", tr.Language); err != nil {
			return nil, eris.Wrap(err, "whisper: write language field")
		}
	}
	if err := mw.WriteField("response_format", "json"); err != nil {
		return nil, eris.Wrap(err, "whisper: write format field")
	}
	if err := mw.Close(); err != nil {
		return nil, eris.Wrap(err, "whisper: close multipart")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", &body)
	if err != nil {
		return nil, eris.Wrap(err, "whisper: create request")
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "whisper: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "whisper: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("whisper: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var result TranscribeResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "whisper: unmarshal response")
	}

	return &result, nil
}
