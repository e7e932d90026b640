package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/dskvich/classifier-bot/pkg/domain"
)

const (
	pathHealth       = "/health"
	pathModelInfo    = "/model/info"
	pathPredict      = "/predict"
	pathPredictBatch = "/predict/batch"
	pathHistory      = "/history"

	fieldFile  = "file"
	fieldFiles = "files"

	// MaxBatchSize is the largest batch the classifier service accepts.
	MaxBatchSize = 10
)

var (
	ErrNotImage      = errors.New("file is not an image")
	ErrEmptyBatch    = errors.New("batch is empty")
	ErrBatchTooLarge = fmt.Errorf("batch exceeds %d files", MaxBatchSize)
	errEmptyBaseURL  = errors.New("base url cannot be empty")
	errNilHTTPClient = errors.New("http client cannot be nil")
)

type client struct {
	baseURL string
	hc      *http.Client
}

type Option func(*client) error

func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) error {
		if hc == nil {
			return errNilHTTPClient
		}
		c.hc = hc
		return nil
	}
}

func NewClient(baseURL string, opts ...Option) (*client, error) {
	if baseURL == "" {
		return nil, errEmptyBaseURL
	}

	c := &client{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{},
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

func (c *client) CheckHealth(ctx context.Context) (*domain.Health, error) {
	var health domain.Health
	if err := c.getJSON(ctx, pathHealth, &health); err != nil {
		return nil, fmt.Errorf("checking health: %w", err)
	}
	return &health, nil
}

func (c *client) GetModelInfo(ctx context.Context) (*domain.ModelInfo, error) {
	var info domain.ModelInfo
	if err := c.getJSON(ctx, pathModelInfo, &info); err != nil {
		return nil, fmt.Errorf("fetching model info: %w", err)
	}
	return &info, nil
}

func (c *client) PredictImage(ctx context.Context, file domain.ImageFile) (*domain.PredictionResult, error) {
	if !file.IsImage() {
		return nil, ErrNotImage
	}

	body, contentType, err := multipartBody(fieldFile, []domain.ImageFile{file})
	if err != nil {
		return nil, fmt.Errorf("building multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+pathPredict, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	respBody, err := c.doRequest(req)
	if err != nil {
		return nil, fmt.Errorf("predicting image: %w", err)
	}

	var result domain.PredictionResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse prediction response: %w", err)
	}

	return &result, nil
}

func (c *client) PredictBatch(ctx context.Context, files []domain.ImageFile) ([]domain.PredictionResult, error) {
	switch {
	case len(files) == 0:
		return nil, ErrEmptyBatch
	case len(files) > MaxBatchSize:
		return nil, ErrBatchTooLarge
	}
	for _, f := range files {
		if !f.IsImage() {
			return nil, fmt.Errorf("%s: %w", f.Name, ErrNotImage)
		}
	}

	body, contentType, err := multipartBody(fieldFiles, files)
	if err != nil {
		return nil, fmt.Errorf("building multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+pathPredictBatch, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	respBody, err := c.doRequest(req)
	if err != nil {
		return nil, fmt.Errorf("predicting batch: %w", err)
	}

	results, err := parseBatch(respBody)
	if err != nil {
		return nil, fmt.Errorf("failed to parse batch response: %w", err)
	}

	return results, nil
}

func (c *client) GetHistory(ctx context.Context) ([]domain.HistoryEntry, error) {
	var history domain.History
	if err := c.getJSON(ctx, pathHistory, &history); err != nil {
		return nil, fmt.Errorf("fetching history: %w", err)
	}
	return history.History, nil
}

func (c *client) ClearHistory(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+pathHistory, nil)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}

	if _, err := c.doRequest(req); err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}

	return nil
}

func (c *client) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}

	respBody, err := c.doRequest(req)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(respBody, v); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	return nil
}

func (c *client) doRequest(req *http.Request) ([]byte, error) {
	req.Header.Set("Accept", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(resp.StatusCode, respBody)
	}

	return respBody, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func multipartBody(field string, files []domain.ImageFile) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(field), quoteEscaper.Replace(f.Name)))
		h.Set("Content-Type", f.MimeType)

		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return &buf, w.FormDataContentType(), nil
}

type batchEnvelope struct {
	Predictions []domain.PredictionResult `json:"predictions"`
	Total       int                       `json:"total"`
}

// parseBatch accepts both a bare array and the {predictions, total} envelope.
func parseBatch(data []byte) ([]domain.PredictionResult, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var results []domain.PredictionResult
		if err := json.Unmarshal(trimmed, &results); err != nil {
			return nil, err
		}
		return results, nil
	}

	var env batchEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, err
	}
	return env.Predictions, nil
}
