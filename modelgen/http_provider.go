package modelgen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"tirecheck/retry"
)

// IdempotencyKeyHeader carries one key per Submit call. Retried attempts of
// the same submit reuse it so the provider can collapse them into one task.
const IdempotencyKeyHeader = "Idempotency-Key"

// HTTPProvider talks to an image-to-3D REST service.
//
//	POST {base}/image-to-3d      {"image_url": ...}  -> {"result": "<task id>"}
//	GET  {base}/image-to-3d/{id}                     -> {"status": ..., "model_urls": {"glb": ...}, "task_error": {"message": ...}}
//
// Local images are inlined as data URIs, but only from below imageRoot.
type HTTPProvider struct {
	baseURL   string
	apiKey    string
	imageRoot string
	client    *http.Client
	retry     retry.Config
	logger    zerolog.Logger
}

type HTTPProviderOption func(*HTTPProvider)

func WithHTTPClient(c *http.Client) HTTPProviderOption {
	return func(p *HTTPProvider) { p.client = c }
}

func WithRetryConfig(cfg retry.Config) HTTPProviderOption {
	return func(p *HTTPProvider) { p.retry = cfg }
}

// WithImageRoot sets the directory local image paths must live in. Without
// it only remote and data URLs are accepted.
func WithImageRoot(dir string) HTTPProviderOption {
	return func(p *HTTPProvider) { p.imageRoot = dir }
}

func NewHTTPProvider(baseURL, apiKey string, opts ...HTTPProviderOption) *HTTPProvider {
	p := &HTTPProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
		retry:   retry.DefaultConfig(),
		logger:  log.Logger.With().Str("component", "model_provider").Logger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type submitRequest struct {
	ImageURL string `json:"image_url"`
}

type submitResponse struct {
	Result string `json:"result"`
}

type taskResponse struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	ModelURLs struct {
		GLB string `json:"glb"`
	} `json:"model_urls"`
	TaskError struct {
		Message string `json:"message"`
	} `json:"task_error"`
}

func (p *HTTPProvider) Submit(ctx context.Context, imagePath string) (string, error) {
	imageURL, err := p.imageReference(imagePath)
	if err != nil {
		return "", err
	}
	body, err := json.Marshal(submitRequest{ImageURL: imageURL})
	if err != nil {
		return "", err
	}

	var out submitResponse
	key := uuid.New().String()
	err = retry.DoWithLog(ctx, p.retry, "provider submit", func() error {
		return p.do(ctx, http.MethodPost, p.baseURL+"/image-to-3d", body, key, &out)
	}, p.logAttempt)
	if err != nil {
		return "", err
	}
	if out.Result == "" {
		return "", fmt.Errorf("provider returned no task id")
	}
	return out.Result, nil
}

func (p *HTTPProvider) Poll(ctx context.Context, providerJobID string) (PollResult, error) {
	var out taskResponse
	endpoint := p.baseURL + "/image-to-3d/" + url.PathEscape(providerJobID)
	err := retry.DoWithLog(ctx, p.retry, "provider poll", func() error {
		return p.do(ctx, http.MethodGet, endpoint, nil, "", &out)
	}, p.logAttempt)
	if err != nil {
		return PollResult{}, err
	}
	return taskResult(out)
}

func taskResult(t taskResponse) (PollResult, error) {
	switch strings.ToUpper(t.Status) {
	case "PENDING", "IN_PROGRESS":
		return PollResult{Status: ProviderRunning}, nil
	case "SUCCEEDED":
		if t.ModelURLs.GLB == "" {
			return PollResult{}, fmt.Errorf("%w: succeeded without a model url", ErrTransient)
		}
		return PollResult{Status: ProviderCompleted, ModelURL: t.ModelURLs.GLB}, nil
	case "FAILED":
		return PollResult{Status: ProviderFailed, Reason: t.TaskError.Message}, nil
	case "EXPIRED", "CANCELED":
		reason := t.TaskError.Message
		if reason == "" {
			reason = "provider task " + strings.ToLower(t.Status)
		}
		return PollResult{Status: ProviderFailed, Reason: reason}, nil
	default:
		return PollResult{}, fmt.Errorf("%w: status %q", ErrTransient, t.Status)
	}
}

func (p *HTTPProvider) do(ctx context.Context, method, endpoint string, body []byte, idempotencyKey string, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return retry.Permanent(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set(IdempotencyKeyHeader, idempotencyKey)
	}
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return fmt.Errorf("provider returned %d", resp.StatusCode)
	}
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return retry.Permanent(fmt.Errorf("provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: undecodable body: %v", ErrTransient, err)
	}
	return nil
}

func (p *HTTPProvider) logAttempt(attempt int, err error, next time.Duration) {
	p.logger.Warn().Err(err).Int("attempt", attempt).Dur("next_delay", next).Msg("provider request failed")
}

// imageReference passes remote and data URLs through and inlines local
// files under imageRoot as a base64 data URI.
func (p *HTTPProvider) imageReference(imagePath string) (string, error) {
	lower := strings.ToLower(imagePath)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "data:") {
		return imagePath, nil
	}
	if !withinDir(p.imageRoot, imagePath) {
		return "", fmt.Errorf("%w: %s", ErrImageOutsideRoot, imagePath)
	}
	raw, err := os.ReadFile(imagePath)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	ct := mime.TypeByExtension(filepath.Ext(imagePath))
	if ct == "" {
		ct = http.DetectContentType(raw)
	}
	return "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(raw), nil
}

func withinDir(root, path string) bool {
	if root == "" || path == "" {
		return false
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absRoot, absPath)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}
