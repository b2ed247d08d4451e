package regulator

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/quantenergx/filing-gateway/internal/domain"
	"go.uber.org/zap"
)

// Config — реквизиты одного регулятора. Либо APIKey (заголовок),
// либо клиентский сертификат (mTLS для строгих регуляторов) — обязательно
// что-то одно.
type Config struct {
	BaseURL        string
	Timeout        time.Duration
	APIKey         string
	ClientCertPath string
	ClientKeyPath  string
	CACertPath     string
}

// HTTPClient — конкретный клиент одного регулятора. Конфигурация после
// конструктора read-only, поэтому экземпляр безопасно разделять между
// конкурентными подачами.
type HTTPClient struct {
	name    string
	baseURL string
	apiKey  string
	httpc   *http.Client
	logger  *zap.Logger
}

// NewHTTPClient валидирует реквизиты и собирает транспорт.
// Ошибка здесь = ConfigurationError: движок пометит регулятора как
// несконфигурированного и будет отклонять подачи без сетевых вызовов.
func NewHTTPClient(name string, cfg Config, logger *zap.Logger) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("regulator %s: base URL is required", name)
	}
	if cfg.APIKey == "" && cfg.ClientCertPath == "" {
		return nil, fmt.Errorf("regulator %s: either api_key or client certificate is required", name)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.ClientCertPath != "" {
		tlsCfg, err := buildTLSConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("regulator %s: %w", name, err)
		}
		transport.TLSClientConfig = tlsCfg
	}

	return &HTTPClient{
		name:    name,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		httpc: &http.Client{
			Timeout:   timeout,
			Transport: transport,
			// Транспорт не должен ретраить сам — учет попыток обязан
			// оставаться точным (одна попытка = один вызов Submit)
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger: logger.Named("regulator." + name),
	}, nil
}

func buildTLSConfig(cfg Config) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(cfg.ClientCertPath, cfg.ClientKeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load client certificate: %w", err)
	}
	tlsCfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
	if cfg.CACertPath != "" {
		caPEM, err := os.ReadFile(cfg.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caPEM) {
			return nil, fmt.Errorf("CA certificate %s contains no valid PEM data", cfg.CACertPath)
		}
		tlsCfg.RootCAs = pool
	}
	return tlsCfg, nil
}

// submitEnvelope — тело POST /submissions. submission_id дублируется
// в Idempotency-Key, чтобы регулятор дедуплицировал сетевые ретраи.
type submitEnvelope struct {
	SubmissionID string        `json:"submission_id"`
	Filing       domain.Filing `json:"filing"`
}

// Submit выполняет одну сетевую попытку подачи отчета
func (c *HTTPClient) Submit(ctx context.Context, f domain.Filing, submissionID string) (*Response, error) {
	body, err := json.Marshal(submitEnvelope{SubmissionID: submissionID, Filing: f})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal filing: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/submissions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", submissionID)
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("regulator %s unreachable: %w", c.name, err)
	}
	defer resp.Body.Close()

	if err := c.checkHTTPStatus(resp); err != nil {
		return nil, err
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("regulator %s returned malformed response: %w", c.name, err)
	}
	return &out, nil
}

// CheckStatus запрашивает статус ранее поданного отчета
func (c *HTTPClient) CheckStatus(ctx context.Context, submissionID string) (*Status, error) {
	url := fmt.Sprintf("%s/submissions/%s/status", c.baseURL, submissionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("regulator %s unreachable: %w", c.name, err)
	}
	defer resp.Body.Close()

	if err := c.checkHTTPStatus(resp); err != nil {
		return nil, err
	}

	var out Status
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("regulator %s returned malformed status: %w", c.name, err)
	}
	return &out, nil
}

// checkHTTPStatus разбирает не-2xx ответы. 429 превращаем в ThrottleError
// с Retry-After, остальные — в обычную ошибку (классификация 4xx/5xx
// сознательно не делается, см. Retry Controller).
func (c *HTTPClient) checkHTTPStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	base := fmt.Errorf("regulator %s returned HTTP %d: %s", c.name, resp.StatusCode, strings.TrimSpace(string(snippet)))

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := 5 * time.Second
		if v := resp.Header.Get("Retry-After"); v != "" {
			if secs, err := strconv.Atoi(v); err == nil {
				retryAfter = time.Duration(secs) * time.Second
			}
		}
		return &ThrottleError{RetryAfter: retryAfter, Cause: base}
	}

	c.logger.Warn("submission attempt rejected by transport", zap.Int("http_status", resp.StatusCode))
	return base
}
