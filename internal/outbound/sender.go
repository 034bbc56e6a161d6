package outbound

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

	"go.uber.org/zap"

	"github.com/spec-kit/cobranza-service/internal/config"
)

// Sender delivers an outbound message to a channel identity. Implementations
// own their retry policy; callers treat Send as a single hand-off.
type Sender interface {
	Send(ctx context.Context, identity, text string) error
}

type httpSender struct {
	baseURL    string
	token      string
	maxRetries int
	backoff    time.Duration
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPSender builds a Sender posting to the channel gateway with
// bounded retries and linear backoff.
func NewHTTPSender(cfg config.OutboundConfig, logger *zap.Logger) Sender {
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &httpSender{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		maxRetries: maxRetries,
		backoff:    cfg.Backoff(),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

func (s *httpSender) Send(ctx context.Context, identity, text string) error {
	if s.baseURL == "" {
		// No gateway configured (local runs): log the message instead of
		// failing every delivery.
		s.logger.Info("outbound send skipped, no gateway configured",
			zap.String("to", identity),
			zap.Int("chars", len(text)))
		return nil
	}
	if strings.TrimSpace(text) == "" {
		return errors.New("outbound: refusing to send empty message")
	}

	payload, err := json.Marshal(map[string]string{"to": identity, "text": text})
	if err != nil {
		return fmt.Errorf("outbound: encode message: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * s.backoff):
			}
		}
		lastErr = s.sendOnce(ctx, payload)
		if lastErr == nil {
			return nil
		}
		s.logger.Warn("outbound send attempt failed",
			zap.String("to", identity),
			zap.Int("attempt", attempt+1),
			zap.Error(lastErr))
	}
	return fmt.Errorf("outbound: send to %s exhausted retries: %w", identity, lastErr)
}

func (s *httpSender) sendOnce(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("gateway status %d: %s", resp.StatusCode, string(snippet))
	}
	return nil
}
