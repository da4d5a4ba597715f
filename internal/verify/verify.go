// Package verify checks anti-automation challenge tokens against a
// Turnstile-compatible siteverify endpoint.
package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/edgard/relaybot/internal/errors"
)

//go:generate go run go.uber.org/mock/mockgen -source=verify.go -destination=mocks/mock_verifier.go -package=mocks

// Verifier validates a challenge token.
type Verifier interface {
	// Verify reports whether the provider accepted token. A non-nil error
	// means the provider could not be asked.
	Verify(ctx context.Context, token, remoteIP string) (bool, error)
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
	Hostname   string   `json:"hostname"`
}

// TurnstileVerifier posts tokens to a siteverify endpoint.
type TurnstileVerifier struct {
	endpoint string
	secret   string
	client   *http.Client
	logger   *slog.Logger
}

// NewTurnstileVerifier creates a verifier with a bounded request timeout.
func NewTurnstileVerifier(endpoint, secret string, timeout time.Duration, logger *slog.Logger) *TurnstileVerifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &TurnstileVerifier{
		endpoint: endpoint,
		secret:   secret,
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With("component", "verifier"),
	}
}

// Verify sends the token and returns the provider verdict.
func (v *TurnstileVerifier) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return false, nil
	}

	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return false, apperrors.NewExternalAPIError("failed to build siteverify request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		v.logger.ErrorContext(ctx, "Siteverify request failed", "error", err)
		return false, apperrors.NewExternalAPIError("siteverify request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return false, apperrors.NewExternalAPIError(fmt.Sprintf("siteverify returned status %d", resp.StatusCode), nil)
	}

	var result siteverifyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&result); err != nil {
		return false, apperrors.NewExternalAPIError("failed to decode siteverify response", err)
	}

	if !result.Success {
		v.logger.InfoContext(ctx, "Challenge token rejected", "error_codes", result.ErrorCodes)
	}
	return result.Success, nil
}
