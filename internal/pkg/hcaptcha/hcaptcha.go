package hcaptcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ManuelReschke/TazaQala/internal/pkg/env"
)

const DefaultEndpoint = "https://hcaptcha.com/siteverify"

var ErrEmptyToken = errors.New("hCaptcha token is empty")

type Response struct {
	Success     bool     `json:"success"`
	ChallengeTS string   `json:"challenge_ts"`
	Hostname    string   `json:"hostname"`
	ErrorCodes  []string `json:"error-codes"`
}

// Verifier checks hCaptcha tokens. A verifier without secret is disabled
// and accepts every request.
type Verifier struct {
	secret   string
	endpoint string
	client   *http.Client
}

// New creates a verifier. A nil client uses a client with a 10s timeout.
func New(secret, endpoint string, client *http.Client) *Verifier {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Verifier{secret: secret, endpoint: endpoint, client: client}
}

// FromEnv reads HCAPTCHA_SECRET.
func FromEnv() *Verifier {
	return New(env.GetEnv("HCAPTCHA_SECRET", ""), env.GetEnv("HCAPTCHA_VERIFY_URL", ""), nil)
}

// Enabled reports whether tokens are checked at all.
func (v *Verifier) Enabled() bool {
	return v != nil && v.secret != ""
}

// Verify asks the hCaptcha API whether token is valid.
func (v *Verifier) Verify(ctx context.Context, token string) (bool, error) {
	if !v.Enabled() {
		return true, nil
	}
	if token == "" {
		return false, ErrEmptyToken
	}

	formData := url.Values{
		"secret":   {v.secret},
		"response": {token},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, strings.NewReader(formData.Encode()))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to send request to hCaptcha API: %w", err)
	}
	defer resp.Body.Close()

	var response Response
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return false, fmt.Errorf("failed to decode hCaptcha API response: %w", err)
	}

	if !response.Success {
		errorMsg := "hCaptcha validation failed"
		if len(response.ErrorCodes) > 0 {
			errorMsg = errorMsg + ": " + strings.Join(response.ErrorCodes, ", ")
		}
		return false, errors.New(errorMsg)
	}

	return true, nil
}
