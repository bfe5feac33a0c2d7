package hcaptcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultVerifyURL = "https://hcaptcha.com/siteverify"

type Response struct {
	Success     bool     `json:"success"`
	ChallengeTS string   `json:"challenge_ts"`
	Hostname    string   `json:"hostname"`
	ErrorCodes  []string `json:"error-codes"`
}

// Verifier checks hCaptcha tokens. A Verifier without a secret is disabled.
type Verifier struct {
	SiteKey   string
	Secret    string
	VerifyURL string
	Client    *http.Client
}

func New(siteKey, secret string) *Verifier {
	return &Verifier{
		SiteKey:   strings.TrimSpace(siteKey),
		Secret:    strings.TrimSpace(secret),
		VerifyURL: defaultVerifyURL,
		Client:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Enabled reports whether signup must present a captcha.
func (v *Verifier) Enabled() bool {
	return v != nil && v.Secret != "" && v.SiteKey != ""
}

func (v *Verifier) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	if token == "" {
		return false, errors.New("hCaptcha token is empty")
	}
	if v.Secret == "" {
		return false, errors.New("hCaptcha secret is not set")
	}

	form := url.Values{
		"secret":   {v.Secret},
		"response": {token},
	}
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.VerifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.Client.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to send request to hCaptcha API: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var response Response
	if err := json.Unmarshal(body, &response); err != nil {
		return false, fmt.Errorf("failed to decode hCaptcha API response: %w", err)
	}

	if !response.Success {
		msg := "hCaptcha validation failed"
		if len(response.ErrorCodes) > 0 {
			msg += ": " + strings.Join(response.ErrorCodes, ", ")
		}
		return false, errors.New(msg)
	}
	return true, nil
}
