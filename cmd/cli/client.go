package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"itpulse/internal/auth"
)

// tokenData is what the CLI remembers between runs.
type tokenData struct {
	Token    string `json:"token"`
	ClientID string `json:"client_id,omitempty"`
}

type apiClient struct {
	BaseURL   string
	TokenPath string
	HTTP      *http.Client
}

func (a *apiClient) doJSON(ctx context.Context, method, endpoint string, payload any, out any) error {
	td, _ := readToken(a.TokenPath)
	_, err := a.do(ctx, method, endpoint, td, payload, out)
	return err
}

func (a *apiClient) do(ctx context.Context, method, endpoint string, td tokenData, payload any, out any) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = strings.NewReader(string(b))
	}
	req, err := http.NewRequestWithContext(ctx, method, a.BaseURL+endpoint, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if td.Token != "" {
		req.Header.Set("Authorization", "Bearer "+td.Token)
	}
	if td.ClientID != "" {
		req.AddCookie(&http.Cookie{Name: auth.ClientCookie, Value: td.ClientID})
	}

	resp, err := a.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, err
	}
	if resp.StatusCode >= 300 {
		return resp, apiError(method, endpoint, resp.StatusCode, data)
	}
	if out == nil {
		return resp, nil
	}
	return resp, json.Unmarshal(data, out)
}

// apiError turns an error body into a readable message. A sign-in prompt
// from the server becomes a hint to run the signin command.
func apiError(method, endpoint string, status int, data []byte) error {
	var body struct {
		Error   string   `json:"error"`
		Prompt  string   `json:"prompt"`
		Missing []string `json:"missing"`
	}
	if err := json.Unmarshal(data, &body); err != nil || body.Error == "" {
		return fmt.Errorf("%s %s failed: %d %s", method, endpoint, status, strings.TrimSpace(string(data)))
	}
	switch {
	case body.Prompt != "":
		return fmt.Errorf("%s: run `itpulse signin --email you@example.com` first", body.Error)
	case len(body.Missing) > 0:
		return fmt.Errorf("%s (missing: %s)", body.Error, strings.Join(body.Missing, ", "))
	default:
		return fmt.Errorf("%s %s failed: %s", method, endpoint, body.Error)
	}
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./.itpulse-token.json"
	}
	return filepath.Join(home, ".itpulse", "token.json")
}

func saveToken(path string, td tokenData) error {
	if td.Token == "" {
		return errors.New("empty token")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(td, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func readToken(path string) (tokenData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tokenData{}, err
	}
	var td tokenData
	if err := json.Unmarshal(data, &td); err != nil {
		return tokenData{}, err
	}
	td.Token = strings.TrimSpace(td.Token)
	return td, nil
}

// clearToken forgets the session but keeps the client id, so the stored
// theme still applies to the next session.
func clearToken(path string) error {
	td, err := readToken(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if td.ClientID == "" {
		return os.Remove(path)
	}
	data, err := json.MarshalIndent(tokenData{ClientID: td.ClientID}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("json: %w", err)
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
