// Package assist talks to the generative-language service that rewrites
// drafts.
package assist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-3-flash-preview"
)

const editorInstruction = `You are a professional IT editor. Improve the following article.
Make the title more catchy and professional.
Fix grammar, improve style and flow of the content while keeping the original meaning.

Input Title: %s
Input Content: %s`

// Improvement is the only response shape the service may return.
type Improvement struct {
	ImprovedTitle    string   `json:"improvedTitle"`
	ImprovedContent  string   `json:"improvedContent"`
	SuggestedSummary string   `json:"suggestedSummary"`
	SuggestedTags    []string `json:"suggestedTags"`
}

// Improver is what the composer needs from the service.
type Improver interface {
	Improve(ctx context.Context, title, content string) (*Improvement, error)
}

var responseSchema = map[string]interface{}{
	"type": "OBJECT",
	"properties": map[string]interface{}{
		"improvedTitle":    map[string]interface{}{"type": "STRING"},
		"improvedContent":  map[string]interface{}{"type": "STRING"},
		"suggestedSummary": map[string]interface{}{"type": "STRING"},
		"suggestedTags": map[string]interface{}{
			"type":  "ARRAY",
			"items": map[string]interface{}{"type": "STRING"},
		},
	},
	"required": []string{"improvedTitle", "improvedContent", "suggestedSummary", "suggestedTags"},
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseMimeType string                 `json:"responseMimeType"`
	ResponseSchema   map[string]interface{} `json:"responseSchema"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// GeminiClient calls the generateContent endpoint once per Improve. There
// is no retry and no client timeout; the caller's context bounds the call.
type GeminiClient struct {
	BaseURL string
	Model   string
	APIKey  string
	Client  *http.Client
}

func NewGeminiClient(baseURL, model, apiKey string) *GeminiClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &GeminiClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		APIKey:  apiKey,
		Client:  &http.Client{},
	}
}

func (g *GeminiClient) Improve(ctx context.Context, title, body string) (*Improvement, error) {
	if strings.TrimSpace(g.APIKey) == "" {
		return nil, &Error{Kind: KindCredential, Err: ErrMissingAPIKey}
	}

	reqBody := generateRequest{
		Contents: []content{{
			Role:  "user",
			Parts: []part{{Text: fmt.Sprintf(editorInstruction, title, body)}},
		}},
		GenerationConfig: generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   responseSchema,
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, newError(KindTransport, "marshal generate request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.BaseURL, g.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, newError(KindTransport, "create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.APIKey)

	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, newError(KindTransport, "call generate endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return nil, newError(KindCredential, "generate endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
		return nil, newError(KindTransport, "generate endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return nil, newError(KindSchema, "decode generate response: %w", err)
	}
	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return nil, newError(KindSchema, "generate response has no candidates")
	}

	var text strings.Builder
	for _, p := range genResp.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}

	improvement, err := DecodeImprovement([]byte(text.String()))
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"model": g.Model,
		"tags":  len(improvement.SuggestedTags),
	}).Debug("Draft improvement received")
	return improvement, nil
}

// DecodeImprovement parses the model's JSON answer. All four fields must
// be present and of the right type; a partial answer is rejected whole.
func DecodeImprovement(raw []byte) (*Improvement, error) {
	var probe struct {
		ImprovedTitle    *string   `json:"improvedTitle"`
		ImprovedContent  *string   `json:"improvedContent"`
		SuggestedSummary *string   `json:"suggestedSummary"`
		SuggestedTags    *[]string `json:"suggestedTags"`
	}
	if err := json.Unmarshal(bytes.TrimSpace(raw), &probe); err != nil {
		return nil, newError(KindSchema, "decode improvement: %w", err)
	}

	var missing []string
	if probe.ImprovedTitle == nil {
		missing = append(missing, "improvedTitle")
	}
	if probe.ImprovedContent == nil {
		missing = append(missing, "improvedContent")
	}
	if probe.SuggestedSummary == nil {
		missing = append(missing, "suggestedSummary")
	}
	if probe.SuggestedTags == nil {
		missing = append(missing, "suggestedTags")
	}
	if len(missing) > 0 {
		return nil, newError(KindSchema, "improvement is missing %s", strings.Join(missing, ", "))
	}

	return &Improvement{
		ImprovedTitle:    *probe.ImprovedTitle,
		ImprovedContent:  *probe.ImprovedContent,
		SuggestedSummary: *probe.SuggestedSummary,
		SuggestedTags:    append([]string{}, (*probe.SuggestedTags)...),
	}, nil
}

var _ Improver = (*GeminiClient)(nil)
