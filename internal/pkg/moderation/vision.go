package moderation

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/ManuelReschke/TazaQala/app/models"
	"github.com/ManuelReschke/TazaQala/internal/pkg/config"
)

const visionPrompt = `Analyse this photo of a city location and decide:
1. Is there litter, illegal dumping or vandalism visible? (true/false)
2. If yes, the dominant type: plastic, metal, organic, mixed, construction, vandalism or none.
3. A confidence between 0 and 1 that this is a real problem for the city.
Reply ONLY with JSON:
{"trash_detected": true, "trash_type": "plastic", "confidence": 0.85, "reason": "short explanation"}`

// VisionGateway asks an OpenAI compatible chat completions endpoint to
// classify the photo.
type VisionGateway struct {
	endpoint string
	model    string
	apiKey   string
	baseDir  string
	policy   Policy
	client   *http.Client
}

// NewVisionGateway builds a gateway from the moderation settings.
func NewVisionGateway(cfg config.Moderation, baseDir string, client *http.Client) *VisionGateway {
	if client == nil {
		client = http.DefaultClient
	}
	return &VisionGateway{
		endpoint: cfg.VisionEndpoint,
		model:    cfg.VisionModel,
		apiKey:   cfg.VisionAPIKey,
		baseDir:  baseDir,
		policy:   PolicyFromConfig(cfg),
		client:   client,
	}
}

func (v *VisionGateway) Name() string { return "vision" }

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type visionVerdict struct {
	TrashDetected bool     `json:"trash_detected"`
	TrashType     string   `json:"trash_type"`
	Confidence    *float64 `json:"confidence"`
	Reason        string   `json:"reason"`
}

var visionCategories = map[string]string{
	"plastic":      models.CategoryPlastic,
	"metal":        models.CategoryMetal,
	"organic":      models.CategoryOrganic,
	"mixed":        models.CategoryMixed,
	"construction": models.CategoryConstruction,
	"vandalism":    models.CategoryVandalism,
	"none":         models.CategoryNone,
}

// Analyze uploads the photo inline as a data URI and parses the JSON verdict.
func (v *VisionGateway) Analyze(ctx context.Context, photoRef string) (Result, error) {
	data, err := os.ReadFile(resolvePhoto(v.baseDir, photoRef))
	if err != nil {
		return Result{}, err
	}
	mime := http.DetectContentType(data)

	body, err := json.Marshal(chatRequest{
		Model: v.model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: visionPrompt},
				{Type: "image_url", ImageURL: &imageURL{
					URL: "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data),
				}},
			},
		}},
		MaxTokens: 300,
	})
	if err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+v.apiKey)

	resp, err := v.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("failed to send request to vision API: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("vision API returned %d", resp.StatusCode)
	}

	var chat chatResponse
	if err := json.Unmarshal(payload, &chat); err != nil {
		return Result{}, fmt.Errorf("failed to decode vision API response: %w", err)
	}
	if len(chat.Choices) == 0 {
		return Result{}, fmt.Errorf("vision API returned no choices")
	}

	content := stripCodeFence(chat.Choices[0].Message.Content)
	var verdict visionVerdict
	if err := json.Unmarshal([]byte(content), &verdict); err != nil {
		return Result{}, fmt.Errorf("malformed vision verdict: %w", err)
	}
	if verdict.Confidence == nil {
		return Result{}, fmt.Errorf("vision verdict without confidence")
	}
	confidence := *verdict.Confidence
	if confidence < 0 || confidence > 1 {
		return Result{}, fmt.Errorf("vision confidence %v out of range", confidence)
	}

	category, ok := visionCategories[strings.ToLower(strings.TrimSpace(verdict.TrashType))]
	if !ok {
		category = models.CategoryMixed
	}

	return Result{
		Confidence: round2(confidence),
		Status:     v.policy.Classify(confidence, verdict.TrashDetected),
		Category:   category,
		Raw:        content,
	}, nil
}

// stripCodeFence removes a surrounding markdown code block, which chat
// models add despite instructions.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// NewGateway selects the backend configured in cfg.
func NewGateway(cfg config.Config, client *http.Client) Gateway {
	if cfg.Moderation.Backend == config.ModerationBackendVision {
		return NewVisionGateway(cfg.Moderation, cfg.UploadDir, client)
	}
	return NewHeuristicGateway(cfg.UploadDir, PolicyFromConfig(cfg.Moderation))
}
