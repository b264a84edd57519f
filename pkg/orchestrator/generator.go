package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// Request is one prompt for the language model.
// A non-nil Schema asks for a JSON reply of that shape.
type Request struct {
	Prompt string
	Schema *genai.Schema
}

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// ErrEmptyResponse is returned when the model produced no candidates,
// typically because the prompt was blocked.
var ErrEmptyResponse = errors.New("orchestrator: model returned no content")

// GenAIGenerator calls Gemini through google.golang.org/genai.
type GenAIGenerator struct {
	client *genai.Client
	model  string
}

// GenAIConfig holds configuration for the Gemini generator.
type GenAIConfig struct {
	APIKey string
	Model  string // e.g. "gemini-2.5-flash"
}

// NewGenAIGenerator creates a Gemini-backed generator.
func NewGenAIGenerator(ctx context.Context, cfg GenAIConfig) (*GenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("orchestrator: GOOGLE_API_KEY not set")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("orchestrator: genai client: %w", err)
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &GenAIGenerator{client: client, model: model}, nil
}

// Model returns the configured model name.
func (g *GenAIGenerator) Model() string { return g.model }

// Generate sends req to the model and returns the first candidate's text.
func (g *GenAIGenerator) Generate(ctx context.Context, req Request) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
	}
	if req.Schema != nil {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = req.Schema
	}

	res, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), config)
	if err != nil {
		return "", fmt.Errorf("orchestrator: generate: %w", err)
	}

	if len(res.Candidates) == 0 || res.Candidates[0].Content == nil || len(res.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyResponse
	}

	var text string
	for _, p := range res.Candidates[0].Content.Parts {
		text += p.Text
	}
	return text, nil
}

var _ Generator = (*GenAIGenerator)(nil)

// =============================================================================
// Response schemas
// =============================================================================

var sceneSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"sceneDescription": {Type: genai.TypeString},
		"visualPrompt":     {Type: genai.TypeString},
		"emotionalState":   {Type: genai.TypeString},
		"environment":      {Type: genai.TypeString},
		"narrativeSummary": {Type: genai.TypeString},
	},
	Required:         []string{"sceneDescription", "visualPrompt", "emotionalState", "environment", "narrativeSummary"},
	PropertyOrdering: []string{"sceneDescription", "visualPrompt", "emotionalState", "environment", "narrativeSummary"},
}

var editSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"isValid": {Type: genai.TypeBoolean},
		"editType": {
			Type: genai.TypeString,
			Enum: []string{"emotion_change", "environment_change", "new_scene", "visual_adjustment", "invalid"},
		},
		"rejectionReason": {Type: genai.TypeString, Nullable: optional},
		"constraints": {
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		},
		"changes": {
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"emotionalState":    {Type: genai.TypeString, Nullable: optional},
				"environment":       {Type: genai.TypeString, Nullable: optional},
				"visualAdjustments": {Type: genai.TypeString, Nullable: optional},
			},
		},
		"narrativeDelta": {Type: genai.TypeString},
	},
	Required:         []string{"isValid", "editType", "narrativeDelta"},
	PropertyOrdering: []string{"isValid", "editType", "rejectionReason", "constraints", "changes", "narrativeDelta"},
}

var optional = func() *bool { b := true; return &b }()
