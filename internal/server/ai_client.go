package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"safesteps/backend/internal/config"
	"safesteps/backend/internal/safechat"
)

type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type AIModelRequest struct {
	SystemPrompt string
	Conversation []ChatTurn
	UserPrompt   string
}

type AIModelResponse struct {
	Answer string
	Model  string
}

type AIClient interface {
	Query(ctx context.Context, req AIModelRequest) (AIModelResponse, error)
}

// Strict thresholds: this assistant talks to children, so anything the
// provider flags as even low-risk is blocked upstream.
var geminiSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockLowAndAbove,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockLowAndAbove,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockLowAndAbove,
	},
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockLowAndAbove,
	},
}

type GeminiClient struct {
	client          *genai.Client
	model           string
	maxOutputTokens int
	timeout         time.Duration
}

func NewGeminiClient(ctx context.Context, cfg config.Config) (*GeminiClient, error) {
	apiKey := strings.TrimSpace(cfg.GeminiAPIKey)
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is not configured")
	}
	model := strings.TrimSpace(cfg.GeminiModel)
	if model == "" {
		return nil, errors.New("GEMINI_MODEL is not configured")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	timeoutSeconds := cfg.AITimeoutSeconds
	if timeoutSeconds <= 0 {
		timeoutSeconds = 20
	}
	return &GeminiClient{
		client:          client,
		model:           model,
		maxOutputTokens: cfg.AIMaxOutputTokens,
		timeout:         time.Duration(timeoutSeconds) * time.Second,
	}, nil
}

func (c *GeminiClient) Query(ctx context.Context, req AIModelRequest) (AIModelResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	contents := make([]*genai.Content, 0, len(req.Conversation)+1)
	for _, turn := range req.Conversation {
		text := strings.TrimSpace(turn.Content)
		if text == "" {
			continue
		}
		role := genai.RoleUser
		if isModelRole(turn.Role) {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: text}},
		})
	}
	userPrompt := strings.TrimSpace(req.UserPrompt)
	if userPrompt != "" {
		contents = append(contents, &genai.Content{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{{Text: userPrompt}},
		})
	}
	if len(contents) == 0 {
		return AIModelResponse{}, errors.New("gemini request input is empty")
	}

	generateConfig := &genai.GenerateContentConfig{
		SafetySettings:  geminiSafetySettings,
		MaxOutputTokens: int32(c.maxOutputTokens),
	}
	if systemPrompt := strings.TrimSpace(req.SystemPrompt); systemPrompt != "" {
		generateConfig.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, generateConfig)
	if err != nil {
		return AIModelResponse{}, fmt.Errorf("gemini generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return AIModelResponse{}, errors.New("gemini response is empty")
	}

	var builder strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Text == "" {
			continue
		}
		builder.WriteString(part.Text)
	}
	answer := strings.TrimSpace(builder.String())
	if answer == "" {
		return AIModelResponse{}, errors.New("gemini response answer is empty")
	}
	return AIModelResponse{Answer: answer, Model: c.model}, nil
}

func isModelRole(role string) bool {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "model", "assistant":
		return true
	default:
		return false
	}
}

type MockAIClient struct {
	Model string
}

func (m MockAIClient) Query(_ context.Context, req AIModelRequest) (AIModelResponse, error) {
	question := strings.TrimSpace(req.UserPrompt)
	if question == "" {
		question = "No question provided."
	}
	lowered := strings.ToLower(question)

	answer := "Mock response: " + question
	if strings.Contains(lowered, "bully") {
		answer = "Mock response: if someone keeps being mean on purpose, that's bullying. Tell a safe adult you trust."
	}
	if strings.Contains(lowered, "peer pressure") {
		answer = "Mock response: peer pressure is when friends push you to do something. You're allowed to say no."
	}

	model := strings.TrimSpace(m.Model)
	if model == "" {
		model = "gemini-mock"
	}
	return AIModelResponse{Answer: answer, Model: model}, nil
}

// aiCompleter adapts AIClient to the safechat generative boundary.
type aiCompleter struct {
	client AIClient
}

func (a *aiCompleter) Complete(ctx context.Context, systemPreamble string, turns safechat.History, newMessage string) (string, error) {
	conversation := make([]ChatTurn, 0, len(turns))
	for _, turn := range turns {
		conversation = append(conversation, ChatTurn{Role: turn.Role, Content: turn.Text})
	}
	resp, err := a.client.Query(ctx, AIModelRequest{
		SystemPrompt: systemPreamble,
		Conversation: conversation,
		UserPrompt:   newMessage,
	})
	if err != nil {
		return "", err
	}
	return resp.Answer, nil
}
