package server

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

	"safesteps/backend/internal/config"
)

type VideoConversation struct {
	ID     string
	URL    string
	Status string
}

// VideoConversationProvider is the boundary to the external conversational
// video service: create a personalized conversation, end it when done.
type VideoConversationProvider interface {
	CreateConversation(ctx context.Context, name, conversationalContext string) (VideoConversation, error)
	EndConversation(ctx context.Context, conversationID string) error
}

type VideoHTTPClient struct {
	apiKey     string
	baseURL    string
	replicaID  string
	httpClient *http.Client
}

func NewVideoHTTPClient(cfg config.Config) *VideoHTTPClient {
	return &VideoHTTPClient{
		apiKey:    strings.TrimSpace(cfg.VideoAPIKey),
		baseURL:   strings.TrimRight(strings.TrimSpace(cfg.VideoBaseURL), "/"),
		replicaID: strings.TrimSpace(cfg.VideoReplicaID),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *VideoHTTPClient) CreateConversation(ctx context.Context, name, conversationalContext string) (VideoConversation, error) {
	if c.apiKey == "" {
		return VideoConversation{}, errors.New("VIDEO_API_KEY is not configured")
	}
	if c.baseURL == "" {
		return VideoConversation{}, errors.New("VIDEO_BASE_URL is not configured")
	}

	payload := map[string]any{
		"replica_id":             c.replicaID,
		"conversation_name":      strings.TrimSpace(name),
		"conversational_context": strings.TrimSpace(conversationalContext),
	}
	statusCode, body, err := c.post(ctx, "/conversations", payload)
	if err != nil {
		return VideoConversation{}, err
	}
	if statusCode < 200 || statusCode >= 300 {
		return VideoConversation{}, fmt.Errorf("video provider error (%d): %s", statusCode, strings.TrimSpace(string(body)))
	}

	var parsed struct {
		ConversationID  string `json:"conversation_id"`
		ConversationURL string `json:"conversation_url"`
		Status          string `json:"status"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return VideoConversation{}, fmt.Errorf("decode video provider response: %w", err)
	}
	if strings.TrimSpace(parsed.ConversationID) == "" || strings.TrimSpace(parsed.ConversationURL) == "" {
		return VideoConversation{}, errors.New("video provider response missing conversation id or url")
	}
	status := strings.TrimSpace(parsed.Status)
	if status == "" {
		status = "active"
	}
	return VideoConversation{
		ID:     parsed.ConversationID,
		URL:    parsed.ConversationURL,
		Status: status,
	}, nil
}

func (c *VideoHTTPClient) EndConversation(ctx context.Context, conversationID string) error {
	if c.apiKey == "" {
		return errors.New("VIDEO_API_KEY is not configured")
	}
	trimmed := strings.TrimSpace(conversationID)
	if trimmed == "" {
		return errors.New("conversation id is empty")
	}

	statusCode, body, err := c.post(ctx, "/conversations/"+trimmed+"/end", map[string]any{})
	if err != nil {
		return err
	}
	if statusCode < 200 || statusCode >= 300 {
		return fmt.Errorf("video provider error (%d): %s", statusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

func (c *VideoHTTPClient) post(ctx context.Context, path string, payload map[string]any) (int, []byte, error) {
	bodyRaw, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}

	request, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+path,
		bytes.NewReader(bodyRaw),
	)
	if err != nil {
		return 0, nil, err
	}
	request.Header.Set("x-api-key", c.apiKey)
	request.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return 0, nil, err
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return 0, nil, err
	}
	return response.StatusCode, responseBody, nil
}

type MockVideoClient struct{}

func (MockVideoClient) CreateConversation(_ context.Context, name, _ string) (VideoConversation, error) {
	id := "mock-conversation"
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		id = "mock-" + trimmed
	}
	return VideoConversation{
		ID:     id,
		URL:    "https://video.example.com/" + id,
		Status: "active",
	}, nil
}

func (MockVideoClient) EndConversation(_ context.Context, conversationID string) error {
	if strings.TrimSpace(conversationID) == "" {
		return errors.New("conversation id is empty")
	}
	return nil
}
