// Package ollama provides generation and vision adapters backed by a local
// Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/halcyonworks/agentroute"
)

const (
	// DefaultBaseURL is the standard local Ollama endpoint.
	DefaultBaseURL = "http://localhost:11434"
	// DefaultChatModel is used when no model is configured.
	DefaultChatModel = "llama3.2"
)

const systemPrompt = "You are a helpful assistant. Answer based on the provided context when it is " +
	"given; say so when the context does not cover the question."

// Generator implements agentroute.Generator via the Ollama chat API.
type Generator struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewGenerator creates a chat-backed generator. Empty arguments select the
// defaults.
func NewGenerator(baseURL, model string) *Generator {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultChatModel
	}
	return &Generator{
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 300 * time.Second},
	}
}

// chatMessage is one turn in the Ollama chat API.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the Ollama chat API request.
type chatRequest struct {
	Model    string                 `json:"model"`
	Messages []chatMessage          `json:"messages"`
	Stream   bool                   `json:"stream"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

// chatResponse is the Ollama chat API response.
type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
}

// Generate answers the query grounded on retrieved chunks and recent history.
func (g *Generator) Generate(ctx context.Context, query string, chunks []agentroute.ContextChunk, history []agentroute.HistoryTurn) (string, error) {
	messages := make([]chatMessage, 0, len(history)+2)
	messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})

	for _, turn := range history {
		messages = append(messages, chatMessage{Role: turn.Role, Content: turn.Content})
	}

	messages = append(messages, chatMessage{Role: "user", Content: buildPrompt(query, chunks)})

	return g.chat(ctx, messages)
}

// GenerateDirect answers a bare prompt with no retrieved context.
func (g *Generator) GenerateDirect(ctx context.Context, prompt string) (string, error) {
	messages := []chatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: prompt},
	}
	return g.chat(ctx, messages)
}

// buildPrompt prefixes the query with one block per retrieved document.
func buildPrompt(query string, chunks []agentroute.ContextChunk) string {
	if len(chunks) == 0 {
		return query
	}

	var sb strings.Builder
	sb.WriteString("Context:\n\n")
	for _, chunk := range chunks {
		fmt.Fprintf(&sb, "Document: %s\n%s\n\n", chunk.SourceID, chunk.Text)
	}
	sb.WriteString("Question: ")
	sb.WriteString(query)
	return sb.String()
}

func (g *Generator) chat(ctx context.Context, messages []chatMessage) (string, error) {
	reqBody := chatRequest{
		Model:    g.model,
		Messages: messages,
		Stream:   false,
		Options: map[string]interface{}{
			"temperature": 0.7,
			"top_p":       0.9,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", agentroute.NewGenerationError("marshaling chat request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/chat", bytes.NewReader(jsonData))
	if err != nil {
		return "", agentroute.NewGenerationError("creating chat request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		// The server could not be reached at all.
		return "", agentroute.NewBackendUnavailableError("generation", "ollama", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return "", agentroute.NewBackendUnavailableError("generation", "ollama",
			fmt.Errorf("ollama returned status %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return "", agentroute.NewGenerationError(fmt.Sprintf("ollama returned status %d", resp.StatusCode), nil)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", agentroute.NewGenerationError("decoding chat response", err)
	}

	return strings.TrimSpace(chatResp.Message.Content), nil
}
