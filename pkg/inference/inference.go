// Package inference provides a unified interface for text generation.
//
// The package abstracts chat completions behind a single Provider interface,
// enabling switching between OpenAI-compatible APIs (OpenAI, Ollama, vLLM,
// Groq, ...) and Google Gemini. Providers perform exactly one attempt per
// call; retry policy belongs to callers.
//
// Example usage:
//
//	client, _ := inference.NewClient(
//	    inference.WithAPIKey(os.Getenv("OPENAI_API_KEY")),
//	    inference.WithModel("gpt-4o-mini"),
//	)
//	defer client.Close()
//
//	resp, _ := client.Chat(ctx, &inference.ChatRequest{
//	    Messages: []inference.Message{
//	        inference.NewSystemMessage("You are a supportive companion."),
//	        inference.NewUserMessage("I feel anxious today"),
//	    },
//	})
package inference

import "context"

// Provider is the unified text-generation interface.
type Provider interface {
	// Name identifies the provider in logs and errors.
	Name() string

	// Chat generates a response from a sequence of messages.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Close releases any resources held by the provider.
	Close() error
}

// ChatRequest for chat completions.
type ChatRequest struct {
	// Messages is the conversation, system message first.
	Messages []Message

	// Model overrides the default model.
	Model string

	// MaxTokens limits the response length.
	MaxTokens int

	// Temperature controls randomness (0.0-2.0).
	Temperature float64

	// PresencePenalty discourages revisiting topics.
	PresencePenalty float64

	// FrequencyPenalty discourages repetition.
	FrequencyPenalty float64
}

// ChatResponse from chat completion.
type ChatResponse struct {
	// Message is the assistant's response.
	Message Message

	// FinishReason indicates why generation stopped.
	FinishReason string

	// Usage tracks token consumption.
	Usage Usage

	// Model used for generation.
	Model string

	// LatencyMs is the response time in milliseconds.
	LatencyMs int64
}

// Usage tracks token consumption for billing and limits.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
