package reply

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-companion/pkg/conversation"
	"github.com/teslashibe/go-companion/pkg/inference"
)

func TestGenerate(t *testing.T) {
	mock := inference.WithReply("  I'm here with you.  ")
	g, err := New(mock)
	require.NoError(t, err)

	now := time.Now()
	history := []conversation.Turn{
		conversation.UserTurn("I had a rough week", now),
		conversation.AssistantTurn("That sounds hard.", now),
	}

	text, err := g.Generate(context.Background(), Request{
		History:   history,
		Utterance: "I feel anxious today",
		Language:  "en",
	})
	require.NoError(t, err)
	assert.Equal(t, "I'm here with you.", text)

	req := mock.LastRequest()
	require.NotNil(t, req)
	require.Len(t, req.Messages, 4)
	assert.Equal(t, inference.RoleSystem, req.Messages[0].Role)
	assert.Equal(t, builtinTemplates["en"], req.Messages[0].Content)
	assert.Equal(t, inference.NewUserMessage("I had a rough week"), req.Messages[1])
	assert.Equal(t, inference.NewAssistantMessage("That sounds hard."), req.Messages[2])
	assert.Equal(t, inference.NewUserMessage("I feel anxious today"), req.Messages[3])
}

func TestTemplateSelection(t *testing.T) {
	g, err := New(inference.NewMock(), WithTemplates(map[string]string{"EN": "custom english"}))
	require.NoError(t, err)

	t.Run("french uses french template", func(t *testing.T) {
		assert.Equal(t, builtinTemplates["fr"], g.Template("fr"))
	})
	t.Run("override", func(t *testing.T) {
		assert.Equal(t, "custom english", g.Template("en"))
	})
	t.Run("unknown language falls back to default", func(t *testing.T) {
		assert.Equal(t, "custom english", g.Template("xx"))
	})
	t.Run("catalog language without template", func(t *testing.T) {
		assert.Equal(t, "custom english\n\nAlways reply in Arabic.", g.Template("ar"))
	})
}

func TestGenerateUsesLanguageTemplate(t *testing.T) {
	mock := inference.WithReply("Je suis là pour vous.")
	g, err := New(mock)
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), Request{Utterance: "Je suis triste", Language: "fr"})
	require.NoError(t, err)
	assert.Equal(t, builtinTemplates["fr"], mock.LastRequest().Messages[0].Content)
	assert.NotEqual(t, builtinTemplates["en"], mock.LastRequest().Messages[0].Content)
}

func TestGenerateProfile(t *testing.T) {
	mock := inference.WithReply("ok")
	g, err := New(mock, WithProfiles(StaticProfiles{
		"u1": {PreferredName: "Sam", Interests: "hiking"},
	}))
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), Request{UserID: "u1", Utterance: "hi there", Language: "en"})
	require.NoError(t, err)
	system := mock.LastRequest().Messages[0].Content
	assert.Contains(t, system, "Preferred name: Sam")
	assert.Contains(t, system, "Interests: hiking")
	assert.NotContains(t, system, "Emotional needs")

	_, err = g.Generate(context.Background(), Request{UserID: "u2", Utterance: "hi there", Language: "en"})
	require.NoError(t, err)
	assert.Equal(t, builtinTemplates["en"], mock.LastRequest().Messages[0].Content)
}

func TestGenerateErrors(t *testing.T) {
	t.Run("provider error", func(t *testing.T) {
		boom := &inference.APIError{StatusCode: 500, Message: "down", Provider: "client"}
		g, _ := New(inference.WithError(boom))
		_, err := g.Generate(context.Background(), Request{Utterance: "hello", Language: "en"})
		assert.ErrorIs(t, err, ErrGenerationUnavailable)
		var apiErr *inference.APIError
		assert.True(t, errors.As(err, &apiErr))
	})

	t.Run("timeout", func(t *testing.T) {
		slow := &inference.Mock{ChatFunc: func(ctx context.Context, _ *inference.ChatRequest) (*inference.ChatResponse, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}}
		g, _ := New(slow, WithTimeout(20*time.Millisecond))
		_, err := g.Generate(context.Background(), Request{Utterance: "hello", Language: "en"})
		assert.ErrorIs(t, err, ErrGenerationTimeout)
	})

	t.Run("caller cancellation is not a timeout", func(t *testing.T) {
		g, _ := New(inference.WithError(context.Canceled))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := g.Generate(ctx, Request{Utterance: "hello", Language: "en"})
		assert.ErrorIs(t, err, ErrGenerationUnavailable)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("empty reply", func(t *testing.T) {
		g, _ := New(inference.WithReply("   "))
		_, err := g.Generate(context.Background(), Request{Utterance: "hello", Language: "en"})
		assert.ErrorIs(t, err, ErrGenerationUnavailable)
	})

	t.Run("empty utterance", func(t *testing.T) {
		mock := inference.NewMock()
		g, _ := New(mock)
		_, err := g.Generate(context.Background(), Request{Utterance: " ", Language: "en"})
		assert.ErrorIs(t, err, ErrEmptyUtterance)
		assert.Equal(t, 0, mock.CallCount("Chat"))
	})

	t.Run("single attempt", func(t *testing.T) {
		mock := inference.WithError(errors.New("boom"))
		g, _ := New(mock)
		_, _ = g.Generate(context.Background(), Request{Utterance: "hello", Language: "en"})
		assert.Equal(t, 1, mock.CallCount("Chat"))
	})

	t.Run("nil provider", func(t *testing.T) {
		_, err := New(nil)
		assert.ErrorIs(t, err, ErrNoProvider)
	})
}

func TestIsCrisis(t *testing.T) {
	assert.True(t, IsCrisis("Sometimes I want to die"))
	assert.True(t, IsCrisis("J'ai envie de mourir"))
	assert.True(t, IsCrisis("QUIERO MORIR"))
	assert.False(t, IsCrisis("I feel anxious today"))
}
