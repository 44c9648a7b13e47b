// Package reply turns bounded conversation history and a new utterance into
// an empathetic reply in the user's language.
package reply

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/teslashibe/go-companion/pkg/conversation"
	"github.com/teslashibe/go-companion/pkg/inference"
	"github.com/teslashibe/go-companion/pkg/language"
)

// Request is one generation input.
type Request struct {
	// UserID selects the optional profile.
	UserID string

	// History is the session's bounded history in chronological order.
	History []conversation.Turn

	// Utterance is the new user text.
	Utterance string

	// Language selects the instruction preamble.
	Language string
}

// Generator builds prompts and delegates to an inference provider.
type Generator struct {
	cfg       *Config
	provider  inference.Provider
	templates map[string]string
	logger    *slog.Logger
}

// New creates a Generator.
func New(provider inference.Provider, opts ...Option) (*Generator, error) {
	if provider == nil {
		return nil, ErrNoProvider
	}
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	templates := make(map[string]string, len(builtinTemplates)+len(cfg.Templates))
	for code, t := range builtinTemplates {
		templates[code] = t
	}
	for code, t := range cfg.Templates {
		if strings.TrimSpace(t) != "" {
			templates[strings.ToLower(code)] = t
		}
	}
	if _, ok := templates[cfg.DefaultLanguage]; !ok {
		cfg.DefaultLanguage = "en"
	}

	return &Generator{
		cfg:       cfg,
		provider:  provider,
		templates: templates,
		logger:    cfg.Logger.With("component", "reply.generator", "provider", provider.Name()),
	}, nil
}

// Template returns the instruction preamble for a language. Catalog
// languages without their own template get the default template with an
// explicit reply-language line; anything else gets the default template.
func (g *Generator) Template(lang string) string {
	if t, ok := g.templates[lang]; ok {
		return t
	}
	base := g.templates[g.cfg.DefaultLanguage]
	if info, ok := language.Lookup(lang); ok {
		return base + "\n\nAlways reply in " + info.Name + "."
	}
	return base
}

// Messages assembles the chat prompt: preamble, history, utterance.
func (g *Generator) Messages(req Request, profile *Profile) []inference.Message {
	preamble := g.Template(req.Language)
	if profile != nil && !profile.Empty() {
		preamble += profile.render()
	}

	msgs := make([]inference.Message, 0, len(req.History)+2)
	msgs = append(msgs, inference.NewSystemMessage(preamble))
	for _, t := range req.History {
		switch t.Role {
		case conversation.RoleUser:
			msgs = append(msgs, inference.NewUserMessage(t.Text))
		case conversation.RoleAssistant:
			msgs = append(msgs, inference.NewAssistantMessage(t.Text))
		}
	}
	return append(msgs, inference.NewUserMessage(req.Utterance))
}

// Generate produces a reply. It makes exactly one provider call, bounded by
// the configured timeout.
func (g *Generator) Generate(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Utterance) == "" {
		return "", ErrEmptyUtterance
	}

	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := g.provider.Chat(ctx, &inference.ChatRequest{
		Messages: g.Messages(req, g.profile(ctx, req.UserID)),
	})
	if err != nil {
		err = classify(ctx, err)
		g.logger.Warn("generation failed", "language", req.Language, "error", err, "elapsed", time.Since(start))
		return "", err
	}

	text := strings.TrimSpace(resp.Message.Content)
	if text == "" {
		return "", classify(ctx, inference.ErrEmptyResponse)
	}

	g.logger.Debug("reply generated",
		"language", req.Language,
		"history", len(req.History),
		"tokens", resp.Usage.TotalTokens,
		"elapsed", time.Since(start),
	)
	return text, nil
}

func (g *Generator) profile(ctx context.Context, userID string) *Profile {
	if g.cfg.Profiles == nil || userID == "" {
		return nil
	}
	p, ok, err := g.cfg.Profiles.Profile(ctx, userID)
	if err != nil {
		g.logger.Warn("profile lookup failed", "user_id", userID, "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	return &p
}
