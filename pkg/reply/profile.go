package reply

import (
	"context"
	"strings"
)

// Profile is optional user context appended to the instruction preamble.
type Profile struct {
	PreferredName  string `mapstructure:"preferred_name" json:"preferred_name,omitempty"`
	Interests      string `mapstructure:"interests" json:"interests,omitempty"`
	EmotionalNeeds string `mapstructure:"emotional_needs" json:"emotional_needs,omitempty"`
}

// Empty reports whether the profile carries no context.
func (p Profile) Empty() bool {
	return p.PreferredName == "" && p.Interests == "" && p.EmotionalNeeds == ""
}

func (p Profile) render() string {
	var b strings.Builder
	b.WriteString("\n\nAbout the person you are talking with:")
	if p.PreferredName != "" {
		b.WriteString("\n- Preferred name: " + p.PreferredName)
	}
	if p.Interests != "" {
		b.WriteString("\n- Interests: " + p.Interests)
	}
	if p.EmotionalNeeds != "" {
		b.WriteString("\n- Emotional needs: " + p.EmotionalNeeds)
	}
	return b.String()
}

// ProfileSource looks up user context.
type ProfileSource interface {
	Profile(ctx context.Context, userID string) (Profile, bool, error)
}

// StaticProfiles is a ProfileSource backed by a map.
type StaticProfiles map[string]Profile

// Profile implements ProfileSource.
func (s StaticProfiles) Profile(_ context.Context, userID string) (Profile, bool, error) {
	p, ok := s[userID]
	return p, ok, nil
}
