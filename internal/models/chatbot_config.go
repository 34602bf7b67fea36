package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ChatbotConfigVersion is bumped whenever a field changes meaning.
const ChatbotConfigVersion = 1

// ChatbotConfig is the per-chatbot settings document stored as jsonb.
// Zero values are replaced by the defaults in DefaultChatbotConfig.
type ChatbotConfig struct {
	Version int `json:"version"`

	PrimaryColor   string `json:"primary_color,omitempty"`
	SecondaryColor string `json:"secondary_color,omitempty"`
	WelcomeMessage string `json:"welcome_message,omitempty"`
	Personality    string `json:"personality,omitempty"`
	AvatarURL      string `json:"avatar_url,omitempty"`

	VoiceEnabled       bool  `json:"voice_enabled"`
	SentimentAnalysis  *bool `json:"sentiment_analysis,omitempty"`
	CollectContactInfo bool  `json:"collect_contact_info"`
	// DomainSecurity makes the generated snippet carry a token.
	DomainSecurity bool `json:"domain_security"`
}

func DefaultChatbotConfig() ChatbotConfig {
	return ChatbotConfig{
		Version:        ChatbotConfigVersion,
		PrimaryColor:   "#4f46e5",
		SecondaryColor: "#ffffff",
		WelcomeMessage: "Hi! How can I help you today?",
		Personality:    "You are a friendly and helpful assistant.",
	}
}

// WithDefaults fills empty fields from DefaultChatbotConfig.
func (c ChatbotConfig) WithDefaults() ChatbotConfig {
	d := DefaultChatbotConfig()
	if c.Version == 0 {
		c.Version = d.Version
	}
	if c.PrimaryColor == "" {
		c.PrimaryColor = d.PrimaryColor
	}
	if c.SecondaryColor == "" {
		c.SecondaryColor = d.SecondaryColor
	}
	if c.WelcomeMessage == "" {
		c.WelcomeMessage = d.WelcomeMessage
	}
	if c.Personality == "" {
		c.Personality = d.Personality
	}
	return c
}

// SentimentEnabled defaults to true when unset.
func (c ChatbotConfig) SentimentEnabled() bool {
	return c.SentimentAnalysis == nil || *c.SentimentAnalysis
}

// Patch applies a partial JSON document on top of c. Unknown keys are rejected.
func (c ChatbotConfig) Patch(raw []byte) (ChatbotConfig, error) {
	next := c
	if c.SentimentAnalysis != nil {
		v := *c.SentimentAnalysis
		next.SentimentAnalysis = &v
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&next); err != nil {
		return c, fmt.Errorf("invalid configuration patch: %w", err)
	}
	next.Version = ChatbotConfigVersion
	return next.WithDefaults(), nil
}

// Helpers for the jsonb column.

func (c ChatbotConfig) MarshalColumn() ([]byte, error) {
	return json.Marshal(c)
}

func UnmarshalChatbotConfig(raw []byte) (ChatbotConfig, error) {
	var c ChatbotConfig
	if len(raw) == 0 {
		return DefaultChatbotConfig(), nil
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return c, err
	}
	return c.WithDefaults(), nil
}
