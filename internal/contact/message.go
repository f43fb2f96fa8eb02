package contact

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Field limits applied before a message is accepted. Overlong optional
// metadata is clamped; overlong required fields are rejected.
const (
	maxNameLen    = 80
	maxEmailLen   = 120
	maxMessageLen = 4000
	maxMetaLen    = 300
)

// Submission is the raw payload from the contact form. Website is a honeypot
// field hidden from humans; bots that fill it get a silent accept.
type Submission struct {
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Message   string  `json:"message"`
	Consent   bool    `json:"consent"`
	Website   string  `json:"website"`
	PageURL   *string `json:"page_url,omitempty"`
	UserAgent *string `json:"user_agent,omitempty"`
}

// Message is a validated submission ready for a Sink.
type Message struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	Consent   bool      `json:"consent"`
	PageURL   *string   `json:"page_url,omitempty"`
	UserAgent *string   `json:"user_agent,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidationError carries the offending field for API error payloads.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("contact: invalid %s: %s", e.Field, e.Reason)
}

// IsSpam reports whether the honeypot was tripped. Callers respond with the
// same success envelope as a real accept and store nothing.
func (s *Submission) IsSpam() bool {
	return strings.TrimSpace(s.Website) != ""
}

// Validate normalizes the submission and returns the message to store.
func (s *Submission) Validate(now time.Time) (*Message, error) {
	name := strings.TrimSpace(s.Name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Reason: "required"}
	}
	if len([]rune(name)) > maxNameLen {
		return nil, &ValidationError{Field: "name", Reason: fmt.Sprintf("longer than %d characters", maxNameLen)}
	}

	email := strings.ToLower(strings.TrimSpace(s.Email))
	if email == "" {
		return nil, &ValidationError{Field: "email", Reason: "required"}
	}
	if len(email) > maxEmailLen {
		return nil, &ValidationError{Field: "email", Reason: fmt.Sprintf("longer than %d characters", maxEmailLen)}
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, &ValidationError{Field: "email", Reason: "not a valid address"}
	}

	body := strings.TrimSpace(s.Message)
	if body == "" {
		return nil, &ValidationError{Field: "message", Reason: "required"}
	}
	if len([]rune(body)) > maxMessageLen {
		return nil, &ValidationError{Field: "message", Reason: fmt.Sprintf("longer than %d characters", maxMessageLen)}
	}

	if !s.Consent {
		return nil, &ValidationError{Field: "consent", Reason: "must be accepted"}
	}

	return &Message{
		ID:        uuid.New(),
		Name:      name,
		Email:     email,
		Message:   body,
		Consent:   true,
		PageURL:   clampMeta(s.PageURL),
		UserAgent: clampMeta(s.UserAgent),
		CreatedAt: now.UTC(),
	}, nil
}

func clampMeta(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	runes := []rune(trimmed)
	if len(runes) > maxMetaLen {
		trimmed = string(runes[:maxMetaLen])
	}
	return &trimmed
}
