package contact

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSubmission() Submission {
	page := "https://inkstream.example/blog/art-first-light"
	ua := "Mozilla/5.0"
	return Submission{
		Name:      "  Reader One  ",
		Email:     "Reader@Example.COM",
		Message:   "Loved the piece on long-exposure photography.",
		Consent:   true,
		PageURL:   &page,
		UserAgent: &ua,
	}
}

func TestSubmission_ValidateNormalizes(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

	sub := validSubmission()
	msg, err := sub.Validate(now)
	require.NoError(t, err)

	assert.Equal(t, "Reader One", msg.Name)
	assert.Equal(t, "reader@example.com", msg.Email, "email is lowercased")
	assert.True(t, msg.Consent)
	assert.Equal(t, now, msg.CreatedAt)
	assert.NotEqual(t, msg.ID.String(), "00000000-0000-0000-0000-000000000000")
}

func TestSubmission_ValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Submission)
		field  string
	}{
		{"missing name", func(s *Submission) { s.Name = "   " }, "name"},
		{"name too long", func(s *Submission) { s.Name = strings.Repeat("a", 81) }, "name"},
		{"missing email", func(s *Submission) { s.Email = "" }, "email"},
		{"malformed email", func(s *Submission) { s.Email = "not-an-address" }, "email"},
		{"email too long", func(s *Submission) { s.Email = strings.Repeat("a", 115) + "@example.com" }, "email"},
		{"missing message", func(s *Submission) { s.Message = "" }, "message"},
		{"message too long", func(s *Submission) { s.Message = strings.Repeat("x", 4001) }, "message"},
		{"consent not given", func(s *Submission) { s.Consent = false }, "consent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := validSubmission()
			tt.mutate(&sub)

			_, err := sub.Validate(time.Now())
			require.Error(t, err)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestSubmission_Honeypot(t *testing.T) {
	sub := validSubmission()
	assert.False(t, sub.IsSpam())

	sub.Website = "https://spam.example"
	assert.True(t, sub.IsSpam())
}

func TestSubmission_MetaClamped(t *testing.T) {
	sub := validSubmission()
	long := strings.Repeat("u", 400)
	sub.PageURL = &long
	empty := "   "
	sub.UserAgent = &empty

	msg, err := sub.Validate(time.Now())
	require.NoError(t, err)

	require.NotNil(t, msg.PageURL)
	assert.Len(t, *msg.PageURL, 300)
	assert.Nil(t, msg.UserAgent, "blank metadata collapses to nil")
}

func TestMemorySink(t *testing.T) {
	sink := NewMemorySink()
	assert.Equal(t, "memory", sink.Name())
	require.NoError(t, sink.Ping(context.Background()))

	sub := validSubmission()
	msg, err := sub.Validate(time.Now())
	require.NoError(t, err)
	require.NoError(t, sink.Save(context.Background(), msg))

	saved := sink.Messages()
	require.Len(t, saved, 1)
	assert.Equal(t, msg.ID, saved[0].ID)

	// The sink keeps its own copy.
	msg.Name = "mutated"
	assert.Equal(t, "Reader One", saved[0].Name)
}
