package contact

import (
	"context"

	"github.com/inkstream/inkstream-backend/internal/content/directus"
)

// DirectusSink forwards contact messages to the CMS's contact_messages
// collection so editors triage them alongside content.
type DirectusSink struct {
	client *directus.Provider
}

func NewDirectusSink(client *directus.Provider) *DirectusSink {
	return &DirectusSink{client: client}
}

func (s *DirectusSink) Save(ctx context.Context, msg *Message) error {
	return s.client.SubmitContact(ctx, directus.ContactMessage{
		Name:      msg.Name,
		Email:     msg.Email,
		Message:   msg.Message,
		Consent:   msg.Consent,
		PageURL:   msg.PageURL,
		UserAgent: msg.UserAgent,
	})
}

func (s *DirectusSink) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func (s *DirectusSink) Name() string { return "directus" }
