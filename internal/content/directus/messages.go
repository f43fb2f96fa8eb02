package directus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// ContactMessage is the payload written to the contact_messages collection.
type ContactMessage struct {
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Message   string  `json:"message"`
	Consent   bool    `json:"consent"`
	PageURL   *string `json:"page_url"`
	UserAgent *string `json:"user_agent"`
}

// SubmitContact creates a record in the contact_messages collection.
func (p *Provider) SubmitContact(ctx context.Context, msg ContactMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode contact message: %w", err)
	}

	requestURL := p.baseURL + "/items/contact_messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, bytes.NewReader(payload))
	if err != nil {
		p.updateHealth(false, err)
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.updateHealth(false, err)
		return fmt.Errorf("failed to submit contact message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := fmt.Errorf("Directus API error: %d", resp.StatusCode)
		p.updateHealth(false, err)
		return err
	}

	p.updateHealth(true, nil)
	return nil
}
