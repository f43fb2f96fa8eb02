package api

import (
	"github.com/inkstream/inkstream-backend/internal/content"
)

// PostSummaryDTO is the list-view shape: everything except the body.
type PostSummaryDTO struct {
	Slug       string         `json:"slug"`
	Title      string         `json:"title"`
	Summary    string         `json:"summary"`
	DateISO    string         `json:"dateIso"`
	AuthorName string         `json:"authorName"`
	Cover      content.Cover  `json:"cover"`
	Topic      *content.Ref   `json:"topic,omitempty"`
	Tags       []content.Ref  `json:"tags,omitempty"`
}

func toSummary(p content.Post) PostSummaryDTO {
	return PostSummaryDTO{
		Slug:       p.Slug,
		Title:      p.Title,
		Summary:    p.Summary,
		DateISO:    p.DateISO,
		AuthorName: p.AuthorName,
		Cover:      p.Cover,
		Topic:      p.Topic,
		Tags:       p.Tags,
	}
}

type ListPostsResponse struct {
	Items    []PostSummaryDTO `json:"items"`
	Total    int              `json:"total"`
	Offset   int              `json:"offset"`
	Limit    int              `json:"limit"`
	Revision string           `json:"revision"`
}

type PostResponse struct {
	Post     content.Post `json:"post"`
	Index    int          `json:"index"`
	Revision string       `json:"revision"`
}

type SlugsResponse struct {
	Slugs    []string `json:"slugs"`
	Revision string   `json:"revision"`
}

type TaxonomyResponse struct {
	Items    []content.TaxonomyItem `json:"items"`
	Revision string                 `json:"revision"`
}

type SearchResponse struct {
	Query    string               `json:"query"`
	Items    []content.SearchItem `json:"items"`
	Revision string               `json:"revision"`
}

type ContactResponse struct {
	Status string `json:"status"`
}

type ReadyzDTO struct {
	Status   string            `json:"status"`
	Checks   map[string]string `json:"checks"`
	Revision string            `json:"revision,omitempty"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}
