package testmodels

import "github.com/go-openapi/strfmt"

// Post is the blog post entity used by the service tests.
type Post struct {

	// Unique identifier for the post.
	// Format: uuid
	ID strfmt.UUID `json:"_id,omitempty"`

	// Title of the post.
	// Required: true
	Title string `json:"title"`

	// Category of the post, e.g. "JS".
	Category string `json:"category,omitempty"`

	// author
	Author string `json:"author,omitempty"`

	// Number of votes.
	Votes int `json:"votes"`

	// tags
	Tags []string `json:"tags,omitempty"`
}
