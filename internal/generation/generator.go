package generation

import (
	"context"
)

// Script is one generated unit of content: narration text plus the video
// metadata the upload step needs.
type Script struct {
	// Title is the video title.
	Title string `json:"title"`

	// Body is the narration script read over the video.
	Body string `json:"body"`

	// Description is the video description before affiliate links are
	// injected.
	Description string `json:"description"`

	// Keywords tag the video for search.
	Keywords []string `json:"keywords"`

	// Products names products mentioned in the script, used to build
	// affiliate links.
	Products []string `json:"products"`
}

// Generator defines the interface for generating video scripts from a
// topic. This interface serves as a boundary between the application core
// and external AI/LLM services.
type Generator interface {
	// GenerateScript creates a script and its metadata for the given
	// topic. Returns an error from errors.go if generation fails.
	GenerateScript(ctx context.Context, topic string) (*Script, error)
}
