// Package upload publishes rendered videos to YouTube.
package upload

import "context"

// Metadata is what the upload step knows about a video beyond its file.
type Metadata struct {
	Title       string
	Description string
	Keywords    []string
	Privacy     string // public, unlisted, or private
}

// Uploader publishes a local video file and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, videoPath string, meta Metadata) (string, error)
}
