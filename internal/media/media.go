// Package media turns a narration script into audio and a finished video
// file. The implementations shell out to espeak-ng and ffmpeg; the
// interfaces keep the pipeline testable without either tool installed.
package media

import "context"

// Synthesizer converts narration text into an audio file.
type Synthesizer interface {
	// Synthesize writes spoken audio for text to outPath and returns the
	// path of the file it wrote.
	Synthesize(ctx context.Context, text, outPath string) (string, error)
}

// Renderer composes a video from a narration audio track.
type Renderer interface {
	// Render produces a video at outPath with audioPath as soundtrack,
	// showing title as an on-screen caption. Returns the path of the file
	// it wrote.
	Render(ctx context.Context, audioPath, title, outPath string) (string, error)
}
