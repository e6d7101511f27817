package media

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// commandRunner runs an external tool. Tests replace it to avoid needing
// espeak-ng or ffmpeg on the machine.
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// EspeakSynthesizer implements Synthesizer with the espeak-ng CLI.
type EspeakSynthesizer struct {
	logger *slog.Logger
	binary string
	run    commandRunner
}

var _ Synthesizer = (*EspeakSynthesizer)(nil)

func NewEspeakSynthesizer(logger *slog.Logger) *EspeakSynthesizer {
	return &EspeakSynthesizer{
		logger: logger.With("component", "synthesizer"),
		binary: "espeak-ng",
		run:    runCommand,
	}
}

func (s *EspeakSynthesizer) Synthesize(ctx context.Context, text, outPath string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("narration text cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o750); err != nil {
		return "", fmt.Errorf("failed to create audio output directory: %w", err)
	}

	args := []string{"-s", "155", "-w", outPath, text}
	s.logger.Debug("synthesizing narration", "out", outPath, "chars", len(text))

	out, err := s.run(ctx, s.binary, args...)
	if err != nil {
		return "", fmt.Errorf("espeak-ng failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return outPath, nil
}

// FFmpegRenderer implements Renderer with the ffmpeg CLI. It renders a
// static color background with the title drawn as a caption over the
// narration track.
type FFmpegRenderer struct {
	logger *slog.Logger
	binary string
	run    commandRunner
}

var _ Renderer = (*FFmpegRenderer)(nil)

func NewFFmpegRenderer(logger *slog.Logger) *FFmpegRenderer {
	return &FFmpegRenderer{
		logger: logger.With("component", "renderer"),
		binary: "ffmpeg",
		run:    runCommand,
	}
}

func (r *FFmpegRenderer) Render(ctx context.Context, audioPath, title, outPath string) (string, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return "", fmt.Errorf("narration audio not found: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o750); err != nil {
		return "", fmt.Errorf("failed to create video output directory: %w", err)
	}

	caption := escapeDrawtext(title)
	args := []string{
		"-y",
		"-f", "lavfi", "-i", "color=c=0x1a1a2e:s=1280x720",
		"-i", audioPath,
		"-vf", fmt.Sprintf("drawtext=text='%s':fontcolor=white:fontsize=42:x=(w-text_w)/2:y=(h-text_h)/2", caption),
		"-shortest",
		"-c:v", "libx264", "-pix_fmt", "yuv420p",
		"-c:a", "aac",
		outPath,
	}
	r.logger.Debug("rendering video", "audio", audioPath, "out", outPath)

	out, err := r.run(ctx, r.binary, args...)
	if err != nil {
		return "", fmt.Errorf("ffmpeg failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return outPath, nil
}

// escapeDrawtext escapes characters with special meaning inside an ffmpeg
// drawtext filter value.
func escapeDrawtext(s string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		`:`, `\:`,
		`%`, `\%`,
	)
	return replacer.Replace(s)
}
