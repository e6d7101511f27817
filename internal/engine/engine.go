// Package engine orchestrates the content pipeline: script generation,
// narration synthesis, video rendering, affiliate link injection, upload,
// and run history. It is the executor behind the asynchronous task
// service.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mwarren/clipforge/internal/affiliate"
	"github.com/mwarren/clipforge/internal/generation"
	"github.com/mwarren/clipforge/internal/history"
	"github.com/mwarren/clipforge/internal/media"
	"github.com/mwarren/clipforge/internal/task"
	"github.com/mwarren/clipforge/internal/upload"
)

// batchConcurrency bounds how many videos a batch job renders at once.
const batchConcurrency = 2

// Dependencies holds the engine's collaborators. Uploader may be nil, in
// which case the pipeline stops after rendering and reports the local
// file instead of a URL.
type Dependencies struct {
	Logger      *slog.Logger
	Generator   generation.Generator
	Synthesizer media.Synthesizer
	Renderer    media.Renderer
	Uploader    upload.Uploader
	Links       *affiliate.LinkBuilder
	History     history.Store
	Settings    *Settings
	OutputDir   string
}

// Engine runs the content pipeline end to end.
type Engine struct {
	logger      *slog.Logger
	generator   generation.Generator
	synthesizer media.Synthesizer
	renderer    media.Renderer
	uploader    upload.Uploader
	links       *affiliate.LinkBuilder
	history     history.Store
	settings    *Settings
	outputDir   string
}

// RunOutcome is what one pipeline run produced.
type RunOutcome struct {
	Title     string `json:"title"`
	Topic     string `json:"topic"`
	VideoFile string `json:"video_file"`
	VideoURL  string `json:"video_url,omitempty"`
}

// New creates an Engine from its dependencies.
func New(deps Dependencies) (*Engine, error) {
	switch {
	case deps.Logger == nil:
		return nil, fmt.Errorf("logger cannot be nil")
	case deps.Generator == nil:
		return nil, fmt.Errorf("generator cannot be nil")
	case deps.Synthesizer == nil:
		return nil, fmt.Errorf("synthesizer cannot be nil")
	case deps.Renderer == nil:
		return nil, fmt.Errorf("renderer cannot be nil")
	case deps.Links == nil:
		return nil, fmt.Errorf("link builder cannot be nil")
	case deps.History == nil:
		return nil, fmt.Errorf("history store cannot be nil")
	case deps.Settings == nil:
		return nil, fmt.Errorf("settings cannot be nil")
	case deps.OutputDir == "":
		return nil, fmt.Errorf("output directory cannot be empty")
	}

	return &Engine{
		logger:      deps.Logger.With("component", "engine"),
		generator:   deps.Generator,
		synthesizer: deps.Synthesizer,
		renderer:    deps.Renderer,
		uploader:    deps.Uploader,
		links:       deps.Links,
		history:     deps.History,
		settings:    deps.Settings,
		outputDir:   deps.OutputDir,
	}, nil
}

// Execute satisfies the task executor contract: it dispatches one job by
// kind and returns the structured result stored on the task record.
func (e *Engine) Execute(ctx context.Context, kind string, args map[string]any) (map[string]any, error) {
	switch kind {
	case task.KindCreateVideo:
		return e.executeCreateVideo(ctx, args)
	case task.KindCreateVideoBatch:
		return e.executeCreateVideoBatch(ctx, args)
	default:
		return nil, fmt.Errorf("unknown task kind %q", kind)
	}
}

func (e *Engine) executeCreateVideo(ctx context.Context, args map[string]any) (map[string]any, error) {
	topic := stringArg(args, "topic")
	if topic == "" {
		topic = e.settings.Topic()
	}

	outcome, err := e.CreateAndUpload(ctx, topic)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"status":     "completed",
		"title":      outcome.Title,
		"topic":      outcome.Topic,
		"video_file": outcome.VideoFile,
		"video_url":  outcome.VideoURL,
	}, nil
}

func (e *Engine) executeCreateVideoBatch(ctx context.Context, args map[string]any) (map[string]any, error) {
	topics, err := topicsArg(args)
	if err != nil {
		return nil, err
	}

	type indexed struct {
		index  int
		result map[string]any
	}

	results := make([]map[string]any, len(topics))
	sem := make(chan struct{}, batchConcurrency)
	out := make(chan indexed, len(topics))
	var wg sync.WaitGroup

	for i, topic := range topics {
		wg.Add(1)
		go func(i int, topic string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			outcome, err := e.CreateAndUpload(ctx, topic)
			if err != nil {
				out <- indexed{i, map[string]any{
					"status": "failed",
					"topic":  topic,
					"error":  err.Error(),
				}}
				return
			}
			out <- indexed{i, map[string]any{
				"status":     "completed",
				"topic":      outcome.Topic,
				"title":      outcome.Title,
				"video_file": outcome.VideoFile,
				"video_url":  outcome.VideoURL,
			}}
		}(i, topic)
	}

	wg.Wait()
	close(out)
	for item := range out {
		results[item.index] = item.result
	}

	failures := 0
	for _, r := range results {
		if r["status"] == "failed" {
			failures++
		}
	}

	// A batch with partial failures still resolves as a completed task;
	// per-topic outcomes carry the detail.
	return map[string]any{
		"status":    "completed",
		"requested": len(topics),
		"failed":    failures,
		"results":   results,
	}, nil
}

// CreateAndUpload runs the full pipeline for one topic and records the
// run in history regardless of outcome.
func (e *Engine) CreateAndUpload(ctx context.Context, topic string) (*RunOutcome, error) {
	logger := e.logger.With("topic", topic)
	logger.InfoContext(ctx, "starting content run")

	outcome, err := e.runPipeline(ctx, topic, logger)

	record := &history.RunRecord{Topic: topic}
	if err != nil {
		record.Status = history.RunStatusFailed
		record.Error = err.Error()
	} else {
		record.Status = history.RunStatusSuccess
		record.Title = outcome.Title
		record.VideoFile = outcome.VideoFile
		record.VideoURL = outcome.VideoURL
	}
	if histErr := e.history.Add(ctx, record); histErr != nil {
		logger.ErrorContext(ctx, "failed to record run history", "error", histErr)
	}

	if err != nil {
		logger.ErrorContext(ctx, "content run failed", "error", err)
		return nil, err
	}
	logger.InfoContext(ctx, "content run finished",
		"title", outcome.Title, "video_url", outcome.VideoURL)
	return outcome, nil
}

func (e *Engine) runPipeline(ctx context.Context, topic string, logger *slog.Logger) (*RunOutcome, error) {
	script, err := e.generator.GenerateScript(ctx, topic)
	if err != nil {
		return nil, fmt.Errorf("script generation: %w", err)
	}
	logger.InfoContext(ctx, "script generated", "title", script.Title)

	stem := fileStem(script.Title)
	audioPath := filepath.Join(e.outputDir, stem+".wav")
	videoPath := filepath.Join(e.outputDir, stem+".mp4")

	if _, err := e.synthesizer.Synthesize(ctx, script.Body, audioPath); err != nil {
		return nil, fmt.Errorf("narration synthesis: %w", err)
	}
	if _, err := e.renderer.Render(ctx, audioPath, script.Title, videoPath); err != nil {
		return nil, fmt.Errorf("video rendering: %w", err)
	}
	logger.InfoContext(ctx, "video rendered", "file", videoPath)

	description := e.links.InjectLinks(script.Description, script.Products)

	outcome := &RunOutcome{
		Title:     script.Title,
		Topic:     topic,
		VideoFile: videoPath,
	}

	if e.uploader == nil {
		logger.InfoContext(ctx, "uploading disabled, keeping local file")
		return outcome, nil
	}

	url, err := e.uploader.Upload(ctx, videoPath, upload.Metadata{
		Title:       script.Title,
		Description: description,
		Keywords:    script.Keywords,
		Privacy:     e.settings.Privacy(),
	})
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}
	outcome.VideoURL = url
	return outcome, nil
}

// Status summarizes the engine for the dashboard: current settings plus
// history aggregates.
func (e *Engine) Status(ctx context.Context) (map[string]any, error) {
	stats, err := e.history.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read run stats: %w", err)
	}
	last, err := e.history.Last(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read last run: %w", err)
	}

	status := map[string]any{
		"settings":        e.settings.Snapshot(),
		"upload_enabled":  e.uploader != nil,
		"total_runs":      stats.TotalRuns,
		"successful_runs": stats.Successful,
		"failed_runs":     stats.Failed,
	}
	if stats.LastRunAt != nil {
		status["last_run_at"] = stats.LastRunAt.Format(time.RFC3339)
	}
	if last != nil {
		status["last_run_status"] = string(last.Status)
		status["last_run_title"] = last.Title
	}
	return status, nil
}

// Settings exposes the runtime-mutable settings to the API layer.
func (e *Engine) Settings() *Settings {
	return e.settings
}

func stringArg(args map[string]any, key string) string {
	if args == nil {
		return ""
	}
	value, _ := args[key].(string)
	return strings.TrimSpace(value)
}

func topicsArg(args map[string]any) ([]string, error) {
	raw, ok := args["topics"]
	if !ok {
		return nil, fmt.Errorf("batch job requires a topics list")
	}

	var topics []string
	switch v := raw.(type) {
	case []string:
		topics = v
	case []any:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("topics must all be strings")
			}
			topics = append(topics, s)
		}
	default:
		return nil, fmt.Errorf("topics must be a list of strings")
	}

	var cleaned []string
	for _, t := range topics {
		if t = strings.TrimSpace(t); t != "" {
			cleaned = append(cleaned, t)
		}
	}
	if len(cleaned) == 0 {
		return nil, fmt.Errorf("batch job requires at least one non-empty topic")
	}
	return cleaned, nil
}

// fileStem builds a filesystem-safe stem from a title, suffixed with a
// timestamp so repeated titles never collide.
func fileStem(title string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			sb.WriteRune('-')
		}
	}
	stem := strings.Trim(sb.String(), "-")
	if len(stem) > 48 {
		stem = stem[:48]
	}
	if stem == "" {
		stem = "video"
	}
	return fmt.Sprintf("%s-%d", stem, time.Now().UnixNano())
}
