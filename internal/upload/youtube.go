package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/mwarren/clipforge/internal/config"
)

// entertainment, per YouTube's category taxonomy
const defaultCategoryID = "24"

// YouTubeUploader implements Uploader with the YouTube Data API v3. It
// authenticates from an OAuth client secrets file plus a previously
// obtained user token (the token file is produced out of band with a
// one-time browser consent flow).
type YouTubeUploader struct {
	logger  *slog.Logger
	service *youtube.Service
}

var _ Uploader = (*YouTubeUploader)(nil)

// NewYouTubeUploader builds an authenticated uploader from the configured
// credential files.
func NewYouTubeUploader(ctx context.Context, logger *slog.Logger, cfg config.UploadConfig) (*YouTubeUploader, error) {
	if cfg.ClientSecretsFile == "" || cfg.TokenFile == "" {
		return nil, fmt.Errorf("youtube upload requires both client secrets and token files")
	}

	secrets, err := os.ReadFile(cfg.ClientSecretsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read client secrets: %w", err)
	}
	oauthConfig, err := google.ConfigFromJSON(secrets, youtube.YoutubeUploadScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client secrets: %w", err)
	}

	token, err := loadToken(cfg.TokenFile)
	if err != nil {
		return nil, err
	}

	service, err := youtube.NewService(ctx,
		option.WithTokenSource(oauthConfig.TokenSource(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube service: %w", err)
	}

	return &YouTubeUploader{
		logger:  logger.With("component", "youtube_uploader"),
		service: service,
	}, nil
}

// Upload publishes the video and returns its watch URL.
func (u *YouTubeUploader) Upload(ctx context.Context, videoPath string, meta Metadata) (string, error) {
	file, err := os.Open(videoPath)
	if err != nil {
		return "", fmt.Errorf("failed to open video file: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			u.logger.Warn("failed to close video file", "path", videoPath, "error", closeErr)
		}
	}()

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       meta.Title,
			Description: meta.Description,
			Tags:        meta.Keywords,
			CategoryId:  defaultCategoryID,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           privacyOrDefault(meta.Privacy),
			SelfDeclaredMadeForKids: false,
		},
	}

	u.logger.Info("uploading video", "path", videoPath, "title", meta.Title)

	call := u.service.Videos.Insert([]string{"snippet", "status"}, video)
	response, err := call.Media(file).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("youtube upload failed: %w", err)
	}

	url := fmt.Sprintf("https://www.youtube.com/watch?v=%s", response.Id)
	u.logger.Info("video uploaded", "video_id", response.Id, "url", url)
	return url, nil
}

func loadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read oauth token: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to parse oauth token: %w", err)
	}
	return &token, nil
}

func privacyOrDefault(privacy string) string {
	switch privacy {
	case "public", "unlisted", "private":
		return privacy
	default:
		return "unlisted"
	}
}
