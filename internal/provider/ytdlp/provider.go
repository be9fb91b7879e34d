package ytdlp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Digital-Shane/youtube-metadata/internal/cache"
	"github.com/Digital-Shane/youtube-metadata/internal/media"
	"github.com/Digital-Shane/youtube-metadata/internal/provider"
	"github.com/lrstanley/go-ytdlp"
	"github.com/sirupsen/logrus"
)

const (
	providerName = "ytdlp"

	// DefaultTimeout bounds a single yt-dlp invocation.
	DefaultTimeout = 10 * time.Second

	videoURL   = "https://www.youtube.com/watch?v="
	channelURL = "https://www.youtube.com/channel/"
)

// invocation is one yt-dlp run, reduced to the flags this backend uses.
type invocation struct {
	URL           string
	DumpJSON      bool
	FlatPlaylist  bool
	PlaylistItems string
	Print         string
	Cookies       string
}

// runFunc executes an invocation and returns captured stdout and stderr.
type runFunc func(ctx context.Context, inv invocation) (stdout, stderr string, err error)

// Config holds the settings for the yt-dlp backend.
type Config struct {
	Store      *cache.Store
	PluginsDir string        // cookies are read from <PluginsDir>/YoutubeMetadata/cookies.txt
	Executable string        // yt-dlp binary, empty uses PATH
	Timeout    time.Duration // zero uses DefaultTimeout
	Logger     *logrus.Logger
}

// Provider fetches metadata by running the yt-dlp extraction tool.
type Provider struct {
	store      *cache.Store
	pluginsDir string
	timeout    time.Duration
	logger     *logrus.Logger
	run        runFunc
}

// New creates a yt-dlp backend.
func New(cfg Config) *Provider {
	p := &Provider{
		store:      cfg.Store,
		pluginsDir: cfg.PluginsDir,
		timeout:    cfg.Timeout,
		logger:     cfg.Logger,
	}
	if p.timeout <= 0 {
		p.timeout = DefaultTimeout
	}
	if p.logger == nil {
		p.logger = logrus.StandardLogger()
	}
	p.run = commandRunner(cfg.Executable)
	return p
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return providerName
}

// Description returns the provider description.
func (p *Provider) Description() string {
	return "YouTube metadata extracted with yt-dlp"
}

// Capabilities returns what this provider can do.
func (p *Provider) Capabilities() provider.ProviderCapabilities {
	return provider.ProviderCapabilities{
		IDKinds:        []media.IDKind{media.IDKindVideo, media.IDKindChannel},
		RequiresAuth:   false,
		WarmsChannel:   true,
		SupportsSearch: true,
		Priority:       100,
		FetchBudget:    p.timeout,
	}
}

// Fetch runs yt-dlp for the requested id and stores its JSON output.
func (p *Provider) Fetch(ctx context.Context, request provider.FetchRequest) error {
	inv := invocation{DumpJSON: true, Cookies: p.cookieFile()}
	switch request.IDKind {
	case media.IDKindVideo:
		inv.URL = videoURL + request.ID
	case media.IDKindChannel:
		inv.URL = channelURL + request.ID + "/about"
		inv.FlatPlaylist = true
		inv.PlaylistItems = "0"
	default:
		return provider.NewError(providerName, provider.CodeUnsupported, nil,
			"yt-dlp cannot fetch identifier kind %s", request.IDKind)
	}

	stdout, err := p.invoke(ctx, request.ID, inv)
	if err != nil {
		return err
	}

	if err := p.store.WriteRaw(request.ID, []byte(stdout)); err != nil {
		return provider.NewError(providerName, provider.CodeFetchFailed, err,
			"storing yt-dlp output for %s: %v", request.ID, err)
	}

	p.logger.WithFields(logrus.Fields{"backend": providerName, "id": request.ID}).Debug("yt-dlp fetch stored")
	return nil
}

// invoke runs inv under the backend timeout and maps failures onto provider
// error codes.
func (p *Provider) invoke(ctx context.Context, id string, inv invocation) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	stdout, stderr, err := p.run(ctx, inv)
	if err == nil {
		return stdout, nil
	}

	diag := stderrLines(stderr)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "", &provider.ProviderError{
			Provider: providerName,
			Code:     provider.CodeTimeout,
			Message:  "timeout error for id: " + id + ", errors: " + diag,
			Retry:    true,
			Err:      err,
		}
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	return "", classify(id, diag, err)
}

// classify turns a failed run into a ProviderError based on stderr.
func classify(id, diag string, err error) error {
	lower := strings.ToLower(diag)
	switch {
	case strings.Contains(lower, "http error 429"), strings.Contains(lower, "too many requests"):
		return &provider.ProviderError{
			Provider:   providerName,
			Code:       provider.CodeRateLimited,
			Message:    "yt-dlp rate limited for " + id + ": " + diag,
			Retry:      true,
			RetryAfter: 60,
			Err:        err,
		}
	case strings.Contains(lower, "sign in to confirm"), strings.Contains(lower, "cookies"):
		return provider.NewError(providerName, provider.CodeAuthFailed, err,
			"yt-dlp requires authentication for %s: %s", id, diag)
	case strings.Contains(lower, "video unavailable"), strings.Contains(lower, "does not exist"),
		strings.Contains(lower, "http error 404"):
		return provider.NewError(providerName, provider.CodeNotFound, err,
			"yt-dlp could not find %s: %s", id, diag)
	}
	return &provider.ProviderError{
		Provider: providerName,
		Code:     provider.CodeFetchFailed,
		Message:  "yt-dlp failed for " + id + ": " + diag,
		Retry:    true,
		Err:      err,
	}
}

// cookieFile returns the cookie jar path when the file exists.
func (p *Provider) cookieFile() string {
	if p.pluginsDir == "" {
		return ""
	}
	path := filepath.Join(p.pluginsDir, "YoutubeMetadata", "cookies.txt")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func stderrLines(stderr string) string {
	var lines []string
	for _, line := range strings.Split(stderr, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, " ")
}

// commandRunner builds the go-ytdlp command for an invocation.
func commandRunner(executable string) runFunc {
	return func(ctx context.Context, inv invocation) (string, string, error) {
		cmd := ytdlp.New().
			SkipDownload().
			NoWarnings()
		if executable != "" {
			cmd = cmd.SetExecutable(executable)
		}
		if inv.DumpJSON {
			cmd = cmd.DumpSingleJSON()
		}
		if inv.FlatPlaylist {
			cmd = cmd.FlatPlaylist()
		}
		if inv.PlaylistItems != "" {
			cmd = cmd.PlaylistItems(inv.PlaylistItems)
		}
		if inv.Print != "" {
			cmd = cmd.Print(inv.Print)
		}
		if inv.Cookies != "" {
			cmd = cmd.Cookies(inv.Cookies)
		}

		result, err := cmd.Run(ctx, inv.URL)
		if result == nil {
			return "", "", err
		}
		return result.Stdout, result.Stderr, err
	}
}
