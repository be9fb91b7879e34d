package ffprobe

import (
	"context"
	"time"

	"github.com/Digital-Shane/youtube-metadata/internal/provider"
	"gopkg.in/vansante/go-ffprobe.v2"
)

const providerName = "ffprobe"

// probeFunc defines the function signature used to execute ffprobe.
type probeFunc func(ctx context.Context, path string, extraOpts ...string) (*ffprobe.ProbeData, error)

// Prober reads technical details of local media files with ffprobe.
type Prober struct {
	probe probeFunc
}

// New creates a new ffprobe prober with default configuration.
func New() *Prober {
	return &Prober{
		probe: ffprobe.ProbeURL,
	}
}

// Name returns the prober name.
func (p *Prober) Name() string {
	return providerName
}

// Runtime returns the container duration of the media file at path.
func (p *Prober) Runtime(ctx context.Context, path string) (time.Duration, error) {
	if path == "" {
		return 0, provider.NewError(providerName, provider.CodeFetchFailed, nil, "ffprobe requires a non-empty file path")
	}

	data, err := p.probe(ctx, path)
	if err != nil {
		if ctx.Err() != nil {
			return 0, provider.NewError(providerName, provider.CodeTimeout, err, "ffprobe timed out for %s", path)
		}
		return 0, provider.NewError(providerName, provider.CodeFetchFailed, err, "ffprobe failed for %s: %v", path, err)
	}

	if data == nil || data.Format == nil {
		return 0, nil
	}
	return time.Duration(data.Format.DurationSeconds * float64(time.Second)), nil
}
