package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Digital-Shane/youtube-metadata/internal/media"
	"github.com/Digital-Shane/youtube-metadata/internal/metadata"
	"github.com/google/go-cmp/cmp"
)

// MockProvider is a test backend implementation
type MockProvider struct {
	name         string
	capabilities ProviderCapabilities
	fetchFunc    func(context.Context, FetchRequest) error
}

func (m *MockProvider) Name() string        { return m.name }
func (m *MockProvider) Description() string { return "Mock provider for testing" }
func (m *MockProvider) Capabilities() ProviderCapabilities {
	return m.capabilities
}
func (m *MockProvider) Fetch(ctx context.Context, req FetchRequest) error {
	if m.fetchFunc != nil {
		return m.fetchFunc(ctx, req)
	}
	return nil
}

// MockSearcher adds search to MockProvider.
type MockSearcher struct {
	MockProvider
}

func (m *MockSearcher) SearchVideos(context.Context, string, int) ([]metadata.SearchResult, error) {
	return nil, nil
}
func (m *MockSearcher) SearchChannels(context.Context, string, int) ([]metadata.SearchResult, error) {
	return nil, nil
}
func (m *MockSearcher) ResolveChannel(context.Context, string) (string, error) {
	return "", nil
}

func videoCaps() ProviderCapabilities {
	return ProviderCapabilities{IDKinds: []media.IDKind{media.IDKindVideo}}
}

func TestRegistry_Register(t *testing.T) {
	registry := NewRegistry()

	mock := &MockProvider{name: "test", capabilities: videoCaps()}

	if err := registry.Register("test", mock, 100); err != nil {
		t.Errorf("Register() error = %v, want nil", err)
	}

	// Test duplicate registration
	if err := registry.Register("test", mock, 100); err == nil {
		t.Error("Register() expected error for duplicate, got nil")
	}

	// Test invalid capabilities
	bad := &MockProvider{name: "bad"}
	if err := registry.Register("bad", bad, 10); err == nil {
		t.Error("Register() expected error for empty capabilities, got nil")
	}
}

func TestRegistry_Get(t *testing.T) {
	registry := NewRegistry()
	registry.Register("test", &MockProvider{name: "test", capabilities: videoCaps()}, 100)

	p, exists := registry.Get("test")
	if !exists {
		t.Error("Get() exists = false, want true")
	}
	if p == nil {
		t.Error("Get() provider = nil, want non-nil")
	}

	if _, exists = registry.Get("nonexistent"); exists {
		t.Error("Get() exists = true, want false")
	}
}

func TestRegistry_List(t *testing.T) {
	registry := NewRegistry()
	registry.Register("low", &MockProvider{name: "low", capabilities: videoCaps()}, 50)
	registry.Register("high", &MockProvider{name: "high", capabilities: videoCaps()}, 100)
	registry.Register("also-low", &MockProvider{name: "also-low", capabilities: videoCaps()}, 50)

	want := []string{"high", "also-low", "low"}
	if diff := cmp.Diff(want, registry.List()); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}
}

func TestRegistry_Select(t *testing.T) {
	registry := NewRegistry()
	registry.Register("ytdlp", &MockProvider{name: "ytdlp", capabilities: videoCaps()}, 100)
	registry.Register("api", &MockProvider{name: "api", capabilities: videoCaps()}, 50)

	if _, err := registry.Select(""); err == nil {
		t.Error("Select(\"\") with nothing enabled error = nil, want error")
	}
	if _, err := registry.Select("api"); err == nil {
		t.Error("Select(api) while disabled error = nil, want error")
	}

	if err := registry.Enable("api"); err != nil {
		t.Fatalf("Enable(api) error = %v", err)
	}
	got, err := registry.Select("")
	if err != nil {
		t.Fatalf("Select(\"\") error = %v", err)
	}
	if got.Name() != "api" {
		t.Errorf("Select(\"\") = %s, want api", got.Name())
	}

	if err := registry.Enable("ytdlp"); err != nil {
		t.Fatalf("Enable(ytdlp) error = %v", err)
	}
	got, _ = registry.Select("")
	if got.Name() != "ytdlp" {
		t.Errorf("Select(\"\") = %s, want ytdlp (higher priority)", got.Name())
	}

	if _, err := registry.Select("nonexistent"); err == nil {
		t.Error("Select(nonexistent) error = nil, want error")
	}
	if err := registry.Enable("nonexistent"); err == nil {
		t.Error("Enable() expected error for nonexistent provider, got nil")
	}
}

func TestRegistry_Searcher(t *testing.T) {
	registry := NewRegistry()
	caps := videoCaps()
	caps.SupportsSearch = true
	registry.Register("plain", &MockProvider{name: "plain", capabilities: videoCaps()}, 10)
	registry.Register("search", &MockSearcher{MockProvider{name: "search", capabilities: caps}}, 10)

	if _, ok := registry.Searcher("plain"); ok {
		t.Error("Searcher(plain) ok = true, want false")
	}
	if _, ok := registry.Searcher("search"); !ok {
		t.Error("Searcher(search) ok = false, want true")
	}
}

func TestValidateCapabilities(t *testing.T) {
	tests := map[string]struct {
		caps    ProviderCapabilities
		wantErr bool
	}{
		"video only": {caps: videoCaps()},
		"no kinds":   {caps: ProviderCapabilities{}, wantErr: true},
		"none kind":  {caps: ProviderCapabilities{IDKinds: []media.IDKind{media.IDKindNone}}, wantErr: true},
		"warms without channel": {
			caps:    ProviderCapabilities{IDKinds: []media.IDKind{media.IDKindVideo}, WarmsChannel: true},
			wantErr: true,
		},
		"warms with channel": {
			caps: ProviderCapabilities{IDKinds: []media.IDKind{media.IDKindVideo, media.IDKindChannel}, WarmsChannel: true},
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			err := ValidateCapabilities(tc.caps)
			if (err != nil) != tc.wantErr {
				t.Errorf("ValidateCapabilities() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestProviderError(t *testing.T) {
	cause := errors.New("exit status 1")
	err := &ProviderError{
		Provider:   "ytdlp",
		Code:       CodeRateLimited,
		Message:    "yt-dlp rate limited",
		Retry:      true,
		RetryAfter: 10,
		Err:        cause,
	}

	if !cmp.Equal(err.Error(), "yt-dlp rate limited") {
		t.Errorf("Error() = %s, want 'yt-dlp rate limited'", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}

	wrapped := fmt.Errorf("fetch dQw4w9WgXcQ: %w", err)
	if Code(wrapped) != CodeRateLimited {
		t.Errorf("Code(wrapped) = %q, want %q", Code(wrapped), CodeRateLimited)
	}
	if !IsRetryable(wrapped) {
		t.Error("IsRetryable(wrapped) = false, want true")
	}
	if IsAuth(wrapped) || IsTimeout(wrapped) || IsNotFound(wrapped) {
		t.Error("code predicates matched the wrong code")
	}
	if Code(cause) != "" {
		t.Errorf("Code(plain error) = %q, want empty", Code(cause))
	}
}

func TestErrorPredicates(t *testing.T) {
	tests := map[string]struct {
		err  error
		pred func(error) bool
	}{
		"timeout":   {err: NewError("ytdlp", CodeTimeout, nil, "timed out"), pred: IsTimeout},
		"auth":      {err: NewError("api", CodeAuthFailed, nil, "bad key"), pred: IsAuth},
		"not found": {err: NewError("api", CodeNotFound, nil, "no such video"), pred: IsNotFound},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			if !tc.pred(tc.err) {
				t.Errorf("predicate(%v) = false, want true", tc.err)
			}
		})
	}
}
