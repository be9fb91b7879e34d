package local

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Digital-Shane/youtube-metadata/internal/metadata"
	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus/hooks/test"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTestProvider() *Provider {
	logger, _ := test.NewNullLogger()
	return New(logger)
}

func TestLookup(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	mediaPath := filepath.Join(dir, "Never Gonna [dQw4w9WgXcQ].mkv")
	writeFile(t, filepath.Join(dir, "Never Gonna [dQw4w9WgXcQ].info.json"),
		`{"id":"dQw4w9WgXcQ","title":"Never Gonna Give You Up","uploader":"Rick Astley","upload_date":"20091025"}`)

	got, err := newTestProvider().Lookup(mediaPath)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	want := &metadata.Record{ID: "dQw4w9WgXcQ", Title: "Never Gonna Give You Up", Uploader: "Rick Astley", UploadDate: "20091025"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Lookup() mismatch (-want +got):\n%s", diff)
	}
}

func TestLookup_TitleFromFileName(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	mediaPath := filepath.Join(dir, "20091025 - Never Gonna Give You Up [dQw4w9WgXcQ].mkv")
	writeFile(t, filepath.Join(dir, "20091025 - Never Gonna Give You Up [dQw4w9WgXcQ].info.json"), `{"id":"dQw4w9WgXcQ"}`)

	got, err := newTestProvider().Lookup(mediaPath)
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if diff := cmp.Diff("Never Gonna Give You Up", got.Title); diff != "" {
		t.Errorf("Lookup() title mismatch (-want +got):\n%s", diff)
	}
}

func TestLookup_Missing(t *testing.T) {
	t.Parallel()
	_, err := newTestProvider().Lookup(filepath.Join(t.TempDir(), "clip [dQw4w9WgXcQ].mkv"))
	if !errors.Is(err, ErrNoSidecar) || !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Lookup() error = %v, want ErrNoSidecar", err)
	}
}

func TestLookup_Corrupt(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "clip.info.json"), "{not json")
	_, err := newTestProvider().Lookup(filepath.Join(dir, "clip.mp4"))
	if err == nil || errors.Is(err, ErrNoSidecar) {
		t.Errorf("Lookup() error = %v, want decode error", err)
	}
}

func TestHasChanged(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	mediaPath := filepath.Join(dir, "clip [dQw4w9WgXcQ].mkv")
	sidecar := filepath.Join(dir, "clip [dQw4w9WgXcQ].info.json")
	p := newTestProvider()

	if p.HasChanged(mediaPath, time.Now()) {
		t.Error("HasChanged() = true without a sidecar")
	}

	writeFile(t, sidecar, `{"id":"dQw4w9WgXcQ"}`)
	written := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if err := os.Chtimes(sidecar, written, written); err != nil {
		t.Fatal(err)
	}

	if !p.HasChanged(mediaPath, written.Add(-time.Hour)) {
		t.Error("HasChanged() = false for a sidecar newer than the last save")
	}
	if p.HasChanged(mediaPath, written.Add(time.Hour)) {
		t.Error("HasChanged() = true for a sidecar older than the last save")
	}
}

func TestSeriesSidecar(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	series := filepath.Join(root, "Rick Astley")
	writeFile(t, filepath.Join(series, "2009", "Never Gonna [dQw4w9WgXcQ].info.json"), `{"id":"dQw4w9WgXcQ"}`)
	channel := filepath.Join(series, "Rick Astley [UCuAXFkgsw1L7xaCfnd5JJOw].info.json")
	writeFile(t, channel, `{"id":"UCuAXFkgsw1L7xaCfnd5JJOw","uploader":"Rick Astley","channel_id":"UCuAXFkgsw1L7xaCfnd5JJOw"}`)

	p := newTestProvider()
	got, err := p.SeriesSidecar(context.Background(), series)
	if err != nil {
		t.Fatalf("SeriesSidecar() error = %v", err)
	}
	if got != channel {
		t.Errorf("SeriesSidecar() = %q, want %q", got, channel)
	}

	rec, err := p.Series(context.Background(), series)
	if err != nil {
		t.Fatalf("Series() error = %v", err)
	}
	if rec.Uploader != "Rick Astley" {
		t.Errorf("Series() uploader = %q", rec.Uploader)
	}
}

func TestSeriesSidecar_None(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "clip [dQw4w9WgXcQ].info.json"), `{"id":"dQw4w9WgXcQ"}`)

	p := newTestProvider()
	got, err := p.SeriesSidecar(context.Background(), root)
	if err != nil || got != "" {
		t.Errorf("SeriesSidecar() = %q, %v; want empty, nil", got, err)
	}
	if _, err := p.Series(context.Background(), root); !errors.Is(err, ErrNoSidecar) {
		t.Errorf("Series() error = %v, want ErrNoSidecar", err)
	}
	if got, err := p.SeriesSidecar(context.Background(), filepath.Join(root, "missing")); err != nil || got != "" {
		t.Errorf("SeriesSidecar(missing dir) = %q, %v; want empty, nil", got, err)
	}
}

func TestImage(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Other [aaaaaaaaaaa].jpg"), "x")
	want := filepath.Join(dir, "Never Gonna [dQw4w9WgXcQ].webp")
	writeFile(t, want, "x")
	writeFile(t, filepath.Join(dir, "Never Gonna [dQw4w9WgXcQ].png"), "x")

	p := newTestProvider()
	got, err := p.Image(context.Background(), filepath.Join(dir, "Never Gonna [dQw4w9WgXcQ].mkv"))
	if err != nil {
		t.Fatalf("Image() error = %v", err)
	}
	if got != want {
		t.Errorf("Image() = %q, want %q", got, want)
	}

	got, err = p.Image(context.Background(), filepath.Join(dir, "no id.mkv"))
	if err != nil || got != "" {
		t.Errorf("Image(no id) = %q, %v; want empty, nil", got, err)
	}
}

func TestSeriesImage(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	want := filepath.Join(root, "Rick Astley [UCuAXFkgsw1L7xaCfnd5JJOw]", "poster.jpg")
	writeFile(t, want, "x")
	writeFile(t, filepath.Join(root, "cover.jpg"), "x")

	got, err := newTestProvider().SeriesImage(context.Background(), root)
	if err != nil {
		t.Fatalf("SeriesImage() error = %v", err)
	}
	if got != want {
		t.Errorf("SeriesImage() = %q, want %q", got, want)
	}
}
