package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Digital-Shane/treeview"
	"github.com/Digital-Shane/youtube-metadata/internal/cache"
	"github.com/Digital-Shane/youtube-metadata/internal/config"
	"github.com/Digital-Shane/youtube-metadata/internal/core"
	"github.com/Digital-Shane/youtube-metadata/internal/metadata"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

const testChannelDir = "Rick Astley [UCuAXFkgsw1L7xaCfnd5JJOw]"

// executeCommand runs rootCmd with args and returns everything written to
// stdout and stderr. Flag variables are reset first since they are package
// state.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configPath, noTUI, logLevel = "", false, ""
	configForce, jsonOutput, reindexWatch = false, false, false
	searchLimit, journalLimit = 0, 10
	refreshKind, imagesKind = string(metadata.KindEpisode), string(metadata.KindEpisode)
	imagesLocal, pruneAll = false, false

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := execute()
	return buf.String(), err
}

// writeTestConfig writes a config file that keeps the cache and journal out
// of the user's home.
func writeTestConfig(t *testing.T, overrides map[string]any) string {
	t.Helper()
	dir := t.TempDir()
	values := map[string]any{
		config.KeyCacheDir:      filepath.Join(dir, "cache"),
		config.KeyPluginsDir:    filepath.Join(dir, "plugins"),
		config.KeyEnableLogging: false,
		config.KeyLogLevel:      "error",
	}
	for k, v := range overrides {
		values[k] = v
	}
	data, err := json.Marshal(values)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("os.WriteFile(config) error = %v", err)
	}
	return path
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("os.MkdirAll(%s) error = %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("os.WriteFile(%s) error = %v", path, err)
	}
}

func TestCommandTree(t *testing.T) {
	want := []string{"cache", "config", "images", "journal", "refresh", "reindex", "resolve-channel", "search"}
	var got []string
	for _, c := range rootCmd.Commands() {
		if c.Name() == "help" || c.Name() == "completion" {
			continue
		}
		got = append(got, c.Name())
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("root subcommands mismatch (-want +got):\n%s", diff)
	}

	var sub []string
	for _, c := range searchCmd.Commands() {
		sub = append(sub, c.Name())
	}
	if diff := cmp.Diff([]string{"channels", "videos"}, sub); diff != "" {
		t.Errorf("search subcommands mismatch (-want +got):\n%s", diff)
	}
}

func TestConfigPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.json")
	out, err := executeCommand(t, "config", "path", "--config", path)
	if err != nil {
		t.Fatalf("config path error = %v", err)
	}
	if diff := cmp.Diff(path+"\n", out); diff != "" {
		t.Errorf("config path output mismatch (-want +got):\n%s", diff)
	}
}

func TestConfigInitAndShow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	if _, err := executeCommand(t, "config", "init", "--config", path); err != nil {
		t.Fatalf("config init error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config init did not write %s: %v", path, err)
	}

	if _, err := executeCommand(t, "config", "init", "--config", path); err == nil {
		t.Error("second config init error = nil, want already exists error")
	}
	if _, err := executeCommand(t, "config", "init", "--config", path, "--force"); err != nil {
		t.Errorf("config init --force error = %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}
	cfg.APIKey = "AIzaSyExampleKey1234"
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	out, err := executeCommand(t, "config", "show", "--config", path)
	if err != nil {
		t.Fatalf("config show error = %v", err)
	}
	var shown map[string]any
	if err := json.Unmarshal([]byte(out), &shown); err != nil {
		t.Fatalf("config show output is not JSON: %v\n%s", err, out)
	}
	if diff := cmp.Diff("****1234", shown[config.KeyAPIKey]); diff != "" {
		t.Errorf("api_key mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(config.BackendYtdlp, shown[config.KeyBackend]); diff != "" {
		t.Errorf("backend mismatch (-want +got):\n%s", diff)
	}
}

func TestConfigShow_Invalid(t *testing.T) {
	path := writeTestConfig(t, map[string]any{config.KeyBackend: "vimeo"})
	if _, err := executeCommand(t, "config", "show", "--config", path); err == nil {
		t.Error("config show with invalid backend error = nil, want error")
	}
}

func TestSetup_InvalidLogLevel(t *testing.T) {
	path := writeTestConfig(t, nil)
	_, err := executeCommand(t, "reindex", t.TempDir(), "--config", path, "--log-level", "loud")
	if err == nil {
		t.Error("reindex with invalid --log-level error = nil, want error")
	}
}

func TestReindexCommand(t *testing.T) {
	path := writeTestConfig(t, nil)
	lib := t.TempDir()
	channel := filepath.Join(lib, testChannelDir)
	writeFile(t, filepath.Join(channel, "2009", "20091025 - Never Gonna Give You Up [dQw4w9WgXcQ].mkv"), "x")
	writeFile(t, filepath.Join(channel, "2009", "20090101 - Together Forever [yPYZpwSpKmA].mkv"), "x")
	writeFile(t, filepath.Join(channel, "2010", "20100101 - Whenever You Need Somebody [BeyEGebJ1l4].mkv"), "x")
	writeFile(t, filepath.Join(lib, "Unknown Channel", "2011", "clip.mkv"), "x")

	out, err := executeCommand(t, "reindex", lib, "--config", path)
	if err != nil {
		t.Fatalf("reindex error = %v", err)
	}
	if diff := cmp.Diff("1 series, 2 seasons, 3 episodes: 5 updated, 0 errors\n", out); diff != "" {
		t.Errorf("first reindex output mismatch (-want +got):\n%s", diff)
	}

	out, err = executeCommand(t, "reindex", lib, "--config", path)
	if err != nil {
		t.Fatalf("second reindex error = %v", err)
	}
	if diff := cmp.Diff("1 series, 2 seasons, 3 episodes: 0 updated, 0 errors\n", out); diff != "" {
		t.Errorf("second reindex output mismatch (-want +got):\n%s", diff)
	}
}

func TestJournalCommand(t *testing.T) {
	logDir := filepath.Join(t.TempDir(), "logs")
	path := writeTestConfig(t, map[string]any{
		config.KeyEnableLogging: true,
		config.KeyLogDir:        logDir,
	})

	out, err := executeCommand(t, "journal", "--config", path)
	if err != nil {
		t.Fatalf("journal error = %v", err)
	}
	if diff := cmp.Diff("No sessions recorded.\n", out); diff != "" {
		t.Errorf("empty journal output mismatch (-want +got):\n%s", diff)
	}

	lib := t.TempDir()
	writeFile(t, filepath.Join(lib, testChannelDir, "2009", "Never Gonna Give You Up [dQw4w9WgXcQ].mkv"), "x")
	if _, err := executeCommand(t, "reindex", lib, "--config", path); err != nil {
		t.Fatalf("reindex error = %v", err)
	}

	out, err = executeCommand(t, "journal", "--config", path, "--limit", "1")
	if err != nil {
		t.Fatalf("journal error = %v", err)
	}
	if want := "2 ok, 0 failed"; !strings.Contains(out, want) {
		t.Errorf("journal output = %q, want it to contain %q", out, want)
	}
	if lines := strings.Count(out, "\n"); lines != 1 {
		t.Errorf("journal --limit 1 printed %d lines, want 1:\n%s", lines, out)
	}
}

func TestReindexCommand_NotADirectory(t *testing.T) {
	path := writeTestConfig(t, nil)
	missing := filepath.Join(t.TempDir(), "missing")
	if _, err := executeCommand(t, "reindex", missing, "--config", path); err == nil {
		t.Error("reindex of a missing folder error = nil, want error")
	}
}

func TestRefreshCommand_LocalSidecars(t *testing.T) {
	path := writeTestConfig(t, nil)
	lib := t.TempDir()
	season := filepath.Join(lib, testChannelDir, "2009")
	writeFile(t, filepath.Join(season, "Never Gonna Give You Up [dQw4w9WgXcQ].mkv"), "x")
	writeFile(t, filepath.Join(season, "Never Gonna Give You Up [dQw4w9WgXcQ].info.json"),
		`{"id":"dQw4w9WgXcQ","title":"Never Gonna Give You Up","uploader":"Rick Astley","channel_id":"UCuAXFkgsw1L7xaCfnd5JJOw","upload_date":"20091025"}`)
	writeFile(t, filepath.Join(lib, testChannelDir, "No Id.mkv"), "x")

	out, err := executeCommand(t, "refresh", lib, "--config", path, "--no-tui")
	if err != nil {
		t.Fatalf("refresh error = %v\n%s", err, out)
	}
	if want := "3 items: 2 fresh, 0 stale, 1 missing, 0 errors"; !strings.Contains(out, want) {
		t.Errorf("refresh output = %q, want it to contain %q", out, want)
	}
}

func TestRefreshCommand_ListsFailedFetches(t *testing.T) {
	path := writeTestConfig(t, map[string]any{
		config.KeyBackend: config.BackendAPI,
		config.KeyAPIKey:  "",
	})
	lib := t.TempDir()
	writeFile(t, filepath.Join(lib, testChannelDir, "Never Gonna Give You Up [dQw4w9WgXcQ].mkv"), "x")

	out, err := executeCommand(t, "refresh", lib, "--config", path, "--no-tui")
	if err != nil {
		t.Fatalf("refresh error = %v\n%s", err, out)
	}
	for _, want := range []string{
		"2 items: 0 fresh, 0 stale, 2 missing, 2 errors",
		"Failed fetches:",
		"  UCuAXFkgsw1L7xaCfnd5JJOw (1 of 1 attempts failed): ",
		"  dQw4w9WgXcQ (1 of 1 attempts failed): ",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("refresh output = %q, want it to contain %q", out, want)
		}
	}
}

func TestPrintFetchFailures(t *testing.T) {
	tests := map[string]struct {
		states map[string]core.FetchState
		want   string
	}{
		"none": {},
		"only successes": {
			states: map[string]core.FetchState{"dQw4w9WgXcQ": {Attempts: 1}},
		},
		"sorted failures": {
			states: map[string]core.FetchState{
				"dQw4w9WgXcQ":              {Attempts: 2, Failures: 2, LastError: "timed out"},
				"UCuAXFkgsw1L7xaCfnd5JJOw": {Attempts: 1, Failures: 1, LastError: "quota exhausted"},
				"aaaaaaaaaaa":              {Attempts: 2, Failures: 1},
			},
			want: "Failed fetches:\n" +
				"  UCuAXFkgsw1L7xaCfnd5JJOw (1 of 1 attempts failed): quota exhausted\n" +
				"  dQw4w9WgXcQ (2 of 2 attempts failed): timed out\n",
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			printFetchFailures(&buf, tc.states)
			if diff := cmp.Diff(tc.want, buf.String()); diff != "" {
				t.Errorf("printFetchFailures() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCacheInspectCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeTestConfig(t, map[string]any{config.KeyCacheDir: dir})
	store := cache.New(dir)
	if err := store.Write("dQw4w9WgXcQ", &metadata.Record{ID: "dQw4w9WgXcQ", Title: "Never Gonna Give You Up"}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	old := time.Now().Add(-cache.FreshnessWindow - time.Hour)
	if err := store.Write(cache.KeyForName("Rick Astley"), &metadata.Record{ID: "UCuAXFkgsw1L7xaCfnd5JJOw"}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := os.Chtimes(store.Path(cache.KeyForName("Rick Astley")), old, old); err != nil {
		t.Fatalf("Chtimes() error = %v", err)
	}

	tests := map[string]struct {
		arg  string
		want []string
	}{
		"fresh video": {
			arg:  "dQw4w9WgXcQ",
			want: []string{"Key:     dQw4w9WgXcQ", "Path:    " + store.Path("dQw4w9WgXcQ"), "Status:  fresh"},
		},
		"expired channel name": {
			arg:  "Rick Astley",
			want: []string{"Key:     name.Rick Astley", "Status:  expired"},
		},
		"missing": {
			arg:  "UCxxxxxxxxxxxxxxxxxxxxxx",
			want: []string{"Status:  not cached"},
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			out, err := executeCommand(t, "cache", "inspect", tc.arg, "--config", path)
			if err != nil {
				t.Fatalf("cache inspect error = %v\n%s", err, out)
			}
			for _, want := range tc.want {
				if !strings.Contains(out, want) {
					t.Errorf("cache inspect output = %q, want it to contain %q", out, want)
				}
			}
		})
	}
}

func TestCacheInspectCommand_JSON(t *testing.T) {
	dir := t.TempDir()
	path := writeTestConfig(t, map[string]any{config.KeyCacheDir: dir})
	if err := cache.New(dir).Write("dQw4w9WgXcQ", &metadata.Record{ID: "dQw4w9WgXcQ"}); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	out, err := executeCommand(t, "cache", "inspect", "dQw4w9WgXcQ", "--json", "--config", path)
	if err != nil {
		t.Fatalf("cache inspect --json error = %v\n%s", err, out)
	}
	var got entryInfo
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("json.Unmarshal(%q) error = %v", out, err)
	}
	if got.Key != "dQw4w9WgXcQ" || !got.Exists || !got.Fresh || got.Written.IsZero() {
		t.Errorf("cache inspect --json = %+v, want a fresh existing entry", got)
	}
}

func TestCachePruneCommand(t *testing.T) {
	tests := map[string]struct {
		args      []string
		want      string
		remaining []string
	}{
		"expired only": {
			want:      "Removed 1 cache entries.",
			remaining: []string{"dQw4w9WgXcQ"},
		},
		"all": {
			args: []string{"--all"},
			want: "Removed 2 cache entries.",
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			path := writeTestConfig(t, map[string]any{config.KeyCacheDir: dir})
			store := cache.New(dir)
			for _, id := range []string{"dQw4w9WgXcQ", "UCuAXFkgsw1L7xaCfnd5JJOw"} {
				if err := store.Write(id, &metadata.Record{ID: id}); err != nil {
					t.Fatalf("Write(%s) error = %v", id, err)
				}
			}
			old := time.Now().Add(-cache.FreshnessWindow - time.Hour)
			if err := os.Chtimes(store.Path("UCuAXFkgsw1L7xaCfnd5JJOw"), old, old); err != nil {
				t.Fatalf("Chtimes() error = %v", err)
			}

			args := append([]string{"cache", "prune", "--config", path}, tc.args...)
			out, err := executeCommand(t, args...)
			if err != nil {
				t.Fatalf("cache prune error = %v\n%s", err, out)
			}
			if !strings.Contains(out, tc.want) {
				t.Errorf("cache prune output = %q, want it to contain %q", out, tc.want)
			}
			keys, err := store.Keys()
			if err != nil {
				t.Fatalf("Keys() error = %v", err)
			}
			if diff := cmp.Diff(tc.remaining, keys, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("entries left after prune (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRefreshCommand_InvalidKind(t *testing.T) {
	path := writeTestConfig(t, nil)
	if _, err := executeCommand(t, "refresh", t.TempDir(), "--config", path, "--no-tui", "--kind", "series"); err == nil {
		t.Error("refresh --kind series error = nil, want error")
	}
}

func TestUnwrapRoot(t *testing.T) {
	root := t.TempDir()
	child := treeview.NewNode("child", "child", treeview.FileInfo{FileInfo: fakeDir{name: "child"}, Path: filepath.Join(root, "child")})
	rootNode := treeview.NewNode("root", filepath.Base(root), treeview.FileInfo{FileInfo: fakeDir{name: filepath.Base(root)}, Path: root})
	rootNode.SetChildren([]*treeview.Node[treeview.FileInfo]{child})

	tests := map[string]struct {
		tree    *treeview.Tree[treeview.FileInfo]
		root    string
		wantLen int
		wantTop string
	}{
		"root node unwrapped": {
			tree:    treeview.NewTree([]*treeview.Node[treeview.FileInfo]{rootNode}),
			root:    root,
			wantLen: 1,
			wantTop: filepath.Join(root, "child"),
		},
		"single channel kept": {
			tree:    treeview.NewTree([]*treeview.Node[treeview.FileInfo]{child}),
			root:    root,
			wantLen: 1,
			wantTop: filepath.Join(root, "child"),
		},
		"other root kept": {
			tree:    treeview.NewTree([]*treeview.Node[treeview.FileInfo]{rootNode}),
			root:    filepath.Join(root, "elsewhere"),
			wantLen: 1,
			wantTop: root,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got := unwrapRoot(tc.tree, tc.root)
			if len(got) != tc.wantLen {
				t.Fatalf("unwrapRoot() returned %d nodes, want %d", len(got), tc.wantLen)
			}
			if got[0].Data().Path != tc.wantTop {
				t.Errorf("unwrapRoot()[0] = %s, want %s", got[0].Data().Path, tc.wantTop)
			}
		})
	}
}

func TestPrintSearchResults(t *testing.T) {
	tests := map[string]struct {
		results []metadata.SearchResult
		want    string
	}{
		"empty": {want: "No results.\n"},
		"video": {
			results: []metadata.SearchResult{{ID: "dQw4w9WgXcQ", Name: "Never Gonna Give You Up", Uploader: "Rick Astley", ProductionYear: 2009}},
			want:    "dQw4w9WgXcQ               2009  Never Gonna Give You Up - Rick Astley\n",
		},
		"channel without year": {
			results: []metadata.SearchResult{{ID: "UCuAXFkgsw1L7xaCfnd5JJOw", Name: "Rick Astley"}},
			want:    "UCuAXFkgsw1L7xaCfnd5JJOw        Rick Astley\n",
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			printSearchResults(&buf, tc.results)
			if diff := cmp.Diff(tc.want, buf.String()); diff != "" {
				t.Errorf("printSearchResults() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
