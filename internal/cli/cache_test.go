package cli

import (
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/flowdiagram/pkg/cache"
)

func TestCLICacheDirFromConfig(t *testing.T) {
	c := New(io.Discard, log.InfoLevel)
	c.Config.Cache.Dir = "/tmp/flowdiagram-cache"

	dir, err := c.cacheDir()
	if err != nil {
		t.Fatalf("cacheDir() error: %v", err)
	}
	if dir != "/tmp/flowdiagram-cache" {
		t.Errorf("cacheDir() = %q, want the configured dir", dir)
	}
}

func TestNewCache(t *testing.T) {
	tests := []struct {
		name    string
		noCache bool
		cfg     CacheConfig
		want    string
	}{
		{"disabled by flag", true, CacheConfig{}, "null"},
		{"disabled by config", false, CacheConfig{Disabled: true}, "null"},
		{"file", false, CacheConfig{Dir: "TEMP"}, "file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(io.Discard, log.InfoLevel)
			c.Config.Cache = tt.cfg
			if c.Config.Cache.Dir == "TEMP" {
				c.Config.Cache.Dir = t.TempDir()
			}

			got, err := c.newCache(tt.noCache)
			if err != nil {
				t.Fatalf("newCache() error: %v", err)
			}
			var kind string
			switch got.(type) {
			case cache.NullCache:
				kind = "null"
			case *cache.FileCache:
				kind = "file"
			}
			if kind != tt.want {
				t.Errorf("newCache() = %T, want %s", got, tt.want)
			}
		})
	}
}

func TestRunnerUsesFileCache(t *testing.T) {
	c := New(io.Discard, log.InfoLevel)
	c.Config.Cache.Dir = t.TempDir()

	runner, err := c.newRunner(false)
	if err != nil {
		t.Fatal(err)
	}
	defer runner.Close()

	if err := runner.Cache.Set(context.Background(), "k", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	fc, err := cache.NewFileCache(c.Config.Cache.Dir)
	if err != nil {
		t.Fatal(err)
	}
	n, err := fc.Clear()
	if err != nil || n != 1 {
		t.Errorf("Clear() = %d, %v; want 1 entry", n, err)
	}
}
