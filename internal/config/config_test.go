package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("USER", "ada")
	t.Setenv(EnvConfigFile, "")
	fs := afero.NewMemMapFs()
	fs.MkdirAll("/repo/.minvcs", 0755)

	cfg, err := Load(fs, "/repo", ".minvcs")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := &Config{
		Author:           "ada",
		LogLevel:         "info",
		CompressionLevel: 1,
		CacheSize:        256,
		Lock:             true,
		LockWait:         10 * time.Second,
		MountDebug:       false,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load (-want +got):\n%s", diff)
	}
}

func TestLoad_RepoFile(t *testing.T) {
	t.Setenv(EnvConfigFile, "")
	fs := afero.NewMemMapFs()
	fs.MkdirAll("/repo/.minvcs", 0755)
	afero.WriteFile(fs, "/repo/.minvcs/config.yaml", []byte("author: grace\ncompression_level: 9\nlock: false\n"), 0644)

	cfg, err := Load(fs, "/repo", ".minvcs")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Author != "grace" || cfg.CompressionLevel != 9 || cfg.Lock {
		t.Errorf("Load = %+v", cfg)
	}
	if cfg.File != "/repo/.minvcs/config.yaml" {
		t.Errorf("File = %q", cfg.File)
	}
	if cfg.CacheSize != 256 {
		t.Errorf("CacheSize = %d, want default 256", cfg.CacheSize)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvConfigFile, "")
	t.Setenv("MINVCS_AUTHOR", "linus")
	t.Setenv("MINVCS_LOG_LEVEL", "debug")
	t.Setenv("MINVCS_LOCK_WAIT", "250ms")
	fs := afero.NewMemMapFs()
	fs.MkdirAll("/repo/.minvcs", 0755)
	afero.WriteFile(fs, "/repo/.minvcs/config.yaml", []byte("author: grace\n"), 0644)

	cfg, err := Load(fs, "/repo", ".minvcs")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Author != "linus" {
		t.Errorf("Author = %q, want env override", cfg.Author)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.LockWait != 250*time.Millisecond {
		t.Errorf("LockWait = %s, want 250ms", cfg.LockWait)
	}
}

func TestLoad_ExplicitFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/etc/minvcs.yaml", []byte("cache_size: 8\n"), 0644)
	t.Setenv(EnvConfigFile, "/etc/minvcs.yaml")

	cfg, err := Load(fs, "", ".minvcs")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CacheSize != 8 {
		t.Errorf("CacheSize = %d, want 8", cfg.CacheSize)
	}

	t.Setenv(EnvConfigFile, "/etc/missing.yaml")
	if _, err := Load(fs, "", ".minvcs"); err == nil {
		t.Error("Load with missing explicit file succeeded")
	}
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv(EnvConfigFile, "")
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/repo/.minvcs/config.yaml", []byte("cache_size: 0\n"), 0644)

	if _, err := Load(fs, "/repo", ".minvcs"); err == nil {
		t.Error("Load with cache_size 0 succeeded")
	}
}

func TestLoad_NegativeLockWait(t *testing.T) {
	t.Setenv(EnvConfigFile, "")
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/repo/.minvcs/config.yaml", []byte("lock_wait: -1s\n"), 0644)

	if _, err := Load(fs, "/repo", ".minvcs"); err == nil {
		t.Error("Load with negative lock_wait succeeded")
	}
}
