package settings

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	d := Defaults()
	if s != d {
		t.Errorf("Load() = %+v, want defaults %+v", s, d)
	}
}

func TestLoad_MergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"default_branch": "trunk"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if s.DefaultBranch != "trunk" {
		t.Errorf("DefaultBranch = %q, want trunk", s.DefaultBranch)
	}
	if s.LogLevel != Defaults().LogLevel {
		t.Errorf("LogLevel = %q, want default %q", s.LogLevel, Defaults().LogLevel)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	s := Defaults()
	s.CloneBasePath = "/srv/repos"
	s.DashboardPort = 9000

	if err := Save(path, s); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got != s {
		t.Errorf("round trip mismatch: got %+v, want %+v", got, s)
	}
}

func TestLoad_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Errorf("expected error for corrupt settings file")
	}
}

func TestGetSet(t *testing.T) {
	s := Defaults()

	if err := s.Set("default_branch", "develop"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	got, err := s.Get("default_branch")
	if err != nil || got != "develop" {
		t.Errorf("Get() = %q, %v; want develop", got, err)
	}

	if err := s.Set("dashboard_port", "not-a-port"); err == nil {
		t.Errorf("expected error for invalid port")
	}
	if err := s.Set("nope", "x"); err == nil {
		t.Errorf("expected error for unknown key")
	}
	if _, err := s.Get("nope"); err == nil {
		t.Errorf("expected error for unknown key")
	}
}
