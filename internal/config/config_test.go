package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stillharbor/anchorage/internal/config"
)

const baseConfig = `
shutdown_timeout = "30s"
version = "0.1.0"

[server]
host = "0.0.0.0"
port = 8080
read_timeout = "1m"
write_timeout = "15m"
shutdown_timeout = "30s"

[database]
host = "localhost"
port = 5432
name = "anchorage"
user = "anchorage"
password = "anchorage"
ssl_mode = "disable"
max_open_conns = 25
max_idle_conns = 5
conn_max_lifetime = "15m"
conn_timeout = "5s"

[storage]
container_name = "documents"
connection_string = "DefaultEndpointsProtocol=http;AccountName=anchoragestore;AccountKey=key;BlobEndpoint=http://127.0.0.1:10000/anchoragestore;"

[api]
base_path = "/api"

[api.cors]
enabled = false

[api.pagination]
default_page_size = 25
max_page_size = 50

[recovery]
workers = 8
annotation_accept = 0.9
annotation_review = 0.8

[embedding]
model = "nomic-embed-text"
dimension = 768
`

const overlayConfig = `
[server]
port = 9090

[database]
host = "prodhost"
`

func writeConfig(t *testing.T, dir, filename, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, filename), []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", filename, err)
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(orig) })
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", baseConfig)
	chdir(t, dir)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("server port: got %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Host != "localhost" {
		t.Errorf("db host: got %s, want localhost", cfg.Database.Host)
	}
	if cfg.Storage.ContainerName != "documents" {
		t.Errorf("storage container: got %s, want documents", cfg.Storage.ContainerName)
	}
	if cfg.API.BasePath != "/api" {
		t.Errorf("api base_path: got %s, want /api", cfg.API.BasePath)
	}
	if cfg.API.Pagination.DefaultPageSize != 25 {
		t.Errorf("pagination default_page_size: got %d, want 25", cfg.API.Pagination.DefaultPageSize)
	}
	if cfg.Recovery.Workers != 8 {
		t.Errorf("recovery workers: got %d, want 8", cfg.Recovery.Workers)
	}
	if cfg.Recovery.AnnotationAccept != 0.9 {
		t.Errorf("annotation accept: got %f, want 0.9", cfg.Recovery.AnnotationAccept)
	}
	if cfg.Embedding.Dimension != 768 {
		t.Errorf("embedding dimension: got %d, want 768", cfg.Embedding.Dimension)
	}
}

func TestLoadWithOverlay(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", baseConfig)
	writeConfig(t, dir, "config.staging.toml", overlayConfig)
	chdir(t, dir)

	t.Setenv("ANCHORAGE_ENV", "staging")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("server port: got %d, want 9090 (from overlay)", cfg.Server.Port)
	}
	if cfg.Database.Host != "prodhost" {
		t.Errorf("db host: got %s, want prodhost (from overlay)", cfg.Database.Host)
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("db port: got %d, want 5432 (from base)", cfg.Database.Port)
	}
}

func TestLoadEnvVarOverrides(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", baseConfig)
	chdir(t, dir)

	t.Setenv("ANCHORAGE_VERSION", "2.0.0")
	t.Setenv("ANCHORAGE_SERVER_PORT", "3000")
	t.Setenv("ANCHORAGE_RECOVERY_WORKERS", "2")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Version != "2.0.0" {
		t.Errorf("version: got %s, want 2.0.0", cfg.Version)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("server port: got %d, want 3000", cfg.Server.Port)
	}
	if cfg.Recovery.Workers != 2 {
		t.Errorf("recovery workers: got %d, want 2", cfg.Recovery.Workers)
	}
}

func TestLoadNoConfigFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	t.Setenv("ANCHORAGE_DB_NAME", "testdb")
	t.Setenv("ANCHORAGE_DB_USER", "testuser")
	t.Setenv("ANCHORAGE_STORAGE_CONNECTION_STRING", "conn")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load without config.toml failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("server port default: got %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Name != "testdb" {
		t.Errorf("db name: got %s, want testdb", cfg.Database.Name)
	}
	if cfg.Recovery.AnnotationAccept != 0.85 {
		t.Errorf("annotation accept default: got %f, want 0.85", cfg.Recovery.AnnotationAccept)
	}
	if cfg.Recovery.ConnectionAccept != 0.95 {
		t.Errorf("connection accept default: got %f, want 0.95", cfg.Recovery.ConnectionAccept)
	}
	if cfg.Embedding.Model != "nomic-embed-text" {
		t.Errorf("embedding model default: got %s, want nomic-embed-text", cfg.Embedding.Model)
	}
	if cfg.Agent.Enabled {
		t.Error("agent should be disabled by default")
	}
}

func TestLoadInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", "not valid toml [[[")
	chdir(t, dir)

	if _, err := config.Load(); err == nil {
		t.Fatal("expected error for invalid toml, got nil")
	}
}

func TestEnvDefault(t *testing.T) {
	os.Unsetenv("ANCHORAGE_ENV")
	cfg := &config.Config{}
	if got := cfg.Env(); got != "local" {
		t.Errorf("Env() = %q, want local", got)
	}
}

func TestEnvFromEnvVar(t *testing.T) {
	t.Setenv("ANCHORAGE_ENV", "production")
	cfg := &config.Config{}
	if got := cfg.Env(); got != "production" {
		t.Errorf("Env() = %q, want production", got)
	}
}

func TestShutdownTimeoutDuration(t *testing.T) {
	cfg := &config.Config{ShutdownTimeout: "45s"}
	if got := cfg.ShutdownTimeoutDuration(); got != 45*time.Second {
		t.Errorf("ShutdownTimeoutDuration() = %v, want 45s", got)
	}
}

func TestServerAddr(t *testing.T) {
	cfg := &config.ServerConfig{Host: "127.0.0.1", Port: 9000}
	if got := cfg.Addr(); got != "127.0.0.1:9000" {
		t.Errorf("Addr() = %q, want 127.0.0.1:9000", got)
	}
}

func TestMaxUploadSizeBytes(t *testing.T) {
	tests := []struct {
		name string
		size string
		want int64
	}{
		{"megabytes", "50MB", 50 * 1024 * 1024},
		{"kilobytes", "512KB", 512 * 1024},
		{"invalid falls back", "not-a-size", 50 * 1024 * 1024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.APIConfig{MaxUploadSize: tt.size}
			if got := cfg.MaxUploadSizeBytes(); got != tt.want {
				t.Errorf("MaxUploadSizeBytes() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRecoveryThresholdValidation(t *testing.T) {
	cfg := &config.RecoveryConfig{
		AnnotationAccept: 0.7,
		AnnotationReview: 0.8,
	}

	err := cfg.Finalize()
	if err == nil {
		t.Fatal("expected error when review threshold exceeds accept threshold")
	}
	if !strings.Contains(err.Error(), "review threshold") {
		t.Errorf("error = %v, want review threshold message", err)
	}
}

func TestRecoveryDefaults(t *testing.T) {
	cfg := &config.RecoveryConfig{}
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	if cfg.Workers != 4 {
		t.Errorf("workers default: got %d, want 4", cfg.Workers)
	}
	if cfg.AnnotationReview != 0.75 {
		t.Errorf("annotation review default: got %f, want 0.75", cfg.AnnotationReview)
	}
	if cfg.ConnectionReview != 0.85 {
		t.Errorf("connection review default: got %f, want 0.85", cfg.ConnectionReview)
	}
	if cfg.Retry.MaxAttempts == 0 {
		t.Error("retry policy should receive defaults")
	}
	if cfg.Match.EmbedWindowBytes == 0 {
		t.Error("match config should receive defaults")
	}
}

func TestEmbeddingDimensionValidation(t *testing.T) {
	cfg := &config.EmbeddingConfig{Dimension: -1}
	if err := cfg.Finalize(); err == nil {
		t.Fatal("expected error for negative dimension")
	}
}

func TestAgentDisabledSkipsValidation(t *testing.T) {
	cfg := &config.AgentConfig{}
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	if cfg.Enabled {
		t.Error("agent should default to disabled")
	}
}

func TestAgentBuildsProviderConfig(t *testing.T) {
	cfg := &config.AgentConfig{
		Enabled:  true,
		Provider: "ollama",
		BaseURL:  "http://localhost:11434",
		Model:    "llama3.2",
		Token:    "secret",
	}
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	agent := cfg.Agent()
	if agent.Provider.Name != "ollama" {
		t.Errorf("provider name: got %s, want ollama", agent.Provider.Name)
	}
	if agent.Provider.BaseURL != "http://localhost:11434" {
		t.Errorf("base url: got %s, want http://localhost:11434", agent.Provider.BaseURL)
	}
	if agent.Model.Name != "llama3.2" {
		t.Errorf("model name: got %s, want llama3.2", agent.Model.Name)
	}
	if agent.Provider.Options["token"] != "secret" {
		t.Errorf("token option: got %v, want secret", agent.Provider.Options["token"])
	}
}

func TestAgentEnvOverrides(t *testing.T) {
	t.Setenv("ANCHORAGE_AGENT_MODEL_NAME", "qwen2.5:7b")
	t.Setenv("ANCHORAGE_AGENT_BASE_URL", "http://agent-host:11434")

	cfg := &config.AgentConfig{Enabled: true}
	if err := cfg.Finalize(); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	if cfg.Model != "qwen2.5:7b" {
		t.Errorf("model: got %s, want qwen2.5:7b", cfg.Model)
	}
	if cfg.BaseURL != "http://agent-host:11434" {
		t.Errorf("base url: got %s, want http://agent-host:11434", cfg.BaseURL)
	}
}
