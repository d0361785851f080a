// Package config provides the configuration schema, loader and file watcher
// for the voxmimic server.
package config

import (
	"time"

	"github.com/MrWong99/voxmimic/pkg/provider/synth/qwen"
)

// LogLevel controls log verbosity for the voxmimic server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for voxmimic.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader];
// [Default] is what the server runs with when no file is given.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Engine     EngineConfig     `yaml:"engine"`
	Generation GenerationConfig `yaml:"generation"`
}

// ServerConfig holds network and logging settings for the voxmimic server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on. The default binds
	// the loopback interface only; voice recordings stay on the machine
	// unless a wider bind is configured explicitly.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// StorageConfig locates the application state on disk.
type StorageConfig struct {
	// DataDir is the directory holding the voice registry and the per-voice
	// reference recordings.
	DataDir string `yaml:"data_dir"`

	// OutputDir is the directory generated audio artifacts are written to.
	// Defaults to "<data_dir>/outputs" when empty.
	OutputDir string `yaml:"output_dir"`
}

// EngineConfig describes the synthesis engine sidecar.
type EngineConfig struct {
	// BaseURL is the HTTP address of the engine sidecar.
	BaseURL string `yaml:"base_url"`

	// ReferenceRate is the sample rate in Hz that reference recordings are
	// resampled to before synthesis. 0 sends recordings at their native rate.
	ReferenceRate int `yaml:"reference_rate"`

	// TimeoutSeconds bounds a single synthesis request. 0 uses the provider
	// default.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// Timeout returns TimeoutSeconds as a [time.Duration].
func (e EngineConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSeconds) * time.Second
}

// GenerationConfig seeds the runtime generation settings. Values changed
// through the API are persisted in the voice registry and take precedence
// over these on the next start.
type GenerationConfig struct {
	// Model is the default synthesis model id.
	Model string `yaml:"model"`

	// Language is the default synthesis language.
	Language string `yaml:"language"`

	// DefaultScript replaces the built-in reference script that is read
	// aloud when recording a voice.
	DefaultScript string `yaml:"default_script"`
}

// Default returns the configuration the server runs with when no config
// file is provided.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: "127.0.0.1:7860",
			LogLevel:   LogInfo,
		},
		Storage: StorageConfig{
			DataDir: "data",
		},
		Engine: EngineConfig{
			BaseURL:        "http://127.0.0.1:8880",
			ReferenceRate:  16000,
			TimeoutSeconds: 120,
		},
		Generation: GenerationConfig{
			Model:    qwen.DefaultModel,
			Language: qwen.DefaultLanguage,
		},
	}
}
