package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. Settings absent from the file keep their [Default] values.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r on top of [Default] and
// validates the result. Useful in tests where configs are constructed from
// string literals. An empty document yields the defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if cfg.Storage.OutputDir == "" {
		cfg.Storage.OutputDir = filepath.Join(cfg.Storage.DataDir, "outputs")
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.ListenAddr == "" {
		errs = append(errs, errors.New("server.listen_addr is required"))
	} else if !loopbackAddr(cfg.Server.ListenAddr) {
		slog.Warn("server.listen_addr is not a loopback address; recordings and generated audio will be reachable from the network",
			"listen_addr", cfg.Server.ListenAddr)
	}
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil && (cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "") {
		errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
	}

	// Storage
	if cfg.Storage.DataDir == "" {
		errs = append(errs, errors.New("storage.data_dir is required"))
	}

	// Engine
	if cfg.Engine.BaseURL == "" {
		errs = append(errs, errors.New("engine.base_url is required"))
	} else if u, err := url.Parse(cfg.Engine.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("engine.base_url %q is not an absolute URL", cfg.Engine.BaseURL))
	}
	if cfg.Engine.ReferenceRate < 0 {
		errs = append(errs, fmt.Errorf("engine.reference_rate %d must not be negative", cfg.Engine.ReferenceRate))
	}
	if cfg.Engine.TimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("engine.timeout_seconds %d must not be negative", cfg.Engine.TimeoutSeconds))
	}

	// Generation
	if cfg.Generation.Model == "" {
		errs = append(errs, errors.New("generation.model is required"))
	}
	if cfg.Generation.Language == "" {
		errs = append(errs, errors.New("generation.language is required"))
	}

	return errors.Join(errs...)
}

// loopbackAddr reports whether addr binds loopback only.
func loopbackAddr(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
