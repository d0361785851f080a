package config_test

import (
	"slices"
	"testing"

	"github.com/MrWong99/voxmimic/internal/config"
)

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()
	old := config.Default()
	new := config.Default()

	d := config.Diff(old, new)
	if !d.Empty() {
		t.Errorf("diff of identical configs should be empty, got %+v", d)
	}
}

func TestDiff_LogLevel(t *testing.T) {
	t.Parallel()
	old := config.Default()
	new := config.Default()
	new.Server.LogLevel = config.LogDebug

	d := config.Diff(old, new)
	if !d.LogLevelChanged {
		t.Fatal("LogLevelChanged should be true")
	}
	if d.NewLogLevel != config.LogDebug {
		t.Errorf("NewLogLevel: got %q, want debug", d.NewLogLevel)
	}
	if len(d.RestartRequired) != 0 {
		t.Errorf("log level change should not require a restart, got %v", d.RestartRequired)
	}
}

func TestDiff_RestartRequiredFields(t *testing.T) {
	t.Parallel()
	old := config.Default()
	new := config.Default()
	new.Server.ListenAddr = ":9999"
	new.Storage.DataDir = "/elsewhere"
	new.Engine.BaseURL = "http://10.0.0.5:8880"
	new.Generation.Model = "acme/other-tts"

	d := config.Diff(old, new)
	for _, want := range []string{"server.listen_addr", "storage.data_dir", "engine.base_url", "generation.model"} {
		if !slices.Contains(d.RestartRequired, want) {
			t.Errorf("RestartRequired should contain %q, got %v", want, d.RestartRequired)
		}
	}
	if d.LogLevelChanged {
		t.Error("LogLevelChanged should be false")
	}
}

func TestDiff_TLS(t *testing.T) {
	t.Parallel()
	old := config.Default()
	new := config.Default()
	new.Server.TLS = &config.TLSConfig{CertFile: "c.pem", KeyFile: "k.pem"}

	d := config.Diff(old, new)
	if !slices.Contains(d.RestartRequired, "server.tls") {
		t.Errorf("enabling TLS should require a restart, got %v", d.RestartRequired)
	}

	// Same TLS settings on both sides are not a change.
	old.Server.TLS = &config.TLSConfig{CertFile: "c.pem", KeyFile: "k.pem"}
	if d := config.Diff(old, new); !d.Empty() {
		t.Errorf("identical TLS configs should not diff, got %v", d.RestartRequired)
	}
}
