package config

// ConfigDiff describes what changed between two configs. The log level is
// the only setting applied without a restart; everything else is collected
// in RestartRequired so the server can tell the operator what a reload did
// not pick up.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// RestartRequired lists dotted config paths whose new values only take
	// effect after a restart.
	RestartRequired []string
}

// Empty reports whether the diff carries no changes at all.
func (d ConfigDiff) Empty() bool {
	return !d.LogLevelChanged && len(d.RestartRequired) == 0
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	restart := func(path string, changed bool) {
		if changed {
			d.RestartRequired = append(d.RestartRequired, path)
		}
	}
	restart("server.listen_addr", old.Server.ListenAddr != new.Server.ListenAddr)
	restart("server.tls", !tlsEqual(old.Server.TLS, new.Server.TLS))
	restart("storage.data_dir", old.Storage.DataDir != new.Storage.DataDir)
	restart("storage.output_dir", old.Storage.OutputDir != new.Storage.OutputDir)
	restart("engine.base_url", old.Engine.BaseURL != new.Engine.BaseURL)
	restart("engine.reference_rate", old.Engine.ReferenceRate != new.Engine.ReferenceRate)
	restart("engine.timeout_seconds", old.Engine.TimeoutSeconds != new.Engine.TimeoutSeconds)
	restart("generation.model", old.Generation.Model != new.Generation.Model)
	restart("generation.language", old.Generation.Language != new.Generation.Language)
	restart("generation.default_script", old.Generation.DefaultScript != new.Generation.DefaultScript)

	return d
}

func tlsEqual(a, b *TLSConfig) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
