package health

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Storage returns a checker named name that verifies dir exists and is
// writable by creating and removing a probe file. The voice registry and the
// generated artifacts both live on local disk, so a read-only or vanished
// volume must flip readiness.
func Storage(name, dir string) Checker {
	return Checker{
		Name: name,
		Check: func(_ context.Context) error {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create %s: %w", dir, err)
			}
			probe := filepath.Join(dir, ".healthprobe")
			if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
				return fmt.Errorf("write probe in %s: %w", dir, err)
			}
			if err := os.Remove(probe); err != nil {
				return fmt.Errorf("remove probe in %s: %w", dir, err)
			}
			return nil
		},
	}
}

// Engine returns a checker that asks the synthesis engine sidecar for its
// health. ready is typically the Ready method of the configured provider; it
// probes reachability only, a loaded model is not required.
func Engine(ready func(ctx context.Context) error) Checker {
	return Checker{Name: "engine", Check: ready}
}
