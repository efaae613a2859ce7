package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ruteri/signet-registry/interfaces"
)

// MultiSnapshotBackend implements interfaces.SnapshotBackend on top of several backends.
// Snapshots are saved to every available backend and loaded from the backend holding
// the highest snapshot version. A replica that was down catches up on the next save.
type MultiSnapshotBackend struct {
	backends []interfaces.SnapshotBackend
	log      *slog.Logger
}

// NewMultiSnapshotBackend creates a new multi-backend with fallback
func NewMultiSnapshotBackend(backends []interfaces.SnapshotBackend, logger *slog.Logger) *MultiSnapshotBackend {
	if logger == nil {
		logger = slog.Default()
	}

	return &MultiSnapshotBackend{
		backends: backends,
		log:      logger,
	}
}

// Load returns the most recent snapshot across all backends, ordered by version.
// Every backend has to answer, since an unreachable one may hold the newest state.
// ErrSnapshotNotFound is returned only if every backend reported it.
func (m *MultiSnapshotBackend) Load(ctx context.Context) ([]byte, error) {
	start := time.Now()
	var errs []error

	var (
		latest        []byte
		latestVersion uint64
		latestName    string
	)

	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			m.log.Debug("Backend unavailable", slog.String("backend_name", backend.Name()))
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), interfaces.ErrBackendUnavailable))
			continue
		}

		data, err := backend.Load(ctx)
		if errors.Is(err, interfaces.ErrSnapshotNotFound) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
			m.log.Debug("Failed to load from backend",
				slog.String("backend_name", backend.Name()),
				"err", err)
			continue
		}

		version, err := snapshotVersion(data)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
			continue
		}

		if latest == nil || version > latestVersion {
			latest, latestVersion, latestName = data, version, backend.Name()
		}
	}

	if len(errs) > 0 {
		m.log.Error("Failed to load snapshot from every backend",
			slog.Int("failed_backends", len(errs)),
			slog.Duration("duration", time.Since(start)))
		return nil, fmt.Errorf("refusing to load snapshot with backends missing: %w", errors.Join(errs...))
	}

	if latest == nil {
		if len(m.backends) == 0 {
			return nil, fmt.Errorf("no snapshot backend configured: %w", interfaces.ErrBackendUnavailable)
		}
		return nil, interfaces.ErrSnapshotNotFound
	}

	m.log.Info("Loaded snapshot",
		slog.String("backend_name", latestName),
		slog.Uint64("version", latestVersion),
		slog.Duration("duration", time.Since(start)))
	return latest, nil
}

// Save stores the snapshot to all available backends.
// It succeeds if at least one backend accepted the snapshot. Replicas that missed the
// write hold an older version and are outranked by Load.
func (m *MultiSnapshotBackend) Save(ctx context.Context, data []byte) error {
	start := time.Now()
	var success bool
	var errs []error

	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			m.log.Debug("Backend unavailable", slog.String("backend_name", backend.Name()))
			continue
		}

		if err := backend.Save(ctx, data); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
			m.log.Warn("Failed to save snapshot to backend",
				slog.String("backend_name", backend.Name()),
				"err", err)
			continue
		}
		success = true
	}

	if !success {
		m.log.Error("All backends failed to save snapshot",
			slog.Int("failed_backends", len(errs)),
			slog.Duration("duration", time.Since(start)))
		if len(errs) == 0 {
			return fmt.Errorf("no snapshot backend available: %w", interfaces.ErrBackendUnavailable)
		}
		return fmt.Errorf("all backends failed to save snapshot: %w", errors.Join(errs...))
	}

	return nil
}

// Available checks if any backend is available
func (m *MultiSnapshotBackend) Available(ctx context.Context) bool {
	for _, backend := range m.backends {
		if backend.Available(ctx) {
			return true
		}
	}
	return false
}

// Name returns the name of this backend
func (m *MultiSnapshotBackend) Name() string {
	return "multi"
}

// LocationURI returns the combined location URIs of all backends
func (m *MultiSnapshotBackend) LocationURI() string {
	var locations []string
	for _, backend := range m.backends {
		locations = append(locations, backend.LocationURI())
	}

	return "multi:[" + strings.Join(locations, ",") + "]"
}
