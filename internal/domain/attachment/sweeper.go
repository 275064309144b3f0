package attachment

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// orphanGrace keeps recently written objects out of orphan
// reclamation. An upload writes its bytes before the registry row
// exists; reclaiming inside that window would leave the row pointing
// at nothing.
const orphanGrace = 10 * time.Minute

// SweepFailure records one attachment the sweep could not remove.
type SweepFailure struct {
	AttachmentID string `json:"attachment_id"`
	StorageKey   string `json:"storage_key"`
	Error        string `json:"error"`
}

// SweepResult summarizes one scan-and-delete cycle. Failures are
// collected here, never raised as a fatal error.
type SweepResult struct {
	MaxAgeDays     int            `json:"max_age_days"`
	Scanned        int            `json:"scanned"`
	Deleted        int            `json:"deleted"`
	ReclaimedBytes int64          `json:"reclaimed_bytes"`
	Orphans        int            `json:"orphans_removed"`
	Failures       []SweepFailure `json:"failures,omitempty"`
}

// Sweeper deletes attachments past a configurable age and reconciles
// orphaned bytes. It runs as a cancellable background task; callers
// may also trigger a sweep synchronously.
type Sweeper struct {
	repo       Repository
	storage    Storage
	interval   time.Duration
	maxAgeDays int
	log        zerolog.Logger
}

func NewSweeper(repo Repository, storage Storage, interval time.Duration, maxAgeDays int, log zerolog.Logger) *Sweeper {
	return &Sweeper{
		repo:       repo,
		storage:    storage,
		interval:   interval,
		maxAgeDays: maxAgeDays,
		log:        log.With().Str("component", "retention-sweeper").Logger(),
	}
}

// Run executes sweeps on the configured interval until ctx is
// cancelled. The first sweep waits a full interval.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info().
		Dur("interval", s.interval).
		Int("max_age_days", s.maxAgeDays).
		Msg("retention sweeper started")

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("retention sweeper stopped")
			return
		case <-ticker.C:
			result := s.RunOnce(ctx, s.maxAgeDays)
			s.log.Info().
				Int("scanned", result.Scanned).
				Int("deleted", result.Deleted).
				Int("orphans", result.Orphans).
				Int("failures", len(result.Failures)).
				Int64("reclaimed_bytes", result.ReclaimedBytes).
				Msg("sweep complete")
		}
	}
}

// RunOnce performs one sweep: registry scan, per-record delete, then
// orphaned-bytes reconciliation. Each record is handled independently
// so a partial failure leaves a bounded, diagnosable set of leftovers.
func (s *Sweeper) RunOnce(ctx context.Context, maxAgeDays int) SweepResult {
	result := SweepResult{MaxAgeDays: maxAgeDays}

	cutoff := time.Now().UTC().Add(-time.Duration(maxAgeDays) * 24 * time.Hour)
	candidates, err := s.repo.ScanOlderThan(ctx, cutoff)
	if err != nil {
		s.log.Error().Err(err).Msg("retention scan failed")
		result.Failures = append(result.Failures, SweepFailure{Error: err.Error()})
		return result
	}
	result.Scanned = len(candidates)

	for _, att := range candidates {
		// Bytes first, then the registry row: a crash in between leaves
		// orphaned bytes the next sweep reclaims, never a row pointing
		// at nothing.
		if _, err := s.storage.Delete(ctx, att.StorageKey); err != nil {
			result.Failures = append(result.Failures, SweepFailure{
				AttachmentID: att.ID,
				StorageKey:   att.StorageKey,
				Error:        err.Error(),
			})
			continue
		}
		if _, err := s.repo.Delete(ctx, att.ID); err != nil {
			result.Failures = append(result.Failures, SweepFailure{
				AttachmentID: att.ID,
				StorageKey:   att.StorageKey,
				Error:        err.Error(),
			})
			continue
		}
		result.Deleted++
		result.ReclaimedBytes += att.SizeBytes
	}

	result.Orphans = s.reclaimOrphans(ctx)
	return result
}

// reclaimOrphans removes stored objects the registry has no row for.
// Only objects older than the grace window are considered, so bytes of
// an upload still between its storage write and registry create stay
// untouched.
func (s *Sweeper) reclaimOrphans(ctx context.Context) int {
	stored, err := s.storage.KeysOlderThan(ctx, time.Now().Add(-orphanGrace))
	if err != nil {
		s.log.Error().Err(err).Msg("orphan scan: list storage keys failed")
		return 0
	}
	registered, err := s.repo.StorageKeys(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("orphan scan: list registry keys failed")
		return 0
	}

	known := make(map[string]struct{}, len(registered))
	for _, key := range registered {
		known[key] = struct{}{}
	}

	removed := 0
	for _, key := range stored {
		if _, ok := known[key]; ok {
			continue
		}
		if _, err := s.storage.Delete(ctx, key); err != nil {
			s.log.Error().Err(err).Str("storage_key", key).Msg("orphan delete failed")
			continue
		}
		removed++
	}
	return removed
}
