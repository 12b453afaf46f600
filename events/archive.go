package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// Archive is a subscriber that keeps delivered envelopes durably and can
// read them back by sequence number.
type Archive interface {
	Subscriber
	Fetch(ctx context.Context, seq uint64) (Envelope, error)
	Available(ctx context.Context) bool
	Name() string
}

// SeqIndex is implemented by archives that can report the highest
// sequence number they hold.
type SeqIndex interface {
	LastArchivedSeq(ctx context.Context) (uint64, error)
}

var (
	_ SeqIndex = (*S3Archive)(nil)
	_ SeqIndex = (*FileArchive)(nil)
	_ SeqIndex = (*MultiArchive)(nil)

	_ Archive = (*S3Archive)(nil)
	_ Archive = (*FileArchive)(nil)
	_ Archive = (*IPFSArchive)(nil)
	_ Archive = (*MultiArchive)(nil)
)

// MultiArchive delivers to every available archive and fetches from the
// first archive that has the envelope.
type MultiArchive struct {
	archives []Archive
	log      *slog.Logger
}

func NewMultiArchive(archives []Archive, logger *slog.Logger) *MultiArchive {
	if logger == nil {
		logger = slog.Default()
	}

	return &MultiArchive{
		archives: archives,
		log:      logger,
	}
}

func (m *MultiArchive) Fetch(ctx context.Context, seq uint64) (Envelope, error) {
	start := time.Now()
	var errs []error

	for _, archive := range m.archives {
		if !archive.Available(ctx) {
			m.log.Debug("Archive unavailable",
				slog.String("archive", archive.Name()),
				slog.Uint64("seq", seq))
			continue
		}

		env, err := archive.Fetch(ctx, seq)
		if err == nil {
			m.log.Debug("Fetched archived event",
				slog.String("archive", archive.Name()),
				slog.Uint64("seq", seq),
				slog.Duration("duration", time.Since(start)))
			return env, nil
		}

		errs = append(errs, fmt.Errorf("%s: %w", archive.Name(), err))
		m.log.Debug("Failed to fetch from archive",
			slog.String("archive", archive.Name()),
			slog.Uint64("seq", seq),
			"err", err)
	}

	if len(errs) == 0 {
		return Envelope{}, fmt.Errorf("%w: no archive available for event %d", ErrNotArchived, seq)
	}
	return Envelope{}, fmt.Errorf("all archives failed to fetch event %d: %w", seq, errors.Join(errs...))
}

// Deliver archives the envelope everywhere it can. It fails only when no
// archive accepted the envelope.
func (m *MultiArchive) Deliver(ctx context.Context, env Envelope) error {
	var delivered bool
	var errs []error

	for _, archive := range m.archives {
		if !archive.Available(ctx) {
			m.log.Debug("Archive unavailable", slog.String("archive", archive.Name()))
			continue
		}

		if err := archive.Deliver(ctx, env); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", archive.Name(), err))
			continue
		}
		delivered = true
	}

	if !delivered {
		m.log.Error("All archives failed to store event",
			slog.Uint64("seq", env.Seq),
			slog.Int("failed_archives", len(errs)))
		return fmt.Errorf("all archives failed to store event %d: %w", env.Seq, errors.Join(errs...))
	}
	if len(errs) > 0 {
		m.log.Warn("Event missing from some archives", slog.Uint64("seq", env.Seq), "err", errors.Join(errs...))
	}
	return nil
}

// Available reports whether any archive is available.
func (m *MultiArchive) Available(ctx context.Context) bool {
	for _, archive := range m.archives {
		if archive.Available(ctx) {
			return true
		}
	}
	return false
}

// LastArchivedSeq returns the highest sequence number held by any indexed
// archive. Archives that cannot be listed are skipped.
func (m *MultiArchive) LastArchivedSeq(ctx context.Context) (uint64, error) {
	return ResumeSeq(ctx, m.archives...)
}

// ResumeSeq returns the sequence number a restarted log should continue
// from: the highest one held by any of the archives, zero if none.
func ResumeSeq(ctx context.Context, archives ...Archive) (uint64, error) {
	var last uint64
	var errs []error
	indexed := 0
	for _, archive := range archives {
		index, ok := archive.(SeqIndex)
		if !ok {
			continue
		}
		indexed++
		seq, err := index.LastArchivedSeq(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", archive.Name(), err))
			continue
		}
		last = max(last, seq)
	}
	if indexed > 0 && len(errs) == indexed {
		return 0, errors.Join(errs...)
	}
	return last, nil
}

// seqFromName parses the sequence number out of a "%020d.json" object name.
func seqFromName(name string) (uint64, bool) {
	digits, ok := strings.CutSuffix(name, ".json")
	if !ok || len(digits) != 20 {
		return 0, false
	}
	seq, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return 0, false
	}
	return seq, true
}

func (m *MultiArchive) Name() string {
	names := make([]string, 0, len(m.archives))
	for _, archive := range m.archives {
		names = append(names, archive.Name())
	}
	return "multi:[" + strings.Join(names, ",") + "]"
}
