// Package repository holds per-session dataset state and the job registry.
package repository

import (
	"context"

	"github.com/okian/fairlens/internal/domain/fairness"
	"github.com/okian/fairlens/internal/domain/model"
)

// Store keeps one dataset slot and one metric selection per session.
type Store interface {
	// NextSeq allocates the next upload sequence number of a session.
	NextSeq(ctx context.Context, sessionID string) uint64

	// Replace installs ds as the session's dataset when ds.Seq is newer than
	// anything applied or cleared before. The previous dataset is dropped
	// whole. Returns false for a stale sequence.
	Replace(ctx context.Context, sessionID string, ds *model.Dataset) (bool, error)

	// Current returns a copy of the session's dataset or ErrNoDataset.
	Current(ctx context.Context, sessionID string) (*model.Dataset, error)

	// Clear empties the slot. Uploads allocated before the call can no
	// longer fill it.
	Clear(ctx context.Context, sessionID string) error

	// SetInclusion flips the review flag of one column.
	SetInclusion(ctx context.Context, sessionID, column string, included bool) (model.Column, error)

	// Selection returns the session's fairness metric selection.
	Selection(ctx context.Context, sessionID string) fairness.Selection

	// SetSelection validates and stores a full selection.
	SetSelection(ctx context.Context, sessionID string, sel fairness.Selection) (fairness.Selection, error)

	// ToggleMetric flips one metric and returns the new selection.
	ToggleMetric(ctx context.Context, sessionID, dimension, metric string) (fairness.Selection, bool, error)

	// Count returns the number of live sessions.
	Count(ctx context.Context) int
}
