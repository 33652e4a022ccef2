package wizardrun

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/fairlens/internal/domain/fairness"
	"github.com/okian/fairlens/internal/domain/model"
	"github.com/okian/fairlens/pkg/logger"
)

// Validate checks the configuration and fills defaults.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base URL is required", ErrInvalidConfig)
	}
	if c.Sessions <= 0 {
		return fmt.Errorf("%w: sessions must be positive, got %d", ErrInvalidConfig, c.Sessions)
	}
	if c.Rows <= 0 {
		return fmt.Errorf("%w: rows must be positive, got %d", ErrInvalidConfig, c.Rows)
	}
	if c.Bias < 0 || c.Bias > baseHireRate {
		return fmt.Errorf("%w: bias must be within [0, %.1f], got %v", ErrInvalidConfig, baseHireRate, c.Bias)
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("%w: threshold must be within [0, 1], got %v", ErrInvalidConfig, c.Threshold)
	}
	if c.Workers <= 0 {
		c.Workers = c.Sessions
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	return nil
}

// Run drives Sessions independent wizard sessions against the service and
// verifies what each of them sees.
func Run(ctx context.Context, cfg *Config) (*Stats, []SessionResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	log := logger.Get().Named("wizardrun")
	stats := &Stats{Sessions: cfg.Sessions, StartTime: time.Now()}

	log.Info(ctx, "starting wizard run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("sessions", cfg.Sessions),
		logger.Int("rows", cfg.Rows),
		logger.Float64("bias", cfg.Bias),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout))

	client := NewClient(cfg.BaseURL, cfg.Timeout)
	if err := client.Health(ctx); err != nil {
		return stats, nil, fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	log.Info(ctx, "service is healthy")

	var uploaded, verified, failed, violations, bytesSent atomic.Int64
	results := make([]SessionResult, cfg.Sessions)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i := range cfg.Sessions {
		g.Go(func() error {
			res, size := runSession(gctx, client, cfg, cfg.Seed+uint64(i))
			results[i] = res
			bytesSent.Add(int64(size))
			if res.JobID != "" {
				uploaded.Add(1)
			}
			switch {
			case res.Err != nil:
				failed.Add(1)
				log.Warn(gctx, "session failed", logger.String("session_id", res.SessionID), logger.Error(res.Err))
			default:
				verified.Add(1)
				if cfg.Verbose {
					log.Info(gctx, "session verified",
						logger.String("session_id", res.SessionID),
						logger.Float64("gap", res.Gap),
						logger.String("status", res.Status))
				}
			}
			if res.Status != "" && res.Status != fairness.StatusPass {
				violations.Add(1)
			}
			return gctx.Err()
		})
	}
	waitErr := g.Wait()

	stats.Uploaded = int(uploaded.Load())
	stats.Verified = int(verified.Load())
	stats.Failed = int(failed.Load())
	stats.Violations = int(violations.Load())
	stats.Bytes = bytesSent.Load()
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	logStats(ctx, log, stats)

	if waitErr != nil {
		return stats, results, waitErr
	}
	if stats.Failed > 0 {
		errs := make([]error, 0, stats.Failed)
		for _, r := range results {
			if r.Err != nil {
				errs = append(errs, r.Err)
			}
		}
		return stats, results, fmt.Errorf("%d of %d sessions failed: %w", stats.Failed, stats.Sessions, errors.Join(errs...))
	}
	return stats, results, nil
}

// runSession walks one session through upload, review and the parity check.
// It returns the result and the number of bytes uploaded.
func runSession(ctx context.Context, client *Client, cfg *Config, seed uint64) (SessionResult, int) {
	res := SessionResult{SessionID: uuid.NewString()}

	applicants := NewGenerator(seed, cfg.Bias).Applicants(cfg.Rows)
	payload, err := EncodeCSV(applicants)
	if err != nil {
		res.Err = fmt.Errorf("encode: %w", err)
		return res, 0
	}
	filename := fmt.Sprintf("applicants_%d.csv", seed)
	if cfg.OutputDir != "" {
		if err := saveFile(cfg.OutputDir, filename, payload); err != nil {
			res.Err = err
			return res, 0
		}
	}

	ack, err := client.Upload(ctx, res.SessionID, filename, payload)
	if err != nil {
		res.Err = fmt.Errorf("upload: %w", err)
		return res, len(payload)
	}
	res.JobID = ack.JobID

	job, err := client.WaitJob(ctx, res.SessionID, ack.JobID)
	if err != nil {
		res.Err = fmt.Errorf("wait: %w", err)
		return res, len(payload)
	}
	if job.State != model.JobDone {
		res.Err = fmt.Errorf("%w: job %s ended %s: %s", ErrJobFailed, job.ID, job.State, job.Error)
		return res, len(payload)
	}

	ds, err := client.Current(ctx, res.SessionID)
	if err != nil {
		res.Err = fmt.Errorf("current: %w", err)
		return res, len(payload)
	}
	if res.Err = verifySnapshot(ds, applicants); res.Err != nil {
		return res, len(payload)
	}
	res.Rows = ds.RowCount

	attrs, err := client.Attributes(ctx, res.SessionID)
	if err != nil {
		res.Err = fmt.Errorf("attributes: %w", err)
		return res, len(payload)
	}
	if res.Protected, res.Err = verifyAttributes(attrs); res.Err != nil {
		return res, len(payload)
	}

	rates, err := client.SelectionRates(ctx, res.SessionID, ColumnGender, ColumnHired, cfg.Threshold)
	if err != nil {
		res.Err = fmt.Errorf("selection rates: %w", err)
		return res, len(payload)
	}
	res.Gap, res.Status = rates.ParityGap, rates.Status
	if res.Err = verifyRates(rates, applicants, cfg.Threshold); res.Err != nil {
		return res, len(payload)
	}

	report, err := client.BiasReport(ctx, res.SessionID)
	if err != nil {
		res.Err = fmt.Errorf("bias metrics: %w", err)
		return res, len(payload)
	}
	res.Err = verifyReport(report)
	return res, len(payload)
}

func saveFile(dir, name string, payload []byte) error {
	if err := os.MkdirAll(dir, directoryPermission); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), payload, filePermission); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

func logStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.Uploaded) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("sessions", stats.Sessions),
		logger.Int("uploaded", stats.Uploaded),
		logger.Int("verified", stats.Verified),
		logger.Int("failed", stats.Failed),
		logger.Int("violations", stats.Violations),
		logger.Int64("bytes", stats.Bytes),
		logger.Duration("duration", stats.Duration),
		logger.Float64("uploadsPerSecond", perSecond))
}
