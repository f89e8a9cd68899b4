// Package publish uploads the assets of an update group to a
// content-addressed remote store.
//
// Upload deduplicates assets by storage key, checks the group against the
// server's asset ceiling, and then loops: request upload specifications for
// the assets the store does not yet have, upload them, and poll until the
// store reports them visible. The store is eventually consistent, so an asset
// that was uploaded may take several rounds to appear; assets are uploaded
// again only after several rounds pass without any becoming visible.
package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomasbasham/assetpub/internal/asset"
	"github.com/tomasbasham/assetpub/internal/updateinfo"
)

const (
	DefaultConcurrency     = 8
	DefaultPollInterval    = 1 * time.Second
	DefaultMaxPollInterval = 30 * time.Second
	DefaultReuploadAfter   = 3
)

// ProgressFunc receives the number of unique assets in the update group and
// how many of them the remote store does not yet have.
type ProgressFunc func(uniqueAssetCount, missingAssetCount int)

// Options tunes an Uploader. Zero values select the defaults.
type Options struct {
	// Concurrency bounds the number of uploads in flight within a round.
	Concurrency int

	// PollInterval is the wait after a round that confirmed no assets. It
	// doubles after each such round up to MaxPollInterval, and resets once
	// a round makes progress.
	PollInterval    time.Duration
	MaxPollInterval time.Duration

	// MaxPollRounds stops polling with *PollLimitExceededError after this
	// many rounds. Zero polls until every asset is visible or ctx is done.
	MaxPollRounds int

	// ReuploadAfter is the number of consecutive rounds without progress
	// after which the assets still missing are uploaded again. Assets are
	// otherwise uploaded once and then only polled.
	ReuploadAfter int

	Clock  Clock
	Logger *slog.Logger
}

// Result summarises an upload.
type Result struct {
	// AssetCount counts every asset reference across all platforms,
	// including duplicates.
	AssetCount int `json:"assetCount"`

	// UniqueAssetCount counts distinct storage keys.
	UniqueAssetCount int `json:"uniqueAssetCount"`

	// UniqueUploadedAssetCount counts the distinct assets that were missing
	// remotely and became visible during this upload.
	UniqueUploadedAssetCount int `json:"uniqueUploadedAssetCount"`

	AssetLimitPerUpdateGroup int `json:"assetLimitPerUpdateGroup"`

	// Updates is set by Publisher once the update group has been recorded.
	Updates []PublishedUpdate `json:"updates,omitempty"`
}

// Uploader drives uploads against a Remote. It holds no per-upload state and
// is safe for concurrent use.
type Uploader struct {
	remote Remote
	putter ObjectPutter
	opts   Options
}

// NewUploader returns an Uploader that talks to remote and writes file bytes
// through putter.
func NewUploader(remote Remote, putter ObjectPutter, opts Options) *Uploader {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.MaxPollInterval < opts.PollInterval {
		opts.MaxPollInterval = max(DefaultMaxPollInterval, opts.PollInterval)
	}
	if opts.ReuploadAfter <= 0 {
		opts.ReuploadAfter = DefaultReuploadAfter
	}
	if opts.Clock == nil {
		opts.Clock = RealClock
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Uploader{remote: remote, putter: putter, opts: opts}
}

// Upload makes every asset in group visible in the remote store. onProgress,
// if not nil, is called once before any upload and again after every polling
// round.
//
// Cancelling ctx abandons the upload; whatever was already uploaded stays in
// the store and is found by the next attempt.
func (u *Uploader) Upload(ctx context.Context, group updateinfo.Group, projectID string, onProgress ProgressFunc) (*Result, error) {
	report := func(unique, missing int) {
		if onProgress != nil {
			onProgress(unique, missing)
		}
	}

	all := group.Flatten()
	unique := updateinfo.Deduplicate(all)

	limit, err := u.remote.AssetLimitPerUpdateGroup(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("publish: failed to fetch asset limit: %w", err)
	}
	if err := EnforceAssetLimit(len(unique), limit); err != nil {
		return nil, err
	}

	missing, err := FilterMissing(ctx, u.remote, unique)
	if err != nil {
		return nil, err
	}
	report(len(unique), len(missing))

	logger := u.opts.Logger.With("project_id", projectID)
	logger.Debug("starting asset upload",
		"asset_count", len(all),
		"unique_asset_count", len(unique),
		"missing_asset_count", len(missing))

	uploaded := 0
	stalled := 0
	interval := u.opts.PollInterval
	for round := 1; len(missing) > 0; round++ {
		if round == 1 || stalled >= u.opts.ReuploadAfter {
			if err := u.uploadBatch(ctx, missing); err != nil {
				return nil, err
			}
			stalled = 0
		}

		stillMissing, err := FilterMissing(ctx, u.remote, missing)
		if err != nil {
			return nil, err
		}
		confirmed := len(missing) - len(stillMissing)
		uploaded += confirmed
		missing = stillMissing
		report(len(unique), len(missing))

		logger.Debug("polled asset visibility",
			"round", round,
			"confirmed", confirmed,
			"missing_asset_count", len(missing))

		if len(missing) == 0 {
			break
		}
		if u.opts.MaxPollRounds > 0 && round >= u.opts.MaxPollRounds {
			return nil, &PollLimitExceededError{Rounds: round, Remaining: len(missing)}
		}

		if confirmed > 0 {
			stalled = 0
			interval = u.opts.PollInterval
			continue
		}
		stalled++
		if err := sleep(ctx, u.opts.Clock, interval); err != nil {
			return nil, err
		}
		interval = min(interval*2, u.opts.MaxPollInterval)
	}

	logger.Info("asset upload complete",
		"unique_asset_count", len(unique),
		"uploaded_asset_count", uploaded)

	return &Result{
		AssetCount:               len(all),
		UniqueAssetCount:         len(unique),
		UniqueUploadedAssetCount: uploaded,
		AssetLimitPerUpdateGroup: limit,
	}, nil
}

// uploadBatch requests one upload spec per asset and uploads each asset to
// the upload spec at the same position.
func (u *Uploader) uploadBatch(ctx context.Context, assets []asset.AddressedAsset) error {
	contentTypes := make([]string, len(assets))
	for i, a := range assets {
		contentTypes[i] = a.ContentType
	}

	specs, err := u.remote.SignedUploadSpecifications(ctx, contentTypes)
	if err != nil {
		return fmt.Errorf("publish: failed to get upload specifications: %w", err)
	}
	if len(specs) != len(assets) {
		return fmt.Errorf("%w: requested %d, got %d", ErrSpecificationMismatch, len(assets), len(specs))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.opts.Concurrency)
	for i, a := range assets {
		spec := specs[i]
		g.Go(func() error {
			if err := u.put(gctx, spec, a); err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
					return err
				}
				return &UploadFailedError{Asset: a, Err: err}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		// Report the caller's cancellation rather than whichever upload
		// noticed it first.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

func (u *Uploader) put(ctx context.Context, spec UploadSpec, a asset.AddressedAsset) error {
	f, err := os.Open(a.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	return u.putter.PutObject(ctx, spec, f, a.ContentType)
}
