package operation

import (
	"context"
	"log/slog"

	"github.com/tomasbasham/assetpub/internal/publish"
)

// Publisher is the part of publish.Publisher the worker needs.
type Publisher interface {
	Publish(ctx context.Context, req publish.Request, onProgress publish.ProgressFunc) (*publish.Result, error)
}

// WorkerOptions configures a publish worker invocation.
type WorkerOptions struct {
	Request     publish.Request
	OperationID string
	Store       Store
	Publisher   Publisher
	Logger      *slog.Logger
}

// Run executes a publish and transitions the operation through
// running → complete | failed, recording progress as the uploader reports it.
//
// Run is intended to be called in a separate goroutine; it owns the full
// lifecycle of the operation from the moment it is called.
func Run(ctx context.Context, opts WorkerOptions) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("operation_id", opts.OperationID)

	if err := opts.Store.MarkRunning(opts.OperationID); err != nil {
		// If we cannot even mark it running the store is broken; nothing to do.
		logger.Error("failed to mark operation running", "error", err)
		return
	}

	onProgress := func(unique, missing int) {
		_ = opts.Store.UpdateProgress(opts.OperationID, Progress{
			UniqueAssetCount:  unique,
			MissingAssetCount: missing,
		})
	}

	result, err := opts.Publisher.Publish(ctx, opts.Request, onProgress)
	if err != nil {
		logger.Warn("publish failed", "error", err)
		_ = opts.Store.MarkFailed(opts.OperationID, err)
		return
	}

	logger.Info("publish complete",
		"asset_count", result.AssetCount,
		"unique_uploaded_asset_count", result.UniqueUploadedAssetCount)
	_ = opts.Store.MarkComplete(opts.OperationID, result)
}
