package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/tomasbasham/assetpub/internal/asset"
	"github.com/tomasbasham/assetpub/internal/config"
	"github.com/tomasbasham/assetpub/internal/publish"
	"github.com/tomasbasham/assetpub/internal/remote"
	"github.com/tomasbasham/assetpub/internal/storage"
)

// requestFlags are the flags naming what to publish. Flags left unset keep the
// configured value.
type requestFlags struct {
	InputDir       string
	Platforms      []string
	ProjectID      string
	Branch         string
	Message        string
	RuntimeVersion string
}

func (f *requestFlags) addFlags(flags *pflag.FlagSet) {
	flags.StringVarP(&f.InputDir, "input-dir", "i", config.DefaultInputDir, "Directory containing the bundler output and metadata.json")
	flags.StringSliceVarP(&f.Platforms, "platform", "p", nil, "Platform to publish; repeat for several (default: android and ios)")
	flags.StringVar(&f.ProjectID, "project-id", "", "Project the update group belongs to")
	flags.StringVar(&f.Branch, "branch", "", "Branch the update group is published to (default: main)")
	flags.StringVarP(&f.Message, "message", "m", "", "Message describing the update")
	flags.StringVar(&f.RuntimeVersion, "runtime-version", "", "Runtime version the update is compatible with")
}

func configuredRequest(cfg *config.Config) publish.Request {
	return publish.Request{
		InputDir:       cfg.InputDir,
		Platforms:      cfg.Platforms,
		ProjectID:      cfg.ProjectID,
		Branch:         cfg.Branch,
		RuntimeVersion: cfg.RuntimeVersion,
		Extra:          cfg.Extra(),
	}
}

// merge merges the flags set on the command line over cfg.
func (f *requestFlags) merge(flags *pflag.FlagSet, cfg *config.Config) publish.Request {
	req := configuredRequest(cfg)
	if flags.Changed("input-dir") {
		req.InputDir = f.InputDir
	}
	if flags.Changed("project-id") {
		req.ProjectID = f.ProjectID
	}
	if flags.Changed("branch") {
		req.Branch = f.Branch
	}
	if flags.Changed("message") {
		req.Message = f.Message
	}
	if flags.Changed("runtime-version") {
		req.RuntimeVersion = f.RuntimeVersion
	}
	if flags.Changed("platform") {
		req.Platforms = make([]asset.Platform, len(f.Platforms))
		for i, p := range f.Platforms {
			req.Platforms[i] = asset.Platform(p)
		}
	}
	return req
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// newPublisher wires the configured storage backend into a store-backed
// remote and returns a publisher that uploads through it. The returned
// function releases the backend.
func newPublisher(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*publish.Publisher, func() error, error) {
	backend, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialise %s storage: %w", cfg.Storage.Type, err)
	}
	release := func() error { return nil }
	if c, ok := backend.(io.Closer); ok {
		release = c.Close
	}

	opts := cfg.UploaderOptions()
	opts.Logger = logger

	r := remote.NewStoreRemote(backend, cfg.AssetLimit, logger)
	r.SignedURLTTL = cfg.Storage.SignedURLTTL
	r.PublicURL = cfg.Storage.PublicURL

	uploader := publish.NewUploader(r, storage.NewSpecPutter(backend), opts)

	return &publish.Publisher{Uploader: uploader, Concurrency: cfg.Concurrency}, release, nil
}
