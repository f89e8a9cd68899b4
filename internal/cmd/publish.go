package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomasbasham/cli-runtime/templates"

	"github.com/tomasbasham/assetpub/internal/config"
	"github.com/tomasbasham/assetpub/internal/publish"
)

type PublishOptions struct {
	config  *config.Config
	request publish.Request

	Timeout time.Duration

	requestFlags
	*AssetpubOptions
}

var (
	publishLong = templates.LongDesc(`
		Publish the assets described by metadata.json in the input directory.

		Every platform's launch bundle and assets are hashed, deduplicated by
		storage key and checked against the asset store. Only missing assets are
		uploaded, and the command waits until the store reports each of them
		before returning.`)

	publishExample = templates.Examples(`
		# Publish ./dist for android and ios
		assetpub publish --project-id my-app

		# Publish only the ios bundle, giving up after five minutes
		assetpub publish --project-id my-app --platform ios --timeout 5m

		# Publish to a preview branch with a message
		assetpub publish --project-id my-app --branch preview -m "Fix login screen"`)
)

func NewPublishOptions(root *AssetpubOptions) *PublishOptions {
	return &PublishOptions{
		AssetpubOptions: root,
	}
}

func NewPublishCommand(o *PublishOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:                   "publish",
		DisableFlagsInUseLine: true,
		Short:                 "Upload bundler output to the asset store",
		Long:                  publishLong,
		Example:               publishExample,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(); err != nil {
				return err
			}
			if err := o.Run(); err != nil {
				return err
			}
			return nil
		},
	}

	o.requestFlags.addFlags(cmd.Flags())
	cmd.Flags().DurationVarP(&o.Timeout, "timeout", "t", 0, "Give up if the upload has not completed after this long (0 waits indefinitely)")

	return cmd
}

func (o *PublishOptions) Complete(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return err
	}
	o.config = cfg
	o.request = o.requestFlags.merge(cmd.Flags(), cfg)
	return nil
}

func (o *PublishOptions) Validate() error {
	if o.request.ProjectID == "" {
		return fmt.Errorf("a project ID is required: pass --project-id or set project_id in the configuration")
	}
	if o.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	return nil
}

func (o *PublishOptions) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if o.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}

	logger := newLogger(o.ErrOut, o.Verbose)
	publisher, release, err := newPublisher(ctx, o.config, logger)
	if err != nil {
		return err
	}
	defer release()

	fmt.Fprintf(o.Out, "Publishing %s for %v...\n", o.request.InputDir, o.request.Platforms)
	result, err := publisher.Publish(ctx, o.request, func(unique, missing int) {
		fmt.Fprintf(o.Out, "Uploading assets: %d/%d missing\n", missing, unique)
	})
	if err != nil {
		return fmt.Errorf("publish failed: %w", err)
	}

	fmt.Fprintf(o.Out, "Publish complete: %d assets, %d unique, %d uploaded (limit %d)\n",
		result.AssetCount, result.UniqueAssetCount, result.UniqueUploadedAssetCount, result.AssetLimitPerUpdateGroup)
	for _, u := range result.Updates {
		fmt.Fprintf(o.Out, "%s update %s (group %s): %s\n", u.Platform, u.ID, u.Group, u.ManifestPermalink)
	}
	return nil
}
