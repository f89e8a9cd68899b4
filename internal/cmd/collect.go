package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomasbasham/cli-runtime/templates"

	"github.com/tomasbasham/assetpub/internal/config"
	"github.com/tomasbasham/assetpub/internal/publish"
)

type CollectOptions struct {
	config  *config.Config
	request publish.Request

	requestFlags
	*AssetpubOptions
}

var (
	collectLong = templates.LongDesc(`
		Print the update info group that publish would upload.

		The bundler output is read and every file hashed, but the asset store
		is not contacted.`)

	collectExample = templates.Examples(`
		# Show the addressed assets in ./dist
		assetpub collect

		# Only the android bundle of a custom build directory
		assetpub collect --input-dir build --platform android`)
)

func NewCollectOptions(root *AssetpubOptions) *CollectOptions {
	return &CollectOptions{
		AssetpubOptions: root,
	}
}

func NewCollectCommand(o *CollectOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:                   "collect",
		DisableFlagsInUseLine: true,
		Short:                 "Print the addressed assets without uploading",
		Long:                  collectLong,
		Example:               collectExample,
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

	return cmd
}

func (o *CollectOptions) Complete(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return err
	}
	o.config = cfg
	o.request = o.requestFlags.merge(cmd.Flags(), cfg)
	return nil
}

func (o *CollectOptions) Validate() error {
	if o.request.InputDir == "" {
		return fmt.Errorf("an input directory is required")
	}
	return nil
}

func (o *CollectOptions) Run() error {
	publisher := &publish.Publisher{Concurrency: o.config.Concurrency}

	group, err := publisher.Collect(context.Background(), o.request)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(group, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal update info: %w", err)
	}
	fmt.Fprintln(o.Out, string(out))
	return nil
}
