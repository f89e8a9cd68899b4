package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tomasbasham/cli-runtime/templates"

	"github.com/tomasbasham/assetpub/internal/config"
	"github.com/tomasbasham/assetpub/internal/operation"
	"github.com/tomasbasham/assetpub/internal/server"
)

type ServeOptions struct {
	config *config.Config

	Port int

	*AssetpubOptions
}

var (
	serveLong = templates.LongDesc(`
		Start the asset publishing HTTP server.

		POST /publishes starts a publish in the background and returns an
		operation ID. GET /publishes/{id} reports its progress and result.`)

	serveExample = templates.Examples(`
		# Start on the default port
		assetpub serve

		# Start on a custom port, storing assets in S3
		ASSETPUB_STORAGE_TYPE=s3 ASSETPUB_BUCKET=my-assets assetpub serve --port 9090`)
)

func NewServeOptions(root *AssetpubOptions) *ServeOptions {
	return &ServeOptions{
		AssetpubOptions: root,
	}
}

func NewServeCommand(o *ServeOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Start the asset publishing HTTP server",
		Long:    serveLong,
		Example: serveExample,
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

	cmd.Flags().IntVarP(&o.Port, "port", "p", 8080, "Port to listen on")

	return cmd
}

func (o *ServeOptions) Complete(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return err
	}
	o.config = cfg
	return nil
}

func (o *ServeOptions) Validate() error {
	if o.Port <= 0 || o.Port > 65535 {
		return fmt.Errorf("invalid port %d", o.Port)
	}
	return nil
}

func (o *ServeOptions) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := newLogger(o.ErrOut, o.Verbose)
	publisher, release, err := newPublisher(ctx, o.config, logger)
	if err != nil {
		return err
	}
	defer release()

	srv := server.New(ctx, operation.NewMemoryStore(), publisher, configuredRequest(o.config), logger)

	addr := fmt.Sprintf(":%d", o.Port)
	fmt.Fprintf(o.Out, "Starting asset publishing server on %s\n", addr)
	return srv.ListenAndServe(addr)
}
