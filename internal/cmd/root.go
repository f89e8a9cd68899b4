package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	cliflag "github.com/tomasbasham/cli-runtime/flag"
	"github.com/tomasbasham/cli-runtime/iooption"
	"github.com/tomasbasham/cli-runtime/printer"
	"github.com/tomasbasham/cli-runtime/templates"
)

var (
	rootLong = templates.LongDesc(`
		Publish bundler output to a content-addressed asset store.

		Assets are addressed by the SHA-256 of their bytes and content type, so
		files shared between platforms or already present remotely are
		uploaded only once.`)

	rootExamples = templates.Examples(`
		# Publish the android and ios bundles in ./dist
		assetpub publish --project-id my-app

		# Show what would be published without contacting the store
		assetpub collect --input-dir dist`)

	// Injected at build time using ldflags.
	version = ""
	commit  = ""
)

// AssetpubOptions defines the options shared by every assetpub command.
type AssetpubOptions struct {
	ConfigPath string
	Verbose    bool

	iooption.IOStreams
}

// NewAssetpubOptions provides an initialised AssetpubOptions instance.
func NewAssetpubOptions(streams iooption.IOStreams) *AssetpubOptions {
	return &AssetpubOptions{
		IOStreams: streams,
	}
}

// NewRootCommand creates the `assetpub` command with default arguments.
func NewRootCommand() *cobra.Command {
	options := NewAssetpubOptions(iooption.IOStreams{
		In:     os.Stdin,
		Out:    os.Stdout,
		ErrOut: os.Stderr,
	})

	return NewRootCommandWithArgs(options)
}

// NewRootCommandWithArgs creates the `assetpub` command and its nested
// children.
func NewRootCommandWithArgs(o *AssetpubOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:                   "assetpub [command]",
		Version:               versionInfo(),
		DisableFlagsInUseLine: true,
		Short:                 "Content-addressed asset publishing tool",
		Long:                  rootLong,
		Example:               rootExamples,
		SilenceErrors:         true,
		SilenceUsage:          true,
	}

	printerOpts := printer.WarningPrinterOptions{Color: true}
	printer := printer.NewWarningPrinter(o.ErrOut, printerOpts)
	cmd.SetGlobalNormalizationFunc(cliflag.WarnWordSepNormalizeFunc(printer))

	pflags := cmd.PersistentFlags()
	pflags.StringVarP(&o.ConfigPath, "config", "c", "", "Path to the configuration file (default: $ASSETPUB_CONFIG or ./assetpub.yaml)")
	pflags.BoolVar(&o.Verbose, "verbose", false, "Log polling rounds and storage activity")

	cmd.AddCommand(NewPublishCommand(NewPublishOptions(o)))
	cmd.AddCommand(NewCollectCommand(NewCollectOptions(o)))
	cmd.AddCommand(NewServeCommand(NewServeOptions(o)))

	// The globlal normalisation function ensures that all flags specified meet
	// the desired format, changing users' input if necessary.
	cmd.SetGlobalNormalizationFunc(cliflag.WordSepNormalizeFunc())

	return cmd
}

func versionInfo() string {
	if version == "" {
		return ""
	}
	return fmt.Sprintf("%s (commit: %s)", version, commit)
}
