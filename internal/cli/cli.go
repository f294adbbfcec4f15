// Package cli holds the shop-agent command tree.
package cli

import (
	"io"
	"os"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/petasbytes/shop-agent/internal/config"
	"github.com/petasbytes/shop-agent/internal/logger"
	"github.com/petasbytes/shop-agent/internal/telemetry"
)

// IOStreams are the standard streams a command reads from and writes to.
type IOStreams struct {
	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer
}

// globalOptions carries the resolved configuration to subcommands. It is
// filled in by the root command before any subcommand runs.
type globalOptions struct {
	v       *viper.Viper
	cfg     *config.Config
	streams IOStreams
}

func (o *globalOptions) load(fs *pflag.FlagSet) error {
	cfg, err := config.Load(o.v, fs)
	if err != nil {
		return err
	}
	if err := logger.Init(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: o.streams.ErrOut}); err != nil {
		return err
	}
	telemetry.Configure(telemetry.Config{Enabled: cfg.Telemetry.Enabled, Dir: cfg.Telemetry.Dir})
	o.cfg = cfg
	return nil
}

// NewDefaultCommand wires the command tree to the process streams.
func NewDefaultCommand() *cobra.Command {
	return NewRootCommand(IOStreams{In: os.Stdin, Out: os.Stdout, ErrOut: os.Stderr})
}

func NewRootCommand(streams IOStreams) *cobra.Command {
	o := &globalOptions{v: config.New(), streams: streams}

	cmd := &cobra.Command{
		Use:   "shop-agent",
		Short: "小美, the breakfast-shop ordering assistant",
		Long: heredoc.Doc(`
			shop-agent runs 小美, a chat assistant that takes breakfast orders by
			calling shop tools: menu, product search, cart and checkout.

			Configuration comes from defaults, an optional --config file,
			SHOPAGENT_* environment variables and flags, in that order.
			Nested keys map to variables with "_", for example
			SHOPAGENT_PROVIDER_API_KEY.
		`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return o.load(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
	cmd.SetIn(streams.In)
	cmd.SetOut(streams.Out)
	cmd.SetErr(streams.ErrOut)
	config.AddFlags(cmd.PersistentFlags())

	cmd.AddCommand(
		newServeCommand(o),
		newChatCommand(o),
		newCatalogCommand(o),
		newToolsCommand(o),
		newMCPCommand(o),
	)
	return cmd
}
