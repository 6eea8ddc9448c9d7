package main

import (
	"framewire/pkg/config"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "framewire",
		Short: "Stream video frames over UDP",
		Long: `framewire captures frames, encodes them as JPEG, optionally compresses them and
sends each frame as a single UDP datagram. A consumer decodes what arrives and
tracks latency and payload sizes.`,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Path to the YAML configuration file")
	flags.StringVar(&opts.logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")

	cmd.AddCommand(newStreamCommand(opts, streamSend))
	cmd.AddCommand(newStreamCommand(opts, streamReceive))
	cmd.AddCommand(newStreamCommand(opts, streamPeer))
	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newTokenCommand(opts))
	cmd.AddCommand(newReportsCommand(opts))

	return cmd
}

// load reads the configuration and applies flags that override it.
func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	return cfg, nil
}
