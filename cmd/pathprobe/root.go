package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"pathprobe/internal/app"
	"pathprobe/internal/shared/config"
	"pathprobe/internal/shared/logger"
	"pathprobe/internal/shared/types"
)

const (
	appName    = "pathprobe"
	appVersion = "0.1.0"
	configName = "pathprobe.ini"
)

type rootOptions struct {
	configDir   string
	port        int
	root        string
	framing     string
	debug       bool
	showVersion bool
}

// NewRootCmd creates the root command for pathprobe
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   appName,
		Short: "Answer single-line file existence requests over TCP",
		Long: fmt.Sprintf(`%s - answer "METHOD PATH PROTOCOL" requests over TCP

GET requests are answered with "HTTP/1.0 200 OK" when the path exists below
the configured root and "HTTP/1.0 400 NOT FOUND" otherwise. Other methods get
no reply.
`, appName),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.showVersion {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, appVersion)
				return nil
			}

			cfg, err := buildConfig(opts, cmd.Flags())
			if err != nil {
				return err
			}

			if err := logger.Init(cfg.LogConf, opts.debug); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			defer logger.Close()

			server, err := app.New(cfg, nil)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return server.Run(ctx)
		},
	}

	rootCmd.Flags().StringVar(&opts.configDir, "configdir", "configs", "Path to config directory")
	rootCmd.Flags().IntVarP(&opts.port, "port", "p", config.DefaultPort, "TCP port to listen on")
	rootCmd.Flags().StringVar(&opts.root, "root", config.DefaultRoot, "Directory prefixed to request paths")
	rootCmd.Flags().StringVar(&opts.framing, "framing", types.FramingLine, "Request framing: line or chunk")
	rootCmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	rootCmd.Flags().BoolVarP(&opts.showVersion, "version", "v", false, "Show version information")

	return rootCmd
}

// buildConfig layers defaults, the ini file, environment and explicitly set flags.
func buildConfig(opts *rootOptions, flags *pflag.FlagSet) (*types.Config, error) {
	iniPath := filepath.Join(opts.configDir, configName)

	cfg := config.Default()
	if err := config.LoadIni(cfg, iniPath); err != nil {
		return nil, fmt.Errorf("failed to load config file '%s': %w", iniPath, err)
	}

	if flags.Changed("port") {
		cfg.LocalConf.Port = opts.port
	}
	if flags.Changed("root") {
		cfg.ProbeConf.Root = opts.root
	}
	if flags.Changed("framing") {
		cfg.ProbeConf.Framing = opts.framing
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
