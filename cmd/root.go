package cmd

import (
	"fmt"
	"os"

	"github.com/agentic-research/kgtab/api"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const (
	logFormatText = "text"
	logFormatJSON = "json"
)

type rootOpts struct {
	cfgFile   string
	logLevel  string
	logFormat string
}

// app is the state shared by the subcommands of one root command.
type app struct {
	opts rootOpts
	fs   billy.Filesystem
	cfg  *api.Config
}

func newRootCmd(fs billy.Filesystem) *cobra.Command {
	a := &app{fs: fs}
	rootCmd := &cobra.Command{
		Use:           "kgtab",
		Short:         "Convert knowledge graph resources to and from tables",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.initLogging(); err != nil {
				return err
			}
			return a.loadConfig()
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.opts.cfgFile, "config", "", "config file (.hcl, .json, .yaml); built-in defaults when empty")
	rootCmd.PersistentFlags().StringVar(&a.opts.logLevel, "log-level", "warning", "log level (debug, info, warning, error)")
	rootCmd.PersistentFlags().StringVar(&a.opts.logFormat, "log-format", logFormatText, "log format (text, json)")

	rootCmd.AddCommand(
		newToTableCmd(a),
		newFromTableCmd(a),
		newReshapeCmd(a),
		newCollectCmd(a),
		newFormatCmd(a),
		newServeCmd(a),
	)
	return rootCmd
}

func (a *app) initLogging() error {
	lvl, err := logrus.ParseLevel(a.opts.logLevel)
	if err != nil {
		return err
	}
	logrus.SetLevel(lvl)
	logrus.SetOutput(os.Stderr)
	switch a.opts.logFormat {
	case logFormatText:
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case logFormatJSON:
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("unknown log format %q", a.opts.logFormat)
	}
	return nil
}

func (a *app) loadConfig() error {
	if a.opts.cfgFile == "" {
		a.cfg = api.DefaultConfig()
		return nil
	}
	cfg, err := api.LoadConfig(a.fs, a.opts.cfgFile)
	if err != nil {
		return err
	}
	logrus.WithField("config", a.opts.cfgFile).Debug("loaded config")
	a.cfg = cfg
	return nil
}

// hostFS resolves paths against the host filesystem, relative ones against
// the working directory.
func hostFS() billy.Filesystem {
	return osfs.New("")
}

// Execute runs the root command.
func Execute() {
	if err := newRootCmd(hostFS()).Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
