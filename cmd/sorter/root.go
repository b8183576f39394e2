package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/koloyyee/java-sorter/internal/config"
	"github.com/koloyyee/java-sorter/internal/di"
	"github.com/koloyyee/java-sorter/internal/errors"
	"github.com/koloyyee/java-sorter/internal/id"
	"github.com/koloyyee/java-sorter/internal/logger"
)

type rootOptions struct {
	keyword       string
	env           string
	logLevel      string
	logFormat     string
	backend       string
	classifier    string
	desktop       string
	lockDir       string
	ignorePartial bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "sorter [source destination] [-k keyword]",
		Short: "Move new files out of a watched directory",
		Long: `Watches a directory and moves every new or modified file.

With no arguments ~/Downloads is watched and images go to ~/Desktop/images.
With a source and destination every file goes to the destination, and with
-k files whose name contains the keyword go to destination/keyword.`,
		Example: `  sorter
  sorter ~/Downloads ~/Sorted
  sorter ~/Downloads ~/Sorted -k CST`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          positionalArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSorter(cmd, args, opts)
		},
	}

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return errors.Usage(err.Error())
	})

	flags := rootCmd.Flags()
	flags.StringVarP(&opts.keyword, "keyword", "k", "", "Move files whose name contains this keyword to destination/keyword")
	flags.StringVar(&opts.env, "env", "", "Environment (development, staging, production)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "", "Log format (json, pretty); default depends on --env")
	flags.StringVar(&opts.backend, "backend", "", "Watch backend (auto, inotify, fsnotify)")
	flags.StringVar(&opts.classifier, "classifier", "", "Content classifier (chain, magic, extension)")
	flags.StringVar(&opts.desktop, "desktop", "", "Desktop directory that receives the images folder (default ~/Desktop)")
	flags.StringVar(&opts.lockDir, "lock-dir", "", "Directory for the instance lock (default: user cache directory)")
	flags.BoolVar(&opts.ignorePartial, "ignore-partial", false, "Leave hidden files and in-progress downloads (*.part, *.crdownload, *.tmp) in place")

	return rootCmd
}

// positionalArgs accepts no positionals or exactly a source and destination.
func positionalArgs(_ *cobra.Command, args []string) error {
	switch len(args) {
	case 0, 2:
		return nil
	case 1:
		return errors.Usagef("missing destination for source %q", args[0])
	default:
		return errors.Usagef("expected at most 2 arguments, got %d", len(args))
	}
}

func runSorter(cmd *cobra.Command, args []string, opts *rootOptions) error {
	flags := config.Flags{
		Keyword:    opts.keyword,
		Env:        opts.env,
		LogLevel:   opts.logLevel,
		LogFormat:  opts.logFormat,
		Backend:    opts.backend,
		Classifier: opts.classifier,
		Desktop:    opts.desktop,
		LockDir:    opts.lockDir,
	}
	if len(args) == 2 {
		flags.Source = args[0]
		flags.Destination = args[1]
	}
	if cmd.Flags().Changed("ignore-partial") {
		flags.IgnorePartial = strconv.FormatBool(opts.ignorePartial)
	}

	cfg, err := config.Load(flags)
	if err != nil {
		return err
	}

	runID, err := id.Generate("run")
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "create run id")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	injector := di.NewContainer(cfg, cmd.ErrOrStderr())
	dispatcher, err := di.Bootstrap(injector)
	if err != nil {
		injector.Shutdown()
		return err
	}

	log := do.MustInvoke[*logger.Logger](injector).WithField("run", runID)
	log.Info("sorter ready")

	started := time.Now()
	runErr := dispatcher.Run(ctx)

	log.Info("shutting down")
	if shutdownErr := injector.Shutdown(); shutdownErr != nil {
		log.WithError(shutdownErr).Error("shutdown error")
	}

	fmt.Fprintln(cmd.ErrOrStderr(), renderSummary(runID, time.Since(started), dispatcher.Stats()))

	return runErr
}
