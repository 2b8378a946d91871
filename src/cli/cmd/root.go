package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/petrows/github-linters/src/build"
	"github.com/petrows/github-linters/src/config"
)

// skipConfig marks commands that run without docker.yml.
const skipConfig = "skip-config"

var (
	cfgFile   string
	envFile   string
	verbose   bool
	quiet     bool
	logFormat string
	cfg       *config.Config
	logger    = zerolog.New(os.Stderr).With().Timestamp().Logger()
)

var rootCmd = &cobra.Command{
	Use:   "build-docker",
	Short: "Registry-aware docker image builds",
	Long: `build-docker compares the image tags declared in docker.yml with a
container registry and writes shell scripts that build or push exactly the
tags that are missing.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := configureLogger(cmd.ErrOrStderr()); err != nil {
			return err
		}
		if !needsConfig(cmd) {
			return nil
		}

		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", envFile, err)
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		warnings, err := config.Validate(cfg)
		for _, w := range warnings {
			logger.Warn().Str("config", cfgFile).Msg(w)
		}
		if err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultConfigFile, "path to the image configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the configuration, if present")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging, including output of probe commands")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log warnings and errors")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log format: console or json")
}

// configureLogger builds the process logger from the CLI flags. Logs always
// go to stderr (w); stdout carries machine-readable output only.
func configureLogger(w io.Writer) error {
	level := zerolog.InfoLevel
	switch {
	case verbose:
		level = zerolog.DebugLevel
	case quiet:
		level = zerolog.WarnLevel
	}

	switch logFormat {
	case "json":
	case "console", "":
		w = zerolog.ConsoleWriter{
			Out:        w,
			NoColor:    !colorTerminal(w),
			TimeFormat: time.TimeOnly,
		}
	default:
		return fmt.Errorf("unknown log format %q (want console or json)", logFormat)
	}

	logger = zerolog.New(w).Level(level).With().Timestamp().Logger()
	return nil
}

func colorTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || os.Getenv("NO_COLOR") != "" {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// needsConfig reports whether cmd reads docker.yml. Help and shell
// completion never do.
func needsConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[skipConfig] == "true" || c.Name() == "help" || c.Name() == "completion" {
			return false
		}
	}
	return true
}

// Execute runs the root command. An interrupt cancels running probes.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if errors.Is(err, build.ErrNothingToDo) {
			logger.Warn().Msg(err.Error())
		} else {
			logger.Error().Msg(err.Error())
		}
		return err
	}
	return nil
}
