package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Version is set at build time
	Version = "dev"
	// BuildTime is set at build time
	BuildTime = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "conformal-worker",
		Short: "Route messages by conformal confidence",
		Long: `conformal-worker drains a source queue, scores each message against a
baseline log-likelihood distribution and forwards it, annotated, to the
safe, standard or low-confidence queue.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// a missing .env is fine; the environment wins either way
			_ = godotenv.Load()
		},
	}

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newScoreCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "conformal-worker %s\n", Version)
			fmt.Fprintf(cmd.OutOrStdout(), "Built: %s\n", BuildTime)
		},
	}
}

// initLogger initializes a JSON logger writing to output ("stdout" or "stderr")
func initLogger(level, output string) (*zap.Logger, error) {
	config := loggerConfig(level, output)
	return config.Build()
}

func loggerConfig(level, output string) zap.Config {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	return zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{output},
		ErrorOutputPaths: []string{"stderr"},
	}
}
