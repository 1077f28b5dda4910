package cli

import (
	"os"

	"trivia-game-service/internal/config"
	"trivia-game-service/internal/logger"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const serviceName = "trivia-service"

var (
	port       string
	configPath string
	logLevel   string
)

// Execute runs the CLI.
func Execute() error {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	envPort := os.Getenv("PORT")
	envConfig := os.Getenv("CONFIG_PATH")
	if envConfig == "" {
		envConfig = "config/config.yaml"
	}

	cmd := &cobra.Command{
		Use:           serviceName,
		Short:         "Trivia game service backed by the Open Trivia DB",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.PersistentFlags().StringVar(&port, "port", envPort, "port to listen on (overrides server.port)")
	cmd.PersistentFlags().StringVar(&configPath, "config", envConfig, "path to YAML config")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", os.Getenv("LOG_LEVEL"), "log level (overrides log.level)")
	cmd.AddCommand(NewStartCmd(&configPath, &port, &logLevel))
	cmd.AddCommand(NewMigrateCmd(&configPath, &logLevel))
	cmd.AddCommand(NewImportCmd(&configPath, &logLevel))
	return cmd
}

func newLogger(cfg config.Config, levelFlag string) *logrus.Entry {
	level := cfg.Log.Level
	if levelFlag != "" {
		level = levelFlag
	}
	return logger.New(serviceName, level)
}
