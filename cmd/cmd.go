package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wordaddict/finance-sub001/internal"
	"github.com/wordaddict/finance-sub001/pkg/logger"
)

var (
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "church-finance",
	Short: "Church Finance",
	Long:  `Expense reimbursement, expense reports and the donation wishlist for a multi-campus church.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// loadConfig reads config.yml from path, or the environment when running in a container.
// The result has defaults applied and is validated.
func loadConfig(path string) (*internal.Config, error) {
	// .env is optional and only seeds the process environment
	_ = godotenv.Load()

	var cfg *internal.Config
	if os.Getenv("APP_ENV") == "production" || os.Getenv("DOCKER_ENV") == "true" {
		envCfg, err := internal.LoadConfigFromEnv()
		if err != nil {
			return nil, err
		}
		cfg = envCfg
	} else {
		v := viper.New()
		v.AddConfigPath(path)
		v.SetConfigName("config")
		v.SetConfigType("yml")
		v.SetEnvPrefix("ENV")
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()
		v.SetDefault("gate.enabled", true)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config: %w", err)
		}

		var fileCfg internal.Config
		if err := v.Unmarshal(&fileCfg); err != nil {
			return nil, fmt.Errorf("error unmarshaling config: %w", err)
		}
		fileCfg.ApplyDefaults()
		cfg = &fileCfg
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("error validating config: %w", err)
	}
	return cfg, nil
}

// setupLogger installs the process logger described by the config.
func setupLogger(cfg *internal.Config) *slog.Logger {
	return logger.Configure(logger.Options{
		Level:  cfg.Observability.Logging.Level,
		Format: cfg.Observability.Logging.Format,
	})
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".", "directory holding config.yml")

	rootCmd.AddCommand(httpServerCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
}
