package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "productproxy",
	Short: "HTTP facade over the restful-api.dev object store",
	Long: `productproxy exposes a product API under /api/products and forwards
every operation to the upstream /objects resource.`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./productproxy.yaml)")

	viper.SetDefault("UPSTREAM_BASE_URL", "https://api.restful-api.dev")
	viper.SetDefault("UPSTREAM_TIMEOUT", "10s")
	viper.SetDefault("UPSTREAM_STRICT_NOT_FOUND", false)
	viper.SetDefault("UPSTREAM_BREAKER_ENABLED", true)
	viper.SetDefault("UPSTREAM_BREAKER_TIMEOUT", "30s")
	viper.SetDefault("UPSTREAM_BREAKER_INTERVAL", "60s")
	viper.SetDefault("UPSTREAM_BREAKER_MIN_REQUESTS", 5)
	viper.SetDefault("UPSTREAM_BREAKER_FAILURE_RATIO", 0.5)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "text")
	viper.SetDefault("MAX_REQUEST_BODY_BYTES", 1048576)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLE_RATE", 1.0)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("productproxy")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || cfgFile != "" {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
		}
	}
}
