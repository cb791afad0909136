package cmd

import (
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mfenderov/lifeadmin/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "LIFEADMIN"

var (
	cfgFile string
	verbose bool
	cfg     config.Config
)

// GetConfig returns the loaded configuration.
func GetConfig() config.Config {
	return cfg
}

var rootCmd = &cobra.Command{
	Use:   "lifeadmin",
	Short: "lifeadmin: a personal document vault with insights",
	Long: `lifeadmin stores bills, certificates, policies and receipts, extracts their
text, and (with an LLM configured) summarizes and categorizes them and raises
insights such as upcoming renewals and unusual charges.

Commands:
  upload     Add files to the vault
  email      Import emails and their attachments
  clip       Save a web page
  insights   Generate and manage insights
  search     Find documents
  serve      Start the HTTP API and insight scheduler
  mcp        Start the MCP server on stdio`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig, initLogger)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

func initLogger() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

// envKeys are the nested keys that can be set from LIFEADMIN_* variables.
var envKeys = []string{
	"database.driver", "database.dsn", "database.debug",
	"storage.endpoint", "storage.bucket", "storage.access_key_id",
	"storage.secret_access_key", "storage.use_ssl", "storage.region",
	"elasticsearch.enabled", "elasticsearch.index",
	"elasticsearch.username", "elasticsearch.password",
	"llm.enabled", "llm.provider", "llm.model", "llm.api_key",
	"llm.base_url", "llm.socket_path", "llm.timeout",
	"imap.addr", "imap.username", "imap.password", "imap.folder",
	"imap.insecure", "imap.max_results", "imap.lookback",
	"scraper.timeout", "scraper.user_agent", "scraper.max_body_size",
	"server.addr", "server.max_upload_bytes", "server.download_ttl",
	"scheduler.enabled", "scheduler.interval",
	"mcp.name", "mcp.version",
}

func envName(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func initConfig() {
	// .env is optional
	_ = godotenv.Load()

	cfg = config.Defaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/lifeadmin")
		viper.AddConfigPath(".")
	}

	// LIFEADMIN_LLM_API_KEY -> llm.api_key
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	for _, key := range envKeys {
		viper.BindEnv(key, envName(key))
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("config file error", "error", err)
		}
	}

	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Warn("failed to parse config", "error", err)
	}

	// comma-separated in the environment
	if addrs := os.Getenv(envName("elasticsearch.addresses")); addrs != "" {
		cfg.Elasticsearch.Addresses = strings.Split(addrs, ",")
	}
}
