package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eringen/folio"
	"github.com/eringen/folio/logger"
)

var (
	cfgFile string
	envFile string
	v       = viper.New()
)

var rootCmd = &cobra.Command{
	Use:   "folio",
	Short: "folio - a personal portfolio site with a markdown blog",
	Long: `folio serves a portfolio (profile, projects, skills), a markdown blog,
a contact form and an admin dashboard from a single binary.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeConfig(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./folio.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
}

// setDefaults mirrors folio.SiteConfig defaults so `folio` and library users
// see the same values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("site_name", "Portfolio")
	v.SetDefault("site_url", "http://localhost:3000")
	v.SetDefault("addr", ":3000")
	v.SetDefault("data_dir", "data")
	v.SetDefault("storage_driver", "file")
	v.SetDefault("static_dir", "public")
	v.SetDefault("admin_username", "admin")
	v.SetDefault("cookie_secure", false)
	v.SetDefault("post_cache_ttl", "5m")
	v.SetDefault("watch_data_dir", true)
	v.SetDefault("log_level", "info")
}

func initializeConfig(cmd *cobra.Command) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("folio")
		v.SetConfigType("yaml")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || cfgFile != "" {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	logger.Init(v.GetString("log_level"))
	if used := v.ConfigFileUsed(); used != "" {
		logger.DebugWithFields("using config file", logger.Fields{"path": used})
	}
	return nil
}

// siteConfig builds the application config from v.
func siteConfig(v *viper.Viper) folio.SiteConfig {
	return folio.SiteConfig{
		Name:              v.GetString("site_name"),
		URL:               v.GetString("site_url"),
		Description:       v.GetString("site_description"),
		Author:            v.GetString("site_author"),
		Addr:              v.GetString("addr"),
		DataDir:           v.GetString("data_dir"),
		StorageDriver:     v.GetString("storage_driver"),
		DatabasePath:      v.GetString("database_path"),
		StaticDir:         v.GetString("static_dir"),
		SiteContentPath:   v.GetString("site_content_path"),
		AdminUser:         v.GetString("admin_username"),
		AdminPassword:     v.GetString("admin_password"),
		AdminPasswordHash: v.GetString("admin_password_hash"),
		SessionSecret:     v.GetString("admin_session_secret"),
		TokenSecret:       v.GetString("admin_token_secret"),
		CookieSecure:      v.GetBool("cookie_secure"),
		PostCacheTTL:      v.GetDuration("post_cache_ttl"),
		DisableWatch:      !v.GetBool("watch_data_dir"),
	}
}
