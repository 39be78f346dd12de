package cmd

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/assessment-finder/internal/logger"
	"github.com/spigell/assessment-finder/internal/recommend"
	"github.com/spigell/assessment-finder/internal/web"
)

const (
	app       = "assessment-finder"
	envPrefix = "ASSESSMENT_FINDER"
)

type Config struct {
	API    *APIConfig `mapstructure:"api"`
	Server web.Config `mapstructure:"server"`
}

type APIConfig struct {
	BaseURL   string        `mapstructure:"base-url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user-agent"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "assessment-finder sends a hiring query to the recommendation API and shows the suggested assessments",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is assessment-finder.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("api-url", "", "base url of the recommendation API")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("api.base-url", rootCmd.PersistentFlags().Lookup("api-url"))

	setDefaults(viper.GetViper())
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base-url", recommend.DefaultBaseURL)
	v.SetDefault("api.timeout", time.Duration(0))
	v.SetDefault("api.user-agent", "spigell/"+app)

	v.SetDefault("server.listen", ":8080")
	v.SetDefault("server.session-ttl", 30*time.Minute)
	v.SetDefault("server.rate-limit", 5.0)
	v.SetDefault("server.rate-burst", 10)
	v.SetDefault("server.allowed-origins", []string{})
}

func initConfig() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	// The config file is optional, but a broken one is not.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	var config *Config
	err := v.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config.API == nil {
		config.API = &APIConfig{}
	}

	return config, nil
}

// setup builds the logger, the config and the recommendation client shared by
// every command. Failures are fatal.
func setup() (*zap.Logger, *Config, *recommend.Client) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Debug("starting with config",
		zap.String("api_base_url", config.API.BaseURL),
		zap.Duration("api_timeout", config.API.Timeout),
		zap.String("listen", config.Server.Listen),
	)

	client := recommend.New(config.API.BaseURL, config.API.Timeout, logger)
	if config.API.UserAgent != "" {
		client.UserAgent = config.API.UserAgent
	}

	return logger, config, client
}
