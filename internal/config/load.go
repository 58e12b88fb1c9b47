package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/rowjay/lily-delivery/internal/compress"
	"github.com/rowjay/lily-delivery/internal/cryptoutil"
)

const (
	envPrefix = "LILY"

	// FileName is looked up in the working directory when no path is given.
	FileName = ".lily_delivery.yaml"
)

// Load reads configuration from a file (optionally encrypted), env vars, and defaults.
func Load(path string) (*Config, error) {
	vp := viper.New()
	vp.SetEnvPrefix(envPrefix)
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	vp.AutomaticEnv()

	setDefaults(vp)

	resolved, err := resolveConfigPath(path)
	if err != nil {
		return nil, err
	}
	if resolved == "" {
		return nil, fmt.Errorf("config file %s not found in the current directory", FileName)
	}

	if isEncryptedPath(resolved) {
		data, readErr := os.ReadFile(resolved)
		if readErr != nil {
			return nil, fmt.Errorf("read config: %w", readErr)
		}
		vp.SetConfigType(configTypeFromPath(resolved))
		key := os.Getenv("LILY_CONFIG_KEY")
		if key == "" {
			key = vp.GetString("global.config_passphrase")
		}
		if key == "" {
			return nil, errors.New("config file is encrypted but LILY_CONFIG_KEY is not set")
		}
		plain, decErr := decryptConfig(data, key)
		if decErr != nil {
			return nil, fmt.Errorf("decrypt config: %w", decErr)
		}
		if err := vp.ReadConfig(bytes.NewReader(plain)); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	} else {
		vp.SetConfigFile(resolved)
		vp.SetConfigType(configTypeFromPath(resolved))
		if err := vp.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := vp.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	expandEnv(&cfg)
	applyPostLoadDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func resolveConfigPath(path string) (string, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("config file: %w", err)
		}
		return path, nil
	}
	if envPath := os.Getenv("LILY_CONFIG"); envPath != "" {
		return envPath, nil
	}

	candidates := []string{
		FileName,
		".lily_delivery.yml",
		".lily_delivery.json",
		FileName + ".enc",
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", nil
}

func isEncryptedPath(path string) bool {
	return strings.HasSuffix(path, ".enc") || strings.HasSuffix(path, ".encrypted")
}

func configTypeFromPath(path string) string {
	trimmed := strings.TrimSuffix(strings.TrimSuffix(path, ".enc"), ".encrypted")
	switch {
	case strings.HasSuffix(trimmed, ".toml"):
		return "toml"
	case strings.HasSuffix(trimmed, ".json"):
		return "json"
	default:
		return "yaml"
	}
}

func setDefaults(vp *viper.Viper) {
	vp.SetDefault("global.log_level", "info")
	vp.SetDefault("global.log_format", "console")
	vp.SetDefault("global.operation_timeout", "30m")
	vp.SetDefault("global.upload_concurrency", 4)
	vp.SetDefault("build.entry_document", "index.html")
	vp.SetDefault("build.workspace_file", "angular.json")
	vp.SetDefault("build.package_file", "package.json")
	vp.SetDefault("meta.content-encoding", compress.TypeGzip)
}

func applyPostLoadDefaults(cfg *Config) {
	if cfg.Global.OperationTimeout == 0 {
		cfg.Global.OperationTimeout = 30 * time.Minute
	}
	if cfg.Global.UploadConcurrency <= 0 {
		cfg.Global.UploadConcurrency = 1
	}
	if cfg.Build.EntryDocument == "" {
		cfg.Build.EntryDocument = "index.html"
	}
	if cfg.Meta.ContentEncoding == "" {
		cfg.Meta.ContentEncoding = compress.TypeGzip
	}
	cfg.Meta.ContentEncoding = strings.ToLower(cfg.Meta.ContentEncoding)
}

func expandEnv(cfg *Config) {
	for name, deps := range cfg.Dependencies {
		if deps.HostingS3 != nil {
			deps.HostingS3.AccessKeyID = os.ExpandEnv(deps.HostingS3.AccessKeyID)
			deps.HostingS3.SecretAccessKey = os.ExpandEnv(deps.HostingS3.SecretAccessKey)
		}
		if deps.HostingCloudFront != nil {
			deps.HostingCloudFront.AccessKeyID = os.ExpandEnv(deps.HostingCloudFront.AccessKeyID)
			deps.HostingCloudFront.SecretAccessKey = os.ExpandEnv(deps.HostingCloudFront.SecretAccessKey)
		}
		if deps.HostingLocal != nil {
			deps.HostingLocal.Path = os.ExpandEnv(deps.HostingLocal.Path)
		}
		cfg.Dependencies[name] = deps
	}
	cfg.Notifications = expandNotificationEnv(cfg.Notifications)
}

func expandNotificationEnv(cfg NotificationsConfig) NotificationsConfig {
	for i := range cfg.Webhooks {
		cfg.Webhooks[i].URL = os.ExpandEnv(cfg.Webhooks[i].URL)
	}
	for i := range cfg.Mattermost {
		cfg.Mattermost[i].URL = os.ExpandEnv(cfg.Mattermost[i].URL)
	}
	for i := range cfg.Matrix {
		cfg.Matrix[i].ServerURL = os.ExpandEnv(cfg.Matrix[i].ServerURL)
		cfg.Matrix[i].AccessToken = os.ExpandEnv(cfg.Matrix[i].AccessToken)
		cfg.Matrix[i].RoomID = os.ExpandEnv(cfg.Matrix[i].RoomID)
	}
	return cfg
}

func decryptConfig(ciphertext []byte, key string) ([]byte, error) {
	parsed, err := cryptoutil.ParseKey(key)
	if err != nil {
		return nil, err
	}
	return cryptoutil.DecryptConfig(ciphertext, parsed)
}

// EncryptConfigFile encrypts a config file with the provided key.
func EncryptConfigFile(inputPath, outputPath, key string) error {
	plain, err := os.ReadFile(inputPath)
	if err != nil {
		return err
	}
	parsed, err := cryptoutil.ParseKey(key)
	if err != nil {
		return err
	}
	ciphertext, err := cryptoutil.EncryptConfig(plain, parsed)
	if err != nil {
		return err
	}
	return os.WriteFile(outputPath, ciphertext, 0o600)
}
