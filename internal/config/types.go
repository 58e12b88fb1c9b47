package config

import (
	"time"

	"github.com/rowjay/lily-delivery/internal/replace"
)

// Config is the root schema of .lily_delivery.yaml.
type Config struct {
	Global        GlobalConfig                  `mapstructure:"global" yaml:"global"`
	Build         BuildConfig                   `mapstructure:"build" yaml:"build"`
	Meta          MetaConfig                    `mapstructure:"meta" yaml:"meta"`
	Replacements  []replace.Rule                `mapstructure:"replacements" yaml:"replacements"`
	Schedule      ScheduleConfig                `mapstructure:"schedule" yaml:"schedule"`
	Notifications NotificationsConfig           `mapstructure:"notifications" yaml:"notifications"`
	Dependencies  map[string]DependenciesConfig `mapstructure:"dependencies" yaml:"dependencies"`
}

type GlobalConfig struct {
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat         string        `mapstructure:"log_format" yaml:"log_format"` // json or console
	LockFile          string        `mapstructure:"lock_file" yaml:"lock_file,omitempty"`
	OperationTimeout  time.Duration `mapstructure:"operation_timeout" yaml:"operation_timeout"`
	UploadConcurrency int           `mapstructure:"upload_concurrency" yaml:"upload_concurrency"`
	ConfigPassphrase  string        `mapstructure:"config_passphrase" yaml:"-"`
}

type BuildConfig struct {
	EntryDocument string   `mapstructure:"entry_document" yaml:"entry_document"`
	WorkspaceFile string   `mapstructure:"workspace_file" yaml:"workspace_file"` // angular.json
	PackageFile   string   `mapstructure:"package_file" yaml:"package_file"`     // package.json
	Exclude       []string `mapstructure:"exclude" yaml:"exclude,omitempty"`
	TempDir       string   `mapstructure:"temp_dir" yaml:"temp_dir,omitempty"`
}

// MetaConfig is applied to every uploaded object.
type MetaConfig struct {
	CacheControl    string `mapstructure:"cache-control" yaml:"cache-control"`
	ContentEncoding string `mapstructure:"content-encoding" yaml:"content-encoding"` // gzip, zstd, none
}

type ScheduleConfig struct {
	WindowStart string `mapstructure:"window_start" yaml:"window_start,omitempty"` // HH:MM local time
	WindowEnd   string `mapstructure:"window_end" yaml:"window_end,omitempty"`
	Timezone    string `mapstructure:"timezone" yaml:"timezone,omitempty"`
}

// DependenciesConfig holds the remote collaborators of one environment.
type DependenciesConfig struct {
	HostingS3         *S3Hosting         `mapstructure:"hosting_s3" yaml:"hosting_s3,omitempty"`
	HostingCloudFront *CloudFrontHosting `mapstructure:"hosting_cloudfront" yaml:"hosting_cloudfront,omitempty"`
	HostingLocal      *LocalHosting      `mapstructure:"hosting_local" yaml:"hosting_local,omitempty"`
}

type S3Hosting struct {
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key"`
	Region          string `mapstructure:"region" yaml:"region"`
	BucketName      string `mapstructure:"bucket_name" yaml:"bucket_name"`
	Endpoint        string `mapstructure:"endpoint" yaml:"endpoint,omitempty"` // defaults to AWS
	UseSSL          *bool  `mapstructure:"use_ssl" yaml:"use_ssl,omitempty"`
	ForcePathStyle  bool   `mapstructure:"force_path_style" yaml:"force_path_style,omitempty"`
}

// Secure reports whether the endpoint is reached over TLS. Defaults to true.
func (s S3Hosting) Secure() bool {
	return s.UseSSL == nil || *s.UseSSL
}

type CloudFrontHosting struct {
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key"`
	Region          string `mapstructure:"region" yaml:"region"`
	DistributionID  string `mapstructure:"distribution_id" yaml:"distribution_id"`
}

// LocalHosting publishes into a directory, for previews. It has no CDN.
type LocalHosting struct {
	Path string `mapstructure:"path" yaml:"path"`
}

type NotificationsConfig struct {
	Webhooks   []WebhookConfig  `mapstructure:"webhooks" yaml:"webhooks,omitempty"`
	Mattermost []MattermostHook `mapstructure:"mattermost" yaml:"mattermost,omitempty"`
	Matrix     []MatrixConfig   `mapstructure:"matrix" yaml:"matrix,omitempty"`
}

type WebhookConfig struct {
	Name    string            `mapstructure:"name" yaml:"name"`
	URL     string            `mapstructure:"url" yaml:"url"`
	Headers map[string]string `mapstructure:"headers" yaml:"headers,omitempty"`
}

type MattermostHook struct {
	Name string `mapstructure:"name" yaml:"name"`
	URL  string `mapstructure:"url" yaml:"url"`
}

type MatrixConfig struct {
	Name        string `mapstructure:"name" yaml:"name"`
	ServerURL   string `mapstructure:"server_url" yaml:"server_url"`
	AccessToken string `mapstructure:"access_token" yaml:"access_token"`
	RoomID      string `mapstructure:"room_id" yaml:"room_id"`
}
