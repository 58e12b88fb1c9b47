package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rowjay/lily-delivery/internal/compress"
)

// Environment is the validated view of one entry of the dependencies section.
type Environment struct {
	Name       string
	S3         *S3Hosting
	CloudFront *CloudFrontHosting
	Local      *LocalHosting
}

// Validate checks the settings shared by every environment.
func (c *Config) Validate() error {
	var errs []error
	if !compress.Supported(c.Meta.ContentEncoding) {
		errs = append(errs, fmt.Errorf("meta.content-encoding: unsupported encoding %q", c.Meta.ContentEncoding))
	}
	if strings.TrimSpace(c.Meta.CacheControl) == "" {
		errs = append(errs, errors.New("meta.cache-control is required"))
	}
	if strings.ContainsAny(c.Build.EntryDocument, `/\`) {
		errs = append(errs, fmt.Errorf("build.entry_document must be a file name, got %q", c.Build.EntryDocument))
	}
	if c.Global.UploadConcurrency < 1 {
		errs = append(errs, errors.New("global.upload_concurrency must be at least 1"))
	}
	for i, r := range c.Replacements {
		if r.From == "" {
			errs = append(errs, fmt.Errorf("replacements[%d].from is required", i))
		}
		if len(r.FileExtensions) == 0 {
			errs = append(errs, fmt.Errorf("replacements[%d].file_extensions is required", i))
		}
		for _, ext := range r.FileExtensions {
			if !strings.HasPrefix(ext, ".") {
				errs = append(errs, fmt.Errorf("replacements[%d].file_extensions: %q must start with a dot", i, ext))
			}
		}
	}
	if len(c.Dependencies) == 0 {
		errs = append(errs, errors.New("dependencies: at least one environment is required"))
	}
	return errors.Join(errs...)
}

// Environments returns the configured environment names, sorted.
func (c *Config) Environments() []string {
	names := make([]string, 0, len(c.Dependencies))
	for name := range c.Dependencies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Environment resolves and validates the dependencies of one environment.
func (c *Config) Environment(name string) (*Environment, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	deps, ok := c.Dependencies[key]
	if !ok {
		return nil, fmt.Errorf("environment %q is not configured (known: %s)", name, strings.Join(c.Environments(), ", "))
	}
	env := &Environment{Name: key, S3: deps.HostingS3, CloudFront: deps.HostingCloudFront, Local: deps.HostingLocal}

	prefix := "dependencies." + key
	var errs []error
	require := func(field, value string) {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, fmt.Errorf("%s.%s is required", prefix, field))
		}
	}

	switch {
	case env.S3 != nil && env.Local != nil:
		errs = append(errs, fmt.Errorf("%s: hosting_s3 and hosting_local are mutually exclusive", prefix))
	case env.S3 != nil:
		require("hosting_s3.access_key_id", env.S3.AccessKeyID)
		require("hosting_s3.secret_access_key", env.S3.SecretAccessKey)
		require("hosting_s3.region", env.S3.Region)
		require("hosting_s3.bucket_name", env.S3.BucketName)
		if env.CloudFront == nil {
			errs = append(errs, fmt.Errorf("%s.hosting_cloudfront is required", prefix))
		}
	case env.Local != nil:
		require("hosting_local.path", env.Local.Path)
	default:
		errs = append(errs, fmt.Errorf("%s: hosting_s3 or hosting_local is required", prefix))
	}
	if env.CloudFront != nil {
		require("hosting_cloudfront.access_key_id", env.CloudFront.AccessKeyID)
		require("hosting_cloudfront.secret_access_key", env.CloudFront.SecretAccessKey)
		require("hosting_cloudfront.distribution_id", env.CloudFront.DistributionID)
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return env, nil
}

// Redacted returns a copy with credentials masked, for display.
func (c *Config) Redacted() Config {
	out := *c
	out.Dependencies = make(map[string]DependenciesConfig, len(c.Dependencies))
	for name, deps := range c.Dependencies {
		if deps.HostingS3 != nil {
			s3 := *deps.HostingS3
			s3.AccessKeyID = mask(s3.AccessKeyID)
			s3.SecretAccessKey = mask(s3.SecretAccessKey)
			deps.HostingS3 = &s3
		}
		if deps.HostingCloudFront != nil {
			cf := *deps.HostingCloudFront
			cf.AccessKeyID = mask(cf.AccessKeyID)
			cf.SecretAccessKey = mask(cf.SecretAccessKey)
			deps.HostingCloudFront = &cf
		}
		out.Dependencies[name] = deps
	}
	out.Notifications.Matrix = make([]MatrixConfig, len(c.Notifications.Matrix))
	for i, m := range c.Notifications.Matrix {
		m.AccessToken = mask(m.AccessToken)
		out.Notifications.Matrix[i] = m
	}
	return out
}

func mask(v string) string {
	if len(v) <= 4 {
		return strings.Repeat("*", len(v))
	}
	return v[:2] + strings.Repeat("*", len(v)-4) + v[len(v)-2:]
}
