package storage

import (
	"fmt"

	"github.com/rowjay/lily-delivery/internal/config"
)

// New builds the object store and website client of an environment.
func New(env *config.Environment) (Storage, Website, error) {
	switch {
	case env.S3 != nil:
		s3cfg := env.S3
		store, err := NewS3(s3cfg.Endpoint, s3cfg.Region, s3cfg.BucketName, s3cfg.AccessKeyID, s3cfg.SecretAccessKey, s3cfg.Secure(), s3cfg.ForcePathStyle)
		if err != nil {
			return nil, nil, fmt.Errorf("s3 client: %w", err)
		}
		site := NewS3Website(s3cfg.Endpoint, s3cfg.Region, s3cfg.BucketName, s3cfg.AccessKeyID, s3cfg.SecretAccessKey, s3cfg.Secure(), s3cfg.ForcePathStyle)
		return store, site, nil
	case env.Local != nil:
		local := NewLocal(env.Local.Path)
		return local, local, nil
	default:
		return nil, nil, fmt.Errorf("environment %s has no hosting configured", env.Name)
	}
}
