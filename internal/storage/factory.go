package storage

import (
	"fmt"

	"github.com/andresuchdata/mediasync/internal/config"
)

// New builds the ObjectStorage selected by cfg.Driver.
func New(cfg config.StorageConfig) (ObjectStorage, error) {
	switch cfg.Driver {
	case config.DriverS3, "":
		return NewMinioClient(MinioConfig{
			Endpoint:       cfg.Endpoint,
			AccessKey:      cfg.AccessKey,
			SecretKey:      cfg.SecretKey,
			SessionToken:   cfg.SessionToken,
			Bucket:         cfg.Bucket,
			Region:         cfg.Region,
			UseSSL:         cfg.UseSSL,
			ForcePathStyle: cfg.ForcePathStyle,
		})
	case config.DriverCompat:
		return NewCompatClient(CompatConfig{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			UseSSL:    cfg.UseSSL,
		})
	case config.DriverLocal:
		return NewLocalClient(cfg.LocalRoot)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
