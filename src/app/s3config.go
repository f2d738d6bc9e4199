package app

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// S3Config holds the object storage settings of one user.
type S3Config struct {
	URL             string `json:"url" validate:"required"`
	AccessKeyID     string `json:"accessKeyId" validate:"required"`
	SecretAccessKey string `json:"secretAccessKey" validate:"required"`
	BucketName      string `json:"bucketName" validate:"required"`
	Prefix          string `json:"prefix"`
}

var configValidator = validator.New(validator.WithRequiredStructEnabled())

// Trimmed returns a copy with surrounding whitespace removed from every field but the prefix.
func (c S3Config) Trimmed() S3Config {
	return S3Config{
		URL:             strings.TrimSpace(c.URL),
		AccessKeyID:     strings.TrimSpace(c.AccessKeyID),
		SecretAccessKey: strings.TrimSpace(c.SecretAccessKey),
		BucketName:      strings.TrimSpace(c.BucketName),
		Prefix:          c.Prefix,
	}
}

// Complete reports whether endpoint, credentials and bucket are all set.
func (c S3Config) Complete() bool {
	return c.Validate() == nil
}

// Validate reports which required fields are missing.
func (c S3Config) Validate() error {
	return configValidator.Struct(c.Trimmed())
}
