package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"strings"
	"syscall"

	"github.com/gabriel-vasile/mimetype"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

type ClientMinio interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (info minio.UploadInfo, err error)
}

// ClientFactory opens a MinIO client for one upload.
type ClientFactory func(endpoint string, opts *minio.Options) (ClientMinio, error)

type (
	// Uploader puts gallery images into S3-compatible storage configured per user.
	Uploader struct {
		newClient ClientFactory
		log       zerolog.Logger
	}

	UploadResult struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		URL     string `json:"url,omitempty"`
	}

	s3Endpoint struct {
		scheme string
		host   string
		port   int
	}
)

func NewMinioClient(endpoint string, opts *minio.Options) (ClientMinio, error) {
	client, err := minio.New(endpoint, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return client, nil
}

// NewUploader creates an Uploader. A nil factory means minio.New.
func NewUploader(factory ClientFactory, log zerolog.Logger) *Uploader {
	if factory == nil {
		factory = NewMinioClient
	}
	return &Uploader{
		newClient: factory,
		log:       log.With().Str("component", "s3-uploader").Logger(),
	}
}

// Upload decodes the image data URI and puts it under <prefix><name><ext>.
// It makes a single attempt and reports every failure in the result.
func (u *Uploader) Upload(ctx context.Context, image GeneratedImage, config *S3Config) UploadResult {
	if config == nil {
		return failed("S3 configuration not available. Please configure S3 settings.")
	}
	cfg := config.Trimmed()
	if !strings.HasPrefix(image.URL, "data:image") {
		return failed("Image is not a valid data URI and cannot be uploaded.")
	}
	if !cfg.Complete() {
		return failed("S3 configuration (URL, Access Key, Secret Key, Bucket Name) is incomplete. Please check settings.")
	}
	if strings.TrimSpace(image.Name) == "" {
		return failed("Image name is required for S3 upload. Please provide a name.")
	}

	endpoint, err := parseS3Endpoint(cfg.URL)
	if err != nil {
		return failed(err.Error())
	}

	payload, err := ParseImageDataURI(image.URL)
	if err != nil {
		return failed("Invalid image data URI format for S3 upload.")
	}
	if detected := mimetype.Detect(payload.Data).String(); !strings.EqualFold(detected, payload.MimeType) {
		u.log.Warn().Str("declared", payload.MimeType).Str("detected", detected).Msg("data URI mime type differs from payload")
	}

	fileName := FileName(image.Name, payload.MimeType)
	key := ObjectKey(cfg.Prefix, fileName)

	client, err := u.newClient(endpoint.hostPort(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: endpoint.scheme == "https",
	})
	if err != nil {
		u.log.Error().Err(err).Str("endpoint", endpoint.hostPort()).Msg("can not create minio client")
		return failed("S3 Upload Error: " + err.Error())
	}

	u.log.Info().Str("bucket", cfg.BucketName).Str("key", key).Str("mime", payload.MimeType).Msg("uploading image")
	_, err = client.PutObject(ctx,
		cfg.BucketName,
		key,
		bytes.NewReader(payload.Data),
		int64(len(payload.Data)),
		minio.PutObjectOptions{ContentType: payload.MimeType})
	if err != nil {
		u.log.Error().Err(err).Str("bucket", cfg.BucketName).Str("key", key).Msg("upload failed")
		return failed(classifyUploadError(err, cfg))
	}

	return UploadResult{
		Success: true,
		Message: fmt.Sprintf("Image %q uploaded successfully to S3.", fileName),
		URL:     endpoint.objectURL(cfg.BucketName, key),
	}
}

func failed(message string) UploadResult {
	return UploadResult{Success: false, Message: message}
}

func parseS3Endpoint(raw string) (s3Endpoint, error) {
	full := raw
	if !strings.HasPrefix(full, "http://") && !strings.HasPrefix(full, "https://") {
		full = "http://" + full
	}
	parsed, err := url.Parse(full)
	if err != nil || parsed.Hostname() == "" {
		return s3Endpoint{}, fmt.Errorf("Invalid S3 URL format: %s", raw)
	}
	endpoint := s3Endpoint{scheme: parsed.Scheme, host: parsed.Hostname()}
	if p := parsed.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil || port <= 0 || port > 65535 {
			return s3Endpoint{}, fmt.Errorf("Invalid port in S3 URL: %s", p)
		}
		endpoint.port = port
	} else if endpoint.scheme == "https" {
		endpoint.port = 443
	} else {
		endpoint.port = 80
	}
	return endpoint, nil
}

func (e s3Endpoint) hostPort() string {
	return net.JoinHostPort(e.host, strconv.Itoa(e.port))
}

func (e s3Endpoint) objectURL(bucket, key string) string {
	host := e.host
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if e.port != 80 && e.port != 443 {
		host = e.hostPort()
	}
	u := url.URL{Scheme: e.scheme, Host: host, Path: "/" + bucket + "/" + key}
	return u.String()
}

func classifyUploadError(err error, cfg S3Config) string {
	resp := minio.ToErrorResponse(err)
	switch {
	case resp.Code == "NoSuchBucket":
		return fmt.Sprintf("Bucket %q does not exist.", cfg.BucketName)
	case resp.Code == "AccessDenied":
		return fmt.Sprintf("Access denied for S3 bucket %q. Check credentials, permissions, and bucket policy.", cfg.BucketName)
	case errors.Is(err, syscall.ECONNREFUSED) || strings.Contains(err.Error(), "connection refused"):
		return fmt.Sprintf("Connection refused. Ensure S3 service at %s is reachable.", cfg.URL)
	case resp.Code != "":
		message := resp.Message
		if message == "" {
			message = "An unknown S3 error occurred."
		}
		return fmt.Sprintf("S3 Upload Error (%s): %s", resp.Code, message)
	default:
		return "S3 Upload Error: " + err.Error()
	}
}
