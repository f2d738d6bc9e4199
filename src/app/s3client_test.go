package app

import (
	"errors"
	"net"
	"os"
	"syscall"
	"testing"

	mocking "imaginarium/src/app/mock"

	"github.com/minio/minio-go/v7"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func validConfig() *S3Config {
	return &S3Config{
		URL:             "minio.local:9000",
		AccessKeyID:     "access",
		SecretAccessKey: "secret",
		BucketName:      "bucket",
		Prefix:          "art",
	}
}

func uploaderWith(client *mocking.MockClient, calls *int) *Uploader {
	return NewUploader(func(endpoint string, opts *minio.Options) (ClientMinio, error) {
		*calls++
		client.Endpoint = endpoint
		client.Options = opts
		return client, nil
	}, zerolog.Nop())
}

func TestUploaderPreconditions(t *testing.T) {
	image := GeneratedImage{ID: "1", URL: EncodeDataURI("image/png", pngBytes), Name: "fox"}

	cases := []struct {
		name    string
		image   GeneratedImage
		config  *S3Config
		message string
	}{
		{"missing config", image, nil, "S3 configuration not available"},
		{"not a data uri", GeneratedImage{URL: "https://example.com/a.png", Name: "a"}, validConfig(), "not a valid data URI"},
		{"incomplete config", image, &S3Config{URL: "minio.local", BucketName: "b"}, "incomplete"},
		{"empty name", GeneratedImage{URL: image.URL, Name: ""}, validConfig(), "Image name is required"},
		{"blank name", GeneratedImage{URL: image.URL, Name: "   "}, validConfig(), "Image name is required"},
		{"bad port", image, &S3Config{URL: "http://minio.local:99999", AccessKeyID: "a", SecretAccessKey: "s", BucketName: "b"}, "Invalid port"},
		{"bad payload", GeneratedImage{URL: "data:image/png;base64,***", Name: "a"}, validConfig(), "Invalid image data URI"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := &mocking.MockClient{}
			calls := 0
			result := uploaderWith(client, &calls).Upload(t.Context(), tc.image, tc.config)

			assert.False(t, result.Success)
			assert.Contains(t, result.Message, tc.message)
			assert.Zero(t, calls, "no client may be created when preconditions fail")
			client.AssertNotCalled(t, "PutObject")
		})
	}
}

func TestUploaderUpload(t *testing.T) {
	t.Run("puts decoded bytes under prefixed key", func(t *testing.T) {
		client := &mocking.MockClient{}
		client.On("PutObject", mock.Anything, "bucket", "art/My Photo.png", int64(len(pngBytes)), "image/png").
			Return(minio.UploadInfo{}, nil)
		calls := 0

		image := GeneratedImage{ID: "1", URL: EncodeDataURI("image/png", pngBytes), Name: " My Photo "}
		result := uploaderWith(client, &calls).Upload(t.Context(), image, validConfig())

		require.True(t, result.Success, result.Message)
		assert.Equal(t, "http://minio.local:9000/bucket/art/My%20Photo.png", result.URL)
		assert.Equal(t, `Image "My Photo.png" uploaded successfully to S3.`, result.Message)
		assert.Equal(t, "minio.local:9000", client.Endpoint)
		assert.False(t, client.Options.Secure)
		assert.Equal(t, pngBytes, client.Body)
		client.AssertExpectations(t)
	})

	t.Run("https endpoint uses default port and no double extension", func(t *testing.T) {
		client := &mocking.MockClient{}
		client.On("PutObject", mock.Anything, "bucket", "shots/fox.JPEG", int64(len(pngBytes)), "image/jpeg").
			Return(minio.UploadInfo{}, nil)
		calls := 0
		config := validConfig()
		config.URL = "https://s3.example.com"
		config.Prefix = "/shots//"

		image := GeneratedImage{URL: EncodeDataURI("image/jpeg", pngBytes), Name: "fox.JPEG"}
		result := uploaderWith(client, &calls).Upload(t.Context(), image, config)

		require.True(t, result.Success, result.Message)
		assert.Equal(t, "https://s3.example.com/bucket/shots/fox.JPEG", result.URL)
		assert.Equal(t, "s3.example.com:443", client.Endpoint)
		assert.True(t, client.Options.Secure)
		client.AssertExpectations(t)
	})
}

func TestUploaderErrorClassification(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		message string
	}{
		{"missing bucket", minio.ErrorResponse{Code: "NoSuchBucket"}, `Bucket "bucket" does not exist.`},
		{"access denied", minio.ErrorResponse{Code: "AccessDenied"}, `Access denied for S3 bucket "bucket"`},
		{"connection refused", &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}, "Connection refused"},
		{"other s3 code", minio.ErrorResponse{Code: "SlowDown", Message: "reduce rate"}, "S3 Upload Error (SlowDown): reduce rate"},
		{"other", errors.New("boom"), "S3 Upload Error: boom"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := &mocking.MockClient{}
			client.On("PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
				Return(minio.UploadInfo{}, tc.err)
			calls := 0

			image := GeneratedImage{URL: EncodeDataURI("image/png", pngBytes), Name: "fox"}
			result := uploaderWith(client, &calls).Upload(t.Context(), image, validConfig())

			assert.False(t, result.Success)
			assert.Contains(t, result.Message, tc.message)
			assert.Equal(t, 1, calls)
		})
	}
}

func TestParseS3Endpoint(t *testing.T) {
	endpoint, err := parseS3Endpoint("storage.local")
	require.NoError(t, err)
	assert.Equal(t, s3Endpoint{scheme: "http", host: "storage.local", port: 80}, endpoint)
	assert.Equal(t, "http://storage.local/b/k.png", endpoint.objectURL("b", "k.png"))

	endpoint, err = parseS3Endpoint("https://storage.local:8443")
	require.NoError(t, err)
	assert.Equal(t, 8443, endpoint.port)
	assert.Equal(t, "https://storage.local:8443/b/k.png", endpoint.objectURL("b", "k.png"))

	_, err = parseS3Endpoint("http://")
	assert.Error(t, err)
}
