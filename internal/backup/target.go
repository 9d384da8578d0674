package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/nextlevelbuilder/codebot/internal/store"
)

// ErrBadTarget is returned for an s3:// URL without bucket or key.
var ErrBadTarget = errors.New("invalid backup target")

// s3Location is a parsed s3://bucket/key target.
type s3Location struct {
	Bucket string
	Key    string
}

// parseS3 reports whether target is an s3:// URL and splits it.
func parseS3(target string) (s3Location, bool, error) {
	rest, ok := strings.CutPrefix(target, "s3://")
	if !ok {
		return s3Location{}, false, nil
	}
	bucket, key, _ := strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return s3Location{}, true, fmt.Errorf("%w: %q", ErrBadTarget, target)
	}
	return s3Location{Bucket: bucket, Key: key}, true, nil
}

// ExportTo exports the index to target.
func ExportTo(ctx context.Context, s store.MediaStore, target string) (int, error) {
	var buf bytes.Buffer
	n, err := Export(ctx, s, &buf)
	if err != nil {
		return n, err
	}

	loc, isS3, err := parseS3(target)
	if err != nil {
		return 0, err
	}
	if isS3 {
		err = uploadS3(ctx, loc, buf.Bytes())
	} else {
		err = writeFileAtomic(target, buf.Bytes())
	}
	if err != nil {
		return 0, err
	}

	slog.Info("backup exported", "target", target, "entries", n)
	return n, nil
}

// ImportFrom imports the index from target.
func ImportFrom(ctx context.Context, s store.MediaStore, target string) (int, error) {
	loc, isS3, err := parseS3(target)
	if err != nil {
		return 0, err
	}

	var data []byte
	if isS3 {
		data, err = downloadS3(ctx, loc)
	} else {
		data, err = os.ReadFile(target)
	}
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", target, err)
	}
	return Import(ctx, s, bytes.NewReader(data))
}

// writeFileAtomic writes via a temp file and rename so a crash never leaves
// a truncated backup behind.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".codebot-backup-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func newS3Client(ctx context.Context) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

func uploadS3(ctx context.Context, loc s3Location, data []byte) error {
	client, err := newS3Client(ctx)
	if err != nil {
		return err
	}
	_, err = manager.NewUploader(client).Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(loc.Bucket),
		Key:         aws.String(loc.Key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("upload s3://%s/%s: %w", loc.Bucket, loc.Key, err)
	}
	return nil
}

func downloadS3(ctx context.Context, loc s3Location) ([]byte, error) {
	client, err := newS3Client(ctx)
	if err != nil {
		return nil, err
	}
	buf := manager.NewWriteAtBuffer(nil)
	_, err = manager.NewDownloader(client).Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		return nil, fmt.Errorf("download s3://%s/%s: %w", loc.Bucket, loc.Key, err)
	}
	return buf.Bytes(), nil
}
