package baseline

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Source is a readable blob holding a serialized baseline
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	Name() string
}

// ObjectGetter is the subset of the S3 client used to fetch baselines
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// FileSource reads a baseline from the local filesystem
type FileSource struct {
	Path string
}

// Open opens the file
func (f *FileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open baseline file: %w", err)
	}
	return file, nil
}

// Name returns the file path
func (f *FileSource) Name() string {
	return f.Path
}

// S3Source reads a baseline object from a bucket
type S3Source struct {
	Client ObjectGetter
	Bucket string
	Key    string
}

// Open fetches the object body
func (s *S3Source) Open(ctx context.Context) (io.ReadCloser, error) {
	out, err := s.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Key),
	})
	if err != nil {
		return nil, fmt.Errorf("couldn't get object %s from bucket %s, details: %w", s.Key, s.Bucket, err)
	}
	return out.Body, nil
}

// Name returns the s3:// location
func (s *S3Source) Name() string {
	return "s3://" + s.Bucket + "/" + s.Key
}

// ParseLocation resolves a configured location into a Source.
// s3://bucket/key needs a client; file:// and bare paths read from disk.
func ParseLocation(location string, client ObjectGetter) (Source, error) {
	if location == "" {
		return nil, fmt.Errorf("baseline location is empty")
	}

	if !strings.Contains(location, "://") {
		return &FileSource{Path: location}, nil
	}

	u, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("failed to parse baseline location: %w", err)
	}

	switch u.Scheme {
	case "file":
		path := u.Path
		if u.Host != "" {
			// file://relative/path
			path = u.Host + u.Path
		}
		return &FileSource{Path: path}, nil
	case "s3":
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return nil, fmt.Errorf("s3 location must be s3://bucket/key, got %q", location)
		}
		if client == nil {
			return nil, fmt.Errorf("s3 location %q requires an s3 client", location)
		}
		return &S3Source{Client: client, Bucket: u.Host, Key: key}, nil
	default:
		return nil, fmt.Errorf("unsupported baseline scheme %q", u.Scheme)
	}
}
