package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/casegraph/backend/pkg/network"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

type fakeS3 struct {
	objects map[string][]byte
	getErr  error
	putErr  error
	lastPut *s3.PutObjectInput
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("missing")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Bucket+"/"+*in.Key] = data
	f.lastPut = in
	return &s3.PutObjectOutput{}, nil
}

func TestS3SnapshotStore(t *testing.T) {
	ctx := context.Background()
	client := &fakeS3{objects: map[string][]byte{}}
	s := NewS3SnapshotStore(client, "bucket", "snapshots/network.json.gz")

	if _, err := s.Load(ctx); !errors.Is(err, network.ErrSnapshotNotFound) {
		t.Fatalf("expected ErrSnapshotNotFound, got %v", err)
	}
	if err := s.Save(ctx, []byte("payload")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if got := aws.ToString(client.lastPut.ContentType); got != snapshotContentType {
		t.Fatalf("content type = %q", got)
	}
	if got := aws.ToInt64(client.lastPut.ContentLength); got != 7 {
		t.Fatalf("content length = %d", got)
	}
	data, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if string(data) != "payload" {
		t.Fatalf("data = %q", data)
	}
}

func TestS3SnapshotStoreErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("connection refused")
	s := NewS3SnapshotStore(&fakeS3{getErr: boom, putErr: boom}, "bucket", "key")

	_, err := s.Load(ctx)
	if !errors.Is(err, boom) || errors.Is(err, network.ErrSnapshotNotFound) {
		t.Fatalf("Load error = %v", err)
	}
	if err := s.Save(ctx, []byte("x")); !errors.Is(err, boom) {
		t.Fatalf("Save error = %v", err)
	}
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "no such key", err: &types.NoSuchKey{}, want: true},
		{name: "wrapped no such key", err: fmt.Errorf("get: %w", &types.NoSuchKey{}), want: true},
		{name: "generic not found", err: &smithy.GenericAPIError{Code: "NotFound"}, want: true},
		{name: "access denied", err: &smithy.GenericAPIError{Code: "AccessDenied"}, want: false},
		{name: "plain", err: errors.New("boom"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNotFound(tt.err); got != tt.want {
				t.Fatalf("isNotFound = %v, want %v", got, tt.want)
			}
		})
	}
}
