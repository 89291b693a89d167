package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type fakeObjects struct {
	objects map[string][]byte
	ctypes  map[string]string
	puts    int
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: map[string][]byte{}, ctypes: map[string]string{}}
}

func (f *fakeObjects) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if _, ok := f.objects[*in.Key]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeObjects) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.puts++
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if in.ContentLength == nil || *in.ContentLength != int64(len(b)) {
		return nil, errors.New("content length does not match body")
	}
	f.objects[*in.Key] = b
	if in.ContentType != nil {
		f.ctypes[*in.Key] = *in.ContentType
	}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjects) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	b, ok := f.objects[*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(b))}, nil
}

func TestS3StorePutGet(t *testing.T) {
	ctx := context.Background()
	fake := newFakeObjects()
	store := &S3Store{client: fake, bucket: "premeds", prefix: "out"}

	ok, err := store.Exists(ctx, "labs.csv")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if ok {
		t.Fatal("expected missing object")
	}

	if err := store.Put(ctx, "labs.csv", func(w io.Writer) error {
		_, err := w.Write([]byte("a\n1\n"))
		return err
	}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, ok := fake.objects["out/labs.csv"]; !ok {
		t.Fatalf("expected object under the prefix, have %v", fake.objects)
	}
	if fake.ctypes["out/labs.csv"] != "text/csv" {
		t.Fatalf("unexpected content type %q", fake.ctypes["out/labs.csv"])
	}
	if ok, err := store.Exists(ctx, "labs.csv"); err != nil || !ok {
		t.Fatalf("expected object to exist (err=%v)", err)
	}
	b, err := store.Get(ctx, "labs.csv")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(b) != "a\n1\n" {
		t.Fatalf("unexpected content %q", b)
	}
	if got := store.Location("labs.csv"); got != "s3://premeds/out/labs.csv" {
		t.Fatalf("unexpected location %s", got)
	}
}

func TestS3StoreFailedWriteNeverUploads(t *testing.T) {
	fake := newFakeObjects()
	store := &S3Store{client: fake, bucket: "premeds"}
	err := store.Put(context.Background(), "patient.parquet", func(w io.Writer) error {
		if _, err := w.Write([]byte("partial")); err != nil {
			return err
		}
		return errors.New("writer crashed")
	})
	if err == nil {
		t.Fatal("expected write error")
	}
	if fake.puts != 0 {
		t.Fatalf("a failed write must not reach PutObject, got %d calls", fake.puts)
	}
}

func TestS3StoreGetMissing(t *testing.T) {
	store := &S3Store{client: newFakeObjects(), bucket: "premeds"}
	if _, err := store.Get(context.Background(), "patient.parquet"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.Exists(context.Background(), "../patient.parquet"); err == nil {
		t.Fatal("expected escaping key to be rejected")
	}
}
