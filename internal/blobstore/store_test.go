package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

func TestKey(t *testing.T) {
	at := time.UnixMilli(1767225600123)
	if got := Key(42, "abc", at); got != "42/abc-1767225600123.png" {
		t.Fatalf("Key = %q", got)
	}
}

func TestMySQLStore(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	store := NewMySQLStore(db)
	png := []byte("\x89PNG...")

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO signature_blobs (ref, content_type, data)")).
		WithArgs("1/a-5.png", "image/png", png).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT data FROM signature_blobs").
		WithArgs("1/a-5.png").
		WillReturnRows(sqlmock.NewRows([]string{"data"}).AddRow(png))
	mock.ExpectQuery("SELECT data FROM signature_blobs").
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"data"}))

	ref, err := store.Put(context.Background(), "1/a-5.png", png)
	if err != nil || ref != "1/a-5.png" {
		t.Fatalf("Put: ref=%q err=%v", ref, err)
	}
	got, err := store.Get(context.Background(), ref)
	if err != nil || !bytes.Equal(got, png) {
		t.Fatalf("Get: %q %v", got, err)
	}
	if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

type fakeObjects struct {
	objects map[string][]byte
	putErr  error
}

func (f *fakeObjects) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	b, _ := io.ReadAll(in.Body)
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = b
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjects) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	b, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(b))}, nil
}

func TestS3Store(t *testing.T) {
	fake := &fakeObjects{objects: map[string][]byte{}}
	store := newS3Store(fake, "signatures")
	ctx := context.Background()

	ref, err := store.Put(ctx, "7/x-1.png", []byte("img"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, ok := fake.objects["signatures/7/x-1.png"]; !ok {
		t.Fatalf("object not written to bucket: %v", fake.objects)
	}
	got, err := store.Get(ctx, ref)
	if err != nil || string(got) != "img" {
		t.Fatalf("Get: %q %v", got, err)
	}
	if _, err := store.Get(ctx, "7/missing.png"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}

	fake.putErr = errors.New("throttled")
	if _, err := store.Put(ctx, "7/y-1.png", []byte("img")); err == nil {
		t.Fatal("expected put error")
	}
}

func TestNewS3StoreRequiresBucket(t *testing.T) {
	if _, err := NewS3Store(context.Background(), S3Config{Region: "us-east-1"}); err == nil {
		t.Fatal("expected error for empty bucket")
	}
}
