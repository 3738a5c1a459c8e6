package storage

import (
	"context"
	"fmt"
	"io"

	storage_go "github.com/supabase-community/storage-go"

	"github.com/IsaiahDupree/BlankLogo-sub004/fault"
)

// Supabase uploads processed videos to a Supabase storage bucket.
type Supabase struct {
	client *storage_go.Client
	bucket string
}

// NewSupabase creates an uploader for the given project URL, service key,
// and bucket. The URL is the project root (https://xyz.supabase.co); the
// storage API path is appended here.
func NewSupabase(projectURL, serviceKey, bucket string) *Supabase {
	return &Supabase{
		client: storage_go.NewClient(projectURL+"/storage/v1", serviceKey, nil),
		bucket: bucket,
	}
}

// Upload writes the object in upsert mode and returns its public URL.
// Storage failures are retryable FAILED_STORAGE.
func (s *Supabase) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fault.Wrap(fault.FailedStorage, err, "upload cancelled")
	}

	upsert := true
	_, err := s.client.UploadFile(s.bucket, key, r, storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", fault.Wrap(fault.FailedStorage, err,
			fmt.Sprintf("upload %s to bucket %s", key, s.bucket))
	}

	res := s.client.GetPublicUrl(s.bucket, key)
	if res.SignedURL == "" {
		return "", fault.Newf(fault.FailedStorage, "no public url for %s", key)
	}
	return res.SignedURL, nil
}
