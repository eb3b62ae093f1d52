//go:build integration

package storage

import (
	"context"
	"testing"

	"github.com/cloo-solutions/msassist/internal/domain"
	"github.com/cloo-solutions/msassist/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestS3Client_RustFS(t *testing.T) {
	ctx := context.Background()
	rc := testutil.NewRustFSContainer(ctx, t)
	defer rc.Terminate(ctx)

	client, err := NewS3Client(ctx, S3ClientConfig{
		Endpoint:        rc.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "msassist-test",
		UsePathStyle:    true,
		MaxObjectBytes:  1 << 20,
	})
	require.NoError(t, err)
	require.NoError(t, client.EnsureBucket(ctx))

	key := "documents/abc/notes.txt"
	require.NoError(t, client.PutObject(ctx, key, "text/plain", []byte("rest and cooling")))

	meta, err := client.HeadObject(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(16), meta.ContentLength)

	data, err := client.GetObject(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "rest and cooling", string(data))

	_, err = client.HeadObject(ctx, "documents/missing")
	assert.ErrorIs(t, err, domain.ErrObjectNotFound)
}
