package coursefiles

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgfoster/PrairieLearn/core"
	"github.com/jgfoster/PrairieLearn/core/course"
)

func TestLocalStore_ReadFile(t *testing.T) {
	dir := t.TempDir()
	qdir := filepath.Join(dir, "cs101", "questions", "addNumbers")
	require.NoError(t, os.MkdirAll(qdir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(qdir, "data.txt"), []byte("1 2"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "secret.txt"), []byte("nope"), 0o644))

	store := NewLocalStore(dir)
	c := course.Course{ID: "1", Path: "cs101"}
	ctx := context.Background()

	b, err := store.ReadFile(ctx, c, "questions/addNumbers/data.txt")
	require.NoError(t, err)
	assert.Equal(t, "1 2", string(b))

	b, err = store.ReadFile(ctx, c, "/questions/addNumbers/./data.txt")
	require.NoError(t, err)
	assert.Equal(t, "1 2", string(b))

	_, err = store.ReadFile(ctx, c, "questions/addNumbers/missing.txt")
	assert.Equal(t, course.ErrFileNotFound, err)

	_, err = store.ReadFile(ctx, c, "../secret.txt")
	assert.Equal(t, course.ErrFileNotFound, err)
}

func TestNew(t *testing.T) {
	conf := &core.Config{Storage: core.StorageConfig{Type: "local", LocalPath: "courses"}}
	store, err := New(conf)
	require.NoError(t, err)
	assert.IsType(t, &localStore{}, store)

	conf.Storage = core.StorageConfig{Type: "minio", MinioEndpoint: "localhost:9000", MinioBucket: "courses"}
	store, err = New(conf)
	require.NoError(t, err)
	assert.IsType(t, &minioStore{}, store)

	conf.Storage.Type = "s3"
	_, err = New(conf)
	assert.Error(t, err)
}
