package coursefiles

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"

	"github.com/jgfoster/PrairieLearn/core"
	"github.com/jgfoster/PrairieLearn/core/course"
)

// New returns the file store selected by conf.Storage.Type.
func New(conf *core.Config) (course.FileStore, error) {
	switch conf.Storage.Type {
	case "", "local":
		return NewLocalStore(conf.Storage.LocalPath), nil
	case "minio":
		return NewMinioStore(conf.Storage)
	default:
		return nil, errors.Errorf("unknown storage type %q", conf.Storage.Type)
	}
}

// cleanPath joins the course root and a relative path, refusing paths that escape the root.
func cleanPath(root, rel string) (string, error) {
	rel = filepath.ToSlash(rel)
	for _, seg := range strings.Split(rel, "/") {
		if seg == ".." {
			return "", course.ErrFileNotFound
		}
	}
	return path.Join(root, strings.TrimPrefix(path.Clean("/"+rel), "/")), nil
}

type localStore struct {
	dir string
}

var _ course.FileStore = (*localStore)(nil) // interface compliance check

// NewLocalStore reads course content from dir/<course path>.
func NewLocalStore(dir string) course.FileStore {
	return &localStore{dir: dir}
}

func (s *localStore) ReadFile(_ context.Context, c course.Course, rel string) ([]byte, error) {
	p, err := cleanPath(c.Path, rel)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(filepath.Join(s.dir, filepath.FromSlash(p)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, course.ErrFileNotFound
		}
		return nil, errors.Wrapf(err, "reading %s", p)
	}
	return b, nil
}

type minioStore struct {
	client *minio.Client
	bucket string
}

var _ course.FileStore = (*minioStore)(nil) // interface compliance check

// NewMinioStore reads course content from objects keyed <course path>/<path>.
func NewMinioStore(conf core.StorageConfig) (course.FileStore, error) {
	client, err := minio.New(conf.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(conf.MinioAccessKey, conf.MinioSecretKey, ""),
		Secure: conf.MinioUseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating minio client")
	}
	return &minioStore{client: client, bucket: conf.MinioBucket}, nil
}

func (s *minioStore) ReadFile(ctx context.Context, c course.Course, rel string) ([]byte, error) {
	key, err := cleanPath(c.Path, rel)
	if err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, "getting object %s", key)
	}
	defer obj.Close()

	b, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, course.ErrFileNotFound
		}
		return nil, errors.Wrapf(err, "reading object %s", key)
	}
	return b, nil
}
