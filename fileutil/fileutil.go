package fileutil

import (
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/witml/witbuild/awsutil"
)

// NewReader opens a local or remote path for reading. If the path looks like
// "s3://bucket/path/to/object" then this will read an object from S3; http(s)
// URLs are fetched over the network. Otherwise the path is read from the
// local filesystem.
func NewReader(path string) (io.ReadCloser, error) {
	if awsutil.IsS3URI(path) {
		return awsutil.NewS3Reader(path)
	}

	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		resp, err := http.Get(path)
		if err != nil {
			return nil, fmt.Errorf("error getting %s: %s", path, err)
		}
		if resp.StatusCode != http.StatusOK {
			defer resp.Body.Close()
			io.Copy(ioutil.Discard, resp.Body)
			return nil, fmt.Errorf("error getting %s: status code %d", path, resp.StatusCode)
		}
		return resp.Body, nil
	}

	return os.Open(path)
}

// NamedWriteCloser is a file-like object extending io.WriteCloser with a
// string Name() similar to os.File.Name()
type NamedWriteCloser interface {
	io.WriteCloser
	Name() string
}

// NewBufferedWriter opens a local or remote path for writing. If the path
// starts with "s3://", this writes to a local buffer, copying to s3 on close.
// Otherwise this writes to the local FS.
func NewBufferedWriter(path string) (NamedWriteCloser, error) {
	return NewBufferedWriterWithTmp(path, "")
}

// NewBufferedWriterWithTmp is the same as NewBufferedWriter but uses the
// specified tmp dir for the intermediate buffer if the output goes to s3.
func NewBufferedWriterWithTmp(path, tmpDir string) (NamedWriteCloser, error) {
	if awsutil.IsS3URI(path) {
		if tmpDir == "" {
			return awsutil.NewBufferedS3Writer(path)
		}
		return awsutil.NewBufferedS3WriterWithTmp(tmpDir, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return os.Create(path)
}

// ReadFile reads the contents of a local or remote path.
func ReadFile(path string) ([]byte, error) {
	r, err := NewReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return ioutil.ReadAll(r)
}

// ListDir returns the fully qualified names for the members of the provided
// directory. For local directories these are paths; for s3 directories these
// are s3 uris. The results are intended to be used with NewReader.
func ListDir(path string) ([]string, error) {
	if awsutil.IsS3URI(path) {
		trimmed := strings.TrimPrefix(path, "s3://")

		parts := strings.Split(trimmed, "/")
		bucket := parts[0]
		prefix := strings.Join(parts[1:], "/")

		keys, err := awsutil.S3ListObjects(Region, bucket, prefix)
		if err != nil {
			return nil, fmt.Errorf("error reading from s3 path %s: %v", path, err)
		}

		var paths []string
		for _, key := range keys {
			paths = append(paths, Join("s3://", bucket, key))
		}
		return paths, nil
	}

	entries, err := ioutil.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("error reading dir %s: %v", path, err)
	}

	var paths []string
	for _, entry := range entries {
		paths = append(paths, Join(path, entry.Name()))
	}
	return paths, nil
}
