package fileutil

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReader(t *testing.T) {
	dir, err := ioutil.TempDir("", "")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "foo")
	err = ioutil.WriteFile(path, nil, 0777)
	require.NoError(t, err)

	f, err := NewReader(path)
	require.NoError(t, err)
	defer f.Close()
	assert.IsType(t, &os.File{}, f)

	g, err := NewReader(filepath.Join(dir, "bar"))
	assert.Error(t, err)
	assert.Nil(t, g)
}

func TestListDir(t *testing.T) {
	dir, err := ioutil.TempDir("", "")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	for _, name := range []string{"b", "a", "c"} {
		require.NoError(t, ioutil.WriteFile(filepath.Join(dir, name), []byte(name), 0666))
	}

	paths, err := ListDir(dir)
	require.NoError(t, err)
	require.Len(t, paths, 3)
	for _, p := range paths {
		assert.Equal(t, dir, filepath.Dir(p))
	}
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "a/b/c", Join("a", "b", "c"))
	assert.Equal(t, "/a/b/c", Join("/a", "b", "c"))
	assert.Equal(t, "s3://bucket/path/part", Join("s3://bucket", "path", "part"))
	assert.Equal(t, "s3://bucket/path/part", Join("s3://", "bucket", "path/part"))
}
