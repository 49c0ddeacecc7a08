package runtime

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/javi11/apphost/pkg/osfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFileInfo struct {
	name    string
	dir     bool
	modTime time.Time
}

func (f fakeFileInfo) Name() string       { return f.name }
func (f fakeFileInfo) Size() int64        { return 0 }
func (f fakeFileInfo) Mode() fs.FileMode  { return 0o644 }
func (f fakeFileInfo) ModTime() time.Time { return f.modTime }
func (f fakeFileInfo) IsDir() bool        { return f.dir }
func (f fakeFileInfo) Sys() interface{}   { return nil }

func TestLoadService_MakeURL(t *testing.T) {
	loader, err := NewLoadService("/", nil, osfs.New(), 1)
	require.NoError(t, err)

	path := "app/controllers/foo_controller.rb"

	t.Run("non vfs base without slash", func(t *testing.T) {
		assert.Equal(t, "file:/Users/bob/myapp/app/controllers/foo_controller.rb", loader.MakeURL("/Users/bob/myapp", path))
	})

	t.Run("non vfs base with slash", func(t *testing.T) {
		assert.Equal(t, "file:/Users/bob/myapp/app/controllers/foo_controller.rb", loader.MakeURL("/Users/bob/myapp/", path))
	})

	t.Run("vfs base without slash", func(t *testing.T) {
		assert.Equal(t, "vfs:/Users/bob/myapp/app/controllers/foo_controller.rb", loader.MakeURL("vfs:/Users/bob/myapp", path))
	})

	t.Run("vfs base with slash", func(t *testing.T) {
		assert.Equal(t, "vfs:/Users/bob/myapp/app/controllers/foo_controller.rb", loader.MakeURL("vfs:/Users/bob/myapp/", path))
	})
}

func TestLoadService_Load(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	t.Run("searches the load path and caches the content", func(t *testing.T) {
		mockFs := osfs.NewMockFileSystem(ctrl)
		loader, err := NewLoadService("/srv/app", []string{"lib"}, mockFs, 10)
		require.NoError(t, err)

		modTime := time.Now()
		mockFs.EXPECT().Stat("/srv/app/hello.sh").Return(nil, os.ErrNotExist).Times(2)
		mockFs.EXPECT().IsNotExist(os.ErrNotExist).Return(true).Times(2)
		mockFs.EXPECT().Stat("/srv/app/lib/hello.sh").Return(fakeFileInfo{name: "hello.sh", modTime: modTime}, nil).Times(2)
		mockFs.EXPECT().ReadFile("/srv/app/lib/hello.sh").Return([]byte("echo hello"), nil).Times(1)

		src, err := loader.Load("hello.sh")
		require.NoError(t, err)
		assert.Equal(t, "/srv/app/lib/hello.sh", src.Path)
		assert.Equal(t, "file:/srv/app/lib/hello.sh", src.URL)
		assert.Equal(t, []byte("echo hello"), src.Content)

		cached, err := loader.Load("hello.sh")
		require.NoError(t, err)
		assert.Same(t, src, cached)
		assert.Equal(t, 1, loader.Len())
	})

	t.Run("reloads a modified file", func(t *testing.T) {
		mockFs := osfs.NewMockFileSystem(ctrl)
		loader, err := NewLoadService("/srv/app", nil, mockFs, 10)
		require.NoError(t, err)

		first := time.Now()
		gomock.InOrder(
			mockFs.EXPECT().Stat("/srv/app/job.sh").Return(fakeFileInfo{name: "job.sh", modTime: first}, nil),
			mockFs.EXPECT().ReadFile("/srv/app/job.sh").Return([]byte("v1"), nil),
			mockFs.EXPECT().Stat("/srv/app/job.sh").Return(fakeFileInfo{name: "job.sh", modTime: first.Add(time.Second)}, nil),
			mockFs.EXPECT().ReadFile("/srv/app/job.sh").Return([]byte("v2"), nil),
		)

		src, err := loader.Load("job.sh")
		require.NoError(t, err)
		assert.Equal(t, []byte("v1"), src.Content)

		src, err = loader.Load("job.sh")
		require.NoError(t, err)
		assert.Equal(t, []byte("v2"), src.Content)
	})

	t.Run("skips directories", func(t *testing.T) {
		mockFs := osfs.NewMockFileSystem(ctrl)
		loader, err := NewLoadService("/srv/app", []string{"/opt/lib"}, mockFs, 10)
		require.NoError(t, err)

		mockFs.EXPECT().Stat("/srv/app/tasks").Return(fakeFileInfo{name: "tasks", dir: true}, nil)
		mockFs.EXPECT().Stat("/opt/lib/tasks").Return(nil, os.ErrNotExist)
		mockFs.EXPECT().IsNotExist(os.ErrNotExist).Return(true)

		_, err = loader.Load("tasks")
		assert.ErrorIs(t, err, ErrScriptNotFound)
	})

	t.Run("propagates unexpected errors", func(t *testing.T) {
		mockFs := osfs.NewMockFileSystem(ctrl)
		loader, err := NewLoadService("/srv/app", nil, mockFs, 10)
		require.NoError(t, err)

		mockFs.EXPECT().Stat("/srv/app/job.sh").Return(nil, os.ErrPermission)
		mockFs.EXPECT().IsNotExist(os.ErrPermission).Return(false)

		_, err = loader.Load("job.sh")
		assert.ErrorIs(t, err, os.ErrPermission)
	})
}

func TestLoadService_Resolve(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "lib"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "lib", "util.sh"), []byte("true"), 0o644))

	loader, err := NewLoadService(root, []string{"lib"}, osfs.New(), 10)
	require.NoError(t, err)

	local, url, err := loader.Resolve("util.sh")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "lib", "util.sh"), local)
	assert.Equal(t, "file:"+filepath.Join(root, "lib", "util.sh"), url)

	local, _, err = loader.Resolve(filepath.Join(root, "lib", "util.sh"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "lib", "util.sh"), local)

	_, _, err = loader.Resolve("missing.sh")
	assert.ErrorIs(t, err, ErrScriptNotFound)
}
