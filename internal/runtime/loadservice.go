package runtime

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/javi11/apphost/pkg/osfs"
)

// Source is a script loaded by a runtime.
type Source struct {
	Path    string
	URL     string
	Content []byte
	ModTime time.Time
}

// LoadService resolves script names against a runtime's load path and caches their
// content.
type LoadService struct {
	base      string
	loadPaths []string
	fs        osfs.FileSystem
	cache     *lru.Cache[string, *Source]
}

func NewLoadService(base string, loadPaths []string, fs osfs.FileSystem, cacheSize int) (*LoadService, error) {
	cache, err := lru.New[string, *Source](cacheSize)
	if err != nil {
		return nil, err
	}

	return &LoadService{
		base:      base,
		loadPaths: loadPaths,
		fs:        fs,
		cache:     cache,
	}, nil
}

// MakeURL joins path onto base. Plain filesystem bases get a "file:" scheme, "vfs:" bases
// keep theirs.
func (l *LoadService) MakeURL(base, name string) string {
	base = strings.TrimSuffix(base, "/")
	name = strings.TrimPrefix(name, "/")

	if strings.HasPrefix(base, "vfs:") || strings.HasPrefix(base, "file:") {
		return base + "/" + name
	}

	return "file:" + base + "/" + name
}

// Resolve returns the local path and URL of the first load path entry containing name.
// Absolute names are checked as they are.
func (l *LoadService) Resolve(name string) (string, string, error) {
	localName, url, _, err := l.lookup(name)
	return localName, url, err
}

// Load resolves name and returns its content, from cache when the file did not change.
func (l *LoadService) Load(name string) (*Source, error) {
	localName, url, info, err := l.lookup(name)
	if err != nil {
		return nil, err
	}

	if cached, ok := l.cache.Get(localName); ok && cached.ModTime.Equal(info.ModTime()) {
		return cached, nil
	}

	content, err := l.fs.ReadFile(localName)
	if err != nil {
		return nil, err
	}

	src := &Source{
		Path:    localName,
		URL:     url,
		Content: content,
		ModTime: info.ModTime(),
	}
	l.cache.Add(localName, src)

	return src, nil
}

func (l *LoadService) Purge() {
	l.cache.Purge()
}

func (l *LoadService) Len() int {
	return l.cache.Len()
}

func (l *LoadService) searchPath() []string {
	dirs := []string{l.base}
	for _, p := range l.loadPaths {
		if path.IsAbs(localPath(p)) {
			dirs = append(dirs, p)
			continue
		}
		dirs = append(dirs, strings.TrimSuffix(l.base, "/")+"/"+p)
	}

	return dirs
}

func (l *LoadService) lookup(name string) (string, string, fs.FileInfo, error) {
	if path.IsAbs(name) {
		info, err := l.file(name)
		if err != nil {
			return "", "", nil, err
		}
		return name, "file:" + name, info, nil
	}

	for _, dir := range l.searchPath() {
		candidate := path.Join(localPath(dir), name)
		info, err := l.file(candidate)
		if err == nil {
			return candidate, l.MakeURL(dir, name), info, nil
		}
		if errors.Is(err, ErrScriptNotFound) || l.fs.IsNotExist(err) {
			continue
		}
		return "", "", nil, err
	}

	return "", "", nil, fmt.Errorf("%s: %w", name, ErrScriptNotFound)
}

func (l *LoadService) file(name string) (fs.FileInfo, error) {
	info, err := l.fs.Stat(name)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory: %w", name, ErrScriptNotFound)
	}

	return info, nil
}

func localPath(p string) string {
	p = strings.TrimPrefix(p, "vfs:")
	return strings.TrimPrefix(p, "file:")
}
