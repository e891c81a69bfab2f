package nas

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"PodcastStudio-admin/internal/config"
)

// Scheme prefixes media locators that live in this storage.
const Scheme = "nas://"

// IsLocator reports whether locator points into the object storage.
func IsLocator(locator string) bool {
	return strings.HasPrefix(locator, Scheme)
}

// RelativePath strips the scheme from a nas:// locator.
func RelativePath(locator string) string {
	return strings.TrimPrefix(locator, Scheme)
}

// FileSystemStorage keeps episode media under a root directory (a mounted NAS share in production).
type FileSystemStorage struct {
	basePath string
}

// NewFileSystemStorage creates the storage, creating the root directory if it is missing.
func NewFileSystemStorage(nasCfg config.NASConfig) (*FileSystemStorage, error) {
	if nasCfg.MediaPath == "" {
		return nil, fmt.Errorf("nas.mediaPath must not be empty")
	}

	absBasePath, err := filepath.Abs(nasCfg.MediaPath)
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path of nas.mediaPath '%s': %w", nasCfg.MediaPath, err)
	}

	if _, err := os.Stat(absBasePath); os.IsNotExist(err) {
		log.Printf("INFO: [NAS] media root '%s' does not exist, creating it...", absBasePath)
		if err := os.MkdirAll(absBasePath, 0o755); err != nil {
			return nil, fmt.Errorf("creating media root '%s': %w", absBasePath, err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("checking media root '%s': %w", absBasePath, err)
	}

	log.Printf("INFO: [NAS] FileSystemStorage ready, media root: %s", absBasePath)
	return &FileSystemStorage{basePath: absBasePath}, nil
}

// BasePath is the absolute media root, used by the HTTP media handler.
func (fs *FileSystemStorage) BasePath() string {
	return fs.basePath
}

// resolve joins relativePath onto the root and refuses paths that escape it.
func (fs *FileSystemStorage) resolve(relativePath string) (string, error) {
	if relativePath == "" {
		return "", fmt.Errorf("media path must not be empty")
	}
	absPath := filepath.Join(fs.basePath, filepath.Clean("/"+relativePath))
	if absPath != fs.basePath && !strings.HasPrefix(absPath, fs.basePath+string(filepath.Separator)) {
		return "", fmt.Errorf("media path '%s' escapes the media root", relativePath)
	}
	return absPath, nil
}

// SaveMedia writes data under <root>/<yyyy/mm/dd>/<episodeID>/<fileName> and returns a nas:// locator.
func (fs *FileSystemStorage) SaveMedia(episodeID string, fileName string, data []byte) (string, error) {
	if episodeID == "" || fileName == "" {
		return "", fmt.Errorf("SaveMedia requires episodeID and fileName")
	}
	if len(data) == 0 {
		return "", fmt.Errorf("SaveMedia data must not be empty")
	}

	relativePath := filepath.ToSlash(filepath.Join(time.Now().Format("2006/01/02"), filepath.Base(episodeID), filepath.Base(fileName)))
	targetPath, err := fs.resolve(relativePath)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(targetPath), 0o755); err != nil {
		return "", fmt.Errorf("creating directory '%s': %w", filepath.Dir(targetPath), err)
	}
	if err := os.WriteFile(targetPath, data, 0o644); err != nil {
		return "", fmt.Errorf("writing media file '%s': %w", targetPath, err)
	}
	log.Printf("INFO: [NAS] saved %d bytes to '%s'", len(data), targetPath)
	return Scheme + relativePath, nil
}

// AbsolutePath returns the absolute path of a stored file, checking that it exists.
func (fs *FileSystemStorage) AbsolutePath(relativePath string) (string, error) {
	absPath, err := fs.resolve(relativePath)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(absPath); err != nil {
		return "", fmt.Errorf("media file '%s': %w", relativePath, err)
	}
	return absPath, nil
}

// ReadMedia reads a stored file. relativePath may carry the nas:// scheme.
func (fs *FileSystemStorage) ReadMedia(relativePath string) ([]byte, error) {
	absolutePath, err := fs.AbsolutePath(RelativePath(relativePath))
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(absolutePath)
	if err != nil {
		return nil, fmt.Errorf("reading media file '%s': %w", absolutePath, err)
	}
	log.Printf("INFO: [NAS] read %d bytes from '%s'", len(data), absolutePath)
	return data, nil
}
