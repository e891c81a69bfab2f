package handlers

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PodcastStudio-admin/internal/config"
	"PodcastStudio-admin/internal/storage/nas"
)

type deniedLocator struct{}

func (deniedLocator) AbsolutePath(string) (string, error) {
	return "", errors.New("media path escapes the media root")
}

func TestMediaHandler(t *testing.T) {
	storage, err := nas.NewFileSystemStorage(config.NASConfig{MediaPath: t.TempDir()})
	require.NoError(t, err)
	locator, err := storage.SaveMedia("ep-1", "audio.mp3", []byte("ID3-audio-bytes"))
	require.NoError(t, err)

	handler := http.StripPrefix("/media/", NewMediaHandler(storage))
	get := func(h http.Handler, path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	rec := get(handler, "/media/"+nas.RelativePath(locator))
	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Equal(t, "ID3-audio-bytes", string(body))

	assert.Equal(t, http.StatusNotFound, get(handler, "/media/2020/01/01/ep-1/missing.mp3").Code)
	assert.Equal(t, http.StatusBadRequest, get(handler, "/media/2020/01/").Code)
	assert.Equal(t, http.StatusForbidden, get(http.StripPrefix("/media/", NewMediaHandler(deniedLocator{})), "/media/x.mp3").Code)
}
