package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"PodcastStudio-admin/internal/config"
	"PodcastStudio-admin/internal/storage/nas"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

var audioExtensions = map[string]string{
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".opus": "audio/ogg",
	".flac": "audio/flac",
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".webm": "audio/webm",
}

// Media is a fetched audio payload ready for transcription.
type Media struct {
	Data     []byte
	MIMEType string
	Source   string
}

// MediaFetcher turns an episode media locator into audio bytes.
type MediaFetcher interface {
	FetchMedia(ctx context.Context, locator string) (*Media, error)
}

// MediaResolver resolves direct files, hosting pages and nas:// locators into audio.
type MediaResolver struct {
	cfg        config.ResolverConfig
	storage    MediaStorage
	httpClient *http.Client
	extractors []AudioExtractor
}

// NewMediaResolver creates a resolver. httpClient may be nil; timeouts come from cfg per request.
func NewMediaResolver(cfg config.ResolverConfig, storage MediaStorage, httpClient *http.Client) (*MediaResolver, error) {
	if storage == nil {
		return nil, fmt.Errorf("MediaResolver: MediaStorage must not be nil")
	}
	if httpClient == nil {
		httpClient = &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		}
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 15 * time.Second
	}
	if cfg.PageTimeout <= 0 {
		cfg.PageTimeout = 15 * time.Second
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 120 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	return &MediaResolver{cfg: cfg, storage: storage, httpClient: httpClient, extractors: DefaultAudioExtractors()}, nil
}

// FetchMedia returns the audio bytes behind locator.
func (r *MediaResolver) FetchMedia(ctx context.Context, locator string) (*Media, error) {
	locator = strings.TrimSpace(locator)
	if locator == "" {
		return nil, &ResolutionError{Locator: locator, Message: "episode has no media locator"}
	}
	if nas.IsLocator(locator) {
		data, err := r.storage.ReadMedia(nas.RelativePath(locator))
		if err != nil {
			return nil, &ResolutionError{Locator: locator, Message: "reading internal media", Cause: err}
		}
		return &Media{Data: data, MIMEType: MIMETypeFor(locator, ""), Source: locator}, nil
	}

	resolved, err := r.Resolve(ctx, locator)
	if err != nil {
		return nil, err
	}
	return r.download(ctx, resolved)
}

// Resolve returns a direct audio URL for locator, or locator unchanged when nothing could be extracted.
func (r *MediaResolver) Resolve(ctx context.Context, locator string) (string, error) {
	u, err := url.Parse(locator)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", &ResolutionError{Locator: locator, Message: "unsupported media locator"}
	}
	if hasAudioExtension(u.Path) {
		return locator, nil
	}
	if r.probeIsAudio(ctx, locator) {
		return locator, nil
	}

	page, err := r.fetchPage(ctx, u)
	if err != nil {
		log.Printf("WARN: [MediaResolver] fetching hosting page %s failed, using locator as-is: %v\n", locator, err)
		return locator, nil
	}
	if found, name, ok := runExtractors(r.extractors, page); ok {
		log.Printf("INFO: [MediaResolver] %s -> %s (via %s)\n", locator, found, name)
		return found, nil
	}
	log.Printf("WARN: [MediaResolver] no audio URL found on %s, using locator as-is\n", locator)
	return locator, nil
}

func hasAudioExtension(p string) bool {
	_, ok := audioExtensions[strings.ToLower(path.Ext(p))]
	return ok
}

func isAudioContentType(ct string) bool {
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(ct))
	}
	return strings.HasPrefix(mediaType, "audio/") || strings.HasPrefix(mediaType, "video/") || mediaType == "application/octet-stream"
}

func isHTMLContentType(ct string) bool {
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		mediaType = strings.ToLower(ct)
	}
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// MIMETypeFor picks a transcription MIME type from a content-type header or the file extension.
func MIMETypeFor(locator string, contentType string) string {
	if contentType != "" && isAudioContentType(contentType) {
		if mediaType, _, err := mime.ParseMediaType(contentType); err == nil && mediaType != "application/octet-stream" {
			return mediaType
		}
	}
	p := locator
	if u, err := url.Parse(locator); err == nil && u.Path != "" {
		p = u.Path
	}
	if m, ok := audioExtensions[strings.ToLower(path.Ext(p))]; ok {
		return m
	}
	return "audio/mpeg"
}

func (r *MediaResolver) newRequest(ctx context.Context, method, target string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", r.cfg.UserAgent)
	req.Header.Set("Accept", "audio/*,text/html;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	return req, nil
}

func (r *MediaResolver) probeIsAudio(ctx context.Context, target string) bool {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ProbeTimeout)
	defer cancel()
	req, err := r.newRequest(ctx, http.MethodHead, target)
	if err != nil {
		return false
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		log.Printf("WARN: [MediaResolver] probe %s failed: %v\n", target, err)
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 400 && isAudioContentType(resp.Header.Get("Content-Type"))
}

func (r *MediaResolver) fetchPage(ctx context.Context, u *url.URL) (*HostingPage, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.PageTimeout)
	defer cancel()
	req, err := r.newRequest(ctx, http.MethodGet, u.String())
	if err != nil {
		return nil, err
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{URL: u.String(), Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, &FetchError{URL: u.String(), StatusCode: resp.StatusCode, Message: "unexpected status"}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, &FetchError{URL: u.String(), Message: "reading page body", Cause: err}
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML of %s: %w", u, err)
	}
	return &HostingPage{URL: resp.Request.URL, Raw: string(body), Doc: doc}, nil
}

func (r *MediaResolver) download(ctx context.Context, target string) (*Media, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.FetchTimeout)
	defer cancel()
	req, err := r.newRequest(ctx, http.MethodGet, target)
	if err != nil {
		return nil, &ResolutionError{Locator: target, Message: "building request", Cause: err}
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &FetchError{URL: target, Message: fmt.Sprintf("timed out after %s", r.cfg.FetchTimeout), Cause: err}
		}
		return nil, &FetchError{URL: target, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, &FetchError{URL: target, StatusCode: resp.StatusCode, Message: "unexpected status"}
	}
	contentType := resp.Header.Get("Content-Type")
	if isHTMLContentType(contentType) {
		return nil, &ResolutionError{Locator: target, Message: "URL resolved to a page, not audio"}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: target, Message: "reading audio body", Cause: err}
	}
	if len(data) == 0 {
		return nil, &ResolutionError{Locator: target, Message: "audio response was empty"}
	}
	log.Printf("INFO: [MediaResolver] downloaded %d bytes from %s (%s)\n", len(data), target, contentType)
	return &Media{Data: data, MIMEType: MIMETypeFor(resp.Request.URL.String(), contentType), Source: target}, nil
}
