package services

import (
	"encoding/json"
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// HostingPage is a fetched landing page, parsed once and shared by every extractor.
type HostingPage struct {
	URL *url.URL
	Raw string
	Doc *goquery.Document
}

// AudioExtractor is one heuristic for finding a direct audio URL in a hosting page.
type AudioExtractor struct {
	Name    string
	Extract func(page *HostingPage) (string, bool)
}

// DefaultAudioExtractors returns the extractors in priority order. First match wins.
func DefaultAudioExtractors() []AudioExtractor {
	return []AudioExtractor{
		{Name: "script-audioUrl", Extract: extractScriptAudioURL},
		{Name: "quoted-mp3", Extract: extractQuotedMP3},
		{Name: "cdn-pattern", Extract: extractCDNPattern},
		{Name: "audio-tag", Extract: extractAudioTag},
	}
}

var audioURLField = regexp.MustCompile(`"audioUrl"\s*:\s*"((?:[^"\\]|\\.)+)"`)

// extractScriptAudioURL looks for an "audioUrl" field in inline script data (Next.js, Apollo state, JSON-LD).
func extractScriptAudioURL(page *HostingPage) (string, bool) {
	var found string
	page.Doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		m := audioURLField.FindStringSubmatch(s.Text())
		if m == nil {
			return true
		}
		var decoded string
		if err := json.Unmarshal([]byte(`"`+m[1]+`"`), &decoded); err != nil {
			decoded = strings.ReplaceAll(m[1], `\/`, `/`)
		}
		if decoded != "" {
			found = decoded
			return false
		}
		return true
	})
	return found, found != ""
}

var quotedMP3 = regexp.MustCompile(`["'](https?://[^"'\s<>]+?\.mp3(?:\?[^"'\s<>]*)?)["']`)

func extractQuotedMP3(page *HostingPage) (string, bool) {
	m := quotedMP3.FindStringSubmatch(page.Raw)
	if m == nil {
		return "", false
	}
	return m[1], true
}

const urlTail = `[^"'\s<>\\]+`

// Enclosure URL shapes used by common podcast hosts and analytics prefixes.
var cdnPatterns = []*regexp.Regexp{
	regexp.MustCompile(`https?://(?:www\.)?traffic\.megaphone\.fm/` + urlTail),
	regexp.MustCompile(`https?://anchor\.fm/s/[^/"'\s<>]+/podcast/play/` + urlTail),
	regexp.MustCompile(`https?://[a-z0-9.-]+\.cloudfront\.net/[^"'\s<>\\]+\.(?:mp3|m4a|aac|ogg)(?:\?[^"'\s<>\\]*)?`),
	regexp.MustCompile(`https?://(?:cdn|injector)\.simplecast\.com/` + urlTail),
	regexp.MustCompile(`https?://(?:dts\.|www\.)?podtrac\.com/pts/redirect\.(?:mp3|m4a)/` + urlTail),
	regexp.MustCompile(`https?://chrt\.fm/track/` + urlTail),
	regexp.MustCompile(`https?://(?:media|cdn)\.transistor\.fm/` + urlTail),
	regexp.MustCompile(`https?://(?:www\.)?buzzsprout\.com/\d+/\d+[^"'\s<>\\]*\.mp3(?:\?[^"'\s<>\\]*)?`),
	regexp.MustCompile(`https?://(?:api|dts-api)\.spreaker\.com/(?:download/)?episode/\d+/` + urlTail),
}

func extractCDNPattern(page *HostingPage) (string, bool) {
	for _, re := range cdnPatterns {
		if m := re.FindString(page.Raw); m != "" {
			return m, true
		}
	}
	return "", false
}

// extractAudioTag reads og:audio metadata and <audio>/<source> elements, resolving relative URLs.
func extractAudioTag(page *HostingPage) (string, bool) {
	candidates := []string{}
	page.Doc.Find(`meta[property="og:audio"], meta[property="og:audio:url"], meta[property="og:audio:secure_url"]`).Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr("content"); ok {
			candidates = append(candidates, v)
		}
	})
	page.Doc.Find("audio[src], audio source[src], source[type^='audio']").Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr("src"); ok {
			candidates = append(candidates, v)
		}
	})
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		ref, err := url.Parse(c)
		if err != nil {
			continue
		}
		if page.URL != nil {
			ref = page.URL.ResolveReference(ref)
		}
		if ref.Scheme == "http" || ref.Scheme == "https" {
			return ref.String(), true
		}
	}
	return "", false
}

// runExtractors tries each extractor in order and returns the first unescaped match.
func runExtractors(extractors []AudioExtractor, page *HostingPage) (string, string, bool) {
	for _, ex := range extractors {
		if u, ok := ex.Extract(page); ok {
			return html.UnescapeString(u), ex.Name, true
		}
	}
	return "", "", false
}
