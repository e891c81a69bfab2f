package services

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// truncateRunes cuts s to at most max runes, appending a marker when it had to cut.
func truncateRunes(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "\n[transcript truncated]"
}

// firstNChars is used for log lines only.
func firstNChars(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

// episodeContext renders the shared header every prompt starts with.
func episodeContext(episodeTitle, podcastTitle string, keywords []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Episode title: %s\n", episodeTitle)
	if podcastTitle != "" {
		fmt.Fprintf(&sb, "Show: %s\n", podcastTitle)
	}
	if len(keywords) > 0 {
		fmt.Fprintf(&sb, "Trending keywords to weave in naturally: %s\n", strings.Join(keywords, ", "))
	}
	return sb.String()
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

const keywordPromptTemplate = `You are an SEO strategist for a podcast network.
Analyze the transcript below and return ONLY a JSON object with this shape:
{
  "top_keywords": [{"keyword": "", "relevance": 1-100, "trending_score": 1-100, "search_intent": "informational|navigational|commercial|transactional", "competition": "low|medium|high", "recommendation": ""}],
  "long_tail_phrases": [""],
  "topic_clusters": [{"topic": "", "keywords": [""]}],
  "optimization_tips": [""],
  "suggested_title": "",
  "suggested_meta_description": ""
}
Return 8-15 top keywords ordered by relevance.

%s
Transcript:
%s`

func buildKeywordPrompt(episodeTitle, podcastTitle, transcript string) string {
	return fmt.Sprintf(keywordPromptTemplate, episodeContext(episodeTitle, podcastTitle, nil), transcript)
}
