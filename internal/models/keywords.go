package models

// KeywordInsight is one ranked keyword from the analyzer.
type KeywordInsight struct {
	Keyword        string `json:"keyword"`
	Relevance      int    `json:"relevance"`
	TrendingScore  int    `json:"trending_score"`
	SearchIntent   string `json:"search_intent"`
	Competition    string `json:"competition"`
	Recommendation string `json:"recommendation"`
}

// TopicCluster groups related keywords under a topic.
type TopicCluster struct {
	Topic    string   `json:"topic"`
	Keywords []string `json:"keywords"`
}

// KeywordAnalysis is the serialized payload stored on Episode.KeywordAnalysis.
type KeywordAnalysis struct {
	TopKeywords              []KeywordInsight `json:"top_keywords"`
	LongTailPhrases          []string         `json:"long_tail_phrases"`
	TopicClusters            []TopicCluster   `json:"topic_clusters"`
	OptimizationTips         []string         `json:"optimization_tips"`
	SuggestedTitle           string           `json:"suggested_title"`
	SuggestedMetaDescription string           `json:"suggested_meta_description"`
}

// Keywords returns the keyword strings in rank order, at most limit (0 means all).
func (k *KeywordAnalysis) Keywords(limit int) []string {
	if k == nil {
		return nil
	}
	out := make([]string, 0, len(k.TopKeywords))
	for _, kw := range k.TopKeywords {
		if kw.Keyword == "" {
			continue
		}
		out = append(out, kw.Keyword)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
