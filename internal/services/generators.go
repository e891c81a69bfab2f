package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"PodcastStudio-admin/internal/completion"
	"PodcastStudio-admin/internal/models"
)

// GenerationInput is what every generator receives for one episode.
type GenerationInput struct {
	EpisodeID    string
	JobID        string
	Transcript   string
	EpisodeTitle string
	PodcastTitle string
	Keywords     []string
	BrandVoice   string
}

// GeneratedOutput is one record to persist. Clip is set only for parsed clip suggestions.
type GeneratedOutput struct {
	Piece *models.ContentPiece
	Clip  *models.ClipAsset
}

// Generator produces derivative content of one type. It does not persist anything.
type Generator interface {
	Type() models.ContentType
	Generate(ctx context.Context, in GenerationInput) ([]GeneratedOutput, error)
}

// DefaultGenerators returns one generator per content type.
func DefaultGenerators(llm TextGenerator) map[models.ContentType]Generator {
	return map[models.ContentType]Generator{
		models.ContentArticle:    &longFormGenerator{llm: llm, contentType: models.ContentArticle, brief: articleBrief},
		models.ContentBlog:       &longFormGenerator{llm: llm, contentType: models.ContentBlog, brief: blogBrief},
		models.ContentNewsletter: &longFormGenerator{llm: llm, contentType: models.ContentNewsletter, brief: newsletterBrief},
		models.ContentSocial:     &socialGenerator{llm: llm},
		models.ContentClip:       &clipGenerator{llm: llm},
		models.ContentSEO:        &seoGenerator{llm: llm},
	}
}

func buildGenerationPrompt(in GenerationInput, brief string) string {
	var sb strings.Builder
	if in.BrandVoice != "" {
		sb.WriteString(in.BrandVoice)
		sb.WriteString("\n\n")
	}
	sb.WriteString(brief)
	sb.WriteString("\n\n")
	sb.WriteString(episodeContext(in.EpisodeTitle, in.PodcastTitle, in.Keywords))
	sb.WriteString("\nTranscript:\n")
	sb.WriteString(in.Transcript)
	return sb.String()
}

const articleBrief = `Write a long-form editorial article based on this podcast episode.
Return ONLY JSON: {"title": "", "description": "one-sentence summary", "body": "markdown article, 900-1400 words",
"seo_title": "<= 60 chars", "seo_description": "<= 155 chars", "seo_keywords": [""]}`

const blogBrief = `Write a conversational blog post recapping this podcast episode, with skimmable headings and key takeaways.
Return ONLY JSON: {"title": "", "description": "one-sentence summary", "body": "markdown, 600-900 words",
"seo_title": "<= 60 chars", "seo_description": "<= 155 chars", "seo_keywords": [""]}`

const newsletterBrief = `Write a newsletter blurb promoting this podcast episode to existing subscribers.
Return ONLY JSON: {"title": "email subject line", "description": "preview text", "body": "markdown, 150-250 words with a clear call to listen"}`

type longFormResponse struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Body           string   `json:"body"`
	SEOTitle       string   `json:"seo_title"`
	SEODescription string   `json:"seo_description"`
	SEOKeywords    []string `json:"seo_keywords"`
}

// longFormGenerator covers article, blog and newsletter: one piece per call.
type longFormGenerator struct {
	llm         TextGenerator
	contentType models.ContentType
	brief       string
}

func (g *longFormGenerator) Type() models.ContentType { return g.contentType }

func (g *longFormGenerator) Generate(ctx context.Context, in GenerationInput) ([]GeneratedOutput, error) {
	raw, err := g.llm.GenerateJSON(ctx, buildGenerationPrompt(in, g.brief))
	if err != nil {
		return nil, err
	}
	resp := completion.Decode[longFormResponse](raw).OrElse(func(raw string) longFormResponse {
		return longFormResponse{Body: strings.TrimSpace(raw)}
	})
	if strings.TrimSpace(resp.Body) == "" {
		return nil, fmt.Errorf("model returned an empty %s", g.contentType)
	}

	piece := models.NewGeneratedPiece(in.EpisodeID, in.JobID, g.contentType)
	piece.Title = firstNonEmpty(resp.Title, in.EpisodeTitle)
	piece.Body = resp.Body
	piece.Description = resp.Description
	piece.SEOTitle = resp.SEOTitle
	piece.SEODescription = resp.SEODescription
	piece.SEOKeywords = resp.SEOKeywords
	if g.contentType == models.ContentNewsletter {
		piece.Platform = models.NewNullString("email")
	}
	return []GeneratedOutput{{Piece: piece}}, nil
}

const socialBrief = `Write platform-native social posts promoting this podcast episode.
Return ONLY a JSON array of 3-6 objects: [{"platform": "x|linkedin|instagram|facebook|threads|tiktok", "text": "", "hashtags": [""]}].
Use each platform at most once and match its tone and length conventions.`

type socialPost struct {
	Platform string   `json:"platform"`
	Text     string   `json:"text"`
	Hashtags []string `json:"hashtags"`
}

// socialGenerator fans out one piece per post.
type socialGenerator struct {
	llm TextGenerator
}

func (g *socialGenerator) Type() models.ContentType { return models.ContentSocial }

func (g *socialGenerator) Generate(ctx context.Context, in GenerationInput) ([]GeneratedOutput, error) {
	raw, err := g.llm.GenerateJSON(ctx, buildGenerationPrompt(in, socialBrief))
	if err != nil {
		return nil, err
	}
	posts := completion.Decode[[]socialPost](raw).Value
	var outputs []GeneratedOutput
	for _, post := range posts {
		if strings.TrimSpace(post.Text) == "" {
			continue
		}
		piece := models.NewGeneratedPiece(in.EpisodeID, in.JobID, models.ContentSocial)
		platform := normalizePlatform(post.Platform)
		piece.Platform = models.NewNullString(platform)
		piece.Title = fmt.Sprintf("%s post: %s", platformLabel(platform), in.EpisodeTitle)
		piece.Body = mustJSON(post)
		piece.Description = firstNChars(post.Text, 140)
		outputs = append(outputs, GeneratedOutput{Piece: piece})
	}
	if len(outputs) > 0 {
		return outputs, nil
	}
	return rawFallback(in, models.ContentSocial, raw, "Social posts")
}

const clipBrief = `Suggest short-form video clips cut from this podcast episode.
Return ONLY a JSON array of 3-6 objects: [{"start_seconds": 0, "end_seconds": 0, "hook": "opening line on screen",
"transcript_excerpt": "", "viral_score": 1-100, "platform": "tiktok|youtube_shorts|instagram_reels", "caption": ""}].
Prefer 20-60 second moments with a strong hook, a controversial take or a surprising fact.`

type clipSuggestion struct {
	StartSeconds      float64 `json:"start_seconds"`
	EndSeconds        float64 `json:"end_seconds"`
	Hook              string  `json:"hook"`
	TranscriptExcerpt string  `json:"transcript_excerpt"`
	ViralScore        int     `json:"viral_score"`
	Platform          string  `json:"platform"`
	Caption           string  `json:"caption"`
}

// clipGenerator fans out one clip piece plus its ClipAsset companion per suggestion.
type clipGenerator struct {
	llm TextGenerator
}

func (g *clipGenerator) Type() models.ContentType { return models.ContentClip }

func (g *clipGenerator) Generate(ctx context.Context, in GenerationInput) ([]GeneratedOutput, error) {
	raw, err := g.llm.GenerateJSON(ctx, buildGenerationPrompt(in, clipBrief))
	if err != nil {
		return nil, err
	}
	suggestions := completion.Decode[[]clipSuggestion](raw).Value
	var outputs []GeneratedOutput
	for _, s := range suggestions {
		if strings.TrimSpace(s.Hook) == "" && strings.TrimSpace(s.TranscriptExcerpt) == "" {
			continue
		}
		if s.EndSeconds < s.StartSeconds {
			s.StartSeconds, s.EndSeconds = s.EndSeconds, s.StartSeconds
		}
		s.ViralScore = clampInt(s.ViralScore, 0, 100)
		platform := normalizePlatform(s.Platform)

		piece := models.NewGeneratedPiece(in.EpisodeID, in.JobID, models.ContentClip)
		piece.Platform = models.NewNullString(platform)
		piece.Title = firstNonEmpty(s.Hook, "Clip: "+in.EpisodeTitle)
		piece.Body = mustJSON(s)
		piece.Description = s.Caption
		clip := &models.ClipAsset{
			EpisodeID:         in.EpisodeID,
			StartSeconds:      s.StartSeconds,
			EndSeconds:        s.EndSeconds,
			HookText:          s.Hook,
			TranscriptExcerpt: s.TranscriptExcerpt,
			ViralScore:        s.ViralScore,
			Status:            models.ClipSuggested,
			TargetPlatform:    platform,
		}
		outputs = append(outputs, GeneratedOutput{Piece: piece, Clip: clip})
	}
	if len(outputs) > 0 {
		return outputs, nil
	}
	return rawFallback(in, models.ContentClip, raw, "Clip suggestions")
}

const seoBrief = `Build an SEO asset package for this podcast episode's show-notes page.
Return ONLY JSON: {"seo_title": "<= 60 chars", "meta_description": "<= 155 chars", "keywords": [""],
"backlink_targets": [{"site": "", "angle": "pitch angle for a guest post or mention"}], "faq": [{"question": "", "answer": ""}]}`

type seoPackage struct {
	SEOTitle        string   `json:"seo_title"`
	MetaDescription string   `json:"meta_description"`
	Keywords        []string `json:"keywords"`
	BacklinkTargets []struct {
		Site  string `json:"site"`
		Angle string `json:"angle"`
	} `json:"backlink_targets"`
	FAQ []struct {
		Question string `json:"question"`
		Answer   string `json:"answer"`
	} `json:"faq"`
}

type seoGenerator struct {
	llm TextGenerator
}

func (g *seoGenerator) Type() models.ContentType { return models.ContentSEO }

func (g *seoGenerator) Generate(ctx context.Context, in GenerationInput) ([]GeneratedOutput, error) {
	raw, err := g.llm.GenerateJSON(ctx, buildGenerationPrompt(in, seoBrief))
	if err != nil {
		return nil, err
	}
	out := completion.Decode[seoPackage](raw)
	if !out.Parsed {
		return rawFallback(in, models.ContentSEO, raw, "SEO package")
	}
	pkg := out.Value
	piece := models.NewGeneratedPiece(in.EpisodeID, in.JobID, models.ContentSEO)
	piece.Title = "SEO package: " + in.EpisodeTitle
	piece.Body = completion.CleanJSON(raw)
	piece.Description = fmt.Sprintf("%d keywords, %d backlink targets, %d FAQ entries", len(pkg.Keywords), len(pkg.BacklinkTargets), len(pkg.FAQ))
	piece.SEOTitle = pkg.SEOTitle
	piece.SEODescription = pkg.MetaDescription
	piece.SEOKeywords = pkg.Keywords
	return []GeneratedOutput{{Piece: piece}}, nil
}

// rawFallback keeps an unparseable response as a single record instead of losing it.
func rawFallback(in GenerationInput, ct models.ContentType, raw, label string) ([]GeneratedOutput, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, fmt.Errorf("model returned an empty %s response", ct)
	}
	piece := models.NewGeneratedPiece(in.EpisodeID, in.JobID, ct)
	piece.Title = fmt.Sprintf("%s (unparsed): %s", label, in.EpisodeTitle)
	piece.Body = text
	piece.AIQualityNotes = "Model response could not be parsed; stored as raw text."
	return []GeneratedOutput{{Piece: piece}}, nil
}

var platformAliases = map[string]string{
	"twitter":         "x",
	"x (twitter)":     "x",
	"ig":              "instagram",
	"instagram_reels": "instagram",
	"reels":           "instagram",
	"youtube shorts":  "youtube_shorts",
	"shorts":          "youtube_shorts",
	"youtube":         "youtube_shorts",
	"fb":              "facebook",
}

func normalizePlatform(p string) string {
	p = strings.ToLower(strings.TrimSpace(p))
	if alias, ok := platformAliases[p]; ok {
		return alias
	}
	return strings.ReplaceAll(p, " ", "_")
}

func platformLabel(p string) string {
	switch p {
	case "":
		return "Social"
	case "x":
		return "X"
	case "linkedin":
		return "LinkedIn"
	case "tiktok":
		return "TikTok"
	case "youtube_shorts":
		return "YouTube Shorts"
	}
	return strings.ToUpper(p[:1]) + p[1:]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
