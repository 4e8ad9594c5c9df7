// Package augment adds AI-generated context to community content: search
// re-ranking, tag and category suggestions, and community insight reports.
// Every augmentation is best-effort; callers fall back to plain results or
// the static defaults below when the model is unavailable or returns junk.
package augment

import (
	"context"

	"plantai/api/internal/store"
)

// PostInsights is the model's read on a set of search results.
type PostInsights struct {
	RelevanceScore  float64  `json:"relevanceScore"`
	PracticalValue  string   `json:"practicalValue"`
	EngagementScore float64  `json:"engagementScore"`
	Suggestions     []string `json:"suggestions"`
}

// EnhancedPost is a community post with optional model insights attached.
type EnhancedPost struct {
	store.CommunityPost
	AIInsights *PostInsights `json:"aiInsights,omitempty"`
}

// Insights summarizes community activity.
type Insights struct {
	PopularTopics     []string `json:"popularTopics"`
	EngagementTrends  string   `json:"engagementTrends"`
	EmergingInterests []string `json:"emergingInterests"`
	SeasonalTrends    string   `json:"seasonalTrends"`
}

// TrendingTopic is one entry in a trending report.
type TrendingTopic struct {
	Topic           string  `json:"topic"`
	Description     string  `json:"description"`
	EngagementScore float64 `json:"engagementScore"`
}

// Augmenter generates community content augmentations. Implementations may
// call a remote model; callers must treat every method as fallible and keep
// serving without it.
type Augmenter interface {
	EnhanceResults(ctx context.Context, query string, posts []store.CommunityPost) ([]EnhancedPost, error)
	SuggestSearchTerms(ctx context.Context, query string) ([]string, error)
	SuggestTags(ctx context.Context, title, content string) ([]string, error)
	SuggestCategory(ctx context.Context, title, content string) (string, error)
	CommunityInsights(ctx context.Context, posts []store.CommunityPost) (Insights, error)
	TrendingTopics(ctx context.Context, posts []store.CommunityPost) ([]TrendingTopic, error)
}

// Categories is the closed set the category suggester chooses from.
var Categories = []string{
	"gardening-tips",
	"pest-control",
	"plant-diseases",
	"urban-gardening",
	"organic-gardening",
	"seasonal-care",
}

// Static fallbacks, used when the augmenter is absent or fails.

func FallbackInsights() Insights {
	return Insights{
		PopularTopics:     []string{"organic gardening", "pest control", "urban farming"},
		EngagementTrends:  "High engagement on practical tips",
		EmergingInterests: []string{"vertical gardening", "sustainable practices"},
		SeasonalTrends:    "Spring planting and summer care tips",
	}
}

func FallbackTrendingTopics() []TrendingTopic {
	return []TrendingTopic{
		{Topic: "Organic Fertilizers", Description: "Natural plant nutrition", EngagementScore: 0.8},
		{Topic: "Pest Control", Description: "Natural pest management", EngagementScore: 0.7},
		{Topic: "Urban Gardening", Description: "Small space solutions", EngagementScore: 0.9},
	}
}

// PlainResults wraps posts without insights, for the degraded search path.
func PlainResults(posts []store.CommunityPost) []EnhancedPost {
	out := make([]EnhancedPost, len(posts))
	for i, post := range posts {
		out[i] = EnhancedPost{CommunityPost: post}
	}
	return out
}
