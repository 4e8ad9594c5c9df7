package augment

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"google.golang.org/genai"

	"plantai/api/internal/store"
)

// GeminiAugmenter implements Augmenter against Google's Gemini API.
type GeminiAugmenter struct {
	client *genai.Client
	model  string
}

func NewGeminiAugmenter(ctx context.Context, apiKey, model string) (*GeminiAugmenter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiAugmenter{client: client, model: model}, nil
}

func (g *GeminiAugmenter) generate(ctx context.Context, prompt string) (string, error) {
	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("empty model response")
	}
	return text, nil
}

// EnhanceResults asks the model to rate a result set against the query and
// attaches the rating to each post, re-ranked by relevance.
func (g *GeminiAugmenter) EnhanceResults(ctx context.Context, query string, posts []store.CommunityPost) ([]EnhancedPost, error) {
	if len(posts) == 0 {
		return []EnhancedPost{}, nil
	}

	var lines []string
	for _, post := range posts {
		lines = append(lines, fmt.Sprintf("- %s: %s", post.Title, post.Content))
	}
	prompt := fmt.Sprintf(`Analyze these community posts about gardening and plant care:
%s

Query: %q

Provide insights about:
1. Relevance to the query
2. Practical value
3. Community engagement
4. Additional tips or suggestions

Format as JSON with fields: relevance_score, practical_value, engagement_score, ai_suggestions`,
		strings.Join(lines, "\n"), query)

	raw, err := g.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		RelevanceScore  float64  `json:"relevance_score"`
		PracticalValue  string   `json:"practical_value"`
		EngagementScore float64  `json:"engagement_score"`
		AISuggestions   []string `json:"ai_suggestions"`
	}
	if err := decodeJSONBlock(raw, &parsed); err != nil {
		return nil, err
	}

	insights := PostInsights{
		RelevanceScore:  parsed.RelevanceScore,
		PracticalValue:  parsed.PracticalValue,
		EngagementScore: parsed.EngagementScore,
		Suggestions:     parsed.AISuggestions,
	}
	if insights.PracticalValue == "" {
		insights.PracticalValue = "Good"
	}

	enhanced := make([]EnhancedPost, len(posts))
	for i, post := range posts {
		each := insights
		enhanced[i] = EnhancedPost{CommunityPost: post, AIInsights: &each}
	}
	sort.SliceStable(enhanced, func(i, j int) bool {
		return enhanced[i].AIInsights.RelevanceScore > enhanced[j].AIInsights.RelevanceScore
	})
	return enhanced, nil
}

func (g *GeminiAugmenter) SuggestSearchTerms(ctx context.Context, query string) ([]string, error) {
	prompt := fmt.Sprintf(`Based on the query %q about gardening and plant care, suggest 5 related search terms that users might find helpful.
Focus on practical gardening topics, plant diseases, care tips, and community-relevant terms.
Return as a JSON array of strings.`, query)

	raw, err := g.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	var terms []string
	if err := decodeJSONBlock(raw, &terms); err != nil {
		return nil, err
	}
	return terms, nil
}

func (g *GeminiAugmenter) SuggestTags(ctx context.Context, title, content string) ([]string, error) {
	prompt := fmt.Sprintf(`Suggest 3-5 relevant tags for this gardening post:
Title: %q
Content: %q

Return as a JSON array of strings. Focus on practical gardening terms.`, title, content)

	raw, err := g.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	var tags []string
	if err := decodeJSONBlock(raw, &tags); err != nil {
		return nil, err
	}
	if len(tags) == 0 {
		return nil, fmt.Errorf("model suggested no tags")
	}
	return tags, nil
}

func (g *GeminiAugmenter) SuggestCategory(ctx context.Context, title, content string) (string, error) {
	prompt := fmt.Sprintf(`Categorize this gardening post into one of these categories:
- %s

Title: %q
Content: %q

Return only the category name as a string.`, strings.Join(Categories, "\n- "), title, content)

	raw, err := g.generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	category := normalizeCategory(raw)
	if category == "" {
		return "", fmt.Errorf("model returned unknown category %q", strings.TrimSpace(raw))
	}
	return category, nil
}

func (g *GeminiAugmenter) CommunityInsights(ctx context.Context, posts []store.CommunityPost) (Insights, error) {
	var lines []string
	for _, post := range posts {
		lines = append(lines, fmt.Sprintf("- %s (%d likes, %d comments)", post.Title, post.Likes, post.CommentCount))
	}
	prompt := fmt.Sprintf(`Analyze this gardening community data and provide insights:
%s

Provide insights about:
1. Most popular topics
2. Community engagement trends
3. Emerging gardening interests
4. Seasonal trends

Format as JSON with fields: popular_topics, engagement_trends, emerging_interests, seasonal_trends`,
		strings.Join(lines, "\n"))

	raw, err := g.generate(ctx, prompt)
	if err != nil {
		return Insights{}, err
	}

	var parsed struct {
		PopularTopics     []string `json:"popular_topics"`
		EngagementTrends  string   `json:"engagement_trends"`
		EmergingInterests []string `json:"emerging_interests"`
		SeasonalTrends    string   `json:"seasonal_trends"`
	}
	if err := decodeJSONBlock(raw, &parsed); err != nil {
		return Insights{}, err
	}
	return Insights{
		PopularTopics:     parsed.PopularTopics,
		EngagementTrends:  parsed.EngagementTrends,
		EmergingInterests: parsed.EmergingInterests,
		SeasonalTrends:    parsed.SeasonalTrends,
	}, nil
}

func (g *GeminiAugmenter) TrendingTopics(ctx context.Context, posts []store.CommunityPost) ([]TrendingTopic, error) {
	var lines []string
	for _, post := range posts {
		lines = append(lines, fmt.Sprintf("- %s (%d likes)", post.Title, post.Likes))
	}
	prompt := fmt.Sprintf(`Based on this gardening community data, identify 5 trending topics:
%s

Return as a JSON array of objects with fields: topic, description, engagement_score`,
		strings.Join(lines, "\n"))

	raw, err := g.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var parsed []struct {
		Topic           string  `json:"topic"`
		Description     string  `json:"description"`
		EngagementScore float64 `json:"engagement_score"`
	}
	if err := decodeJSONBlock(raw, &parsed); err != nil {
		return nil, err
	}
	topics := make([]TrendingTopic, len(parsed))
	for i, p := range parsed {
		topics[i] = TrendingTopic{Topic: p.Topic, Description: p.Description, EngagementScore: p.EngagementScore}
	}
	return topics, nil
}

// normalizeCategory matches a free-form model answer against the closed
// category set; empty means no match.
func normalizeCategory(raw string) string {
	answer := strings.ToLower(strings.Trim(strings.TrimSpace(raw), "\"'` \n"))
	for _, category := range Categories {
		if answer == category || strings.Contains(answer, category) {
			return category
		}
	}
	return ""
}
