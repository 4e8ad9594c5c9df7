package app

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"plantai/api/internal/augment"
	"plantai/api/internal/store"
	"plantai/api/internal/util"
)

// SearchResult bundles a community search: the (possibly AI-re-ranked)
// matches plus suggested follow-up search terms.
type SearchResult struct {
	Query       string                 `json:"query"`
	Results     []augment.EnhancedPost `json:"results"`
	Total       int                    `json:"total"`
	Suggestions []string               `json:"suggestions"`
}

// SearchCommunity runs the substring search and then consults the augmenter
// for re-ranking and suggestions. Augmenter failure leaves the filtered set
// untouched; it never fails the search.
func (s *Service) SearchCommunity(ctx context.Context, query string, filter store.PostFilter) (SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return SearchResult{}, domainError(http.StatusBadRequest, "Search query is required")
	}

	limit := filter.Limit
	filter.Limit = 0
	posts, err := s.store.SearchPosts(ctx, query, filter)
	if err != nil {
		return SearchResult{}, err
	}

	results := augment.PlainResults(posts)
	if s.augmenter != nil && len(posts) > 0 {
		actx, cancel := s.augmentContext(ctx)
		enhanced, err := s.augmenter.EnhanceResults(actx, query, posts)
		cancel()
		if err != nil {
			log.Printf("augment: enhance results degraded: %v", err)
		} else {
			results = enhanced
		}
	}
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	suggestions := []string{}
	if s.augmenter != nil {
		actx, cancel := s.augmentContext(ctx)
		terms, err := s.augmenter.SuggestSearchTerms(actx, query)
		cancel()
		if err != nil {
			log.Printf("augment: search suggestions degraded: %v", err)
		} else {
			suggestions = terms
		}
	}

	return SearchResult{
		Query:       query,
		Results:     results,
		Total:       len(results),
		Suggestions: suggestions,
	}, nil
}

// SearchSuggestions returns AI-suggested related search terms, or an empty
// list when the augmenter is off.
func (s *Service) SearchSuggestions(ctx context.Context, query string) ([]string, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domainError(http.StatusBadRequest, "Query parameter is required")
	}
	if s.augmenter == nil {
		return []string{}, nil
	}
	actx, cancel := s.augmentContext(ctx)
	defer cancel()
	terms, err := s.augmenter.SuggestSearchTerms(actx, query)
	if err != nil {
		log.Printf("augment: search suggestions degraded: %v", err)
		return []string{}, nil
	}
	return terms, nil
}

// CreateCommunityPost creates a post, asking the augmenter to fill in
// missing tags and category. Degradation leaves tags empty and the category
// at its "general" default.
func (s *Service) CreateCommunityPost(ctx context.Context, user store.User, title, content string, tags []string, category string) (store.CommunityPost, error) {
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	if title == "" {
		return store.CommunityPost{}, domainError(http.StatusBadRequest, "Title is required")
	}
	if content == "" {
		return store.CommunityPost{}, domainError(http.StatusBadRequest, "Content is required")
	}

	if len(tags) == 0 && s.augmenter != nil {
		actx, cancel := s.augmentContext(ctx)
		suggested, err := s.augmenter.SuggestTags(actx, title, content)
		cancel()
		if err != nil {
			log.Printf("augment: tag suggestion degraded: %v", err)
		} else {
			tags = suggested
		}
	}
	if category == "" && s.augmenter != nil {
		actx, cancel := s.augmentContext(ctx)
		suggested, err := s.augmenter.SuggestCategory(actx, title, content)
		cancel()
		if err != nil {
			log.Printf("augment: category suggestion degraded: %v", err)
		} else {
			category = suggested
		}
	}
	if tags == nil {
		tags = []string{}
	}
	if category == "" {
		category = "general"
	}

	now := time.Now().UTC()
	post := store.CommunityPost{
		ID:        util.NewID("post"),
		UserID:    user.ID,
		Username:  user.Username,
		Title:     title,
		Content:   content,
		Tags:      tags,
		Category:  category,
		Comments:  []store.Comment{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreatePost(ctx, post); err != nil {
		return store.CommunityPost{}, err
	}
	return post, nil
}

func (s *Service) ListCommunityPosts(ctx context.Context, filter store.PostFilter) ([]store.CommunityPost, error) {
	return s.store.ListPosts(ctx, filter)
}

func (s *Service) GetCommunityPost(ctx context.Context, postID string) (store.CommunityPost, error) {
	return s.store.GetPost(ctx, postID)
}

func (s *Service) LikePost(ctx context.Context, postID string) (store.CommunityPost, error) {
	return s.store.LikePost(ctx, postID)
}

func (s *Service) AddComment(ctx context.Context, user store.User, postID, content string) (store.CommunityPost, store.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return store.CommunityPost{}, store.Comment{}, domainError(http.StatusBadRequest, "Comment content is required")
	}
	comment := store.Comment{
		ID:        util.NewID("cmt"),
		UserID:    user.ID,
		Username:  user.Username,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	post, err := s.store.AddComment(ctx, postID, comment)
	if err != nil {
		return store.CommunityPost{}, store.Comment{}, err
	}
	return post, comment, nil
}

func (s *Service) UpdateCommunityPost(ctx context.Context, userID, postID string, fields store.PostFields) (store.CommunityPost, error) {
	if fields.Title != nil && strings.TrimSpace(*fields.Title) == "" {
		return store.CommunityPost{}, domainError(http.StatusBadRequest, "Title cannot be empty")
	}
	if fields.Content != nil && strings.TrimSpace(*fields.Content) == "" {
		return store.CommunityPost{}, domainError(http.StatusBadRequest, "Content cannot be empty")
	}
	return s.store.UpdatePost(ctx, postID, userID, fields)
}

func (s *Service) DeleteCommunityPost(ctx context.Context, userID, postID string) (store.CommunityPost, error) {
	return s.store.DeletePost(ctx, postID, userID)
}

// CommunityInsights reports on community activity, preferring the model's
// read and falling back to the static summary.
func (s *Service) CommunityInsights(ctx context.Context) (augment.Insights, error) {
	posts, err := s.store.ListPosts(ctx, store.PostFilter{})
	if err != nil {
		return augment.Insights{}, err
	}
	if s.augmenter == nil {
		return augment.FallbackInsights(), nil
	}
	actx, cancel := s.augmentContext(ctx)
	defer cancel()
	insights, err := s.augmenter.CommunityInsights(actx, posts)
	if err != nil {
		log.Printf("augment: community insights degraded: %v", err)
		return augment.FallbackInsights(), nil
	}
	return insights, nil
}

// TrendingTopics is the AI trending report with a static fallback.
func (s *Service) TrendingTopics(ctx context.Context) ([]augment.TrendingTopic, error) {
	posts, err := s.store.TrendingPosts(ctx, 20)
	if err != nil {
		return nil, err
	}
	if s.augmenter == nil {
		return augment.FallbackTrendingTopics(), nil
	}
	actx, cancel := s.augmentContext(ctx)
	defer cancel()
	topics, err := s.augmenter.TrendingTopics(actx, posts)
	if err != nil {
		log.Printf("augment: trending topics degraded: %v", err)
		return augment.FallbackTrendingTopics(), nil
	}
	return topics, nil
}

func (s *Service) TrendingPosts(ctx context.Context, limit int) ([]store.CommunityPost, error) {
	return s.store.TrendingPosts(ctx, limit)
}

func (s *Service) PostsByEngagement(ctx context.Context, limit int) ([]store.CommunityPost, error) {
	return s.store.PostsByEngagement(ctx, limit)
}

// CommunityStats summarizes the community feed for the stats endpoint.
type CommunityStats struct {
	TotalPosts      int                   `json:"totalPosts"`
	TotalCategories int                   `json:"totalCategories"`
	PostsByCategory []store.CategoryCount `json:"postsByCategory"`
}

func (s *Service) CommunityStats(ctx context.Context) (CommunityStats, error) {
	total, err := s.store.CountPosts(ctx)
	if err != nil {
		return CommunityStats{}, err
	}
	categories, err := s.store.PostCategories(ctx)
	if err != nil {
		return CommunityStats{}, err
	}
	return CommunityStats{
		TotalPosts:      total,
		TotalCategories: len(categories),
		PostsByCategory: categories,
	}, nil
}

// augmentContext bounds every augmenter call so a slow model cannot stall
// request handling.
func (s *Service) augmentContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := s.cfg.AugmentTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}
