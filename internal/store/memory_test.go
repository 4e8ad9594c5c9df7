package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func seedPlant(t *testing.T, s *MemoryStore, id, userID, name string) Plant {
	t.Helper()
	now := time.Now().UTC()
	plant := Plant{
		ID:               id,
		UserID:           userID,
		Name:             name,
		Species:          "Unknown",
		Location:         "Unknown",
		PlantedDate:      now,
		HealthStatus:     HealthUnknown,
		DiagnosisHistory: []DiagnosisEntry{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.CreatePlant(context.Background(), plant); err != nil {
		t.Fatalf("seed plant %s: %v", id, err)
	}
	return plant
}

func seedPost(t *testing.T, s *MemoryStore, id, userID, title, category string, likes int) CommunityPost {
	t.Helper()
	now := time.Now().UTC()
	post := CommunityPost{
		ID:        id,
		UserID:    userID,
		Username:  "gardener",
		Title:     title,
		Content:   "content of " + title,
		Tags:      []string{},
		Category:  category,
		Likes:     likes,
		Comments:  []Comment{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.CreatePost(context.Background(), post); err != nil {
		t.Fatalf("seed post %s: %v", id, err)
	}
	return post
}

func TestDeriveHealthStatus(t *testing.T) {
	cases := []struct {
		disease    string
		confidence float64
		want       string
	}{
		{"healthy", 0.95, HealthHealthy},
		{"healthy_leaf", 0.2, HealthHealthy},
		// Substring match is literal: "unhealthy_spot" contains "healthy".
		{"unhealthy_spot", 0.99, HealthHealthy},
		{"late_blight", 0.9, HealthDiseased},
		{"late_blight", 0.71, HealthDiseased},
		{"late_blight", 0.7, HealthSuspicious},
		{"spider_mites", 0.1, HealthSuspicious},
		{"Healthy", 0.99, HealthDiseased}, // case-sensitive
	}
	for _, tc := range cases {
		if got := DeriveHealthStatus(tc.disease, tc.confidence); got != tc.want {
			t.Errorf("DeriveHealthStatus(%q, %v) = %q, want %q", tc.disease, tc.confidence, got, tc.want)
		}
	}
}

func TestAppendDiagnosisHistoryIsAppendOnly(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	seedPlant(t, s, "plant-1", "user-1", "Tommy")

	var entries []DiagnosisEntry
	for i := 0; i < 3; i++ {
		entry := DiagnosisEntry{
			ID:         fmt.Sprintf("diag-%d", i),
			Disease:    "late_blight",
			Confidence: 0.9,
			CreatedAt:  time.Now().UTC(),
		}
		entries = append(entries, entry)
		if _, err := s.AppendDiagnosis(ctx, "plant-1", "user-1", entry); err != nil {
			t.Fatalf("AppendDiagnosis %d: %v", i, err)
		}
	}

	plant, err := s.GetPlant(ctx, "plant-1", "user-1")
	if err != nil {
		t.Fatalf("GetPlant: %v", err)
	}
	if len(plant.DiagnosisHistory) != 3 {
		t.Fatalf("history length %d, want 3", len(plant.DiagnosisHistory))
	}
	for i, entry := range entries {
		if plant.DiagnosisHistory[i].ID != entry.ID {
			t.Fatalf("history out of order at %d: %s", i, plant.DiagnosisHistory[i].ID)
		}
	}
	if plant.LastDiagnosis == nil || plant.LastDiagnosis.ID != "diag-2" {
		t.Fatalf("lastDiagnosis not the newest entry: %+v", plant.LastDiagnosis)
	}
	if plant.HealthStatus != HealthDiseased {
		t.Fatalf("health status %q after diseased diagnosis", plant.HealthStatus)
	}

	// A later healthy diagnosis flips the status but keeps the history.
	if _, err := s.AppendDiagnosis(ctx, "plant-1", "user-1", DiagnosisEntry{ID: "diag-3", Disease: "healthy", Confidence: 0.8}); err != nil {
		t.Fatalf("AppendDiagnosis healthy: %v", err)
	}
	plant, _ = s.GetPlant(ctx, "plant-1", "user-1")
	if plant.HealthStatus != HealthHealthy || len(plant.DiagnosisHistory) != 4 {
		t.Fatalf("status %q, history %d after healthy diagnosis", plant.HealthStatus, len(plant.DiagnosisHistory))
	}
}

func TestPlantOwnershipIsolation(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	seedPlant(t, s, "plant-1", "user-1", "Tommy")

	if _, err := s.GetPlant(ctx, "plant-1", "user-2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("other user's Get: got %v, want ErrNotFound", err)
	}
	name := "Stolen"
	if _, err := s.UpdatePlant(ctx, "plant-1", "user-2", PlantFields{Name: &name}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("other user's Update: got %v, want ErrNotFound", err)
	}
	if _, err := s.DeletePlant(ctx, "plant-1", "user-2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("other user's Delete: got %v, want ErrNotFound", err)
	}
	if _, err := s.AppendDiagnosis(ctx, "plant-1", "user-2", DiagnosisEntry{ID: "d", Disease: "healthy"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("other user's AppendDiagnosis: got %v, want ErrNotFound", err)
	}

	plants, err := s.ListPlants(ctx, "user-2")
	if err != nil {
		t.Fatalf("ListPlants: %v", err)
	}
	if len(plants) != 0 {
		t.Fatalf("user-2 sees %d plants", len(plants))
	}

	// The owner still sees the plant untouched.
	plant, err := s.GetPlant(ctx, "plant-1", "user-1")
	if err != nil || plant.Name != "Tommy" {
		t.Fatalf("owner's plant damaged: %+v, %v", plant, err)
	}
}

func TestHealthSummaryTallies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	seedPlant(t, s, "p1", "user-1", "A")
	seedPlant(t, s, "p2", "user-1", "B")
	seedPlant(t, s, "p3", "user-1", "C")
	seedPlant(t, s, "p4", "user-2", "D")

	s.AppendDiagnosis(ctx, "p1", "user-1", DiagnosisEntry{ID: "d1", Disease: "healthy", Confidence: 0.9})
	s.AppendDiagnosis(ctx, "p2", "user-1", DiagnosisEntry{ID: "d2", Disease: "late_blight", Confidence: 0.9})

	summary, err := s.HealthSummary(ctx, "user-1")
	if err != nil {
		t.Fatalf("HealthSummary: %v", err)
	}
	if summary.Total != 3 {
		t.Fatalf("total %d, want 3", summary.Total)
	}
	want := map[string]int{HealthHealthy: 1, HealthDiseased: 1, HealthUnknown: 1, HealthSuspicious: 0}
	for status, n := range want {
		if summary.ByStatus[status] != n {
			t.Errorf("ByStatus[%s] = %d, want %d", status, summary.ByStatus[status], n)
		}
	}
	if summary.PlantsNeedingAttention != 1 {
		t.Fatalf("plantsNeedingAttention %d, want 1", summary.PlantsNeedingAttention)
	}
}

func TestSearchPlantsSubstring(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	seedPlant(t, s, "p1", "user-1", "Tomato")
	seedPlant(t, s, "p2", "user-1", "Basil")
	notes := "repotted next to the tomato bed"
	if _, err := s.UpdatePlant(ctx, "p2", "user-1", PlantFields{Notes: &notes}); err != nil {
		t.Fatalf("UpdatePlant: %v", err)
	}
	seedPlant(t, s, "p3", "user-2", "Tomato")

	got, err := s.SearchPlants(ctx, "user-1", "TOMATO")
	if err != nil {
		t.Fatalf("SearchPlants: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d matches, want 2 (name match + notes match)", len(got))
	}
	for _, p := range got {
		if p.UserID != "user-1" {
			t.Fatalf("search leaked another user's plant: %+v", p)
		}
	}
}

func TestLikePostMonotonicAndNotIdempotent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	seedPost(t, s, "post-1", "user-1", "Best fertilizers", "gardening-tips", 0)

	for want := 1; want <= 3; want++ {
		post, err := s.LikePost(ctx, "post-1")
		if err != nil {
			t.Fatalf("LikePost: %v", err)
		}
		if post.Likes != want {
			t.Fatalf("likes %d after %d likes", post.Likes, want)
		}
	}
	if _, err := s.LikePost(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("like missing post: got %v", err)
	}
}

func TestAddCommentKeepsCountConsistent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	seedPost(t, s, "post-1", "user-1", "Pest control", "pest-control", 0)

	for i := 0; i < 3; i++ {
		post, err := s.AddComment(ctx, "post-1", Comment{
			ID:      fmt.Sprintf("cmt-%d", i),
			UserID:  "user-2",
			Content: "try neem oil",
		})
		if err != nil {
			t.Fatalf("AddComment %d: %v", i, err)
		}
		if post.CommentCount != len(post.Comments) {
			t.Fatalf("commentCount %d != len(comments) %d", post.CommentCount, len(post.Comments))
		}
		if post.CommentCount != i+1 {
			t.Fatalf("commentCount %d after %d comments", post.CommentCount, i+1)
		}
	}
}

func TestUpdatePostAuthorOnly(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	seedPost(t, s, "post-1", "user-1", "Vertical gardening", "urban-gardening", 0)

	title := "edited"
	if _, err := s.UpdatePost(ctx, "post-1", "user-2", PostFields{Title: &title}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("non-author update: got %v, want ErrForbidden", err)
	}
	if _, err := s.UpdatePost(ctx, "missing", "user-1", PostFields{Title: &title}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing post update: got %v, want ErrNotFound", err)
	}
	if _, err := s.DeletePost(ctx, "post-1", "user-2"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("non-author delete: got %v, want ErrForbidden", err)
	}

	post, err := s.UpdatePost(ctx, "post-1", "user-1", PostFields{Title: &title})
	if err != nil {
		t.Fatalf("author update: %v", err)
	}
	if post.Title != "edited" {
		t.Fatalf("title not updated: %q", post.Title)
	}
	if _, err := s.DeletePost(ctx, "post-1", "user-1"); err != nil {
		t.Fatalf("author delete: %v", err)
	}
}

func TestListPostsFilterSortLimit(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	seedPost(t, s, "p1", "u", "first", "gardening-tips", 5)
	seedPost(t, s, "p2", "u", "second", "pest-control", 20)
	seedPost(t, s, "p3", "u", "third", "gardening-tips", 10)

	posts, err := s.ListPosts(ctx, PostFilter{SortBy: "likes", Order: "desc"})
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if posts[0].ID != "p2" || posts[1].ID != "p3" || posts[2].ID != "p1" {
		t.Fatalf("likes desc order wrong: %s %s %s", posts[0].ID, posts[1].ID, posts[2].ID)
	}

	posts, _ = s.ListPosts(ctx, PostFilter{Category: "gardening-tips"})
	if len(posts) != 2 {
		t.Fatalf("category filter: got %d, want 2", len(posts))
	}

	// MinLikes is an inclusive lower bound.
	posts, _ = s.ListPosts(ctx, PostFilter{MinLikes: 10})
	if len(posts) != 2 {
		t.Fatalf("minLikes filter: got %d, want 2", len(posts))
	}

	posts, _ = s.ListPosts(ctx, PostFilter{SortBy: "likes", Order: "desc", Limit: 1})
	if len(posts) != 1 || posts[0].ID != "p2" {
		t.Fatalf("limit after sort: %+v", posts)
	}
}

func TestSearchPostsMatchesTitleContentTags(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	seedPost(t, s, "p1", "u", "Organic fertilizers", "gardening-tips", 0)
	seedPost(t, s, "p2", "u", "Pest control", "pest-control", 0)
	tags := []string{"organic", "compost"}
	if _, err := s.UpdatePost(ctx, "p2", "u", PostFields{Tags: &tags}); err != nil {
		t.Fatalf("UpdatePost: %v", err)
	}
	seedPost(t, s, "p3", "u", "Watering schedule", "gardening-tips", 0)

	got, err := s.SearchPosts(ctx, "ORGANIC", PostFilter{})
	if err != nil {
		t.Fatalf("SearchPosts: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d matches, want 2 (title match + tag match)", len(got))
	}
	// Stored order is preserved for the augmenter to re-rank.
	if got[0].ID != "p1" || got[1].ID != "p2" {
		t.Fatalf("search order changed: %s %s", got[0].ID, got[1].ID)
	}
}

func TestTrendingAndEngagementOrder(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	seedPost(t, s, "p1", "u", "a", "general", 3)
	seedPost(t, s, "p2", "u", "b", "general", 10)
	seedPost(t, s, "p3", "u", "c", "general", 5)
	for i := 0; i < 9; i++ {
		if _, err := s.AddComment(ctx, "p1", Comment{ID: fmt.Sprintf("c%d", i), Content: "x"}); err != nil {
			t.Fatalf("AddComment: %v", err)
		}
	}

	trending, err := s.TrendingPosts(ctx, 2)
	if err != nil {
		t.Fatalf("TrendingPosts: %v", err)
	}
	if len(trending) != 2 || trending[0].ID != "p2" || trending[1].ID != "p3" {
		t.Fatalf("trending order wrong: %+v", trending)
	}

	// p1 has 3 likes + 9 comments = 12 engagement, beating p2's 10.
	byEngagement, err := s.PostsByEngagement(ctx, 10)
	if err != nil {
		t.Fatalf("PostsByEngagement: %v", err)
	}
	if byEngagement[0].ID != "p1" || byEngagement[1].ID != "p2" {
		t.Fatalf("engagement order wrong: %s %s", byEngagement[0].ID, byEngagement[1].ID)
	}
}

func TestPostCategoriesGroupCount(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	seedPost(t, s, "p1", "u", "a", "gardening-tips", 0)
	seedPost(t, s, "p2", "u", "b", "pest-control", 0)
	seedPost(t, s, "p3", "u", "c", "gardening-tips", 0)

	categories, err := s.PostCategories(ctx)
	if err != nil {
		t.Fatalf("PostCategories: %v", err)
	}
	counts := map[string]int{}
	for _, cc := range categories {
		counts[cc.Category] = cc.Count
	}
	if counts["gardening-tips"] != 2 || counts["pest-control"] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}

	total, err := s.CountPosts(ctx)
	if err != nil || total != 3 {
		t.Fatalf("CountPosts = %d, %v", total, err)
	}
}

func TestDiagnosisRecordsScopedAndStats(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	records := []DiagnosisRecord{
		{ID: "d1", UserID: "user-1", Disease: "healthy", Confidence: 0.9, Timestamp: time.Now().Add(-2 * time.Hour)},
		{ID: "d2", UserID: "user-1", Disease: "late_blight", Confidence: 0.8, Timestamp: time.Now().Add(-1 * time.Hour)},
		{ID: "d3", UserID: "user-1", Disease: "late_blight", Confidence: 0.7, Timestamp: time.Now()},
		{ID: "d4", UserID: "user-2", Disease: "mosaic_virus", Confidence: 0.99, Timestamp: time.Now()},
	}
	for _, r := range records {
		if err := s.SaveDiagnosis(ctx, r); err != nil {
			t.Fatalf("SaveDiagnosis %s: %v", r.ID, err)
		}
	}

	history, err := s.ListDiagnoses(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListDiagnoses: %v", err)
	}
	if len(history) != 3 || history[0].ID != "d3" || history[2].ID != "d1" {
		t.Fatalf("history not newest-first: %+v", history)
	}

	if _, err := s.GetDiagnosis(ctx, "d4", "user-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-user get: got %v", err)
	}
	if err := s.DeleteDiagnosis(ctx, "d4", "user-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-user delete: got %v", err)
	}

	stats, err := s.DiagnosisStats(ctx, "user-1")
	if err != nil {
		t.Fatalf("DiagnosisStats: %v", err)
	}
	if stats.TotalDiagnoses != 3 || stats.HealthyCount != 1 || stats.DiseasedCount != 2 {
		t.Fatalf("counts wrong: %+v", stats)
	}
	if stats.MostCommonDisease != "late_blight" {
		t.Fatalf("mostCommonDisease %q", stats.MostCommonDisease)
	}
	wantAvg := (0.9 + 0.8 + 0.7) / 3
	if diff := stats.AverageConfidence - wantAvg; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("averageConfidence %v, want %v", stats.AverageConfidence, wantAvg)
	}
}

func TestDeepCopiesDoNotAlias(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	seedPlant(t, s, "p1", "u", "Tommy")
	s.AppendDiagnosis(ctx, "p1", "u", DiagnosisEntry{ID: "d1", Disease: "healthy", Confidence: 0.9})

	plant, _ := s.GetPlant(ctx, "p1", "u")
	plant.DiagnosisHistory[0].Disease = "mutated"
	plant.Name = "mutated"

	fresh, _ := s.GetPlant(ctx, "p1", "u")
	if fresh.DiagnosisHistory[0].Disease != "healthy" || fresh.Name != "Tommy" {
		t.Fatalf("stored plant aliased by returned copy: %+v", fresh)
	}
}
