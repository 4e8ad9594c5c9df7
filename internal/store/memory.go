package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps everything in process memory behind a single mutex.
// It is constructed explicitly and injected; there are no package-level
// collections. Returned records are deep copies, so held references never
// observe later mutations.
type MemoryStore struct {
	mu        sync.Mutex
	users     []User
	plants    []Plant
	posts     []CommunityPost
	diagnoses []DiagnosisRecord
	sessions  map[string]memorySession
}

type memorySession struct {
	userID    string
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]memorySession)}
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// ── users ──

func (s *MemoryStore) CreateUser(ctx context.Context, user User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = append(s.users, user)
	return nil
}

func (s *MemoryStore) GetUserByID(ctx context.Context, id string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findUser(func(u User) bool { return u.ID == id })
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findUser(func(u User) bool { return u.Email == email })
}

func (s *MemoryStore) GetUserByUsername(ctx context.Context, username string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findUser(func(u User) bool { return u.Username == username })
}

func (s *MemoryStore) GetUserByProviderID(ctx context.Context, provider, providerID string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findUser(func(u User) bool {
		switch provider {
		case "google":
			return u.GoogleID == providerID
		case "facebook":
			return u.FacebookID == providerID
		}
		return false
	})
}

func (s *MemoryStore) UpdateUser(ctx context.Context, user User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.users {
		if s.users[i].ID == user.ID {
			s.users[i] = user
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) findUser(match func(User) bool) (User, error) {
	for _, u := range s.users {
		if match(u) {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

// ── plants ──

func (s *MemoryStore) CreatePlant(ctx context.Context, plant Plant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plants = append(s.plants, clonePlant(plant))
	return nil
}

func (s *MemoryStore) GetPlant(ctx context.Context, id, userID string) (Plant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.plantIndex(id, userID)
	if idx < 0 {
		return Plant{}, ErrNotFound
	}
	return clonePlant(s.plants[idx]), nil
}

func (s *MemoryStore) ListPlants(ctx context.Context, userID string) ([]Plant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []Plant{}
	for _, p := range s.plants {
		if p.UserID == userID {
			out = append(out, clonePlant(p))
		}
	}
	return out, nil
}

func (s *MemoryStore) UpdatePlant(ctx context.Context, id, userID string, fields PlantFields) (Plant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.plantIndex(id, userID)
	if idx < 0 {
		return Plant{}, ErrNotFound
	}
	p := &s.plants[idx]
	if fields.Name != nil {
		p.Name = *fields.Name
	}
	if fields.Species != nil {
		p.Species = *fields.Species
	}
	if fields.Location != nil {
		p.Location = *fields.Location
	}
	if fields.PlantedDate != nil {
		p.PlantedDate = *fields.PlantedDate
	}
	if fields.Notes != nil {
		p.Notes = *fields.Notes
	}
	p.UpdatedAt = time.Now()
	return clonePlant(*p), nil
}

func (s *MemoryStore) DeletePlant(ctx context.Context, id, userID string) (Plant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.plantIndex(id, userID)
	if idx < 0 {
		return Plant{}, ErrNotFound
	}
	removed := s.plants[idx]
	s.plants = append(s.plants[:idx], s.plants[idx+1:]...)
	return clonePlant(removed), nil
}

func (s *MemoryStore) AppendDiagnosis(ctx context.Context, id, userID string, entry DiagnosisEntry) (Plant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.plantIndex(id, userID)
	if idx < 0 {
		return Plant{}, ErrNotFound
	}
	p := &s.plants[idx]
	p.DiagnosisHistory = append(p.DiagnosisHistory, entry)
	last := entry
	p.LastDiagnosis = &last
	p.HealthStatus = DeriveHealthStatus(entry.Disease, entry.Confidence)
	p.UpdatedAt = time.Now()
	return clonePlant(*p), nil
}

func (s *MemoryStore) SearchPlants(ctx context.Context, userID, query string) ([]Plant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := strings.ToLower(query)
	out := []Plant{}
	for _, p := range s.plants {
		if p.UserID != userID {
			continue
		}
		if containsFold(p.Name, q) || containsFold(p.Species, q) ||
			containsFold(p.Location, q) || containsFold(p.Notes, q) {
			out = append(out, clonePlant(p))
		}
	}
	return out, nil
}

func (s *MemoryStore) PlantsByHealthStatus(ctx context.Context, userID, status string) ([]Plant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []Plant{}
	for _, p := range s.plants {
		if p.UserID == userID && p.HealthStatus == status {
			out = append(out, clonePlant(p))
		}
	}
	return out, nil
}

func (s *MemoryStore) HealthSummary(ctx context.Context, userID string) (HealthSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	summary := HealthSummary{ByStatus: map[string]int{
		HealthUnknown:    0,
		HealthHealthy:    0,
		HealthDiseased:   0,
		HealthSuspicious: 0,
	}}
	for _, p := range s.plants {
		if p.UserID != userID {
			continue
		}
		summary.Total++
		summary.ByStatus[p.HealthStatus]++
	}
	summary.PlantsNeedingAttention = summary.ByStatus[HealthDiseased] + summary.ByStatus[HealthSuspicious]
	return summary, nil
}

func (s *MemoryStore) plantIndex(id, userID string) int {
	for i, p := range s.plants {
		if p.ID == id && p.UserID == userID {
			return i
		}
	}
	return -1
}

// ── community posts ──

func (s *MemoryStore) CreatePost(ctx context.Context, post CommunityPost) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts = append(s.posts, clonePost(post))
	return nil
}

func (s *MemoryStore) GetPost(ctx context.Context, id string) (CommunityPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.postIndex(id)
	if idx < 0 {
		return CommunityPost{}, ErrNotFound
	}
	return clonePost(s.posts[idx]), nil
}

func (s *MemoryStore) ListPosts(ctx context.Context, filter PostFilter) ([]CommunityPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.filterPosts(func(p CommunityPost) bool { return true }, filter)
	sortPosts(out, filter.SortBy, filter.Order)
	return truncatePosts(out, filter.Limit), nil
}

func (s *MemoryStore) UpdatePost(ctx context.Context, id, userID string, fields PostFields) (CommunityPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.postIndex(id)
	if idx < 0 {
		return CommunityPost{}, ErrNotFound
	}
	p := &s.posts[idx]
	if p.UserID != userID {
		return CommunityPost{}, ErrForbidden
	}
	if fields.Title != nil {
		p.Title = *fields.Title
	}
	if fields.Content != nil {
		p.Content = *fields.Content
	}
	if fields.Tags != nil {
		p.Tags = append([]string(nil), (*fields.Tags)...)
	}
	if fields.Category != nil {
		p.Category = *fields.Category
	}
	p.UpdatedAt = time.Now()
	return clonePost(*p), nil
}

func (s *MemoryStore) DeletePost(ctx context.Context, id, userID string) (CommunityPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.postIndex(id)
	if idx < 0 {
		return CommunityPost{}, ErrNotFound
	}
	if s.posts[idx].UserID != userID {
		return CommunityPost{}, ErrForbidden
	}
	removed := s.posts[idx]
	s.posts = append(s.posts[:idx], s.posts[idx+1:]...)
	return clonePost(removed), nil
}

func (s *MemoryStore) LikePost(ctx context.Context, id string) (CommunityPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.postIndex(id)
	if idx < 0 {
		return CommunityPost{}, ErrNotFound
	}
	s.posts[idx].Likes++
	s.posts[idx].UpdatedAt = time.Now()
	return clonePost(s.posts[idx]), nil
}

func (s *MemoryStore) AddComment(ctx context.Context, id string, comment Comment) (CommunityPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.postIndex(id)
	if idx < 0 {
		return CommunityPost{}, ErrNotFound
	}
	p := &s.posts[idx]
	p.Comments = append(p.Comments, comment)
	p.CommentCount = len(p.Comments)
	p.UpdatedAt = time.Now()
	return clonePost(*p), nil
}

func (s *MemoryStore) SearchPosts(ctx context.Context, query string, filter PostFilter) ([]CommunityPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := strings.ToLower(query)
	match := func(p CommunityPost) bool {
		if containsFold(p.Title, q) || containsFold(p.Content, q) {
			return true
		}
		for _, tag := range p.Tags {
			if containsFold(tag, q) {
				return true
			}
		}
		return false
	}
	// Matches keep their stored order; the augmenter re-ranks later if it can.
	return s.filterPosts(match, filter), nil
}

func (s *MemoryStore) TrendingPosts(ctx context.Context, limit int) ([]CommunityPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.filterPosts(func(p CommunityPost) bool { return true }, PostFilter{})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Likes > out[j].Likes })
	return truncatePosts(out, limit), nil
}

func (s *MemoryStore) PostsByEngagement(ctx context.Context, limit int) ([]CommunityPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.filterPosts(func(p CommunityPost) bool { return true }, PostFilter{})
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EngagementScore() > out[j].EngagementScore()
	})
	return truncatePosts(out, limit), nil
}

func (s *MemoryStore) PostCategories(ctx context.Context) ([]CategoryCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := map[string]int{}
	var order []string
	for _, p := range s.posts {
		if _, seen := counts[p.Category]; !seen {
			order = append(order, p.Category)
		}
		counts[p.Category]++
	}
	out := make([]CategoryCount, 0, len(order))
	for _, category := range order {
		out = append(out, CategoryCount{Category: category, Count: counts[category]})
	}
	return out, nil
}

func (s *MemoryStore) CountPosts(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.posts), nil
}

func (s *MemoryStore) postIndex(id string) int {
	for i, p := range s.posts {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (s *MemoryStore) filterPosts(match func(CommunityPost) bool, filter PostFilter) []CommunityPost {
	out := []CommunityPost{}
	for _, p := range s.posts {
		if !match(p) {
			continue
		}
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if p.Likes < filter.MinLikes {
			continue
		}
		out = append(out, clonePost(p))
	}
	return out
}

// ── standalone diagnosis records ──

func (s *MemoryStore) SaveDiagnosis(ctx context.Context, record DiagnosisRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.diagnoses = append(s.diagnoses, record)
	return nil
}

func (s *MemoryStore) ListDiagnoses(ctx context.Context, userID string) ([]DiagnosisRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []DiagnosisRecord{}
	for _, d := range s.diagnoses {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (s *MemoryStore) GetDiagnosis(ctx context.Context, id, userID string) (DiagnosisRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.diagnoses {
		if d.ID == id && d.UserID == userID {
			return d, nil
		}
	}
	return DiagnosisRecord{}, ErrNotFound
}

func (s *MemoryStore) DeleteDiagnosis(ctx context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, d := range s.diagnoses {
		if d.ID == id && d.UserID == userID {
			s.diagnoses = append(s.diagnoses[:i], s.diagnoses[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) DiagnosisStats(ctx context.Context, userID string) (DiagnosisStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var stats DiagnosisStats
	counts := map[string]int{}
	var confidenceSum float64
	for _, d := range s.diagnoses {
		if d.UserID != userID {
			continue
		}
		stats.TotalDiagnoses++
		if d.Disease == "healthy" {
			stats.HealthyCount++
		}
		counts[d.Disease]++
		confidenceSum += d.Confidence
	}
	stats.DiseasedCount = stats.TotalDiagnoses - stats.HealthyCount
	best := 0
	for disease, n := range counts {
		if n > best || (n == best && stats.MostCommonDisease == "") {
			best = n
			stats.MostCommonDisease = disease
		}
	}
	if stats.TotalDiagnoses > 0 {
		stats.AverageConfidence = confidenceSum / float64(stats.TotalDiagnoses)
	}
	return stats, nil
}

// ── refresh sessions ──

func (s *MemoryStore) SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[tokenHash] = memorySession{userID: userID, expiresAt: expiresAt}
	return nil
}

func (s *MemoryStore) LookupRefreshSession(ctx context.Context, tokenHash string) (User, error) {
	s.mu.Lock()
	sess, ok := s.sessions[tokenHash]
	s.mu.Unlock()
	if !ok || time.Now().After(sess.expiresAt) {
		return User{}, ErrNotFound
	}
	return s.GetUserByID(ctx, sess.userID)
}

func (s *MemoryStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, tokenHash)
	return nil
}

// ── helpers ──

func clonePlant(p Plant) Plant {
	out := p
	out.DiagnosisHistory = append([]DiagnosisEntry(nil), p.DiagnosisHistory...)
	if p.LastDiagnosis != nil {
		last := *p.LastDiagnosis
		out.LastDiagnosis = &last
	}
	return out
}

func clonePost(p CommunityPost) CommunityPost {
	out := p
	out.Tags = append([]string(nil), p.Tags...)
	out.Comments = append([]Comment(nil), p.Comments...)
	return out
}

func containsFold(haystack, loweredNeedle string) bool {
	return strings.Contains(strings.ToLower(haystack), loweredNeedle)
}

func sortPosts(posts []CommunityPost, sortBy, order string) {
	asc := order == "asc"
	sort.SliceStable(posts, func(i, j int) bool {
		a, b := posts[i], posts[j]
		if !asc {
			a, b = b, a
		}
		switch sortBy {
		case "likes":
			return a.Likes < b.Likes
		case "commentCount":
			return a.CommentCount < b.CommentCount
		default:
			return a.CreatedAt.Before(b.CreatedAt)
		}
	})
}

func truncatePosts(posts []CommunityPost, limit int) []CommunityPost {
	if limit > 0 && len(posts) > limit {
		return posts[:limit]
	}
	return posts
}
