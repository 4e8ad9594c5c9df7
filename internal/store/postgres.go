package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// PostgresStore implements Store over database/sql with the pgx driver.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ── users ──

const userColumns = `id, username, email, password_hash, provider, google_id, facebook_id, avatar, role, created_at, updated_at`

func (s *PostgresStore) CreateUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, user.ID, user.Username, user.Email, user.PasswordHash, user.Provider,
		user.GoogleID, user.FacebookID, user.Avatar, user.Role, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email)
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE username=$1`, username)
}

func (s *PostgresStore) GetUserByProviderID(ctx context.Context, provider, providerID string) (User, error) {
	switch provider {
	case "google":
		return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE google_id=$1 AND google_id<>''`, providerID)
	case "facebook":
		return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE facebook_id=$1 AND facebook_id<>''`, providerID)
	}
	return User{}, ErrNotFound
}

func (s *PostgresStore) UpdateUser(ctx context.Context, user User) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET username=$2, email=$3, password_hash=$4, provider=$5, google_id=$6,
			facebook_id=$7, avatar=$8, role=$9, updated_at=$10
		WHERE id=$1
	`, user.ID, user.Username, user.Email, user.PasswordHash, user.Provider,
		user.GoogleID, user.FacebookID, user.Avatar, user.Role, user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return requireRowAffected(result)
}

func (s *PostgresStore) getUser(ctx context.Context, query string, args ...any) (User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.Provider,
		&user.GoogleID, &user.FacebookID, &user.Avatar, &user.Role, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}

// ── plants ──

const plantColumns = `id, user_id, name, species, location, planted_date, notes, health_status, created_at, updated_at`

func (s *PostgresStore) CreatePlant(ctx context.Context, plant Plant) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO plants (`+plantColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, plant.ID, plant.UserID, plant.Name, plant.Species, plant.Location,
		plant.PlantedDate, plant.Notes, plant.HealthStatus, plant.CreatedAt, plant.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert plant: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPlant(ctx context.Context, id, userID string) (Plant, error) {
	plant, err := s.scanPlant(s.db.QueryRowContext(ctx,
		`SELECT `+plantColumns+` FROM plants WHERE id=$1 AND user_id=$2`, id, userID))
	if err != nil {
		return Plant{}, err
	}
	if err := s.attachHistory(ctx, &plant); err != nil {
		return Plant{}, err
	}
	return plant, nil
}

func (s *PostgresStore) ListPlants(ctx context.Context, userID string) ([]Plant, error) {
	return s.queryPlants(ctx,
		`SELECT `+plantColumns+` FROM plants WHERE user_id=$1 ORDER BY created_at`, userID)
}

func (s *PostgresStore) UpdatePlant(ctx context.Context, id, userID string, fields PlantFields) (Plant, error) {
	set := []string{"updated_at=NOW()"}
	args := []any{id, userID}
	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s=$%d", column, len(args)))
	}
	if fields.Name != nil {
		add("name", *fields.Name)
	}
	if fields.Species != nil {
		add("species", *fields.Species)
	}
	if fields.Location != nil {
		add("location", *fields.Location)
	}
	if fields.PlantedDate != nil {
		add("planted_date", *fields.PlantedDate)
	}
	if fields.Notes != nil {
		add("notes", *fields.Notes)
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE plants SET `+strings.Join(set, ", ")+` WHERE id=$1 AND user_id=$2`, args...)
	if err != nil {
		return Plant{}, fmt.Errorf("update plant: %w", err)
	}
	if err := requireRowAffected(result); err != nil {
		return Plant{}, err
	}
	return s.GetPlant(ctx, id, userID)
}

func (s *PostgresStore) DeletePlant(ctx context.Context, id, userID string) (Plant, error) {
	plant, err := s.GetPlant(ctx, id, userID)
	if err != nil {
		return Plant{}, err
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM plants WHERE id=$1 AND user_id=$2`, id, userID); err != nil {
		return Plant{}, fmt.Errorf("delete plant: %w", err)
	}
	return plant, nil
}

func (s *PostgresStore) AppendDiagnosis(ctx context.Context, id, userID string, entry DiagnosisEntry) (Plant, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Plant{}, fmt.Errorf("begin diagnosis tx: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM plants WHERE id=$1 AND user_id=$2)`, id, userID).Scan(&exists); err != nil {
		return Plant{}, fmt.Errorf("check plant: %w", err)
	}
	if !exists {
		return Plant{}, ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO plant_diagnoses (id, plant_id, disease, confidence, image_url, notes, seq, created_at)
		VALUES ($1, $2, $3, $4, $5, $6,
			(SELECT COALESCE(MAX(seq), 0) + 1 FROM plant_diagnoses WHERE plant_id=$2), $7)
	`, entry.ID, id, entry.Disease, entry.Confidence, entry.ImageURL, entry.Notes, entry.CreatedAt); err != nil {
		return Plant{}, fmt.Errorf("insert diagnosis: %w", err)
	}

	status := DeriveHealthStatus(entry.Disease, entry.Confidence)
	if _, err := tx.ExecContext(ctx, `
		UPDATE plants SET health_status=$3, last_diagnosis_id=$4, updated_at=NOW()
		WHERE id=$1 AND user_id=$2
	`, id, userID, status, entry.ID); err != nil {
		return Plant{}, fmt.Errorf("update plant status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Plant{}, fmt.Errorf("commit diagnosis tx: %w", err)
	}
	return s.GetPlant(ctx, id, userID)
}

func (s *PostgresStore) SearchPlants(ctx context.Context, userID, query string) ([]Plant, error) {
	pattern := "%" + query + "%"
	return s.queryPlants(ctx, `
		SELECT `+plantColumns+` FROM plants
		WHERE user_id=$1 AND (name ILIKE $2 OR species ILIKE $2 OR location ILIKE $2 OR notes ILIKE $2)
		ORDER BY created_at
	`, userID, pattern)
}

func (s *PostgresStore) PlantsByHealthStatus(ctx context.Context, userID, status string) ([]Plant, error) {
	return s.queryPlants(ctx, `
		SELECT `+plantColumns+` FROM plants
		WHERE user_id=$1 AND health_status=$2
		ORDER BY created_at
	`, userID, status)
}

func (s *PostgresStore) HealthSummary(ctx context.Context, userID string) (HealthSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT health_status, COUNT(*) FROM plants WHERE user_id=$1 GROUP BY health_status
	`, userID)
	if err != nil {
		return HealthSummary{}, fmt.Errorf("health summary: %w", err)
	}
	defer rows.Close()

	summary := HealthSummary{ByStatus: map[string]int{
		HealthUnknown:    0,
		HealthHealthy:    0,
		HealthDiseased:   0,
		HealthSuspicious: 0,
	}}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return HealthSummary{}, fmt.Errorf("scan summary row: %w", err)
		}
		summary.ByStatus[status] = count
		summary.Total += count
	}
	if err := rows.Err(); err != nil {
		return HealthSummary{}, err
	}
	summary.PlantsNeedingAttention = summary.ByStatus[HealthDiseased] + summary.ByStatus[HealthSuspicious]
	return summary, nil
}

func (s *PostgresStore) queryPlants(ctx context.Context, query string, args ...any) ([]Plant, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query plants: %w", err)
	}
	defer rows.Close()

	plants := []Plant{}
	for rows.Next() {
		plant, err := s.scanPlant(rows)
		if err != nil {
			return nil, err
		}
		plants = append(plants, plant)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range plants {
		if err := s.attachHistory(ctx, &plants[i]); err != nil {
			return nil, err
		}
	}
	return plants, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) scanPlant(row rowScanner) (Plant, error) {
	var plant Plant
	err := row.Scan(&plant.ID, &plant.UserID, &plant.Name, &plant.Species, &plant.Location,
		&plant.PlantedDate, &plant.Notes, &plant.HealthStatus, &plant.CreatedAt, &plant.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Plant{}, ErrNotFound
	}
	if err != nil {
		return Plant{}, fmt.Errorf("scan plant: %w", err)
	}
	return plant, nil
}

func (s *PostgresStore) attachHistory(ctx context.Context, plant *Plant) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, disease, confidence, image_url, notes, created_at
		FROM plant_diagnoses WHERE plant_id=$1 ORDER BY seq
	`, plant.ID)
	if err != nil {
		return fmt.Errorf("query diagnosis history: %w", err)
	}
	defer rows.Close()

	plant.DiagnosisHistory = []DiagnosisEntry{}
	for rows.Next() {
		var entry DiagnosisEntry
		if err := rows.Scan(&entry.ID, &entry.Disease, &entry.Confidence,
			&entry.ImageURL, &entry.Notes, &entry.CreatedAt); err != nil {
			return fmt.Errorf("scan diagnosis entry: %w", err)
		}
		plant.DiagnosisHistory = append(plant.DiagnosisHistory, entry)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if n := len(plant.DiagnosisHistory); n > 0 {
		last := plant.DiagnosisHistory[n-1]
		plant.LastDiagnosis = &last
	}
	return nil
}

// ── community posts ──

const postColumns = `id, user_id, username, title, content, tags, category, likes, comment_count, created_at, updated_at`

func (s *PostgresStore) CreatePost(ctx context.Context, post CommunityPost) error {
	tags, err := json.Marshal(post.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO community_posts (`+postColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, post.ID, post.UserID, post.Username, post.Title, post.Content, tags,
		post.Category, post.Likes, post.CommentCount, post.CreatedAt, post.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPost(ctx context.Context, id string) (CommunityPost, error) {
	post, err := s.scanPost(s.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM community_posts WHERE id=$1`, id))
	if err != nil {
		return CommunityPost{}, err
	}
	if err := s.attachComments(ctx, &post); err != nil {
		return CommunityPost{}, err
	}
	return post, nil
}

func (s *PostgresStore) ListPosts(ctx context.Context, filter PostFilter) ([]CommunityPost, error) {
	where, args := postFilterClause(filter)
	query := `SELECT ` + postColumns + ` FROM community_posts` + where +
		` ORDER BY ` + postSortClause(filter.SortBy, filter.Order)
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return s.queryPosts(ctx, query, args...)
}

func (s *PostgresStore) UpdatePost(ctx context.Context, id, userID string, fields PostFields) (CommunityPost, error) {
	if err := s.requirePostAuthor(ctx, id, userID); err != nil {
		return CommunityPost{}, err
	}

	set := []string{"updated_at=NOW()"}
	args := []any{id}
	add := func(column string, value any) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s=$%d", column, len(args)))
	}
	if fields.Title != nil {
		add("title", *fields.Title)
	}
	if fields.Content != nil {
		add("content", *fields.Content)
	}
	if fields.Tags != nil {
		tags, err := json.Marshal(*fields.Tags)
		if err != nil {
			return CommunityPost{}, fmt.Errorf("marshal tags: %w", err)
		}
		add("tags", tags)
	}
	if fields.Category != nil {
		add("category", *fields.Category)
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE community_posts SET `+strings.Join(set, ", ")+` WHERE id=$1`, args...); err != nil {
		return CommunityPost{}, fmt.Errorf("update post: %w", err)
	}
	return s.GetPost(ctx, id)
}

func (s *PostgresStore) DeletePost(ctx context.Context, id, userID string) (CommunityPost, error) {
	post, err := s.GetPost(ctx, id)
	if err != nil {
		return CommunityPost{}, err
	}
	if post.UserID != userID {
		return CommunityPost{}, ErrForbidden
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM community_posts WHERE id=$1`, id); err != nil {
		return CommunityPost{}, fmt.Errorf("delete post: %w", err)
	}
	return post, nil
}

func (s *PostgresStore) LikePost(ctx context.Context, id string) (CommunityPost, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE community_posts SET likes=likes+1, updated_at=NOW() WHERE id=$1`, id)
	if err != nil {
		return CommunityPost{}, fmt.Errorf("like post: %w", err)
	}
	if err := requireRowAffected(result); err != nil {
		return CommunityPost{}, err
	}
	return s.GetPost(ctx, id)
}

func (s *PostgresStore) AddComment(ctx context.Context, id string, comment Comment) (CommunityPost, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return CommunityPost{}, fmt.Errorf("begin comment tx: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM community_posts WHERE id=$1)`, id).Scan(&exists); err != nil {
		return CommunityPost{}, fmt.Errorf("check post: %w", err)
	}
	if !exists {
		return CommunityPost{}, ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO post_comments (id, post_id, user_id, username, content, seq, created_at)
		VALUES ($1, $2, $3, $4, $5,
			(SELECT COALESCE(MAX(seq), 0) + 1 FROM post_comments WHERE post_id=$2), $6)
	`, comment.ID, id, comment.UserID, comment.Username, comment.Content, comment.CreatedAt); err != nil {
		return CommunityPost{}, fmt.Errorf("insert comment: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE community_posts
		SET comment_count=(SELECT COUNT(*) FROM post_comments WHERE post_id=$1), updated_at=NOW()
		WHERE id=$1
	`, id); err != nil {
		return CommunityPost{}, fmt.Errorf("update comment count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return CommunityPost{}, fmt.Errorf("commit comment tx: %w", err)
	}
	return s.GetPost(ctx, id)
}

func (s *PostgresStore) SearchPosts(ctx context.Context, query string, filter PostFilter) ([]CommunityPost, error) {
	where, args := postFilterClause(filter)
	args = append(args, "%"+query+"%")
	textMatch := fmt.Sprintf(`(title ILIKE $%d OR content ILIKE $%d
		OR EXISTS (SELECT 1 FROM jsonb_array_elements_text(tags) tag WHERE tag ILIKE $%d))`,
		len(args), len(args), len(args))
	if where == "" {
		where = " WHERE " + textMatch
	} else {
		where += " AND " + textMatch
	}
	return s.queryPosts(ctx,
		`SELECT `+postColumns+` FROM community_posts`+where+` ORDER BY created_at`, args...)
}

func (s *PostgresStore) TrendingPosts(ctx context.Context, limit int) ([]CommunityPost, error) {
	return s.queryPosts(ctx, `
		SELECT `+postColumns+` FROM community_posts ORDER BY likes DESC, created_at LIMIT $1
	`, positiveLimit(limit))
}

func (s *PostgresStore) PostsByEngagement(ctx context.Context, limit int) ([]CommunityPost, error) {
	return s.queryPosts(ctx, `
		SELECT `+postColumns+` FROM community_posts
		ORDER BY likes + comment_count DESC, created_at LIMIT $1
	`, positiveLimit(limit))
}

func (s *PostgresStore) PostCategories(ctx context.Context) ([]CategoryCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, COUNT(*) FROM community_posts GROUP BY category ORDER BY COUNT(*) DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	out := []CategoryCount{}
	for rows.Next() {
		var cc CategoryCount
		if err := rows.Scan(&cc.Category, &cc.Count); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, cc)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountPosts(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM community_posts`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) requirePostAuthor(ctx context.Context, id, userID string) error {
	var authorID string
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id FROM community_posts WHERE id=$1`, id).Scan(&authorID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lookup post author: %w", err)
	}
	if authorID != userID {
		return ErrForbidden
	}
	return nil
}

func (s *PostgresStore) queryPosts(ctx context.Context, query string, args ...any) ([]CommunityPost, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	posts := []CommunityPost{}
	for rows.Next() {
		post, err := s.scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range posts {
		if err := s.attachComments(ctx, &posts[i]); err != nil {
			return nil, err
		}
	}
	return posts, nil
}

func (s *PostgresStore) scanPost(row rowScanner) (CommunityPost, error) {
	var post CommunityPost
	var tags []byte
	err := row.Scan(&post.ID, &post.UserID, &post.Username, &post.Title, &post.Content,
		&tags, &post.Category, &post.Likes, &post.CommentCount, &post.CreatedAt, &post.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return CommunityPost{}, ErrNotFound
	}
	if err != nil {
		return CommunityPost{}, fmt.Errorf("scan post: %w", err)
	}
	if err := json.Unmarshal(tags, &post.Tags); err != nil {
		return CommunityPost{}, fmt.Errorf("unmarshal tags: %w", err)
	}
	return post, nil
}

func (s *PostgresStore) attachComments(ctx context.Context, post *CommunityPost) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, username, content, created_at
		FROM post_comments WHERE post_id=$1 ORDER BY seq
	`, post.ID)
	if err != nil {
		return fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	post.Comments = []Comment{}
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.UserID, &c.Username, &c.Content, &c.CreatedAt); err != nil {
			return fmt.Errorf("scan comment: %w", err)
		}
		post.Comments = append(post.Comments, c)
	}
	return rows.Err()
}

func postFilterClause(filter PostFilter) (string, []any) {
	var clauses []string
	var args []any
	if filter.Category != "" {
		args = append(args, filter.Category)
		clauses = append(clauses, fmt.Sprintf("category=$%d", len(args)))
	}
	if filter.MinLikes > 0 {
		args = append(args, filter.MinLikes)
		clauses = append(clauses, fmt.Sprintf("likes >= $%d", len(args)))
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// postSortClause whitelists sort keys; anything unrecognized falls back to
// created_at so user input never reaches the ORDER BY verbatim.
func postSortClause(sortBy, order string) string {
	column := "created_at"
	switch sortBy {
	case "likes":
		column = "likes"
	case "commentCount":
		column = "comment_count"
	}
	if order == "asc" {
		return column + " ASC"
	}
	return column + " DESC"
}

func positiveLimit(limit int) int {
	if limit <= 0 {
		return 10
	}
	return limit
}

// ── standalone diagnosis records ──

func (s *PostgresStore) SaveDiagnosis(ctx context.Context, record DiagnosisRecord) error {
	recommendations, err := json.Marshal(record.Recommendations)
	if err != nil {
		return fmt.Errorf("marshal recommendations: %w", err)
	}
	predictions, err := json.Marshal(record.Predictions)
	if err != nil {
		return fmt.Errorf("marshal predictions: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO diagnoses (id, user_id, image_url, disease, confidence, recommendations, predictions, notes, ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, record.ID, record.UserID, record.ImageURL, record.Disease, record.Confidence,
		recommendations, predictions, record.Notes, record.Timestamp)
	if err != nil {
		return fmt.Errorf("insert diagnosis record: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListDiagnoses(ctx context.Context, userID string) ([]DiagnosisRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, image_url, disease, confidence, recommendations, predictions, notes, ts
		FROM diagnoses WHERE user_id=$1 ORDER BY ts DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query diagnoses: %w", err)
	}
	defer rows.Close()

	out := []DiagnosisRecord{}
	for rows.Next() {
		record, err := scanDiagnosisRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetDiagnosis(ctx context.Context, id, userID string) (DiagnosisRecord, error) {
	return scanDiagnosisRecord(s.db.QueryRowContext(ctx, `
		SELECT id, user_id, image_url, disease, confidence, recommendations, predictions, notes, ts
		FROM diagnoses WHERE id=$1 AND user_id=$2
	`, id, userID))
}

func (s *PostgresStore) DeleteDiagnosis(ctx context.Context, id, userID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM diagnoses WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete diagnosis: %w", err)
	}
	return requireRowAffected(result)
}

func (s *PostgresStore) DiagnosisStats(ctx context.Context, userID string) (DiagnosisStats, error) {
	var stats DiagnosisStats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE disease='healthy'),
			COALESCE(AVG(confidence), 0)
		FROM diagnoses WHERE user_id=$1
	`, userID).Scan(&stats.TotalDiagnoses, &stats.HealthyCount, &stats.AverageConfidence)
	if err != nil {
		return DiagnosisStats{}, fmt.Errorf("diagnosis stats: %w", err)
	}
	stats.DiseasedCount = stats.TotalDiagnoses - stats.HealthyCount

	err = s.db.QueryRowContext(ctx, `
		SELECT disease FROM diagnoses WHERE user_id=$1
		GROUP BY disease ORDER BY COUNT(*) DESC LIMIT 1
	`, userID).Scan(&stats.MostCommonDisease)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return DiagnosisStats{}, fmt.Errorf("most common disease: %w", err)
	}
	return stats, nil
}

func scanDiagnosisRecord(row rowScanner) (DiagnosisRecord, error) {
	var record DiagnosisRecord
	var recommendations, predictions []byte
	err := row.Scan(&record.ID, &record.UserID, &record.ImageURL, &record.Disease,
		&record.Confidence, &recommendations, &predictions, &record.Notes, &record.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return DiagnosisRecord{}, ErrNotFound
	}
	if err != nil {
		return DiagnosisRecord{}, fmt.Errorf("scan diagnosis record: %w", err)
	}
	if err := json.Unmarshal(recommendations, &record.Recommendations); err != nil {
		return DiagnosisRecord{}, fmt.Errorf("unmarshal recommendations: %w", err)
	}
	if err := json.Unmarshal(predictions, &record.Predictions); err != nil {
		return DiagnosisRecord{}, fmt.Errorf("unmarshal predictions: %w", err)
	}
	return record, nil
}

// ── refresh sessions ──

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=EXCLUDED.user_id, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (User, error) {
	var userID string
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id FROM refresh_sessions
		WHERE token_hash=$1 AND revoked_at IS NULL AND expires_at > NOW()
	`, tokenHash).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("lookup refresh session: %w", err)
	}
	return s.GetUserByID(ctx, userID)
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

func requireRowAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
