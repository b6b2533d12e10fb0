package database

import (
	"fmt"
	"time"
)

const DefaultListLimit = 20

// SQLitePostRepository handles database operations for the post history
type SQLitePostRepository struct {
	db *DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *DB) *SQLitePostRepository {
	return &SQLitePostRepository{db: db}
}

// RecordPost stores a published status and returns its row id
func (r *SQLitePostRepository) RecordPost(record PostRecord) (int64, error) {
	if record.ItemURL == "" || record.PostURL == "" {
		return 0, fmt.Errorf("item url and post url are required")
	}

	postedAt := record.PostedAt
	if postedAt.IsZero() {
		postedAt = time.Now()
	}

	res, err := r.db.Exec(`
		INSERT INTO posts (item_url, post_url, title, media_count, posted_at)
		VALUES (?, ?, ?, ?, ?)
	`, record.ItemURL, record.PostURL, record.Title, record.MediaCount, postedAt.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to record post: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get post id: %w", err)
	}

	return id, nil
}

// ListPosts returns the most recent posts, newest first
func (r *SQLitePostRepository) ListPosts(limit int) ([]PostRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := r.db.Query(`
		SELECT id, item_url, post_url, title, media_count, posted_at
		FROM posts
		ORDER BY posted_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	posts := make([]PostRecord, 0, limit)
	for rows.Next() {
		var p PostRecord
		var postedAt int64
		if err := rows.Scan(&p.ID, &p.ItemURL, &p.PostURL, &p.Title, &p.MediaCount, &postedAt); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		p.PostedAt = time.UnixMilli(postedAt).UTC()
		posts = append(posts, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate posts: %w", err)
	}

	return posts, nil
}

// CountPosts returns the total number of recorded posts
func (r *SQLitePostRepository) CountPosts() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM posts`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}
	return count, nil
}
