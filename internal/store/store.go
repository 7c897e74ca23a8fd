// Package store persists scraped articles and their LLM evaluations in
// SQLite. A single write connection with WAL journaling keeps the scraper
// and analyzer from tripping over each other.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Processing states for the articles table.
const (
	StatusPending   = "pending"
	StatusProcessed = "processed"
	StatusFailed    = "failed"
)

// ErrDuplicateURL is returned when inserting an article whose URL is
// already stored.
var ErrDuplicateURL = errors.New("article URL already stored")

// Article mirrors one row of the articles table.
type Article struct {
	ID              int64
	Title           string
	URL             string
	PublicationDate string
	ScrapedAt       time.Time
	ArticleText     string
	AttachmentsText string
	Status          string
}

// Evaluation is an LLM verdict for one article.
type Evaluation struct {
	Verdict    string
	Reasoning  string
	Confidence float64
}

// Store wraps the SQLite article database.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

const createArticlesTable = `
CREATE TABLE IF NOT EXISTS articles (
    id INTEGER PRIMARY KEY,
    title TEXT NOT NULL,
    url TEXT NOT NULL UNIQUE,
    publication_date TEXT,
    scraped_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP NOT NULL,
    article_text TEXT,
    attachments_text TEXT,
    processing_status TEXT NOT NULL DEFAULT 'pending',
    llm_evaluation TEXT,
    llm_reasoning TEXT,
    llm_confidence REAL
);`

// Open initializes the SQLite database at the given path, creating the
// schema when missing. Safe to call repeatedly on the same file.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %s: %w", pragma, err)
		}
	}

	s := &Store{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize() error {
	if _, err := s.db.Exec(createArticlesTable); err != nil {
		return fmt.Errorf("failed to create articles table: %w", err)
	}
	if err := RunMigrations(s.db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// HasURL reports whether an article with this URL is already stored.
func (s *Store) HasURL(url string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var one int
	err := s.db.QueryRow("SELECT 1 FROM articles WHERE url = ?", url).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query url: %w", err)
	}
	return true, nil
}

// InsertArticle stores a newly scraped article as pending. Returns
// ErrDuplicateURL when the URL is already present.
func (s *Store) InsertArticle(a *Article) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`INSERT OR IGNORE INTO articles
		 (title, url, publication_date, article_text, attachments_text, processing_status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.Title, a.URL, a.PublicationDate, a.ArticleText, a.AttachmentsText, StatusPending,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert article: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return 0, ErrDuplicateURL
	}
	return res.LastInsertId()
}

// PendingArticles returns up to limit articles awaiting analysis, oldest
// first. limit <= 0 returns all.
func (s *Store) PendingArticles(limit int) ([]Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, title, url, COALESCE(publication_date, ''), scraped_at,
	                 COALESCE(article_text, ''), COALESCE(attachments_text, ''), processing_status
	          FROM articles WHERE processing_status = ? ORDER BY id`
	args := []interface{}{StatusPending}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending articles: %w", err)
	}
	defer rows.Close()

	var out []Article
	for rows.Next() {
		var a Article
		if err := rows.Scan(&a.ID, &a.Title, &a.URL, &a.PublicationDate, &a.ScrapedAt,
			&a.ArticleText, &a.AttachmentsText, &a.Status); err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SaveEvaluation records an LLM verdict and marks the article processed.
func (s *Store) SaveEvaluation(id int64, ev Evaluation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`UPDATE articles
		 SET llm_evaluation = ?, llm_reasoning = ?, llm_confidence = ?, processing_status = ?
		 WHERE id = ?`,
		ev.Verdict, ev.Reasoning, ev.Confidence, StatusProcessed, id,
	)
	if err != nil {
		return fmt.Errorf("failed to save evaluation: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("no article with id %d", id)
	}
	return nil
}

// MarkFailed flags an article whose analysis could not complete.
func (s *Store) MarkFailed(id int64, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		"UPDATE articles SET processing_status = ?, llm_reasoning = ? WHERE id = ?",
		StatusFailed, reason, id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark article failed: %w", err)
	}
	return nil
}

// ResetFailed moves failed articles back to pending so a later run retries
// them.
func (s *Store) ResetFailed() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		"UPDATE articles SET processing_status = ? WHERE processing_status = ?",
		StatusPending, StatusFailed,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to reset failed articles: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns article counts per processing status.
func (s *Store) Stats() (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		"SELECT processing_status, COUNT(*) FROM articles GROUP BY processing_status")
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan stats: %w", err)
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// GetDB exposes the underlying handle for migrations and tests.
func (s *Store) GetDB() *sql.DB {
	return s.db
}
