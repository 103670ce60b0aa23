package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/postrelay/internal/post"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps posts in one table of a sqlite database.
type SQLiteStore struct {
	db    *sql.DB
	table string // quoted identifier
}

// OpenSQLite opens (creating if needed) the database at path and migrates
// the posts table named table.
func OpenSQLite(path, table string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("path is required")
	}
	if strings.TrimSpace(table) == "" {
		return nil, errors.New("table is required")
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	for _, pragma := range []string{"PRAGMA journal_mode = WAL", "PRAGMA busy_timeout = 5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	if err := migrate(ctx, db, table); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db, table: quoteIdent(table)}, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*post.Post, error) {
	if s == nil || s.db == nil {
		return nil, errNotInitialized
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := validateID(id); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT id, text, message_id, images, image_ids
		FROM %s
		WHERE id = ?
	`, s.table), id)

	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get post %s: %w", id, err)
	}
	return &p, nil
}

func (s *SQLiteStore) Put(ctx context.Context, p post.Post) error {
	if s == nil || s.db == nil {
		return errNotInitialized
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := validateID(p.ID); err != nil {
		return err
	}

	rec := toRecord(p)
	imagesJSON, err := json.Marshal(rec.Images)
	if err != nil {
		return fmt.Errorf("encode images: %w", err)
	}
	imageIDsJSON, err := json.Marshal(rec.ImageIDs)
	if err != nil {
		return fmt.Errorf("encode image ids: %w", err)
	}

	var textVal, messageIDVal sql.NullString
	if rec.Text != nil {
		textVal = sql.NullString{String: *rec.Text, Valid: true}
	}
	if rec.MessageID != nil {
		messageIDVal = sql.NullString{String: *rec.MessageID, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, text, message_id, images, image_ids, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			text = excluded.text,
			message_id = excluded.message_id,
			images = excluded.images,
			image_ids = excluded.image_ids,
			updated_at = excluded.updated_at
	`, s.table),
		rec.ID,
		textVal,
		messageIDVal,
		string(imagesJSON),
		string(imageIDsJSON),
		formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("put post %s: %w", p.ID, err)
	}

	return nil
}

func (s *SQLiteStore) Scan(ctx context.Context) ([]post.Post, error) {
	if s == nil || s.db == nil {
		return nil, errNotInitialized
	}
	if ctx == nil {
		ctx = context.Background()
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, text, message_id, images, image_ids
		FROM %s
		ORDER BY id ASC
	`, s.table))
	if err != nil {
		return nil, fmt.Errorf("scan posts: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var posts []post.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}

	return posts, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return errNotInitialized
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := validateID(id); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", s.table), id); err != nil {
		return fmt.Errorf("delete post %s: %w", id, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(scanner rowScanner) (post.Post, error) {
	var (
		rec                    record
		textVal, messageIDVal  sql.NullString
		imagesVal, imageIDsVal string
	)

	if err := scanner.Scan(&rec.ID, &textVal, &messageIDVal, &imagesVal, &imageIDsVal); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return post.Post{}, err
		}
		return post.Post{}, fmt.Errorf("scan post: %w", err)
	}

	if textVal.Valid {
		rec.Text = post.StringPtr(textVal.String)
	}
	if messageIDVal.Valid {
		rec.MessageID = post.StringPtr(messageIDVal.String)
	}
	if imagesVal != "" {
		if err := json.Unmarshal([]byte(imagesVal), &rec.Images); err != nil {
			return post.Post{}, fmt.Errorf("decode images: %w", err)
		}
	}
	if imageIDsVal != "" {
		if err := json.Unmarshal([]byte(imageIDsVal), &rec.ImageIDs); err != nil {
			return post.Post{}, fmt.Errorf("decode image ids: %w", err)
		}
	}

	return rec.post()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
