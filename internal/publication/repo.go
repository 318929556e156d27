package publication

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"novelhub/pkg/models"
)

// Repo is the sqlite catalog of publications and their builds.
type Repo struct {
	DB *sql.DB
}

type ListQuery struct {
	Q      string // keyword search in title/author
	Limit  int
	Offset int
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// UpsertPublication inserts p or refreshes the stored row.
func (r *Repo) UpsertPublication(ctx context.Context, p models.Publication) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO publications (id, title, author, description, cover_url, total_chapters, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		  title = excluded.title,
		  author = excluded.author,
		  description = excluded.description,
		  cover_url = excluded.cover_url,
		  total_chapters = excluded.total_chapters,
		  updated_at = excluded.updated_at
	`, p.ID, p.Title, p.Author, p.Description, p.CoverURL, p.TotalChapters, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert publication %s: %w", p.ID, err)
	}
	return nil
}

// RecordBuild stores a finished build.
func (r *Repo) RecordBuild(ctx context.Context, b models.Build) error {
	missing, err := json.Marshal(b.Missing)
	if err != nil {
		return fmt.Errorf("marshal missing chapters for %s: %w", b.ID, err)
	}
	_, err = r.DB.ExecContext(ctx, `
		INSERT INTO builds (id, publication_id, start_chapter, end_chapter, path, checksum, chapters, missing, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, b.ID, b.PublicationID, b.Start, b.End, b.Path, b.Checksum, b.Chapters, string(missing), b.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert build %s: %w", b.ID, err)
	}
	return nil
}

const publicationColumns = `id, title, author, description, cover_url, total_chapters, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanPublication(row scanner) (models.Publication, error) {
	var (
		p           models.Publication
		author      sql.NullString
		description sql.NullString
		coverURL    sql.NullString
	)
	if err := row.Scan(&p.ID, &p.Title, &author, &description, &coverURL, &p.TotalChapters, &p.UpdatedAt); err != nil {
		return p, err
	}
	p.Author = author.String
	p.Description = description.String
	p.CoverURL = coverURL.String
	return p, nil
}

// GetByID returns nil, nil when the publication is unknown.
func (r *Repo) GetByID(ctx context.Context, id string) (*models.Publication, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+publicationColumns+` FROM publications WHERE id = ?`, id)
	p, err := scanPublication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan getByID: %w", err)
	}
	return &p, nil
}

func (r *Repo) Count(ctx context.Context, q ListQuery) (int, error) {
	sqlStr, args := buildListSQL(q, true)
	var total int
	if err := r.DB.QueryRowContext(ctx, sqlStr, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count scan: %w", err)
	}
	return total, nil
}

func (r *Repo) List(ctx context.Context, q ListQuery) ([]models.Publication, error) {
	sqlStr, args := buildListSQL(q, false)

	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list query: %w", err)
	}
	defer rows.Close()

	out := make([]models.Publication, 0)
	for rows.Next() {
		p, err := scanPublication(rows)
		if err != nil {
			return nil, fmt.Errorf("list scan: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// buildListSQL builds either COUNT(*) or SELECT list.
func buildListSQL(q ListQuery, countOnly bool) (string, []any) {
	sqlStr := `SELECT ` + publicationColumns + ` FROM publications`
	if countOnly {
		sqlStr = `SELECT COUNT(*) FROM publications`
	}

	var args []any
	// LIKE folds ASCII case only; Cyrillic keywords match as typed.
	if kw := strings.TrimSpace(q.Q); kw != "" {
		sqlStr += " WHERE (title LIKE ? OR author LIKE ?)"
		kw = "%" + kw + "%"
		args = append(args, kw, kw)
	}

	if !countOnly {
		sqlStr += " ORDER BY title ASC LIMIT ? OFFSET ?"
		limit := q.Limit
		if limit <= 0 || limit > 100 {
			limit = 20
		}
		offset := q.Offset
		if offset < 0 {
			offset = 0
		}
		args = append(args, limit, offset)
	}
	return sqlStr, args
}

const buildColumns = `id, publication_id, start_chapter, end_chapter, path, checksum, chapters, missing, created_at`

func scanBuild(row scanner) (models.Build, error) {
	var (
		b        models.Build
		checksum sql.NullString
		missing  sql.NullString
	)
	if err := row.Scan(&b.ID, &b.PublicationID, &b.Start, &b.End, &b.Path, &checksum, &b.Chapters, &missing, &b.CreatedAt); err != nil {
		return b, err
	}
	b.Checksum = checksum.String
	if missing.Valid && missing.String != "" {
		_ = json.Unmarshal([]byte(missing.String), &b.Missing)
	}
	return b, nil
}

// ListBuilds returns the builds of a publication, newest first.
func (r *Repo) ListBuilds(ctx context.Context, publicationID string) ([]models.Build, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+buildColumns+` FROM builds WHERE publication_id = ? ORDER BY created_at DESC`, publicationID)
	if err != nil {
		return nil, fmt.Errorf("list builds: %w", err)
	}
	defer rows.Close()

	out := make([]models.Build, 0)
	for rows.Next() {
		b, err := scanBuild(rows)
		if err != nil {
			return nil, fmt.Errorf("scan build: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// GetBuild returns nil, nil when the build is unknown.
func (r *Repo) GetBuild(ctx context.Context, id string) (*models.Build, error) {
	b, err := scanBuild(r.DB.QueryRowContext(ctx, `SELECT `+buildColumns+` FROM builds WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan getBuild: %w", err)
	}
	return &b, nil
}
