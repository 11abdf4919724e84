package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/debemdeboas/pagedraft/internal/db"
	"github.com/debemdeboas/pagedraft/internal/model"
	"github.com/debemdeboas/pagedraft/internal/util"
	"github.com/debemdeboas/pagedraft/internal/util/compression"
)

const defaultDBReloadInterval = 10 * time.Second

type DBPageRepository struct { // implements PageRepository
	index *postIndex

	lastModifiedTime *time.Time
	reloadInterval   time.Duration

	db         db.DB
	compressor compression.Compressor
}

func NewDBPageRepository(database db.DB) *DBPageRepository {
	return &DBPageRepository{
		index:          newPostIndex(),
		reloadInterval: defaultDBReloadInterval,

		db:         database,
		compressor: compression.ZstdCompressor{},
	}
}

func (r *DBPageRepository) Init(ctx context.Context) error {
	posts, latest, err := r.GetPosts(ctx)
	if err != nil {
		return fmt.Errorf("error initializing posts: %w", err)
	}
	r.index.replace(posts)
	r.lastModifiedTime = latest
	return nil
}

func (r *DBPageRepository) NewPost() *model.Post {
	return newPost()
}

func (r *DBPageRepository) GetLatestModifiedTime(ctx context.Context) (*time.Time, error) {
	var latestTimeStr sql.NullString
	row := r.db.QueryRowContext(ctx, `SELECT MAX(modified_at) FROM posts`)
	if err := row.Scan(&latestTimeStr); err != nil {
		return nil, fmt.Errorf("error scanning latest modified time: %w", err)
	}

	if !latestTimeStr.Valid {
		return nil, nil
	}

	// go-sqlite3 returns MAX() as a string in one of several layouts.
	timeFormats := []string{
		"2006-01-02 15:04:05.999999999-07:00",
		time.RFC3339Nano,
		time.RFC3339,
	}

	var parseErr error
	for _, format := range timeFormats {
		latestTime, err := time.Parse(format, latestTimeStr.String)
		if err == nil {
			return &latestTime, nil
		}
		parseErr = err
	}

	return nil, fmt.Errorf("error parsing latest modified time '%s' with any known format: %w", latestTimeStr.String, parseErr)
}

const selectPosts = `SELECT id, type, status, slug, title, content, content_hash, user_id, created_at, modified_at FROM posts`

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *DBPageRepository) scanPost(row rowScanner) (*model.Post, error) {
	var post model.Post
	var title string
	var compressed []byte
	var hash, owner sql.NullString

	err := row.Scan(&post.ID, &post.Type, &post.Status, &post.Slug, &title, &compressed, &hash, &owner, &post.CreatedDate, &post.ModifiedDate)
	if err != nil {
		return nil, err
	}

	post.Title = model.NewTitle(title)
	post.ContentHash = hash.String
	post.Owner = model.UserID(owner.String)

	if len(compressed) > 0 {
		content, err := r.compressor.Decompress(compressed)
		if err != nil {
			return nil, fmt.Errorf("error decompressing content of %s: %w", post.ID, err)
		}
		post.Content.Raw = string(content)
	}

	return &post, nil
}

// GetPosts loads every record and the latest modification time among them.
func (r *DBPageRepository) GetPosts(ctx context.Context) ([]model.Post, *time.Time, error) {
	rows, err := r.db.QueryContext(ctx, selectPosts)
	if err != nil {
		return nil, nil, fmt.Errorf("error querying posts: %w", err)
	}
	defer rows.Close()

	posts := make([]model.Post, 0)
	var latest *time.Time
	for rows.Next() {
		post, err := r.scanPost(rows)
		if err != nil {
			return nil, nil, fmt.Errorf("error scanning post: %w", err)
		}
		if latest == nil || post.ModifiedDate.After(*latest) {
			modified := post.ModifiedDate
			latest = &modified
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating posts: %w", err)
	}

	return posts, latest, nil
}

func (r *DBPageRepository) GetPostList(postType string) []model.Post {
	return r.index.list(postType)
}

func (r *DBPageRepository) ReadPost(ctx context.Context, id model.PostID) (*model.Post, error) {
	if post, ok := r.index.get(id); ok {
		cp := *post
		return &cp, nil
	}

	post, err := r.scanPost(r.db.QueryRowContext(ctx, selectPosts+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrPostNotFound, id)
	} else if err != nil {
		return nil, fmt.Errorf("error reading post %s: %w", id, err)
	}
	return post, nil
}

func (r *DBPageRepository) SlugExists(ctx context.Context, postType, slug string) (bool, error) {
	var n int
	row := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM posts WHERE type = ? AND slug = ?`, postType, slug)
	if err := row.Scan(&n); err != nil {
		return false, fmt.Errorf("error checking slug: %w", err)
	}
	return n > 0, nil
}

func (r *DBPageRepository) SavePost(ctx context.Context, post *model.Post) error {
	var compressed []byte
	if post.Content.Raw != "" {
		var err error
		compressed, err = r.compressor.Compress([]byte(post.Content.Raw))
		if err != nil {
			return fmt.Errorf("error compressing content: %w", err)
		}
	}

	post.ContentHash = util.ContentHash(compressed)

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO posts (id, type, status, slug, title, content, content_hash, user_id, created_at, modified_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		post.ID, post.Type, post.Status, post.Slug, post.Title.Raw, compressed, post.ContentHash, post.Owner, post.CreatedDate, post.ModifiedDate,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("%w: %s", ErrSlugTaken, post.Slug)
		}
		return fmt.Errorf("error saving post: %w", err)
	}

	repoLogger.Debug().Interface("result", res).Str("post_id", string(post.ID)).Msg("Post saved")

	r.index.put(post)
	return nil
}

// refresh reloads the index when the table changed since the last load.
func (r *DBPageRepository) refresh(ctx context.Context) {
	latestTime, err := r.GetLatestModifiedTime(ctx)
	if err != nil {
		repoLogger.Error().Err(err).Msg("Error checking latest modification time")
		return
	}

	if r.lastModifiedTime != nil && latestTime != nil && !latestTime.After(*r.lastModifiedTime) {
		repoLogger.Debug().Msg("No posts modified, skipping reload")
		return
	}

	posts, latest, err := r.GetPosts(ctx)
	if err != nil {
		repoLogger.Error().Err(err).Msg("Error reloading posts")
		return
	}
	if r.index.replace(posts) {
		repoLogger.Info().Msg("Posts have changed, updated cache")
	}
	r.lastModifiedTime = latest
}

func (r *DBPageRepository) ReloadPosts(ctx context.Context) {
	poll(ctx, r.reloadInterval, r.refresh)
}

func (r *DBPageRepository) SetReloadNotifier(notifier func(model.PostID)) {
	r.index.setReloadNotifier(notifier)
}
