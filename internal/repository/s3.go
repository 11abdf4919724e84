package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/debemdeboas/pagedraft/internal/model"
	"github.com/debemdeboas/pagedraft/internal/util"
	"github.com/debemdeboas/pagedraft/internal/util/compression"
)

const (
	defaultS3ReloadInterval = 30 * time.Second
	s3ObjectSuffix          = ".json.zst"
)

// S3API is the part of the S3 client the repository uses.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3PageRepository keeps one zstd-compressed JSON object per record.
type S3PageRepository struct { // implements PageRepository
	client S3API
	bucket string
	prefix string

	index          *postIndex
	reloadInterval time.Duration

	compressor compression.Compressor
}

// NewS3Client builds a client for an S3-compatible endpoint with static credentials.
func NewS3Client(ctx context.Context, accessKeyID, accessKeySecret, baseEndpoint string) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, accessKeySecret, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("error initializing S3 client: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if baseEndpoint != "" {
			o.BaseEndpoint = aws.String(baseEndpoint)
		}
		o.UsePathStyle = true
	}), nil
}

func NewS3PageRepository(client S3API, bucket, prefix string) *S3PageRepository {
	return &S3PageRepository{
		client: client,
		bucket: bucket,
		prefix: prefix,

		index:          newPostIndex(),
		reloadInterval: defaultS3ReloadInterval,

		compressor: compression.ZstdCompressor{},
	}
}

func (r *S3PageRepository) key(id model.PostID) string {
	return r.prefix + string(id) + s3ObjectSuffix
}

func (r *S3PageRepository) Init(ctx context.Context) error {
	posts, err := r.GetPosts(ctx)
	if err != nil {
		return fmt.Errorf("error initializing posts: %w", err)
	}
	r.index.replace(posts)
	return nil
}

func (r *S3PageRepository) NewPost() *model.Post {
	return newPost()
}

func (r *S3PageRepository) GetPosts(ctx context.Context) ([]model.Post, error) {
	paginator := s3.NewListObjectsV2Paginator(r.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(r.bucket),
		Prefix: aws.String(r.prefix),
	})

	posts := make([]model.Post, 0)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("error listing objects: %w", err)
		}

		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if !strings.HasSuffix(key, s3ObjectSuffix) {
				continue
			}

			post, err := r.getObject(ctx, key)
			if err != nil {
				return nil, err
			}
			posts = append(posts, *post)
		}
	}

	return posts, nil
}

func (r *S3PageRepository) getObject(ctx context.Context, key string) (*model.Post, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("%w: %s", ErrPostNotFound, key)
		}
		return nil, fmt.Errorf("error getting object %s: %w", key, err)
	}
	defer out.Body.Close()

	compressed, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading object %s: %w", key, err)
	}

	data, err := r.compressor.Decompress(compressed)
	if err != nil {
		return nil, fmt.Errorf("error decompressing object %s: %w", key, err)
	}

	var post model.Post
	if err := json.Unmarshal(data, &post); err != nil {
		return nil, fmt.Errorf("error decoding object %s: %w", key, err)
	}
	post.Title = model.NewTitle(post.Title.Raw)
	return &post, nil
}

func (r *S3PageRepository) GetPostList(postType string) []model.Post {
	return r.index.list(postType)
}

func (r *S3PageRepository) ReadPost(ctx context.Context, id model.PostID) (*model.Post, error) {
	if post, ok := r.index.get(id); ok {
		cp := *post
		return &cp, nil
	}
	return r.getObject(ctx, r.key(id))
}

// SlugExists answers from the index; the bucket has no secondary lookups.
func (r *S3PageRepository) SlugExists(_ context.Context, postType, slug string) (bool, error) {
	return r.index.slugExists(postType, slug), nil
}

func (r *S3PageRepository) SavePost(ctx context.Context, post *model.Post) error {
	if r.index.slugExists(post.Type, post.Slug) {
		return fmt.Errorf("%w: %s", ErrSlugTaken, post.Slug)
	}

	post.ContentHash = util.ContentHashString(post.Content.Raw)

	data, err := json.Marshal(post)
	if err != nil {
		return fmt.Errorf("error encoding post: %w", err)
	}
	compressed, err := r.compressor.Compress(data)
	if err != nil {
		return fmt.Errorf("error compressing post: %w", err)
	}

	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(r.key(post.ID)),
		Body:        bytes.NewReader(compressed),
		ContentType: aws.String("application/zstd"),
	})
	if err != nil {
		return fmt.Errorf("error saving post: %w", err)
	}

	repoLogger.Debug().Str("post_id", string(post.ID)).Str("bucket", r.bucket).Msg("Post saved")

	r.index.put(post)
	return nil
}

func (r *S3PageRepository) refresh(ctx context.Context) {
	posts, err := r.GetPosts(ctx)
	if err != nil {
		repoLogger.Error().Err(err).Msg("Error reloading posts")
		return
	}
	if r.index.replace(posts) {
		repoLogger.Info().Msg("Posts have changed, updated cache")
	}
}

func (r *S3PageRepository) ReloadPosts(ctx context.Context) {
	poll(ctx, r.reloadInterval, r.refresh)
}

func (r *S3PageRepository) SetReloadNotifier(notifier func(model.PostID)) {
	r.index.setReloadNotifier(notifier)
}
