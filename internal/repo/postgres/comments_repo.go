package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/pressroom/internal/domain/comment"
	"github.com/geocoder89/pressroom/internal/domain/identity"
	"github.com/geocoder89/pressroom/internal/observability"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CommentsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewCommentsRepo(pool *pgxpool.Pool, prom *observability.Prom) *CommentsRepo {
	return &CommentsRepo{pool: pool, prom: prom}
}

func (r *CommentsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *CommentsRepo) Create(ctx context.Context, req comment.CreateCommentRequest) (comment.Comment, error) {
	c := comment.NewFromCreateRequest(req)

	var author identity.Ref

	err := r.observe("comments.create", func() error {
		return r.pool.QueryRow(ctx,
			`WITH inserted AS (
				INSERT INTO comments (id, post_id, author_id, message, created_at)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING author_id
			)
			SELECT u.id, u.name, u.email
			FROM inserted i
			JOIN users u ON u.id = i.author_id`,
			c.ID, c.PostID, c.AuthorID, c.Message, c.CreatedAt,
		).Scan(&author.ID, &author.Name, &author.Email)
	})

	if err != nil {
		var pgErr *pgconn.PgError

		// FK violation: the post vanished between the visibility check and here
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return comment.Comment{}, comment.ErrNotFound
		}

		return comment.Comment{}, err
	}

	c.Author = &author

	return c, nil
}

// Oldest first, the order a discussion reads in.
func (r *CommentsRepo) ListByPost(ctx context.Context, postID string, limit, offset int) ([]comment.Comment, error) {
	var out []comment.Comment

	err := r.observe("comments.list_by_post", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT c.id, c.post_id, c.author_id, c.message, c.created_at, u.id, u.name, u.email
			FROM comments c
			JOIN users u ON u.id = c.author_id
			WHERE c.post_id = $1
			ORDER BY c.created_at ASC, c.id ASC
			LIMIT $2 OFFSET $3`,
			postID, limit, offset,
		)

		if err != nil {
			return err
		}

		defer rows.Close()

		out = make([]comment.Comment, 0, limit)

		for rows.Next() {
			var c comment.Comment
			var author identity.Ref

			err = rows.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.Message, &c.CreatedAt,
				&author.ID, &author.Name, &author.Email)

			if err != nil {
				return err
			}

			c.Author = &author
			out = append(out, c)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *CommentsRepo) CountByPost(ctx context.Context, postID string) (int, error) {
	var total int

	err := r.observe("comments.count_by_post", func() error {
		return r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM comments WHERE post_id = $1`, postID).Scan(&total)
	})

	if err != nil {
		return 0, err
	}

	return total, nil
}
