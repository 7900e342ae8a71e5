package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/geocoder89/pressroom/internal/domain/identity"
	"github.com/geocoder89/pressroom/internal/domain/post"
	"github.com/geocoder89/pressroom/internal/observability"
	"github.com/geocoder89/pressroom/internal/policy"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewPostsRepo(pool *pgxpool.Pool, prom *observability.Prom) *PostsRepo {
	return &PostsRepo{pool: pool, prom: prom}
}

func (r *PostsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *PostsRepo) Create(ctx context.Context, req post.CreatePostRequest) (post.Post, error) {
	p := post.NewFromCreateRequest(req)

	err := r.observe("posts.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO posts (id, title, body, status, author_id, published_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			p.ID, p.Title, p.Body, p.Status, p.AuthorID, p.PublishedAt, p.CreatedAt, p.UpdatedAt,
		)
		return err
	})

	if err != nil {
		return post.Post{}, err
	}

	return p, nil
}

const postColumns = `p.id, p.title, p.body, p.status, p.author_id, p.published_at, p.created_at, p.updated_at,
	u.id, u.name, u.email`

func scanPost(row pgx.Row) (post.Post, error) {
	var p post.Post
	var author identity.Ref

	err := row.Scan(
		&p.ID, &p.Title, &p.Body, &p.Status, &p.AuthorID, &p.PublishedAt, &p.CreatedAt, &p.UpdatedAt,
		&author.ID, &author.Name, &author.Email,
	)

	if err != nil {
		return post.Post{}, err
	}

	p.Author = &author

	return p, nil
}

func (r *PostsRepo) GetByID(ctx context.Context, id string) (post.Post, error) {
	var p post.Post

	err := r.observe("posts.get_by_id", func() error {
		var err error
		p, err = scanPost(r.pool.QueryRow(ctx,
			`SELECT `+postColumns+`
			FROM posts p
			JOIN users u ON u.id = p.author_id
			WHERE p.id = $1`,
			id,
		))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return post.Post{}, post.ErrNotFound
		}

		return post.Post{}, err
	}

	return p, nil
}

// filterSQL renders a policy list filter as WHERE conditions.
func filterSQL(filter policy.ListFilter) (string, []any) {
	var conds []string
	var args []any

	pos := 1

	if filter.Status != nil {
		conds = append(conds, fmt.Sprintf("p.status = $%d", pos))
		args = append(args, *filter.Status)
		pos++
	}

	if filter.OwnerID != nil {
		conds = append(conds, fmt.Sprintf("p.author_id = $%d", pos))
		args = append(args, *filter.OwnerID)
		pos++
	}

	if len(conds) == 0 {
		return "", args
	}

	return " WHERE " + strings.Join(conds, " AND "), args
}

func (r *PostsRepo) List(ctx context.Context, filter policy.ListFilter, limit, offset int) ([]post.Post, error) {
	where, args := filterSQL(filter)

	// published first, newest first; drafts fall back to creation order
	query := `SELECT ` + postColumns + `
		FROM posts p
		JOIN users u ON u.id = p.author_id` + where +
		fmt.Sprintf(" ORDER BY p.published_at DESC NULLS LAST, p.created_at DESC, p.id DESC LIMIT $%d OFFSET $%d",
			len(args)+1, len(args)+2)

	args = append(args, limit, offset)

	var out []post.Post

	err := r.observe("posts.list", func() error {
		rows, err := r.pool.Query(ctx, query, args...)

		if err != nil {
			return err
		}

		defer rows.Close()

		out = make([]post.Post, 0, limit)

		for rows.Next() {
			p, err := scanPost(rows)

			if err != nil {
				return err
			}

			out = append(out, p)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

// Count is a separate query on purpose: the total for a filter must not
// depend on the page being fetched.
func (r *PostsRepo) Count(ctx context.Context, filter policy.ListFilter) (int, error) {
	where, args := filterSQL(filter)

	var total int

	err := r.observe("posts.count", func() error {
		return r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM posts p`+where, args...).Scan(&total)
	})

	if err != nil {
		return 0, err
	}

	return total, nil
}

// Update applies a patch in a single statement so the DRAFT->PUBLISHED
// transition is atomic: the publication timestamp is written only when the
// row's current status is not yet PUBLISHED, whatever concurrent publishes
// are doing. A published row never moves back to draft here; the handler
// rejects that before we get this far, and the CASE keeps the row intact
// if it races us.
func (r *PostsRepo) Update(ctx context.Context, id string, req post.UpdatePostRequest) (post.Post, error) {
	var p post.Post

	err := r.observe("posts.update", func() error {
		var err error
		p, err = scanPost(r.pool.QueryRow(ctx,
			`UPDATE posts p
			SET title = COALESCE($2, p.title),
				body = COALESCE($3, p.body),
				published_at = CASE
					WHEN $4::text = 'PUBLISHED' AND p.status <> 'PUBLISHED' THEN NOW()
					ELSE p.published_at
				END,
				status = CASE
					WHEN $4::text IS NULL THEN p.status
					WHEN $4::text = 'DRAFT' AND p.status = 'PUBLISHED' THEN p.status
					ELSE $4::text
				END,
				updated_at = NOW()
			FROM users u
			WHERE p.id = $1 AND u.id = p.author_id
			RETURNING `+postColumns,
			id, req.Title, req.Body, req.Status,
		))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return post.Post{}, post.ErrNotFound
		}

		return post.Post{}, err
	}

	return p, nil
}
