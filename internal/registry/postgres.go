package registry

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"memed/internal/httpkit"
)

// ErrTemplateExists is returned when inserting a duplicate template ID.
var ErrTemplateExists = errors.New("template already exists")

// Postgres is the production catalog backed by the templates table.
type Postgres struct {
	db *pgxpool.Pool
}

func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Create(ctx context.Context, t *Template) error {
	_, err := p.db.Exec(ctx, `
		INSERT INTO templates (id, name, line_count, styles, animated, image_path, example)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, t.ID, t.Name, t.Lines, t.Styles, t.Animated, t.ImagePath, t.Example)

	if err != nil {
		if httpkit.IsUniqueViolation(err) {
			return ErrTemplateExists
		}
		return err
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, id string) (*Template, error) {
	var t Template
	err := p.db.QueryRow(ctx, `
		SELECT id, name, line_count, styles, animated, image_path, example
		FROM templates
		WHERE id=$1 AND deleted_at IS NULL
	`, id).Scan(
		&t.ID,
		&t.Name,
		&t.Lines,
		&t.Styles,
		&t.Animated,
		&t.ImagePath,
		&t.Example,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (p *Postgres) List(ctx context.Context) ([]*Template, error) {
	rows, err := p.db.Query(ctx, `
		SELECT id, name, line_count, styles, animated, image_path, example
		FROM templates
		WHERE deleted_at IS NULL
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Template
	for rows.Next() {
		var t Template
		if err := rows.Scan(&t.ID, &t.Name, &t.Lines, &t.Styles, &t.Animated, &t.ImagePath, &t.Example); err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}
