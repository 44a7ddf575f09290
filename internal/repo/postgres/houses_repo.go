package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/geocoder89/househub/internal/domain/house"
	"github.com/geocoder89/househub/internal/observability"
	"github.com/geocoder89/househub/internal/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const houseColumns = `id, owner_id, owner_name, posted_by, images, status, description, price_per_day, location, created_at`

type HousesRepo struct {
	observer
	pool     *pgxpool.Pool
	cleanups *CleanupRepo
}

func NewHousesRepo(pool *pgxpool.Pool, prom *observability.Prom, cleanups *CleanupRepo) *HousesRepo {
	return &HousesRepo{observer: observer{prom: prom}, pool: pool, cleanups: cleanups}
}

func scanHouse(row pgx.Row) (house.House, error) {
	var h house.House
	err := row.Scan(
		&h.ID,
		&h.OwnerID,
		&h.OwnerName,
		&h.PostedBy,
		&h.Images,
		&h.Status,
		&h.Description,
		&h.PricePerDay,
		&h.Location,
		&h.CreatedAt,
	)
	return h, err
}

func (r *HousesRepo) Create(ctx context.Context, h house.House) (house.House, error) {
	var out house.House

	err := r.observe("houses.create", func() error {
		var err error
		out, err = scanHouse(r.pool.QueryRow(ctx, `
			INSERT INTO houses (owner_id, owner_name, posted_by, images, status, description, price_per_day, location, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING `+houseColumns,
			h.OwnerID, h.OwnerName, string(h.PostedBy), h.Images, string(h.Status),
			h.Description, h.PricePerDay, h.Location, h.CreatedAt,
		))
		return err
	})

	if err != nil {
		return house.House{}, err
	}
	return out, nil
}

// List returns one page, newest first, and the total number of listings.
func (r *HousesRepo) List(ctx context.Context, page utils.Page) ([]house.House, int, error) {
	out := make([]house.House, 0, page.Limit)
	total := 0

	err := r.observe("houses.list", func() error {
		if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM houses`).Scan(&total); err != nil {
			return err
		}

		rows, err := r.pool.Query(ctx,
			`SELECT `+houseColumns+` FROM houses ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`,
			page.Limit, page.Offset())
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			h, err := scanHouse(rows)
			if err != nil {
				return err
			}
			out = append(out, h)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *HousesRepo) GetByID(ctx context.Context, id int64) (house.House, error) {
	var h house.House

	err := r.observe("houses.get_by_id", func() error {
		var err error
		h, err = scanHouse(r.pool.QueryRow(ctx, `SELECT `+houseColumns+` FROM houses WHERE id = $1`, id))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return house.House{}, house.ErrNotFound
		}
		return house.House{}, err
	}
	return h, nil
}

// Update replaces the listing and, in the same transaction, logs every image
// the new version no longer references. The returned slice lists those
// images; the caller removes them after commit.
func (r *HousesRepo) Update(ctx context.Context, id int64, u house.Update) (house.House, []string, error) {
	var (
		updated house.House
		removed []string
	)

	err := r.inTx(ctx, "houses.update", func(tx pgx.Tx) error {
		current, err := scanHouse(tx.QueryRow(ctx,
			`SELECT `+houseColumns+` FROM houses WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}

		var next house.House
		next, removed = u.Apply(current)

		updated, err = scanHouse(tx.QueryRow(ctx, `
			UPDATE houses
			SET owner_id = $2,
			    owner_name = $3,
			    posted_by = $4,
			    images = $5,
			    status = $6,
			    description = $7,
			    price_per_day = $8,
			    location = $9
			WHERE id = $1
			RETURNING `+houseColumns,
			id, next.OwnerID, next.OwnerName, string(next.PostedBy), next.Images,
			string(next.Status), next.Description, next.PricePerDay, next.Location,
		))
		if err != nil {
			return err
		}

		return r.enqueue(ctx, tx, removed)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return house.House{}, nil, house.ErrNotFound
		}
		return house.House{}, nil, err
	}
	return updated, removed, nil
}

// Delete removes the listing (its bookings cascade) and logs all its images
// for removal in the same transaction.
func (r *HousesRepo) Delete(ctx context.Context, id int64) (house.House, error) {
	var deleted house.House

	err := r.inTx(ctx, "houses.delete", func(tx pgx.Tx) error {
		var err error
		deleted, err = scanHouse(tx.QueryRow(ctx,
			`DELETE FROM houses WHERE id = $1 RETURNING `+houseColumns, id))
		if err != nil {
			return err
		}
		return r.enqueue(ctx, tx, deleted.Images)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return house.House{}, house.ErrNotFound
		}
		return house.House{}, err
	}
	return deleted, nil
}

func (r *HousesRepo) enqueue(ctx context.Context, tx pgx.Tx, paths []string) error {
	if r.cleanups == nil {
		return nil
	}
	return r.cleanups.EnqueueTx(ctx, tx, paths)
}

func (r *HousesRepo) inTx(ctx context.Context, op string, fn func(tx pgx.Tx) error) error {
	return r.observe(op, func() error {
		tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer func() { _ = tx.Rollback(ctx) }()

		if err := fn(tx); err != nil {
			return err
		}
		return tx.Commit(ctx)
	})
}
