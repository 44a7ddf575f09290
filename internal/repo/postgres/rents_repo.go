package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/househub/internal/domain/house"
	"github.com/geocoder89/househub/internal/domain/rent"
	"github.com/geocoder89/househub/internal/observability"
	"github.com/geocoder89/househub/internal/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const rentColumns = `id, amount, tenant_name, tenant_email, tenant_id, owner_id, phone, start_date, end_date, days_number, status, notes, house_id, created_at`

type RentsRepo struct {
	observer
	pool *pgxpool.Pool
}

func NewRentsRepo(pool *pgxpool.Pool, prom *observability.Prom) *RentsRepo {
	return &RentsRepo{observer: observer{prom: prom}, pool: pool}
}

func scanRent(row pgx.Row) (rent.Rent, error) {
	var (
		r          rent.Rent
		start, end time.Time
		notes      *string
	)

	err := row.Scan(
		&r.ID,
		&r.Amount,
		&r.TenantName,
		&r.TenantEmail,
		&r.TenantID,
		&r.OwnerID,
		&r.Phone,
		&start,
		&end,
		&r.DaysNumber,
		&r.Status,
		&notes,
		&r.HouseID,
		&r.CreatedAt,
	)
	if err != nil {
		return rent.Rent{}, err
	}

	r.StartDate = rent.NewDate(start)
	r.EndDate = rent.NewDate(end)
	if notes != nil {
		r.Notes = *notes
	}
	return r, nil
}

func (repo *RentsRepo) Create(ctx context.Context, r rent.Rent) (rent.Rent, error) {
	var out rent.Rent

	err := repo.observe("rents.create", func() error {
		var err error
		out, err = scanRent(repo.pool.QueryRow(ctx, `
			INSERT INTO rentals (amount, tenant_name, tenant_email, tenant_id, owner_id, phone,
			                     start_date, end_date, days_number, status, notes, house_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			RETURNING `+rentColumns,
			r.Amount, r.TenantName, r.TenantEmail, r.TenantID, r.OwnerID, r.Phone,
			r.StartDate.Time, r.EndDate.Time, r.DaysNumber, string(r.Status), r.Notes, r.HouseID, r.CreatedAt,
		))
		return err
	})

	if err != nil {
		// the listing was deleted after the handler looked it up
		if IsForeignKeyViolation(err) {
			return rent.Rent{}, house.ErrNotFound
		}
		return rent.Rent{}, err
	}
	return out, nil
}

func (repo *RentsRepo) GetByID(ctx context.Context, id int64) (rent.Rent, error) {
	var out rent.Rent

	err := repo.observe("rents.get_by_id", func() error {
		var err error
		out, err = scanRent(repo.pool.QueryRow(ctx, `SELECT `+rentColumns+` FROM rentals WHERE id = $1`, id))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rent.Rent{}, rent.ErrNotFound
		}
		return rent.Rent{}, err
	}
	return out, nil
}

// Update writes the editable columns of r. Ids and created_at never change.
func (repo *RentsRepo) Update(ctx context.Context, r rent.Rent) (rent.Rent, error) {
	var out rent.Rent

	err := repo.observe("rents.update", func() error {
		var err error
		out, err = scanRent(repo.pool.QueryRow(ctx, `
			UPDATE rentals
			SET amount = $2,
			    tenant_name = $3,
			    tenant_email = $4,
			    phone = $5,
			    start_date = $6,
			    end_date = $7,
			    days_number = $8,
			    status = $9,
			    notes = $10
			WHERE id = $1
			RETURNING `+rentColumns,
			r.ID, r.Amount, r.TenantName, r.TenantEmail, r.Phone,
			r.StartDate.Time, r.EndDate.Time, r.DaysNumber, string(r.Status), r.Notes,
		))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rent.Rent{}, rent.ErrNotFound
		}
		return rent.Rent{}, err
	}
	return out, nil
}

// ListByHouse pages through a listing's bookings, latest start date first.
func (repo *RentsRepo) ListByHouse(ctx context.Context, houseID int64, page utils.Page) ([]rent.Rent, int, error) {
	out := make([]rent.Rent, 0, page.Limit)
	total := 0

	err := repo.observe("rents.list_by_house", func() error {
		if err := repo.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM rentals WHERE house_id = $1`, houseID).Scan(&total); err != nil {
			return err
		}

		rows, err := repo.pool.Query(ctx, `
			SELECT `+rentColumns+`
			FROM rentals
			WHERE house_id = $1
			ORDER BY start_date DESC, id DESC
			LIMIT $2 OFFSET $3`,
			houseID, page.Limit, page.Offset())
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			r, err := scanRent(rows)
			if err != nil {
				return err
			}
			out = append(out, r)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
