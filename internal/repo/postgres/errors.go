package postgres

import (
	"errors"

	"github.com/geocoder89/househub/internal/observability"
	"github.com/jackc/pgx/v5/pgconn"
)

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	return false
}

// observer wraps repo calls in the Prometheus DB histogram. A nil prom
// just runs fn.
type observer struct {
	prom *observability.Prom
}

func (o observer) observe(op string, fn func() error) error {
	return o.prom.ObserveDB(op, fn)
}

func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
