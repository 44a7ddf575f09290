// Package memory holds process-local repositories used when STORE_BACKEND is
// "memory" and by the router tests. All three repos share one lock so a
// listing delete can cascade to its bookings the way the SQL schema does.
package memory

import (
	"sync"

	"github.com/geocoder89/househub/internal/domain/house"
	"github.com/geocoder89/househub/internal/domain/rent"
	"github.com/geocoder89/househub/internal/domain/user"
)

type Store struct {
	mu sync.RWMutex

	users  map[int64]user.User
	houses map[int64]house.House
	rents  map[int64]rent.Rent

	nextUserID  int64
	nextHouseID int64
	nextRentID  int64
}

func NewStore() *Store {
	return &Store{
		users:  make(map[int64]user.User),
		houses: make(map[int64]house.House),
		rents:  make(map[int64]rent.Rent),
	}
}

func (s *Store) Users() *UsersRepo   { return &UsersRepo{s: s} }
func (s *Store) Houses() *HousesRepo { return &HousesRepo{s: s} }
func (s *Store) Rents() *RentsRepo   { return &RentsRepo{s: s} }
