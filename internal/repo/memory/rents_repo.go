package memory

import (
	"context"
	"sort"

	"github.com/geocoder89/househub/internal/domain/house"
	"github.com/geocoder89/househub/internal/domain/rent"
	"github.com/geocoder89/househub/internal/utils"
)

type RentsRepo struct {
	s *Store
}

// Create enforces the rentals.house_id foreign key.
func (r *RentsRepo) Create(_ context.Context, rt rent.Rent) (rent.Rent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.houses[rt.HouseID]; !ok {
		return rent.Rent{}, house.ErrNotFound
	}

	r.s.nextRentID++
	rt.ID = r.s.nextRentID
	r.s.rents[rt.ID] = rt
	return rt, nil
}

func (r *RentsRepo) GetByID(_ context.Context, id int64) (rent.Rent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rt, ok := r.s.rents[id]
	if !ok {
		return rent.Rent{}, rent.ErrNotFound
	}
	return rt, nil
}

func (r *RentsRepo) Update(_ context.Context, rt rent.Rent) (rent.Rent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.rents[rt.ID]
	if !ok {
		return rent.Rent{}, rent.ErrNotFound
	}

	rt.TenantID = current.TenantID
	rt.OwnerID = current.OwnerID
	rt.HouseID = current.HouseID
	rt.CreatedAt = current.CreatedAt

	r.s.rents[rt.ID] = rt
	return rt, nil
}

func (r *RentsRepo) ListByHouse(_ context.Context, houseID int64, page utils.Page) ([]rent.Rent, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	all := make([]rent.Rent, 0)
	for _, rt := range r.s.rents {
		if rt.HouseID == houseID {
			all = append(all, rt)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].StartDate.Equal(all[j].StartDate.Time) {
			return all[i].StartDate.After(all[j].StartDate.Time)
		}
		return all[i].ID > all[j].ID
	})

	start, end := page.Window(len(all))
	return all[start:end], len(all), nil
}
