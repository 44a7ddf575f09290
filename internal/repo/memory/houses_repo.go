package memory

import (
	"context"
	"sort"

	"github.com/geocoder89/househub/internal/domain/house"
	"github.com/geocoder89/househub/internal/utils"
)

type HousesRepo struct {
	s *Store
}

func (r *HousesRepo) Create(_ context.Context, h house.House) (house.House, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.nextHouseID++
	h.ID = r.s.nextHouseID
	h.Images = append([]string(nil), h.Images...)

	r.s.houses[h.ID] = h
	return h, nil
}

func (r *HousesRepo) List(_ context.Context, page utils.Page) ([]house.House, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	all := make([]house.House, 0, len(r.s.houses))
	for _, h := range r.s.houses {
		all = append(all, h)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	start, end := page.Window(len(all))
	return all[start:end], len(all), nil
}

func (r *HousesRepo) GetByID(_ context.Context, id int64) (house.House, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	h, ok := r.s.houses[id]
	if !ok {
		return house.House{}, house.ErrNotFound
	}
	return h, nil
}

func (r *HousesRepo) Update(_ context.Context, id int64, u house.Update) (house.House, []string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.houses[id]
	if !ok {
		return house.House{}, nil, house.ErrNotFound
	}

	next, removed := u.Apply(current)
	r.s.houses[id] = next
	return next, removed, nil
}

func (r *HousesRepo) Delete(_ context.Context, id int64) (house.House, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	h, ok := r.s.houses[id]
	if !ok {
		return house.House{}, house.ErrNotFound
	}

	delete(r.s.houses, id)
	for rid, rt := range r.s.rents {
		if rt.HouseID == id {
			delete(r.s.rents, rid)
		}
	}
	return h, nil
}
