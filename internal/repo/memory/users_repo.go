package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/geocoder89/househub/internal/domain/user"
)

type UsersRepo struct {
	s *Store
}

func (r *UsersRepo) emailTaken(email string, except int64) bool {
	for id, u := range r.s.users {
		if id != except && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func (r *UsersRepo) Create(_ context.Context, u user.User) (user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.emailTaken(u.Email, 0) {
		return user.User{}, user.ErrEmailTaken
	}

	now := time.Now().UTC()
	r.s.nextUserID++
	u.ID = r.s.nextUserID
	u.CreatedAt = now
	u.UpdatedAt = now

	r.s.users[u.ID] = u
	return u, nil
}

func (r *UsersRepo) GetByEmail(_ context.Context, email string) (user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (r *UsersRepo) GetByID(_ context.Context, id int64) (user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (r *UsersRepo) Exists(_ context.Context, ids ...int64) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, id := range ids {
		if _, ok := r.s.users[id]; !ok {
			return false, nil
		}
	}
	return true, nil
}

func (r *UsersRepo) List(_ context.Context) ([]user.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]user.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *UsersRepo) Update(_ context.Context, id int64, p user.Patch) (user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	if p.IsEmpty() {
		return u, nil
	}
	if p.Email != nil && r.emailTaken(*p.Email, id) {
		return user.User{}, user.ErrEmailTaken
	}

	u = p.Apply(u)
	u.UpdatedAt = time.Now().UTC()
	r.s.users[id] = u
	return u, nil
}

func (r *UsersRepo) Delete(_ context.Context, id int64) (user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	delete(r.s.users, id)
	return u, nil
}
