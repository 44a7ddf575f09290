package handlers_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/geocoder89/househub/internal/domain/house"
	"github.com/geocoder89/househub/internal/domain/rent"
	"github.com/geocoder89/househub/internal/events"
	"github.com/geocoder89/househub/internal/http/handlers"
	"github.com/geocoder89/househub/internal/utils"
)

type fakeRentsRepo struct {
	createFn func(ctx context.Context, r rent.Rent) (rent.Rent, error)
	getFn    func(ctx context.Context, id int64) (rent.Rent, error)
	updateFn func(ctx context.Context, r rent.Rent) (rent.Rent, error)
	listFn   func(ctx context.Context, houseID int64, page utils.Page) ([]rent.Rent, int, error)
}

func (f *fakeRentsRepo) Create(ctx context.Context, r rent.Rent) (rent.Rent, error) {
	if f.createFn != nil {
		return f.createFn(ctx, r)
	}
	r.ID = 11
	return r, nil
}

func (f *fakeRentsRepo) GetByID(ctx context.Context, id int64) (rent.Rent, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return rent.Rent{}, rent.ErrNotFound
}

func (f *fakeRentsRepo) Update(ctx context.Context, r rent.Rent) (rent.Rent, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, r)
	}
	return r, nil
}

func (f *fakeRentsRepo) ListByHouse(ctx context.Context, houseID int64, page utils.Page) ([]rent.Rent, int, error) {
	if f.listFn != nil {
		return f.listFn(ctx, houseID, page)
	}
	return []rent.Rent{}, 0, nil
}

type fakeUserLookup struct {
	existsFn func(ctx context.Context, ids ...int64) (bool, error)
}

func (f *fakeUserLookup) Exists(ctx context.Context, ids ...int64) (bool, error) {
	if f.existsFn != nil {
		return f.existsFn(ctx, ids...)
	}
	return true, nil
}

type chanPublisher struct {
	got chan events.RentBooked
	err error
}

func (p *chanPublisher) PublishRentBooked(_ context.Context, ev events.RentBooked) error {
	p.got <- ev
	return p.err
}

func houseFound(id, ownerID int64) *fakeHousesRepo {
	return &fakeHousesRepo{
		getFn: func(_ context.Context, got int64) (house.House, error) {
			if got == id {
				return existingHouse(id, ownerID), nil
			}
			return house.House{}, house.ErrNotFound
		},
	}
}

const bookBody = `{
	"amount": 120,
	"tenantName": "Tayo",
	"tenantEmail": "tayo@example.com",
	"startDate": "2024-01-01",
	"endDate": "2024-01-03",
	"tenantId": 9,
	"ownerId": 7,
	"phone": "0800000000",
	"houseId": 4
}`

func TestBookHandler(t *testing.T) {
	tests := []struct {
		name       string
		token      string
		body       string
		users      *fakeUserLookup
		rentsSetup func(*fakeRentsRepo)
		wantStatus int
	}{
		{
			name:       "success",
			token:      "user-9",
			body:       bookBody,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "booking_for_someone_else",
			token:      "user-9",
			body:       `{"amount":1,"tenantName":"x","tenantEmail":"x@example.com","startDate":"2024-01-01","endDate":"2024-01-02","tenantId":10,"ownerId":7,"phone":"1","houseId":4}`,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "house_missing",
			token:      "user-9",
			body:       `{"amount":1,"tenantName":"x","tenantEmail":"x@example.com","startDate":"2024-01-01","endDate":"2024-01-02","tenantId":9,"ownerId":7,"phone":"1","houseId":5}`,
			wantStatus: http.StatusNotFound,
		},
		{
			name:  "owner_missing",
			token: "user-9",
			body:  bookBody,
			users: &fakeUserLookup{existsFn: func(context.Context, ...int64) (bool, error) {
				return false, nil
			}},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "end_before_start",
			token:      "user-9",
			body:       `{"amount":1,"tenantName":"x","tenantEmail":"x@example.com","startDate":"2024-01-05","endDate":"2024-01-02","tenantId":9,"ownerId":7,"phone":"1","houseId":4}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:  "house_deleted_before_insert",
			token: "user-9",
			body:  bookBody,
			rentsSetup: func(f *fakeRentsRepo) {
				f.createFn = func(context.Context, rent.Rent) (rent.Rent, error) {
					return rent.Rent{}, house.ErrNotFound
				}
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name:  "repo_error",
			token: "user-9",
			body:  bookBody,
			rentsSetup: func(f *fakeRentsRepo) {
				f.createFn = func(context.Context, rent.Rent) (rent.Rent, error) {
					return rent.Rent{}, errDB
				}
			},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			rents := &fakeRentsRepo{}
			if tt.rentsSetup != nil {
				tt.rentsSetup(rents)
			}
			users := tt.users
			if users == nil {
				users = &fakeUserLookup{}
			}

			h := handlers.NewRentsHandler(rents, houseFound(4, 7), users, nil, nil)
			r := authedRouter(http.MethodPost, "/rent/book", h.Book)

			w := doJSON(r, http.MethodPost, "/rent/book", tt.token, tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestBookHandler_DaysAndEvent(t *testing.T) {
	pub := &chanPublisher{got: make(chan events.RentBooked, 1)}

	h := handlers.NewRentsHandler(&fakeRentsRepo{}, houseFound(4, 7), &fakeUserLookup{}, pub, nil)
	r := authedRouter(http.MethodPost, "/rent/book", h.Book)

	w := doJSON(r, http.MethodPost, "/rent/book", "user-9", bookBody)
	if w.Code != http.StatusCreated {
		t.Fatalf("got status %d body=%s", w.Code, w.Body.String())
	}

	resp := decode(t, w)
	if resp["message"] != "Rent added successfully" {
		t.Fatalf("got message %v", resp["message"])
	}
	booked := resp["rent"].(map[string]interface{})
	if booked["daysNumber"] != float64(2) {
		t.Fatalf("got daysNumber %v, want 2", booked["daysNumber"])
	}
	if booked["status"] != "pending" {
		t.Fatalf("got status %v, want pending", booked["status"])
	}

	select {
	case ev := <-pub.got:
		if ev.RentID != 11 || ev.HouseID != 4 || ev.DaysNumber != 2 {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("booking event was not published")
	}
}

func TestBookHandler_PublishFailureDoesNotFailBooking(t *testing.T) {
	pub := &chanPublisher{got: make(chan events.RentBooked, 1), err: errDB}

	h := handlers.NewRentsHandler(&fakeRentsRepo{}, houseFound(4, 7), &fakeUserLookup{}, pub, nil)
	r := authedRouter(http.MethodPost, "/rent/book", h.Book)

	w := doJSON(r, http.MethodPost, "/rent/book", "user-9", bookBody)
	if w.Code != http.StatusCreated {
		t.Fatalf("got status %d body=%s", w.Code, w.Body.String())
	}

	select {
	case <-pub.got:
	case <-time.After(2 * time.Second):
		t.Fatalf("publisher was not called")
	}
}

const updateRentBody = `{
	"amount": 90,
	"tenantName": "Tayo",
	"tenantEmail": "tayo@example.com",
	"startDate": "2024-02-01",
	"endDate": "2024-02-04",
	"phone": "0800000000",
	"status": "confirmed"
}`

func storedRent(id, houseID, tenantID int64) rent.Rent {
	start := rent.NewDate(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	end := rent.NewDate(time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC))
	return rent.Rent{
		ID:         id,
		HouseID:    houseID,
		TenantID:   tenantID,
		OwnerID:    7,
		StartDate:  start,
		EndDate:    end,
		DaysNumber: 2,
		Status:     rent.StatusConfirmed,
	}
}

func TestUpdateRentHandler(t *testing.T) {
	tests := []struct {
		name       string
		token      string
		url        string
		rentsSetup func(*fakeRentsRepo)
		wantStatus int
	}{
		{
			name:  "success_resets_status",
			token: "user-9",
			url:   "/rent/4/rents/11",
			rentsSetup: func(f *fakeRentsRepo) {
				f.getFn = func(context.Context, int64) (rent.Rent, error) {
					return storedRent(11, 4, 9), nil
				}
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "house_missing",
			token:      "user-9",
			url:        "/rent/5/rents/11",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "rent_missing",
			token:      "user-9",
			url:        "/rent/4/rents/12",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:  "rent_of_other_house",
			token: "user-9",
			url:   "/rent/4/rents/11",
			rentsSetup: func(f *fakeRentsRepo) {
				f.getFn = func(context.Context, int64) (rent.Rent, error) {
					return storedRent(11, 6, 9), nil
				}
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:  "other_tenant",
			token: "user-9",
			url:   "/rent/4/rents/11",
			rentsSetup: func(f *fakeRentsRepo) {
				f.getFn = func(context.Context, int64) (rent.Rent, error) {
					return storedRent(11, 4, 10), nil
				}
			},
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "non_numeric_rent_id",
			token:      "user-9",
			url:        "/rent/4/rents/abc",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			rents := &fakeRentsRepo{}
			if tt.rentsSetup != nil {
				tt.rentsSetup(rents)
			}

			h := handlers.NewRentsHandler(rents, houseFound(4, 7), &fakeUserLookup{}, nil, nil)
			r := authedRouter(http.MethodPut, "/rent/:houseId/rents/:rentId", h.UpdateRent)

			w := doJSON(r, http.MethodPut, tt.url, tt.token, updateRentBody)
			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}
			if w.Code != http.StatusOK {
				return
			}

			updated := decode(t, w)["rent"].(map[string]interface{})
			if updated["status"] != "pending" {
				t.Fatalf("status should be forced to pending, got %v", updated["status"])
			}
			if updated["daysNumber"] != float64(3) {
				t.Fatalf("got daysNumber %v, want 3", updated["daysNumber"])
			}
		})
	}
}

func TestListRentsHandler(t *testing.T) {
	tests := []struct {
		name          string
		token         string
		url           string
		wantStatus    int
		wantRemaining float64
	}{
		{name: "first_page", token: "admin", url: "/rent/4/rents?page=1&limit=2", wantStatus: http.StatusOK, wantRemaining: 2},
		{name: "past_the_end", token: "subadmin", url: "/rent/4/rents?page=9&limit=2", wantStatus: http.StatusOK, wantRemaining: 0},
		{name: "house_owner", token: "owner-7", url: "/rent/4/rents", wantStatus: http.StatusOK, wantRemaining: 0},
		{name: "missing_house", token: "admin", url: "/rent/5/rents", wantStatus: http.StatusNotFound},
		{name: "bad_limit", token: "admin", url: "/rent/4/rents?limit=-1", wantStatus: http.StatusBadRequest},
	}

	rents := &fakeRentsRepo{
		listFn: func(_ context.Context, houseID int64, page utils.Page) ([]rent.Rent, int, error) {
			start, end := page.Window(5)
			all := make([]rent.Rent, 5)
			return all[start:end], 5, nil
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			h := handlers.NewRentsHandler(rents, houseFound(4, 7), &fakeUserLookup{}, nil, nil)
			r := authedRouter(http.MethodGet, "/rent/:houseId/rents", h.ListByHouse)

			w := do(r, http.MethodGet, tt.url, tt.token, nil, "")
			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatus, w.Body.String())
			}
			if w.Code != http.StatusOK {
				return
			}

			resp := decode(t, w)
			if resp["totalRents"] != float64(5) {
				t.Fatalf("got totalRents %v", resp["totalRents"])
			}
			if resp["remainingPages"] != tt.wantRemaining {
				t.Fatalf("got remainingPages %v, want %v", resp["remainingPages"], tt.wantRemaining)
			}
		})
	}
}

func TestListRentsHandler_OtherOwnerForbidden(t *testing.T) {
	h := handlers.NewRentsHandler(&fakeRentsRepo{}, houseFound(4, 8), &fakeUserLookup{}, nil, nil)
	r := authedRouter(http.MethodGet, "/rent/:houseId/rents", h.ListByHouse)

	w := do(r, http.MethodGet, "/rent/4/rents", "owner-7", nil, "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("got status %d body=%s", w.Code, w.Body.String())
	}
}
