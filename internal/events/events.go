// Package events publishes booking notifications. Publishing is best effort:
// a failed publish is logged by the caller and never fails the booking.
package events

import (
	"context"
	"time"

	"github.com/geocoder89/househub/internal/domain/rent"
)

const (
	TypeRentBooked  = "rent.booked"
	QueueRentBooked = "rent.booked"
)

type RentBooked struct {
	RentID      int64     `json:"rentId"`
	HouseID     int64     `json:"houseId"`
	TenantID    int64     `json:"tenantId"`
	OwnerID     int64     `json:"ownerId"`
	TenantEmail string    `json:"tenantEmail"`
	StartDate   rent.Date `json:"startDate"`
	EndDate     rent.Date `json:"endDate"`
	DaysNumber  int       `json:"daysNumber"`
	Amount      float64   `json:"amount"`
	Status      string    `json:"status"`
	OccurredAt  time.Time `json:"occurredAt"`
}

func NewRentBooked(r rent.Rent, now time.Time) RentBooked {
	return RentBooked{
		RentID:      r.ID,
		HouseID:     r.HouseID,
		TenantID:    r.TenantID,
		OwnerID:     r.OwnerID,
		TenantEmail: r.TenantEmail,
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
		DaysNumber:  r.DaysNumber,
		Amount:      r.Amount,
		Status:      string(r.Status),
		OccurredAt:  now.UTC(),
	}
}

type Publisher interface {
	PublishRentBooked(ctx context.Context, ev RentBooked) error
}
