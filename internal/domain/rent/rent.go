package rent

import (
	"errors"
	"math"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	default:
		return false
	}
}

var (
	ErrNotFound        = errors.New("rent not found")
	ErrInvalidDateSpan = errors.New("end date precedes start date")
)

type Rent struct {
	ID          int64     `json:"id"`
	Amount      float64   `json:"amount"`
	TenantName  string    `json:"tenantName"`
	TenantEmail string    `json:"tenantEmail"`
	TenantID    int64     `json:"tenantId"`
	OwnerID     int64     `json:"ownerId"`
	Phone       string    `json:"phone"`
	StartDate   Date      `json:"startDate"`
	EndDate     Date      `json:"endDate"`
	DaysNumber  int       `json:"daysNumber"`
	Status      Status    `json:"status"`
	Notes       string    `json:"notes"`
	HouseID     int64     `json:"houseId"`
	CreatedAt   time.Time `json:"createdAt"`
}

type BookRequest struct {
	Amount      float64 `json:"amount" binding:"required,gt=0,lte=9999999999.99"`
	TenantName  string  `json:"tenantName" binding:"required,max=120"`
	TenantEmail string  `json:"tenantEmail" binding:"required,email"`
	StartDate   Date    `json:"startDate" binding:"required"`
	EndDate     Date    `json:"endDate" binding:"required"`
	Status      Status  `json:"status" binding:"omitempty,oneof=pending confirmed cancelled"`
	Notes       string  `json:"notes" binding:"omitempty,max=2000"`
	TenantID    int64   `json:"tenantId" binding:"required,gt=0"`
	OwnerID     int64   `json:"ownerId" binding:"required,gt=0"`
	Phone       string  `json:"phone" binding:"required,max=30"`
	HouseID     int64   `json:"houseId" binding:"required,gt=0"`
}

// UpdateRequest carries the editable booking fields. Any status sent by the
// caller is ignored: an edited booking always goes back to pending.
type UpdateRequest struct {
	Amount      float64 `json:"amount" binding:"required,gt=0,lte=9999999999.99"`
	TenantName  string  `json:"tenantName" binding:"required,max=120"`
	TenantEmail string  `json:"tenantEmail" binding:"required,email"`
	StartDate   Date    `json:"startDate" binding:"required"`
	EndDate     Date    `json:"endDate" binding:"required"`
	Notes       string  `json:"notes" binding:"omitempty,max=2000"`
	Phone       string  `json:"phone" binding:"required,max=30"`
}

// DaysBetween is ceil((end-start) / 24h).
func DaysBetween(start, end time.Time) int {
	return int(math.Ceil(end.Sub(start).Hours() / 24))
}

func NewFromBookRequest(req BookRequest, now time.Time) (Rent, error) {
	if req.EndDate.Before(req.StartDate.Time) {
		return Rent{}, ErrInvalidDateSpan
	}

	status := req.Status
	if status == "" {
		status = StatusPending
	}

	return Rent{
		Amount:      req.Amount,
		TenantName:  req.TenantName,
		TenantEmail: req.TenantEmail,
		TenantID:    req.TenantID,
		OwnerID:     req.OwnerID,
		Phone:       req.Phone,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		DaysNumber:  DaysBetween(req.StartDate.Time, req.EndDate.Time),
		Status:      status,
		Notes:       req.Notes,
		HouseID:     req.HouseID,
		CreatedAt:   now.UTC(),
	}, nil
}

// Apply writes the update over r, recomputing the day count and resetting the
// status to pending.
func (req UpdateRequest) Apply(r Rent) (Rent, error) {
	if req.EndDate.Before(req.StartDate.Time) {
		return Rent{}, ErrInvalidDateSpan
	}

	r.Amount = req.Amount
	r.TenantName = req.TenantName
	r.TenantEmail = req.TenantEmail
	r.StartDate = req.StartDate
	r.EndDate = req.EndDate
	r.DaysNumber = DaysBetween(req.StartDate.Time, req.EndDate.Time)
	r.Status = StatusPending
	r.Notes = req.Notes
	r.Phone = req.Phone
	return r, nil
}
