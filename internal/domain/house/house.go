package house

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/geocoder89/househub/internal/auth"
)

type Status string

const (
	StatusAvailable        Status = "available"
	StatusRented           Status = "rented"
	StatusUnderMaintenance Status = "under_maintenance"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusAvailable, StatusRented, StatusUnderMaintenance:
		return true
	default:
		return false
	}
}

var (
	ErrNotFound = errors.New("house not found")
	ErrNoImages = errors.New("at least one image is required")
)

// House is a rentable listing. Images are public paths under the upload prefix,
// kept in submission order.
type House struct {
	ID          int64     `json:"id"`
	OwnerID     int64     `json:"owner_id"`
	OwnerName   string    `json:"owner_name"`
	PostedBy    auth.Role `json:"posted_by"`
	Images      []string  `json:"images"`
	Status      Status    `json:"status"`
	Description string    `json:"description"`
	PricePerDay float64   `json:"price_per_day"`
	Location    string    `json:"location"`
	CreatedAt   time.Time `json:"created_at"`
}

// FormRequest is the multipart form shared by create and update. Numbers arrive
// as strings so that every malformed field is reported in the same batch.
type FormRequest struct {
	OwnerID     string `form:"owner_id" binding:"required,number"`
	OwnerName   string `form:"owner_name" binding:"required,max=120"`
	Status      string `form:"status" binding:"omitempty,oneof=available rented under_maintenance"`
	Description string `form:"description" binding:"required,max=5000"`
	PricePerDay string `form:"price_per_day" binding:"required,positive_number,max_amount"`
	Location    string `form:"location" binding:"required,max=255"`
	PostedBy    string `form:"posted_by" binding:"required,oneof=admin user owner subAdmin"`
}

// MaxPricePerDay matches the NUMERIC(12,2) price column.
const MaxPricePerDay = 9999999999.99

var ErrInvalidPrice = errors.New("must be a finite number above 0 and at most 9999999999.99")

// Fields is the parsed, validated form.
type Fields struct {
	OwnerID     int64
	OwnerName   string
	PostedBy    auth.Role
	// empty means "keep current" on update and "available" on create
	Status      Status
	Description string
	PricePerDay float64
	Location    string
}

func (r FormRequest) Parse() (Fields, error) {
	ownerID, err := strconv.ParseInt(r.OwnerID, 10, 64)
	if err != nil {
		return Fields{}, fmt.Errorf("owner_id: %w", err)
	}

	price, err := strconv.ParseFloat(r.PricePerDay, 64)
	if err != nil {
		return Fields{}, fmt.Errorf("price_per_day: %w", err)
	}
	if math.IsInf(price, 0) || math.IsNaN(price) || price <= 0 || price > MaxPricePerDay {
		return Fields{}, fmt.Errorf("price_per_day: %w", ErrInvalidPrice)
	}

	status := Status(r.Status)
	if status != "" && !status.IsValid() {
		return Fields{}, fmt.Errorf("status: unknown value %q", r.Status)
	}

	return Fields{
		OwnerID:     ownerID,
		OwnerName:   r.OwnerName,
		PostedBy:    auth.Role(r.PostedBy),
		Status:      status,
		Description: r.Description,
		PricePerDay: price,
		Location:    r.Location,
	}, nil
}

// NewHouse builds a listing ready to persist.
func NewHouse(f Fields, images []string, now time.Time) (House, error) {
	if len(images) == 0 {
		return House{}, ErrNoImages
	}

	status := f.Status
	if status == "" {
		status = StatusAvailable
	}

	return House{
		OwnerID:     f.OwnerID,
		OwnerName:   f.OwnerName,
		PostedBy:    f.PostedBy,
		Images:      images,
		Status:      status,
		Description: f.Description,
		PricePerDay: f.PricePerDay,
		Location:    f.Location,
		CreatedAt:   now.UTC(),
	}, nil
}

// Update replaces every listing field. Images is the complete new image set.
type Update struct {
	Fields
	Images []string
}

// Apply returns the updated listing and the images it no longer references.
func (u Update) Apply(h House) (House, []string) {
	h.OwnerID = u.OwnerID
	h.OwnerName = u.OwnerName
	h.PostedBy = u.PostedBy
	if u.Status != "" {
		h.Status = u.Status
	}
	h.Description = u.Description
	h.PricePerDay = u.PricePerDay
	h.Location = u.Location

	removed := Dropped(h.Images, u.Images)
	h.Images = append([]string(nil), u.Images...)
	return h, removed
}

// Dropped lists the entries of before that are absent from after.
func Dropped(before, after []string) []string {
	keep := make(map[string]struct{}, len(after))
	for _, img := range after {
		keep[img] = struct{}{}
	}

	var out []string
	for _, img := range before {
		if _, ok := keep[img]; !ok {
			out = append(out, img)
		}
	}
	return out
}
