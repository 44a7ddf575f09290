package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/househub/internal/auth"
	"github.com/geocoder89/househub/internal/domain/house"
	"github.com/geocoder89/househub/internal/domain/rent"
	"github.com/geocoder89/househub/internal/events"
	"github.com/geocoder89/househub/internal/utils"
	"github.com/gin-gonic/gin"
)

// publishTimeout bounds the detached publish that follows a booking.
const publishTimeout = 5 * time.Second

type RentStore interface {
	Create(ctx context.Context, r rent.Rent) (rent.Rent, error)
	GetByID(ctx context.Context, id int64) (rent.Rent, error)
	Update(ctx context.Context, r rent.Rent) (rent.Rent, error)
	ListByHouse(ctx context.Context, houseID int64, page utils.Page) ([]rent.Rent, int, error)
}

type HouseLookup interface {
	GetByID(ctx context.Context, id int64) (house.House, error)
}

type UserLookup interface {
	Exists(ctx context.Context, ids ...int64) (bool, error)
}

// EventCounter is satisfied by *observability.Prom.
type EventCounter interface {
	IncEvent(eventType, result string)
}

type RentsHandler struct {
	rents     RentStore
	houses    HouseLookup
	users     UserLookup
	publisher events.Publisher
	counter   EventCounter
	now       func() time.Time
}

func NewRentsHandler(rents RentStore, houses HouseLookup, users UserLookup, publisher events.Publisher, counter EventCounter) *RentsHandler {
	return &RentsHandler{
		rents:     rents,
		houses:    houses,
		users:     users,
		publisher: publisher,
		counter:   counter,
		now:       time.Now,
	}
}

func (h *RentsHandler) Book(ctx *gin.Context) {
	claims, ok := callerClaims(ctx)
	if !ok {
		return
	}

	var req rent.BookRequest
	if !BindJSON(ctx, &req) {
		return
	}

	if claims.Role == auth.RoleUser && req.TenantID != claims.UserID {
		RespondForbidden(ctx, "Tenants can only book for themselves")
		return
	}

	booking, err := rent.NewFromBookRequest(req, h.now())
	if err != nil {
		RespondBadRequest(ctx, err.Error(), gin.H{
			"fields": []FieldError{{Field: "endDate", Rule: "gtefield", Param: "startDate", Message: validationMessage("gtefield", "startDate")}},
		})
		return
	}

	cctx, cancel := storeContext(ctx)
	defer cancel()

	if _, err := h.houses.GetByID(cctx, req.HouseID); err != nil {
		respondHouseError(ctx, err, "Could not book house")
		return
	}

	found, err := h.users.Exists(cctx, req.TenantID, req.OwnerID)
	if err != nil {
		RespondInternal(ctx, "Could not book house", err)
		return
	}
	if !found {
		RespondNotFound(ctx, "Tenant or owner not found")
		return
	}

	created, err := h.rents.Create(cctx, booking)
	if err != nil {
		// the listing can disappear between the lookup and the insert
		respondHouseError(ctx, err, "Could not book house")
		return
	}

	h.publishBooked(ctx.Request.Context(), created)

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "Rent added successfully",
		"rent":    created,
	})
}

func (h *RentsHandler) UpdateRent(ctx *gin.Context) {
	claims, ok := callerClaims(ctx)
	if !ok {
		return
	}

	houseID, ok := houseIDParam(ctx, "houseId")
	if !ok {
		return
	}
	rentID, err := utils.ParseID(ctx.Param("rentId"))
	if err != nil {
		RespondBadRequest(ctx, "Invalid rent id", gin.H{"field": "rentId", "reason": err.Error()})
		return
	}

	var req rent.UpdateRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := storeContext(ctx)
	defer cancel()

	if _, err := h.houses.GetByID(cctx, houseID); err != nil {
		if errors.Is(err, house.ErrNotFound) {
			RespondBadRequest(ctx, "House not found", nil)
			return
		}
		RespondInternal(ctx, "Could not update rent", err)
		return
	}

	current, err := h.rents.GetByID(cctx, rentID)
	switch {
	case errors.Is(err, rent.ErrNotFound), err == nil && current.HouseID != houseID:
		RespondBadRequest(ctx, "Rent not found for this house", nil)
		return
	case err != nil:
		RespondInternal(ctx, "Could not update rent", err)
		return
	}

	if claims.Role == auth.RoleUser && current.TenantID != claims.UserID {
		RespondForbidden(ctx, "Tenants can only modify their own bookings")
		return
	}

	next, err := req.Apply(current)
	if err != nil {
		RespondBadRequest(ctx, err.Error(), nil)
		return
	}

	updated, err := h.rents.Update(cctx, next)
	if err != nil {
		if errors.Is(err, rent.ErrNotFound) {
			RespondBadRequest(ctx, "Rent not found for this house", nil)
			return
		}
		RespondInternal(ctx, "Could not update rent", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Rent updated successfully",
		"rent":    updated,
	})
}

func (h *RentsHandler) ListByHouse(ctx *gin.Context) {
	claims, ok := callerClaims(ctx)
	if !ok {
		return
	}

	houseID, ok := houseIDParam(ctx, "houseId")
	if !ok {
		return
	}

	page, err := utils.ParsePage(ctx.Query("page"), ctx.Query("limit"))
	if err != nil {
		RespondBadRequest(ctx, "Invalid pagination parameters", gin.H{"reason": err.Error()})
		return
	}

	cctx, cancel := storeContext(ctx)
	defer cancel()

	listing, err := h.houses.GetByID(cctx, houseID)
	if err != nil {
		respondHouseError(ctx, err, "Could not list rents")
		return
	}

	if !mayActForOwner(claims, listing.OwnerID) {
		RespondForbidden(ctx, "Owners can only view bookings of their own listings")
		return
	}

	rents, total, err := h.rents.ListByHouse(cctx, houseID, page)
	if err != nil {
		RespondInternal(ctx, "Could not list rents", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message":        "Rents retrieved successfully",
		"rents":          rents,
		"totalRents":     total,
		"currentPage":    page.Page,
		"totalPages":     page.TotalPages(total),
		"remainingPages": page.RemainingPages(total),
	})
}

// publishBooked hands the event to the publisher off the request path. The
// booking is already committed, so a failure is only logged and counted.
func (h *RentsHandler) publishBooked(reqCtx context.Context, r rent.Rent) {
	if h.publisher == nil {
		return
	}

	ev := events.NewRentBooked(r, h.now())
	ctx := context.WithoutCancel(reqCtx)

	go func() {
		pctx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()

		err := h.publisher.PublishRentBooked(pctx, ev)

		result := "ok"
		if err != nil {
			result = "error"
			slog.Default().WarnContext(pctx, "publish rent booked failed",
				"err", err,
				"rent_id", ev.RentID,
				"house_id", ev.HouseID,
			)
		}
		if h.counter != nil {
			h.counter.IncEvent(events.TypeRentBooked, result)
		}
	}()
}
