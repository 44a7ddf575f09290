package validation

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/geocoder89/househub/internal/domain/house"
	"github.com/geocoder89/househub/internal/domain/rent"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	Register(v)
	return v
}

func validBook() rent.BookRequest {
	return rent.BookRequest{
		Amount:      200,
		TenantName:  "Ada",
		TenantEmail: "ada@example.com",
		StartDate:   rent.NewDate(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		EndDate:     rent.NewDate(time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)),
		TenantID:    1,
		OwnerID:     2,
		Phone:       "555-0100",
		HouseID:     3,
	}
}

func tagsByField(t *testing.T, err error) map[string]string {
	t.Helper()

	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs), "expected validation errors, got %v", err)

	out := map[string]string{}
	for _, fe := range verrs {
		out[fe.Field()] = fe.Tag()
	}
	return out
}

func TestBookRequest_Valid(t *testing.T) {
	require.NoError(t, newValidator().Struct(validBook()))
}

func TestBookRequest_MissingDatesAreRequired(t *testing.T) {
	req := validBook()
	req.StartDate = rent.Date{}
	req.EndDate = rent.Date{}

	got := tagsByField(t, newValidator().Struct(req))
	require.Equal(t, "required", got["startDate"])
	require.Equal(t, "required", got["endDate"])
}

func TestBookRequest_EndBeforeStart(t *testing.T) {
	req := validBook()
	req.StartDate, req.EndDate = req.EndDate, req.StartDate

	got := tagsByField(t, newValidator().Struct(req))
	require.Equal(t, TagDateOrder, got["endDate"])
}

func TestUpdateRequest_SameDayIsAllowed(t *testing.T) {
	day := rent.NewDate(time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC))
	req := rent.UpdateRequest{
		Amount:      10,
		TenantName:  "Ada",
		TenantEmail: "ada@example.com",
		StartDate:   day,
		EndDate:     day,
		Phone:       "1",
	}

	require.NoError(t, newValidator().Struct(req))
}

func TestHouseForm_ReportsEveryFieldAtOnce(t *testing.T) {
	form := house.FormRequest{
		OwnerID:     "abc",
		Status:      "sold",
		PricePerDay: "-4",
		PostedBy:    "guest",
	}

	got := tagsByField(t, newValidator().Struct(form))
	require.Equal(t, "number", got["owner_id"])
	require.Equal(t, "required", got["owner_name"])
	require.Equal(t, "oneof", got["status"])
	require.Equal(t, "required", got["description"])
	require.Equal(t, TagPositiveNumber, got["price_per_day"])
	require.Equal(t, "required", got["location"])
	require.Equal(t, "oneof", got["posted_by"])
}

func TestPositiveNumber(t *testing.T) {
	v := newValidator()

	for _, ok := range []string{"1", "0.5", "250.00"} {
		require.NoError(t, v.Var(ok, TagPositiveNumber), ok)
	}
	for _, bad := range []string{"0", "-1", "ten", "", "Inf", "+Inf", "NaN", "1e400"} {
		require.Error(t, v.Var(bad, TagPositiveNumber), bad)
	}
	require.Error(t, v.Var(math.Inf(1), TagPositiveNumber))
}

func TestMaxAmount(t *testing.T) {
	v := newValidator()

	require.NoError(t, v.Var("9999999999.99", TagMaxAmount))
	require.NoError(t, v.Var("12.5", TagMaxAmount))
	require.Error(t, v.Var("10000000000", TagMaxAmount))
	require.Error(t, v.Var("Inf", TagMaxAmount))

	req := validBook()
	req.Amount = 1e11
	got := tagsByField(t, v.Struct(req))
	require.Equal(t, "lte", got["amount"])
}
