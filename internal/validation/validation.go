// Package validation registers the custom rules the request structs rely on
// with gin's validator engine.
package validation

import (
	"math"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/geocoder89/househub/internal/domain/rent"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const (
	TagPositiveNumber = "positive_number"
	TagMaxAmount      = "max_amount"
	TagDateOrder      = "gtefield"
)

// MaxAmount is the largest value a NUMERIC(12,2) money column holds.
const MaxAmount = 9999999999.99

var once sync.Once

// Setup is safe to call from every bind; the registration happens once.
func Setup() {
	once.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		Register(v)
	})
}

// Register installs the rules on v. Exposed for tests that build their own
// validator.
func Register(v *validator.Validate) {
	// errors name fields the way clients sent them
	v.RegisterTagNameFunc(wireName)

	_ = v.RegisterValidation(TagPositiveNumber, positiveNumber)
	_ = v.RegisterValidation(TagMaxAmount, maxAmount)

	// lets "required" see an unset rent.Date as empty
	v.RegisterCustomTypeFunc(dateValue, rent.Date{})

	v.RegisterStructValidation(rentDateOrder, rent.BookRequest{}, rent.UpdateRequest{})
}

func wireName(sf reflect.StructField) string {
	for _, key := range []string{"json", "form"} {
		name, _, _ := strings.Cut(sf.Tag.Get(key), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return sf.Name
}

// positiveNumber accepts finite numbers above zero. "Inf", "NaN" and values
// that overflow float64 are rejected.
func positiveNumber(fl validator.FieldLevel) bool {
	n, ok := numberOf(fl.Field())
	return ok && n > 0
}

func maxAmount(fl validator.FieldLevel) bool {
	n, ok := numberOf(fl.Field())
	return ok && n <= MaxAmount
}

func numberOf(field reflect.Value) (float64, bool) {
	var n float64

	switch field.Kind() {
	case reflect.String:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(field.String()), 64)
		if err != nil {
			return 0, false
		}
		n = parsed
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n = float64(field.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n = float64(field.Uint())
	case reflect.Float32, reflect.Float64:
		n = field.Float()
	default:
		return 0, false
	}

	if math.IsInf(n, 0) || math.IsNaN(n) {
		return 0, false
	}
	return n, true
}

func dateValue(field reflect.Value) interface{} {
	d, ok := field.Interface().(rent.Date)
	if !ok || d.IsZero() {
		return ""
	}
	return d.String()
}

func rentDateOrder(sl validator.StructLevel) {
	var start, end rent.Date

	switch req := sl.Current().Interface().(type) {
	case rent.BookRequest:
		start, end = req.StartDate, req.EndDate
	case rent.UpdateRequest:
		start, end = req.StartDate, req.EndDate
	default:
		return
	}

	if start.IsZero() || end.IsZero() {
		return
	}

	if end.Before(start.Time) {
		sl.ReportError(end, "endDate", "EndDate", TagDateOrder, "startDate")
	}
}
