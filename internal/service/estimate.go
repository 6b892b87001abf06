package service

import (
	"encoding/json"
	"math"

	"github.com/iliyamo/booking-marketplace/internal/model"
)

// HoursEstimator turns a booking request into the total number of work hours
// before they are split across workers.
type HoursEstimator interface {
	EstimateHours(details json.RawMessage, svc model.Service) float64
}

// BaseHoursEstimator uses the service's base hours, or one hour when the
// service does not declare any.  Booking details are not inspected.
type BaseHoursEstimator struct{}

func (BaseHoursEstimator) EstimateHours(_ json.RawMessage, svc model.Service) float64 {
	if svc.BaseHours > 0 {
		return svc.BaseHours
	}
	return 1
}

// Estimate is the staffing and price computed when a booking is created.
type Estimate struct {
	Workers int
	Hours   int
	Price   float64
}

// ComputeEstimate clamps the requested workers to the service maximum (a
// missing maximum counts as 1), splits baseHours across them rounding up,
// and prices every worker-hour at unitPrice.
func ComputeEstimate(baseHours float64, requested, maxWorkers int, unitPrice float64) Estimate {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if requested < 1 {
		requested = 1
	}
	workers := min(requested, maxWorkers)
	hours := int(math.Ceil(baseHours / float64(workers)))
	return Estimate{Workers: workers, Hours: hours, Price: float64(hours*workers) * unitPrice}
}
