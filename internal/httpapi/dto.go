package httpapi

import "github.com/paymentdispatch/intermediary/internal/model"

// processorTotalsResponse mirrors spec.md §6's
// {"totalRequests":int,"totalAmount":number} shape.
type processorTotalsResponse struct {
	TotalRequests int64   `json:"totalRequests"`
	TotalAmount   float64 `json:"totalAmount"`
}

type summaryResponse struct {
	Default  processorTotalsResponse `json:"default"`
	Fallback processorTotalsResponse `json:"fallback"`
}

func toSummaryResponse(s model.Summary) summaryResponse {
	return summaryResponse{
		Default:  toTotalsResponse(s.Default),
		Fallback: toTotalsResponse(s.Fallback),
	}
}

func toTotalsResponse(t model.ProcessorTotals) processorTotalsResponse {
	return processorTotalsResponse{
		TotalRequests: t.TotalRequests,
		TotalAmount:   t.TotalAmount.Float64(),
	}
}

type errorResponse struct {
	Kind string `json:"kind"`
}
