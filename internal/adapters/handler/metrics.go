package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FoodEntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "food_entries_total",
			Help: "Total number of food entries submitted over HTTP",
		},
		[]string{"source", "outcome"},
	)

	BarcodeLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "barcode_lookups_total",
			Help: "Total number of barcode lookups by result kind",
		},
		[]string{"result"},
	)
)

func lookupResult(err error) string {
	if err == nil {
		return "found"
	}
	_, _, kind := errorStatus(err)
	if kind == "" {
		return "error"
	}
	return kind
}
