package marketplace

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	importsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "giftshop_marketplace_imports_total",
			Help: "Marketplace product imports by outcome",
		},
		[]string{"outcome"},
	)

	priceChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "giftshop_marketplace_price_checks_total",
			Help: "Imported product price checks by outcome",
		},
		[]string{"outcome"},
	)
)
