// Package metrics holds the Prometheus instruments for the ledger API,
// exposed at /metrics when enabled in config.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TransactionsCreated counts committed transactions by type
	// (IN, OUT, ADJUSTMENT).
	TransactionsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "partsledger_transactions_created_total",
		Help: "Transactions committed to the ledger, by type.",
	}, []string{"type"})

	// TransactionsDeleted counts deletions, which each reverse the
	// deleted transaction's stock effects.
	TransactionsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "partsledger_transactions_deleted_total",
		Help: "Transactions deleted (and their stock effects reversed).",
	})

	// StockAdjustments counts direct stock corrections, single and bulk.
	StockAdjustments = promauto.NewCounter(prometheus.CounterOpts{
		Name: "partsledger_stock_adjustments_total",
		Help: "Direct stock adjustments applied.",
	})

	// InsufficientStockRejections counts OUT transactions refused for
	// lack of stock.
	InsufficientStockRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "partsledger_insufficient_stock_rejections_total",
		Help: "OUT transactions rejected by the stock-sufficiency check.",
	})
)
