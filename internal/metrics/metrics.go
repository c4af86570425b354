// Package metrics registers the platform's Prometheus collectors and serves
// them on a dedicated listener, separate from the API port.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	LedgerTransactionsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flowsplit_ledger_transactions_recorded_total",
		Help: "Balanced double-entry transactions written to the ledger.",
	})

	DepositsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flowsplit_deposits_processed_total",
		Help: "External deposit notifications recorded (duplicates excluded).",
	})

	SplitsApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flowsplit_splits_applied_total",
		Help: "Deposit transactions successfully split across wallets.",
	})

	PayoutsInitiated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flowsplit_payouts_initiated_total",
		Help: "Payouts accepted and handed to the transfer provider.",
	})

	PayoutsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "flowsplit_payouts_failed_total",
		Help: "Payout initiations rolled back or finalized as failed.",
	})

	ReconciliationDrift = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "flowsplit_reconciliation_drift_kobo",
		Help: "Difference between a wallet's true and cached balance at last check.",
	}, []string{"wallet_id"})
)

// Serve exposes /metrics on its own address. It blocks like http.ListenAndServe.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}
