package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PagesFetched tracks txlist pages requested from the explorer
	PagesFetched = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "buyerscan_pages_fetched_total",
			Help: "Total number of explorer pages fetched",
		},
	)

	// TxRecordsScanned tracks raw transaction records inspected
	TxRecordsScanned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "buyerscan_tx_records_scanned_total",
			Help: "Total number of raw transaction records inspected",
		},
	)

	// RateLimitHits tracks rate-limit and quota responses from the explorer
	RateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "buyerscan_rate_limit_hits_total",
			Help: "Total number of rate-limit or quota responses",
		},
	)

	// BuyersDiscovered tracks unique buyer addresses found per contract
	BuyersDiscovered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buyerscan_buyers_discovered_total",
			Help: "Total number of unique buyer addresses discovered",
		},
		[]string{"contract"},
	)

	// CheckpointSaves tracks checkpoint writes per contract
	CheckpointSaves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buyerscan_checkpoint_saves_total",
			Help: "Total number of checkpoint saves",
		},
		[]string{"contract"},
	)

	// LastProcessedBlock tracks the scan cursor per contract
	LastProcessedBlock = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "buyerscan_last_processed_block",
			Help: "Block cursor of the scan",
		},
		[]string{"contract"},
	)
)
