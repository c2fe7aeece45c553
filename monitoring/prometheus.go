package monitoring

import (
	"net/http"
	"time"

	"github.com/mezonai/powledger/logx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type TxRejectedReason string

var (
	TxInvalidSignature TxRejectedReason = "invalid_signature"
	TxMissingSignature TxRejectedReason = "missing_signature"
	TxMalformed        TxRejectedReason = "malformed"
	TxSystemSender     TxRejectedReason = "system_sender"
	TxPoolFull         TxRejectedReason = "pool_full"
)

type ledgerPromMetrics struct {
	startUnixSeconds prometheus.Gauge
	pendingPoolSize  prometheus.Gauge
	blockHeight      prometheus.Gauge
	difficulty       prometheus.Gauge
	miningDuration   prometheus.Histogram
	nonceAttempts    prometheus.Histogram
	miningFailures   prometheus.Counter
	rejectedTxCount  *prometheus.CounterVec
	blockSizeBytes   prometheus.Histogram
	txInBlock        prometheus.Histogram
	chainValidations *prometheus.CounterVec
	panicCount       prometheus.Counter
}

func newLedgerPromMetrics() *ledgerPromMetrics {
	return &ledgerPromMetrics{
		startUnixSeconds: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "powledger_start_timestamp_unix_seconds",
				Help: "Unix timestamp of the process start",
			},
		),
		pendingPoolSize: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "powledger_pending_pool_size",
				Help: "The total pending transactions waiting for the next block",
			},
		),
		blockHeight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "powledger_block_height",
				Help: "Index of the latest block in the chain",
			},
		),
		difficulty: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "powledger_difficulty",
				Help: "Leading zero characters required of new block hashes",
			},
		),
		miningDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "powledger_mining_duration_seconds",
				Help:    "Time spent searching for a nonce per block",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
		),
		nonceAttempts: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "powledger_nonce_attempts",
				Help:    "Hashes computed before a block met its difficulty",
				Buckets: prometheus.ExponentialBuckets(1, 16, 8),
			},
		),
		miningFailures: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "powledger_mining_failures_total",
				Help: "Mining attempts that ended without a block",
			},
		),
		rejectedTxCount: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "powledger_rejected_tx_count",
				Help: "The total number of rejected transactions",
			},
			[]string{"reason"},
		),
		blockSizeBytes: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name: "powledger_block_size_bytes",
				Help: "The JSON-encoded block size in bytes",
			},
		),
		txInBlock: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name: "powledger_tx_in_block",
				Help: "Number of tx in block",
			},
		),
		chainValidations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "powledger_chain_validations_total",
				Help: "Full-chain validations by outcome",
			},
			[]string{"result"},
		),
		panicCount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "powledger_panic_count",
				Help: "Panics recovered in background goroutines",
			},
		),
	}
}

var ledgerMetrics = newLedgerPromMetrics()

func init() {
	ledgerMetrics.startUnixSeconds.SetToCurrentTime()
}

func RegisterMetrics(mux *http.ServeMux) {
	logx.Info("MONITORING", "Registering prometheus metrics")
	mux.Handle("/metrics", promhttp.Handler())
}

func SetPendingPoolSize(size int) {
	ledgerMetrics.pendingPoolSize.Set(float64(size))
}

func SetBlockHeight(blockHeight uint64) {
	ledgerMetrics.blockHeight.Set(float64(blockHeight))
}

func SetDifficulty(difficulty uint32) {
	ledgerMetrics.difficulty.Set(float64(difficulty))
}

func RecordMiningDuration(duration time.Duration) {
	ledgerMetrics.miningDuration.Observe(duration.Seconds())
}

func RecordNonceAttempts(attempts uint64) {
	ledgerMetrics.nonceAttempts.Observe(float64(attempts))
}

func IncreaseMiningFailures() {
	ledgerMetrics.miningFailures.Inc()
}

func RecordRejectedTx(reason TxRejectedReason) {
	ledgerMetrics.rejectedTxCount.With(prometheus.Labels{
		"reason": string(reason),
	}).Inc()
}

func RecordBlockSizeBytes(sizeBytes int) {
	ledgerMetrics.blockSizeBytes.Observe(float64(sizeBytes))
}

func RecordTxInBlock(txCount int) {
	ledgerMetrics.txInBlock.Observe(float64(txCount))
}

func RecordChainValidation(valid bool) {
	result := "valid"
	if !valid {
		result = "invalid"
	}
	ledgerMetrics.chainValidations.With(prometheus.Labels{
		"result": result,
	}).Inc()
}

func IncreasePanicCount() {
	ledgerMetrics.panicCount.Inc()
}
