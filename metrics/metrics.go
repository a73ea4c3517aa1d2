// Package metrics registers the Prometheus collectors the verifier, mining
// manager, and wallet scanner update as they run.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Verifier tracks block and transaction validation outcomes.
type Verifier struct {
	BlocksValid    prometheus.Counter
	BlocksInvalid  *prometheus.CounterVec // labeled by reason
	Transactions   prometheus.Counter
	VerifyDuration prometheus.Histogram
}

// NewVerifier constructs and registers a Verifier's collectors against reg.
func NewVerifier(reg prometheus.Registerer) *Verifier {
	v := &Verifier{
		BlocksValid: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "veil_verifier_blocks_valid_total",
			Help: "Total number of blocks that passed verification.",
		}),
		BlocksInvalid: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "veil_verifier_blocks_invalid_total",
			Help: "Total number of blocks rejected by verification, labeled by reason.",
		}, []string{"reason"}),
		Transactions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "veil_verifier_transactions_verified_total",
			Help: "Total number of transactions dispatched to the worker pool for verification.",
		}),
		VerifyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "veil_verifier_block_verify_seconds",
			Help: "Time spent verifying a single block.",
		}),
	}
	reg.MustRegister(v.BlocksValid, v.BlocksInvalid, v.Transactions, v.VerifyDuration)
	return v
}

// Miner tracks mining-manager outcomes.
type Miner struct {
	BlocksMined      prometheus.Counter
	TemplatesBuilt   *prometheus.CounterVec // labeled by kind: empty|full
	SubmissionResult *prometheus.CounterVec // labeled by MinedResult
}

// NewMiner constructs and registers a Miner's collectors against reg.
func NewMiner(reg prometheus.Registerer) *Miner {
	m := &Miner{
		BlocksMined: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "veil_miner_blocks_mined_total",
			Help: "Total number of blocks successfully submitted and added to the chain.",
		}),
		TemplatesBuilt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "veil_miner_templates_built_total",
			Help: "Total number of block templates constructed, labeled by kind.",
		}, []string{"kind"}),
		SubmissionResult: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "veil_miner_submission_result_total",
			Help: "Total number of block template submissions, labeled by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.BlocksMined, m.TemplatesBuilt, m.SubmissionResult)
	return m
}

// Wallet tracks scanner progress.
type Wallet struct {
	AccountsScanned prometheus.Counter
	HeadsAdvanced   prometheus.Counter
	NotesDecrypted  prometheus.Counter
	ScanLag         prometheus.Gauge
}

// NewWallet constructs and registers a Wallet's collectors against reg.
func NewWallet(reg prometheus.Registerer) *Wallet {
	w := &Wallet{
		AccountsScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "veil_wallet_accounts_scanned_total",
			Help: "Total number of account scan passes completed.",
		}),
		HeadsAdvanced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "veil_wallet_heads_advanced_total",
			Help: "Total number of per-account head advancements.",
		}),
		NotesDecrypted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "veil_wallet_notes_decrypted_total",
			Help: "Total number of notes successfully decrypted for an account.",
		}),
		ScanLag: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "veil_wallet_scan_lag_blocks",
			Help: "Difference between the canonical head sequence and the slowest account's head sequence.",
		}),
	}
	reg.MustRegister(w.AccountsScanned, w.HeadsAdvanced, w.NotesDecrypted, w.ScanLag)
	return w
}
