package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Document metrics
	DocumentsApproved *prometheus.CounterVec
	DocumentsVoided   prometheus.Counter
	ApproveDuration   prometheus.Histogram

	// Ledger metrics
	JournalEntriesPosted   prometheus.Counter
	JournalEntriesReversed prometheus.Counter
	PostDuration           prometheus.Histogram
	LedgerErrors           *prometheus.CounterVec

	// Sequence metrics
	SequenceNumbersIssued *prometheus.CounterVec

	// Tax metrics
	TaxCodeCache *prometheus.CounterVec

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Database metrics
	DBRetries *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec

	// Outbox metrics
	OutboxPublished *prometheus.CounterVec
	OutboxErrors    prometheus.Counter
}

// New creates all metrics and registers them with the default registerer
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates all metrics and registers them with reg
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		// Document metrics
		DocumentsApproved: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taxledger_documents_approved_total",
				Help: "Total number of documents approved by kind",
			},
			[]string{"kind"},
		),
		DocumentsVoided: f.NewCounter(prometheus.CounterOpts{
			Name: "taxledger_documents_voided_total",
			Help: "Total number of documents voided",
		}),
		ApproveDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "taxledger_approve_duration_seconds",
			Help:    "Duration of document approvals including retries",
			Buckets: prometheus.DefBuckets,
		}),

		// Ledger metrics
		JournalEntriesPosted: f.NewCounter(prometheus.CounterOpts{
			Name: "taxledger_journal_entries_posted_total",
			Help: "Total number of journal entries posted",
		}),
		JournalEntriesReversed: f.NewCounter(prometheus.CounterOpts{
			Name: "taxledger_journal_entries_reversed_total",
			Help: "Total number of journal entries reversed",
		}),
		PostDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "taxledger_post_duration_seconds",
			Help:    "Duration of journal entry postings",
			Buckets: prometheus.DefBuckets,
		}),
		LedgerErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taxledger_ledger_errors_total",
				Help: "Total number of failed ledger and document operations by type",
			},
			[]string{"error_type"},
		),

		// Sequence metrics
		SequenceNumbersIssued: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taxledger_sequence_numbers_issued_total",
				Help: "Sequence numbers taken, including ones later rolled back",
			},
			[]string{"kind"},
		),

		// Tax metrics
		TaxCodeCache: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taxledger_tax_code_cache_total",
				Help: "Tax code cache lookups by result",
			},
			[]string{"result"},
		),

		// API metrics
		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taxledger_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "taxledger_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		// Database metrics
		DBRetries: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taxledger_db_retries_total",
				Help: "Transactions retried after serialization failures or deadlocks",
			},
			[]string{"sqlstate"},
		),

		// Rate limiting metrics
		RateLimitHits: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taxledger_rate_limit_hits_total",
				Help: "Total rate limit hits",
			},
			[]string{"tenant_id"},
		),

		// Outbox metrics
		OutboxPublished: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "taxledger_outbox_published_total",
				Help: "Outbox events published by type",
			},
			[]string{"event_type"},
		),
		OutboxErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "taxledger_outbox_errors_total",
			Help: "Outbox publish failures",
		}),
	}
}
