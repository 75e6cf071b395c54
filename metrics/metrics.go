package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	Interactions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "opinion_interactions_total",
		Help: "Recorded interactions by outcome (skipped, answered, repeated).",
	}, []string{"outcome"})

	CoinsAwarded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "opinion_coins_awarded_total",
		Help: "Coins moved from poll pools to users.",
	})

	EnergySpent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "opinion_energy_spent_total",
		Help: "Energy charged for answers.",
	})

	CandidateQueue = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "opinion_candidate_queue_total",
		Help: "Candidate queue lookups by result (hit, miss, rebuild, empty).",
	}, []string{"result"})

	PollsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "opinion_polls_created_total",
		Help: "Polls created.",
	})

	TransactionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "opinion_transaction_duration_seconds",
		Help:    "Duration of store units of work.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "status"})
)

func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		Interactions,
		CoinsAwarded,
		EnergySpent,
		CandidateQueue,
		PollsCreated,
		TransactionDuration,
	)
}

// ObserveTransaction records how long a unit of work took and whether it
// committed.
func ObserveTransaction(operation string, start time.Time, err error) {
	status := "committed"
	if err != nil {
		status = "rolled_back"
	}
	TransactionDuration.WithLabelValues(operation, status).Observe(time.Since(start).Seconds())
}

func ObserveInteraction(outcome string, coins, energy int) {
	Interactions.WithLabelValues(outcome).Inc()
	if coins > 0 {
		CoinsAwarded.Add(float64(coins))
	}
	if energy > 0 {
		EnergySpent.Add(float64(energy))
	}
}
