package services

import "github.com/prometheus/client_golang/prometheus"

var (
	pointsAwardedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rewards_points_awarded_total",
			Help: "Total reward points awarded, by reason",
		},
		[]string{"reason"},
	)
	leadRedemptionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rewards_lead_redemptions_total",
			Help: "Total leads redeemed for points",
		},
	)
	questCompletionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rewards_quest_completions_total",
			Help: "Total daily quest completions, by task",
		},
		[]string{"task"},
	)
	walletOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rewards_wallet_operations_total",
			Help: "Total wallet operations, by op and result",
		},
		[]string{"op", "result"},
	)
)

// InitMetrics registers the service metrics. Call this from main.go
func InitMetrics() {
	prometheus.MustRegister(pointsAwardedTotal)
	prometheus.MustRegister(leadRedemptionsTotal)
	prometheus.MustRegister(questCompletionsTotal)
	prometheus.MustRegister(walletOperationsTotal)
}
