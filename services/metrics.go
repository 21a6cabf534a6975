package services

import "github.com/prometheus/client_golang/prometheus"

var (
	personsCreatedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "persons_created_total",
		Help: "Total number of persons created by the identity resolver.",
	})
	initiativesCreatedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "initiatives_created_total",
		Help: "Total number of initiatives created by the loaders.",
	})
	initiativesUpdatedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "initiatives_updated_total",
		Help: "Total number of initiatives updated in place.",
	})
	rowsSkippedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "source_rows_skipped_total",
		Help: "Total number of source rows skipped as malformed.",
	})
	groupsSyncedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cnpq_groups_synced_total",
		Help: "Total number of research groups reconciled against the CNPq mirror.",
	})
)

func init() {
	prometheus.MustRegister(
		personsCreatedCounter,
		initiativesCreatedCounter,
		initiativesUpdatedCounter,
		rowsSkippedCounter,
		groupsSyncedCounter,
	)
}
