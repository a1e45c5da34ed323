package contacts

import "github.com/prometheus/client_golang/prometheus"

var (
	duplicatesResolved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contacts_duplicates_resolved_total",
			Help: "Total duplicate contact pairs resolved, by resolution mode.",
		},
		[]string{"mode"},
	)
	revertRequestsSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contacts_revert_requests_submitted_total",
			Help: "Total key revert requests submitted, by request type.",
		},
		[]string{"request_type"},
	)
	contactsImported = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contacts_imported_total",
			Help: "Total imported contact records, by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(duplicatesResolved, revertRequestsSubmitted, contactsImported)
}

func addResolved(mode string, count int) {
	duplicatesResolved.WithLabelValues(mode).Add(float64(count))
}

func incRevertSubmitted(requestType RequestType) {
	revertRequestsSubmitted.WithLabelValues(string(requestType)).Inc()
}

func addImported(created, duplicates int) {
	contactsImported.WithLabelValues("created").Add(float64(created))
	contactsImported.WithLabelValues("duplicate").Add(float64(duplicates))
}
