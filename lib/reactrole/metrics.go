package reactrole

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	interactions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatekeeper_rr_interactions",
		Help: "The number of reaction-role setup interactions handled",
	}, []string{"custom_id"})

	validationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatekeeper_rr_validation_failures",
		Help: "The number of builder submissions rejected by validation",
	})

	messagesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatekeeper_rr_messages_created",
		Help: "The number of reaction-role messages posted",
	})

	messagesForgotten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatekeeper_rr_messages_forgotten",
		Help: "The number of reaction-role mappings dropped because their message was deleted",
	})

	reactions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatekeeper_rr_reactions",
		Help: "The number of reactions on reaction-role messages by event and result",
	}, []string{"event", "result"})
)
