package verify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	interactions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatekeeper_verify_interactions",
		Help: "The number of verification interactions handled",
	}, []string{"custom_id"})

	throttled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatekeeper_verify_throttled",
		Help: "The number of Verify presses rejected by the cooldown",
	})

	verified = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gatekeeper_members_verified",
		Help: "The number of members that solved a challenge",
	})

	joins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gatekeeper_member_joins",
		Help: "The number of member joins in configured guilds by whether the welcome DM was delivered",
	}, []string{"dm"})
)
