package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RoomsActive tracks live rooms.
	RoomsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "jeopardy_rooms_active",
		Help: "Number of rooms currently alive.",
	})

	// ParticipantsConnected tracks open WebSocket participants.
	ParticipantsConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "jeopardy_participants_connected",
		Help: "Number of participants with an open connection.",
	})

	// IntentsTotal counts processed intents by message type.
	IntentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jeopardy_intents_total",
		Help: "Intents processed per message type.",
	}, []string{"type"})

	// IntentRejections counts rejected intents by error code.
	IntentRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jeopardy_intent_rejections_total",
		Help: "Intents rejected per error code.",
	}, []string{"code"})

	// GamesFinished counts games that reached the results phase.
	GamesFinished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jeopardy_games_finished_total",
		Help: "Games that reached final results.",
	})
)
