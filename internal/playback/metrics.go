package playback

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	progressWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "playback_progress_writes_total",
		Help: "Total playback progress writes by status.",
	}, []string{"status"})

	eventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "playback_events_dropped_total",
		Help: "Playback events dropped due to a full controller queue.",
	})

	sessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "playback_sessions_started_total",
		Help: "Playback sessions successfully started.",
	})

	completions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "playback_completions_total",
		Help: "Stories played through to the end.",
	})
)
