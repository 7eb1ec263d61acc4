package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ratespy/ratespy-bot/internal/dialog"
)

var (
	botCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_commands_total",
			Help: "Total number of bot commands received labeled by command and status",
		},
		[]string{"command", "status"},
	)
	commandDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "command_duration_seconds",
			Help:    "Duration of bot commands in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)
	dialogTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dialog_transitions_total",
			Help: "Total number of dialog transitions",
		},
		[]string{"from", "to"},
	)
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors split by type and severity",
		},
		[]string{"type", "severity"},
	)
	quoteFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quote_failures_total",
			Help: "Total number of failed upstream quote requests by provider",
		},
		[]string{"provider"},
	)
	activeDialogs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_dialogs",
			Help: "Current number of users with an open dialog",
		},
	)
	usersByDialog = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "users_by_dialog",
			Help: "Number of users per dialog step",
		},
		[]string{"dialog"},
	)
)

var trackedDialogs = []dialog.Dialog{
	dialog.DialogNone,
	dialog.DialogAwaitingCurrency,
	dialog.DialogAwaitingInterval,
	dialog.DialogAwaitingThreshold,
}

func init() {
	dialog.RegisterTransitionRecorder(RecordDialogTransition)
}

// RecordCommand increments command counters and records duration.
func RecordCommand(command, status string, duration time.Duration) {
	if command == "" {
		command = "unknown"
	}
	if status == "" {
		status = "unknown"
	}

	botCommandsTotal.WithLabelValues(command, status).Inc()
	commandDurationSeconds.WithLabelValues(command).Observe(duration.Seconds())
}

// RecordDialogTransition tracks dialog step changes.
func RecordDialogTransition(from, to string) {
	if from == "" {
		from = "unknown"
	}
	if to == "" {
		to = "unknown"
	}

	dialogTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordError increments error counters with metadata.
func RecordError(errType, severity string) {
	if errType == "" {
		errType = "unknown"
	}
	if severity == "" {
		severity = "unknown"
	}

	errorsTotal.WithLabelValues(errType, severity).Inc()
}

// RecordQuoteFailure counts a failed upstream price lookup.
func RecordQuoteFailure(provider string) {
	if provider == "" {
		provider = "unknown"
	}

	quoteFailuresTotal.WithLabelValues(provider).Inc()
}

// SetActiveDialogs updates the gauge for users with an open dialog.
func SetActiveDialogs(count int) {
	activeDialogs.Set(float64(count))
}

// SetUsersByDialog updates the gauge for the given dialog step.
func SetUsersByDialog(step string, count int) {
	if step == "" {
		step = "unknown"
	}

	usersByDialog.WithLabelValues(step).Set(float64(count))
}

// DialogCollector periodically gathers open dialog counts and emits gauges.
type DialogCollector struct {
	store dialog.Store
}

// NewDialogCollector builds a collector bound to the provided dialog store.
func NewDialogCollector(store dialog.Store) *DialogCollector {
	return &DialogCollector{store: store}
}

// Run polls the store every 10 seconds until ctx is cancelled.
func (c *DialogCollector) Run(ctx context.Context) {
	if c == nil || c.store == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	for {
		_ = c.collect(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(10 * time.Second):
		}
	}
}

func (c *DialogCollector) collect(ctx context.Context) error {
	open, err := c.store.GetAll(ctx)
	if err != nil {
		return err
	}

	SetActiveDialogs(len(open))

	counts := make(map[string]int, len(open))
	for _, d := range open {
		label := "unknown"
		if d != nil && d.Dialog != "" {
			label = string(d.Dialog)
		}
		counts[label]++
	}

	usersByDialog.Reset()

	for _, tracked := range trackedDialogs {
		label := string(tracked)
		SetUsersByDialog(label, counts[label])
		delete(counts, label)
	}

	for label, count := range counts {
		SetUsersByDialog(label, count)
	}

	return nil
}
