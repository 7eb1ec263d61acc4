package jobs

import (
	"log/slog"

	"github.com/hibiken/asynq"
)

const defaultConcurrency = 4

// Worker consumes sweep tasks from the queue and hands them to the registered
// handlers.
type Worker interface {
	RegisterHandler(taskType string, handler asynq.Handler)
	Run() error
	Shutdown()
}

type worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    *slog.Logger
}

var _ Worker = (*worker)(nil)

// NewWorker constructs a Worker backed by an asynq.Server. Concurrency and
// queue weights come from configuration; a non-positive concurrency falls
// back to a small default since the sweep is I/O bound on Coinbase and
// Telegram, not CPU.
func NewWorker(redisOpt asynq.RedisConnOpt, concurrency int, queues map[string]int, log *slog.Logger) Worker {
	if log == nil {
		log = slog.Default()
	}
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Queues:         queues,
		Concurrency:    concurrency,
		RetryDelayFunc: asynq.DefaultRetryDelayFunc,
	})

	return &worker{
		server: server,
		mux:    asynq.NewServeMux(),
		log:    log,
	}
}

// RegisterHandler wires a task type to the provided handler.
func (w *worker) RegisterHandler(taskType string, handler asynq.Handler) {
	w.mux.Handle(taskType, handler)
}

// Run starts processing tasks and blocks until Shutdown.
func (w *worker) Run() error {
	w.log.Info("sweep worker starting")
	return w.server.Run(w.mux)
}

// Shutdown drains in-flight tasks and stops the server.
func (w *worker) Shutdown() {
	w.log.Info("sweep worker shutting down")
	w.server.Shutdown()
}
