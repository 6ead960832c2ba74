package workers

import (
	"chatspace/contract"
	"chatspace/errors"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Supervisor owns a context and its cancel function.
// It runs each worker in a goroutine and restarts the ones that panic.
// A worker returning an error is logged and left stopped: its view stays
// stale until the session resyncs.
// Run returns once every worker goroutine has exited.
type Supervisor struct {
	Cancel          context.CancelFunc
	wg              *sync.WaitGroup
	log             *slog.Logger
	workers         []contract.Worker
	restartInterval time.Duration
}

func NewSupervisor(log *slog.Logger, restartInterval time.Duration) *Supervisor {
	return &Supervisor{wg: &sync.WaitGroup{}, log: log, restartInterval: restartInterval}
}

// Run ties a local cancellation to the parent ctx.
// If the parent cancels, every worker stops. Stop only stops this supervisor's workers.
func (s *Supervisor) Run(ctx context.Context) {
	supervisedCtx, cancel := context.WithCancel(ctx)
	s.Cancel = cancel
	defer s.Cancel()

	for _, worker := range s.workers {
		s.Start(supervisedCtx, worker)
	}
	s.wg.Wait()
}

func (s *Supervisor) Add(worker ...contract.Worker) contract.ISupervisor {
	s.workers = append(s.workers, worker...)
	return s
}

// Start runs a worker under supervision in a dedicated goroutine.
// A panic is recovered and the worker restarted after the restart interval,
// so one failing subscription never takes the others down.
func (s *Supervisor) Start(ctx context.Context, worker contract.Worker) {
	s.wg.Add(1)
	workerName := contract.GetWorkerName(worker)

	go func() {
		defer s.wg.Done()

		for {
			if ctx.Err() != nil {
				s.log.Info(fmt.Sprintf("Stopping : %s", workerName))
				return
			}

			err := func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						err = fmt.Errorf("%w: %v", errors.ErrWorkerPanic, r)
					}
				}()
				return worker.Run(ctx)
			}()

			switch {
			case err == nil:
				s.log.Info(fmt.Sprintf("Worker finished : %s", workerName))
				return
			case ctx.Err() != nil:
				s.log.Info("Worker stopped (context canceled)", "name", workerName)
				return
			case !stderrors.Is(err, errors.ErrWorkerPanic):
				s.log.Error("Worker failed, not restarting", "name", workerName, "error", err)
				return
			}

			s.log.Warn("Worker crashed, restarting", "name", workerName, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.restartInterval):
			}
		}
	}()
}

// Stop cancels the supervised context. Run returns once workers are done.
func (s *Supervisor) Stop() {
	if s.Cancel != nil {
		s.Cancel()
	}
}
