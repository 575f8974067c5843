// 文件路径: internal/job/scheduler.go
// 模块说明: 维护类任务（计数校正等）的 cron 触发与手动执行入口。
package job

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Runnable is a maintenance task over the form store. Run must honour ctx cancellation.
type Runnable interface {
	Name() string
	Run(ctx context.Context) error
}

// runTimeout bounds a single recount pass; a slower pass is cut off and retried on the next tick.
const runTimeout = 2 * time.Minute

// Scheduler triggers maintenance tasks from cron specs. Overlapping ticks of the
// same task are skipped rather than queued.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger

	mu      sync.Mutex
	names   map[string]cron.EntryID
	running bool
}

// NewScheduler accepts standard 5-field specs, an optional leading seconds field, and @every / @daily descriptors.
func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &Scheduler{
		cron:   cron.New(cron.WithParser(parser), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger: logger,
		names:  make(map[string]cron.EntryID),
	}
}

// Register 按 spec 挂载任务；同名任务只能挂载一次。
func (s *Scheduler) Register(spec string, task Runnable) (cron.EntryID, error) {
	switch {
	case task == nil:
		return 0, fmt.Errorf("scheduler: task is required / 任务不能为空")
	case spec == "":
		return 0, fmt.Errorf("scheduler: %s: spec is required / spec 不能为空", task.Name())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.names[task.Name()]; dup {
		return 0, fmt.Errorf("scheduler: %s already registered / 任务已注册", task.Name())
	}
	id, err := s.cron.AddFunc(spec, func() {
		_ = s.execute(context.Background(), task)
	})
	if err != nil {
		return 0, fmt.Errorf("scheduler: %s: %w", task.Name(), err)
	}
	s.names[task.Name()] = id
	s.logger.Info("job registered", "job", task.Name(), "spec", spec)
	return id, nil
}

// RunNow runs task once on the caller's goroutine, e.g. from `formboard job run`.
func (s *Scheduler) RunNow(ctx context.Context, task Runnable) error {
	if task == nil {
		return fmt.Errorf("scheduler: task is required / 任务不能为空")
	}
	return s.execute(ctx, task)
}

func (s *Scheduler) execute(ctx context.Context, task Runnable) error {
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	began := time.Now()
	err := task.Run(ctx)
	log := s.logger.With("job", task.Name(), "elapsed", time.Since(began))
	if err != nil {
		log.Error("job failed", "error", err)
		return err
	}
	log.Debug("job completed")
	return nil
}

// Start is idempotent.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		s.cron.Start()
		s.running = true
	}
}

// Stop 停止触发新任务；返回的 ctx 在进行中的任务结束后关闭。
func (s *Scheduler) Stop() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		done, cancel := context.WithCancel(context.Background())
		cancel()
		return done
	}
	s.running = false
	return s.cron.Stop()
}
