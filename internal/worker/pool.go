package worker

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/woxQAQ/wasmtoys/api/abi"
	"github.com/woxQAQ/wasmtoys/internal/metrics"
	"github.com/woxQAQ/wasmtoys/internal/wasm"
)

// Handler receives worker replies on the host side. Calls arrive on worker
// goroutines; implementations hand them to whatever owns the main instance.
type Handler interface {
	WorkerReady(id int)
	WorkerData(id int, data []byte)
}

// PoolConfig configures a worker pool.
type PoolConfig struct {
	// Module is the raw module binary. Every worker receives its own copy.
	Module []byte

	// Imports are the names of every import the host provides. Workers stub
	// them all except send_data and the console/math imports.
	Imports []string

	Worker Config

	// MaxWorkers caps the number of workers. Zero means unlimited and a
	// negative value forbids forking.
	MaxWorkers int
}

type slot struct {
	worker *Worker
	box    *mailbox
	ready  atomic.Bool
}

// Pool is the host side of the worker channels.
type Pool struct {
	config  PoolConfig
	handler Handler
	metrics *metrics.Metrics
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group

	mu     sync.RWMutex
	slots  []*slot
	closed bool
}

// NewPool creates an empty pool. Workers live until ctx is done or Close.
func NewPool(ctx context.Context, config PoolConfig, handler Handler, m *metrics.Metrics, logger *zap.Logger) *Pool {
	ctx, cancel := context.WithCancel(ctx)
	group, ctx := errgroup.WithContext(ctx)
	return &Pool{
		config:  config,
		handler: handler,
		metrics: m,
		logger:  logger.With(zap.String("component", "worker-pool")),
		ctx:     ctx,
		cancel:  cancel,
		group:   group,
	}
}

// Fork starts n workers and returns their ids. Each worker is sent the init
// message right away; it only accepts data once it has replied init_complete.
func (p *Pool) Fork(n int) ([]int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPoolClosed
	}
	if limit := p.config.MaxWorkers; limit != 0 && len(p.slots)+n > max(limit, 0) {
		return nil, &wasm.InstanceLimitError{Limit: max(limit, 0)}
	}

	ids := make([]int, 0, n)
	for i := 0; i < n; i++ {
		id := len(p.slots)
		s := &slot{box: newMailbox()}
		s.worker = New(id, p.config.Worker, p.reply(id, s), p.logger)
		p.slots = append(p.slots, s)

		p.group.Go(func() error {
			return s.worker.run(p.ctx, s.box)
		})

		module := make([]byte, len(p.config.Module))
		copy(module, p.config.Module)
		s.box.Put(InitMessage(module, p.config.Imports))
		p.metrics.WorkerMessage("to", string(TypeInit))

		p.logger.Info("Init worker", zap.Int("worker_id", id))
		ids = append(ids, id)
	}
	p.metrics.SetWorkers(len(p.slots))
	return ids, nil
}

// reply returns the function worker id posts its messages through.
func (p *Pool) reply(id int, s *slot) func(Message) {
	return func(msg Message) {
		p.metrics.WorkerMessage("from", string(msg.Type))

		switch msg.Type {
		case TypeInitComplete:
			if !s.ready.CompareAndSwap(false, true) {
				p.logger.Warn("Duplicate init_complete", zap.Int("worker_id", id))
				return
			}
			p.handler.WorkerReady(id)
		case TypeData:
			p.handler.WorkerData(id, msg.Data)
		default:
			p.logger.Warn("Unexpected message from worker",
				zap.Int("worker_id", id),
				zap.String("type", string(msg.Type)),
			)
		}
	}
}

func (p *Pool) slot(id int) (*slot, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, ErrPoolClosed
	}
	if id < 0 || id >= len(p.slots) {
		return nil, &UnknownWorkerError{ID: id}
	}
	return p.slots[id], nil
}

// Send posts a copy of data to worker id.
func (p *Pool) Send(id int, data []byte) error {
	s, err := p.slot(id)
	if err != nil {
		return err
	}
	if !s.ready.Load() {
		return &WorkerError{ID: id, Err: ErrUninitialized}
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	if !s.box.Put(DataMessage(buf)) {
		return ErrPoolClosed
	}
	p.metrics.WorkerMessage("to", string(TypeData))
	return nil
}

// Ready reports whether worker id has completed its init sequence.
func (p *Pool) Ready(id int) bool {
	s, err := p.slot(id)
	return err == nil && s.ready.Load()
}

// Len returns the number of forked workers.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.slots)
}

// Imports returns the main-side send_worker_data import.
func (p *Pool) Imports(bridge wasm.Bridge) *wasm.Imports {
	return wasm.NewImports().Func(abi.SendWorkerData, func(ctx context.Context, mod api.Module, id, ptr, length uint32) {
		buf, err := bridge.Memory(mod).View(ptr, length)
		if err != nil {
			panic(&wasm.HostFunctionError{FunctionName: abi.SendWorkerData, Err: err})
		}
		if err := p.Send(int(id), buf); err != nil {
			p.logger.Error("Failed to send worker data", zap.Uint32("worker_id", id), zap.Error(err))
		}
	}, "worker_id", "ptr", "len")
}

// Close stops every worker and waits for them to exit.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	for _, s := range p.slots {
		s.box.Close()
	}
	p.mu.Unlock()

	p.cancel()
	err := p.group.Wait()
	p.metrics.SetWorkers(0)
	return err
}
