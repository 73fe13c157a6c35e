package service

import (
	"context"
	"sync"

	"github.com/shenikar/hazard_fusion_engine/internal/models"
	"github.com/sirupsen/logrus"
)

// retryPool - пул воркеров для асинхронного дожима сообщений, не
// уложившихся в дедлайн обработки. Сообщения не теряются: переполнение
// очереди логируется и сообщение отбрасывается только с явной ошибкой.
type retryPool struct {
	workers   int
	jobs      chan *models.Report
	processor func(ctx context.Context, report *models.Report) error
	logger    *logrus.Logger
	wg        sync.WaitGroup
}

func newRetryPool(workers, queueSize int, processor func(ctx context.Context, report *models.Report) error, logger *logrus.Logger) *retryPool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &retryPool{
		workers:   workers,
		jobs:      make(chan *models.Report, queueSize),
		processor: processor,
		logger:    logger,
	}
}

// Start запускает воркеров пула
func (p *retryPool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
}

func (p *retryPool) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case report, ok := <-p.jobs:
			if !ok {
				return
			}
			if err := p.processor(ctx, report); err != nil {
				p.logger.WithError(err).WithField("report_id", report.ID).
					Error("Async retry failed, report remains unprocessed")
			}
		}
	}
}

// Submit ставит сообщение в очередь повторов
func (p *retryPool) Submit(report *models.Report) {
	select {
	case p.jobs <- report:
	default:
		p.logger.WithField("report_id", report.ID).
			Error("Retry queue full, report dropped from async retry")
	}
}

// Stop закрывает очередь и дожидается воркеров
func (p *retryPool) Stop() {
	close(p.jobs)
	p.wg.Wait()
}
