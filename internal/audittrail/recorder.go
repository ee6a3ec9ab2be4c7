package audittrail

/*
Файл recorder.go реализует журнал запусков аудит-агента (Audit Trail).

Ключевые особенности архитектуры:
- Non-blocking Logging: события уходят в буферизованный канал, задержки
  записи в БД не влияют на время ответа эндпоинта аудита.
- Batching: накопление событий в памяти и пакетная запись (Bulk Insert)
  в PostgreSQL по таймеру или при достижении лимита (100 событий).
- Drain Pattern & Graceful Shutdown: при остановке сервиса канал закрывается,
  воркер вычитывает остатки и делает финальный flush — событий не теряем.
*/

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// StorageInterface определяет, куда физически будут сохраняться записи журнала
type StorageInterface interface {
	// WriteRunBatch сохраняет пачку событий за один раз
	WriteRunBatch(ctx context.Context, events []RunEvent) error
}

type Recorder struct {
	ch     chan RunEvent
	repo   StorageInterface
	logger *zap.Logger
	wg     sync.WaitGroup

	isClosed int32 // Атомарный флаг (0 - открыт, 1 - закрыт), защита от Log после Stop
}

func NewRecorder(repo StorageInterface, logger *zap.Logger) *Recorder {
	return &Recorder{
		ch:     make(chan RunEvent, 1000),
		repo:   repo,
		logger: logger.With(zap.String("mod", "audittrail")),
	}
}

func (rec *Recorder) Start() {
	rec.wg.Add(1)
	go rec.worker()
}

// Stop «запирает» вход в канал и ждет, пока воркер всё допишет.
func (rec *Recorder) Stop() {
	atomic.StoreInt32(&rec.isClosed, 1)

	// Крошечная пауза, чтобы текущие Log успели проскочить
	time.Sleep(10 * time.Millisecond)

	rec.logger.Info("stopping recorder: closing channel and flushing buffer...")
	close(rec.ch)
	rec.wg.Wait()
	rec.logger.Info("recorder stopped gracefully")
}

// Log принимает событие без блокировки вызывающего.
// При переполненном буфере событие сбрасывается (Load Shedding) с ошибкой в лог.
func (rec *Recorder) Log(event RunEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if atomic.LoadInt32(&rec.isClosed) == 1 {
		rec.logger.Warn("run event dropped: recorder is stopping", zap.String("id", event.ID))
		return
	}

	select {
	case rec.ch <- event:
	default:
		rec.logger.Error("audit_trail_buffer_overflow",
			zap.String("requirement_id", event.RequirementID),
			zap.String("trace_id", event.TraceID),
		)
	}
}

func (rec *Recorder) worker() {
	defer rec.wg.Done()

	batch := make([]RunEvent, 0, 100)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	flush := func() {
		if len(batch) > 0 {
			// Background: основной контекст к этому моменту может быть закрыт
			if err := rec.repo.WriteRunBatch(context.Background(), batch); err != nil {
				rec.logger.Error("audit trail flush failed", zap.Error(err))
			}
			batch = batch[:0]
		}
	}

	for {
		select {
		case event, ok := <-rec.ch:
			if !ok {
				// Канал закрыт в Stop(): вычитали остатки, финальный flush и выходим
				flush()
				rec.logger.Info("audit trail worker finished")
				return
			}
			batch = append(batch, event)
			if len(batch) >= 100 {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
