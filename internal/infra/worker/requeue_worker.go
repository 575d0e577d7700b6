package worker

import (
	"context"
	"log"
	"time"

	"github.com/xavierca1/ligue-attribution/internal/entity"
	"github.com/xavierca1/ligue-attribution/internal/infra/queue"
)


type RequeueWorker struct {
	jobRepo      entity.AdsUploadJobRepositoryInterface
	producer     queue.QueueProducerInterface
	staleAfter   time.Duration
	tickInterval time.Duration
}


func NewRequeueWorker(jobRepo entity.AdsUploadJobRepositoryInterface, producer queue.QueueProducerInterface, staleAfter, tickInterval time.Duration) *RequeueWorker {
	return &RequeueWorker{
		jobRepo:      jobRepo,
		producer:     producer,
		staleAfter:   staleAfter,
		tickInterval: tickInterval,
	}
}

// Start roda a varredura de jobs PENDING órfãos: linha gravada mas
// mensagem perdida (publish falhou depois do INSERT, broker caiu,
// processo reiniciou no meio). A linha no banco é a fonte de verdade,
// então é só republicar: o worker de upload ignora entrega duplicada
// olhando o status.
func (w *RequeueWorker) Start(ctx context.Context) {
	log.Printf("🕒 Requeue Worker iniciado (stale após %s)", w.staleAfter)

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()


	w.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("⚠️ Requeue Worker encerrado")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}


func (w *RequeueWorker) sweep(ctx context.Context) {
	jobs, err := w.jobRepo.FindStalePending(ctx, w.staleAfter, 50)
	if err != nil {
		log.Printf("❌ Erro ao buscar jobs órfãos: %v", err)
		return
	}

	requeued := 0
	for _, job := range jobs {
		payload := queue.UploadPayload{
			JobID:        job.ID,
			ConversionID: job.ConversionID,
			EmailHash:    job.EmailHash,
			ClickID:      job.ClickID,
			Stage:        job.Stage,
		}

		if err := w.producer.PublishUpload(ctx, payload); err != nil {
			log.Printf("⚠️ Falha ao republicar job %s: %v", job.ID, err)
			continue
		}

		// Toca updated_at pra não repescar o mesmo job no próximo tick
		if err := w.jobRepo.Touch(ctx, job.ID); err != nil {
			log.Printf("⚠️ Falha ao marcar requeue do job %s: %v", job.ID, err)
		}

		log.Printf("🔁 Job %s republicado (parado desde %s)", job.ID, job.UpdatedAt.Format(time.RFC3339))
		requeued++
	}

	if requeued > 0 {
		log.Printf("✅ %d job(s) órfão(s) republicado(s)", requeued)
	}
}
