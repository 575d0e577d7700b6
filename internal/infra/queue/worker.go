package queue

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/xavierca1/ligue-attribution/internal/entity"
	"github.com/xavierca1/ligue-attribution/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-attribution/internal/infra/integration/googleads"
)

// AdsUploader define o contrato com a plataforma de ads
type AdsUploader interface {
	UploadConversion(ctx context.Context, input googleads.UploadInput) error
}

// AlertSender avisa o operador quando um job vira FAILED terminal
type AlertSender interface {
	SendUploadFailureAlert(jobID, conversionID, stage, reason string, attempts int) error
}

type Worker struct {
	Channel  *amqp.Channel
	Uploader AdsUploader
	JobRepo  entity.AdsUploadJobRepositoryInterface
	Alerts   AlertSender

	MaxAttempts int
	BackoffBase time.Duration
	BackoffCap  time.Duration

	// trocável nos testes pra não dormir de verdade
	sleep func(time.Duration)
}

func NewWorker(
	ch *amqp.Channel,
	uploader AdsUploader,
	jobRepo entity.AdsUploadJobRepositoryInterface,
	alerts AlertSender,
	maxAttempts int,
	backoffBase, backoffCap time.Duration,
) *Worker {
	return &Worker{
		Channel:     ch,
		Uploader:    uploader,
		JobRepo:     jobRepo,
		Alerts:      alerts,
		MaxAttempts: maxAttempts,
		BackoffBase: backoffBase,
		BackoffCap:  backoffCap,
		sleep:       time.Sleep,
	}
}

func (w *Worker) Start(queueName string) {
	msgs, err := w.Channel.Consume(
		queueName, // fila
		"",        // consumer
		false,     // auto-ack (manual é mais seguro)
		false,     // exclusive
		false,     // no-local
		false,     // no-wait
		nil,       // args
	)
	if err != nil {
		log.Fatalf("❌ Falha ao registrar consumidor RabbitMQ: %s", err)
	}

	forever := make(chan bool)

	go func() {
		for d := range msgs {
			log.Printf("📥 [WORKER] Mensagem recebida do RabbitMQ")

			var payload UploadPayload
			if err := json.Unmarshal(d.Body, &payload); err != nil {
				log.Printf("❌ [WORKER] JSON inválido: %s", err)
				// Mensagem podre (malformada). Rejeita sem requeue: vai pra DLQ.
				d.Nack(false, false)
				continue
			}

			requeue := w.ProcessUpload(context.Background(), payload)
			if requeue {
				d.Nack(false, true)
			} else {
				d.Ack(false)
			}
		}
	}()

	log.Printf(" [*] Worker rodando e aguardando na fila '%s'", queueName)
	<-forever
}

// ProcessUpload executa uma entrega e devolve se a mensagem deve
// voltar pra fila. Todo desfecho terminal (sucesso, duplicata,
// FAILED esgotado) devolve false.
func (w *Worker) ProcessUpload(ctx context.Context, payload UploadPayload) (requeue bool) {
	job, err := w.JobRepo.FindByID(ctx, payload.JobID)
	if err != nil {
		log.Printf("⚠️ [WORKER] Job %s não encontrado no banco: %v", payload.JobID, err)
		// Sem linha no banco não há o que retentar
		return false
	}

	// Entrega duplicada da fila: o banco já diz que terminou
	if job.Status != entity.JobStatusPending {
		log.Printf("🔁 [WORKER] Job %s já está %s, ignorando entrega", job.ID, job.Status)
		return false
	}

	log.Printf("⚙️ [WORKER] Subindo conversão %s (stage=%s)", payload.ConversionID, payload.Stage)

	uploadErr := w.Uploader.UploadConversion(ctx, googleads.UploadInput{
		ConversionID: payload.ConversionID,
		EmailHash:    payload.EmailHash,
		ClickID:      payload.ClickID,
		Stage:        payload.Stage,
	})

	if uploadErr == nil {
		if err := w.JobRepo.MarkUploaded(ctx, job.ID); err != nil {
			log.Printf("⚠️ [WORKER] Upload ok mas falha ao marcar UPLOADED: %v", err)
		}
		middleware.RecordUpload("uploaded")
		log.Printf("✅ [WORKER] Conversão %s enviada com sucesso", payload.ConversionID)
		return false
	}

	attempts, err := w.JobRepo.RegisterAttempt(ctx, job.ID, uploadErr.Error())
	if err != nil {
		log.Printf("❌ [WORKER] Falha ao registrar tentativa do job %s: %v", job.ID, err)
		attempts = job.Attempts + 1
	}

	if googleads.IsTransient(uploadErr) && attempts < w.MaxAttempts {
		backoff := w.backoff(attempts)
		middleware.RecordUpload("retried")
		log.Printf("🔄 [WORKER] Erro transitório (tentativa %d/%d), requeue em %s: %v",
			attempts, w.MaxAttempts, backoff, uploadErr)
		w.sleep(backoff)
		return true
	}

	// Terminal: 4xx permanente ou retentativas esgotadas
	w.failTerminal(ctx, job, uploadErr, attempts)
	return false
}

func (w *Worker) failTerminal(ctx context.Context, job *entity.AdsUploadJob, cause error, attempts int) {
	if err := w.JobRepo.MarkFailed(ctx, job.ID, cause.Error()); err != nil {
		log.Printf("❌ [WORKER] Falha ao marcar job %s como FAILED: %v", job.ID, err)
	}
	middleware.RecordUpload("failed")
	middleware.RecordIntegrationError("googleads")

	log.Printf("💀 [WORKER] Job %s FAILED em definitivo após %d tentativa(s): %v",
		job.ID, attempts, cause)

	// A falha NUNCA volta pro CRM (já levou 200); o alerta é o canal do operador
	if err := w.Alerts.SendUploadFailureAlert(job.ID, job.ConversionID, job.Stage, cause.Error(), attempts); err != nil {
		log.Printf("⚠️ [WORKER] Falha ao enviar alerta: %v", err)
	}
}

// backoff exponencial: base * 2^(n-1), teto em BackoffCap
func (w *Worker) backoff(attempts int) time.Duration {
	d := w.BackoffBase
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= w.BackoffCap {
			return w.BackoffCap
		}
	}
	if d > w.BackoffCap {
		return w.BackoffCap
	}
	return d
}
