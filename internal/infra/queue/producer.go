package queue

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// UploadPayload é a mensagem que vai pra fila quando uma conversão
// nova precisa subir pra plataforma de ads. Só o hash do email
// atravessa: o endereço cru nunca entra na fila.
type UploadPayload struct {
	JobID        string `json:"job_id"`
	ConversionID string `json:"conversion_id"`
	EmailHash    string `json:"email_hash"`
	ClickID      string `json:"click_id,omitempty"`
	Stage        string `json:"stage"`
}

type QueueProducerInterface interface {
	PublishUpload(ctx context.Context, payload UploadPayload) error
}

type RabbitMQProducer struct {
	Conn *amqp.Connection
	Ch   *amqp.Channel
}


func NewProducer(conn *amqp.Connection, ch *amqp.Channel) *RabbitMQProducer {
	return &RabbitMQProducer{
		Conn: conn,
		Ch:   ch,
	}
}

func (p *RabbitMQProducer) PublishUpload(ctx context.Context, payload UploadPayload) error {

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("erro ao converter payload: %v", err)
	}


	err = p.Ch.PublishWithContext(ctx,
		ExchangeName, // ex.conversions
		RoutingKey,   // k.upload
		false,        // Mandatory
		false,        // Immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent, // Mensagem salva no disco
		},
	)

	if err != nil {
		return fmt.Errorf("falha ao publicar no RabbitMQ: %v", err)
	}

	return nil
}
