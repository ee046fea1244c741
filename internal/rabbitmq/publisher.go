package rabbitmq

import (
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/transcribe-hub/internal/models"
)

// JobPublisher публикует задачи транскрибации в очередь jobs.
type JobPublisher struct {
	ch *amqp.Channel
}

// NewJobPublisher создает публикатор задач поверх открытого канала.
func NewJobPublisher(ch *amqp.Channel) *JobPublisher {
	return &JobPublisher{ch: ch}
}

// Publish отправляет задачу в обменник транскрибации.
func (p *JobPublisher) Publish(job models.Job) error {
	return PublishMessage(p.ch, TranscriptionExchange, JobsRoutingKey, job)
}

// PublishMessage публикует сообщение в JSON с персистентной доставкой.
func PublishMessage(ch *amqp.Channel, exchange string, routingkey string, message any) error {
	const op = "rabbitmq.PublishMessage"
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = ch.Publish(
		exchange,
		routingkey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
