package rabbitmq

import (
	"fmt"

	"github.com/streadway/amqp"
)

// Топология очереди заданий транскрибации.
const (
	TranscriptionExchange = "transcription"
	JobsQueue             = "transcription.jobs"
	JobsRoutingKey        = "jobs"
)

// SetupChannel открывает канал, ограничивает prefetch и объявляет
// долговечную топологию: exchange, очередь заданий и привязку.
// Объявления идемпотентны, канал безопасно открывать из каждого процесса.
func SetupChannel(conn *amqp.Connection, prefetch int) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("%s: failed to set QoS: %w", op, err)
	}

	err = ch.ExchangeDeclare(
		TranscriptionExchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	_, err = ch.QueueDeclare(
		JobsQueue,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to declare queue %s: %w", op, JobsQueue, err)
	}

	err = ch.QueueBind(JobsQueue, JobsRoutingKey, TranscriptionExchange, false, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to bind queue %s: %w", op, JobsQueue, err)
	}

	return ch, nil
}
