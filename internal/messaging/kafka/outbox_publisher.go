package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/marketplace/internal/domain"
)

// OutboxTopicPublisher публикует outbox-сообщения в Kafka, раскладывая их по
// топикам: события остатков уходят в stock-топик, остальные — в order-топик.
type OutboxTopicPublisher struct {
	producer   *Producer
	orderTopic string
	stockTopic string
}

// NewOutboxPublisher создаёт Kafka-паблишер для transactional outbox.
func NewOutboxPublisher(producer *Producer, orderTopic string) domain.OutboxPublisher {
	if orderTopic == "" {
		orderTopic = TopicOrderEvents
	}
	return &OutboxTopicPublisher{
		producer:   producer,
		orderTopic: orderTopic,
		stockTopic: TopicStockEvents,
	}
}

func (p *OutboxTopicPublisher) Publish(event domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka outbox publisher is not initialized")
	}

	key := event.AggregateID
	if key == "" {
		key = event.ID
	}

	envelope := struct {
		ID            string          `json:"id"`
		AggregateType string          `json:"aggregate_type"`
		AggregateID   string          `json:"aggregate_id"`
		EventType     string          `json:"event_type"`
		Payload       json.RawMessage `json:"payload"`
		PublishedAt   time.Time       `json:"published_at"`
	}{
		ID:            event.ID,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		EventType:     event.EventType,
		Payload:       json.RawMessage(event.Payload),
		PublishedAt:   time.Now().UTC(),
	}

	return p.producer.PublishEvent(p.topicFor(event), key, envelope)
}

// topicFor выбирает топик по типу события: stock.low относится к товарам,
// остальные события — к жизненному циклу заказа.
func (p *OutboxTopicPublisher) topicFor(event domain.OutboxMessage) string {
	if event.EventType == string(EventTypeStockLow) || event.AggregateType == "product" {
		return p.stockTopic
	}
	return p.orderTopic
}

// DLQTopicPublisher публикует сообщения в dead letter queue. Топик здесь
// фиксированный, а payload уходит как есть: outbox worker уже обернул
// исходное событие в конверт с причиной сбоя.
type DLQTopicPublisher struct {
	producer *Producer
	topic    string
}

// NewDLQPublisher создаёт Kafka-паблишер для dead letter queue.
func NewDLQPublisher(producer *Producer) domain.OutboxPublisher {
	return &DLQTopicPublisher{
		producer: producer,
		topic:    TopicDeadLetterQueue,
	}
}

func (p *DLQTopicPublisher) Publish(event domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return fmt.Errorf("kafka dlq publisher is not initialized")
	}

	key := event.AggregateID
	if key == "" {
		key = event.ID
	}

	return p.producer.PublishEvent(p.topic, key, json.RawMessage(event.Payload))
}

var (
	_ domain.OutboxPublisher = (*OutboxTopicPublisher)(nil)
	_ domain.OutboxPublisher = (*DLQTopicPublisher)(nil)
)
