package app

import (
	"github.com/vladislavdragonenkov/marketplace/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/marketplace/internal/service/checkout"
)

// createProcessor создаёт checkout processor с или без Kafka в зависимости
// от наличия kafka producer.
func createProcessor(
	deps *Dependencies,
	kafkaProducer *kafka.Producer,
) checkout.Processor {
	logger := deps.Logger.WithField("component", "checkout")

	if kafkaProducer != nil {
		return checkout.NewProcessorWithKafka(
			deps.Catalog,
			deps.Customers,
			deps.Carts,
			deps.Ledger,
			deps.Outbox,
			kafkaProducer,
			logger,
		)
	}

	return checkout.NewProcessor(
		deps.Catalog,
		deps.Customers,
		deps.Carts,
		deps.Ledger,
		deps.Outbox,
		logger,
	)
}
