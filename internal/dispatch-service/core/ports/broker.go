package ports

import (
	"context"

	messagebrokerdto "ride-dispatch/internal/dispatch-service/core/domain/message_broker_dto"

	amqp "github.com/rabbitmq/amqp091-go"
)

type IRidesBroker interface {
	Close() error
	IsAlive() bool

	PublishRideRequested(ctx context.Context, msg messagebrokerdto.RideRequested) error
	PublishRideStatus(ctx context.Context, msg messagebrokerdto.RideStatus) error

	ConsumeRideRequests(ctx context.Context, consumerName string) (<-chan amqp.Delivery, error)
}
