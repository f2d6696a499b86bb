package offers

import (
	"context"
	"encoding/json"
	"fmt"

	"ride-dispatch/internal/config"
	messagebrokerdto "ride-dispatch/internal/dispatch-service/core/domain/message_broker_dto"
	"ride-dispatch/internal/dispatch-service/core/domain/model"
	"ride-dispatch/internal/dispatch-service/core/ports"
	"ride-dispatch/internal/mylogger"

	"github.com/rabbitmq/amqp091-go"
)

const consumerName = "ride_offer_consumer"

// Consumer turns ride.request messages into offer notifications for the
// drivers nearest to the pickup point.
type Consumer struct {
	ctx      context.Context
	cfg      *config.Matchconfig
	mylog    mylogger.Logger
	broker   ports.IRidesBroker
	matching ports.IMatchingService
	gateway  ports.INotificationService
}

func New(
	ctx context.Context,
	cfg *config.Matchconfig,
	mylog mylogger.Logger,
	broker ports.IRidesBroker,
	matching ports.IMatchingService,
	gateway ports.INotificationService,
) *Consumer {
	return &Consumer{
		ctx:      ctx,
		cfg:      cfg,
		mylog:    mylog,
		broker:   broker,
		matching: matching,
		gateway:  gateway,
	}
}

func (c *Consumer) Run() error {
	ch, err := c.broker.ConsumeRideRequests(c.ctx, consumerName)
	if err != nil {
		return err
	}

	go c.work(c.ctx, ch, c.RideRequested)

	return nil
}

func (c *Consumer) work(
	ctx context.Context,
	ch <-chan amqp091.Delivery,
	Do func(msg amqp091.Delivery) error,
) {
	mylog := c.mylog.Action("offer_consumer")

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}

			if err := Do(msg); err != nil {
				mylog.Error("failed to process ride request", err)
				_ = msg.Nack(false, false)
				continue
			}
			_ = msg.Ack(false)
		case <-ctx.Done():
			return
		}
	}
}

// RideRequested finds the drivers closest to the pickup point and writes an
// offer notification for each one. A ride with no drivers nearby is still a
// processed message.
func (c *Consumer) RideRequested(msg amqp091.Delivery) error {
	m := messagebrokerdto.RideRequested{}
	if err := json.Unmarshal(msg.Body, &m); err != nil {
		return err
	}

	drivers, err := c.matching.FindNearby(c.ctx,
		m.PickupLocation.Lat,
		m.PickupLocation.Lng,
		c.cfg.SearchRadiusKm,
		c.cfg.OfferCount,
	)
	if err != nil {
		return err
	}

	title := "New ride request"
	body := fmt.Sprintf("Pickup at %s, estimated fare %.2f", m.PickupLocation.Address, m.EstimatedPrice)

	for _, d := range drivers {
		_, err := c.gateway.Notify(c.ctx, d.DriverID, model.NotifyRideRequested, title, body, &m.RideID)
		if err != nil {
			c.mylog.Action("offer_consumer").With("ride_id", m.RideID).With("driver_id", d.DriverID).
				Error("failed to deliver ride offer", err)
		}
	}
	return nil
}
