package queue

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler processes one delivery and must tolerate redelivery.
// nil acks the message; an error nacks it, with requeue decided by the Router.
type Handler interface {
	Handle(ctx context.Context, d amqp.Delivery) error
}
