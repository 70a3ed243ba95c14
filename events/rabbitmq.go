// Package events publishes order lifecycle events to RabbitMQ. Publishing
// is best-effort and always happens after the settlement transaction has
// committed; a lost event never affects order state.
package events

import (
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/orderpipe/ecommerce-api/config"
)

type OrderEvent struct {
	OrderID       uint      `json:"order_id"`
	OrderRef      string    `json:"order_ref"`
	UserID        string    `json:"user_id"`
	Type          string    `json:"type"` // created, payment_settled
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	FinalAmount   string    `json:"final_amount"`
	Occurred      time.Time `json:"occurred"`
}

type Publisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	cfg     *config.Config
}

func NewPublisher(cfg *config.Config) (*Publisher, error) {
	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &Publisher{conn: conn, channel: ch, cfg: cfg}, nil
}

// SetupQueues declares the order exchange, the priority order queue and
// its dead-letter pair.
func (p *Publisher) SetupQueues() error {
	if err := p.channel.ExchangeDeclare(
		p.cfg.OrderExchange,
		"fanout",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return err
	}

	if err := p.channel.ExchangeDeclare(
		p.cfg.DeadLetterQueue+"_exchange",
		"direct",
		true, false, false, false,
		nil,
	); err != nil {
		return err
	}
	if _, err := p.channel.QueueDeclare(
		p.cfg.DeadLetterQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		return err
	}
	if err := p.channel.QueueBind(
		p.cfg.DeadLetterQueue, "", p.cfg.DeadLetterQueue+"_exchange", false, nil,
	); err != nil {
		return err
	}

	if _, err := p.channel.QueueDeclare(
		p.cfg.OrderQueue,
		true, false, false, false,
		amqp.Table{
			"x-max-priority":            p.cfg.MaxPriority,
			"x-dead-letter-exchange":    p.cfg.DeadLetterQueue + "_exchange",
			"x-dead-letter-routing-key": p.cfg.DeadLetterQueue,
		},
	); err != nil {
		return err
	}
	return p.channel.QueueBind(p.cfg.OrderQueue, "", p.cfg.OrderExchange, false, nil)
}

func (p *Publisher) PublishOrderEvent(ev OrderEvent, priority uint8) error {
	ev.Occurred = time.Now()
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.channel.Publish(
		p.cfg.OrderExchange,
		"",
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			Timestamp:    ev.Occurred,
			ContentType:  "application/json",
			Body:         body,
			Priority:     priority,
		},
	)
}

func (p *Publisher) Close() {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}
