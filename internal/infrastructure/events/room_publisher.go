package events

import (
	"context"
	"encoding/json"

	"github.com/emberchat/ember/internal/domain"
	"github.com/emberchat/ember/internal/infrastructure/messaging"
)

type RoomPublisher struct {
	rabbitmq *messaging.RabbitMQ
}

func NewRoomPublisher(rabbitmq *messaging.RabbitMQ) *RoomPublisher {
	return &RoomPublisher{
		rabbitmq: rabbitmq,
	}
}

func (p *RoomPublisher) PublishRoomCreated(ctx context.Context, room domain.Room) error {
	return p.publish(ctx, messaging.EventRoomCreated, room)
}

func (p *RoomPublisher) PublishRoomDeleted(ctx context.Context, room domain.Room) error {
	return p.publish(ctx, messaging.EventRoomDeleted, room)
}

func (p *RoomPublisher) PublishRoomExpired(ctx context.Context, room domain.Room) error {
	return p.publish(ctx, messaging.EventRoomExpired, room)
}

func (p *RoomPublisher) publish(ctx context.Context, routingKey string, room domain.Room) error {
	payload := messaging.RoomEventData{
		Room: room,
	}

	roomEventJSON, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return p.rabbitmq.PublishMessage(ctx, routingKey, roomEventJSON)
}
