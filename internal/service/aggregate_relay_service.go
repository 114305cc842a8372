package service

import (
	"context"
	"encoding/json"
	"time"

	"podcast-studio-be/internal/composer"
	"podcast-studio-be/internal/dto"
	"podcast-studio-be/internal/mapper"
	"podcast-studio-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/patrickmn/go-cache"
)

// deliveredTTL bounds how long the last delivered version of an idle session
// is remembered.
const deliveredTTL = time.Hour

// AggregateDelivery pushes a frame to the clients watching a session.
// Implemented by the websocket hub.
type AggregateDelivery interface {
	Send(sessionID, msgType string, data interface{})
}

// IAggregateRelayService moves live aggregate updates from composer sessions
// to websocket clients through the in-process bus, so sessions never block on
// slow connections.
type IAggregateRelayService interface {
	Publish(sessionId string, version uint64, counts composer.AggregateCounts)
	Consume(ctx context.Context) error
}

type aggregateRelayService struct {
	pubSub    *gochannel.GoChannel
	topicName string
	delivery  AggregateDelivery
	mapper    *mapper.ComposerMapper
	logger    logger.ILogger

	// session id -> last delivered aggregate version
	delivered *cache.Cache
}

func NewAggregateRelayService(pubSub *gochannel.GoChannel, topicName string, delivery AggregateDelivery, log logger.ILogger) IAggregateRelayService {
	return &aggregateRelayService{
		pubSub:    pubSub,
		topicName: topicName,
		delivery:  delivery,
		mapper:    mapper.NewComposerMapper(),
		logger:    log,
		delivered: cache.New(deliveredTTL, deliveredTTL/2),
	}
}

func (s *aggregateRelayService) Publish(sessionId string, version uint64, counts composer.AggregateCounts) {
	payload, err := json.Marshal(s.mapper.ToAggregateResponse(sessionId, version, counts))
	if err != nil {
		s.logger.Error("AggregateRelay", "Failed to marshal aggregate", map[string]interface{}{
			"session_id": sessionId,
			"error":      err.Error(),
		})
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := s.pubSub.Publish(s.topicName, msg); err != nil {
		s.logger.Warn("AggregateRelay", "Failed to publish aggregate", map[string]interface{}{
			"session_id": sessionId,
			"error":      err.Error(),
		})
	}
}

func (s *aggregateRelayService) Consume(ctx context.Context) error {
	messages, err := s.pubSub.Subscribe(ctx, s.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			s.processMessage(msg)
		}
	}()

	return nil
}

func (s *aggregateRelayService) processMessage(msg *message.Message) {
	var payload dto.AggregateResponse
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		s.logger.Error("AggregateRelay", "Failed to unmarshal aggregate", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		// Ack invalid messages to prevent infinite redelivery.
		msg.Ack()
		return
	}

	// The bus does not preserve publish order; never step a client back.
	if last, found := s.delivered.Get(payload.SessionId); found && payload.Version <= last.(uint64) {
		s.logger.Debug("AggregateRelay", "Dropped out-of-order aggregate", map[string]interface{}{
			"session_id": payload.SessionId,
			"version":    payload.Version,
			"delivered":  last,
		})
		msg.Ack()
		return
	}
	s.delivered.Set(payload.SessionId, payload.Version, cache.DefaultExpiration)

	s.delivery.Send(payload.SessionId, "aggregate", payload)
	msg.Ack()
}
