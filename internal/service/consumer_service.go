package service

import (
	"context"
	"encoding/json"
	"log"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"draco-chat-be/internal/dto"
	"draco-chat-be/internal/entity"
	"draco-chat-be/internal/repository/specification"
	"draco-chat-be/internal/repository/unitofwork"
	"draco-chat-be/pkg/events"
	"draco-chat-be/pkg/nats"
	"draco-chat-be/pkg/workflow"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService drains the persist-snapshot queue. Writing the finished
// run to Postgres happens here, off the request path, so a slow database
// never stalls a stream that is already terminal.
type consumerService struct {
	pubSub         *gochannel.GoChannel
	topicName      string
	uowFactory     unitofwork.RepositoryFactory
	eventPublisher *nats.Publisher
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	eventPublisher *nats.Publisher,
) IConsumerService {
	return &consumerService{
		pubSub:         pubSub,
		topicName:      topicName,
		uowFactory:     uowFactory,
		eventPublisher: eventPublisher,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PersistSnapshotMessage
	err := json.Unmarshal(msg.Payload, &payload)
	if err != nil {
		log.Printf("[ERROR] Failed to unmarshal snapshot message: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	log.Printf("[INFO] Persisting debug run %s (%s)", payload.SessionId, payload.Snapshot.Run.Status)

	uow := cs.uowFactory.NewUnitOfWork(ctx)

	existing, err := uow.DebugSessionRepository().FindOne(ctx, specification.ByID{ID: payload.SessionId})
	if err != nil {
		log.Printf("[ERROR] Failed to look up debug run %s: %v", payload.SessionId, err)
		msg.Nack() // Nack for retriable errors
		return
	}

	session := &entity.DebugSession{
		Id:        payload.SessionId,
		Query:     payload.Snapshot.Query,
		ModelType: payload.ModelType,
		ModelName: payload.ModelName,
		Snapshot:  payload.Snapshot,
	}

	if existing == nil {
		err = uow.DebugSessionRepository().Create(ctx, session)
	} else {
		session.CreatedAt = existing.CreatedAt
		err = uow.DebugSessionRepository().Update(ctx, session)
	}
	if err != nil {
		log.Printf("[ERROR] Failed to persist debug run %s: %v", payload.SessionId, err)
		msg.Nack()
		return
	}

	cs.publishRunEvent(ctx, &payload)

	log.Printf("[SUCCESS] Debug run persisted: %s", payload.SessionId)
	msg.Ack()
}

// publishRunEvent announces the finished run on NATS. Event delivery is
// best effort, the row is already committed.
func (cs *consumerService) publishRunEvent(ctx context.Context, payload *dto.PersistSnapshotMessage) {
	if cs.eventPublisher == nil {
		return
	}

	var evt events.Event
	if payload.Snapshot.Run.Status == workflow.RunError {
		evt = events.NewDebugRunFailed(payload.SessionId.String(), payload.Snapshot.Query, payload.Snapshot.Run.Error)
	} else {
		evt = events.NewDebugRunCompleted(payload.SessionId.String(), payload.Snapshot.Query, len(payload.Snapshot.Steps), payload.Snapshot.Run.ElapsedSeconds)
	}

	if err := cs.eventPublisher.Publish(ctx, evt); err != nil {
		log.Printf("[WARN] Failed to publish run event for %s: %v", payload.SessionId, err)
	}
}
