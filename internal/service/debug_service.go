package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"draco-chat-be/internal/config"
	"draco-chat-be/internal/dto"
	"draco-chat-be/internal/entity"
	"draco-chat-be/internal/pkg/logger"
	"draco-chat-be/internal/repository/memory"
	"draco-chat-be/internal/repository/specification"
	"draco-chat-be/internal/repository/unitofwork"
	"draco-chat-be/internal/websocket"
	"draco-chat-be/pkg/workflow"
	"draco-chat-be/pkg/workflow/deepdebug"
)

// frameBuffer absorbs bursts between the producer and the state machine so
// a slow broadcast never backpressures the model stream.
const frameBuffer = 64

// DebugRun is one prepared workflow run. The id exists before the first
// frame so the client can open a watch socket for it right away.
type DebugRun struct {
	Id        uuid.UUID
	Query     string
	ModelType string
	ModelName string

	session *workflow.Session
	runner  *deepdebug.Runner
}

// IDebugService owns the DeepDebug surface: live streaming runs and the
// persisted session history.
type IDebugService interface {
	NewRun(request *dto.StartDebugRequest) (*DebugRun, error)
	StreamRun(ctx context.Context, run *DebugRun, sink func(workflow.Frame) error) error
	GetSessions(ctx context.Context, status string, limit, offset int) ([]*dto.DebugSessionResponse, error)
	GetSession(ctx context.Context, id uuid.UUID) (*dto.DebugSessionResponse, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error
}

type debugService struct {
	cfg              *config.ModelConfig
	uowFactory       unitofwork.RepositoryFactory
	modelService     IModelService
	publisherService IPublisherService
	runRegistry      *memory.RunRegistry
	hub              *websocket.Hub
	logger           logger.ILogger
}

func NewDebugService(
	cfg *config.ModelConfig,
	uowFactory unitofwork.RepositoryFactory,
	modelService IModelService,
	publisherService IPublisherService,
	runRegistry *memory.RunRegistry,
	hub *websocket.Hub,
	log logger.ILogger,
) IDebugService {
	return &debugService{
		cfg:              cfg,
		uowFactory:       uowFactory,
		modelService:     modelService,
		publisherService: publisherService,
		runRegistry:      runRegistry,
		hub:              hub,
		logger:           log,
	}
}

// NewRun resolves the provider and builds the session and runner without
// starting anything. Streaming begins when the caller invokes StreamRun.
func (s *debugService) NewRun(request *dto.StartDebugRequest) (*DebugRun, error) {
	modelType := request.ModelType
	if modelType == "" {
		modelType = s.cfg.DefaultType
	}
	modelName := request.ModelName
	if modelName == "" {
		modelName = s.cfg.DefaultName
	}

	provider, err := s.modelService.Resolve(modelType, modelName)
	if err != nil {
		return nil, err
	}

	return &DebugRun{
		Id:        uuid.New(),
		Query:     request.Query,
		ModelType: modelType,
		ModelName: modelName,
		session:   workflow.StartNew(request.Query, s.logger.Raw()),
		runner:    deepdebug.NewRunner(provider, s.logger.Raw()),
	}, nil
}

// StreamRun executes the workflow. Every produced frame is teed three ways:
// to the caller's sink (the SSE response), into the state machine, and as a
// store update to websocket watchers. When the run reaches a terminal state
// the snapshot is queued for persistence.
func (s *debugService) StreamRun(ctx context.Context, run *DebugRun, sink func(workflow.Frame) error) error {
	s.runRegistry.Save(run.Id.String(), run.session)
	defer s.runRegistry.Delete(run.Id.String())

	frames := make(chan workflow.Frame, frameBuffer)
	consumerDone := make(chan error, 1)
	go func() {
		consumerDone <- run.session.Run(ctx, workflow.NewFrameChanSource(frames))
	}()

	emit := func(frame workflow.Frame) error {
		select {
		case frames <- frame:
		case <-ctx.Done():
			return ctx.Err()
		}
		if err := sink(frame); err != nil {
			return err
		}
		s.publishUpdate(run)
		return nil
	}

	runErr := run.runner.Run(ctx, run.Query, emit)
	close(frames)
	if err := <-consumerDone; err != nil && runErr == nil {
		runErr = err
	}

	// Push the terminal store state to watchers before the registry entry
	// goes away.
	s.publishUpdate(run)
	s.finishRun(run)

	return runErr
}

func (s *debugService) publishUpdate(run *DebugRun) {
	store := run.session.Store()

	update := dto.DebugRunUpdate{
		SessionId: run.Id.String(),
		Steps:     store.Steps(),
		Run:       store.Run(),
	}
	if fc, ok := store.FullCode(); ok {
		update.FullCode = &fc
	}

	s.hub.Publish(run.Id.String(), update)
}

// finishRun captures the final snapshot and hands it to the persistence
// queue. Uses a fresh context: the client may already be gone, the record
// still has to land.
func (s *debugService) finishRun(run *DebugRun) {
	defer run.session.Close()

	snap := run.session.Capture()
	msg := dto.PersistSnapshotMessage{
		SessionId: run.Id,
		ModelType: run.ModelType,
		ModelName: run.ModelName,
		Snapshot:  snap,
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("DebugService", "Failed to marshal snapshot message", map[string]interface{}{"error": err.Error()})
		return
	}
	if err := s.publisherService.Publish(context.Background(), payload); err != nil {
		s.logger.Error("DebugService", "Failed to queue snapshot persist", map[string]interface{}{
			"session_id": run.Id.String(),
			"error":      err.Error(),
		})
	}
}

// GetSessions lists persisted runs, newest first, optionally filtered by
// run status.
func (s *debugService) GetSessions(ctx context.Context, status string, limit, offset int) ([]*dto.DebugSessionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	specs := []specification.Specification{
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: limit, Offset: offset},
	}
	if status != "" {
		specs = append(specs, specification.ByRunStatus{Status: status})
	}

	sessions, err := uow.DebugSessionRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, fmt.Errorf("list debug sessions: %w", err)
	}

	res := make([]*dto.DebugSessionResponse, len(sessions))
	for i, sess := range sessions {
		res[i] = debugSessionResponse(sess)
	}
	return res, nil
}

// GetSession prefers the live run when one is still streaming, otherwise it
// replays the persisted snapshot.
func (s *debugService) GetSession(ctx context.Context, id uuid.UUID) (*dto.DebugSessionResponse, error) {
	if live, found := s.runRegistry.Get(id.String()); found {
		return liveSessionResponse(id, live), nil
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	sess, err := uow.DebugSessionRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, fmt.Errorf("load debug session: %w", err)
	}
	if sess == nil {
		return nil, nil
	}
	return debugSessionResponse(sess), nil
}

func (s *debugService) DeleteSession(ctx context.Context, id uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.DebugSessionRepository().Delete(ctx, id); err != nil {
		return fmt.Errorf("delete debug session: %w", err)
	}
	return nil
}

// debugSessionResponse replays a persisted snapshot through the store so
// the response renders exactly the way the live run did.
func debugSessionResponse(sess *entity.DebugSession) *dto.DebugSessionResponse {
	replay := workflow.LoadSnapshot(sess.Snapshot)
	store := replay.Store()
	run := store.Run()

	res := &dto.DebugSessionResponse{
		Id:          sess.Id,
		Query:       sess.Query,
		ModelType:   sess.ModelType,
		ModelName:   sess.ModelName,
		Status:      run.Status,
		Progress:    run.Progress,
		ElapsedText: workflow.FormatElapsed(run.ElapsedSeconds),
		Error:       run.Error,
		Steps:       store.Steps(),
		CreatedAt:   sess.CreatedAt,
	}
	if fc, ok := store.FullCode(); ok {
		res.FullCode = &fc
	}
	return res
}

func liveSessionResponse(id uuid.UUID, sess *workflow.Session) *dto.DebugSessionResponse {
	store := sess.Store()
	run := store.Run()

	res := &dto.DebugSessionResponse{
		Id:          id,
		Query:       sess.Query,
		Status:      run.Status,
		Progress:    run.Progress,
		ElapsedText: workflow.FormatElapsed(run.ElapsedSeconds),
		Error:       run.Error,
		Steps:       store.Steps(),
	}
	if fc, ok := store.FullCode(); ok {
		res.FullCode = &fc
	}
	return res
}
