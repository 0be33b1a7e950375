package controller

import (
	"bufio"
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"draco-chat-be/internal/dto"
	"draco-chat-be/internal/pkg/logger"
	"draco-chat-be/internal/pkg/serverutils"
	"draco-chat-be/internal/service"
	internalWS "draco-chat-be/internal/websocket"
	"draco-chat-be/pkg/sse"
	"draco-chat-be/pkg/workflow"
)

type IDebugController interface {
	RegisterRoutes(r fiber.Router)
	StartWorkflow(ctx *fiber.Ctx) error
	GetSessions(ctx *fiber.Ctx) error
	GetSession(ctx *fiber.Ctx) error
	DeleteSession(ctx *fiber.Ctx) error
	Watch(ctx *fiber.Ctx) error
}

type debugController struct {
	debugService service.IDebugService
	hub          *internalWS.Hub
	logger       logger.ILogger
}

func NewDebugController(debugService service.IDebugService, hub *internalWS.Hub, log logger.ILogger) IDebugController {
	return &debugController{
		debugService: debugService,
		hub:          hub,
		logger:       log,
	}
}

func (c *debugController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/debug/v1")
	h.Post("workflow", c.StartWorkflow)
	h.Get("sessions", c.GetSessions)
	h.Get("sessions/:id", c.GetSession)
	h.Delete("sessions/:id", c.DeleteSession)
	h.Get("watch/:id", c.Watch)
}

// StartWorkflow runs the DeepDebug workflow and streams its frames back as
// SSE. The run id goes out in a header before the first frame so the client
// can open a watch socket immediately.
func (c *debugController) StartWorkflow(ctx *fiber.Ctx) error {
	var req dto.StartDebugRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	run, err := c.debugService.NewRun(&req)
	if err != nil {
		return err
	}

	setStreamHeaders(ctx)
	ctx.Set("X-Debug-Session-Id", run.Id.String())

	debugService := c.debugService
	log := c.logger
	ctx.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		enc := sse.NewEncoder(w)

		err := debugService.StreamRun(context.Background(), run, func(frame workflow.Frame) error {
			payload, err := workflow.EncodeFrame(frame)
			if err != nil {
				return err
			}
			return enc.WriteRaw(payload)
		})
		if err != nil {
			log.Warn("DebugController", "Workflow stream ended with error", map[string]interface{}{
				"session_id": run.Id.String(),
				"error":      err.Error(),
			})
		}

		_ = enc.WriteDone()
	}))

	return nil
}

func (c *debugController) GetSessions(ctx *fiber.Ctx) error {
	limit := ctx.QueryInt("limit", 50)
	offset := ctx.QueryInt("offset", 0)

	res, err := c.debugService.GetSessions(ctx.Context(), ctx.Query("status"), limit, offset)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get debug sessions", res))
}

func (c *debugController) GetSession(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid session id")
	}

	res, err := c.debugService.GetSession(ctx.Context(), id)
	if err != nil {
		return err
	}
	if res == nil {
		return fiber.NewError(fiber.StatusNotFound, "Debug session not found")
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get debug session", res))
}

func (c *debugController) DeleteSession(ctx *fiber.Ctx) error {
	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid session id")
	}

	if err := c.debugService.DeleteSession(ctx.Context(), id); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete debug session", nil))
}

// Watch upgrades to a websocket and attaches the caller as a watcher of one
// debug run. Watchers receive the full store state after every frame.
func (c *debugController) Watch(ctx *fiber.Ctx) error {
	sessionID := ctx.Params("id")
	if _, err := uuid.Parse(sessionID); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid session id")
	}

	if websocket.IsWebSocketUpgrade(ctx) {
		hub := c.hub
		log := c.logger
		return websocket.New(func(conn *websocket.Conn) {
			log.Info("DebugController", "Watcher connected", map[string]interface{}{"session_id": sessionID})
			internalWS.ServeWs(hub, conn, sessionID)
			log.Info("DebugController", "Watcher disconnected", map[string]interface{}{"session_id": sessionID})
		})(ctx)
	}
	return fiber.ErrUpgradeRequired
}
