package controller

import (
	"github.com/gofiber/fiber/v2"

	"draco-chat-be/internal/pkg/serverutils"
	"draco-chat-be/internal/service"
)

const appVersion = "1.0.0"

type IModelController interface {
	RegisterRoutes(r fiber.Router)
	GetModels(ctx *fiber.Ctx) error
	Health(ctx *fiber.Ctx) error
}

type modelController struct {
	modelService service.IModelService
}

func NewModelController(modelService service.IModelService) IModelController {
	return &modelController{
		modelService: modelService,
	}
}

func (c *modelController) RegisterRoutes(r fiber.Router) {
	r.Get("models", c.GetModels)
	r.Get("health", c.Health)
}

func (c *modelController) GetModels(ctx *fiber.Ctx) error {
	res, err := c.modelService.GetCatalog(ctx.Context())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get models", res))
}

func (c *modelController) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{
		"status":  "ok",
		"version": appVersion,
	})
}
