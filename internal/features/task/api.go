package task

import (
	"go-taskboard/internal/common/api"
	"go-taskboard/internal/config"
	"go-taskboard/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type TaskApi struct {
	controller *TaskController
	config     *config.Config
}

func NewTaskApi(controller *TaskController, config *config.Config) api.Route {
	return &TaskApi{
		controller: controller,
		config:     config,
	}
}

func (h *TaskApi) Setup(app *fiber.App) {
	group := app.Group("/api/tasks", middleware.AuthMiddleware(h.config.SkipAuth))

	group.Post("/", h.controller.Create)
	group.Get("/", h.controller.List)
	group.Get("/:id", h.controller.Get)
	group.Put("/:id", h.controller.Update)
	group.Delete("/:id", h.controller.Delete)

	group.Put("/:id/assign", h.controller.Assign)
	group.Put("/:id/status", h.controller.UpdateStatus)

	group.Post("/:id/comments", h.controller.AddComment)
	group.Get("/:id/comments", h.controller.ListComments)

	group.Post("/invite", h.controller.Invite)
}
