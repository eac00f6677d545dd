package main

import (
	"context"
	"fmt"
	"log"

	common_api "go-taskboard/internal/common/api"
	"go-taskboard/internal/config"
	"go-taskboard/internal/database"
	"go-taskboard/internal/features/auth"
	"go-taskboard/internal/features/digest"
	"go-taskboard/internal/features/email"
	"go-taskboard/internal/features/notification"
	"go-taskboard/internal/features/realtime"
	"go-taskboard/internal/features/task"
	"go-taskboard/internal/features/user"
	"go-taskboard/internal/logger"
	"go-taskboard/internal/middleware"
	"go-taskboard/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewFiberServer creates a new Fiber app instance
func NewFiberServer() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(middleware.CORSMiddleware())

	return app
}

// AsRoute is a helper function to reduce boilerplate.
// It tags the constructor so Fx knows to add it to the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(common_api.Route)),
		fx.ResultTags(`group:"routes"`),
	)
}

// RegisterAllRoutes takes the group "routes" (slice of interfaces)
// and calls Setup() on each one.
func RegisterAllRoutes(app *fiber.App, routes []common_api.Route) {
	for _, route := range routes {
		route.Setup(app)
	}
	log.Printf("Registered %d routes\n", len(routes))
}

// RegisterAllRoutesWithAnnotation wraps RegisterAllRoutes with fx annotations
var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, `group:"routes"`),
)

// StartServer creates a lifecycle hook to start Fiber in a goroutine
// and shut it down when the app exits.
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			utils.SetSecret(cfg.JWTSecret)
			go func() {
				port := fmt.Sprintf(":%s", cfg.Port)
				if err := app.Listen(port); err != nil {
					log.Fatalf("Server failed to start: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.Shutdown()
		},
	})
}

func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			logger.NewLogger,
			NewFiberServer,
			database.NewDatabase,

			// Repositories
			user.NewUserRepository,
			notification.NewNotificationRepository,
			task.NewTaskRepository,
			task.NewCommentRepository,

			// Realtime: one registry for the process lifetime, shared by
			// the dispatcher and the connection handler.
			realtime.NewSessionRegistry,
			realtime.NewPushDispatcher,

			// Services
			auth.NewAuthService,
			email.NewEmailService,
			notification.NewNotificationService,
			task.NewTaskService,
			digest.NewDigestService,

			// Interface adapters
			func(d *realtime.PushDispatcher) task.Dispatcher { return d },

			// Controllers
			auth.NewAuthController,
			user.NewUserController,
			notification.NewNotificationController,
			task.NewTaskController,
			realtime.NewWebSocketController,

			// API Routes
			AsRoute(auth.NewAuthApi),
			AsRoute(user.NewUserApi),
			AsRoute(notification.NewNotificationApi),
			AsRoute(task.NewTaskApi),
			AsRoute(realtime.NewWebSocketApi),
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(
			RegisterAllRoutesWithAnnotation,
			StartServer,
			func(lc fx.Lifecycle, digestService digest.DigestService) {
				lc.Append(fx.Hook{
					OnStart: func(ctx context.Context) error {
						return digestService.InitializeScheduler(ctx)
					},
					OnStop: func(ctx context.Context) error {
						return digestService.StopScheduler()
					},
				})
			},
			func(lc fx.Lifecycle, registry *realtime.SessionRegistry) {
				lc.Append(fx.Hook{
					OnStop: func(ctx context.Context) error {
						registry.CloseAll()
						return nil
					},
				})
			},
		),
	)

	app.Run()
}
