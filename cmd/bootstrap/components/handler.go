package components

import (
	"groupbuy-coordinator/internal/handler"
	"groupbuy-coordinator/internal/handler/api"
	"groupbuy-coordinator/internal/handler/middleware"

	"go.uber.org/fx"
)

var HandlerModule = fx.Module("handler",
	fx.Provide(
		api.NewSessionHandler,
		api.NewEventsHandler,
		middleware.NewAuthMiddleware,
	),
	fx.Invoke(handler.NewRouter),
)
