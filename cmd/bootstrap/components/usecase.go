package components

import (
	"groupbuy-coordinator/internal/fanout"
	"groupbuy-coordinator/internal/pkg/clock"
	"groupbuy-coordinator/internal/usecase/commands"
	"groupbuy-coordinator/internal/usecase/queries"

	"go.uber.org/fx"
)

var UseCaseModule = fx.Module("usecase",
	usecaseBaseOption,
	usecaseCommandsModule,
	usecaseQueriesModule,
)

var usecaseBaseOption = fx.Provide(
	clock.NewRealClock,
	fanout.NewHub,
	func(h *fanout.Hub) commands.EventPublisher { return h },
	func(h *fanout.Hub) queries.EventPublisher { return h },
)

var usecaseCommandsModule = fx.Module("usecase/commands",
	fx.Provide(
		commands.NewSessionCommands,
	),
)

var usecaseQueriesModule = fx.Module("usecase/queries",
	fx.Provide(
		queries.NewSessionQueries,
	),
)
