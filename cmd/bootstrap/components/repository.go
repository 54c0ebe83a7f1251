package components

import (
	repo_impl "groupbuy-coordinator/internal/infra/repository"
	"groupbuy-coordinator/internal/usecase/commands"
	"groupbuy-coordinator/internal/usecase/queries"

	"go.uber.org/fx"
)

var RepositoryModule = fx.Module("repository",
	fx.Provide(
		fx.Annotate(
			repo_impl.NewSessionRepository,
			fx.As(new(commands.SessionRepository)),
			fx.As(new(queries.SessionReader)),
		),
	),
)
