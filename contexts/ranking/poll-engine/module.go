package pollengine

import (
	"log/slog"

	httpadapter "rankit/contexts/ranking/poll-engine/adapters/http"
	"rankit/contexts/ranking/poll-engine/adapters/memory"
	"rankit/contexts/ranking/poll-engine/application/commands"
	"rankit/contexts/ranking/poll-engine/application/queries"
	"rankit/contexts/ranking/poll-engine/domain/rating"
	"rankit/contexts/ranking/poll-engine/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

type Dependencies struct {
	UnitOfWork ports.UnitOfWork
	Ranks      ports.RankRepository
	Pairings   ports.PairingRepository
	Catalog    ports.CatalogRepository
	Outbox     ports.OutboxWriter
	Clock      ports.Clock
	IDGen      ports.IDGenerator
	Rating     rating.Model
	Logger     *slog.Logger
}

func NewModule(deps Dependencies) Module {
	draws := commands.DrawScheduler{
		UnitOfWork: deps.UnitOfWork,
		Ranks:      deps.Ranks,
		Logger:     deps.Logger,
	}
	pollUseCase := commands.PollUseCase{
		UnitOfWork: deps.UnitOfWork,
		Draws:      draws,
		Pairings:   deps.Pairings,
		Ranks:      deps.Ranks,
		Catalog:    deps.Catalog,
		Outbox:     deps.Outbox,
		Clock:      deps.Clock,
		IDGen:      deps.IDGen,
		Rating:     deps.Rating,
		Logger:     deps.Logger,
	}
	rankUseCase := commands.RankUseCase{
		UnitOfWork: deps.UnitOfWork,
		Ranks:      deps.Ranks,
		Catalog:    deps.Catalog,
		Clock:      deps.Clock,
		Logger:     deps.Logger,
	}
	catalogUseCase := commands.CatalogUseCase{
		UnitOfWork: deps.UnitOfWork,
		Catalog:    deps.Catalog,
		Ranks:      deps.Ranks,
		Clock:      deps.Clock,
		Logger:     deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Polls:   pollUseCase,
			Ranks:   rankUseCase,
			Catalog: catalogUseCase,
			CatalogQuery: queries.CatalogUseCase{
				Catalog: deps.Catalog,
				Ranks:   deps.Ranks,
			},
			Logger: deps.Logger,
		},
	}
}

func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		UnitOfWork: store,
		Ranks:      store,
		Pairings:   store,
		Catalog:    store,
		Outbox:     store,
		Clock:      store,
		IDGen:      store,
		Rating:     rating.DefaultModel(),
		Logger:     logger,
	})
	module.Store = store
	return module
}
