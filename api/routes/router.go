package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/stockledger/api/controllers"
	"github.com/angelmondragon/stockledger/api/middleware"
	"github.com/angelmondragon/stockledger/internal/assembly"
	"github.com/angelmondragon/stockledger/internal/codes"
	"github.com/angelmondragon/stockledger/internal/inventory"
	"github.com/angelmondragon/stockledger/internal/items"
	"github.com/angelmondragon/stockledger/internal/locations"
	"github.com/angelmondragon/stockledger/internal/movements"
	"github.com/angelmondragon/stockledger/internal/stock"
	"github.com/angelmondragon/stockledger/pkg/config"
	"github.com/angelmondragon/stockledger/pkg/logger"
	"github.com/angelmondragon/stockledger/pkg/metrics"
	pkgredis "github.com/angelmondragon/stockledger/pkg/redis"
)

// Services groups what the HTTP surface calls into.
type Services struct {
	Items     items.Service
	Locations locations.Service
	Stock     stock.Service
	Inventory inventory.Service
	Movements movements.Service
	Assembly  assembly.Service
	Codes     codes.Service
}

type Deps struct {
	DB          controllers.Pinger
	Redis       controllers.Pinger
	Idempotency pkgredis.IdempotencyStore
	Gatherer    prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps, svc Services) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg,
			controllers.Dependency{Name: "db", Pinger: deps.DB},
			controllers.Dependency{Name: "redis", Pinger: deps.Redis},
		))
	})
	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Inventory.AllowNoUser {
			r.Use(middleware.OptionalAuth(cfg.JWT, logg))
		} else {
			r.Use(middleware.Auth(cfg.JWT, logg))
		}
		r.Use(middleware.Idempotency(deps.Idempotency, logg))

		r.Post("/categories", controllers.CreateCategory(svc.Items, logg))
		r.Post("/metrics", controllers.CreateMetric(svc.Items, logg))
		r.Post("/warehouses", controllers.CreateWarehouse(svc.Locations, logg))
		r.Post("/locations", controllers.CreateLocation(svc.Locations, logg))
		r.Get("/locations/{locationId}", controllers.GetLocation(svc.Locations, logg))
		r.Get("/assemblies", controllers.ListAssemblies(svc.Assembly, logg))
		r.Get("/codes/{code}", controllers.FindByCode(svc.Codes, logg))

		r.Route("/items", func(r chi.Router) {
			r.Post("/", controllers.CreateItem(svc.Items, logg))
			r.Route("/{itemId}", func(r chi.Router) {
				r.Get("/", controllers.GetItem(svc.Items, logg))

				r.Get("/stocks", controllers.ListItemStocks(svc.Inventory, logg))
				r.Post("/stocks", controllers.CreateItemStock(svc.Inventory, logg))
				r.Get("/stock-total", controllers.ItemStockTotal(svc.Inventory, logg))
				r.Route("/locations/{locationId}", func(r chi.Router) {
					r.Post("/put", controllers.PutToLocation(svc.Inventory, logg))
					r.Post("/take", controllers.TakeFromLocation(svc.Inventory, logg))
					r.Post("/move", controllers.MoveFromLocation(svc.Inventory, logg))
				})

				r.Get("/parts", controllers.ListParts(svc.Assembly, logg))
				r.Post("/parts", controllers.AddParts(svc.Assembly, logg))
				r.Put("/parts", controllers.UpdateParts(svc.Assembly, logg))
				r.Delete("/parts", controllers.RemoveParts(svc.Assembly, logg))
				r.Post("/parts/{partId}", controllers.AddPart(svc.Assembly, logg))
				r.Put("/parts/{partId}", controllers.UpdatePart(svc.Assembly, logg))
				r.Delete("/parts/{partId}", controllers.RemovePart(svc.Assembly, logg))

				r.Get("/code", controllers.GetItemCode(svc.Codes, logg))
				r.Post("/code", controllers.GenerateItemCode(svc.Codes, logg))
				r.Put("/code", controllers.PutItemCode(svc.Codes, logg))
				r.Post("/code/regenerate", controllers.RegenerateItemCode(svc.Codes, logg))
			})
		})

		r.Route("/stocks/{stockId}", func(r chi.Router) {
			r.Get("/", controllers.GetStock(svc.Stock, logg))
			r.Post("/put", controllers.PutStock(svc.Stock, logg))
			r.Post("/take", controllers.TakeStock(svc.Stock, logg))
			r.Post("/move", controllers.MoveStock(svc.Stock, logg))
			r.Post("/rollback", controllers.RollbackStock(svc.Stock, logg))
			r.Get("/movements", controllers.ListMovements(svc.Movements, logg))
		})
		r.Post("/movements/{movementId}/returned", controllers.MarkMovementReturned(svc.Movements, logg))
	})

	return r
}
