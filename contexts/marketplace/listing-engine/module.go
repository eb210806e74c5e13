package listingengine

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"

	httpadapter "bazaar/contexts/marketplace/listing-engine/adapters/http"
	"bazaar/contexts/marketplace/listing-engine/adapters/memory"
	postgresadapter "bazaar/contexts/marketplace/listing-engine/adapters/postgres"
	"bazaar/contexts/marketplace/listing-engine/application/commands"
	"bazaar/contexts/marketplace/listing-engine/application/queries"
	"bazaar/contexts/marketplace/listing-engine/domain/entities"
	"bazaar/contexts/marketplace/listing-engine/ports"
)

// Module is the composition surface for the listing engine.
// Runtime wiring consumes Handler or Engine; the memory adapters are exposed
// for tests and local runs. Provisioning is nil unless the backing custody
// and ledger accept seeding.
type Module struct {
	Handler      httpadapter.Handler
	Engine       Engine
	Provisioning ports.Provisioning
	Store        *memory.Store
	Custody      *memory.Custody
	Ledger       *memory.Ledger
}

type Dependencies struct {
	Repository    ports.Repository
	Custody       ports.Custody
	Ledger        ports.Ledger
	Clock         ports.Clock
	IDGenerator   ports.IDGenerator
	Provisioning  ports.Provisioning
	Metrics       ports.Metrics
	Administrator entities.AccountID
	Logger        *slog.Logger
}

// NewModule wires the listing engine use cases against explicit ports.
// A nil IDGenerator falls back to random UUIDs.
func NewModule(deps Dependencies) Module {
	if deps.IDGenerator == nil {
		deps.IDGenerator = uuidGenerator{}
	}
	engine := Engine{
		list: commands.ListAssetUseCase{
			UnitOfWork:  deps.Repository,
			Custody:     deps.Custody,
			Clock:       deps.Clock,
			IDGenerator: deps.IDGenerator,
			Metrics:     deps.Metrics,
			Logger:      deps.Logger,
		},
		purchase: commands.PurchaseListingUseCase{
			UnitOfWork:  deps.Repository,
			Custody:     deps.Custody,
			Ledger:      deps.Ledger,
			Clock:       deps.Clock,
			IDGenerator: deps.IDGenerator,
			Metrics:     deps.Metrics,
			Logger:      deps.Logger,
		},
		unlist: commands.UnlistAssetUseCase{
			UnitOfWork:  deps.Repository,
			Custody:     deps.Custody,
			Clock:       deps.Clock,
			IDGenerator: deps.IDGenerator,
			Metrics:     deps.Metrics,
			Logger:      deps.Logger,
		},
		updatePrice: commands.UpdatePriceUseCase{
			UnitOfWork:  deps.Repository,
			Clock:       deps.Clock,
			IDGenerator: deps.IDGenerator,
			Metrics:     deps.Metrics,
			Logger:      deps.Logger,
		},
		setFeeRecipient: commands.SetFeeRecipientUseCase{
			Administrator: deps.Administrator,
			UnitOfWork:    deps.Repository,
			Clock:         deps.Clock,
			IDGenerator:   deps.IDGenerator,
			Metrics:       deps.Metrics,
			Logger:        deps.Logger,
		},
		price: queries.GetPriceUseCase{
			Listings: deps.Repository,
			Logger:   deps.Logger,
		},
		listing: queries.GetListingUseCase{
			Listings: deps.Repository,
			Logger:   deps.Logger,
		},
		sellerListings: queries.ListSellerListingsUseCase{
			Index:  deps.Repository,
			Logger: deps.Logger,
		},
		sellers: queries.ListSellersUseCase{
			Sellers: deps.Repository,
			Logger:  deps.Logger,
		},
	}

	handler := httpadapter.Handler{
		ListAsset:          engine.list,
		PurchaseListing:    engine.purchase,
		UnlistAsset:        engine.unlist,
		UpdatePrice:        engine.updatePrice,
		SetFeeRecipient:    engine.setFeeRecipient,
		GetPrice:           engine.price,
		GetListing:         engine.listing,
		ListSellerListings: engine.sellerListings,
		ListSellers:        engine.sellers,
		Provisioning:       deps.Provisioning,
		Logger:             deps.Logger,
	}

	return Module{Handler: handler, Engine: engine, Provisioning: deps.Provisioning}
}

// NewInMemoryModule wires the engine against in-memory stores and the
// reference custody and ledger adapters.
func NewInMemoryModule(administrator entities.AccountID, metrics ports.Metrics, logger *slog.Logger) Module {
	store := memory.NewStore(logger)
	custody := memory.NewCustody()
	ledger := memory.NewLedger()
	module := NewModule(Dependencies{
		Repository:    store,
		Custody:       custody,
		Ledger:        ledger,
		Clock:         store,
		IDGenerator:   store,
		Provisioning:  memory.Provisioner{Custody: custody, Ledger: ledger},
		Metrics:       metrics,
		Administrator: administrator,
		Logger:        logger,
	})
	module.Store = store
	module.Custody = custody
	module.Ledger = ledger
	return module
}

// NewPostgresModule wires the engine against the gorm repository and the
// durable custody and ledger sharing db. The repository is returned for
// migrations and outbox relaying.
func NewPostgresModule(
	db *gorm.DB,
	administrator entities.AccountID,
	metrics ports.Metrics,
	logger *slog.Logger,
) (Module, *postgresadapter.Repository) {
	clock := postgresadapter.SystemClock{}
	repo := postgresadapter.NewRepository(db, clock, logger)
	custody := postgresadapter.NewCustody(db, clock, logger)
	ledger := postgresadapter.NewLedger(db, clock, logger)
	module := NewModule(Dependencies{
		Repository:    repo,
		Custody:       custody,
		Ledger:        ledger,
		Clock:         clock,
		IDGenerator:   postgresadapter.UUIDGenerator{},
		Provisioning:  postgresadapter.Provisioner{Custody: custody, Ledger: ledger},
		Metrics:       metrics,
		Administrator: administrator,
		Logger:        logger,
	})
	return module, repo
}

type uuidGenerator struct{}

func (uuidGenerator) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
