package listingengine_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	listingengine "bazaar/contexts/marketplace/listing-engine"
	"bazaar/contexts/marketplace/listing-engine/adapters/memory"
	"bazaar/contexts/marketplace/listing-engine/application/commands"
	"bazaar/contexts/marketplace/listing-engine/domain/entities"
	domainerrors "bazaar/contexts/marketplace/listing-engine/domain/errors"
)

const (
	admin    entities.AccountID   = "admin"
	treasury entities.AccountID   = "treasury"
	alice    entities.AccountID   = "alice"
	bob      entities.AccountID   = "bob"
	sui      entities.CurrencyTag = "SUI"
)

type recordingMetrics struct {
	mu       sync.Mutex
	outcomes map[string][]string
}

func (m *recordingMetrics) ObserveOperation(operation string, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outcomes == nil {
		m.outcomes = make(map[string][]string)
	}
	m.outcomes[operation] = append(m.outcomes[operation], outcome)
}

func (m *recordingMetrics) last(operation string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.outcomes[operation]
	if len(items) == 0 {
		return ""
	}
	return items[len(items)-1]
}

type fixture struct {
	module  listingengine.Module
	engine  listingengine.Engine
	metrics *recordingMetrics
}

func newFixture(t *testing.T, feeRate uint64) fixture {
	t.Helper()
	metrics := &recordingMetrics{}
	module := listingengine.NewInMemoryModule(admin, metrics, nil)
	require.NoError(t, module.Engine.SetFeeRecipient(context.Background(), admin, treasury, feeRate))
	return fixture{module: module, engine: module.Engine, metrics: metrics}
}

func (f fixture) list(t *testing.T, seller entities.AccountID, asset entities.AssetHandle, price entities.Amount) entities.ListingID {
	t.Helper()
	f.module.Custody.RegisterAsset(asset, seller)
	id, err := f.engine.List(context.Background(), seller, asset, price, sui)
	require.NoError(t, err)
	require.NoError(t, f.module.Store.CheckInvariants())
	return id
}

func (f fixture) owner(t *testing.T, asset entities.AssetHandle) entities.AccountID {
	t.Helper()
	owner, err := f.module.Custody.OwnerOf(context.Background(), asset)
	require.NoError(t, err)
	return owner
}

func TestListThenUnlistRestoresStoresAndKeepsEmptyIndex(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()

	id := f.list(t, alice, "nft_1", 500)
	require.Equal(t, entities.AccountID(id), f.owner(t, "nft_1"))

	asset, seller, err := f.engine.Listing(ctx, id)
	require.NoError(t, err)
	require.Equal(t, entities.AssetHandle("nft_1"), asset)
	require.Equal(t, alice, seller)
	sellers, err := f.engine.Sellers(ctx)
	require.NoError(t, err)
	require.Equal(t, []entities.AccountID{alice}, sellers)

	require.NoError(t, f.engine.Unlist(ctx, alice, id, sui))
	require.NoError(t, f.module.Store.CheckInvariants())

	require.Equal(t, alice, f.owner(t, "nft_1"))
	require.False(t, f.module.Custody.ContainerExists(entities.AssetHandle(id)))

	_, _, err = f.engine.Listing(ctx, id)
	require.ErrorIs(t, err, domainerrors.ErrNotFound)
	_, found, err := f.engine.Price(ctx, id, sui)
	require.NoError(t, err)
	require.False(t, found)

	sellers, err = f.engine.Sellers(ctx)
	require.NoError(t, err)
	require.Empty(t, sellers)
	ids, err := f.engine.SellerListings(ctx, alice)
	require.NoError(t, err)
	require.Empty(t, ids)
	exists, err := f.module.Store.SellerIndexExists(ctx, alice)
	require.NoError(t, err)
	require.True(t, exists)
}

func TestUnlistByOtherAccountIsForbidden(t *testing.T) {
	f := newFixture(t, 3)
	id := f.list(t, alice, "nft_1", 500)

	err := f.engine.Unlist(context.Background(), bob, id, sui)
	require.ErrorIs(t, err, domainerrors.ErrForbidden)
	require.Equal(t, entities.AccountID(id), f.owner(t, "nft_1"))
	require.Equal(t, "forbidden", f.metrics.last(commands.OperationUnlist))
}

func TestListRequiresAssetOwnership(t *testing.T) {
	f := newFixture(t, 3)
	f.module.Custody.RegisterAsset("nft_1", alice)

	_, err := f.engine.List(context.Background(), bob, "nft_1", 500, sui)
	require.ErrorIs(t, err, domainerrors.ErrForbidden)
	require.Equal(t, 0, f.module.Custody.Calls(memory.CustodyOpCreateContainer))
}

func TestPurchaseTruncatesBeforeApplyingFeeRate(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	id := f.list(t, alice, "nft_1", 999)
	f.module.Ledger.Credit(bob, sui, 1000)

	split, err := f.engine.Purchase(ctx, bob, id, admin, sui)
	require.NoError(t, err)
	require.Equal(t, entities.Amount(27), split.Fee)
	require.Equal(t, entities.Amount(972), split.SellerAmount)
	require.NoError(t, f.module.Store.CheckInvariants())

	require.Equal(t, entities.Amount(1), f.module.Ledger.Balance(bob, sui))
	require.Equal(t, entities.Amount(972), f.module.Ledger.Balance(alice, sui))
	require.Equal(t, entities.Amount(27), f.module.Ledger.Balance(treasury, sui))
	require.Equal(t, bob, f.owner(t, "nft_1"))
	require.False(t, f.module.Custody.ContainerExists(entities.AssetHandle(id)))
	require.Equal(t, "success", f.metrics.last(commands.OperationPurchase))
}

func TestPurchaseUnknownListingTouchesNothing(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	f.list(t, alice, "nft_1", 999)
	f.module.Ledger.Credit(bob, sui, 1000)
	custodyCalls := f.module.Custody.TotalCalls()
	events := len(f.module.Store.OutboxEvents())

	_, err := f.engine.Purchase(ctx, bob, "ctr_missing", admin, sui)
	require.ErrorIs(t, err, domainerrors.ErrNotFound)

	require.Equal(t, custodyCalls, f.module.Custody.TotalCalls())
	require.Equal(t, 0, f.module.Ledger.Calls(memory.LedgerOpWithdraw))
	require.Equal(t, 0, f.module.Ledger.Calls(memory.LedgerOpDeposit))
	require.Len(t, f.module.Store.OutboxEvents(), events)
	require.Equal(t, "not_found", f.metrics.last(commands.OperationPurchase))
}

func TestPurchaseWithUnknownAdminKeyIsUnauthorized(t *testing.T) {
	f := newFixture(t, 3)
	id := f.list(t, alice, "nft_1", 999)
	f.module.Ledger.Credit(bob, sui, 1000)

	_, err := f.engine.Purchase(context.Background(), bob, id, bob, sui)
	require.ErrorIs(t, err, domainerrors.ErrUnauthorized)
	require.Equal(t, entities.Amount(1000), f.module.Ledger.Balance(bob, sui))
}

func TestPurchaseInCurrencyMismatchIsNotFound(t *testing.T) {
	f := newFixture(t, 3)
	id := f.list(t, alice, "nft_1", 999)
	f.module.Ledger.Credit(bob, "USDC", 1000)

	_, err := f.engine.Purchase(context.Background(), bob, id, admin, "USDC")
	require.ErrorIs(t, err, domainerrors.ErrPriceNotFound)
	require.Equal(t, entities.Amount(1000), f.module.Ledger.Balance(bob, "USDC"))
}

func TestPurchasingFirstOfTwoListingsKeepsSeller(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	first := f.list(t, alice, "nft_1", 100)
	second := f.list(t, alice, "nft_2", 200)
	f.module.Ledger.Credit(bob, sui, 100)

	_, err := f.engine.Purchase(ctx, bob, first, admin, sui)
	require.NoError(t, err)
	require.NoError(t, f.module.Store.CheckInvariants())

	ids, err := f.engine.SellerListings(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, []entities.ListingID{second}, ids)
	sellers, err := f.engine.Sellers(ctx)
	require.NoError(t, err)
	require.Equal(t, []entities.AccountID{alice}, sellers)
}

func TestSecondPurchaseOfSameListingIsNotFound(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	id := f.list(t, alice, "nft_1", 100)
	f.module.Ledger.Credit(bob, sui, 100)
	f.module.Ledger.Credit("carol", sui, 100)

	_, err := f.engine.Purchase(ctx, bob, id, admin, sui)
	require.NoError(t, err)
	_, err = f.engine.Purchase(ctx, "carol", id, admin, sui)
	require.ErrorIs(t, err, domainerrors.ErrListingNotFound)
	require.Equal(t, entities.Amount(100), f.module.Ledger.Balance("carol", sui))
}

func TestPurchaseInsufficientBalanceRollsBackFirstWithdrawal(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	id := f.list(t, alice, "nft_1", 999)
	// Covers the seller amount but not the fee.
	f.module.Ledger.Credit(bob, sui, 980)

	_, err := f.engine.Purchase(ctx, bob, id, admin, sui)
	require.ErrorIs(t, err, domainerrors.ErrInsufficientBalance)
	require.NotErrorIs(t, err, domainerrors.ErrRollbackIncomplete)

	require.Equal(t, entities.Amount(980), f.module.Ledger.Balance(bob, sui))
	require.Equal(t, entities.Amount(0), f.module.Ledger.Balance(alice, sui))
	require.Equal(t, entities.AccountID(id), f.owner(t, "nft_1"))
	_, _, err = f.engine.Listing(ctx, id)
	require.NoError(t, err)
	require.NoError(t, f.module.Store.CheckInvariants())
	require.Equal(t, "insufficient_balance", f.metrics.last(commands.OperationPurchase))
}

func TestPurchaseDepositFailureRestoresEveryAdapter(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	id := f.list(t, alice, "nft_1", 999)
	f.module.Ledger.Credit(bob, sui, 999)
	boom := errors.New("ledger unavailable")
	f.module.Ledger.FailOn(memory.LedgerOpDeposit, boom)

	_, err := f.engine.Purchase(ctx, bob, id, admin, sui)
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, domainerrors.ErrRollbackIncomplete)

	require.Equal(t, entities.Amount(999), f.module.Ledger.Balance(bob, sui))
	require.Equal(t, entities.Amount(0), f.module.Ledger.Balance(alice, sui))
	require.Equal(t, entities.AccountID(id), f.owner(t, "nft_1"))
	require.True(t, f.module.Custody.ContainerExists(entities.AssetHandle(id)))
	ids, err := f.engine.SellerListings(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, []entities.ListingID{id}, ids)
	require.NoError(t, f.module.Store.CheckInvariants())

	_, err = f.engine.Purchase(ctx, bob, id, admin, sui)
	require.NoError(t, err)
	require.Equal(t, bob, f.owner(t, "nft_1"))
}

func TestPurchaseContainerDeleteFailureRollsBack(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	id := f.list(t, alice, "nft_1", 999)
	f.module.Ledger.Credit(bob, sui, 999)
	boom := errors.New("custody unavailable")
	f.module.Custody.FailOn(memory.CustodyOpDeleteContainer, boom)

	_, err := f.engine.Purchase(ctx, bob, id, admin, sui)
	require.ErrorIs(t, err, boom)

	require.Equal(t, entities.Amount(999), f.module.Ledger.Balance(bob, sui))
	require.Equal(t, entities.Amount(0), f.module.Ledger.Balance(treasury, sui))
	require.Equal(t, entities.AccountID(id), f.owner(t, "nft_1"))
	require.NoError(t, f.module.Store.CheckInvariants())
}

func TestListMoveInFailureDeletesContainer(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	f.module.Custody.RegisterAsset("nft_1", alice)
	boom := errors.New("custody unavailable")
	f.module.Custody.FailOn(memory.CustodyOpMoveIn, boom)

	_, err := f.engine.List(ctx, alice, "nft_1", 500, sui)
	require.ErrorIs(t, err, boom)

	require.Equal(t, alice, f.owner(t, "nft_1"))
	require.Equal(t, 1, f.module.Custody.Calls(memory.CustodyOpDeleteContainer))
	sellers, err := f.engine.Sellers(ctx)
	require.NoError(t, err)
	require.Empty(t, sellers)
	exists, err := f.module.Store.SellerIndexExists(ctx, alice)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestUpdatePriceByNonSellerIsForbidden(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	id := f.list(t, alice, "nft_1", 500)

	err := f.engine.UpdatePrice(ctx, bob, id, 1, sui)
	require.ErrorIs(t, err, domainerrors.ErrForbidden)
	amount, found, err := f.engine.Price(ctx, id, sui)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, entities.Amount(500), amount)

	require.NoError(t, f.engine.UpdatePrice(ctx, alice, id, 750, sui))
	amount, _, err = f.engine.Price(ctx, id, sui)
	require.NoError(t, err)
	require.Equal(t, entities.Amount(750), amount)

	ids, err := f.engine.SellerListings(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, []entities.ListingID{id}, ids)
}

func TestSetFeeRecipientRequiresAdministrator(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()

	err := f.engine.SetFeeRecipient(ctx, bob, bob, 50)
	require.ErrorIs(t, err, domainerrors.ErrForbidden)
	require.Equal(t, "forbidden", f.metrics.last(commands.OperationSetFeeRecipient))

	require.ErrorIs(t, f.engine.SetFeeRecipient(ctx, admin, treasury, 101), domainerrors.ErrInvalidInput)

	require.NoError(t, f.engine.SetFeeRecipient(ctx, admin, "treasury_2", 10))
	id := f.list(t, alice, "nft_1", 1000)
	f.module.Ledger.Credit(bob, sui, 1000)

	split, err := f.engine.Purchase(ctx, bob, id, admin, sui)
	require.NoError(t, err)
	require.Equal(t, entities.Amount(100), split.Fee)
	require.Equal(t, entities.Amount(100), f.module.Ledger.Balance("treasury_2", sui))
	require.Equal(t, entities.Amount(0), f.module.Ledger.Balance(treasury, sui))
}

func TestMutationsAppendOutboxEvents(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	id := f.list(t, alice, "nft_1", 100)
	require.NoError(t, f.engine.UpdatePrice(ctx, alice, id, 200, sui))
	f.module.Ledger.Credit(bob, sui, 200)
	_, err := f.engine.Purchase(ctx, bob, id, admin, sui)
	require.NoError(t, err)

	types := make([]string, 0)
	for _, evt := range f.module.Store.OutboxEvents() {
		types = append(types, evt.EventType)
	}
	require.Equal(t, []string{
		commands.EventFeeRecipientSet,
		commands.EventListingCreated,
		commands.EventPriceUpdated,
		commands.EventListingPurchased,
	}, types)

	events := f.module.Store.OutboxEvents()
	require.Equal(t, string(id), events[3].PartitionKey)
}

func TestInvalidInputIsRejectedBeforeAnyEffect(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	f.module.Custody.RegisterAsset("nft_1", alice)

	_, err := f.engine.List(ctx, "", "nft_1", 10, sui)
	require.ErrorIs(t, err, domainerrors.ErrInvalidInput)
	_, err = f.engine.List(ctx, alice, "nft_1", 10, "")
	require.ErrorIs(t, err, domainerrors.ErrInvalidInput)
	require.Equal(t, 0, f.module.Custody.TotalCalls())
}

func TestZeroPriceListingSettlesWithZeroFee(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	id := f.list(t, alice, "nft_1", 0)

	amount, found, err := f.engine.Price(ctx, id, sui)
	require.NoError(t, err)
	require.True(t, found)
	require.Zero(t, amount)

	split, err := f.engine.Purchase(ctx, bob, id, admin, sui)
	require.NoError(t, err)
	require.Zero(t, split.Fee)
	require.Zero(t, split.SellerAmount)
	require.Equal(t, bob, f.owner(t, "nft_1"))
	require.Zero(t, f.module.Ledger.Balance(alice, sui))
	require.NoError(t, f.module.Store.CheckInvariants())
}

func TestUpdatePriceAcceptsZero(t *testing.T) {
	f := newFixture(t, 3)
	ctx := context.Background()
	id := f.list(t, alice, "nft_1", 500)

	require.NoError(t, f.engine.UpdatePrice(ctx, alice, id, 0, sui))
	amount, found, err := f.engine.Price(ctx, id, sui)
	require.NoError(t, err)
	require.True(t, found)
	require.Zero(t, amount)
}

type panickingIDs struct{}

func (panickingIDs) NewID(context.Context) (string, error) {
	panic("id source unavailable")
}

func TestNewModuleDefaultsEventIDs(t *testing.T) {
	store := memory.NewStore(nil)
	custody := memory.NewCustody()
	module := listingengine.NewModule(listingengine.Dependencies{
		Repository:    store,
		Custody:       custody,
		Ledger:        memory.NewLedger(),
		Administrator: admin,
	})
	custody.RegisterAsset("nft_1", alice)

	_, err := module.Engine.List(context.Background(), alice, "nft_1", 10, sui)
	require.NoError(t, err)
	events := store.OutboxEvents()
	require.Len(t, events, 1)
	require.NotEmpty(t, events[0].OutboxID)
}

func TestPanicDuringListRollsBackCustody(t *testing.T) {
	store := memory.NewStore(nil)
	custody := memory.NewCustody()
	module := listingengine.NewModule(listingengine.Dependencies{
		Repository:    store,
		Custody:       custody,
		Ledger:        memory.NewLedger(),
		IDGenerator:   panickingIDs{},
		Administrator: admin,
	})
	custody.RegisterAsset("nft_1", alice)
	ctx := context.Background()

	_, err := module.Engine.List(ctx, alice, "nft_1", 10, sui)
	require.ErrorIs(t, err, domainerrors.ErrOperationPanicked)
	require.NotErrorIs(t, err, domainerrors.ErrRollbackIncomplete)

	owner, err := custody.OwnerOf(ctx, "nft_1")
	require.NoError(t, err)
	require.Equal(t, alice, owner)
	require.Equal(t, custody.Calls(memory.CustodyOpCreateContainer), custody.Calls(memory.CustodyOpDeleteContainer))

	sellers, err := module.Engine.Sellers(ctx)
	require.NoError(t, err)
	require.Empty(t, sellers)
	require.Empty(t, store.OutboxEvents())
	require.NoError(t, store.CheckInvariants())
}

func TestInMemoryProvisioningFundsSale(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	require.NotNil(t, f.module.Provisioning)

	require.ErrorIs(t, f.module.Provisioning.RegisterAsset(ctx, "", alice), domainerrors.ErrInvalidInput)
	require.NoError(t, f.module.Provisioning.RegisterAsset(ctx, "nft_seeded", alice))
	require.NoError(t, f.module.Provisioning.Credit(ctx, bob, sui, 300))

	id, err := f.engine.List(ctx, alice, "nft_seeded", 200, sui)
	require.NoError(t, err)
	_, err = f.engine.Purchase(ctx, bob, id, admin, sui)
	require.NoError(t, err)
	require.Equal(t, bob, f.owner(t, "nft_seeded"))
	require.Equal(t, entities.Amount(100), f.module.Ledger.Balance(bob, sui))
	require.Equal(t, entities.Amount(180), f.module.Ledger.Balance(alice, sui))
	require.Equal(t, entities.Amount(20), f.module.Ledger.Balance(treasury, sui))
}
