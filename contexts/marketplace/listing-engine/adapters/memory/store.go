package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	application "bazaar/contexts/marketplace/listing-engine/application"
	"bazaar/contexts/marketplace/listing-engine/domain/entities"
	domainerrors "bazaar/contexts/marketplace/listing-engine/domain/errors"
	"bazaar/contexts/marketplace/listing-engine/ports"
)

// Store is an in-memory adapter implementing the listing engine stores for
// local runtime and tests. It is not intended as production persistence.
type Store struct {
	mu       sync.RWMutex
	state    *state
	outbox   *outboxLog
	sequence uint64
	logger   *slog.Logger
}

// state holds the four stores. A unit of work mutates a clone and the clone
// replaces the live state only on success. Outbox appends are staged on the
// clone and absorbed into the committed log on commit, so a clone never
// copies outbox history.
type state struct {
	listings     map[entities.ListingID]entities.Listing
	prices       map[entities.ListingID]entities.PriceEntry
	sellerIndex  map[entities.AccountID][]entities.ListingID
	sellers      []entities.AccountID
	adminConfigs map[entities.AccountID]entities.AdminConfig

	committed *outboxLog
	staged    []ports.OutboxMessage
	stagedIDs map[string]struct{}
}

// outboxLog is the committed outbox in append order.
type outboxLog struct {
	messages map[string]ports.OutboxMessage
	order    []string
	sent     map[string]time.Time
	// firstPending indexes the oldest unsent entry of order.
	firstPending int
}

func NewStore(logger *slog.Logger) *Store {
	outbox := &outboxLog{
		messages: make(map[string]ports.OutboxMessage),
		order:    make([]string, 0),
		sent:     make(map[string]time.Time),
	}
	return &Store{
		state: &state{
			listings:     make(map[entities.ListingID]entities.Listing),
			prices:       make(map[entities.ListingID]entities.PriceEntry),
			sellerIndex:  make(map[entities.AccountID][]entities.ListingID),
			sellers:      make([]entities.AccountID, 0),
			adminConfigs: make(map[entities.AccountID]entities.AdminConfig),
			committed:    outbox,
		},
		outbox: outbox,
		logger: application.ResolveLogger(logger),
	}
}

// WithinTx holds the write lock for the whole unit of work, which serializes
// every mutating operation against this store.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, stores ports.Stores) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft := s.state.clone()
	if err := fn(ctx, draft); err != nil {
		s.logger.Debug("memory unit of work discarded",
			"event", "memory_tx_rolled_back",
			"module", application.ModuleName,
			"layer", "adapter",
			"error", err.Error(),
		)
		return err
	}
	s.absorb(draft)
	s.state = draft
	return nil
}

// absorb moves outbox rows staged on st into the committed log.
func (s *Store) absorb(st *state) {
	for _, msg := range st.staged {
		s.outbox.messages[msg.OutboxID] = msg
		s.outbox.order = append(s.outbox.order, msg.OutboxID)
	}
	st.staged = nil
	st.stagedIDs = nil
}

func (s *Store) CreateListing(ctx context.Context, listing entities.Listing, price entities.PriceEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CreateListing(ctx, listing, price)
}

func (s *Store) GetListing(ctx context.Context, listingID entities.ListingID) (entities.Listing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.GetListing(ctx, listingID)
}

func (s *Store) GetPrice(ctx context.Context, listingID entities.ListingID, currency entities.CurrencyTag) (entities.PriceEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.GetPrice(ctx, listingID, currency)
}

func (s *Store) SetPrice(ctx context.Context, listingID entities.ListingID, currency entities.CurrencyTag, amount entities.Amount, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SetPrice(ctx, listingID, currency, amount, updatedAt)
}

func (s *Store) DeleteListing(ctx context.Context, listingID entities.ListingID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.DeleteListing(ctx, listingID)
}

func (s *Store) AppendSellerListing(ctx context.Context, seller entities.AccountID, listingID entities.ListingID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.AppendSellerListing(ctx, seller, listingID)
}

func (s *Store) RemoveSellerListing(ctx context.Context, seller entities.AccountID, listingID entities.ListingID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.RemoveSellerListing(ctx, seller, listingID)
}

func (s *Store) SellerIndexContains(ctx context.Context, seller entities.AccountID, listingID entities.ListingID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.SellerIndexContains(ctx, seller, listingID)
}

func (s *Store) SellerIndexExists(ctx context.Context, seller entities.AccountID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.SellerIndexExists(ctx, seller)
}

func (s *Store) SellerListings(ctx context.Context, seller entities.AccountID) ([]entities.ListingID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.SellerListings(ctx, seller)
}

func (s *Store) EnsureSeller(ctx context.Context, seller entities.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.EnsureSeller(ctx, seller)
}

func (s *Store) RemoveSeller(ctx context.Context, seller entities.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.RemoveSeller(ctx, seller)
}

func (s *Store) Sellers(ctx context.Context) ([]entities.AccountID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Sellers(ctx)
}

func (s *Store) UpsertAdminConfig(ctx context.Context, config entities.AdminConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.UpsertAdminConfig(ctx, config)
}

func (s *Store) GetAdminConfig(ctx context.Context, key entities.AccountID) (entities.AdminConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.GetAdminConfig(ctx, key)
}

func (s *Store) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.state.AppendOutbox(ctx, envelope); err != nil {
		return err
	}
	s.absorb(s.state)
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	messages := make([]ports.OutboxMessage, 0, limit)
	for _, id := range s.outbox.order[s.outbox.firstPending:] {
		if _, sent := s.outbox.sent[id]; sent {
			continue
		}
		messages = append(messages, s.outbox.messages[id])
		if len(messages) >= limit {
			break
		}
	}
	return messages, nil
}

func (s *Store) MarkOutboxSent(_ context.Context, outboxID string, sentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.outbox.messages[outboxID]; !ok {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	s.outbox.sent[outboxID] = sentAt.UTC()
	for s.outbox.firstPending < len(s.outbox.order) {
		if _, sent := s.outbox.sent[s.outbox.order[s.outbox.firstPending]]; !sent {
			break
		}
		s.outbox.firstPending++
	}
	return nil
}

// OutboxEvents returns every outbox message in append order.
func (s *Store) OutboxEvents() []ports.OutboxMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]ports.OutboxMessage, 0, len(s.outbox.order))
	for _, id := range s.outbox.order {
		events = append(events, s.outbox.messages[id])
	}
	return events
}

// CheckInvariants verifies the cross-store consistency rules: every listing
// has a price and an index entry under its seller, and the seller set holds
// exactly the sellers with a non-empty index.
func (s *Store) CheckInvariants() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.checkInvariants()
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	value := atomic.AddUint64(&s.sequence, 1)
	return fmt.Sprintf("evt-%d", value), nil
}

func (st *state) clone() *state {
	next := &state{
		listings:     make(map[entities.ListingID]entities.Listing, len(st.listings)),
		prices:       make(map[entities.ListingID]entities.PriceEntry, len(st.prices)),
		sellerIndex:  make(map[entities.AccountID][]entities.ListingID, len(st.sellerIndex)),
		sellers:      append([]entities.AccountID(nil), st.sellers...),
		adminConfigs: make(map[entities.AccountID]entities.AdminConfig, len(st.adminConfigs)),
		committed:    st.committed,
	}
	for id, listing := range st.listings {
		next.listings[id] = listing
	}
	for id, price := range st.prices {
		next.prices[id] = price
	}
	for seller, ids := range st.sellerIndex {
		next.sellerIndex[seller] = append(make([]entities.ListingID, 0, len(ids)), ids...)
	}
	for key, config := range st.adminConfigs {
		next.adminConfigs[key] = config
	}
	return next
}

func (st *state) CreateListing(_ context.Context, listing entities.Listing, price entities.PriceEntry) error {
	if listing.ListingID != price.ListingID {
		return domainerrors.ErrInvalidInput
	}
	if _, exists := st.listings[listing.ListingID]; exists {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	st.listings[listing.ListingID] = listing
	st.prices[listing.ListingID] = price
	return nil
}

func (st *state) GetListing(_ context.Context, listingID entities.ListingID) (entities.Listing, error) {
	listing, ok := st.listings[listingID]
	if !ok {
		return entities.Listing{}, domainerrors.ErrListingNotFound
	}
	return listing, nil
}

func (st *state) GetPrice(_ context.Context, listingID entities.ListingID, currency entities.CurrencyTag) (entities.PriceEntry, error) {
	price, ok := st.prices[listingID]
	if !ok || !price.Matches(currency) {
		return entities.PriceEntry{}, domainerrors.ErrPriceNotFound
	}
	return price, nil
}

func (st *state) SetPrice(_ context.Context, listingID entities.ListingID, currency entities.CurrencyTag, amount entities.Amount, updatedAt time.Time) error {
	price, ok := st.prices[listingID]
	if !ok || !price.Matches(currency) {
		return domainerrors.ErrPriceNotFound
	}
	price.Amount = amount
	price.UpdatedAt = updatedAt.UTC()
	st.prices[listingID] = price
	return nil
}

func (st *state) DeleteListing(_ context.Context, listingID entities.ListingID) error {
	if _, ok := st.listings[listingID]; !ok {
		return domainerrors.ErrListingNotFound
	}
	if _, ok := st.prices[listingID]; !ok {
		return domainerrors.ErrPriceNotFound
	}
	delete(st.listings, listingID)
	delete(st.prices, listingID)
	return nil
}

func (st *state) AppendSellerListing(_ context.Context, seller entities.AccountID, listingID entities.ListingID) error {
	ids, ok := st.sellerIndex[seller]
	if !ok {
		ids = make([]entities.ListingID, 0, 1)
	}
	st.sellerIndex[seller] = append(ids, listingID)
	return nil
}

func (st *state) RemoveSellerListing(_ context.Context, seller entities.AccountID, listingID entities.ListingID) (bool, error) {
	ids, ok := st.sellerIndex[seller]
	if !ok {
		return false, domainerrors.ErrSellerIndexEntryNotFound
	}
	for i, id := range ids {
		if id != listingID {
			continue
		}
		remaining := append(ids[:i:i], ids[i+1:]...)
		// The index entry stays even when empty.
		st.sellerIndex[seller] = remaining
		return len(remaining) == 0, nil
	}
	return false, domainerrors.ErrSellerIndexEntryNotFound
}

func (st *state) SellerIndexContains(_ context.Context, seller entities.AccountID, listingID entities.ListingID) (bool, error) {
	for _, id := range st.sellerIndex[seller] {
		if id == listingID {
			return true, nil
		}
	}
	return false, nil
}

func (st *state) SellerIndexExists(_ context.Context, seller entities.AccountID) (bool, error) {
	_, ok := st.sellerIndex[seller]
	return ok, nil
}

func (st *state) SellerListings(_ context.Context, seller entities.AccountID) ([]entities.ListingID, error) {
	return append([]entities.ListingID{}, st.sellerIndex[seller]...), nil
}

func (st *state) EnsureSeller(_ context.Context, seller entities.AccountID) error {
	for _, existing := range st.sellers {
		if existing == seller {
			return nil
		}
	}
	st.sellers = append(st.sellers, seller)
	return nil
}

func (st *state) RemoveSeller(_ context.Context, seller entities.AccountID) error {
	for i, existing := range st.sellers {
		if existing == seller {
			st.sellers = append(st.sellers[:i:i], st.sellers[i+1:]...)
			return nil
		}
	}
	return domainerrors.ErrSellerNotFound
}

func (st *state) Sellers(_ context.Context) ([]entities.AccountID, error) {
	return append([]entities.AccountID{}, st.sellers...), nil
}

func (st *state) UpsertAdminConfig(_ context.Context, config entities.AdminConfig) error {
	if config.Key.IsZero() {
		return domainerrors.ErrInvalidInput
	}
	st.adminConfigs[config.Key] = config
	return nil
}

func (st *state) GetAdminConfig(_ context.Context, key entities.AccountID) (entities.AdminConfig, error) {
	config, ok := st.adminConfigs[key]
	if !ok {
		return entities.AdminConfig{}, domainerrors.ErrAdminConfigNotFound
	}
	return config, nil
}

func (st *state) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	if envelope.EventID == "" {
		return domainerrors.ErrInvalidInput
	}
	if _, exists := st.committed.messages[envelope.EventID]; exists {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	if _, exists := st.stagedIDs[envelope.EventID]; exists {
		return domainerrors.ErrRepositoryInvariantBroke
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	if st.stagedIDs == nil {
		st.stagedIDs = make(map[string]struct{})
	}
	st.stagedIDs[envelope.EventID] = struct{}{}
	st.staged = append(st.staged, ports.OutboxMessage{
		OutboxID:     envelope.EventID,
		EventType:    envelope.EventType,
		PartitionKey: envelope.PartitionKey,
		Payload:      payload,
		CreatedAt:    envelope.OccurredAt.UTC(),
	})
	return nil
}

func (st *state) checkInvariants() error {
	for id, listing := range st.listings {
		if _, ok := st.prices[id]; !ok {
			return fmt.Errorf("%w: listing %s has no price entry", domainerrors.ErrRepositoryInvariantBroke, id)
		}
		found := false
		for _, indexed := range st.sellerIndex[listing.Seller] {
			if indexed == id {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: listing %s missing from seller index", domainerrors.ErrRepositoryInvariantBroke, id)
		}
	}
	for id := range st.prices {
		if _, ok := st.listings[id]; !ok {
			return fmt.Errorf("%w: price entry %s has no listing", domainerrors.ErrRepositoryInvariantBroke, id)
		}
	}

	inSet := make(map[entities.AccountID]bool, len(st.sellers))
	for _, seller := range st.sellers {
		inSet[seller] = true
	}
	for seller, ids := range st.sellerIndex {
		if (len(ids) > 0) != inSet[seller] {
			return fmt.Errorf("%w: seller %s set membership disagrees with index size %d", domainerrors.ErrRepositoryInvariantBroke, seller, len(ids))
		}
		for _, id := range ids {
			listing, ok := st.listings[id]
			if !ok || listing.Seller != seller {
				return fmt.Errorf("%w: seller %s indexes unknown listing %s", domainerrors.ErrRepositoryInvariantBroke, seller, id)
			}
		}
	}
	for seller := range inSet {
		if _, ok := st.sellerIndex[seller]; !ok {
			return fmt.Errorf("%w: seller %s has no index", domainerrors.ErrRepositoryInvariantBroke, seller)
		}
	}
	return nil
}
