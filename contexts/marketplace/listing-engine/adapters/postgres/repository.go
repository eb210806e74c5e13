package postgresadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	application "bazaar/contexts/marketplace/listing-engine/application"
	"bazaar/contexts/marketplace/listing-engine/domain/entities"
	domainerrors "bazaar/contexts/marketplace/listing-engine/domain/errors"
	"bazaar/contexts/marketplace/listing-engine/ports"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

type Repository struct {
	db     *gorm.DB
	clock  ports.Clock
	logger *slog.Logger
	inTx   bool
}

// NewRepository falls back to SystemClock when clock is nil.
func NewRepository(db *gorm.DB, clock ports.Clock, logger *slog.Logger) *Repository {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Repository{
		db:     db,
		clock:  clock,
		logger: application.ResolveLogger(logger),
	}
}

// Migrate creates or updates the listing engine tables, including the
// custody and ledger tables used by Custody and Ledger.
func (r *Repository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(
		&listingModel{},
		&priceEntryModel{},
		&sellerIndexModel{},
		&sellerIndexEntryModel{},
		&sellerModel{},
		&adminConfigModel{},
		&outboxModel{},
		&custodyAssetModel{},
		&custodyContainerModel{},
		&ledgerBalanceModel{},
	); err != nil {
		return r.logError("listing_repo_migrate_failed", err)
	}
	return nil
}

// WithinTx runs fn in one database transaction. Rows read through the
// transactional view are locked FOR UPDATE until commit.
func (r *Repository) WithinTx(ctx context.Context, fn func(ctx context.Context, stores ports.Stores) error) error {
	if r.inTx {
		return fn(ctx, r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &Repository{db: tx, clock: r.clock, logger: r.logger, inTx: true})
	})
}

func (r *Repository) CreateListing(ctx context.Context, listing entities.Listing, price entities.PriceEntry) error {
	if listing.ListingID != price.ListingID || price.Amount > math.MaxInt64 {
		return domainerrors.ErrInvalidInput
	}
	listingRow := listingModelFromEntity(listing)
	priceRow := priceEntryModelFromEntity(price)

	if err := r.db.WithContext(ctx).Create(&listingRow).Error; err != nil {
		if isUniqueViolation(err) {
			r.logWarn("listing_repo_create_listing_conflict",
				"listing_id", listingRow.ListingID,
				"asset", listingRow.Asset,
			)
			return domainerrors.ErrRepositoryInvariantBroke
		}
		return r.logError("listing_repo_create_listing_failed", err,
			"listing_id", listingRow.ListingID,
		)
	}
	if err := r.db.WithContext(ctx).Create(&priceRow).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrRepositoryInvariantBroke
		}
		return r.logError("listing_repo_create_price_failed", err,
			"listing_id", priceRow.ListingID,
		)
	}
	return nil
}

func (r *Repository) GetListing(ctx context.Context, listingID entities.ListingID) (entities.Listing, error) {
	var row listingModel
	err := r.query(ctx).
		Where("listing_id = ?", strings.TrimSpace(string(listingID))).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Listing{}, domainerrors.ErrListingNotFound
		}
		return entities.Listing{}, r.logError("listing_repo_get_listing_failed", err,
			"listing_id", listingID,
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) GetPrice(ctx context.Context, listingID entities.ListingID, currency entities.CurrencyTag) (entities.PriceEntry, error) {
	var row priceEntryModel
	err := r.query(ctx).
		Where("listing_id = ?", strings.TrimSpace(string(listingID))).
		Where("currency = ?", string(currency)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.PriceEntry{}, domainerrors.ErrPriceNotFound
		}
		return entities.PriceEntry{}, r.logError("listing_repo_get_price_failed", err,
			"listing_id", listingID,
			"currency", currency,
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) SetPrice(ctx context.Context, listingID entities.ListingID, currency entities.CurrencyTag, amount entities.Amount, updatedAt time.Time) error {
	if amount > math.MaxInt64 {
		return domainerrors.ErrInvalidInput
	}
	result := r.db.WithContext(ctx).
		Model(&priceEntryModel{}).
		Where("listing_id = ?", strings.TrimSpace(string(listingID))).
		Where("currency = ?", string(currency)).
		Updates(map[string]any{
			"amount":     int64(amount),
			"updated_at": updatedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("listing_repo_set_price_failed", result.Error,
			"listing_id", listingID,
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrPriceNotFound
	}
	return nil
}

func (r *Repository) DeleteListing(ctx context.Context, listingID entities.ListingID) error {
	id := strings.TrimSpace(string(listingID))
	result := r.db.WithContext(ctx).Where("listing_id = ?", id).Delete(&listingModel{})
	if result.Error != nil {
		return r.logError("listing_repo_delete_listing_failed", result.Error,
			"listing_id", id,
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrListingNotFound
	}
	result = r.db.WithContext(ctx).Where("listing_id = ?", id).Delete(&priceEntryModel{})
	if result.Error != nil {
		return r.logError("listing_repo_delete_price_failed", result.Error,
			"listing_id", id,
		)
	}
	if result.RowsAffected == 0 {
		r.logWarn("listing_repo_delete_price_missing", "listing_id", id)
		return domainerrors.ErrPriceNotFound
	}
	return nil
}

func (r *Repository) AppendSellerListing(ctx context.Context, seller entities.AccountID, listingID entities.ListingID) error {
	if err := r.lockSellerIndex(ctx, seller, true); err != nil {
		return err
	}
	row := sellerIndexEntryModel{
		Seller:    string(seller),
		ListingID: string(listingID),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrRepositoryInvariantBroke
		}
		return r.logError("listing_repo_append_seller_listing_failed", err,
			"seller", seller,
			"listing_id", listingID,
		)
	}
	return nil
}

// RemoveSellerListing locks the seller's index row first so that concurrent
// removals observe each other before counting what is left.
func (r *Repository) RemoveSellerListing(ctx context.Context, seller entities.AccountID, listingID entities.ListingID) (bool, error) {
	if err := r.lockSellerIndex(ctx, seller, false); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, domainerrors.ErrSellerIndexEntryNotFound
		}
		return false, err
	}
	result := r.db.WithContext(ctx).
		Where("seller = ?", string(seller)).
		Where("listing_id = ?", string(listingID)).
		Delete(&sellerIndexEntryModel{})
	if result.Error != nil {
		return false, r.logError("listing_repo_remove_seller_listing_failed", result.Error,
			"seller", seller,
			"listing_id", listingID,
		)
	}
	if result.RowsAffected == 0 {
		return false, domainerrors.ErrSellerIndexEntryNotFound
	}

	var remaining int64
	if err := r.db.WithContext(ctx).
		Model(&sellerIndexEntryModel{}).
		Where("seller = ?", string(seller)).
		Count(&remaining).
		Error; err != nil {
		return false, r.logError("listing_repo_count_seller_listings_failed", err,
			"seller", seller,
		)
	}
	return remaining == 0, nil
}

func (r *Repository) SellerIndexContains(ctx context.Context, seller entities.AccountID, listingID entities.ListingID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&sellerIndexEntryModel{}).
		Where("seller = ?", string(seller)).
		Where("listing_id = ?", string(listingID)).
		Count(&count).
		Error; err != nil {
		return false, r.logError("listing_repo_seller_index_contains_failed", err,
			"seller", seller,
			"listing_id", listingID,
		)
	}
	return count > 0, nil
}

func (r *Repository) SellerIndexExists(ctx context.Context, seller entities.AccountID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&sellerIndexModel{}).
		Where("seller = ?", string(seller)).
		Count(&count).
		Error; err != nil {
		return false, r.logError("listing_repo_seller_index_exists_failed", err,
			"seller", seller,
		)
	}
	return count > 0, nil
}

func (r *Repository) SellerListings(ctx context.Context, seller entities.AccountID) ([]entities.ListingID, error) {
	var rows []sellerIndexEntryModel
	if err := r.db.WithContext(ctx).
		Where("seller = ?", string(seller)).
		Order("position ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("listing_repo_seller_listings_failed", err,
			"seller", seller,
		)
	}
	ids := make([]entities.ListingID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, entities.ListingID(row.ListingID))
	}
	return ids, nil
}

func (r *Repository) EnsureSeller(ctx context.Context, seller entities.AccountID) error {
	row := sellerModel{
		Seller:  string(seller),
		AddedAt: r.clock.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "seller"}},
		DoNothing: true,
	}).Create(&row).Error; err != nil {
		return r.logError("listing_repo_ensure_seller_failed", err,
			"seller", seller,
		)
	}
	return nil
}

func (r *Repository) RemoveSeller(ctx context.Context, seller entities.AccountID) error {
	result := r.db.WithContext(ctx).
		Where("seller = ?", string(seller)).
		Delete(&sellerModel{})
	if result.Error != nil {
		return r.logError("listing_repo_remove_seller_failed", result.Error,
			"seller", seller,
		)
	}
	if result.RowsAffected == 0 {
		r.logWarn("listing_repo_remove_seller_missing", "seller", seller)
		return domainerrors.ErrSellerNotFound
	}
	return nil
}

func (r *Repository) Sellers(ctx context.Context) ([]entities.AccountID, error) {
	var rows []sellerModel
	if err := r.db.WithContext(ctx).
		Order("added_at ASC").
		Order("seller ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("listing_repo_sellers_failed", err)
	}
	sellers := make([]entities.AccountID, 0, len(rows))
	for _, row := range rows {
		sellers = append(sellers, entities.AccountID(row.Seller))
	}
	return sellers, nil
}

func (r *Repository) UpsertAdminConfig(ctx context.Context, config entities.AdminConfig) error {
	row := adminConfigModel{
		AdminKey:       string(config.Key),
		FeeRecipient:   string(config.FeeRecipient),
		FeeRatePercent: int64(config.FeeRatePercent),
		UpdatedAt:      config.UpdatedAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "admin_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"fee_recipient", "fee_rate_percent", "updated_at"}),
	}).Create(&row).Error; err != nil {
		return r.logError("listing_repo_upsert_admin_config_failed", err,
			"admin_config_key", row.AdminKey,
		)
	}
	return nil
}

func (r *Repository) GetAdminConfig(ctx context.Context, key entities.AccountID) (entities.AdminConfig, error) {
	var row adminConfigModel
	err := r.db.WithContext(ctx).
		Where("admin_key = ?", string(key)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.AdminConfig{}, domainerrors.ErrAdminConfigNotFound
		}
		return entities.AdminConfig{}, r.logError("listing_repo_get_admin_config_failed", err,
			"admin_config_key", key,
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return r.logError("listing_repo_append_outbox_marshal_failed", err,
			"event_id", strings.TrimSpace(envelope.EventID),
			"event_type", strings.TrimSpace(envelope.EventType),
		)
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		row.OutboxID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = r.clock.Now().UTC()
	}

	createResult := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row)
	if createResult.Error != nil {
		return r.logError("listing_repo_append_outbox_insert_failed", createResult.Error,
			"outbox_id", row.OutboxID,
			"event_type", row.EventType,
		)
	}
	if createResult.RowsAffected > 0 {
		return nil
	}

	var existing outboxModel
	if err := r.db.WithContext(ctx).
		Select("payload").
		Where("outbox_id = ?", row.OutboxID).
		First(&existing).
		Error; err != nil {
		return r.logError("listing_repo_append_outbox_load_existing_failed", err,
			"outbox_id", row.OutboxID,
		)
	}
	if !bytes.Equal(existing.Payload, row.Payload) {
		r.logWarn("listing_repo_append_outbox_payload_conflict",
			"outbox_id", row.OutboxID,
			"event_type", row.EventType,
		)
		return domainerrors.ErrRepositoryInvariantBroke
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("listing_repo_list_pending_outbox_failed", err,
			"limit", limit,
		)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxSent(ctx context.Context, outboxID string, sentAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": sentAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("listing_repo_mark_outbox_sent_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		r.logWarn("listing_repo_mark_outbox_sent_not_found",
			"outbox_id", strings.TrimSpace(outboxID),
		)
		return domainerrors.ErrRepositoryInvariantBroke
	}
	return nil
}

func (r *Repository) query(ctx context.Context) *gorm.DB {
	query := r.db.WithContext(ctx)
	if r.inTx {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return query
}

// lockSellerIndex takes the row lock on the seller's index header, creating
// the header first when create is set.
func (r *Repository) lockSellerIndex(ctx context.Context, seller entities.AccountID, create bool) error {
	if create {
		header := sellerIndexModel{Seller: string(seller), CreatedAt: r.clock.Now().UTC()}
		if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "seller"}},
			DoNothing: true,
		}).Create(&header).Error; err != nil {
			return r.logError("listing_repo_create_seller_index_failed", err,
				"seller", seller,
			)
		}
	}
	var header sellerIndexModel
	err := r.query(ctx).
		Where("seller = ?", string(seller)).
		First(&header).
		Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return r.logError("listing_repo_lock_seller_index_failed", err,
			"seller", seller,
		)
	}
	return err
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+7)
	fields = append(fields,
		"event", event,
		"module", application.ModuleName,
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("listing repository operation failed", fields...)
	return err
}

func (r *Repository) logWarn(event string, attrs ...any) {
	fields := make([]any, 0, len(attrs)+5)
	fields = append(fields,
		"event", event,
		"module", application.ModuleName,
		"layer", "adapter",
	)
	fields = append(fields, attrs...)
	r.logger.Warn("listing repository warning", fields...)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.Repository = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
