package postgresadapter

import (
	"time"

	"bazaar/contexts/marketplace/listing-engine/domain/entities"
)

type listingModel struct {
	ListingID  string    `gorm:"column:listing_id;primaryKey"`
	Asset      string    `gorm:"column:asset;uniqueIndex"`
	Seller     string    `gorm:"column:seller;index"`
	Capability string    `gorm:"column:capability"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (listingModel) TableName() string {
	return "marketplace_listings"
}

func listingModelFromEntity(listing entities.Listing) listingModel {
	return listingModel{
		ListingID:  string(listing.ListingID),
		Asset:      string(listing.Asset),
		Seller:     string(listing.Seller),
		Capability: string(listing.Capability),
		CreatedAt:  listing.CreatedAt.UTC(),
	}
}

func (m listingModel) toEntity() entities.Listing {
	return entities.Listing{
		ListingID:  entities.ListingID(m.ListingID),
		Asset:      entities.AssetHandle(m.Asset),
		Seller:     entities.AccountID(m.Seller),
		Capability: entities.CustodyCapability(m.Capability),
		CreatedAt:  m.CreatedAt.UTC(),
	}
}

type priceEntryModel struct {
	ListingID string    `gorm:"column:listing_id;primaryKey"`
	Currency  string    `gorm:"column:currency"`
	Amount    int64     `gorm:"column:amount"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (priceEntryModel) TableName() string {
	return "marketplace_listing_prices"
}

func priceEntryModelFromEntity(price entities.PriceEntry) priceEntryModel {
	return priceEntryModel{
		ListingID: string(price.ListingID),
		Currency:  string(price.Currency),
		Amount:    int64(price.Amount),
		UpdatedAt: price.UpdatedAt.UTC(),
	}
}

func (m priceEntryModel) toEntity() entities.PriceEntry {
	return entities.PriceEntry{
		ListingID: entities.ListingID(m.ListingID),
		Currency:  entities.CurrencyTag(m.Currency),
		Amount:    entities.Amount(m.Amount),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
}

// sellerIndexModel marks that a seller's index was created. It is never
// deleted, so an empty index is distinguishable from a missing one.
type sellerIndexModel struct {
	Seller    string    `gorm:"column:seller;primaryKey"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (sellerIndexModel) TableName() string {
	return "marketplace_seller_indexes"
}

type sellerIndexEntryModel struct {
	Position  int64  `gorm:"column:position;primaryKey;autoIncrement"`
	Seller    string `gorm:"column:seller;uniqueIndex:idx_seller_listing"`
	ListingID string `gorm:"column:listing_id;uniqueIndex:idx_seller_listing"`
}

func (sellerIndexEntryModel) TableName() string {
	return "marketplace_seller_index_entries"
}

type sellerModel struct {
	Seller  string    `gorm:"column:seller;primaryKey"`
	AddedAt time.Time `gorm:"column:added_at"`
}

func (sellerModel) TableName() string {
	return "marketplace_sellers"
}

type adminConfigModel struct {
	AdminKey       string    `gorm:"column:admin_key;primaryKey"`
	FeeRecipient   string    `gorm:"column:fee_recipient"`
	FeeRatePercent int64     `gorm:"column:fee_rate_percent"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (adminConfigModel) TableName() string {
	return "marketplace_admin_configs"
}

func (m adminConfigModel) toEntity() entities.AdminConfig {
	return entities.AdminConfig{
		Key:            entities.AccountID(m.AdminKey),
		FeeRecipient:   entities.AccountID(m.FeeRecipient),
		FeeRatePercent: uint64(m.FeeRatePercent),
		UpdatedAt:      m.UpdatedAt.UTC(),
	}
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status;index"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "marketplace_outbox"
}

// custodyAssetModel records the current owner of every custodied asset,
// containers included. A container's own account is its handle.
type custodyAssetModel struct {
	Asset     string    `gorm:"column:asset;primaryKey"`
	Owner     string    `gorm:"column:owner;index"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (custodyAssetModel) TableName() string {
	return "marketplace_custody_assets"
}

type custodyContainerModel struct {
	Capability       string    `gorm:"column:capability;primaryKey"`
	Handle           string    `gorm:"column:handle;uniqueIndex"`
	TransferDisabled bool      `gorm:"column:transfer_disabled"`
	CreatedAt        time.Time `gorm:"column:created_at"`
}

func (custodyContainerModel) TableName() string {
	return "marketplace_custody_containers"
}

type ledgerBalanceModel struct {
	Account   string    `gorm:"column:account;primaryKey"`
	Currency  string    `gorm:"column:currency;primaryKey"`
	Amount    int64     `gorm:"column:amount"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (ledgerBalanceModel) TableName() string {
	return "marketplace_ledger_balances"
}
