package postgresadapter

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	application "bazaar/contexts/marketplace/listing-engine/application"
	"bazaar/contexts/marketplace/listing-engine/domain/entities"
	domainerrors "bazaar/contexts/marketplace/listing-engine/domain/errors"
	"bazaar/contexts/marketplace/listing-engine/ports"
)

// Custody is the durable asset custody backend. Every call runs in its own
// transaction; asset rows are locked FOR UPDATE before ownership changes.
type Custody struct {
	db     *gorm.DB
	clock  ports.Clock
	logger *slog.Logger
}

func NewCustody(db *gorm.DB, clock ports.Clock, logger *slog.Logger) *Custody {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Custody{
		db:     db,
		clock:  clock,
		logger: application.ResolveLogger(logger),
	}
}

// RegisterAsset records owner as the holder of asset.
func (c *Custody) RegisterAsset(ctx context.Context, asset entities.AssetHandle, owner entities.AccountID) error {
	if asset.IsZero() || owner.IsZero() {
		return domainerrors.ErrInvalidInput
	}
	row := custodyAssetModel{
		Asset:     string(asset),
		Owner:     string(owner),
		UpdatedAt: c.clock.Now().UTC(),
	}
	if err := c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "asset"}},
		DoUpdates: clause.AssignmentColumns([]string{"owner", "updated_at"}),
	}).Create(&row).Error; err != nil {
		return c.logError("custody_register_asset_failed", err, "asset", asset)
	}
	return nil
}

func (c *Custody) OwnerOf(ctx context.Context, asset entities.AssetHandle) (entities.AccountID, error) {
	var row custodyAssetModel
	err := c.db.WithContext(ctx).Where("asset = ?", string(asset)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", domainerrors.ErrAssetNotFound
	}
	if err != nil {
		return "", c.logError("custody_owner_of_failed", err, "asset", asset)
	}
	return entities.AccountID(row.Owner), nil
}

func (c *Custody) CreateContainer(ctx context.Context, owner entities.AccountID) (entities.Container, error) {
	now := c.clock.Now().UTC()
	box := entities.Container{
		Handle:     entities.AssetHandle("ctr_" + uuid.NewString()),
		Capability: entities.CustodyCapability("cap_" + uuid.NewString()),
	}
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&custodyContainerModel{
			Capability: string(box.Capability),
			Handle:     string(box.Handle),
			CreatedAt:  now,
		}).Error; err != nil {
			return err
		}
		return tx.Create(&custodyAssetModel{
			Asset:     string(box.Handle),
			Owner:     string(owner),
			UpdatedAt: now,
		}).Error
	})
	if err != nil {
		return entities.Container{}, c.logError("custody_create_container_failed", err, "owner", owner)
	}
	return box, nil
}

func (c *Custody) DisableExternalTransfer(ctx context.Context, handle entities.AssetHandle) error {
	result := c.db.WithContext(ctx).
		Model(&custodyContainerModel{}).
		Where("handle = ?", string(handle)).
		Update("transfer_disabled", true)
	if result.Error != nil {
		return c.logError("custody_disable_transfer_failed", result.Error, "handle", handle)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrContainerNotFound
	}
	return nil
}

func (c *Custody) MoveIn(ctx context.Context, owner entities.AccountID, asset entities.AssetHandle, target entities.Container) error {
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockContainer(tx, target.Capability); err != nil {
			return err
		}
		return c.moveAsset(tx, asset, owner, target.Account())
	})
	return c.domainOrLogged("custody_move_in_failed", err, "asset", asset, "handle", target.Handle)
}

func (c *Custody) Transfer(ctx context.Context, capability entities.CustodyCapability, asset entities.AssetHandle, to entities.AccountID) error {
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		box, err := lockContainer(tx, capability)
		if err != nil {
			return err
		}
		return c.moveAsset(tx, asset, entities.AccountID(box.Handle), to)
	})
	return c.domainOrLogged("custody_transfer_failed", err, "asset", asset, "to", to)
}

// TransferContainer moves ownership of a container between accounts. It
// fails once external transfer has been disabled.
func (c *Custody) TransferContainer(ctx context.Context, handle entities.AssetHandle, to entities.AccountID) error {
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var box custodyContainerModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("handle = ?", string(handle)).
			First(&box).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domainerrors.ErrContainerNotFound
		}
		if err != nil {
			return err
		}
		if box.TransferDisabled {
			return domainerrors.ErrTransferDisabled
		}
		return tx.Model(&custodyAssetModel{}).
			Where("asset = ?", string(handle)).
			Updates(map[string]any{"owner": string(to), "updated_at": c.clock.Now().UTC()}).
			Error
	})
	return c.domainOrLogged("custody_transfer_container_failed", err, "handle", handle)
}

// DeleteContainer destroys an empty container. It cannot be undone.
func (c *Custody) DeleteContainer(ctx context.Context, capability entities.CustodyCapability) error {
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		box, err := lockContainer(tx, capability)
		if err != nil {
			return err
		}
		var held int64
		if err := tx.Model(&custodyAssetModel{}).
			Where("owner = ?", box.Handle).
			Count(&held).Error; err != nil {
			return err
		}
		if held > 0 {
			return domainerrors.ErrRepositoryInvariantBroke
		}
		if err := tx.Where("capability = ?", box.Capability).Delete(&custodyContainerModel{}).Error; err != nil {
			return err
		}
		return tx.Where("asset = ?", box.Handle).Delete(&custodyAssetModel{}).Error
	})
	return c.domainOrLogged("custody_delete_container_failed", err, "capability", capability)
}

// moveAsset hands asset from holder to next, failing unless holder owns it.
func (c *Custody) moveAsset(tx *gorm.DB, asset entities.AssetHandle, holder entities.AccountID, next entities.AccountID) error {
	var row custodyAssetModel
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("asset = ?", string(asset)).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domainerrors.ErrAssetNotFound
	}
	if err != nil {
		return err
	}
	if entities.AccountID(row.Owner) != holder {
		return domainerrors.ErrForbidden
	}
	return tx.Model(&custodyAssetModel{}).
		Where("asset = ?", string(asset)).
		Updates(map[string]any{"owner": string(next), "updated_at": c.clock.Now().UTC()}).
		Error
}

func lockContainer(tx *gorm.DB, capability entities.CustodyCapability) (custodyContainerModel, error) {
	var box custodyContainerModel
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("capability = ?", string(capability)).
		First(&box).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return custodyContainerModel{}, domainerrors.ErrContainerNotFound
	}
	return box, err
}

// domainOrLogged passes domain errors through and logs everything else.
func (c *Custody) domainOrLogged(event string, err error, attrs ...any) error {
	if err == nil || isDomainError(err) {
		return err
	}
	return c.logError(event, err, attrs...)
}

func (c *Custody) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", application.ModuleName,
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	c.logger.Error("custody operation failed", fields...)
	return err
}

func isDomainError(err error) bool {
	return errors.Is(err, domainerrors.ErrNotFound) ||
		errors.Is(err, domainerrors.ErrForbidden) ||
		errors.Is(err, domainerrors.ErrTransferDisabled) ||
		errors.Is(err, domainerrors.ErrInsufficientBalance) ||
		errors.Is(err, domainerrors.ErrInvalidInput) ||
		errors.Is(err, domainerrors.ErrRepositoryInvariantBroke)
}

var _ ports.Custody = (*Custody)(nil)
