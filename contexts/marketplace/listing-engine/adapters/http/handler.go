package httpadapter

import (
	"context"
	"log/slog"

	application "bazaar/contexts/marketplace/listing-engine/application"
	"bazaar/contexts/marketplace/listing-engine/application/commands"
	"bazaar/contexts/marketplace/listing-engine/application/queries"
	"bazaar/contexts/marketplace/listing-engine/domain/entities"
	domainerrors "bazaar/contexts/marketplace/listing-engine/domain/errors"
	"bazaar/contexts/marketplace/listing-engine/ports"
	httptransport "bazaar/contexts/marketplace/listing-engine/transport/http"
)

type Handler struct {
	ListAsset          commands.ListAssetUseCase
	PurchaseListing    commands.PurchaseListingUseCase
	UnlistAsset        commands.UnlistAssetUseCase
	UpdatePrice        commands.UpdatePriceUseCase
	SetFeeRecipient    commands.SetFeeRecipientUseCase
	GetPrice           queries.GetPriceUseCase
	GetListing         queries.GetListingUseCase
	ListSellerListings queries.ListSellerListingsUseCase
	ListSellers        queries.ListSellersUseCase
	Provisioning       ports.Provisioning
	Logger             *slog.Logger
}

// ListAssetHandler godoc
// @Summary List an asset for sale
// @Description Moves the caller's asset into marketplace custody at a fixed price.
// @Tags listing-engine
// @Accept json
// @Produce json
// @Param X-Account-Id header string true "Authenticated caller account"
// @Param request body httptransport.ListAssetRequest true "Listing request"
// @Success 201 {object} httptransport.ListAssetResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/listings [post]
func (h Handler) ListAssetHandler(ctx context.Context, caller string, req httptransport.ListAssetRequest) (httptransport.ListAssetResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	logger.Info("list asset request received",
		"event", "http_list_asset_received",
		"module", application.ModuleName,
		"layer", "transport",
		"seller", caller,
	)

	result, err := h.ListAsset.Execute(ctx, commands.ListAssetCommand{
		Seller:   entities.AccountID(caller),
		Asset:    entities.AssetHandle(req.Asset),
		Price:    entities.Amount(req.Price),
		Currency: entities.CurrencyTag(req.Currency),
	})
	if err != nil {
		return httptransport.ListAssetResponse{}, err
	}
	return httptransport.ListAssetResponse{
		ListingID: string(result.Listing.ListingID),
		Asset:     string(result.Listing.Asset),
		Seller:    string(result.Listing.Seller),
		Price:     uint64(result.Price.Amount),
		Currency:  string(result.Price.Currency),
	}, nil
}

// PurchaseListingHandler godoc
// @Summary Purchase a listing
// @Description Pays the listed price split between seller and fee recipient and releases the asset to the caller.
// @Tags listing-engine
// @Accept json
// @Produce json
// @Param X-Account-Id header string true "Authenticated caller account"
// @Param listing_id path string true "Listing id"
// @Param request body httptransport.PurchaseListingRequest true "Purchase request"
// @Success 200 {object} httptransport.PurchaseListingResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 401 {object} httptransport.ErrorResponse
// @Failure 402 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/listings/{listing_id}/purchase [post]
func (h Handler) PurchaseListingHandler(
	ctx context.Context,
	caller string,
	listingID string,
	req httptransport.PurchaseListingRequest,
) (httptransport.PurchaseListingResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	logger.Info("purchase listing request received",
		"event", "http_purchase_listing_received",
		"module", application.ModuleName,
		"layer", "transport",
		"listing_id", listingID,
		"purchaser", caller,
	)

	result, err := h.PurchaseListing.Execute(ctx, commands.PurchaseListingCommand{
		Purchaser:      entities.AccountID(caller),
		ListingID:      entities.ListingID(listingID),
		AdminConfigKey: entities.AccountID(req.AdminConfigKey),
		Currency:       entities.CurrencyTag(req.Currency),
	})
	if err != nil {
		return httptransport.PurchaseListingResponse{}, err
	}
	return httptransport.PurchaseListingResponse{
		ListingID:    string(result.Listing.ListingID),
		Asset:        string(result.Listing.Asset),
		Seller:       string(result.Listing.Seller),
		Price:        uint64(result.Split.Price),
		Fee:          uint64(result.Split.Fee),
		SellerAmount: uint64(result.Split.SellerAmount),
		FeeRecipient: string(result.FeeRecipient),
	}, nil
}

// UnlistAssetHandler godoc
// @Summary Cancel a listing
// @Description Returns the asset to its seller and removes the listing.
// @Tags listing-engine
// @Accept json
// @Produce json
// @Param X-Account-Id header string true "Authenticated caller account"
// @Param listing_id path string true "Listing id"
// @Param request body httptransport.UnlistAssetRequest true "Unlist request"
// @Success 200 {object} httptransport.UnlistAssetResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/listings/{listing_id}/unlist [post]
func (h Handler) UnlistAssetHandler(
	ctx context.Context,
	caller string,
	listingID string,
	req httptransport.UnlistAssetRequest,
) (httptransport.UnlistAssetResponse, error) {
	result, err := h.UnlistAsset.Execute(ctx, commands.UnlistAssetCommand{
		Seller:    entities.AccountID(caller),
		ListingID: entities.ListingID(listingID),
		Currency:  entities.CurrencyTag(req.Currency),
	})
	if err != nil {
		return httptransport.UnlistAssetResponse{}, err
	}
	return httptransport.UnlistAssetResponse{
		ListingID: string(result.Listing.ListingID),
		Asset:     string(result.Listing.Asset),
		Seller:    string(result.Listing.Seller),
	}, nil
}

// UpdatePriceHandler godoc
// @Summary Reprice a listing
// @Tags listing-engine
// @Accept json
// @Produce json
// @Param X-Account-Id header string true "Authenticated caller account"
// @Param listing_id path string true "Listing id"
// @Param request body httptransport.UpdatePriceRequest true "New price"
// @Success 200 {object} httptransport.UpdatePriceResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/listings/{listing_id}/price [put]
func (h Handler) UpdatePriceHandler(
	ctx context.Context,
	caller string,
	listingID string,
	req httptransport.UpdatePriceRequest,
) (httptransport.UpdatePriceResponse, error) {
	result, err := h.UpdatePrice.Execute(ctx, commands.UpdatePriceCommand{
		Seller:    entities.AccountID(caller),
		ListingID: entities.ListingID(listingID),
		NewPrice:  entities.Amount(req.Price),
		Currency:  entities.CurrencyTag(req.Currency),
	})
	if err != nil {
		return httptransport.UpdatePriceResponse{}, err
	}
	return httptransport.UpdatePriceResponse{
		ListingID:     string(result.Price.ListingID),
		Currency:      string(result.Price.Currency),
		Price:         uint64(result.Price.Amount),
		PreviousPrice: uint64(result.Previous),
	}, nil
}

// SetFeeRecipientHandler godoc
// @Summary Register the marketplace fee configuration
// @Description Administrator only. Upserts the fee config keyed by the administrator account.
// @Tags listing-engine
// @Accept json
// @Produce json
// @Param X-Account-Id header string true "Authenticated caller account"
// @Param request body httptransport.SetFeeRecipientRequest true "Fee configuration"
// @Success 200 {object} httptransport.SetFeeRecipientResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Failure 403 {object} httptransport.ErrorResponse
// @Router /v1/admin/fee-recipient [put]
func (h Handler) SetFeeRecipientHandler(
	ctx context.Context,
	caller string,
	req httptransport.SetFeeRecipientRequest,
) (httptransport.SetFeeRecipientResponse, error) {
	result, err := h.SetFeeRecipient.Execute(ctx, commands.SetFeeRecipientCommand{
		Caller:         entities.AccountID(caller),
		Recipient:      entities.AccountID(req.FeeRecipient),
		FeeRatePercent: req.FeeRatePercent,
	})
	if err != nil {
		return httptransport.SetFeeRecipientResponse{}, err
	}
	return httptransport.SetFeeRecipientResponse{
		AdminConfigKey: string(result.Config.Key),
		FeeRecipient:   string(result.Config.FeeRecipient),
		FeeRatePercent: result.Config.FeeRatePercent,
	}, nil
}

// GetListingHandler godoc
// @Summary Get a listing
// @Tags listing-engine
// @Produce json
// @Param listing_id path string true "Listing id"
// @Success 200 {object} httptransport.GetListingResponse
// @Failure 404 {object} httptransport.ErrorResponse
// @Router /v1/listings/{listing_id} [get]
func (h Handler) GetListingHandler(ctx context.Context, listingID string) (httptransport.GetListingResponse, error) {
	result, err := h.GetListing.Execute(ctx, queries.GetListingQuery{
		ListingID: entities.ListingID(listingID),
	})
	if err != nil {
		return httptransport.GetListingResponse{}, err
	}
	return httptransport.GetListingResponse{
		ListingID: listingID,
		Asset:     string(result.Asset),
		Seller:    string(result.Seller),
	}, nil
}

// GetPriceHandler godoc
// @Summary Get a listing price
// @Tags listing-engine
// @Produce json
// @Param listing_id path string true "Listing id"
// @Param currency query string true "Currency tag"
// @Success 200 {object} httptransport.GetPriceResponse
// @Router /v1/listings/{listing_id}/price [get]
func (h Handler) GetPriceHandler(ctx context.Context, listingID string, currency string) (httptransport.GetPriceResponse, error) {
	result, err := h.GetPrice.Execute(ctx, queries.GetPriceQuery{
		ListingID: entities.ListingID(listingID),
		Currency:  entities.CurrencyTag(currency),
	})
	if err != nil {
		return httptransport.GetPriceResponse{}, err
	}
	resp := httptransport.GetPriceResponse{
		ListingID: listingID,
		Currency:  currency,
		Found:     result.Found,
	}
	if result.Found {
		amount := uint64(result.Amount)
		resp.Price = &amount
	}
	return resp, nil
}

// ListSellersHandler godoc
// @Summary List sellers with active listings
// @Tags listing-engine
// @Produce json
// @Success 200 {object} httptransport.ListSellersResponse
// @Router /v1/sellers [get]
func (h Handler) ListSellersHandler(ctx context.Context) (httptransport.ListSellersResponse, error) {
	result, err := h.ListSellers.Execute(ctx)
	if err != nil {
		return httptransport.ListSellersResponse{}, err
	}
	sellers := make([]string, 0, len(result.Sellers))
	for _, seller := range result.Sellers {
		sellers = append(sellers, string(seller))
	}
	return httptransport.ListSellersResponse{Sellers: sellers}, nil
}

// ListSellerListingsHandler godoc
// @Summary List a seller's active listings
// @Tags listing-engine
// @Produce json
// @Param seller path string true "Seller account"
// @Success 200 {object} httptransport.ListSellerListingsResponse
// @Router /v1/sellers/{seller}/listings [get]
func (h Handler) ListSellerListingsHandler(ctx context.Context, seller string) (httptransport.ListSellerListingsResponse, error) {
	result, err := h.ListSellerListings.Execute(ctx, queries.ListSellerListingsQuery{
		Seller: entities.AccountID(seller),
	})
	if err != nil {
		return httptransport.ListSellerListingsResponse{}, err
	}
	ids := make([]string, 0, len(result.ListingIDs))
	for _, id := range result.ListingIDs {
		ids = append(ids, string(id))
	}
	return httptransport.ListSellerListingsResponse{Seller: seller, ListingIDs: ids}, nil
}

// RegisterAssetHandler godoc
// @Summary Register an asset with custody (development only)
// @Tags dev-provisioning
// @Accept json
// @Produce json
// @Param request body httptransport.RegisterAssetRequest true "Asset and owner"
// @Success 201 {object} httptransport.RegisterAssetResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Router /v1/dev/assets [post]
func (h Handler) RegisterAssetHandler(ctx context.Context, req httptransport.RegisterAssetRequest) (httptransport.RegisterAssetResponse, error) {
	if h.Provisioning == nil {
		return httptransport.RegisterAssetResponse{}, domainerrors.ErrForbidden
	}
	logger := application.ResolveLogger(h.Logger)
	logger.Warn("dev asset registration",
		"event", "http_dev_register_asset",
		"module", application.ModuleName,
		"layer", "transport",
		"asset", req.Asset,
		"owner", req.Owner,
	)
	if err := h.Provisioning.RegisterAsset(ctx, entities.AssetHandle(req.Asset), entities.AccountID(req.Owner)); err != nil {
		return httptransport.RegisterAssetResponse{}, err
	}
	return httptransport.RegisterAssetResponse{Asset: req.Asset, Owner: req.Owner}, nil
}

// CreditBalanceHandler godoc
// @Summary Credit an account balance (development only)
// @Tags dev-provisioning
// @Accept json
// @Produce json
// @Param request body httptransport.CreditBalanceRequest true "Account, currency and amount"
// @Success 200 {object} httptransport.CreditBalanceResponse
// @Failure 400 {object} httptransport.ErrorResponse
// @Router /v1/dev/balances [post]
func (h Handler) CreditBalanceHandler(ctx context.Context, req httptransport.CreditBalanceRequest) (httptransport.CreditBalanceResponse, error) {
	if h.Provisioning == nil {
		return httptransport.CreditBalanceResponse{}, domainerrors.ErrForbidden
	}
	logger := application.ResolveLogger(h.Logger)
	logger.Warn("dev balance credit",
		"event", "http_dev_credit_balance",
		"module", application.ModuleName,
		"layer", "transport",
		"account", req.Account,
		"currency", req.Currency,
		"amount", req.Amount,
	)
	err := h.Provisioning.Credit(ctx, entities.AccountID(req.Account), entities.CurrencyTag(req.Currency), entities.Amount(req.Amount))
	if err != nil {
		return httptransport.CreditBalanceResponse{}, err
	}
	return httptransport.CreditBalanceResponse{Account: req.Account, Currency: req.Currency, Credited: req.Amount}, nil
}
