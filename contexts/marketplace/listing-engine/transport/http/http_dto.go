package httptransport

type ListAssetRequest struct {
	Asset    string `json:"asset"`
	Price    uint64 `json:"price"`
	Currency string `json:"currency"`
}

type ListAssetResponse struct {
	ListingID string `json:"listing_id"`
	Asset     string `json:"asset"`
	Seller    string `json:"seller"`
	Price     uint64 `json:"price"`
	Currency  string `json:"currency"`
}

type PurchaseListingRequest struct {
	AdminConfigKey string `json:"admin_config_key"`
	Currency       string `json:"currency"`
}

type PurchaseListingResponse struct {
	ListingID    string `json:"listing_id"`
	Asset        string `json:"asset"`
	Seller       string `json:"seller"`
	Price        uint64 `json:"price"`
	Fee          uint64 `json:"fee"`
	SellerAmount uint64 `json:"seller_amount"`
	FeeRecipient string `json:"fee_recipient"`
}

type UnlistAssetRequest struct {
	Currency string `json:"currency"`
}

type UnlistAssetResponse struct {
	ListingID string `json:"listing_id"`
	Asset     string `json:"asset"`
	Seller    string `json:"seller"`
}

type UpdatePriceRequest struct {
	Price    uint64 `json:"price"`
	Currency string `json:"currency"`
}

type UpdatePriceResponse struct {
	ListingID     string `json:"listing_id"`
	Currency      string `json:"currency"`
	Price         uint64 `json:"price"`
	PreviousPrice uint64 `json:"previous_price"`
}

type SetFeeRecipientRequest struct {
	FeeRecipient   string `json:"fee_recipient"`
	FeeRatePercent uint64 `json:"fee_rate_percent"`
}

type SetFeeRecipientResponse struct {
	AdminConfigKey string `json:"admin_config_key"`
	FeeRecipient   string `json:"fee_recipient"`
	FeeRatePercent uint64 `json:"fee_rate_percent"`
}

type GetListingResponse struct {
	ListingID string `json:"listing_id"`
	Asset     string `json:"asset"`
	Seller    string `json:"seller"`
}

// GetPriceResponse omits price when no entry matches the currency.
type GetPriceResponse struct {
	ListingID string  `json:"listing_id"`
	Currency  string  `json:"currency"`
	Price     *uint64 `json:"price,omitempty"`
	Found     bool    `json:"found"`
}

type ListSellersResponse struct {
	Sellers []string `json:"sellers"`
}

type ListSellerListingsResponse struct {
	Seller     string   `json:"seller"`
	ListingIDs []string `json:"listing_ids"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RegisterAssetRequest struct {
	Asset string `json:"asset"`
	Owner string `json:"owner"`
}

type RegisterAssetResponse struct {
	Asset string `json:"asset"`
	Owner string `json:"owner"`
}

type CreditBalanceRequest struct {
	Account  string `json:"account"`
	Currency string `json:"currency"`
	Amount   uint64 `json:"amount"`
}

type CreditBalanceResponse struct {
	Account  string `json:"account"`
	Currency string `json:"currency"`
	Credited uint64 `json:"credited"`
}
