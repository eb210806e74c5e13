package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	listingengine "bazaar/contexts/marketplace/listing-engine"
	listinghttp "bazaar/contexts/marketplace/listing-engine/transport/http"
)

func newTestServer() (*Server, listingengine.Module) {
	module := listingengine.NewInMemoryModule("admin", nil, slog.Default())
	return New(module, nil, slog.Default(), ":0"), module
}

func doRequest(server *Server, method string, path string, caller string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	if caller != "" {
		req.Header.Set("X-Account-Id", caller)
	}
	rr := httptest.NewRecorder()
	server.mux.ServeHTTP(rr, req)
	return rr
}

func TestListAssetRequiresAccountHeader(t *testing.T) {
	server, _ := newTestServer()
	rr := doRequest(server, http.MethodPost, "/v1/listings", "", `{"asset":"nft_1","price":10,"currency":"SUI"}`)
	require.Equal(t, http.StatusUnauthorized, rr.Code, rr.Body.String())
}

func TestListAssetRejectsInvalidJSON(t *testing.T) {
	server, _ := newTestServer()
	rr := doRequest(server, http.MethodPost, "/v1/listings", "alice", `{`)
	require.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
}

func TestListingLifecycleOverHTTP(t *testing.T) {
	server, module := newTestServer()
	module.Custody.RegisterAsset("nft_1", "alice")
	module.Ledger.Credit("bob", "SUI", 999)

	rr := doRequest(server, http.MethodPut, "/v1/admin/fee-recipient", "admin", `{"fee_recipient":"treasury","fee_rate_percent":3}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = doRequest(server, http.MethodPost, "/v1/listings", "alice", `{"asset":"nft_1","price":999,"currency":"SUI"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var listed listinghttp.ListAssetResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &listed))
	require.NotEmpty(t, listed.ListingID)

	rr = doRequest(server, http.MethodGet, "/v1/listings/"+listed.ListingID+"/price?currency=SUI", "", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var price listinghttp.GetPriceResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &price))
	require.True(t, price.Found)
	require.Equal(t, uint64(999), *price.Price)

	rr = doRequest(server, http.MethodGet, "/v1/sellers", "", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var sellers listinghttp.ListSellersResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sellers))
	require.Equal(t, []string{"alice"}, sellers.Sellers)

	rr = doRequest(server, http.MethodPost, "/v1/listings/"+listed.ListingID+"/purchase", "bob", `{"admin_config_key":"admin","currency":"SUI"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var purchased listinghttp.PurchaseListingResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &purchased))
	require.Equal(t, uint64(27), purchased.Fee)
	require.Equal(t, uint64(972), purchased.SellerAmount)

	rr = doRequest(server, http.MethodGet, "/v1/listings/"+listed.ListingID, "", "")
	require.Equal(t, http.StatusNotFound, rr.Code, rr.Body.String())
	rr = doRequest(server, http.MethodGet, "/v1/sellers/alice/listings", "", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var listings listinghttp.ListSellerListingsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &listings))
	require.Empty(t, listings.ListingIDs)
}

func TestDomainErrorsMapToStatusCodes(t *testing.T) {
	server, module := newTestServer()
	module.Custody.RegisterAsset("nft_1", "alice")
	module.Ledger.Credit("bob", "SUI", 10)

	rr := doRequest(server, http.MethodPut, "/v1/admin/fee-recipient", "mallory", `{"fee_recipient":"mallory","fee_rate_percent":100}`)
	require.Equal(t, http.StatusForbidden, rr.Code, rr.Body.String())

	rr = doRequest(server, http.MethodPost, "/v1/listings", "alice", `{"asset":"nft_1","price":999,"currency":"SUI"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var listed listinghttp.ListAssetResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &listed))

	rr = doRequest(server, http.MethodPost, "/v1/listings/"+listed.ListingID+"/purchase", "bob", `{"admin_config_key":"admin","currency":"SUI"}`)
	require.Equal(t, http.StatusUnauthorized, rr.Code, rr.Body.String())

	rr = doRequest(server, http.MethodPut, "/v1/admin/fee-recipient", "admin", `{"fee_recipient":"treasury","fee_rate_percent":3}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = doRequest(server, http.MethodPost, "/v1/listings/"+listed.ListingID+"/purchase", "bob", `{"admin_config_key":"admin","currency":"SUI"}`)
	require.Equal(t, http.StatusPaymentRequired, rr.Code, rr.Body.String())

	rr = doRequest(server, http.MethodPut, "/v1/listings/"+listed.ListingID+"/price", "bob", `{"price":1,"currency":"SUI"}`)
	require.Equal(t, http.StatusForbidden, rr.Code, rr.Body.String())

	rr = doRequest(server, http.MethodPost, "/v1/listings/ctr_missing/unlist", "alice", `{"currency":"SUI"}`)
	require.Equal(t, http.StatusNotFound, rr.Code, rr.Body.String())

	rr = doRequest(server, http.MethodPost, "/v1/listings", "alice", `{"asset":"nft_2","price":10,"currency":""}`)
	require.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())

	rr = doRequest(server, http.MethodGet, "/v1/listings/"+listed.ListingID+"/price", "", "")
	require.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
}

func TestHealthReflectsReadinessCheck(t *testing.T) {
	server, _ := newTestServer()
	rr := doRequest(server, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, rr.Code)

	server.SetReadinessCheck(func(context.Context) error { return errors.New("db down") })
	rr = doRequest(server, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestDevProvisioningRoutesSeedASale(t *testing.T) {
	server, _ := newTestServer()

	rr := doRequest(server, http.MethodPost, "/v1/dev/assets", "", `{"asset":"nft_9","owner":"alice"}`)
	require.Equal(t, http.StatusNotFound, rr.Code, "routes stay unmounted until enabled")

	require.NoError(t, server.EnableDevProvisioning())
	rr = doRequest(server, http.MethodPost, "/v1/dev/assets", "", `{"asset":"nft_9","owner":"alice"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	rr = doRequest(server, http.MethodPost, "/v1/dev/balances", "", `{"account":"bob","currency":"SUI","amount":100}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var credited listinghttp.CreditBalanceResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &credited))
	require.Equal(t, uint64(100), credited.Credited)
	rr = doRequest(server, http.MethodPost, "/v1/dev/balances", "", `{"account":"","currency":"SUI","amount":1}`)
	require.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())

	rr = doRequest(server, http.MethodPost, "/v1/listings", "alice", `{"asset":"nft_9","price":100,"currency":"SUI"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var listed listinghttp.ListAssetResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &listed))

	rr = doRequest(server, http.MethodPut, "/v1/admin/fee-recipient", "admin", `{"fee_recipient":"treasury","fee_rate_percent":0}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	rr = doRequest(server, http.MethodPost, "/v1/listings/"+listed.ListingID+"/purchase", "bob", `{"admin_config_key":"admin","currency":"SUI"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func TestEnableDevProvisioningRequiresBackend(t *testing.T) {
	module := listingengine.NewInMemoryModule("admin", nil, slog.Default())
	module.Provisioning = nil
	server := New(module, nil, slog.Default(), ":0")
	require.Error(t, server.EnableDevProvisioning())
}
