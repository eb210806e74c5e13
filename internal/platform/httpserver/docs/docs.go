// Package docs registers the OpenAPI document served under /swagger/.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/v1/admin/fee-recipient": {
            "put": {
                "description": "Administrator only. Upserts the fee config keyed by the administrator account.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["listing-engine"],
                "summary": "Register the marketplace fee configuration",
                "parameters": [
                    {"type": "string", "description": "Authenticated caller account", "name": "X-Account-Id", "in": "header", "required": true},
                    {"description": "Fee configuration", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/httptransport.SetFeeRecipientRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httptransport.SetFeeRecipientResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httptransport.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/httptransport.ErrorResponse"}}
                }
            }
        },
        "/v1/dev/assets": {
            "post": {
                "description": "Mounted only when DEV_PROVISIONING_ROUTES is enabled.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["dev-provisioning"],
                "summary": "Register an asset with custody (development only)",
                "parameters": [
                    {"description": "Asset and owner", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/httptransport.RegisterAssetRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/httptransport.RegisterAssetResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httptransport.ErrorResponse"}}
                }
            }
        },
        "/v1/dev/balances": {
            "post": {
                "description": "Mounted only when DEV_PROVISIONING_ROUTES is enabled.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["dev-provisioning"],
                "summary": "Credit an account balance (development only)",
                "parameters": [
                    {"description": "Account, currency and amount", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/httptransport.CreditBalanceRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httptransport.CreditBalanceResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httptransport.ErrorResponse"}}
                }
            }
        },
        "/v1/listings": {
            "post": {
                "description": "Moves the caller's asset into marketplace custody at a fixed price.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["listing-engine"],
                "summary": "List an asset for sale",
                "parameters": [
                    {"type": "string", "description": "Authenticated caller account", "name": "X-Account-Id", "in": "header", "required": true},
                    {"description": "Listing request", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/httptransport.ListAssetRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/httptransport.ListAssetResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httptransport.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/httptransport.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httptransport.ErrorResponse"}}
                }
            }
        },
        "/v1/listings/{listing_id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["listing-engine"],
                "summary": "Get a listing",
                "parameters": [
                    {"type": "string", "description": "Listing id", "name": "listing_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httptransport.GetListingResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httptransport.ErrorResponse"}}
                }
            }
        },
        "/v1/listings/{listing_id}/price": {
            "get": {
                "produces": ["application/json"],
                "tags": ["listing-engine"],
                "summary": "Get a listing price",
                "parameters": [
                    {"type": "string", "description": "Listing id", "name": "listing_id", "in": "path", "required": true},
                    {"type": "string", "description": "Currency tag", "name": "currency", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httptransport.GetPriceResponse"}}
                }
            },
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["listing-engine"],
                "summary": "Reprice a listing",
                "parameters": [
                    {"type": "string", "description": "Authenticated caller account", "name": "X-Account-Id", "in": "header", "required": true},
                    {"type": "string", "description": "Listing id", "name": "listing_id", "in": "path", "required": true},
                    {"description": "New price", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/httptransport.UpdatePriceRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httptransport.UpdatePriceResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/httptransport.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httptransport.ErrorResponse"}}
                }
            }
        },
        "/v1/listings/{listing_id}/purchase": {
            "post": {
                "description": "Pays the listed price split between seller and fee recipient and releases the asset to the caller.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["listing-engine"],
                "summary": "Purchase a listing",
                "parameters": [
                    {"type": "string", "description": "Authenticated caller account", "name": "X-Account-Id", "in": "header", "required": true},
                    {"type": "string", "description": "Listing id", "name": "listing_id", "in": "path", "required": true},
                    {"description": "Purchase request", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/httptransport.PurchaseListingRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httptransport.PurchaseListingResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httptransport.ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/httptransport.ErrorResponse"}},
                    "402": {"description": "Payment Required", "schema": {"$ref": "#/definitions/httptransport.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httptransport.ErrorResponse"}}
                }
            }
        },
        "/v1/listings/{listing_id}/unlist": {
            "post": {
                "description": "Returns the asset to its seller and removes the listing.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["listing-engine"],
                "summary": "Cancel a listing",
                "parameters": [
                    {"type": "string", "description": "Authenticated caller account", "name": "X-Account-Id", "in": "header", "required": true},
                    {"type": "string", "description": "Listing id", "name": "listing_id", "in": "path", "required": true},
                    {"description": "Unlist request", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/httptransport.UnlistAssetRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httptransport.UnlistAssetResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/httptransport.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httptransport.ErrorResponse"}}
                }
            }
        },
        "/v1/sellers": {
            "get": {
                "produces": ["application/json"],
                "tags": ["listing-engine"],
                "summary": "List sellers with active listings",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httptransport.ListSellersResponse"}}
                }
            }
        },
        "/v1/sellers/{seller}/listings": {
            "get": {
                "produces": ["application/json"],
                "tags": ["listing-engine"],
                "summary": "List a seller's active listings",
                "parameters": [
                    {"type": "string", "description": "Seller account", "name": "seller", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httptransport.ListSellerListingsResponse"}}
                }
            }
        }
    },
    "definitions": {
        "httptransport.CreditBalanceRequest": {
            "type": "object",
            "properties": {"account": {"type": "string"}, "amount": {"type": "integer"}, "currency": {"type": "string"}}
        },
        "httptransport.CreditBalanceResponse": {
            "type": "object",
            "properties": {"account": {"type": "string"}, "credited": {"type": "integer"}, "currency": {"type": "string"}}
        },
        "httptransport.ErrorResponse": {
            "type": "object",
            "properties": {"code": {"type": "string"}, "message": {"type": "string"}}
        },
        "httptransport.GetListingResponse": {
            "type": "object",
            "properties": {"asset": {"type": "string"}, "listing_id": {"type": "string"}, "seller": {"type": "string"}}
        },
        "httptransport.GetPriceResponse": {
            "type": "object",
            "properties": {"currency": {"type": "string"}, "found": {"type": "boolean"}, "listing_id": {"type": "string"}, "price": {"type": "integer"}}
        },
        "httptransport.ListAssetRequest": {
            "type": "object",
            "properties": {"asset": {"type": "string"}, "currency": {"type": "string"}, "price": {"type": "integer"}}
        },
        "httptransport.ListAssetResponse": {
            "type": "object",
            "properties": {"asset": {"type": "string"}, "currency": {"type": "string"}, "listing_id": {"type": "string"}, "price": {"type": "integer"}, "seller": {"type": "string"}}
        },
        "httptransport.ListSellerListingsResponse": {
            "type": "object",
            "properties": {"listing_ids": {"type": "array", "items": {"type": "string"}}, "seller": {"type": "string"}}
        },
        "httptransport.ListSellersResponse": {
            "type": "object",
            "properties": {"sellers": {"type": "array", "items": {"type": "string"}}}
        },
        "httptransport.PurchaseListingRequest": {
            "type": "object",
            "properties": {"admin_config_key": {"type": "string"}, "currency": {"type": "string"}}
        },
        "httptransport.PurchaseListingResponse": {
            "type": "object",
            "properties": {"asset": {"type": "string"}, "fee": {"type": "integer"}, "fee_recipient": {"type": "string"}, "listing_id": {"type": "string"}, "price": {"type": "integer"}, "seller": {"type": "string"}, "seller_amount": {"type": "integer"}}
        },
        "httptransport.RegisterAssetRequest": {
            "type": "object",
            "properties": {"asset": {"type": "string"}, "owner": {"type": "string"}}
        },
        "httptransport.RegisterAssetResponse": {
            "type": "object",
            "properties": {"asset": {"type": "string"}, "owner": {"type": "string"}}
        },
        "httptransport.SetFeeRecipientRequest": {
            "type": "object",
            "properties": {"fee_rate_percent": {"type": "integer"}, "fee_recipient": {"type": "string"}}
        },
        "httptransport.SetFeeRecipientResponse": {
            "type": "object",
            "properties": {"admin_config_key": {"type": "string"}, "fee_rate_percent": {"type": "integer"}, "fee_recipient": {"type": "string"}}
        },
        "httptransport.UnlistAssetRequest": {
            "type": "object",
            "properties": {"currency": {"type": "string"}}
        },
        "httptransport.UnlistAssetResponse": {
            "type": "object",
            "properties": {"asset": {"type": "string"}, "listing_id": {"type": "string"}, "seller": {"type": "string"}}
        },
        "httptransport.UpdatePriceRequest": {
            "type": "object",
            "properties": {"currency": {"type": "string"}, "price": {"type": "integer"}}
        },
        "httptransport.UpdatePriceResponse": {
            "type": "object",
            "properties": {"currency": {"type": "string"}, "listing_id": {"type": "string"}, "previous_price": {"type": "integer"}, "price": {"type": "integer"}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Bazaar Listing Engine API",
	Description:      "Fixed-price listing and settlement for uniquely owned assets.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
