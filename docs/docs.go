// Package docs holds the OpenAPI description served at /swagger. It is kept
// by hand in the layout swag emits, so it must be updated alongside the
// handler annotations.
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
        "/health": {
            "get": {
                "description": "Reports whether the state store is reachable and the aggregator initialized",
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}},
                    "503": {"description": "Service Unavailable", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/v1/info": {
            "get": {
                "description": "Returns the base asset and output precision",
                "produces": ["application/json"],
                "tags": ["info"],
                "summary": "Aggregator settings",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.InfoResponse"}}
                }
            }
        },
        "/v1/assets": {
            "get": {
                "description": "Returns every registered asset in registration order with its source configuration",
                "produces": ["application/json"],
                "tags": ["info"],
                "summary": "List registered assets",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/v1/assets/{asset}/breaker": {
            "get": {
                "produces": ["application/json"],
                "tags": ["info"],
                "summary": "Circuit breaker state for an asset",
                "parameters": [
                    {"type": "string", "description": "Asset as kind:code", "name": "asset", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.BreakerState"}}
                }
            }
        },
        "/v1/lastprice/{asset}": {
            "get": {
                "description": "Resolves a live upstream price through the circuit breaker, falling back to a cached price at most 300s old",
                "produces": ["application/json"],
                "tags": ["prices"],
                "summary": "Get the most recent price for an asset",
                "parameters": [
                    {"type": "string", "description": "Asset as kind:code (e.g., other:USDC, stellar:GABC...)", "name": "asset", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.PriceResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/v1/price/{asset}/{timestamp}": {
            "get": {
                "description": "Queries the upstream source's history; there is no cache fallback",
                "produces": ["application/json"],
                "tags": ["prices"],
                "summary": "Get the price of an asset at a timestamp",
                "parameters": [
                    {"type": "string", "description": "Asset as kind:code", "name": "asset", "in": "path", "required": true},
                    {"type": "integer", "description": "Unix timestamp in seconds", "name": "timestamp", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.PriceResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "501": {"description": "Not Implemented", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/v1/admin/liveprice/{asset}": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "description": "Admin-only read that never serves the cache and reports a breaker rejection as 409",
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Get a guaranteed-live price",
                "parameters": [
                    {"type": "string", "description": "Asset as kind:code", "name": "asset", "in": "path", "required": true},
                    {"type": "string", "description": "Admin address", "name": "X-Admin-Address", "in": "header", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.PriceResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/v1/admin/assets/{asset}": {
            "put": {
                "security": [{"ApiKeyAuth": []}],
                "description": "Appends a new asset to the registry or replaces the source configuration of an existing one",
                "consumes": ["application/json"],
                "tags": ["admin"],
                "summary": "Register or reconfigure an asset",
                "parameters": [
                    {"type": "string", "description": "Asset as kind:code", "name": "asset", "in": "path", "required": true},
                    {"type": "string", "description": "Admin address", "name": "X-Admin-Address", "in": "header", "required": true},
                    {"description": "Source configuration", "name": "config", "in": "body", "required": true, "schema": {"$ref": "#/definitions/domain.OracleConfig"}}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/v1/admin/assets/{asset}/block": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "description": "Every price read for a blocked asset fails with code 107",
                "tags": ["admin"],
                "summary": "Block an asset",
                "parameters": [
                    {"type": "string", "description": "Asset as kind:code", "name": "asset", "in": "path", "required": true},
                    {"type": "string", "description": "Admin address", "name": "X-Admin-Address", "in": "header", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        },
        "/v1/admin/assets/{asset}/unblock": {
            "post": {
                "security": [{"ApiKeyAuth": []}],
                "tags": ["admin"],
                "summary": "Unblock an asset",
                "parameters": [
                    {"type": "string", "description": "Asset as kind:code", "name": "asset", "in": "path", "required": true},
                    {"type": "string", "description": "Admin address", "name": "X-Admin-Address", "in": "header", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handler.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.BreakerState": {
            "type": "object",
            "properties": {
                "tripped": {"type": "boolean"},
                "until": {"type": "integer"}
            }
        },
        "domain.OracleConfig": {
            "type": "object",
            "properties": {
                "decimals": {"type": "integer"},
                "resolution": {"type": "integer"},
                "source_id": {"type": "string"}
            }
        },
        "handler.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "integer"},
                "error": {"type": "string"}
            }
        },
        "handler.InfoResponse": {
            "type": "object",
            "properties": {
                "base": {"type": "string"},
                "decimals": {"type": "integer"},
                "initialized": {"type": "boolean"}
            }
        },
        "handler.PriceResponse": {
            "type": "object",
            "properties": {
                "asset": {"type": "string"},
                "decimals": {"type": "integer"},
                "formatted": {"type": "string"},
                "price": {"type": "string"},
                "timestamp": {"type": "integer"}
            }
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {
            "type": "apiKey",
            "name": "X-API-Key",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Oracle Aggregator API",
	Description:      "Normalized, circuit-breaker-gated prices aggregated from upstream oracles.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
