// Package swagger registers the OpenAPI document served at /swagger/doc.json.
// Regenerate with: swag init -g cmd/api/main.go -o docs/swagger
package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/dev/signin": {
            "post": {
                "description": "Starts a session for the given user. Mounted only in development.",
                "consumes": ["application/json"],
                "tags": ["auth"],
                "summary": "Start a development session",
                "parameters": [
                    {
                        "description": "User to sign in as",
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/auth.signInRequest"}
                    }
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "422": {"description": "Unprocessable Entity", "schema": {"type": "object", "additionalProperties": {}}}
                }
            }
        },
        "/signout": {
            "post": {
                "tags": ["auth"],
                "summary": "Sign out",
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/items": {
            "get": {
                "produces": ["application/json"],
                "tags": ["items"],
                "summary": "List items",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ItemListResponse"}}
                }
            },
            "post": {
                "description": "Creates an item owned by the signed-in user and assigns it a unique slug derived from its name.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["items"],
                "summary": "Create an item",
                "parameters": [
                    {
                        "description": "Item fields",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/ItemRequest"}
                    }
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ItemResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/ValidationErrorResponse"}}
                }
            }
        },
        "/items/{ref}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["items"],
                "summary": "Get an item by slug",
                "parameters": [
                    {"type": "string", "description": "Item slug", "name": "ref", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ItemResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            },
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["items"],
                "summary": "Update an item",
                "parameters": [
                    {"type": "integer", "description": "Item id", "name": "ref", "in": "path", "required": true},
                    {
                        "description": "Item fields",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/ItemRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ItemResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/ValidationErrorResponse"}}
                }
            },
            "delete": {
                "tags": ["items"],
                "summary": "Delete an item",
                "parameters": [
                    {"type": "integer", "description": "Item id", "name": "ref", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/items/{ref}/edit": {
            "get": {
                "produces": ["application/json"],
                "tags": ["items"],
                "summary": "Get item for editing",
                "parameters": [
                    {"type": "integer", "description": "Item id", "name": "ref", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ItemResponse"}},
                    "303": {"description": "Redirect to sign-in, the canonical view or the listing"}
                }
            }
        }
    },
    "definitions": {
        "ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "item not found"},
                "redirect": {"type": "string", "example": "/signin"}
            }
        },
        "ItemListResponse": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"$ref": "#/definitions/ItemResponse"}}
            }
        },
        "ItemRequest": {
            "type": "object",
            "required": ["category", "name", "price", "quantity", "sku"],
            "properties": {
                "category": {"type": "string", "maxLength": 255, "example": "Widgets"},
                "description": {"type": "string", "maxLength": 2000, "example": "A bright red widget"},
                "name": {"type": "string", "maxLength": 255, "example": "Red Widget"},
                "price": {"type": "string", "example": "9.99"},
                "quantity": {"type": "integer", "minimum": 0, "example": 5},
                "sku": {"type": "string", "maxLength": 255, "example": "RW1"}
            }
        },
        "ItemResponse": {
            "type": "object",
            "properties": {
                "added_by": {"type": "string", "example": "Alice"},
                "category": {"type": "string", "example": "Widgets"},
                "created_at": {"type": "string", "example": "2024-01-15T10:30:00Z"},
                "description": {"type": "string", "example": "A bright red widget"},
                "id": {"type": "integer", "example": 42},
                "is_owner": {"type": "boolean", "example": true},
                "name": {"type": "string", "example": "Red Widget"},
                "owner_user_id": {"type": "string", "example": "user_123"},
                "price": {"type": "string", "example": "9.99"},
                "quantity": {"type": "integer", "example": 5},
                "sku": {"type": "string", "example": "RW1"},
                "slug": {"type": "string", "example": "red-widget"}
            }
        },
        "ValidationErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "invalid item"},
                "problems": {"type": "array", "items": {"type": "string"}, "example": ["sku is required"]}
            }
        },
        "auth.signInRequest": {
            "type": "object",
            "required": ["email", "user_id"],
            "properties": {
                "email": {"type": "string"},
                "name": {"type": "string"},
                "user_id": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api",
	Schemes:          []string{"http", "https"},
	Title:            "Inventory API",
	Description:      "Authenticated inventory catalog with slug-addressed items.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
