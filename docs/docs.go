// Package docs holds the OpenAPI document served at /swagger/doc.json.
// Regenerate with `swag init -g cmd/server/main.go`.
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
        "/rooms": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["rooms"],
                "summary": "Create a room",
                "parameters": [
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.CreateRoomRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/model.SessionResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/apierr.Envelope"}}
                }
            }
        },
        "/rooms/{code}/join": {
            "post": {
                "tags": ["rooms"],
                "summary": "Join a room by code",
                "parameters": [
                    {"type": "string", "name": "code", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.JoinRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.SessionResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/apierr.Envelope"}}
                }
            }
        },
        "/rooms/{code}/state": {
            "get": {
                "tags": ["rooms"],
                "summary": "Room snapshot for the caller",
                "parameters": [
                    {"type": "string", "name": "code", "in": "path", "required": true},
                    {"type": "boolean", "name": "spectator", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "410": {"description": "Gone", "schema": {"$ref": "#/definitions/apierr.Envelope"}}
                }
            }
        },
        "/rooms/{code}/start": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["game"],
                "summary": "Start the game (creator only)",
                "parameters": [{"type": "string", "name": "code", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK"},
                    "412": {"description": "Precondition Failed", "schema": {"$ref": "#/definitions/apierr.Envelope"}}
                }
            }
        },
        "/rooms/{code}/vote": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["game"],
                "summary": "Vote for a participant",
                "parameters": [
                    {"type": "string", "name": "code", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.TargetRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/apierr.Envelope"}}
                }
            }
        },
        "/rooms/{code}/close": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["rooms"],
                "summary": "Close the room (creator only)",
                "parameters": [{"type": "string", "name": "code", "in": "path", "required": true}],
                "responses": {
                    "204": {"description": "No Content"},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/apierr.Envelope"}}
                }
            }
        },
        "/rooms/{code}/qr.png": {
            "get": {
                "produces": ["image/png"],
                "tags": ["rooms"],
                "summary": "QR code for the room's join link",
                "parameters": [{"type": "string", "name": "code", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/apierr.Envelope"}}
                }
            }
        }
    },
    "definitions": {
        "apierr.Body": {
            "type": "object",
            "properties": {"kind": {"type": "string"}, "message": {"type": "string"}}
        },
        "apierr.Envelope": {
            "type": "object",
            "properties": {"error": {"$ref": "#/definitions/apierr.Body"}}
        },
        "handler.CreateRoomRequest": {
            "type": "object",
            "properties": {
                "creator_name": {"type": "string"},
                "requested_impostors": {"type": "integer"},
                "requested_whitemen": {"type": "integer"},
                "requested_clowns": {"type": "integer"},
                "min_players": {"type": "integer"},
                "max_players": {"type": "integer"},
                "hint_timeout_seconds": {"type": "integer"}
            }
        },
        "handler.JoinRequest": {
            "type": "object",
            "properties": {"name": {"type": "string"}}
        },
        "handler.TargetRequest": {
            "type": "object",
            "properties": {"target_id": {"type": "string"}}
        },
        "model.SessionResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "participant_id": {"type": "string"},
                "name": {"type": "string"},
                "token": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/v1",
	Schemes:          []string{},
	Title:            "VATImposter API",
	Description:      "Rooms, roles and rounds for the impostor word game",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
