// Package docs registers the OpenAPI description of the admin API with
// swag so gin-swagger can serve it. Keep in sync with the handler godoc
// annotations (swag init -g cmd/relaybot/main.go regenerates it).
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
  "swagger": "2.0",
  "info": {
    "title": "{{.Title}}",
    "description": "{{escape .Description}}",
    "version": "{{.Version}}"
  },
  "host": "{{.Host}}",
  "basePath": "{{.BasePath}}",
  "schemes": {{ marshal .Schemes }},
  "securityDefinitions": {
    "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
  },
  "security": [{"BearerAuth": []}],
  "paths": {
    "/communities": {
      "get": {
        "operationId": "listCommunities",
        "tags": ["Communities"],
        "summary": "List communities (paginated)",
        "produces": ["application/json"],
        "parameters": [
          {"name": "If-None-Match", "in": "header", "type": "string"},
          {"name": "page", "in": "query", "type": "integer", "minimum": 1, "default": 1},
          {"name": "page_size", "in": "query", "type": "integer", "minimum": 1, "maximum": 100, "default": 20}
        ],
        "responses": {
          "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListCommunitiesResponse"}},
          "304": {"description": "Not Modified"},
          "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
          "500": {"description": "Internal error", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
        }
      }
    },
    "/communities/{id}": {
      "get": {
        "operationId": "getCommunity",
        "tags": ["Communities"],
        "summary": "Get a community's permission config",
        "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
        "responses": {
          "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.CommunityConfig"}},
          "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
          "404": {"description": "No config set", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
        }
      }
    },
    "/communities/{id}/relay-channel": {
      "put": {
        "operationId": "setRelayChannel",
        "tags": ["Communities"],
        "summary": "Set the relay channel",
        "parameters": [
          {"name": "id", "in": "path", "required": true, "type": "string"},
          {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.SetRelayChannelRequest"}}
        ],
        "responses": {
          "204": {"description": "No Content"},
          "400": {"description": "Bad request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
          "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
        }
      }
    },
    "/communities/{id}/admins": {
      "post": {
        "operationId": "addAdmin",
        "tags": ["Communities"],
        "summary": "List a relay admin",
        "parameters": [
          {"name": "id", "in": "path", "required": true, "type": "string"},
          {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.MemberRequest"}}
        ],
        "responses": {
          "204": {"description": "No Content"},
          "409": {"description": "Already listed", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
        }
      }
    },
    "/communities/{id}/admins/{user_id}": {
      "delete": {
        "operationId": "removeAdmin",
        "tags": ["Communities"],
        "summary": "Unlist a relay admin",
        "parameters": [
          {"name": "id", "in": "path", "required": true, "type": "string"},
          {"name": "user_id", "in": "path", "required": true, "type": "string"}
        ],
        "responses": {
          "204": {"description": "No Content"},
          "404": {"description": "Not listed", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
        }
      }
    },
    "/communities/{id}/staff": {
      "post": {
        "operationId": "addStaff",
        "tags": ["Communities"],
        "summary": "List a relay staff member",
        "parameters": [
          {"name": "id", "in": "path", "required": true, "type": "string"},
          {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.MemberRequest"}}
        ],
        "responses": {
          "204": {"description": "No Content"},
          "409": {"description": "Already listed", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
        }
      }
    },
    "/communities/{id}/staff/{user_id}": {
      "delete": {
        "operationId": "removeStaff",
        "tags": ["Communities"],
        "summary": "Unlist a relay staff member",
        "parameters": [
          {"name": "id", "in": "path", "required": true, "type": "string"},
          {"name": "user_id", "in": "path", "required": true, "type": "string"}
        ],
        "responses": {
          "204": {"description": "No Content"},
          "404": {"description": "Not listed", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
        }
      }
    },
    "/status": {
      "get": {
        "operationId": "relayStatus",
        "tags": ["Status"],
        "summary": "Relay counters",
        "responses": {
          "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.StatusResponse"}}
        }
      }
    }
  },
  "definitions": {
    "domain.Community": {
      "type": "object",
      "properties": {
        "id": {"type": "string"},
        "relay_channel_id": {"type": "string"},
        "created_at": {"type": "string", "format": "date-time"},
        "updated_at": {"type": "string", "format": "date-time"}
      }
    },
    "domain.CommunityConfig": {
      "type": "object",
      "properties": {
        "community_id": {"type": "string"},
        "relay_channel_id": {"type": "string"},
        "admin_ids": {"type": "array", "items": {"type": "string"}},
        "staff_ids": {"type": "array", "items": {"type": "string"}}
      }
    },
    "handlers.ErrorResponse": {
      "type": "object",
      "properties": {
        "request_id": {"type": "string"},
        "code": {"type": "string"},
        "message": {"type": "string"}
      }
    },
    "handlers.MemberRequest": {
      "type": "object",
      "required": ["user_id"],
      "properties": {"user_id": {"type": "string"}}
    },
    "handlers.SetRelayChannelRequest": {
      "type": "object",
      "required": ["channel_id"],
      "properties": {"channel_id": {"type": "string"}}
    },
    "handlers.Pagination": {
      "type": "object",
      "properties": {
        "page": {"type": "integer"},
        "page_size": {"type": "integer"},
        "total": {"type": "integer"},
        "total_pages": {"type": "integer"},
        "has_next": {"type": "boolean"}
      }
    },
    "handlers.ListCommunitiesResponse": {
      "type": "object",
      "properties": {
        "communities": {"type": "array", "items": {"$ref": "#/definitions/domain.Community"}},
        "pagination": {"$ref": "#/definitions/handlers.Pagination"}
      }
    },
    "handlers.StatusResponse": {
      "type": "object",
      "properties": {
        "anonymous_sessions": {"type": "integer"},
        "pending_onboarding": {"type": "integer"},
        "ticket_communities": {"type": "integer"},
        "open_tickets": {"type": "integer"}
      }
    }
  }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Relay Bot Admin API",
	Description:      "Community permission configuration and relay status for the support relay bot.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
