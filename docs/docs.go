// Package docs registers the OpenAPI document served at /swagger/doc.json.
// It follows the layout swag init writes from the handler annotations:
// swag init -g cmd/http/main.go
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
        "/api/plays": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Playback"],
                "summary": "List plays by outcome",
                "parameters": [
                    {"enum": ["play_published", "play_rejected", "play_failed"], "type": "string", "description": "Outcome", "name": "event_type", "in": "query", "required": true},
                    {"type": "string", "default": "24h", "description": "Trailing window as a duration", "name": "since", "in": "query"},
                    {"type": "integer", "default": 20, "description": "Maximum entries", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Plays", "schema": {"$ref": "#/definitions/playsEnvelope"}},
                    "400": {"description": "Invalid event_type, since or limit", "schema": {"$ref": "#/definitions/json.Envelope"}},
                    "404": {"description": "Play history disabled", "schema": {"$ref": "#/definitions/json.Envelope"}},
                    "500": {"description": "Audit store failure", "schema": {"$ref": "#/definitions/json.Envelope"}}
                }
            }
        },
        "/api/rooms/play": {
            "post": {
                "description": "Checks the room and song against the live catalogs and publishes the play to the room. The body may be base64 encoded.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Playback"],
                "summary": "Play a song in a room",
                "parameters": [
                    {"description": "Song and room", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/playback.playRequest"}}
                ],
                "responses": {
                    "200": {"description": "Song routed", "schema": {"$ref": "#/definitions/routingEnvelope"}},
                    "400": {"description": "Invalid body, empty field or nothing to play", "schema": {"$ref": "#/definitions/json.Envelope"}},
                    "404": {"description": "Unknown room or song", "schema": {"$ref": "#/definitions/json.Envelope"}},
                    "429": {"description": "Rate limited", "schema": {"$ref": "#/definitions/json.Envelope"}},
                    "500": {"description": "Broker or catalog failure", "schema": {"$ref": "#/definitions/json.Envelope"}}
                }
            }
        },
        "/api/rooms/{room}/plays": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Playback"],
                "summary": "List recent plays in a room",
                "parameters": [
                    {"type": "string", "description": "Room name", "name": "room", "in": "path", "required": true},
                    {"type": "integer", "default": 20, "description": "Maximum entries", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "Plays", "schema": {"$ref": "#/definitions/playsEnvelope"}},
                    "400": {"description": "Invalid limit", "schema": {"$ref": "#/definitions/json.Envelope"}},
                    "404": {"description": "Play history disabled", "schema": {"$ref": "#/definitions/json.Envelope"}},
                    "500": {"description": "Audit store failure", "schema": {"$ref": "#/definitions/json.Envelope"}}
                }
            }
        },
        "/api/rooms/{room}/listeners": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Listeners"],
                "summary": "Count room listeners",
                "parameters": [
                    {"type": "string", "description": "Room name", "name": "room", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "Listener count", "schema": {"$ref": "#/definitions/listenerCountEnvelope"}},
                    "400": {"description": "Empty room", "schema": {"$ref": "#/definitions/json.Envelope"}}
                }
            }
        },
        "/api/songs/search": {
            "get": {
                "description": "Exact file names match first, then labels. The term \"all\" lists the whole bucket.",
                "produces": ["application/json"],
                "tags": ["Songs"],
                "summary": "Search songs",
                "parameters": [
                    {"type": "string", "description": "File name, label or all", "name": "song", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "Playable songs", "schema": {"$ref": "#/definitions/songsEnvelope"}},
                    "400": {"description": "Empty search term", "schema": {"$ref": "#/definitions/json.Envelope"}},
                    "404": {"description": "No songs matched", "schema": {"$ref": "#/definitions/json.Envelope"}},
                    "500": {"description": "Index or object store failure", "schema": {"$ref": "#/definitions/json.Envelope"}}
                }
            }
        },
        "/api/songs/index": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Songs"],
                "summary": "Index uploaded songs",
                "parameters": [
                    {"description": "S3 bucket notification", "name": "event", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "Indexed songs", "schema": {"$ref": "#/definitions/indexEnvelope"}},
                    "400": {"description": "Invalid upload notification", "schema": {"$ref": "#/definitions/json.Envelope"}},
                    "500": {"description": "Indexing failure", "schema": {"$ref": "#/definitions/json.Envelope"}}
                }
            }
        },
        "/ws/rooms/{room}": {
            "get": {
                "description": "Upgrades to a websocket. Each routed play arrives as a JSON text frame.",
                "tags": ["Listeners"],
                "summary": "Follow a room",
                "parameters": [
                    {"type": "string", "description": "Room name", "name": "room", "in": "path", "required": true}
                ],
                "responses": {
                    "101": {"description": "Switching protocols"},
                    "400": {"description": "Empty room or not a websocket request", "schema": {"$ref": "#/definitions/json.Envelope"}}
                }
            }
        }
    },
    "definitions": {
        "json.Envelope": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "results": {}
            }
        },
        "playback.playRequest": {
            "type": "object",
            "properties": {
                "song": {"type": "string"},
                "room": {"type": "string"}
            }
        },
        "router.Routing": {
            "type": "object",
            "properties": {
                "song": {"type": "string"},
                "room": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "domain.PlayAuditLog": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "room": {"type": "string"},
                "song": {"type": "string"},
                "eventType": {"type": "string", "enum": ["play_published", "play_rejected", "play_failed"]},
                "timestamp": {"type": "string", "format": "date-time"},
                "metadata": {"type": "object", "additionalProperties": true}
            }
        },
        "domain.SongResult": {
            "type": "object",
            "properties": {
                "url": {"type": "string"},
                "search_term": {"type": "string"},
                "labels": {"type": "array", "items": {"type": "string"}}
            }
        },
        "domain.IndexRecord": {
            "type": "object",
            "properties": {
                "objectKey": {"type": "string"},
                "bucket": {"type": "string"},
                "createdTimestamp": {"type": "string"},
                "labels": {"type": "array", "items": {"type": "string"}}
            }
        },
        "domain.Song": {
            "type": "object",
            "properties": {
                "key": {"type": "string"},
                "bucket": {"type": "string"},
                "createdAt": {"type": "string", "format": "date-time"},
                "labels": {"type": "array", "items": {"type": "string"}},
                "state": {"type": "string", "enum": ["uploaded", "indexed", "queryable"]}
            }
        },
        "indexer.IndexResult": {
            "type": "object",
            "properties": {
                "record": {"$ref": "#/definitions/domain.IndexRecord"},
                "song": {"$ref": "#/definitions/domain.Song"},
                "transitions": {"type": "array", "items": {"type": "string"}}
            }
        },
        "listeners.listenerCount": {
            "type": "object",
            "properties": {
                "room": {"type": "string"},
                "listeners": {"type": "integer"}
            }
        },
        "routingEnvelope": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "results": {"$ref": "#/definitions/router.Routing"}
            }
        },
        "playsEnvelope": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "results": {"type": "array", "items": {"$ref": "#/definitions/domain.PlayAuditLog"}}
            }
        },
        "songsEnvelope": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "results": {"type": "array", "items": {"$ref": "#/definitions/domain.SongResult"}}
            }
        },
        "indexEnvelope": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "results": {"type": "array", "items": {"$ref": "#/definitions/indexer.IndexResult"}}
            }
        },
        "listenerCountEnvelope": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "results": {"$ref": "#/definitions/listeners.listenerCount"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "SingSphere Jukebox API",
	Description:      "Routes songs to voice rooms, indexes uploads and searches the catalog.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
