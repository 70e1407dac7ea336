package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Untapped bridge API",
        "description": "Local bridge between the timetable web view and WebUntis",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Session", "description": "Login and logout against the timetable service"},
        {"name": "Reference", "description": "Cached departments, subjects, rooms, school years and groups"},
        {"name": "Teachers", "description": "Teacher directory and name search"},
        {"name": "Timetable", "description": "Projected timetables and exports"},
        {"name": "Config", "description": "Settings file"},
        {"name": "Status", "description": "Session and cache statistics"}
    ],
    "paths": {
        "/session": {
            "get": {
                "tags": ["Session"],
                "summary": "Current session",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Session"],
                "summary": "Log in to the timetable service",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "Logged in", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Missing credential field"},
                    "401": {"description": "Bad credentials"}
                }
            },
            "delete": {
                "tags": ["Session"],
                "summary": "Log out and drop cached data",
                "responses": {"204": {"description": "Logged out"}}
            }
        },
        "/schoolyears": {
            "get": {
                "tags": ["Reference"],
                "summary": "List school years",
                "parameters": [{"name": "reset", "in": "query", "type": "boolean"}],
                "responses": {"200": {"description": "OK"}, "401": {"description": "No session"}}
            }
        },
        "/subjects": {
            "get": {
                "tags": ["Reference"],
                "summary": "List subjects, optionally filtered by a glob on the display name",
                "parameters": [
                    {"name": "pattern", "in": "query", "type": "string"},
                    {"name": "reset", "in": "query", "type": "boolean"}
                ],
                "responses": {"200": {"description": "OK"}, "401": {"description": "No session"}}
            }
        },
        "/rooms": {
            "get": {
                "tags": ["Reference"],
                "summary": "List rooms",
                "parameters": [
                    {"name": "pattern", "in": "query", "type": "string"},
                    {"name": "reset", "in": "query", "type": "boolean"}
                ],
                "responses": {"200": {"description": "OK"}, "401": {"description": "No session"}}
            }
        },
        "/departments": {
            "get": {
                "tags": ["Reference"],
                "summary": "List departments",
                "parameters": [{"name": "reset", "in": "query", "type": "boolean"}],
                "responses": {"200": {"description": "OK"}, "401": {"description": "No session"}}
            }
        },
        "/groups": {
            "get": {
                "tags": ["Reference"],
                "summary": "List groups, optionally within one department",
                "parameters": [
                    {"name": "pattern", "in": "query", "type": "string"},
                    {"name": "department", "in": "query", "type": "string", "description": "Department id or name"},
                    {"name": "reset", "in": "query", "type": "boolean"}
                ],
                "responses": {"200": {"description": "OK"}, "401": {"description": "No session"}}
            }
        },
        "/teachers": {
            "get": {
                "tags": ["Teachers"],
                "summary": "List known teachers",
                "description": "Loads the full teacher list when the account may list teachers. Otherwise only teachers found by search are returned.",
                "parameters": [{"name": "reset", "in": "query", "type": "boolean"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/teachers/{id}": {
            "get": {
                "tags": ["Teachers"],
                "summary": "Get a teacher by id",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not known"}}
            }
        },
        "/teachers/search": {
            "post": {
                "tags": ["Teachers"],
                "summary": "Find a teacher by name",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TeacherSearchRequest"}}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Neither surname nor name given"}}
            }
        },
        "/timetable": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Get a timetable",
                "parameters": [
                    {"name": "kind", "in": "query", "required": true, "type": "string", "enum": ["groups", "teachers", "subjects", "rooms"]},
                    {"name": "id", "in": "query", "required": true, "type": "integer"},
                    {"name": "start", "in": "query", "required": true, "type": "string", "format": "date"},
                    {"name": "end", "in": "query", "required": true, "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid parameters"},
                    "401": {"description": "No session"}
                }
            }
        },
        "/timetable/export": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Export a timetable as CSV or PDF",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "kind", "in": "query", "required": true, "type": "string"},
                    {"name": "id", "in": "query", "required": true, "type": "integer"},
                    {"name": "start", "in": "query", "required": true, "type": "string", "format": "date"},
                    {"name": "end", "in": "query", "required": true, "type": "string", "format": "date"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]},
                    {"name": "save", "in": "query", "type": "boolean"}
                ],
                "responses": {"200": {"description": "File"}, "201": {"description": "Saved to the export directory"}}
            }
        },
        "/config/{key}": {
            "get": {
                "tags": ["Config"],
                "summary": "Get a setting",
                "parameters": [{"name": "key", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not set"}}
            },
            "put": {
                "tags": ["Config"],
                "summary": "Set a setting",
                "parameters": [
                    {"name": "key", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SettingRequest"}}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Read-only key"}}
            }
        },
        "/status": {
            "get": {
                "tags": ["Status"],
                "summary": "Session and cache statistics",
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "server": {"type": "string"},
                "school": {"type": "string"},
                "user": {"type": "string"},
                "password": {"type": "string"},
                "reset": {"type": "boolean"}
            }
        },
        "TeacherSearchRequest": {
            "type": "object",
            "properties": {
                "surname": {"type": "string"},
                "forename": {"type": "string"},
                "name": {"type": "string"},
                "try_reversed": {"type": "boolean"}
            }
        },
        "SettingRequest": {
            "type": "object",
            "properties": {
                "value": {}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
