package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "AcadGrid Timetable API",
        "description": "Constraint based timetable generation, conflict analysis, and what-if simulation",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "auth", "description": "Token issuance"},
        {"name": "timetable", "description": "Generation runs and exports"},
        {"name": "conflicts", "description": "Conflict detection and resolutions"},
        {"name": "simulation", "description": "What-if scenario analysis"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Authenticate",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/timetable/generate": {
            "post": {
                "tags": ["timetable"],
                "summary": "Generate a timetable synchronously",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateTimetableRequest"}}
                ],
                "responses": {
                    "201": {"description": "Completed run", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error"},
                    "404": {"description": "Unknown program or semester"}
                }
            }
        },
        "/timetable/generate/async": {
            "post": {
                "tags": ["timetable"],
                "summary": "Queue a generation run",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateTimetableRequest"}}
                ],
                "responses": {
                    "202": {"description": "Run queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetable/runs/{id}": {
            "get": {
                "tags": ["timetable"],
                "summary": "Fetch a run with progress and result",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Run not found or expired"}
                }
            }
        },
        "/timetable/runs/{id}/resolutions": {
            "post": {
                "tags": ["conflicts"],
                "summary": "Suggest resolutions for a completed run",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Conflict report with resolutions", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Run has not completed"}
                }
            }
        },
        "/timetable/runs/{id}/export": {
            "get": {
                "tags": ["timetable"],
                "summary": "Export a run as CSV or PDF",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File download"},
                    "412": {"description": "Run has not completed"}
                }
            }
        },
        "/timetable/conflicts/detect": {
            "post": {
                "tags": ["conflicts"],
                "summary": "Detect conflicts in a supplied schedule",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/DetectConflictsRequest"}}
                ],
                "responses": {
                    "200": {"description": "Conflict report", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetable/simulate": {
            "post": {
                "tags": ["simulation"],
                "summary": "Run a what-if scenario against a completed run",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SimulateRequest"}}
                ],
                "responses": {
                    "200": {"description": "Simulation report", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "Baseline run has not completed"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "GenerateTimetableRequest": {
            "type": "object",
            "required": ["program_id", "semester"],
            "properties": {
                "program_id": {"type": "string"},
                "semester": {"type": "integer"},
                "optimization_level": {"type": "string", "enum": ["fast", "balanced", "thorough"]},
                "seed": {"type": "integer"},
                "constraints": {"type": "object"},
                "weights": {"type": "object"},
                "capacity_overflow_percent": {"type": "integer"}
            }
        },
        "DetectConflictsRequest": {
            "type": "object",
            "required": ["program_id", "semester", "assignments"],
            "properties": {
                "program_id": {"type": "string"},
                "semester": {"type": "integer"},
                "assignments": {"type": "array", "items": {"$ref": "#/definitions/Assignment"}},
                "suggest": {"type": "boolean"}
            }
        },
        "SimulateRequest": {
            "type": "object",
            "required": ["run_id"],
            "properties": {
                "run_id": {"type": "string"},
                "faculty_leave": {"type": "array", "items": {"type": "object"}},
                "rooms_out_of_service": {"type": "array", "items": {"type": "string"}},
                "add_courses": {"type": "array", "items": {"type": "object"}},
                "remove_courses": {"type": "array", "items": {"type": "string"}},
                "optimization_level": {"type": "string", "enum": ["fast", "balanced", "thorough"]}
            }
        },
        "Assignment": {
            "type": "object",
            "properties": {
                "course_id": {"type": "string"},
                "faculty_id": {"type": "string"},
                "room_id": {"type": "string"},
                "time_slot_id": {"type": "string"},
                "enrolled": {"type": "integer"}
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
