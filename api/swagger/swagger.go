package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Tutoring API",
        "description": "Teacher availability and settlement ledger",
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
        {"name": "Availability", "description": "Half-hour teacher availability per date"},
        {"name": "Settlements", "description": "Teacher payout lifecycle"},
        {"name": "Observability", "description": "Probes and metrics"}
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": ["Observability"],
                "summary": "Liveness probe",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/ready": {
            "get": {
                "tags": ["Observability"],
                "summary": "Readiness probe",
                "responses": {
                    "200": {"description": "Ready", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "A dependency is unreachable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/teachers/availability": {
            "put": {
                "tags": ["Availability"],
                "summary": "Replace availability for a date",
                "description": "Full overwrite of the bookable slots (0-47). Booked slots cannot be removed.",
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/SetAvailabilityRequest"}}
                ],
                "responses": {
                    "200": {"description": "Stored", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "INVALID_DATE, SLOT_OUT_OF_RANGE or VALIDATION_ERROR", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "BOOKED_SLOT_REMOVED or CONFLICT", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/teachers/{id}/availability": {
            "get": {
                "tags": ["Availability"],
                "summary": "Get stored availability for a date",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"},
                    {"in": "query", "name": "date", "required": true, "type": "string", "format": "date"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/teachers/{id}/availability/range": {
            "get": {
                "tags": ["Availability"],
                "summary": "List stored availability between two dates",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"},
                    {"in": "query", "name": "from", "required": true, "type": "string", "format": "date"},
                    {"in": "query", "name": "to", "required": true, "type": "string", "format": "date"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/teachers/{id}/timetable": {
            "get": {
                "tags": ["Availability"],
                "summary": "Project the 48-slot timetable of a date",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"},
                    {"in": "query", "name": "date", "required": true, "type": "string", "format": "date"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/settlements": {
            "post": {
                "tags": ["Settlements"],
                "summary": "Open the settlement of a confirmed booking",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/OpenSettlementRequest"}}
                ],
                "responses": {
                    "200": {"description": "Already open", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "201": {"description": "Opened", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/settlements/{bookingId}": {
            "get": {
                "tags": ["Settlements"],
                "summary": "Get the settlement of a booking",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "bookingId", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Settlement of another teacher", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/settlements/{bookingId}/events": {
            "post": {
                "tags": ["Settlements"],
                "summary": "Apply a ledger event",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "path", "name": "bookingId", "required": true, "type": "string"},
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/SettlementEventRequest"}}
                ],
                "responses": {
                    "200": {"description": "Applied", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "INVALID_TRANSITION or CONFLICT", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "MISSING_PRICE", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/settlements/{bookingId}/price": {
            "put": {
                "tags": ["Settlements"],
                "summary": "Override the teacher unit price",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "path", "name": "bookingId", "required": true, "type": "string"},
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/SetPriceRequest"}}
                ],
                "responses": {"200": {"description": "Priced", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/settlements/payout-runs": {
            "post": {
                "tags": ["Settlements"],
                "summary": "Execute a payout run now",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Run summary", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/settlements/statement": {
            "get": {
                "tags": ["Settlements"],
                "summary": "Download settled payouts",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"in": "query", "name": "from", "required": true, "type": "string", "format": "date"},
                    {"in": "query", "name": "to", "required": true, "type": "string", "format": "date"},
                    {"in": "query", "name": "teacherId", "type": "string"},
                    {"in": "query", "name": "format", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {"200": {"description": "Statement file", "schema": {"type": "file"}}}
            }
        }
    },
    "definitions": {
        "SetAvailabilityRequest": {
            "type": "object",
            "required": ["date", "timeSlots"],
            "properties": {
                "teacherId": {"type": "string", "description": "Required for admins"},
                "date": {"type": "string", "format": "date"},
                "timeSlots": {"type": "array", "items": {"type": "integer", "minimum": 0, "maximum": 47}}
            }
        },
        "OpenSettlementRequest": {
            "type": "object",
            "required": ["bookingId"],
            "properties": {"bookingId": {"type": "string"}}
        },
        "SettlementEventRequest": {
            "type": "object",
            "required": ["event"],
            "properties": {
                "event": {"type": "string", "enum": ["classCompleted", "evidenceWindowElapsed", "reportApproved", "disputeRaised", "payoutRunExecuted", "cancelled"]},
                "note": {"type": "string", "maxLength": 500}
            }
        },
        "SetPriceRequest": {
            "type": "object",
            "required": ["teacherUnitUsd"],
            "properties": {"teacherUnitUsd": {"type": "string", "example": "25.00"}}
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "object"}
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
