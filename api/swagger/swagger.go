package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "HostelHaven Outpass API",
        "description": "Outpass request lifecycle gateway for the HostelHaven hostel management system",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Outpasses", "description": "Outpass request lifecycle"},
        {"name": "Health", "description": "Service and upstream health"}
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": ["Health"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "tags": ["Health"],
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/health/upstream": {
            "get": {
                "tags": ["Health"],
                "summary": "Probe hostel-core reachability",
                "responses": {
                    "200": {"description": "Reachable"},
                    "503": {"description": "Unreachable"}
                }
            }
        },
        "/api/v1/outpasses": {
            "get": {
                "tags": ["Outpasses"],
                "summary": "List the caller's outpass history with the quota snapshot",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Outpasses"],
                "summary": "Submit a new outpass request",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/OutpassForm"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation failed"},
                    "412": {"description": "No active room allocation"},
                    "429": {"description": "Weekly quota exceeded"}
                }
            }
        },
        "/api/v1/outpasses/{id}": {
            "put": {
                "tags": ["Outpasses"],
                "summary": "Edit a pending request or resubmit a rejected one",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/OutpassForm"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Status does not allow editing"}
                }
            }
        },
        "/api/v1/outpasses/{id}/extend": {
            "post": {
                "tags": ["Outpasses"],
                "summary": "Extend an approved outpass with a new end window",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExtendOutpassForm"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Status does not allow extension"}
                }
            }
        },
        "/api/v1/outpasses/{id}/cancel": {
            "put": {
                "tags": ["Outpasses"],
                "summary": "Cancel a pending outpass",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Status does not allow cancellation"}
                }
            }
        },
        "/api/v1/outpasses/quota": {
            "get": {
                "tags": ["Outpasses"],
                "summary": "Current weekly quota snapshot",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/outpasses/eligibility": {
            "get": {
                "tags": ["Outpasses"],
                "summary": "Room-allocation eligibility gate state",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/outpasses/export": {
            "get": {
                "tags": ["Outpasses"],
                "summary": "Export the caller's outpass history",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File download"}
                }
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "definitions": {
        "OutpassForm": {
            "type": "object",
            "required": ["reason", "destination", "transportMode", "startDate", "startTime", "endDate", "endTime", "contactName", "parentConsent"],
            "properties": {
                "reason": {"type": "string", "minLength": 10, "maxLength": 500},
                "destination": {"type": "string", "minLength": 3, "maxLength": 100},
                "transportMode": {"type": "string", "enum": ["bus", "train", "car", "taxi", "auto", "walking", "other"]},
                "startDate": {"type": "string", "format": "date"},
                "startTime": {"type": "string", "example": "09:00"},
                "endDate": {"type": "string", "format": "date"},
                "endTime": {"type": "string", "example": "18:00"},
                "contactName": {"type": "string", "minLength": 3, "maxLength": 50},
                "contactPhone": {"type": "string", "minLength": 10, "maxLength": 10},
                "parentConsent": {"type": "boolean"}
            }
        },
        "ExtendOutpassForm": {
            "type": "object",
            "required": ["endDate", "endTime"],
            "properties": {
                "endDate": {"type": "string", "format": "date"},
                "endTime": {"type": "string", "example": "18:00"},
                "reason": {"type": "string"}
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
