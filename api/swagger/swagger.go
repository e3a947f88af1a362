package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Campground Approvals API",
        "description": "Dual-control approval engine for refunds, payouts and configuration changes",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http",
        "https"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [
        {"BearerAuth": []}
    ],
    "tags": [
        {"name": "Approvals", "description": "Approval requests and the approver queue"},
        {"name": "Approval Policies", "description": "Policies deciding how many approvers an action needs"}
    ],
    "paths": {
        "/approvals": {
            "get": {
                "tags": ["Approvals"],
                "summary": "List the approval queue",
                "parameters": [
                    {"name": "status", "in": "query", "type": "string", "enum": ["all", "open", "pending", "pending_second", "approved", "rejected"]},
                    {"name": "type", "in": "query", "type": "string"},
                    {"name": "q", "in": "query", "type": "string"},
                    {"name": "sort", "in": "query", "type": "string", "enum": ["urgent", "newest", "oldest"]},
                    {"name": "urgentOnly", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer"},
                    {"name": "pendingSecondCounts", "in": "query", "type": "boolean"},
                    {"name": "policyThresholdCounts", "in": "query", "type": "boolean"},
                    {"name": "ageThresholdHours", "in": "query", "type": "number"},
                    {"name": "customAmountThreshold", "in": "query", "type": "number"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Approvals"],
                "summary": "Submit an action for approval",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitApprovalRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/approvals/export": {
            "get": {
                "tags": ["Approvals"],
                "summary": "Export the filtered queue",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "type", "in": "query", "type": "string"},
                    {"name": "q", "in": "query", "type": "string"},
                    {"name": "sort", "in": "query", "type": "string"},
                    {"name": "urgentOnly", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "Attachment", "schema": {"type": "file"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/approvals/{id}": {
            "get": {
                "tags": ["Approvals"],
                "summary": "Get an approval request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/approvals/{id}/approve": {
            "post": {
                "tags": ["Approvals"],
                "summary": "Approve a request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/approvals/{id}/reject": {
            "post": {
                "tags": ["Approvals"],
                "summary": "Reject a request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RejectApprovalRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/approval-policies": {
            "get": {
                "tags": ["Approval Policies"],
                "summary": "List policies",
                "parameters": [
                    {"name": "scopeId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Approval Policies"],
                "summary": "Create policy",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateApprovalPolicyRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/approval-policies/match": {
            "get": {
                "tags": ["Approval Policies"],
                "summary": "Preview the policy governing an action",
                "parameters": [
                    {"name": "type", "in": "query", "required": true, "type": "string"},
                    {"name": "amountCents", "in": "query", "type": "integer"},
                    {"name": "currency", "in": "query", "type": "string"},
                    {"name": "scopeId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/approval-policies/{id}": {
            "patch": {
                "tags": ["Approval Policies"],
                "summary": "Update policy",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateApprovalPolicyRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Approval Policies"],
                "summary": "Delete policy",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "409": {"description": "Policy still governs open requests", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "SubmitApprovalRequest": {
            "type": "object",
            "required": ["type", "currency"],
            "properties": {
                "type": {"type": "string", "example": "refund"},
                "amountCents": {"type": "integer", "example": 25000},
                "currency": {"type": "string", "example": "USD"},
                "scopeId": {"type": "string"},
                "reason": {"type": "string"}
            }
        },
        "RejectApprovalRequest": {
            "type": "object",
            "required": ["reason"],
            "properties": {
                "reason": {"type": "string"}
            }
        },
        "ApprovalDecision": {
            "type": "object",
            "properties": {
                "approver": {"type": "string"},
                "at": {"type": "string", "format": "date-time"},
                "decision": {"type": "string", "enum": ["approve", "reject"]},
                "reason": {"type": "string"}
            }
        },
        "ApprovalRequest": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "type": {"type": "string"},
                "requester": {"type": "string"},
                "reason": {"type": "string"},
                "amountCents": {"type": "integer"},
                "currency": {"type": "string"},
                "scopeId": {"type": "string"},
                "policyId": {"type": "string"},
                "policyName": {"type": "string"},
                "approverRoles": {"type": "array", "items": {"type": "string"}},
                "requiredApprovals": {"type": "integer"},
                "status": {"type": "string", "enum": ["pending", "pending_second", "approved", "rejected"]},
                "approvals": {"type": "array", "items": {"$ref": "#/definitions/ApprovalDecision"}},
                "rejection": {"$ref": "#/definitions/ApprovalDecision"},
                "version": {"type": "integer"},
                "urgent": {"type": "boolean"},
                "createdAt": {"type": "string", "format": "date-time"},
                "updatedAt": {"type": "string", "format": "date-time"},
                "resolvedAt": {"type": "string", "format": "date-time"}
            }
        },
        "CreateApprovalPolicyRequest": {
            "type": "object",
            "required": ["name", "appliesTo", "currency", "approversNeeded", "approverRoles"],
            "properties": {
                "name": {"type": "string"},
                "appliesTo": {"type": "array", "items": {"type": "string"}},
                "thresholdCents": {"type": "integer"},
                "currency": {"type": "string"},
                "approversNeeded": {"type": "integer", "minimum": 1},
                "approverRoles": {"type": "array", "items": {"type": "string"}},
                "isActive": {"type": "boolean"},
                "scopeId": {"type": "string"}
            }
        },
        "UpdateApprovalPolicyRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "appliesTo": {"type": "array", "items": {"type": "string"}},
                "thresholdCents": {"type": "integer"},
                "clearThreshold": {"type": "boolean"},
                "currency": {"type": "string"},
                "approversNeeded": {"type": "integer", "minimum": 1},
                "approverRoles": {"type": "array", "items": {"type": "string"}},
                "isActive": {"type": "boolean"}
            }
        },
        "ApprovalPolicy": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "appliesTo": {"type": "array", "items": {"type": "string"}},
                "thresholdCents": {"type": "integer"},
                "currency": {"type": "string"},
                "approversNeeded": {"type": "integer"},
                "approverRoles": {"type": "array", "items": {"type": "string"}},
                "isActive": {"type": "boolean"},
                "scopeId": {"type": "string"},
                "createdBy": {"type": "string"},
                "createdAt": {"type": "string", "format": "date-time"},
                "updatedAt": {"type": "string", "format": "date-time"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
                "pagination": {"$ref": "#/definitions/Pagination"},
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
