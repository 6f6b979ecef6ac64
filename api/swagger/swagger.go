package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Biblioteca API",
        "description": "Loan requests, overdue reports and authentication for the school library.",
        "version": "1.0.0"
    },
    "basePath": "/api",
    "schemes": [
        "http",
        "https"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Authentication", "description": "Login and session introspection"},
        {"name": "Loan Requests", "description": "Physical loan workflow and overdue reports"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/LoginResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/APIError"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/APIError"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/APIError"}}
                }
            }
        },
        "/admin/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate administrator",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/LoginResponse"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/APIError"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/APIError"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current user",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "properties": {"user": {"$ref": "#/definitions/UserInfo"}}}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/APIError"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/APIError"}}
                }
            }
        },
        "/requests": {
            "get": {
                "tags": ["Loan Requests"],
                "summary": "List loan requests",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/LoanRequest"}}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/APIError"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/APIError"}}
                }
            },
            "post": {
                "tags": ["Loan Requests"],
                "summary": "Submit a loan request",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateLoanRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/LoanRequestEnvelope"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/APIError"}},
                    "404": {"description": "Book not found", "schema": {"$ref": "#/definitions/APIError"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/APIError"}}
                }
            }
        },
        "/requests/overdue": {
            "get": {
                "tags": ["Loan Requests"],
                "summary": "List overdue loans",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/LoanRequest"}}}
                }
            }
        },
        "/requests/overdue.csv": {
            "get": {
                "tags": ["Loan Requests"],
                "summary": "Export overdue loans as CSV",
                "produces": ["text/csv"],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "prestamos_vencidos.csv", "schema": {"type": "file"}}
                }
            }
        },
        "/requests/overdue.pdf": {
            "get": {
                "tags": ["Loan Requests"],
                "summary": "Export overdue loans as PDF",
                "produces": ["application/pdf"],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "prestamos_vencidos.pdf", "schema": {"type": "file"}}
                }
            }
        },
        "/requests/{id}": {
            "get": {
                "tags": ["Loan Requests"],
                "summary": "Get a loan request",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/LoanRequestEnvelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/APIError"}}
                }
            },
            "put": {
                "tags": ["Loan Requests"],
                "summary": "Change a loan request status",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TransitionLoanRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/LoanRequestEnvelope"}},
                    "400": {"description": "Unsupported status or bad due date", "schema": {"$ref": "#/definitions/APIError"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/APIError"}},
                    "409": {"description": "Transition not allowed or concurrent change", "schema": {"$ref": "#/definitions/APIError"}}
                }
            }
        }
    },
    "definitions": {
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "error": {"type": "string"}
            }
        },
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "UserInfo": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "nombre": {"type": "string"},
                "rut": {"type": "string"},
                "email": {"type": "string"},
                "role": {"type": "string"},
                "roles": {"type": "array", "items": {"type": "string"}},
                "last_login": {"type": "string", "format": "date-time"},
                "created_at": {"type": "string", "format": "date-time"}
            }
        },
        "LoginResponse": {
            "type": "object",
            "properties": {
                "token": {"type": "string"},
                "user": {"$ref": "#/definitions/UserInfo"}
            }
        },
        "CreateLoanRequest": {
            "type": "object",
            "properties": {
                "bookId": {"type": "string", "description": "number or numeric string; libroId and book_id are accepted too"},
                "bookTitle": {"type": "string"},
                "requesterName": {"type": "string"},
                "requesterEmail": {"type": "string"},
                "requesterRut": {"type": "string"},
                "requesterPhone": {"type": "string"},
                "requesterAddress": {"type": "string"},
                "requesterIdPhoto": {"type": "string"},
                "nombre": {"type": "string"},
                "apellido": {"type": "string"},
                "email": {"type": "string"},
                "rut": {"type": "string"},
                "celular": {"type": "string"},
                "direccion": {"type": "string"},
                "fotoId": {"type": "string"}
            }
        },
        "TransitionLoanRequest": {
            "type": "object",
            "required": ["status"],
            "properties": {
                "status": {"type": "string", "enum": ["pendiente", "aprobado", "recogido", "devuelto", "rechazado"]},
                "due_date": {"type": "string", "format": "date"}
            }
        },
        "LoanRequest": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "book_id": {"type": "integer"},
                "requester_name": {"type": "string"},
                "requester_email": {"type": "string"},
                "requester_rut": {"type": "string"},
                "requester_phone": {"type": "string"},
                "requester_address": {"type": "string"},
                "requester_id_photo": {"type": "string"},
                "book_title": {"type": "string"},
                "request_date": {"type": "string", "format": "date-time"},
                "status": {"type": "string"},
                "due_date": {"type": "string", "format": "date"},
                "approved_at": {"type": "string", "format": "date-time"},
                "picked_at": {"type": "string", "format": "date-time"},
                "returned_at": {"type": "string", "format": "date-time"},
                "updated_at": {"type": "string", "format": "date-time"}
            }
        },
        "LoanRequestEnvelope": {
            "type": "object",
            "properties": {
                "ok": {"type": "boolean"},
                "request": {"$ref": "#/definitions/LoanRequest"}
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
