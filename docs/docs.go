// Package docs registers the OpenAPI document served in development
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
        "/auth/logout": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["Authentication"], "summary": "Logout", "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}}
        },
        "/health": {
            "get": {"tags": ["Health"], "summary": "Health check", "responses": {"200": {"description": "OK"}}}
        },
        "/dashboard/stats": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Dashboard"], "summary": "Dashboard statistics", "responses": {"200": {"description": "OK"}}}
        },
        "/profile": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Profile"], "summary": "Get profile", "responses": {"200": {"description": "OK"}}},
            "put": {"security": [{"BearerAuth": []}], "tags": ["Profile"], "summary": "Update profile", "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}
        },
        "/campaigns": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Campaigns"], "summary": "List campaigns", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["Campaigns"], "summary": "Create campaign", "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}}}
        },
        "/campaigns/{id}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Campaigns"], "summary": "Get campaign", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}},
            "put": {"security": [{"BearerAuth": []}], "tags": ["Campaigns"], "summary": "Update campaign", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["Campaigns"], "summary": "Delete campaign", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        },
        "/campaigns/{id}/send": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["Campaigns"], "summary": "Send campaign", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "409": {"description": "Conflict"}, "500": {"description": "Internal Server Error"}}}
        },
        "/campaigns/{id}/pause": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["Campaigns"], "summary": "Pause campaign", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/campaigns/{id}/stats": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Campaigns"], "summary": "Campaign statistics", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/campaigns/{id}/leads/{leadId}/reply": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["Campaigns"], "summary": "Reply to a lead through the provider", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}, {"type": "string", "name": "leadId", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/leads": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Leads"], "summary": "List leads", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["Leads"], "summary": "Create lead", "responses": {"201": {"description": "Created"}, "409": {"description": "Conflict"}}}
        },
        "/leads/{id}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Leads"], "summary": "Get lead", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}},
            "put": {"security": [{"BearerAuth": []}], "tags": ["Leads"], "summary": "Update lead", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}},
            "delete": {"security": [{"BearerAuth": []}], "tags": ["Leads"], "summary": "Delete lead", "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/leads/import": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["Leads"], "summary": "Import leads", "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}
        },
        "/leads/import/xlsx": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["Leads"], "summary": "Import leads from a spreadsheet", "consumes": ["multipart/form-data"], "parameters": [{"type": "file", "name": "file", "in": "formData", "required": true}], "responses": {"200": {"description": "OK"}}}
        },
        "/leads/export": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["Leads"], "summary": "Export leads as a spreadsheet", "produces": ["application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"], "responses": {"200": {"description": "OK"}}}
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Orochi Outreach API",
	Description:      "Lead management and email outreach campaigns.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
