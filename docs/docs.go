// Package docs registers the storefront API document with swag.
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
        "/categories": {"get": {"tags": ["catalog"], "summary": "List categories", "responses": {"200": {"description": "OK"}}}},
        "/categories/{slug}": {"get": {"tags": ["catalog"], "summary": "Get a category", "parameters": [{"name": "slug", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/products": {"get": {"tags": ["catalog"], "summary": "List products", "parameters": [
            {"name": "category", "in": "query", "type": "string"},
            {"name": "search", "in": "query", "type": "string"},
            {"name": "trending", "in": "query", "type": "boolean"},
            {"name": "bestseller", "in": "query", "type": "boolean"},
            {"name": "skin_type", "in": "query", "type": "string"}
        ], "responses": {"200": {"description": "OK"}}}},
        "/products/featured": {"get": {"tags": ["catalog"], "summary": "Trending or bestselling products", "responses": {"200": {"description": "OK"}}}},
        "/products/{slug}": {"get": {"tags": ["catalog"], "summary": "Get a product", "parameters": [{"name": "slug", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/cart": {
            "get": {"tags": ["cart"], "summary": "List cart lines", "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}},
            "post": {"tags": ["cart"], "summary": "Add a product to the cart", "responses": {"201": {"description": "Created"}, "404": {"description": "Not Found"}}}
        },
        "/cart/total": {"get": {"tags": ["cart"], "summary": "Cart total", "responses": {"200": {"description": "OK"}}}},
        "/cart/{id}": {
            "patch": {"tags": ["cart"], "summary": "Change line quantity", "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}}},
            "delete": {"tags": ["cart"], "summary": "Remove a line", "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"204": {"description": "No Content"}, "403": {"description": "Forbidden"}}}
        },
        "/orders": {
            "get": {"tags": ["orders"], "summary": "List orders", "responses": {"200": {"description": "OK"}}},
            "post": {"tags": ["orders"], "summary": "Place an order from the cart", "responses": {"201": {"description": "Created"}, "400": {"description": "Cart empty or invalid shipping details"}}}
        },
        "/orders/{id}": {"get": {"tags": ["orders"], "summary": "Get an order", "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/orders/{id}/create_payment": {"post": {"tags": ["orders"], "summary": "Create a payment intent", "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK"}, "500": {"description": "Payment gateway not configured"}}}},
        "/orders/{id}/verify_payment": {"post": {"tags": ["orders"], "summary": "Verify a payment signature", "parameters": [{"name": "id", "in": "path", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK"}, "400": {"description": "Verification failed"}}}},
        "/users/me": {
            "get": {"tags": ["account"], "summary": "Current user", "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["account"], "summary": "Update profile", "responses": {"200": {"description": "OK"}}},
            "patch": {"tags": ["account"], "summary": "Update profile", "responses": {"200": {"description": "OK"}}}
        },
        "/auth/register": {"post": {"tags": ["account"], "summary": "Register", "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}}}},
        "/auth/login": {"post": {"tags": ["account"], "summary": "Log in", "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}}},
        "/auth/logout": {"post": {"tags": ["account"], "summary": "Log out", "responses": {"200": {"description": "OK"}}}},
        "/newsletter/subscribe": {"post": {"tags": ["newsletter"], "summary": "Subscribe to the newsletter", "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}}
    }
}`

var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Storefront API",
	Description:      "Catalog, cart, checkout and account endpoints.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
