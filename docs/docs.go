// Package docs registers the OpenAPI description served at /swagger.
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
        "/auth/signup": {
            "post": {
                "tags": ["auth"],
                "summary": "Sign up",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/signUpRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/user.User"}},
                    "400": {"description": "invalid input or weak password", "schema": {"$ref": "#/definitions/error"}},
                    "409": {"description": "email taken", "schema": {"$ref": "#/definitions/error"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Log in",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/loginRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/user.LoginResult"}},
                    "401": {"description": "invalid credentials or not verified", "schema": {"$ref": "#/definitions/error"}},
                    "404": {"description": "user not found", "schema": {"$ref": "#/definitions/error"}}
                }
            }
        },
        "/auth/verify": {
            "get": {
                "tags": ["auth"],
                "summary": "Activate account",
                "parameters": [{"in": "query", "name": "token", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "invalid or expired token", "schema": {"$ref": "#/definitions/error"}},
                    "409": {"description": "already activated", "schema": {"$ref": "#/definitions/error"}}
                }
            }
        },
        "/auth/forgotPassword": {
            "post": {
                "tags": ["auth"],
                "summary": "Request a password reset",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"type": "object", "properties": {"email": {"type": "string"}}}}],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "invalid email", "schema": {"$ref": "#/definitions/error"}}
                }
            }
        },
        "/auth/verifyResetCode": {
            "post": {
                "tags": ["auth"],
                "summary": "Reset password with a mailed token",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"type": "object", "properties": {"token": {"type": "string"}, "password": {"type": "string"}}}}],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "invalid or expired token", "schema": {"$ref": "#/definitions/error"}}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["auth"],
                "summary": "Refresh tokens",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"type": "object", "properties": {"refreshToken": {"type": "string"}}}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/user.Tokens"}},
                    "401": {"description": "invalid or expired refresh token", "schema": {"$ref": "#/definitions/error"}}
                }
            }
        },
        "/auth/change-password": {
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["auth"],
                "summary": "Change password",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"type": "object", "properties": {"oldPassword": {"type": "string"}, "newPassword": {"type": "string"}}}}],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "missing or weak password", "schema": {"$ref": "#/definitions/error"}},
                    "401": {"description": "wrong old password", "schema": {"$ref": "#/definitions/error"}}
                }
            }
        },
        "/stores": {
            "get": {
                "tags": ["stores"],
                "summary": "List stores",
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/store.Store"}}}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["stores"],
                "summary": "Create a store",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/storeRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/store.Store"}},
                    "400": {"description": "invalid input", "schema": {"$ref": "#/definitions/error"}}
                }
            }
        },
        "/stores/search": {
            "get": {
                "tags": ["stores"],
                "summary": "Search stores by keywords or description",
                "parameters": [{"in": "query", "name": "searchTerm", "type": "array", "items": {"type": "string"}, "collectionFormat": "multi", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/store.Store"}}},
                    "400": {"description": "missing search term", "schema": {"$ref": "#/definitions/error"}}
                }
            }
        },
        "/stores/by-name": {
            "get": {
                "tags": ["stores"],
                "summary": "Search stores by name",
                "parameters": [{"in": "query", "name": "storeName", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/store.Store"}}}}
            }
        },
        "/stores/wilaya/{wilaya}": {
            "get": {
                "tags": ["stores"],
                "summary": "List stores in a wilaya",
                "parameters": [{"in": "path", "name": "wilaya", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/store.Store"}}}}
            }
        },
        "/stores/{storeId}": {
            "get": {
                "tags": ["stores"],
                "summary": "Get a store",
                "parameters": [{"in": "path", "name": "storeId", "type": "string", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/store.Store"}},
                    "404": {"description": "not found", "schema": {"$ref": "#/definitions/error"}}
                }
            },
            "put": {
                "security": [{"BearerAuth": []}],
                "tags": ["stores"],
                "summary": "Update a store",
                "parameters": [
                    {"in": "path", "name": "storeId", "type": "string", "required": true},
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/storeRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/store.Store"}},
                    "403": {"description": "not the owner", "schema": {"$ref": "#/definitions/error"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "tags": ["stores"],
                "summary": "Delete a store",
                "parameters": [{"in": "path", "name": "storeId", "type": "string", "required": true}],
                "responses": {
                    "204": {"description": "No Content"},
                    "403": {"description": "not the owner", "schema": {"$ref": "#/definitions/error"}}
                }
            }
        },
        "/stores/{storeId}/rating": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["stores"],
                "summary": "Rate a store",
                "parameters": [
                    {"in": "path", "name": "storeId", "type": "string", "required": true},
                    {"in": "body", "name": "request", "required": true, "schema": {"type": "object", "properties": {"rating": {"type": "integer", "minimum": 1, "maximum": 5}}}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/store.Store"}},
                    "409": {"description": "already rated", "schema": {"$ref": "#/definitions/error"}}
                }
            }
        },
        "/stores/{storeId}/logo": {
            "get": {
                "tags": ["stores"],
                "summary": "Download a store logo",
                "produces": ["image/png", "image/jpeg", "image/gif", "image/webp"],
                "parameters": [{"in": "path", "name": "storeId", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "no logo", "schema": {"$ref": "#/definitions/error"}}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["stores"],
                "summary": "Upload or replace a store logo",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"in": "path", "name": "storeId", "type": "string", "required": true},
                    {"in": "formData", "name": "storeLogo", "type": "file", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/store.Store"}},
                    "400": {"description": "bad file", "schema": {"$ref": "#/definitions/error"}}
                }
            }
        },
        "/stores/{storeId}/verify": {
            "patch": {
                "security": [{"BearerAuth": []}],
                "tags": ["stores"],
                "summary": "Set store verification",
                "parameters": [
                    {"in": "path", "name": "storeId", "type": "string", "required": true},
                    {"in": "body", "name": "request", "required": true, "schema": {"type": "object", "properties": {"verified": {"type": "boolean"}}}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/store.Store"}},
                    "403": {"description": "forbidden", "schema": {"$ref": "#/definitions/error"}}
                }
            }
        },
        "/users": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["users"],
                "summary": "List users",
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/user.User"}}}}
            }
        },
        "/users/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["users"],
                "summary": "Current user",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/user.User"}}}
            }
        },
        "/users/me/stores": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["users"],
                "summary": "Stores owned by the current user",
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/store.Store"}}}}
            }
        },
        "/users/{id}/role": {
            "patch": {
                "security": [{"BearerAuth": []}],
                "tags": ["users"],
                "summary": "Update user role",
                "parameters": [
                    {"in": "path", "name": "id", "type": "string", "required": true},
                    {"in": "body", "name": "request", "required": true, "schema": {"type": "object", "properties": {"role": {"type": "string", "enum": ["admin", "user", "editor"]}}}}
                ],
                "responses": {"204": {"description": "No Content"}, "404": {"description": "not found", "schema": {"$ref": "#/definitions/error"}}}
            }
        }
    },
    "definitions": {
        "error": {
            "type": "object",
            "properties": {"error": {"type": "string"}, "message": {"type": "string"}}
        },
        "signUpRequest": {
            "type": "object",
            "required": ["name", "email", "password"],
            "properties": {"name": {"type": "string"}, "email": {"type": "string"}, "password": {"type": "string"}}
        },
        "loginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {"email": {"type": "string"}, "password": {"type": "string"}}
        },
        "storeRequest": {
            "type": "object",
            "required": ["storeName", "city"],
            "properties": {
                "storeName": {"type": "string"},
                "storeType": {"type": "string", "enum": ["real", "virtual"]},
                "wilaya": {"type": "string"},
                "city": {"type": "string"},
                "longitude": {"type": "number"},
                "latitude": {"type": "number"},
                "phone": {"type": "string"},
                "email": {"type": "string"},
                "website": {"type": "string"},
                "socialMediaLinks": {"type": "array", "items": {"type": "object", "properties": {"name": {"type": "string"}, "link": {"type": "string"}}}},
                "description": {"type": "string"},
                "keywords": {"type": "array", "items": {"type": "string"}}
            }
        },
        "user.User": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "email": {"type": "string"},
                "role": {"type": "string"},
                "verified": {"type": "boolean"},
                "passwordChangedAt": {"type": "string"},
                "ratedStores": {"type": "array", "items": {"type": "string"}},
                "createdAt": {"type": "string"},
                "updatedAt": {"type": "string"}
            }
        },
        "user.LoginResult": {
            "type": "object",
            "properties": {"email": {"type": "string"}, "password": {"type": "string"}, "accessToken": {"type": "string"}, "refreshToken": {"type": "string"}}
        },
        "user.Tokens": {
            "type": "object",
            "properties": {"accessToken": {"type": "string"}, "refreshToken": {"type": "string"}}
        },
        "store.Store": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "storeOwner": {"type": "string"},
                "storeName": {"type": "string"},
                "verified": {"type": "boolean"},
                "storeType": {"type": "string"},
                "wilaya": {"type": "string"},
                "city": {"type": "string"},
                "longitude": {"type": "number"},
                "latitude": {"type": "number"},
                "phone": {"type": "string"},
                "email": {"type": "string"},
                "website": {"type": "string"},
                "socialMediaLinks": {"type": "array", "items": {"type": "object", "properties": {"name": {"type": "string"}, "link": {"type": "string"}}}},
                "description": {"type": "string"},
                "keywords": {"type": "array", "items": {"type": "string"}},
                "storeLogo": {"type": "string"},
                "rating": {"type": "integer"},
                "ratingSum": {"type": "integer"},
                "averageRating": {"type": "number"},
                "createdAt": {"type": "string"},
                "updatedAt": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Dz Stores Finder API",
	Description:      "Store directory with accounts, ratings and search.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
