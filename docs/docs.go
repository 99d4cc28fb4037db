// Package docs holds the OpenAPI document served under /swagger. It follows
// the layout swag init produces and is kept in sync with the handler
// annotations by hand.
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
		"/api/auth/register": {
			"post": {
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"auth"
				],
				"summary": "Register a new user",
				"parameters": [
					{
						"description": "User registration details",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/handler.registerRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/handler.registerResponse"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/handler.ErrorResponse"
						}
					},
					"502": {
						"description": "Bad Gateway",
						"schema": {
							"$ref": "#/definitions/handler.ErrorResponse"
						}
					},
					"504": {
						"description": "Gateway Timeout",
						"schema": {
							"$ref": "#/definitions/handler.ErrorResponse"
						}
					}
				}
			}
		},
		"/api/auth/login": {
			"post": {
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"auth"
				],
				"summary": "Login",
				"parameters": [
					{
						"description": "Login credentials",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/handler.loginRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/handler.loginResponse"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/handler.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/handler.ErrorResponse"
						}
					},
					"429": {
						"description": "Too Many Requests",
						"schema": {
							"$ref": "#/definitions/handler.ErrorResponse"
						}
					},
					"502": {
						"description": "Bad Gateway",
						"schema": {
							"$ref": "#/definitions/handler.ErrorResponse"
						}
					}
				}
			}
		},
		"/api/auth/me": {
			"get": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"auth"
				],
				"summary": "Current principal",
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/handler.principalResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/handler.ErrorResponse"
						}
					}
				}
			}
		},
		"/api/auth/introspect": {
			"post": {
				"security": [
					{
						"BearerAuth": []
					}
				],
				"consumes": [
					"application/json"
				],
				"produces": [
					"application/json"
				],
				"tags": [
					"auth"
				],
				"summary": "Introspect a token",
				"parameters": [
					{
						"description": "Token to inspect",
						"name": "body",
						"in": "body",
						"required": true,
						"schema": {
							"$ref": "#/definitions/handler.introspectRequest"
						}
					}
				],
				"responses": {
					"200": {
						"description": "OK",
						"schema": {
							"$ref": "#/definitions/handler.introspectResponse"
						}
					},
					"400": {
						"description": "Bad Request",
						"schema": {
							"$ref": "#/definitions/handler.ErrorResponse"
						}
					},
					"401": {
						"description": "Unauthorized",
						"schema": {
							"$ref": "#/definitions/handler.ErrorResponse"
						}
					},
					"403": {
						"description": "Forbidden",
						"schema": {
							"$ref": "#/definitions/handler.ErrorResponse"
						}
					}
				}
			}
		}
	},
	"definitions": {
		"handler.ErrorResponse": {
			"type": "object",
			"properties": {
				"error": {
					"type": "string"
				}
			}
		},
		"handler.registerRequest": {
			"type": "object",
			"properties": {
				"username": {
					"type": "string",
					"maxLength": 255
				},
				"email": {
					"type": "string"
				},
				"password": {
					"type": "string"
				},
				"role": {
					"type": "string",
					"enum": [
						"ADMIN",
						"ANALYST",
						"OPERATOR"
					]
				}
			},
			"required": [
				"email",
				"password",
				"username"
			]
		},
		"handler.registerResponse": {
			"type": "object",
			"properties": {
				"username": {
					"type": "string"
				},
				"email": {
					"type": "string"
				},
				"role": {
					"type": "string"
				}
			}
		},
		"handler.loginRequest": {
			"type": "object",
			"properties": {
				"username": {
					"type": "string"
				},
				"password": {
					"type": "string"
				}
			}
		},
		"handler.loginResponse": {
			"type": "object",
			"properties": {
				"token": {
					"type": "string"
				}
			}
		},
		"handler.introspectRequest": {
			"type": "object",
			"properties": {
				"token": {
					"type": "string"
				}
			}
		},
		"handler.introspectResponse": {
			"type": "object",
			"properties": {
				"active": {
					"type": "boolean"
				},
				"sub": {
					"type": "string"
				},
				"username": {
					"type": "string"
				},
				"role": {
					"type": "string"
				},
				"exp": {
					"type": "integer"
				}
			}
		},
		"handler.principalResponse": {
			"type": "object",
			"properties": {
				"sub": {
					"type": "string"
				},
				"username": {
					"type": "string"
				},
				"role": {
					"type": "string"
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
	}
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "IncidentHub Auth Gateway API",
	Description:      "Registration, login and bearer token validation for IncidentHub services.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
