package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "description": "TaskIQ API Documentation",
        "title": "TaskIQ API",
        "version": "1.0"
    },
    "host": "localhost:8080",
    "basePath": "/api/v1",
    "schemes": ["http"],
    "paths": {
        "/health": {
            "get": {
                "tags": ["Health"],
                "summary": "Health Check",
                "description": "Check if server is running",
                "responses": {
                    "200": {
                        "description": "Server is healthy"
                    }
                }
            }
        },
        "/auth/google/login": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Google Sign-In",
                "description": "Redirects to the Google consent screen",
                "responses": {
                    "307": {
                        "description": "Redirect to Google"
                    }
                }
            }
        },
        "/auth/google/callback": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Google OAuth Callback",
                "description": "Exchanges the authorization code for session tokens",
                "produces": ["application/json"],
                "parameters": [
                    {
                        "in": "query",
                        "name": "code",
                        "type": "string",
                        "required": true
                    },
                    {
                        "in": "query",
                        "name": "state",
                        "type": "string",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Session tokens and user profile"
                    },
                    "401": {
                        "description": "Sign-in failed"
                    }
                }
            }
        },
        "/tasks": {
            "get": {
                "tags": ["Tasks"],
                "summary": "List Tasks",
                "description": "Paginated list filtered by status, priority, category, tag, due range and title search",
                "produces": ["application/json"],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Task page"
                    }
                }
            },
            "post": {
                "tags": ["Tasks"],
                "summary": "Create Task",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Task created"
                    },
                    "400": {
                        "description": "Invalid input"
                    }
                }
            }
        },
        "/tasks/today": {
            "get": {
                "tags": ["Tasks"],
                "summary": "Today View",
                "description": "Pending tasks due today in the user's timezone, ordered by priority then due time, with day stats",
                "produces": ["application/json"],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Today's tasks and stats"
                    }
                }
            }
        },
        "/tasks/{id}/sync": {
            "post": {
                "tags": ["Tasks"],
                "summary": "Toggle Calendar Sync",
                "description": "Creates or removes the Google Calendar event mirroring this task",
                "produces": ["application/json"],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "in": "path",
                        "name": "id",
                        "type": "string",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Updated task"
                    },
                    "409": {
                        "description": "Sync state changed concurrently"
                    },
                    "502": {
                        "description": "Calendar service unavailable"
                    }
                }
            }
        },
        "/user/me": {
            "get": {
                "tags": ["User"],
                "summary": "Get Current User",
                "description": "Get information about the currently authenticated user",
                "produces": ["application/json"],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "User information"
                    },
                    "401": {
                        "description": "Unauthorized"
                    }
                }
            }
        },
        "/user/delete": {
            "delete": {
                "tags": ["User"],
                "summary": "Delete Account",
                "description": "Permanently deletes the user and everything they own, in one transaction",
                "produces": ["application/json"],
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Account deleted"
                    }
                }
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header",
            "description": "Type 'Bearer' followed by a space and JWT token"
        }
    }
}`

var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{"http"},
	Title:            "TaskIQ API",
	Description:      "TaskIQ API Documentation",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
