// Package docs registers the swagger document of the score API.
// Regenerate with: swag init -g cmd/api-service/main.go -o internal/scoring/docs
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
        "/scores/{category}": {
            "get": {
                "description": "Returns the cached score of the stock for the category, computing it on the first request of the trading day",
                "produces": ["application/json"],
                "tags": ["scores"],
                "summary": "Get the daily score of a stock",
                "parameters": [
                    {"enum": ["fundamentals", "chip", "technical", "news"], "type": "string", "description": "Score category", "name": "category", "in": "path", "required": true},
                    {"type": "string", "description": "Stock code or name, e.g. 2330 or 2330.TW", "name": "stock_id", "in": "query", "required": true},
                    {"type": "string", "description": "Trading date (YYYY-MM-DD)", "name": "date", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.ScoreResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/scores/{category}/history": {
            "get": {
                "description": "Lists the stored records of one stock and category between two dates",
                "produces": ["application/json"],
                "tags": ["scores"],
                "summary": "List stored scores of a stock",
                "parameters": [
                    {"enum": ["fundamentals", "chip", "technical", "news"], "type": "string", "description": "Score category", "name": "category", "in": "path", "required": true},
                    {"type": "string", "description": "Stock code", "name": "stock_id", "in": "query", "required": true},
                    {"type": "string", "description": "First date (YYYY-MM-DD)", "name": "from", "in": "query", "required": true},
                    {"type": "string", "description": "Last date (YYYY-MM-DD), defaults to today", "name": "to", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/dto.ScoreResponse"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/scores/{category}/insight": {
            "post": {
                "description": "Generates the short analyst summary of a score once and stores it with the record",
                "produces": ["application/json"],
                "tags": ["scores"],
                "summary": "Attach an insight to a score",
                "parameters": [
                    {"enum": ["fundamentals", "chip", "technical", "news"], "type": "string", "description": "Score category", "name": "category", "in": "path", "required": true},
                    {"type": "string", "description": "Stock code or name", "name": "stock_id", "in": "query", "required": true},
                    {"type": "string", "description": "Trading date (YYYY-MM-DD)", "name": "date", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.ScoreResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/news/sentiment": {
            "get": {
                "description": "Returns the cached sentiment of the article, reading and classifying it on first request",
                "produces": ["application/json"],
                "tags": ["news"],
                "summary": "Get the sentiment of a news article",
                "parameters": [
                    {"type": "string", "description": "Article URL", "name": "url", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.NewsSentimentResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "dto.ErrorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string"}}
        },
        "dto.NoDataResponse": {
            "type": "object",
            "properties": {"message": {"type": "string"}, "data": {}}
        },
        "dto.NewsSentimentResponse": {
            "type": "object",
            "properties": {
                "url": {"type": "string"},
                "positive": {"type": "number"},
                "neutral": {"type": "number"},
                "negative": {"type": "number"},
                "content": {"type": "string"}
            }
        },
        "dto.ScoreResponse": {
            "type": "object",
            "properties": {
                "stock_id": {"type": "string"},
                "date": {"type": "string"},
                "type": {"type": "string"},
                "TotalScore": {"type": "number"},
                "direction": {"type": "integer"},
                "direction_label": {"type": "string"},
                "data": {"type": "object", "additionalProperties": true},
                "positive_factors": {"type": "array", "items": {"type": "string"}},
                "negative_factors": {"type": "array", "items": {"type": "string"}},
                "insight": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Taiwan Stock Score API",
	Description:      "Daily fundamentals, chip, technical and news scores of Taiwan-listed stocks.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
