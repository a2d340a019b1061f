package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers the OpenAPI endpoints for the employee API.
// - GET <prefix>/docs          -> a small HTML page that loads the OpenAPI JSON
// - GET <prefix>/docs/doc.json -> machine-readable OpenAPI JSON
func RegisterSwagger(r gin.IRoutes, apiPrefix string) {
	html := strings.ReplaceAll(swaggerHTML, "{{PREFIX}}", apiPrefix)
	doc := []byte(strings.ReplaceAll(swaggerJSON, "{{PREFIX}}", apiPrefix))

	r.GET(apiPrefix+"/docs", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, html)
	})

	r.GET(apiPrefix+"/docs/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", doc)
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>employees API - Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '{{PREFIX}}/docs/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "employees", "version": "v1.0.0" },
  "servers": [ { "url": "{{PREFIX}}" } ],
  "components": {
    "schemas": {
      "NewEmployee": {
        "type": "object",
        "required": ["name","surnames","age","city","email","position","department"],
        "properties": {
          "name": {"type":"string"},
          "surnames": {"type":"string"},
          "age": {"type":"integer","minimum":18},
          "city": {"type":"string"},
          "email": {"type":"string","format":"email"},
          "position": {"type":"string"},
          "department": {"type":"string"}
        }
      },
      "Patch": {
        "type": "object",
        "required": ["_id"],
        "properties": {
          "_id": {"type":"string"},
          "name": {"type":"string"},
          "surnames": {"type":"string"},
          "age": {"type":"integer"},
          "city": {"type":"string"},
          "email": {"type":"string"},
          "position": {"type":"string"},
          "department": {"type":"string"}
        }
      },
      "Error": {
        "type": "object",
        "properties": {
          "success": {"type":"boolean"},
          "message": {"type":"string"},
          "error": {"type":"object","properties":{"code":{"type":"string"},"message":{"type":"string"},"fields":{"type":"object"}}}
        }
      }
    },
    "parameters": {
      "name": {"name":"name","in":"query","schema":{"type":"string"}},
      "surnames": {"name":"surnames","in":"query","schema":{"type":"string"}},
      "city": {"name":"city","in":"query","schema":{"type":"string"}},
      "email": {"name":"email","in":"query","schema":{"type":"string"}},
      "department": {"name":"department","in":"query","schema":{"type":"string"}},
      "position": {"name":"position","in":"query","schema":{"type":"string"}},
      "minAge": {"name":"minAge","in":"query","schema":{"type":"integer"}},
      "maxAge": {"name":"maxAge","in":"query","schema":{"type":"integer"}},
      "sortBy": {"name":"sortBy","in":"query","schema":{"type":"string","enum":["name","surnames","age","city","email","position","department","createdAt","updatedAt"]}},
      "sortOrder": {"name":"sortOrder","in":"query","schema":{"type":"string","enum":["asc","desc"]}},
      "page": {"name":"page","in":"query","schema":{"type":"integer","minimum":1,"default":1}},
      "limit": {"name":"limit","in":"query","schema":{"type":"integer","minimum":1,"maximum":100,"default":10}}
    }
  },
  "paths": {
    "/employees/create": {
      "post": {
        "summary": "Create one employee",
        "requestBody": { "content": { "application/json": { "schema": {"$ref":"#/components/schemas/NewEmployee"} } } },
        "responses": { "201": { "description": "created" }, "400": { "description": "invalid argument" }, "409": { "description": "email already in use" } }
      }
    },
    "/employees/create-bulk": {
      "post": {
        "summary": "Create many employees",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"employees":{"type":"array","items":{"$ref":"#/components/schemas/NewEmployee"}}}} } } },
        "responses": { "201": { "description": "all created" }, "207": { "description": "some entries rejected" }, "400": { "description": "invalid argument" } }
      }
    },
    "/employees/update-by-id": {
      "put": {
        "summary": "Update one employee",
        "requestBody": { "content": { "application/json": { "schema": {"$ref":"#/components/schemas/Patch"} } } },
        "responses": { "200": { "description": "updated" }, "404": { "description": "not found" }, "409": { "description": "email already in use" } }
      }
    },
    "/employees/update-bulk": {
      "put": {
        "summary": "Update many employees",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"employees":{"type":"array","items":{"$ref":"#/components/schemas/Patch"}}}} } } },
        "responses": { "200": { "description": "updated" }, "207": { "description": "some entries rejected" } }
      }
    },
    "/employees/delete": {
      "delete": {
        "summary": "Logically delete employees",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"ids":{"type":"array","items":{"type":"string"}}}} } } },
        "responses": { "200": { "description": "deleted" }, "404": { "description": "no employee matched" } }
      }
    },
    "/employees/get-by-id/{id}": {
      "get": {
        "summary": "Get an employee by id",
        "parameters": [ {"name":"id","in":"path","required":true,"schema":{"type":"string"}} ],
        "responses": { "200": { "description": "employee" }, "404": { "description": "not found" } }
      }
    },
    "/employees/get-all": {
      "get": {
        "summary": "List employees",
        "parameters": [
          {"$ref":"#/components/parameters/name"}, {"$ref":"#/components/parameters/surnames"},
          {"$ref":"#/components/parameters/city"}, {"$ref":"#/components/parameters/email"},
          {"$ref":"#/components/parameters/department"}, {"$ref":"#/components/parameters/position"},
          {"$ref":"#/components/parameters/minAge"}, {"$ref":"#/components/parameters/maxAge"},
          {"$ref":"#/components/parameters/sortBy"}, {"$ref":"#/components/parameters/sortOrder"},
          {"$ref":"#/components/parameters/page"}, {"$ref":"#/components/parameters/limit"}
        ],
        "responses": { "200": { "description": "page of employees" }, "400": { "description": "invalid argument" } }
      }
    },
    "/employees/department/{department}": {
      "get": {
        "summary": "List employees of a department",
        "parameters": [ {"name":"department","in":"path","required":true,"schema":{"type":"string"}}, {"$ref":"#/components/parameters/page"}, {"$ref":"#/components/parameters/limit"} ],
        "responses": { "200": { "description": "page of employees" } }
      }
    },
    "/employees/position/{position}": {
      "get": {
        "summary": "List employees holding a position",
        "parameters": [ {"name":"position","in":"path","required":true,"schema":{"type":"string"}}, {"$ref":"#/components/parameters/page"}, {"$ref":"#/components/parameters/limit"} ],
        "responses": { "200": { "description": "page of employees" } }
      }
    },
    "/employees/search/advanced": {
      "get": {
        "summary": "Search employees with filters, sort and pagination",
        "parameters": [
          {"$ref":"#/components/parameters/name"}, {"$ref":"#/components/parameters/city"},
          {"$ref":"#/components/parameters/department"}, {"$ref":"#/components/parameters/minAge"},
          {"$ref":"#/components/parameters/maxAge"}, {"$ref":"#/components/parameters/sortBy"},
          {"$ref":"#/components/parameters/sortOrder"}, {"$ref":"#/components/parameters/page"},
          {"$ref":"#/components/parameters/limit"}
        ],
        "responses": { "200": { "description": "page of employees" } }
      }
    },
    "/employees/export": {
      "get": {
        "summary": "Export matching employees to object storage",
        "parameters": [ {"name":"format","in":"query","schema":{"type":"string","enum":["csv","xlsx"],"default":"csv"}} ],
        "responses": { "200": { "description": "presigned download url" }, "503": { "description": "object storage not configured" } }
      }
    }
  }
}`
