package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gogotex/employees/internal/employee/query"
	"github.com/gogotex/employees/internal/employee/service"
	"github.com/gogotex/employees/internal/export"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Pagination struct {
		Total int64 `json:"total"`
		Page  int   `json:"page"`
		Limit int64 `json:"limit"`
		Pages int64 `json:"pages"`
	} `json:"pagination"`
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Fields  map[string]any `json:"fields"`
	} `json:"error"`
}

func newEngine(exp Exporter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	g := gin.New()
	NewHandler(service.NewMemoryService(), exp).Register(g.Group("/api"))
	return g
}

func do(t *testing.T, g *gin.Engine, method, path, body string) (int, envelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

const juanJSON = `{"name":"Juan","surnames":"Pérez","age":30,"city":"Madrid","email":"juan@x.com","position":"Developer","department":"Tech"}`

func TestEmployeeHandler_Lifecycle(t *testing.T) {
	g := newEngine(nil)

	// create
	code, env := do(t, g, http.MethodPost, "/api/employees/create", juanJSON)
	require.Equal(t, http.StatusCreated, code)
	require.True(t, env.Success)
	var created struct {
		InsertedID string `json:"insertedId"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.NotEmpty(t, created.InsertedID)

	// get
	code, env = do(t, g, http.MethodGet, "/api/employees/get-by-id/"+created.InsertedID, "")
	require.Equal(t, http.StatusOK, code)
	var e map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &e))
	require.Equal(t, created.InsertedID, e["_id"])
	require.Equal(t, "Juan", e["name"])
	require.Equal(t, false, e["isDeleted"])

	// update
	code, env = do(t, g, http.MethodPut, "/api/employees/update-by-id", `{"_id":"`+created.InsertedID+`","city":"Valencia"}`)
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, string(env.Data), `"matchedCount":1`)

	// list
	code, env = do(t, g, http.MethodGet, "/api/employees/get-all?city=valen", "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, int64(1), env.Pagination.Total)
	require.Equal(t, int64(10), env.Pagination.Limit)

	// delete
	code, env = do(t, g, http.MethodDelete, "/api/employees/delete", `{"ids":["`+created.InsertedID+`"]}`)
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, string(env.Data), `"deletedCount":1`)

	// gone
	code, env = do(t, g, http.MethodGet, "/api/employees/get-by-id/"+created.InsertedID, "")
	require.Equal(t, http.StatusNotFound, code)
	require.False(t, env.Success)
	require.Equal(t, "not_found", env.Error.Code)

	code, env = do(t, g, http.MethodGet, "/api/employees/department/Tech", "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, int64(0), env.Pagination.Total)
	require.JSONEq(t, `[]`, string(env.Data))
}

func TestEmployeeHandler_Bulk(t *testing.T) {
	g := newEngine(nil)

	body := `{"employees":[` +
		`{"name":"A","surnames":"X","age":20,"city":"C","email":"a@x.com","position":"Dev","department":"Tech"},` +
		`{"name":"B","surnames":"X","age":21,"city":"C","email":"a@x.com","position":"Dev","department":"Tech"},` +
		`{"name":"C","surnames":"X","age":22,"city":"C","email":"c@x.com","position":"Dev","department":"Tech"}]}`
	code, env := do(t, g, http.MethodPost, "/api/employees/create-bulk", body)
	require.Equal(t, http.StatusMultiStatus, code)
	var res struct {
		InsertedCount int      `json:"insertedCount"`
		InsertedIDs   []string `json:"insertedIds"`
		Items         []struct {
			Index   int    `json:"index"`
			Success bool   `json:"success"`
			ID      string `json:"id"`
			Error   struct {
				Code string `json:"code"`
			} `json:"error"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &res))
	require.Equal(t, 2, res.InsertedCount)
	require.Len(t, res.Items, 3)
	require.False(t, res.Items[1].Success)
	require.Equal(t, "conflict", res.Items[1].Error.Code)

	upd := `{"employees":[` +
		`{"_id":"` + res.InsertedIDs[0] + `","age":40},` +
		`{"_id":"65a000000000000000000000","age":40},` +
		`{"_id":"` + res.InsertedIDs[1] + `","position":"Lead"}]}`
	code, env = do(t, g, http.MethodPut, "/api/employees/update-bulk", upd)
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, string(env.Data), `"matchedCount":2`)

	code, env = do(t, g, http.MethodGet, "/api/employees/position/Lead", "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, int64(1), env.Pagination.Total)

	code, env = do(t, g, http.MethodGet, "/api/employees/search/advanced?minAge=30&sortBy=age&sortOrder=desc", "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, int64(1), env.Pagination.Total)
}

func TestEmployeeHandler_Errors(t *testing.T) {
	g := newEngine(nil)

	code, env := do(t, g, http.MethodPost, "/api/employees/create", `{"name":"Kid","age":12}`)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "invalid_argument", env.Error.Code)

	code, _ = do(t, g, http.MethodPost, "/api/employees/create", juanJSON)
	require.Equal(t, http.StatusCreated, code)
	code, env = do(t, g, http.MethodPost, "/api/employees/create", juanJSON)
	require.Equal(t, http.StatusConflict, code)
	require.Equal(t, "conflict", env.Error.Code)

	code, env = do(t, g, http.MethodDelete, "/api/employees/delete", `{"ids":[]}`)
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "invalid_argument", env.Error.Code)

	code, env = do(t, g, http.MethodDelete, "/api/employees/delete", `{"ids":["65a000000000000000000000"]}`)
	require.Equal(t, http.StatusNotFound, code)

	code, _ = do(t, g, http.MethodPut, "/api/employees/update-by-id", `{"_id":"65a000000000000000000000","city":"X"}`)
	require.Equal(t, http.StatusNotFound, code)

	code, _ = do(t, g, http.MethodGet, "/api/employees/get-by-id/nope", "")
	require.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, g, http.MethodGet, "/api/employees/get-all?limit=500", "")
	require.Equal(t, http.StatusBadRequest, code)

	code, env = do(t, g, http.MethodGet, "/api/employees/get-all?sortBy=password", "")
	require.Equal(t, http.StatusBadRequest, code)
	require.Equal(t, "password", env.Error.Fields["sortBy"])

	code, env = do(t, g, http.MethodGet, "/api/employees/export", "")
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.Equal(t, "storage_unavailable", env.Error.Code)
}

type fakeExporter struct {
	req    query.Request
	format export.Format
}

func (f *fakeExporter) Export(ctx context.Context, r query.Request, format export.Format) (*export.Result, error) {
	f.req, f.format = r, format
	return &export.Result{Key: "exports/e.xlsx", URL: "https://minio.local/exports/e.xlsx", Format: format, Rows: 3}, nil
}

func TestEmployeeHandler_Export(t *testing.T) {
	exp := &fakeExporter{}
	g := newEngine(exp)

	code, env := do(t, g, http.MethodGet, "/api/employees/export?format=xlsx&department=tech&minAge=30", "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, export.FormatXLSX, exp.format)
	require.Equal(t, "tech", exp.req.Department)
	require.NotNil(t, exp.req.MinAge)
	require.Equal(t, 30, *exp.req.MinAge)
	require.Contains(t, string(env.Data), `"url":"https://minio.local/exports/e.xlsx"`)

	code, _ = do(t, g, http.MethodGet, "/api/employees/export?format=pdf", "")
	require.Equal(t, http.StatusBadRequest, code)
}
