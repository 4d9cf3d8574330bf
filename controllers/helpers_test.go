package controllers

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gatsishub/gatsishub-api/config"
	"github.com/gatsishub/gatsishub-api/middleware"
	"github.com/gatsishub/gatsishub-api/models"
	"github.com/gatsishub/gatsishub-api/realtime"
	"github.com/gatsishub/gatsishub-api/services"
	"github.com/gatsishub/gatsishub-api/tests/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// testEnv wires the global services the handlers reach for against an
// in-memory database, mock storage and an in-process change feed
type testEnv struct {
	db       *gorm.DB
	storage  *services.MockStorage
	hub      *realtime.Hub
	orders   *services.OrderService
	customer models.User
	other    models.User
	admin    models.User
	product  models.Product
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, middleware.RegisterValidators())

	db := testutil.NewTestDB(t)
	config.SetDB(db)

	env := &testEnv{
		db:      db,
		storage: services.NewMockStorage(),
		hub:     realtime.NewHub(realtime.NewMemoryBroker()),
	}
	env.storage.SetAsMockForTesting()
	realtime.SetHub(env.hub)

	env.orders = services.NewOrderService(services.OrderDeps{
		DB:       db,
		Hub:      env.hub,
		Invoices: services.NewInvoiceService(db, 0.12),
		Files:    services.GetFileService(),
	})
	services.SetOrderService(env.orders)

	env.customer = testutil.CreateUser(t, db, "customer-1", models.RoleCustomer)
	env.other = testutil.CreateUser(t, db, "customer-2", models.RoleCustomer)
	env.admin = testutil.CreateUser(t, db, "admin-1", models.RoleAdmin)
	env.product = testutil.CreateProduct(t, db, "Classic Wire", 500)
	testutil.CreateMaterial(t, db, "Steel", 50)

	t.Cleanup(func() {
		config.SetDB(nil)
		realtime.SetHub(nil)
		services.SetOrderService(nil)
		services.SetFileService(nil)
		services.SetStorage(nil)
	})
	return env
}

// asUser stands in for the auth and session middleware
func asUser(user models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := user
		middleware.SetCurrentUser(c, &u)
		c.Next()
	}
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func performJSON(router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func performMultipart(t *testing.T, router http.Handler, path string, fields map[string]string, fileField, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if fileField != "" {
		part, err := writer.CreateFormFile(fileField, filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success    bool            `json:"success"`
	Data       json.RawMessage `json:"data"`
	Pagination *struct {
		Page       int   `json:"page"`
		Limit      int   `json:"limit"`
		Total      int64 `json:"total"`
		TotalPages int   `json:"total_pages"`
	} `json:"pagination"`
	Error *struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "body: %s", w.Body.String())
	return env
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	env := decodeEnvelope(t, w)
	require.True(t, env.Success, "body: %s", w.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, out))
}

func errorCodeOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	env := decodeEnvelope(t, w)
	require.False(t, env.Success)
	require.NotNil(t, env.Error, "body: %s", w.Body.String())
	return env.Error.Code
}

func validSignature() string {
	return testutil.SignatureDataURL()
}

// orderInStatus inserts an order for the env customer directly in status
func (e *testEnv) orderInStatus(t *testing.T, status models.OrderStatus) models.Order {
	t.Helper()
	return testutil.CreateOrder(t, e.db, e.customer, e.product, status)
}

func uintString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
