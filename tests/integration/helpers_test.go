package integration

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"

	"github.com/gatsishub/gatsishub-api/config"
	"github.com/gatsishub/gatsishub-api/middleware"
	"github.com/gatsishub/gatsishub-api/models"
	"github.com/gatsishub/gatsishub-api/realtime"
	"github.com/gatsishub/gatsishub-api/services"
	"github.com/gatsishub/gatsishub-api/tests/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

// workflowSuite wires the services every integration suite needs against a
// fresh database per test.
type workflowSuite struct {
	suite.Suite
	db       *gorm.DB
	storage  *services.MockStorage
	hub      *realtime.Hub
	customer models.User
	other    models.User
	admin    models.User
	product  models.Product
}

func (s *workflowSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	s.Require().NoError(middleware.RegisterValidators())
}

func (s *workflowSuite) SetupTest() {
	testutil.MustSetTestEnvironment(s.T())

	s.db = testutil.OpenDatabase(s.T())
	config.SetDB(s.db)

	s.storage = services.NewMockStorage()
	s.storage.SetAsMockForTesting()

	s.hub = realtime.NewHub(realtime.NewMemoryBroker())
	realtime.SetHub(s.hub)

	services.SetOrderService(services.NewOrderService(services.OrderDeps{
		DB:       s.db,
		Hub:      s.hub,
		Invoices: services.NewInvoiceService(s.db, 0.12),
		Files:    services.GetFileService(),
	}))

	s.customer = testutil.CreateUser(s.T(), s.db, "auth0|customer", models.RoleCustomer)
	s.other = testutil.CreateUser(s.T(), s.db, "auth0|other", models.RoleCustomer)
	s.admin = testutil.CreateUser(s.T(), s.db, "auth0|admin", models.RoleAdmin)
	s.product = testutil.CreateProduct(s.T(), s.db, "Classic Wire", 500)
	testutil.CreateMaterial(s.T(), s.db, "Steel", 50)
}

func (s *workflowSuite) TearDownTest() {
	config.SetDB(nil)
	realtime.SetHub(nil)
	services.SetOrderService(nil)
	services.SetStorage(nil)
	services.SetFileService(nil)
}

// as authenticates every request on the group as user
func as(user models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := user
		middleware.SetCurrentUser(c, &u)
		c.Next()
	}
}

func (s *workflowSuite) doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func (s *workflowSuite) doMultipart(router *gin.Engine, path string, fields map[string]string, fileField, filename string, content []byte) *httptest.ResponseRecorder {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		s.Require().NoError(mw.WriteField(k, v))
	}
	if fileField != "" {
		part, err := mw.CreateFormFile(fileField, filename)
		s.Require().NoError(err)
		_, err = part.Write(content)
		s.Require().NoError(err)
	}
	s.Require().NoError(mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
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
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *workflowSuite) decode(w *httptest.ResponseRecorder, out interface{}) envelope {
	var env envelope
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if out != nil {
		s.Require().True(env.Success, w.Body.String())
		s.Require().NoError(json.Unmarshal(env.Data, out))
	}
	return env
}

func idString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), []byte("integration")...)
