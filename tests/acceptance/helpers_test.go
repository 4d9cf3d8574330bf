package acceptance

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"

	"github.com/gatsishub/gatsishub-api/config"
	"github.com/gatsishub/gatsishub-api/middleware"
	"github.com/gatsishub/gatsishub-api/realtime"
	"github.com/gatsishub/gatsishub-api/services"
	"github.com/gatsishub/gatsishub-api/tests/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

// serverSuite runs a real HTTP server per test. Requests authenticate with
// "Bearer <auth0 id>" the way the stub auth middleware expects.
type serverSuite struct {
	suite.Suite
	server  *httptest.Server
	db      *gorm.DB
	storage *services.MockStorage
}

func (s *serverSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	s.Require().NoError(middleware.RegisterValidators())
}

// start wires the globals and serves the routes mount adds under /api/v1
func (s *serverSuite) start(mount func(public, session *gin.RouterGroup)) {
	testutil.MustSetTestEnvironment(s.T())

	s.db = testutil.OpenDatabase(s.T())
	config.SetDB(s.db)

	s.storage = services.NewMockStorage()
	s.storage.SetAsMockForTesting()

	hub := realtime.NewHub(realtime.NewMemoryBroker())
	realtime.SetHub(hub)
	services.SetOrderService(services.NewOrderService(services.OrderDeps{
		DB:       s.db,
		Hub:      hub,
		Invoices: services.NewInvoiceService(s.db, 0.12),
		Files:    services.GetFileService(),
	}))

	router := gin.New()
	router.Use(gin.Recovery())
	public := router.Group("/api/v1")
	session := public.Group("", testutil.BearerAuthMiddleware(), middleware.LoadCurrentUser())
	mount(public, session)

	s.server = httptest.NewServer(router)
}

func (s *serverSuite) TearDownTest() {
	if s.server != nil {
		s.server.Close()
	}
	config.SetDB(nil)
	realtime.SetHub(nil)
	services.SetOrderService(nil)
	services.SetStorage(nil)
	services.SetFileService(nil)
}

type response struct {
	status int
	header http.Header
	body   []byte
}

// call sends a JSON request as token (empty for anonymous)
func (s *serverSuite) call(method, path, token string, body interface{}) response {
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		s.Require().NoError(err)
		buf = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, s.server.URL+path, buf)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	return s.send(req, token)
}

// upload posts a multipart form with one file as token
func (s *serverSuite) upload(path, token string, fields map[string]string, fileField, filename string, content []byte) response {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		s.Require().NoError(mw.WriteField(k, v))
	}
	part, err := mw.CreateFormFile(fileField, filename)
	s.Require().NoError(err)
	_, err = part.Write(content)
	s.Require().NoError(err)
	s.Require().NoError(mw.Close())

	req, err := http.NewRequest(http.MethodPost, s.server.URL+path, &body)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return s.send(req, token)
}

func (s *serverSuite) send(req *http.Request, token string) response {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	return response{status: resp.StatusCode, header: resp.Header, body: b}
}

// data decodes the success envelope's data into out
func (s *serverSuite) data(r response, out interface{}) {
	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	s.Require().NoError(json.Unmarshal(r.body, &env), string(r.body))
	s.Require().True(env.Success, string(r.body))
	s.Require().NoError(json.Unmarshal(env.Data, out))
}

// errorCode returns error.code from a failure envelope
func (s *serverSuite) errorCode(r response) string {
	var env struct {
		Success bool `json:"success"`
		Error   struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	s.Require().NoError(json.Unmarshal(r.body, &env), string(r.body))
	s.False(env.Success)
	return env.Error.Code
}

func idString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
