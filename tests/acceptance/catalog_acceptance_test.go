package acceptance

import (
	"net/http"
	"testing"

	"github.com/gatsishub/gatsishub-api/controllers"
	"github.com/gatsishub/gatsishub-api/middleware"
	"github.com/gatsishub/gatsishub-api/models"
	"github.com/gatsishub/gatsishub-api/tests/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
)

var pngImage = append([]byte("\x89PNG\r\n\x1a\n"), []byte("catalog")...)

// CatalogAcceptanceTestSuite manages products and materials as staff and
// browses them anonymously
type CatalogAcceptanceTestSuite struct {
	serverSuite
}

func (s *CatalogAcceptanceTestSuite) SetupTest() {
	s.start(func(public, session *gin.RouterGroup) {
		public.GET("/products", controllers.ListProducts)
		public.GET("/products/:id", controllers.GetProduct)
		public.GET("/materials", controllers.ListMaterials)

		session.POST("/orders/quote", controllers.QuoteOrder)

		staff := session.Group("", middleware.RequireRole(models.RoleAdmin))
		staff.POST("/products", controllers.CreateProduct)
		staff.PATCH("/products/:id", controllers.UpdateProduct)
		staff.POST("/products/:id/image", controllers.UploadProductImage)
		staff.POST("/materials", controllers.CreateMaterial)
		staff.PATCH("/materials/:id", controllers.UpdateMaterial)
	})

	testutil.CreateUser(s.T(), s.db, buyerToken, models.RoleCustomer)
	testutil.CreateUser(s.T(), s.db, staffToken, models.RoleAdmin)
}

func (s *CatalogAcceptanceTestSuite) TestCompleteCatalogWorkflow() {
	r := s.call(http.MethodPost, "/api/v1/products", staffToken, gin.H{
		"name":         "Velvet Slim",
		"description":  "Non-slip velvet hanger",
		"weight_grams": 500,
	})
	s.Require().Equal(http.StatusCreated, r.status, string(r.body))
	var product models.Product
	s.data(r, &product)
	s.True(product.IsActive)

	r = s.upload("/api/v1/products/"+idString(product.ID)+"/image", staffToken, nil, "image", "velvet.png", pngImage)
	s.Require().Equal(http.StatusOK, r.status, string(r.body))
	var uploaded struct {
		Product  models.Product `json:"product"`
		ImageURL string         `json:"image_url"`
	}
	s.data(r, &uploaded)
	s.True(s.storage.Exists(uploaded.Product.ImageKey))
	s.NotEmpty(uploaded.ImageURL)

	r = s.call(http.MethodGet, "/api/v1/products/"+idString(product.ID), "", nil)
	s.Require().Equal(http.StatusOK, r.status)

	r = s.call(http.MethodPost, "/api/v1/materials", staffToken, gin.H{"name": "Steel", "price_per_kg": "50"})
	s.Require().Equal(http.StatusCreated, r.status, string(r.body))
	var steel models.Material
	s.data(r, &steel)

	quote := gin.H{"product_id": product.ID, "quantity": 10, "materials": gin.H{"Steel": 100}}
	var breakdown models.Breakdown
	r = s.call(http.MethodPost, "/api/v1/orders/quote", buyerToken, quote)
	s.Require().Equal(http.StatusOK, r.status, string(r.body))
	s.data(r, &breakdown)
	s.Equal("1400", breakdown.Total.String())

	// repricing a material changes later quotes
	r = s.call(http.MethodPatch, "/api/v1/materials/"+idString(steel.ID), staffToken, gin.H{"price_per_kg": "60"})
	s.Require().Equal(http.StatusOK, r.status, string(r.body))
	r = s.call(http.MethodPost, "/api/v1/orders/quote", buyerToken, quote)
	s.data(r, &breakdown)
	s.Equal("1456", breakdown.Total.String())

	// a retired product leaves the active catalog and can no longer be quoted
	r = s.call(http.MethodPatch, "/api/v1/products/"+idString(product.ID), staffToken, gin.H{"is_active": false})
	s.Require().Equal(http.StatusOK, r.status, string(r.body))

	r = s.call(http.MethodGet, "/api/v1/products?active=true", "", nil)
	var active []models.Product
	s.data(r, &active)
	s.Empty(active)

	r = s.call(http.MethodPost, "/api/v1/orders/quote", buyerToken, quote)
	s.Equal(http.StatusBadRequest, r.status)
}

func (s *CatalogAcceptanceTestSuite) TestCatalogRequiresStaff() {
	r := s.call(http.MethodPost, "/api/v1/products", buyerToken, gin.H{"name": "Sneaky", "weight_grams": 10})
	s.Equal(http.StatusForbidden, r.status)
	s.Equal("FORBIDDEN", s.errorCode(r))

	r = s.call(http.MethodPost, "/api/v1/materials", "", gin.H{"name": "Gold", "price_per_kg": "9000"})
	s.Equal(http.StatusUnauthorized, r.status)
}

func (s *CatalogAcceptanceTestSuite) TestUploadValidation() {
	product := testutil.CreateProduct(s.T(), s.db, "Classic Wire", 500)
	path := "/api/v1/products/" + idString(product.ID) + "/image"

	for _, name := range []string{"notes.txt", "manual.pdf", "script.exe"} {
		r := s.upload(path, staffToken, nil, "image", name, []byte("content"))
		s.Equal(http.StatusBadRequest, r.status, name)
	}
	s.Zero(s.storage.PutCount())
}

func TestCatalogAcceptanceTestSuite(t *testing.T) {
	suite.Run(t, new(CatalogAcceptanceTestSuite))
}
