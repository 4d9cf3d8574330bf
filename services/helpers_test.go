package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"mime/multipart"
	"net/textproto"
	"sync"
	"testing"

	"github.com/gatsishub/gatsishub-api/models"
	"github.com/gatsishub/gatsishub-api/realtime"
	"github.com/gatsishub/gatsishub-api/tests/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []StatusNotification
}

func (r *recordingNotifier) NotifyStatusChange(ctx context.Context, n StatusNotification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

func (r *recordingNotifier) statuses() []models.OrderStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.OrderStatus, len(r.sent))
	for i, n := range r.sent {
		out[i] = n.To
	}
	return out
}

type orderFixture struct {
	db       *gorm.DB
	svc      *OrderService
	storage  *MockStorage
	hub      *realtime.Hub
	notifier *recordingNotifier
	customer models.User
	admin    models.User
	product  models.Product
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()

	db := testutil.NewTestDB(t)
	f := &orderFixture{
		db:       db,
		storage:  NewMockStorage(),
		hub:      realtime.NewHub(realtime.NewMemoryBroker()),
		notifier: &recordingNotifier{},
	}
	f.svc = NewOrderService(OrderDeps{
		DB:       db,
		Hub:      f.hub,
		Notifier: f.notifier,
		Invoices: NewInvoiceService(db, 0.12),
		Files:    NewFileService(f.storage),
	})
	f.customer = testutil.CreateUser(t, db, "customer-1", models.RoleCustomer)
	f.admin = testutil.CreateUser(t, db, "admin-1", models.RoleAdmin)
	f.product = testutil.CreateProduct(t, db, "Classic Wire", 500)
	testutil.CreateMaterial(t, db, "Steel", 50)
	return f
}

func (f *orderFixture) placeOrder(t *testing.T) *models.Order {
	t.Helper()

	order, err := f.svc.Create(context.Background(), f.customer, CreateOrderInput{
		ProductID: f.product.ID,
		Quantity:  10,
		Materials: models.MaterialMix{"Steel": 100},
	})
	require.NoError(t, err)
	return order
}

// orderAwaitingPayment walks a fresh order through evaluation and signing
func (f *orderFixture) orderAwaitingPayment(t *testing.T) *models.Order {
	t.Helper()
	ctx := context.Background()

	order := f.placeOrder(t)
	status := models.StatusContractSigning
	_, err := f.svc.Update(ctx, order.ID, f.admin, OrderPatch{Status: &status})
	require.NoError(t, err)

	signed, err := f.svc.SignContract(ctx, order.ID, f.customer, SignRequest{
		SignatureDataURL: validSignature(),
		Agreed:           true,
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusWaitingForPayment, signed.Status)
	return signed
}

func validSignature() string {
	img := append([]byte("\x89PNG\r\n\x1a\n"), []byte("signature-strokes")...)
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(img)
}

// newFileHeader builds a multipart upload the way a browser would send it
func newFileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="proof"; filename="`+filename+`"`)
	h.Set("Content-Type", "application/octet-stream")
	part, err := writer.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	form, err := multipart.NewReader(body, writer.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })

	require.Len(t, form.File["proof"], 1)
	return form.File["proof"][0]
}
