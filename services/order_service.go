package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gatsishub/gatsishub-api/logger"
	"github.com/gatsishub/gatsishub-api/models"
	"github.com/gatsishub/gatsishub-api/realtime"
	"github.com/gatsishub/gatsishub-api/utils"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderService owns every order and payment mutation: it applies the
// lifecycle rules, records status history, and announces the change on the
// realtime feed and to the notifier once the write has committed.
type OrderService struct {
	db       *gorm.DB
	hub      *realtime.Hub
	notifier Notifier
	invoices *InvoiceService
	files    FileService
	now      func() time.Time
}

// OrderDeps are the collaborators of an OrderService; nil members are allowed
// except DB and Invoices.
type OrderDeps struct {
	DB       *gorm.DB
	Hub      *realtime.Hub
	Notifier Notifier
	Invoices *InvoiceService
	Files    FileService
}

var orderServiceInstance *OrderService

// NewOrderService wires an order service
func NewOrderService(deps OrderDeps) *OrderService {
	notifier := deps.Notifier
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	return &OrderService{
		db:       deps.DB,
		hub:      deps.Hub,
		notifier: notifier,
		invoices: deps.Invoices,
		files:    deps.Files,
		now:      time.Now,
	}
}

// InitOrderService initializes the global order service
func InitOrderService(deps OrderDeps) *OrderService {
	orderServiceInstance = NewOrderService(deps)
	return orderServiceInstance
}

// GetOrderService returns the initialized order service
func GetOrderService() *OrderService {
	return orderServiceInstance
}

// SetOrderService sets the order service (primarily for testing)
func SetOrderService(s *OrderService) {
	orderServiceInstance = s
}

// CreateOrderInput is a checkout submission
type CreateOrderInput struct {
	ProductID       uint
	Quantity        int
	Materials       models.MaterialMix
	Customization   models.Customization
	DeliveryAddress *models.Address // nil uses the customer's profile address
}

// OrderFilter narrows order listings
type OrderFilter struct {
	Status     models.OrderStatus
	CustomerID uint
	Search     string
}

// OrderView is an order with the state the client renders actions from
type OrderView struct {
	models.Order
	// TotalPrice shadows the stored override with the effective total
	TotalPrice    decimal.NullDecimal `json:"total_price"`
	LatestPayment *models.Payment     `json:"latest_payment"`
	Actions       models.Actions      `json:"actions"`
}

// effectiveTotal is the override, final or estimated total; null before any pricing
func effectiveTotal(o models.Order) decimal.NullDecimal {
	if o.TotalPrice.Valid {
		return o.TotalPrice
	}
	if _, _, ok := o.EffectiveBreakdown(); ok {
		return decimal.NewNullDecimal(o.PriceTotal())
	}
	return decimal.NullDecimal{}
}

// OrderPatch is a staff update; nil fields are left unchanged
type OrderPatch struct {
	Status                    *models.OrderStatus
	Reason                    string
	TotalPrice                *decimal.Decimal
	FinalBreakdown            *models.Breakdown
	Deadline                  *time.Time
	TrackingLink              *string
	RequiresContractAmendment *bool
}

// staffManagedFrom lists statuses whose exit belongs to a dedicated flow, not a plain status edit
var staffManagedFrom = map[models.OrderStatus]string{
	models.StatusContractSigning:   "The order leaves Contract Signing when the customer signs the contract",
	models.StatusWaitingForPayment: "The order leaves Waiting for Payment when the customer submits a payment",
	models.StatusVerifyingPayment:  "Use the payment verification endpoint to accept or reject the payment",
}

// Create places an order in For Evaluation with a priced estimate
func (s *OrderService) Create(ctx context.Context, customer models.User, in CreateOrderInput) (*models.Order, error) {
	if in.Quantity <= 0 {
		return nil, utils.NewValidationError("Quantity must be greater than zero", map[string]string{"quantity": "gt"})
	}
	if err := in.Materials.Validate(); err != nil {
		return nil, utils.NewValidationError(err.Error(), map[string]string{"materials": "composition"})
	}

	address := customer.Address
	if in.DeliveryAddress != nil {
		address = *in.DeliveryAddress
	}
	address.Normalize()
	if err := address.Validate(); err != nil {
		return nil, utils.NewValidationError(err.Error(), map[string]string{"delivery_address": "required"})
	}

	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, in.ProductID).Error; err != nil {
		if utils.IsNotFound(err) {
			return nil, utils.NewNotFoundError("PRODUCT_NOT_FOUND", "Product not found")
		}
		return nil, utils.NewInternalError("Failed to load product", err)
	}
	if !product.IsActive {
		return nil, utils.NewValidationError("Product is not available for ordering", nil)
	}

	estimate, err := s.invoices.Estimate(ctx, product.ID, in.Quantity, in.Materials, address)
	if err != nil {
		var unknown *UnknownMaterialError
		if errors.As(err, &unknown) {
			return nil, utils.NewValidationError(fmt.Sprintf("Unknown material %q", unknown.Name), map[string]string{"materials": "unknown"})
		}
		return nil, utils.NewInternalError("Failed to price order", err)
	}

	order := models.Order{
		CustomerID:         customer.ID,
		ProductID:          product.ID,
		Quantity:           in.Quantity,
		Materials:          datatypes.NewJSONType(in.Materials),
		Customization:      in.Customization,
		DeliveryAddress:    address,
		EstimatedBreakdown: datatypes.NewJSONType(estimate),
		Status:             models.StatusForEvaluation,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&order).Error; err != nil {
			return err
		}
		return tx.Create(&models.OrderStatusEvent{
			OrderID:  order.ID,
			ToStatus: order.Status,
			Reason:   "Order placed",
			ActorID:  customer.ID,
		}).Error
	})
	if err != nil {
		return nil, utils.NewInternalError("Failed to create order", err)
	}

	order.Product = &product
	s.publishOrder(ctx, realtime.EventInsert, nil, &order)
	s.notify(ctx, order, "", "Order placed")
	return &order, nil
}

// Get loads an order with its product and customer
func (s *OrderService) Get(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).Preload("Product").Preload("Customer").First(&order, "id = ?", id).Error
	if err != nil {
		if utils.IsNotFound(err) {
			return nil, utils.NewNotFoundError("ORDER_NOT_FOUND", "Order not found")
		}
		return nil, utils.NewInternalError("Failed to retrieve order", err)
	}
	return &order, nil
}

// GetForUser loads an order the user may see: their own, or any for staff
func (s *OrderService) GetForUser(ctx context.Context, id string, user models.User) (*models.Order, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin() && order.CustomerID != user.ID {
		return nil, utils.NewForbiddenError("You do not have permission to access this order")
	}
	return order, nil
}

// List returns a page of orders, newest first
func (s *OrderService) List(ctx context.Context, f OrderFilter, page, limit int) ([]models.Order, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Order{})
	if f.Status != "" {
		query = query.Where("orders.status = ?", f.Status)
	}
	if f.CustomerID != 0 {
		query = query.Where("orders.customer_id = ?", f.CustomerID)
	}
	if search := strings.ToLower(strings.TrimSpace(f.Search)); search != "" {
		like := "%" + search + "%"
		query = query.Joins("LEFT JOIN users ON users.id = orders.customer_id").
			Where("LOWER(orders.id) LIKE ? OR LOWER(users.company_name) LIKE ? OR LOWER(users.name) LIKE ?", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	var orders []models.Order
	err := query.Preload("Product").Preload("Customer").
		Order("orders.created_at DESC").Order("orders.id").
		Offset(utils.Offset(page, limit)).Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, total, nil
}

// Views attaches the latest payment and available actions to each order
func (s *OrderService) Views(ctx context.Context, orders []models.Order) ([]OrderView, error) {
	views := make([]OrderView, len(orders))
	if len(orders) == 0 {
		return views, nil
	}

	ids := make([]string, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}

	var payments []models.Payment
	if err := s.db.WithContext(ctx).Where("order_id IN ?", ids).
		Order("created_at DESC").Order("id DESC").Find(&payments).Error; err != nil {
		return nil, fmt.Errorf("load payments: %w", err)
	}
	latest := make(map[string]*models.Payment, len(payments))
	for i := range payments {
		if _, seen := latest[payments[i].OrderID]; !seen {
			latest[payments[i].OrderID] = &payments[i]
		}
	}

	var rated []string
	if err := s.db.WithContext(ctx).Model(&models.Feedback{}).
		Where("order_id IN ?", ids).Pluck("order_id", &rated).Error; err != nil {
		return nil, fmt.Errorf("load feedback: %w", err)
	}
	ratedSet := make(map[string]bool, len(rated))
	for _, id := range rated {
		ratedSet[id] = true
	}

	for i, o := range orders {
		views[i] = OrderView{
			Order:         o,
			TotalPrice:    effectiveTotal(o),
			LatestPayment: latest[o.ID],
			Actions:       models.AvailableActions(o, latest[o.ID], ratedSet[o.ID]),
		}
	}
	return views, nil
}

// View builds the view of a single order
func (s *OrderService) View(ctx context.Context, order models.Order) (OrderView, error) {
	views, err := s.Views(ctx, []models.Order{order})
	if err != nil {
		return OrderView{}, err
	}
	return views[0], nil
}

// LatestPayment returns the most recent payment of an order, or nil
func (s *OrderService) LatestPayment(ctx context.Context, orderID string) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.WithContext(ctx).Where("order_id = ?", orderID).
		Order("created_at DESC").Order("id DESC").First(&payment).Error
	if err != nil {
		if utils.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("load latest payment: %w", err)
	}
	return &payment, nil
}

// History returns the status changes of an order, oldest first
func (s *OrderService) History(ctx context.Context, orderID string) ([]models.OrderStatusEvent, error) {
	var events []models.OrderStatusEvent
	err := s.db.WithContext(ctx).Where("order_id = ?", orderID).
		Order("created_at").Order("id").Find(&events).Error
	if err != nil {
		return nil, utils.NewInternalError("Failed to retrieve order history", err)
	}
	return events, nil
}

// Cancel moves the order to Cancelled; only the owner or staff may cancel
func (s *OrderService) Cancel(ctx context.Context, id string, actor models.User, reason string) (*models.Order, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, utils.NewValidationError("A cancellation reason is required", map[string]string{"reason": "required"})
	}

	return s.mutate(ctx, id, actor, func(tx *gorm.DB, o *models.Order) (string, error) {
		if !actor.IsAdmin() && o.CustomerID != actor.ID {
			return "", utils.NewForbiddenError("You do not have permission to cancel this order")
		}
		if err := o.Cancel(reason, s.now()); err != nil {
			return "", utils.NewTransitionError(
				fmt.Sprintf("Orders can only be cancelled while %s or %s", models.StatusForEvaluation, models.StatusWaitingForPayment), err)
		}
		return strings.TrimSpace(reason), nil
	})
}

// Update applies a staff patch
func (s *OrderService) Update(ctx context.Context, id string, actor models.User, patch OrderPatch) (*models.Order, error) {
	var verified, verifiedBefore *models.Payment

	updated, err := s.mutate(ctx, id, actor, func(tx *gorm.DB, o *models.Order) (string, error) {
		if patch.Deadline != nil {
			o.Deadline = patch.Deadline
		}
		if patch.TotalPrice != nil {
			if patch.TotalPrice.IsNegative() {
				return "", utils.NewValidationError("Total price cannot be negative", map[string]string{"total_price": "gte"})
			}
			o.TotalPrice = decimal.NewNullDecimal(patch.TotalPrice.Round(2))
		}
		if patch.FinalBreakdown != nil {
			if !patch.FinalBreakdown.IsSet() {
				return "", utils.NewValidationError("Final breakdown must have a positive total", map[string]string{"final_breakdown": "total"})
			}
			o.FinalBreakdown = datatypes.NewJSONType(*patch.FinalBreakdown)
		}
		if patch.TrackingLink != nil {
			o.TrackingLink = strings.TrimSpace(*patch.TrackingLink)
		}
		if patch.RequiresContractAmendment != nil {
			if *patch.RequiresContractAmendment {
				if err := o.RequireAmendment(); err != nil {
					return "", utils.NewTransitionError(err.Error(), err)
				}
			} else {
				o.RequiresContractAmendment = false
			}
		}

		if patch.Status == nil || *patch.Status == o.Status {
			return patch.Reason, nil
		}

		next := *patch.Status
		if next == models.StatusCancelled {
			if err := o.Cancel(patch.Reason, s.now()); err != nil {
				if o.Status.IsCancellable() {
					return "", utils.NewValidationError("A cancellation reason is required", map[string]string{"reason": "required"})
				}
				return "", utils.NewTransitionError(err.Error(), err)
			}
			return patch.Reason, nil
		}
		if next == models.StatusInProduction && o.Deadline == nil {
			return "", utils.NewValidationError("A deadline is required before production starts", map[string]string{"deadline": "required"})
		}
		if o.Status == models.StatusVerifyingPayment && next == models.StatusInProduction {
			// starting production accepts the pending payment
			var payment models.Payment
			err := tx.Where("order_id = ? AND status = ?", o.ID, models.PaymentPendingVerification).
				Order("created_at DESC").First(&payment).Error
			if err != nil && !utils.IsNotFound(err) {
				return "", err
			}
			if err == nil {
				before := payment
				now := s.now()
				payment.Status = models.PaymentVerified
				payment.VerifiedAt = &now
				if err := tx.Save(&payment).Error; err != nil {
					return "", err
				}
				verified, verifiedBefore = &payment, &before
			}
		} else if msg, managed := staffManagedFrom[o.Status]; managed {
			return "", utils.NewTransitionError(msg, &models.TransitionError{From: o.Status, To: next})
		}
		if err := o.Transition(next); err != nil {
			return "", utils.NewTransitionError(err.Error(), err)
		}
		return patch.Reason, nil
	})
	if err != nil {
		return nil, err
	}

	if verified != nil {
		s.publishPayment(ctx, realtime.EventUpdate, verifiedBefore, verified)
	}
	return updated, nil
}

// SignContract validates and stores the signature, then marks the contract
// signed. A first signature in Contract Signing moves the order on to Waiting for Payment.
func (s *OrderService) SignContract(ctx context.Context, id string, actor models.User, req SignRequest) (*models.Order, error) {
	order, err := s.GetForUser(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	view, err := s.View(ctx, *order)
	if err != nil {
		return nil, utils.NewInternalError("Failed to load order state", err)
	}
	if !view.Actions.SignContract && !view.Actions.SignAmendment {
		return nil, utils.NewTransitionError("The contract cannot be signed in the order's current state", nil)
	}

	req.OrderID = order.ID
	key, err := StoreContractSignature(ctx, s.files, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptySignature), errors.Is(err, ErrInvalidSignature):
			return nil, utils.NewValidationError(err.Error(), map[string]string{"signature": "required"})
		case errors.Is(err, ErrTermsNotAccepted):
			return nil, utils.NewValidationError(err.Error(), map[string]string{"agreed": "required"})
		}
		return nil, utils.NewUpstreamError("Failed to store signature", err)
	}

	updated, err := s.mutate(ctx, id, actor, func(tx *gorm.DB, o *models.Order) (string, error) {
		if o.ContractSigned && !o.RequiresContractAmendment {
			return "", utils.NewTransitionError("The contract has already been signed", nil)
		}
		reason := "Contract signed"
		if o.RequiresContractAmendment {
			reason = "Contract amendment signed"
		}
		now := s.now()
		o.ContractSigned = true
		o.ContractSignedAt = &now
		o.SignatureKey = &key
		o.RequiresContractAmendment = false
		if o.Status == models.StatusContractSigning {
			if err := o.Transition(models.StatusWaitingForPayment); err != nil {
				return "", utils.NewTransitionError(err.Error(), err)
			}
		}
		return reason, nil
	})
	if err != nil {
		s.discardFile(ctx, key)
		return nil, err
	}
	return updated, nil
}

// mutateFunc changes o inside a transaction and returns the reason recorded with a status change
type mutateFunc func(tx *gorm.DB, o *models.Order) (string, error)

// mutate loads the order inside a transaction, applies fn, records history when
// the status moved, then publishes and notifies after commit.
func (s *OrderService) mutate(ctx context.Context, id string, actor models.User, fn mutateFunc) (*models.Order, error) {
	var before, after models.Order
	var reason string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// row lock: concurrent mutations of one order run one after the other
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&after, "id = ?", id).Error; err != nil {
			if utils.IsNotFound(err) {
				return utils.NewNotFoundError("ORDER_NOT_FOUND", "Order not found")
			}
			return err
		}
		before = after

		var err error
		if reason, err = fn(tx, &after); err != nil {
			return err
		}

		if err := tx.Omit(clause.Associations).Save(&after).Error; err != nil {
			return err
		}
		if after.Status != before.Status {
			return tx.Create(&models.OrderStatusEvent{
				OrderID:    after.ID,
				FromStatus: before.Status,
				ToStatus:   after.Status,
				Reason:     reason,
				ActorID:    actor.ID,
			}).Error
		}
		return nil
	})
	if err != nil {
		var appErr *utils.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, utils.NewInternalError("Failed to update order", err)
	}

	s.publishOrder(ctx, realtime.EventUpdate, &before, &after)
	if after.Status != before.Status {
		s.notify(ctx, after, before.Status, reason)
	}
	return &after, nil
}

func (s *OrderService) publishOrder(ctx context.Context, typ realtime.EventType, before, after *models.Order) {
	row := after
	if row == nil {
		row = before
	}
	var oldRow, newRow interface{}
	if before != nil {
		oldRow = before
	}
	if after != nil {
		newRow = after
	}
	s.publish(ctx, realtime.TableOrders, typ, row.ID, row.CustomerID, row.UpdatedAt, oldRow, newRow)
}

func (s *OrderService) publishPayment(ctx context.Context, typ realtime.EventType, before, after *models.Payment) {
	row := after
	if row == nil {
		row = before
	}
	var oldRow, newRow interface{}
	version := row.UpdatedAt
	if before != nil {
		oldRow = before
	}
	if after != nil {
		newRow = after
	} else {
		version = s.now()
	}
	s.publish(ctx, realtime.TablePayments, typ, strconv.FormatUint(uint64(row.ID), 10), row.CustomerID, version, oldRow, newRow)
}

// publish announces a committed change; feed failures are logged, never returned
func (s *OrderService) publish(ctx context.Context, table string, typ realtime.EventType, id string, customerID uint, version time.Time, oldRow, newRow interface{}) {
	if s.hub == nil {
		return
	}
	ev, err := realtime.NewEvent(table, typ, id, strconv.FormatUint(uint64(customerID), 10), version, oldRow, newRow)
	if err == nil {
		err = s.hub.Publish(ctx, ev)
	}
	if err != nil {
		logger.Error(ctx, "Failed to publish change event", err,
			zap.String("table", table),
			zap.String("id", id),
			zap.String("event_type", string(typ)),
		)
	}
}

func (s *OrderService) notify(ctx context.Context, order models.Order, from models.OrderStatus, reason string) {
	err := s.notifier.NotifyStatusChange(ctx, StatusNotification{
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		From:       from,
		To:         order.Status,
		Reason:     reason,
		At:         s.now(),
	})
	if err != nil {
		logger.Warn(ctx, "Failed to send status notification",
			zap.String("order_id", order.ID),
			zap.String("status", string(order.Status)),
			zap.Error(err),
		)
	}
}

func (s *OrderService) discardFile(ctx context.Context, key string) {
	if s.files == nil || key == "" {
		return
	}
	if err := s.files.DeleteFile(ctx, key); err != nil {
		logger.Warn(ctx, "Failed to remove orphaned file", zap.String("key", key), zap.Error(err))
	}
}
