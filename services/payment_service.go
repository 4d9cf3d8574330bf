package services

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"
	"time"

	"github.com/gatsishub/gatsishub-api/logger"
	"github.com/gatsishub/gatsishub-api/models"
	"github.com/gatsishub/gatsishub-api/realtime"
	"github.com/gatsishub/gatsishub-api/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SubmitPayment stores the proof and records a pending payment; the order moves to Verifying Payment
func (s *OrderService) SubmitPayment(ctx context.Context, orderID string, actor models.User, method string, proof *multipart.FileHeader) (*models.Payment, error) {
	method = strings.TrimSpace(method)
	if method == "" {
		return nil, utils.NewValidationError("Payment method is required", map[string]string{"payment_method": "required"})
	}
	if proof == nil {
		return nil, utils.NewValidationError("Proof of payment is required", map[string]string{"proof": "required"})
	}

	order, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.CustomerID != actor.ID {
		return nil, utils.NewForbiddenError("You can only pay for your own orders")
	}
	view, err := s.View(ctx, *order)
	if err != nil {
		return nil, utils.NewInternalError("Failed to load order state", err)
	}
	if !view.Actions.SubmitPayment {
		return nil, utils.NewTransitionError("A payment cannot be submitted for this order right now", nil)
	}
	if s.files == nil {
		return nil, utils.NewUpstreamError("File storage is not configured", nil)
	}

	key, err := s.files.UploadProof(ctx, proof)
	if err != nil {
		var uploadErr *utils.FileUploadError
		if errors.As(err, &uploadErr) {
			return nil, utils.NewValidationError(uploadErr.Message, map[string]string{"proof": uploadErr.Code})
		}
		return nil, utils.NewUpstreamError("Failed to upload proof of payment", err)
	}

	payment := models.Payment{
		OrderID:       order.ID,
		CustomerID:    actor.ID,
		ProofKey:      key,
		PaymentMethod: method,
		Status:        models.PaymentPendingVerification,
	}

	_, err = s.mutate(ctx, orderID, actor, func(tx *gorm.DB, o *models.Order) (string, error) {
		if err := o.Transition(models.StatusVerifyingPayment); err != nil {
			return "", utils.NewTransitionError("A payment cannot be submitted for this order right now", err)
		}
		if err := tx.Create(&payment).Error; err != nil {
			if utils.IsUniqueViolation(err) {
				return "", utils.NewTransitionError("A payment for this order is already awaiting verification", err)
			}
			return "", err
		}
		return "Payment submitted via " + method, nil
	})
	if err != nil {
		s.discardFile(ctx, key)
		return nil, err
	}

	s.publishPayment(ctx, realtime.EventInsert, nil, &payment)
	return &payment, nil
}

// GetPayment loads a payment by id
func (s *OrderService) GetPayment(ctx context.Context, id uint) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.WithContext(ctx).First(&payment, id).Error; err != nil {
		if utils.IsNotFound(err) {
			return nil, utils.NewNotFoundError("PAYMENT_NOT_FOUND", "Payment not found")
		}
		return nil, utils.NewInternalError("Failed to retrieve payment", err)
	}
	return &payment, nil
}

// AttachProofURL fills the computed proof URL
func (s *OrderService) AttachProofURL(ctx context.Context, p *models.Payment) {
	if p == nil || s.files == nil || p.ProofKey == "" {
		return
	}
	url, err := s.files.FileURL(ctx, p.ProofKey)
	if err != nil {
		logger.Warn(ctx, "Failed to build proof URL", zap.Uint("payment_id", p.ID), zap.Error(err))
		return
	}
	p.ProofURL = &url
}

// VerifyPayment records staff's verdict. Verified starts production; Rejected
// removes the payment so the customer can submit a new one.
func (s *OrderService) VerifyPayment(ctx context.Context, paymentID uint, actor models.User, verdict models.PaymentStatus, deadline *time.Time) (*models.Payment, error) {
	switch verdict {
	case models.PaymentVerified:
	case models.PaymentRejected:
		if err := s.RemovePayment(ctx, paymentID, actor, "Payment rejected"); err != nil {
			return nil, err
		}
		return nil, nil
	default:
		return nil, utils.NewValidationError("Status must be Verified or Rejected", map[string]string{"status": "oneof"})
	}

	payment, err := s.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.PaymentPendingVerification {
		return nil, utils.NewTransitionError("Only payments pending verification can be verified", nil)
	}
	before := *payment

	_, err = s.mutate(ctx, payment.OrderID, actor, func(tx *gorm.DB, o *models.Order) (string, error) {
		if deadline != nil {
			o.Deadline = deadline
		}
		if err := o.Transition(models.StatusInProduction); err != nil {
			return "", utils.NewTransitionError("The order is not awaiting payment verification", err)
		}
		now := s.now()
		payment.Status = models.PaymentVerified
		payment.VerifiedAt = &now
		if err := tx.Omit(clause.Associations).Save(payment).Error; err != nil {
			return "", err
		}
		return "Payment verified", nil
	})
	if err != nil {
		return nil, err
	}

	s.publishPayment(ctx, realtime.EventUpdate, &before, payment)
	return payment, nil
}

// RemovePayment deletes a payment and its proof. An order still awaiting
// verification reverts to Waiting for Payment.
func (s *OrderService) RemovePayment(ctx context.Context, paymentID uint, actor models.User, reason string) error {
	payment, err := s.GetPayment(ctx, paymentID)
	if err != nil {
		return err
	}

	_, err = s.mutate(ctx, payment.OrderID, actor, func(tx *gorm.DB, o *models.Order) (string, error) {
		switch {
		case o.Status == models.StatusVerifyingPayment:
			if err := o.Transition(models.StatusWaitingForPayment); err != nil {
				return "", utils.NewTransitionError(err.Error(), err)
			}
		case o.Status.Rank() > models.StatusVerifyingPayment.Rank():
			return "", utils.NewTransitionError("A payment cannot be removed once production has started", nil)
		}
		if err := tx.Unscoped().Delete(&models.Payment{}, payment.ID).Error; err != nil {
			return "", err
		}
		return reason, nil
	})
	if err != nil {
		return err
	}

	s.discardFile(ctx, payment.ProofKey)
	s.publishPayment(ctx, realtime.EventDelete, payment, nil)
	return nil
}
