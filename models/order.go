package models

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MaterialMix maps a material name to its percentage of the hanger
type MaterialMix map[string]float64

// materialTolerance is how far the percentages may drift from 100
const materialTolerance = 0.5

// Validate checks every percentage is positive and that they sum to ~100
func (m MaterialMix) Validate() error {
	if len(m) == 0 {
		return fmt.Errorf("at least one material is required")
	}
	var sum float64
	for name, pct := range m {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("material name cannot be empty")
		}
		if pct <= 0 {
			return fmt.Errorf("material %q must have a positive percentage", name)
		}
		sum += pct
	}
	if math.Abs(sum-100) > materialTolerance {
		return fmt.Errorf("material percentages must add up to 100, got %.2f", sum)
	}
	return nil
}

// Customization is the optional print applied to the hangers
type Customization struct {
	Text      string `json:"text"`
	TextColor string `json:"text_color"`
	LogoKey   string `json:"logo_key"`
}

// Order represents one customer purchase request
type Order struct {
	ID                        string                          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CustomerID                uint                            `gorm:"not null;index" json:"customer_id"`
	Customer                  User                            `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	ProductID                 uint                            `gorm:"not null;index" json:"product_id"`
	Product                   *Product                        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity                  int                             `gorm:"not null;check:quantity > 0" json:"quantity"`
	Materials                 datatypes.JSONType[MaterialMix] `json:"materials"`
	Customization             Customization                   `gorm:"embedded;embeddedPrefix:custom_" json:"customization"`
	DeliveryAddress           Address                         `gorm:"embedded;embeddedPrefix:delivery_" json:"delivery_address"`
	TotalPrice                decimal.NullDecimal             `json:"total_price"`
	EstimatedBreakdown        datatypes.JSONType[Breakdown]   `json:"estimated_breakdown"`
	FinalBreakdown            datatypes.JSONType[Breakdown]   `json:"final_breakdown"`
	Deadline                  *time.Time                      `json:"deadline"`
	Status                    OrderStatus                     `gorm:"type:varchar(32);not null;default:'For Evaluation';index" json:"status"`
	ContractSigned            bool                            `gorm:"not null;default:false" json:"contract_signed"`
	ContractSignedAt          *time.Time                      `json:"contract_signed_at"`
	SignatureKey              *string                         `json:"signature_key,omitempty"`
	RequiresContractAmendment bool                            `gorm:"not null;default:false" json:"requires_contract_amendment"`
	TrackingLink              string                          `json:"tracking_link"`
	CancellationReason        *string                         `json:"cancellation_reason,omitempty"`
	CancelledAt               *time.Time                      `json:"cancelled_at,omitempty"`
	CreatedAt                 time.Time                       `gorm:"index" json:"created_at"`
	UpdatedAt                 time.Time                       `json:"updated_at"`
	DeletedAt                 gorm.DeletedAt                  `gorm:"index" json:"-"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// BeforeCreate assigns the opaque order identifier and the initial status
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Status == "" {
		o.Status = StatusForEvaluation
	}
	if !o.Status.IsValid() {
		return &TransitionError{To: o.Status}
	}
	return nil
}

// BeforeSave refuses to persist a status outside the enumeration
func (o *Order) BeforeSave(tx *gorm.DB) error {
	if o.Status != "" && !o.Status.IsValid() {
		return &TransitionError{To: o.Status}
	}
	return nil
}

// Key identifies the order in change-feed projections
func (o Order) Key() string {
	return o.ID
}

// Version orders competing copies of the same row
func (o Order) Version() time.Time {
	return o.UpdatedAt
}

// Transition moves the order to next if the lifecycle allows it
func (o *Order) Transition(next OrderStatus) error {
	if !next.IsValid() || !o.Status.CanTransitionTo(next) {
		return &TransitionError{From: o.Status, To: next}
	}
	o.Status = next
	return nil
}

// Cancel moves the order to Cancelled and records why
func (o *Order) Cancel(reason string, at time.Time) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return fmt.Errorf("a cancellation reason is required")
	}
	if !o.Status.IsCancellable() {
		return &TransitionError{From: o.Status, To: StatusCancelled}
	}
	if err := o.Transition(StatusCancelled); err != nil {
		return err
	}
	o.CancellationReason = &reason
	o.CancelledAt = &at
	return nil
}

// RequireAmendment flags a signed order for re-signature after staff changed its terms
func (o *Order) RequireAmendment() error {
	if o.Status.Rank() <= StatusContractSigning.Rank() || o.Status.IsTerminal() {
		return fmt.Errorf("amendments can only be requested after contract signing on an active order")
	}
	o.RequiresContractAmendment = true
	return nil
}

// MaterialMix returns the decoded material composition
func (o Order) MaterialMix() MaterialMix {
	return o.Materials.Data()
}

// EffectiveBreakdown returns the staff-entered final breakdown when present,
// else the checkout estimate; ok is false when neither was persisted
func (o Order) EffectiveBreakdown() (b Breakdown, final bool, ok bool) {
	if fb := o.FinalBreakdown.Data(); fb.IsSet() {
		return fb, true, true
	}
	if eb := o.EstimatedBreakdown.Data(); eb.IsSet() {
		return eb, false, true
	}
	return Breakdown{}, false, false
}

// PriceTotal is the authoritative total: admin override, then final, then estimate
func (o Order) PriceTotal() decimal.Decimal {
	if o.TotalPrice.Valid {
		return o.TotalPrice.Decimal
	}
	if b, _, ok := o.EffectiveBreakdown(); ok {
		return b.Total
	}
	return decimal.Zero
}
