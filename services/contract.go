package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"

	"github.com/gatsishub/gatsishub-api/models"
	"github.com/shopspring/decimal"
)

// compensationRate is the share of the total price owed if the seller defaults
var compensationRate = decimal.NewFromFloat(0.10)

const signatureDataURLPrefix = "data:image/png;base64,"

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

var (
	// ErrEmptySignature is returned when the signature pad was left blank
	ErrEmptySignature = errors.New("a signature is required to sign the contract")
	// ErrTermsNotAccepted is returned when the customer did not tick the agreement box
	ErrTermsNotAccepted = errors.New("you must agree to the contract terms")
	// ErrInvalidSignature is returned for anything that is not a base64 PNG data URL
	ErrInvalidSignature = errors.New("signature must be a PNG image")
)

// MaterialShare is one line of the contract's material composition
type MaterialShare struct {
	Name       string  `json:"name"`
	Percentage float64 `json:"percentage"`
}

// ContractDocument is the sales agreement generated for an order
type ContractDocument struct {
	OrderID            string          `json:"order_id"`
	CompanyName        string          `json:"company_name"`
	ContactPerson      string          `json:"contact_person"`
	ContactEmail       string          `json:"contact_email"`
	ProductName        string          `json:"product_name"`
	ProductDescription string          `json:"product_description"`
	Quantity           int             `json:"quantity"`
	Materials          []MaterialShare `json:"materials"`
	Customization      string          `json:"customization,omitempty"`
	DeliveryAddress    string          `json:"delivery_address"`
	DeliveryDate       string          `json:"delivery_date"`
	TotalPrice         decimal.Decimal `json:"total_price"`
	Compensation       decimal.Decimal `json:"compensation"`
	Signed             bool            `json:"signed"`
	SignedAt           *time.Time      `json:"signed_at,omitempty"`
	GeneratedAt        time.Time       `json:"generated_at"`
}

// BuildContract assembles the agreement; total is the order's authoritative price
func BuildContract(order models.Order, customer models.User, product models.Product, total decimal.Decimal) ContractDocument {
	mix := order.MaterialMix()
	names := make([]string, 0, len(mix))
	for name := range mix {
		names = append(names, name)
	}
	sort.Strings(names)

	shares := make([]MaterialShare, 0, len(names))
	for _, name := range names {
		shares = append(shares, MaterialShare{Name: name, Percentage: mix[name]})
	}

	deliveryDate := "To be confirmed"
	if order.Deadline != nil {
		deliveryDate = order.Deadline.Format("January 2, 2006")
	}

	contact := customer.ContactPerson
	if contact == "" {
		contact = customer.Name
	}

	var customization string
	if order.Customization.Text != "" {
		customization = fmt.Sprintf("Printed text %q", order.Customization.Text)
		if order.Customization.TextColor != "" {
			customization += " in " + order.Customization.TextColor
		}
	}
	if order.Customization.LogoKey != "" {
		if customization != "" {
			customization += " with "
		}
		customization += "customer logo"
	}

	return ContractDocument{
		OrderID:            order.ID,
		CompanyName:        customer.DisplayCompany(),
		ContactPerson:      contact,
		ContactEmail:       customer.Email,
		ProductName:        product.Name,
		ProductDescription: product.Description,
		Quantity:           order.Quantity,
		Materials:          shares,
		Customization:      customization,
		DeliveryAddress:    order.DeliveryAddress.String(),
		DeliveryDate:       deliveryDate,
		TotalPrice:         total.Round(2),
		Compensation:       total.Mul(compensationRate).Round(2),
		Signed:             order.ContractSigned,
		SignedAt:           order.ContractSignedAt,
		GeneratedAt:        time.Now(),
	}
}

var contractTemplate = template.Must(template.New("contract").Funcs(template.FuncMap{
	"peso": func(d decimal.Decimal) string { return "PHP " + d.StringFixed(2) },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Sales Agreement {{.Doc.OrderID}}</title>
<style>
body { font-family: Georgia, serif; max-width: 780px; margin: 2rem auto; color: #222; }
h1 { text-align: center; }
table { width: 100%; border-collapse: collapse; }
td, th { border: 1px solid #999; padding: 4px 8px; text-align: left; }
.signature img { max-height: 120px; }
</style>
</head>
<body>
<h1>Sales Agreement</h1>
<p>This agreement is made between <strong>GatsisHub</strong> (the Seller) and
<strong>{{.Doc.CompanyName}}</strong>, represented by {{.Doc.ContactPerson}} (the Buyer), for order
<code>{{.Doc.OrderID}}</code>.</p>

<h2>1. Goods</h2>
<p>{{.Doc.Quantity}} units of {{.Doc.ProductName}}{{if .Doc.ProductDescription}}: {{.Doc.ProductDescription}}{{end}}.</p>
{{if .Doc.Customization}}<p>Customization: {{.Doc.Customization}}.</p>{{end}}
<table>
<tr><th>Material</th><th>Share</th></tr>
{{range .Doc.Materials}}<tr><td>{{.Name}}</td><td>{{printf "%.1f" .Percentage}}%</td></tr>
{{end}}</table>

<h2>2. Delivery</h2>
<p>Goods will be delivered to {{.Doc.DeliveryAddress}} on or before {{.Doc.DeliveryDate}}.</p>

<h2>3. Price and payment</h2>
<p>The Buyer agrees to pay a total of <strong>{{peso .Doc.TotalPrice}}</strong>, inclusive of VAT and
delivery, before production starts.</p>

<h2>4. Compensation</h2>
<p>Should the Seller fail to deliver as agreed, the Seller shall pay the Buyer compensation of
{{peso .Doc.Compensation}} (10% of the total price).</p>

<div class="signature">
<p>Signed for the Buyer:</p>
{{if .Signature}}<img src="{{.Signature}}" alt="Buyer signature">{{else}}<p>______________________________</p>{{end}}
{{if .Doc.SignedAt}}<p>Date signed: {{.Doc.SignedAt.Format "January 2, 2006"}}</p>{{end}}
</div>
</body>
</html>
`))

// RenderContractHTML renders a standalone HTML document. signatureURL may be a
// fetchable URL of the stored signature, a PNG data URL, or empty.
func RenderContractHTML(doc ContractDocument, signatureURL string) (string, error) {
	data := struct {
		Doc       ContractDocument
		Signature template.URL
	}{Doc: doc}

	if safeSignatureURL(signatureURL) {
		data.Signature = template.URL(signatureURL)
	}

	var buf bytes.Buffer
	if err := contractTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render contract: %w", err)
	}
	return buf.String(), nil
}

func safeSignatureURL(u string) bool {
	return strings.HasPrefix(u, "https://") ||
		strings.HasPrefix(u, "http://") ||
		strings.HasPrefix(u, "/") ||
		strings.HasPrefix(u, signatureDataURLPrefix)
}

// DecodeSignature validates a signature pad export and returns the PNG bytes
func DecodeSignature(dataURL string) ([]byte, error) {
	dataURL = strings.TrimSpace(dataURL)
	if dataURL == "" {
		return nil, ErrEmptySignature
	}
	if !strings.HasPrefix(dataURL, signatureDataURLPrefix) {
		return nil, ErrInvalidSignature
	}

	payload := strings.TrimPrefix(dataURL, signatureDataURLPrefix)
	if payload == "" {
		return nil, ErrEmptySignature
	}

	img, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, ErrInvalidSignature
	}
	if !bytes.HasPrefix(img, pngMagic) {
		return nil, ErrInvalidSignature
	}
	return img, nil
}

// SignatureStore persists signature images
type SignatureStore interface {
	SaveSignature(ctx context.Context, orderID string, png []byte) (string, error)
}

// SignRequest is a customer's signing submission
type SignRequest struct {
	OrderID          string
	SignatureDataURL string
	Agreed           bool
}

// StoreContractSignature checks the submission and, only when it is acceptable,
// hands the decoded image to store. It returns the stored signature key.
func StoreContractSignature(ctx context.Context, store SignatureStore, req SignRequest) (string, error) {
	img, err := DecodeSignature(req.SignatureDataURL)
	if err != nil {
		return "", err
	}
	if !req.Agreed {
		return "", ErrTermsNotAccepted
	}
	if store == nil {
		return "", errors.New("no signature store configured")
	}

	return store.SaveSignature(ctx, req.OrderID, img)
}
