package model

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/facturkit/facturkit/internal/apperr"
)

// Unit-of-measure codes per UN/ECE Recommendation 20.
const (
	UnitPiece    = "C62"
	UnitHour     = "HUR"
	UnitDay      = "DAY"
	UnitKilogram = "KGM"
	UnitMeter    = "MTR"
	UnitLiter    = "LTR"
)

// minQuantity is the smallest accepted line item quantity.
var minQuantity = decimal.RequireFromString("0.001")

// LineItem is a single invoice position. Amounts are derived on demand and
// never stored.
type LineItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	TaxRate     decimal.Decimal `json:"taxRate"`
	Unit        string          `json:"unit"`
}

// NetAmount is quantity × unit price, rounded half-up to 2 decimals.
func (it LineItem) NetAmount() decimal.Decimal {
	return it.Quantity.Mul(it.UnitPrice).Round(2)
}

// TaxAmount is the net amount times the rate percentage, rounded half-up
// to 2 decimals.
func (it LineItem) TaxAmount() decimal.Decimal {
	return it.NetAmount().Mul(it.TaxRate).Div(decimal.NewFromInt(100)).Round(2)
}

// GrossAmount is net plus tax.
func (it LineItem) GrossAmount() decimal.Decimal {
	return it.NetAmount().Add(it.TaxAmount())
}

// InvoiceMetadata is the complete data set of an e-invoice.
type InvoiceMetadata struct {
	InvoiceNumber  string       `json:"invoiceNumber"`
	IssueDate      Date         `json:"issueDate"`
	DueDate        *Date        `json:"dueDate,omitempty"`
	Seller         Party        `json:"seller"`
	Buyer          Party        `json:"buyer"`
	Items          []LineItem   `json:"items"`
	BankDetails    *BankDetails `json:"bankDetails,omitempty"`
	PaymentTerms   string       `json:"paymentTerms,omitempty"`
	Notes          string       `json:"notes,omitempty"`
	Currency       string       `json:"currency"`
	BuyerReference string       `json:"buyerReference,omitempty"`
	OrderReference string       `json:"orderReference,omitempty"`
}

// Normalize applies defaulting and the party/bank normalization rules.
func (m *InvoiceMetadata) Normalize() {
	if m.Currency == "" {
		m.Currency = "EUR"
	}
	m.Currency = strings.ToUpper(strings.TrimSpace(m.Currency))
	m.Seller.Normalize()
	m.Buyer.Normalize()
	if m.BankDetails != nil {
		m.BankDetails.Normalize()
	}
}

// Validate checks the metadata ahead of generation.
func (m InvoiceMetadata) Validate() error {
	switch {
	case strings.TrimSpace(m.InvoiceNumber) == "":
		return apperr.New(apperr.KindValidation, "invoice number is required", "")
	case m.IssueDate.IsZero():
		return apperr.New(apperr.KindValidation, "issue date is required", "")
	case strings.TrimSpace(m.Seller.Name) == "":
		return apperr.New(apperr.KindValidation, "seller name is required", "")
	case strings.TrimSpace(m.Buyer.Name) == "":
		return apperr.New(apperr.KindValidation, "buyer name is required", "")
	case len(m.Items) == 0:
		return apperr.New(apperr.KindValidation, "at least one line item is required", "")
	}
	if err := m.Seller.Address.validate("seller"); err != nil {
		return err
	}
	if err := m.Buyer.Address.validate("buyer"); err != nil {
		return err
	}
	for i, it := range m.Items {
		if err := it.validate(i + 1); err != nil {
			return err
		}
	}
	return nil
}

func (it LineItem) validate(position int) error {
	detail := fmt.Sprintf("item %d", position)
	switch {
	case strings.TrimSpace(it.Description) == "":
		return apperr.New(apperr.KindValidation, "item description is required", detail)
	case it.Quantity.LessThan(minQuantity):
		return apperr.New(apperr.KindValidation, "item quantity must be at least 0.001", detail)
	case it.UnitPrice.IsNegative():
		return apperr.New(apperr.KindValidation, "item unit price must not be negative", detail)
	case it.TaxRate.IsNegative():
		return apperr.New(apperr.KindValidation, "item tax rate must not be negative", detail)
	case strings.TrimSpace(it.Unit) == "":
		return apperr.New(apperr.KindValidation, "item unit code is required", detail)
	}
	return nil
}

// TotalNet sums the rounded per-item net amounts, rounded to 2 decimals.
func (m InvoiceMetadata) TotalNet() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range m.Items {
		sum = sum.Add(it.NetAmount())
	}
	return sum.Round(2)
}

// TotalTax sums the rounded per-item tax amounts, rounded to 2 decimals.
func (m InvoiceMetadata) TotalTax() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range m.Items {
		sum = sum.Add(it.TaxAmount())
	}
	return sum.Round(2)
}

// TotalGross is TotalNet plus TotalTax.
func (m InvoiceMetadata) TotalGross() decimal.Decimal {
	return m.TotalNet().Add(m.TotalTax())
}

// TaxGroup aggregates the items sharing one tax rate.
type TaxGroup struct {
	Rate decimal.Decimal
	Net  decimal.Decimal
	Tax  decimal.Decimal
}

// TaxBreakdown groups net and tax sums per distinct rate, each rounded to
// 2 decimals, ordered by ascending rate.
func (m InvoiceMetadata) TaxBreakdown() []TaxGroup {
	byRate := make(map[string]*TaxGroup)
	for _, it := range m.Items {
		key := it.TaxRate.String()
		g, ok := byRate[key]
		if !ok {
			g = &TaxGroup{Rate: it.TaxRate, Net: decimal.Zero, Tax: decimal.Zero}
			byRate[key] = g
		}
		g.Net = g.Net.Add(it.NetAmount())
		g.Tax = g.Tax.Add(it.TaxAmount())
	}
	groups := make([]TaxGroup, 0, len(byRate))
	for _, g := range byRate {
		groups = append(groups, TaxGroup{
			Rate: g.Rate,
			Net:  g.Net.Round(2),
			Tax:  g.Tax.Round(2),
		})
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Rate.LessThan(groups[j].Rate)
	})
	return groups
}

// HasPaymentDetails reports whether an IBAN is present.
func (m InvoiceMetadata) HasPaymentDetails() bool {
	return m.BankDetails != nil && m.BankDetails.IBAN != ""
}

// Date is a calendar date serialized as "2006-01-02".
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

// NewDate builds a Date at midnight UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// String renders the date in the wire layout.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}
