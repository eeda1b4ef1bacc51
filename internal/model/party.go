package model

import (
	"strings"
	"unicode"

	"github.com/facturkit/facturkit/internal/apperr"
)

// Party is the seller or buyer of an invoice.
type Party struct {
	Name        string  `json:"name"`
	Address     Address `json:"address"`
	VATID       string  `json:"vatId,omitempty"`
	Email       string  `json:"email,omitempty"`
	Phone       string  `json:"phone,omitempty"`
	ContactName string  `json:"contactName,omitempty"`
}

// Normalize strips whitespace from and uppercases the VAT id, and
// normalizes the address.
func (p *Party) Normalize() {
	p.VATID = stripSpaceUpper(p.VATID)
	p.Address.Normalize()
}

// HasVATID reports whether a VAT id is present.
func (p Party) HasVATID() bool {
	return strings.TrimSpace(p.VATID) != ""
}

// Address is a postal address.
type Address struct {
	Street      string `json:"street"`
	City        string `json:"city"`
	PostalCode  string `json:"postalCode"`
	CountryCode string `json:"countryCode"`
}

// Normalize uppercases the country code.
func (a *Address) Normalize() {
	a.CountryCode = strings.ToUpper(strings.TrimSpace(a.CountryCode))
}

func (a Address) validate(owner string) error {
	switch {
	case strings.TrimSpace(a.Street) == "":
		return apperr.New(apperr.KindValidation, owner+" street is required", "")
	case strings.TrimSpace(a.City) == "":
		return apperr.New(apperr.KindValidation, owner+" city is required", "")
	case strings.TrimSpace(a.PostalCode) == "":
		return apperr.New(apperr.KindValidation, owner+" postal code is required", "")
	case len(strings.TrimSpace(a.CountryCode)) != 2:
		return apperr.New(apperr.KindValidation, owner+" country code must be 2 characters", "")
	}
	return nil
}

// Formatted renders the address on one line.
func (a Address) Formatted() string {
	return a.Street + ", " + a.PostalCode + " " + a.City + ", " + a.CountryCode
}

// BankDetails is the payment account of the seller.
type BankDetails struct {
	IBAN          string `json:"iban"`
	BIC           string `json:"bic,omitempty"`
	BankName      string `json:"bankName,omitempty"`
	AccountHolder string `json:"accountHolder,omitempty"`
}

// Normalize strips whitespace from and uppercases IBAN and BIC.
func (b *BankDetails) Normalize() {
	b.IBAN = stripSpaceUpper(b.IBAN)
	b.BIC = stripSpaceUpper(b.BIC)
}

// FormattedIBAN renders the IBAN in blocks of 4 separated by single spaces,
// without a trailing space.
func (b BankDetails) FormattedIBAN() string {
	iban := stripSpaceUpper(b.IBAN)
	if iban == "" {
		return ""
	}
	var sb strings.Builder
	for i, r := range iban {
		if i > 0 && i%4 == 0 {
			sb.WriteByte(' ')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func stripSpaceUpper(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToUpper(r)
	}, s)
}
