// Package facturx renders invoice metadata as an EN 16931
// cross-industry-invoice XML document, the structured payload embedded into
// the generated PDF as factur-x.xml.
package facturx

import (
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/facturkit/facturkit/internal/model"
)

// AttachmentName is the filename of the embedded XML per the Factur-X
// specification.
const AttachmentName = "factur-x.xml"

const (
	nsRSM = "urn:un:unece:uncefact:data:standard:CrossIndustryInvoice:100"
	nsRAM = "urn:un:unece:uncefact:data:standard:ReusableAggregateBusinessInformationEntity:100"
	nsUDT = "urn:un:unece:uncefact:data:standard:UnqualifiedDataType:100"

	guidelineEN16931 = "urn:cen.eu:en16931:2017"
	typeCodeInvoice  = "380"
	// dateFormat102 marks YYYYMMDD date strings.
	dateFormat102 = "102"
)

// Build renders the cross-industry-invoice document for meta. The metadata
// must already be normalized and validated.
func Build(meta model.InvoiceMetadata) ([]byte, error) {
	doc := newDocument(meta)
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal cross-industry invoice: %w", err)
	}
	return append([]byte(xml.Header), append(out, '\n')...), nil
}

type crossIndustryInvoice struct {
	XMLName  xml.Name `xml:"rsm:CrossIndustryInvoice"`
	XmlnsRSM string   `xml:"xmlns:rsm,attr"`
	XmlnsRAM string   `xml:"xmlns:ram,attr"`
	XmlnsUDT string   `xml:"xmlns:udt,attr"`

	Context     documentContext   `xml:"rsm:ExchangedDocumentContext"`
	Document    exchangedDocument `xml:"rsm:ExchangedDocument"`
	Transaction tradeTransaction  `xml:"rsm:SupplyChainTradeTransaction"`
}

type documentContext struct {
	Guideline idWrapper `xml:"ram:GuidelineSpecifiedDocumentContextParameter"`
}

type idWrapper struct {
	ID string `xml:"ram:ID"`
}

type exchangedDocument struct {
	ID        string    `xml:"ram:ID"`
	TypeCode  string    `xml:"ram:TypeCode"`
	IssueDate dateTime  `xml:"ram:IssueDateTime"`
	Notes     []xmlNote `xml:"ram:IncludedNote,omitempty"`
}

type xmlNote struct {
	Content string `xml:"ram:Content"`
}

type dateTime struct {
	Value dateTimeString `xml:"udt:DateTimeString"`
}

type dateTimeString struct {
	Format string `xml:"format,attr"`
	Value  string `xml:",chardata"`
}

type tradeTransaction struct {
	LineItems  []tradeLineItem `xml:"ram:IncludedSupplyChainTradeLineItem"`
	Agreement  tradeAgreement  `xml:"ram:ApplicableHeaderTradeAgreement"`
	Delivery   tradeDelivery   `xml:"ram:ApplicableHeaderTradeDelivery"`
	Settlement tradeSettlement `xml:"ram:ApplicableHeaderTradeSettlement"`
}

type tradeLineItem struct {
	LineDocument lineDocument   `xml:"ram:AssociatedDocumentLineDocument"`
	Product      tradeProduct   `xml:"ram:SpecifiedTradeProduct"`
	Agreement    lineAgreement  `xml:"ram:SpecifiedLineTradeAgreement"`
	Delivery     lineDelivery   `xml:"ram:SpecifiedLineTradeDelivery"`
	Settlement   lineSettlement `xml:"ram:SpecifiedLineTradeSettlement"`
}

type lineDocument struct {
	LineID string `xml:"ram:LineID"`
}

type tradeProduct struct {
	Name string `xml:"ram:Name"`
}

type lineAgreement struct {
	NetPrice priceAmount `xml:"ram:NetPriceProductTradePrice"`
}

type priceAmount struct {
	ChargeAmount string `xml:"ram:ChargeAmount"`
}

type lineDelivery struct {
	BilledQuantity quantity `xml:"ram:BilledQuantity"`
}

type quantity struct {
	UnitCode string `xml:"unitCode,attr"`
	Value    string `xml:",chardata"`
}

type lineSettlement struct {
	Tax       lineTax       `xml:"ram:ApplicableTradeTax"`
	Summation lineSummation `xml:"ram:SpecifiedTradeSettlementLineMonetarySummation"`
}

type lineTax struct {
	TypeCode     string `xml:"ram:TypeCode"`
	CategoryCode string `xml:"ram:CategoryCode"`
	RatePercent  string `xml:"ram:RateApplicablePercent"`
}

type lineSummation struct {
	LineTotal string `xml:"ram:LineTotalAmount"`
}

type tradeAgreement struct {
	BuyerReference string          `xml:"ram:BuyerReference,omitempty"`
	Seller         tradeParty      `xml:"ram:SellerTradeParty"`
	Buyer          tradeParty      `xml:"ram:BuyerTradeParty"`
	OrderReference *orderReference `xml:"ram:BuyerOrderReferencedDocument,omitempty"`
}

type orderReference struct {
	IssuerAssignedID string `xml:"ram:IssuerAssignedID"`
}

type tradeParty struct {
	Name            string           `xml:"ram:Name"`
	Contact         *tradeContact    `xml:"ram:DefinedTradeContact,omitempty"`
	Address         postalAddress    `xml:"ram:PostalTradeAddress"`
	TaxRegistration *taxRegistration `xml:"ram:SpecifiedTaxRegistration,omitempty"`
}

type tradeContact struct {
	PersonName string `xml:"ram:PersonName"`
}

type postalAddress struct {
	PostcodeCode string `xml:"ram:PostcodeCode"`
	LineOne      string `xml:"ram:LineOne"`
	CityName     string `xml:"ram:CityName"`
	CountryID    string `xml:"ram:CountryID"`
}

type taxRegistration struct {
	ID schemedID `xml:"ram:ID"`
}

type schemedID struct {
	SchemeID string `xml:"schemeID,attr"`
	Value    string `xml:",chardata"`
}

type tradeDelivery struct{}

type tradeSettlement struct {
	CurrencyCode string        `xml:"ram:InvoiceCurrencyCode"`
	PaymentMeans *paymentMeans `xml:"ram:SpecifiedTradeSettlementPaymentMeans,omitempty"`
	Taxes        []headerTax   `xml:"ram:ApplicableTradeTax"`
	PaymentTerms *paymentTerms `xml:"ram:SpecifiedTradePaymentTerms,omitempty"`
	Summation    headerSummary `xml:"ram:SpecifiedTradeSettlementHeaderMonetarySummation"`
}

type paymentMeans struct {
	TypeCode string      `xml:"ram:TypeCode"`
	Account  ibanAccount `xml:"ram:PayeePartyCreditorFinancialAccount"`
	Bank     *bicBank    `xml:"ram:PayeeSpecifiedCreditorFinancialInstitution,omitempty"`
}

type ibanAccount struct {
	IBANID string `xml:"ram:IBANID"`
}

type bicBank struct {
	BICID string `xml:"ram:BICID"`
}

type headerTax struct {
	CalculatedAmount string `xml:"ram:CalculatedAmount"`
	TypeCode         string `xml:"ram:TypeCode"`
	BasisAmount      string `xml:"ram:BasisAmount"`
	CategoryCode     string `xml:"ram:CategoryCode"`
	RatePercent      string `xml:"ram:RateApplicablePercent"`
}

type paymentTerms struct {
	Description string    `xml:"ram:Description,omitempty"`
	DueDate     *dateTime `xml:"ram:DueDateDateTime,omitempty"`
}

type headerSummary struct {
	LineTotal     string         `xml:"ram:LineTotalAmount"`
	TaxBasisTotal string         `xml:"ram:TaxBasisTotalAmount"`
	TaxTotal      currencyAmount `xml:"ram:TaxTotalAmount"`
	GrandTotal    string         `xml:"ram:GrandTotalAmount"`
	DuePayable    string         `xml:"ram:DuePayableAmount"`
}

type currencyAmount struct {
	CurrencyID string `xml:"currencyID,attr"`
	Value      string `xml:",chardata"`
}

func newDocument(meta model.InvoiceMetadata) crossIndustryInvoice {
	doc := crossIndustryInvoice{
		XmlnsRSM: nsRSM,
		XmlnsRAM: nsRAM,
		XmlnsUDT: nsUDT,
		Context: documentContext{
			Guideline: idWrapper{ID: guidelineEN16931},
		},
		Document: exchangedDocument{
			ID:        meta.InvoiceNumber,
			TypeCode:  typeCodeInvoice,
			IssueDate: newDateTime(meta.IssueDate),
		},
	}
	if meta.Notes != "" {
		doc.Document.Notes = []xmlNote{{Content: meta.Notes}}
	}

	for i, it := range meta.Items {
		doc.Transaction.LineItems = append(doc.Transaction.LineItems, tradeLineItem{
			LineDocument: lineDocument{LineID: strconv.Itoa(i + 1)},
			Product:      tradeProduct{Name: it.Description},
			Agreement: lineAgreement{
				NetPrice: priceAmount{ChargeAmount: it.UnitPrice.StringFixed(2)},
			},
			Delivery: lineDelivery{
				BilledQuantity: quantity{UnitCode: it.Unit, Value: it.Quantity.String()},
			},
			Settlement: lineSettlement{
				Tax: lineTax{
					TypeCode:     "VAT",
					CategoryCode: "S",
					RatePercent:  it.TaxRate.String(),
				},
				Summation: lineSummation{LineTotal: it.NetAmount().StringFixed(2)},
			},
		})
	}

	doc.Transaction.Agreement = tradeAgreement{
		BuyerReference: meta.BuyerReference,
		Seller:         newTradeParty(meta.Seller),
		Buyer:          newTradeParty(meta.Buyer),
	}
	if meta.OrderReference != "" {
		doc.Transaction.Agreement.OrderReference = &orderReference{
			IssuerAssignedID: meta.OrderReference,
		}
	}

	settlement := tradeSettlement{CurrencyCode: meta.Currency}
	if meta.HasPaymentDetails() {
		// 58 = SEPA credit transfer.
		means := &paymentMeans{
			TypeCode: "58",
			Account:  ibanAccount{IBANID: meta.BankDetails.IBAN},
		}
		if meta.BankDetails.BIC != "" {
			means.Bank = &bicBank{BICID: meta.BankDetails.BIC}
		}
		settlement.PaymentMeans = means
	}
	for _, g := range meta.TaxBreakdown() {
		settlement.Taxes = append(settlement.Taxes, headerTax{
			CalculatedAmount: g.Tax.StringFixed(2),
			TypeCode:         "VAT",
			BasisAmount:      g.Net.StringFixed(2),
			CategoryCode:     "S",
			RatePercent:      g.Rate.String(),
		})
	}
	if meta.PaymentTerms != "" || meta.DueDate != nil {
		terms := &paymentTerms{Description: meta.PaymentTerms}
		if meta.DueDate != nil && !meta.DueDate.IsZero() {
			due := newDateTime(*meta.DueDate)
			terms.DueDate = &due
		}
		settlement.PaymentTerms = terms
	}
	settlement.Summation = headerSummary{
		LineTotal:     meta.TotalNet().StringFixed(2),
		TaxBasisTotal: meta.TotalNet().StringFixed(2),
		TaxTotal: currencyAmount{
			CurrencyID: meta.Currency,
			Value:      meta.TotalTax().StringFixed(2),
		},
		GrandTotal: meta.TotalGross().StringFixed(2),
		DuePayable: meta.TotalGross().StringFixed(2),
	}
	doc.Transaction.Settlement = settlement

	return doc
}

func newTradeParty(p model.Party) tradeParty {
	party := tradeParty{
		Name: p.Name,
		Address: postalAddress{
			PostcodeCode: p.Address.PostalCode,
			LineOne:      p.Address.Street,
			CityName:     p.Address.City,
			CountryID:    p.Address.CountryCode,
		},
	}
	if p.ContactName != "" {
		party.Contact = &tradeContact{PersonName: p.ContactName}
	}
	if p.HasVATID() {
		// VA = VAT registration number scheme.
		party.TaxRegistration = &taxRegistration{
			ID: schemedID{SchemeID: "VA", Value: p.VATID},
		}
	}
	return party
}

func newDateTime(d model.Date) dateTime {
	return dateTime{Value: dateTimeString{
		Format: dateFormat102,
		Value:  d.Format("20060102"),
	}}
}
