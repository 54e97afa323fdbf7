package entities

// PartySnapshot is a supplier or customer block as it appears on a
// despatch advice. The shape is fixed: absent source fields stay as
// empty strings so the rendered document always carries the full
// structure.
type PartySnapshot struct {
	CustomerAssignedAccountID string `json:"CustomerAssignedAccountID"`
	SupplierAssignedAccountID string `json:"SupplierAssignedAccountID"`
	Party                     Party  `json:"Party"`
}

type Party struct {
	PartyName      string         `json:"PartyName"`
	PostalAddress  PostalAddress  `json:"PostalAddress"`
	PartyTaxScheme PartyTaxScheme `json:"PartyTaxScheme"`
	Contact        Contact        `json:"Contact"`
}

type PostalAddress struct {
	StreetName       string `json:"StreetName"`
	BuildingName     string `json:"BuildingName"`
	BuildingNumber   string `json:"BuildingNumber"`
	CityName         string `json:"CityName"`
	PostalZone       string `json:"PostalZone"`
	CountrySubentity string `json:"CountrySubentity"`
	AddressLine      string `json:"AddressLine"`
	CountryCode      string `json:"CountryCode"`
}

type PartyTaxScheme struct {
	RegistrationName string    `json:"RegistrationName"`
	CompanyID        string    `json:"CompanyID"`
	ExemptionReason  string    `json:"ExemptionReason"`
	TaxScheme        TaxScheme `json:"TaxScheme"`
}

type TaxScheme struct {
	ID          string `json:"ID"`
	TaxTypeCode string `json:"TaxTypeCode"`
}

type Contact struct {
	Name           string `json:"Name"`
	Telephone      string `json:"Telephone"`
	Telefax        string `json:"Telefax"`
	ElectronicMail string `json:"ElectronicMail"`
}
