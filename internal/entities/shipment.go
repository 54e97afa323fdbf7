package entities

import "regexp"

// ShipmentIDPattern is the required shipment identifier format.
var ShipmentIDPattern = regexp.MustCompile(`^SHIP-\d{6}$`)

// Shipment describes the physical delivery of a despatch advice.
// The identifier must be unique in storage; a duplicate is reported
// as a conflict, never silently overwritten.
type Shipment struct {
	ID                      string         `json:"ID"`
	ConsignmentID           string         `json:"ConsignmentID"`
	DeliveryAddress         PostalAddress  `json:"DeliveryAddress"`
	RequestedDeliveryPeriod DeliveryPeriod `json:"RequestedDeliveryPeriod"`
}

type DeliveryPeriod struct {
	StartDate string `json:"StartDate"`
	StartTime string `json:"StartTime"`
	EndDate   string `json:"EndDate"`
	EndTime   string `json:"EndTime"`
}
