package document

import (
	"fmt"
	"strconv"

	"github.com/despatchhub/despatch-service/internal/entities"
	"github.com/despatchhub/despatch-service/internal/normalize"
	"github.com/shopspring/decimal"
)

// Document-type selectors accepted by Serialize.
const (
	TypeOrder          = "Order"
	TypeDespatchAdvice = "DespatchAdvice"
)

// Serialize renders a typed record as a UBL document of the requested
// type. Missing scalar fields render as empty text, missing booleans as
// "false". An unknown selector or a record that does not match the
// selector fails with ErrUnsupportedDocumentType.
func Serialize(record any, docType string) (string, error) {
	switch docType {
	case TypeOrder:
		switch doc := record.(type) {
		case entities.OrderDocument:
			return serializeOrder(doc), nil
		case *entities.OrderDocument:
			return serializeOrder(*doc), nil
		}
	case TypeDespatchAdvice:
		switch adv := record.(type) {
		case entities.DespatchAdvice:
			return serializeDespatchAdvice(adv), nil
		case *entities.DespatchAdvice:
			return serializeDespatchAdvice(*adv), nil
		}
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedDocumentType, docType)
	}
	return "", fmt.Errorf("%w: %T is not a %s record", ErrUnsupportedDocumentType, record, docType)
}

func serializeOrder(doc entities.OrderDocument) string {
	root := newElement("Order").
		setAttr("xmlns", nsOrder).
		setAttr("xmlns:cbc", nsBasic).
		setAttr("xmlns:cac", nsAggegate)

	root.leaf("cbc:ID", doc.ID)
	root.leaf("cbc:UUID", doc.UUID)
	root.leaf("cbc:IssueDate", doc.IssueDate)
	root.leaf("cbc:BuyerReference", doc.CustomerID)
	root.leaf("cbc:CopyIndicator", boolText(doc.CopyIndicator))
	root.leaf("cbc:DocumentStatusCode", statusCodeOrDefault(doc.DocumentStatusCode))
	root.leaf("cbc:Note", doc.Note)

	for _, item := range doc.Items {
		lineItem := root.node("cac:OrderLine").node("cac:LineItem")
		lineItem.leaf("cbc:Quantity", amountText(item.Quantity))
		lineItem.node("cac:Item").
			node("cac:SellersItemIdentification").
			leaf("cbc:ID", item.ItemID)
		lineItem.node("cac:Price").leaf("cbc:PriceAmount", amountText(item.Price))
	}

	return render(root)
}

func serializeDespatchAdvice(adv entities.DespatchAdvice) string {
	root := newElement("DespatchAdvice").
		setAttr("xmlns", nsDespatch).
		setAttr("xmlns:cbc", nsBasic).
		setAttr("xmlns:cac", nsAggegate)

	root.leaf("cbc:UBLVersionID", "2.0")
	root.leaf("cbc:CustomizationID", nsDespatch+".0:sbs-1.0-draft")
	root.leaf("cbc:ProfileID", "bpid:urn:oasis:names:draft:bpss:ubl-2-sbs-despatch-advice-notification-draft")
	root.leaf("cbc:ID", adv.DespatchID)
	root.leaf("cbc:CopyIndicator", "false")
	root.leaf("cbc:UUID", adv.UUID)
	root.leaf("cbc:IssueDate", adv.IssueDate)
	root.leaf("cbc:DocumentStatusCode", "NoStatus")
	root.leaf("cbc:DespatchAdviceTypeCode", "delivery")
	root.leaf("cbc:Note", adv.Note)

	if !adv.OrderReference.Empty() {
		ref := root.node("cac:OrderReference")
		ref.leaf("cbc:ID", adv.OrderReference.ID)
		ref.leaf("cbc:SalesOrderID", adv.OrderReference.SalesOrderID)
		ref.leaf("cbc:UUID", adv.OrderReference.UUID)
		ref.leaf("cbc:IssueDate", adv.OrderReference.IssueDate)
	}

	if adv.SupplierParty != (entities.PartySnapshot{}) {
		writeParty(root.node("cac:DespatchSupplierParty"), adv.SupplierParty)
	}
	if adv.CustomerParty != (entities.PartySnapshot{}) {
		writeParty(root.node("cac:DeliveryCustomerParty"), adv.CustomerParty)
	}
	if adv.Shipment != nil {
		writeShipment(root.node("cac:Shipment"), *adv.Shipment)
	}
	for _, line := range adv.Lines {
		writeDespatchLine(root.node("cac:DespatchLine"), line)
	}

	return render(root)
}

func writeParty(block *element, snap entities.PartySnapshot) {
	block.leaf("cbc:CustomerAssignedAccountID", snap.CustomerAssignedAccountID)
	block.leaf("cbc:SupplierAssignedAccountID", snap.SupplierAssignedAccountID)

	party := block.node("cac:Party")
	party.leaf("cbc:PartyName", snap.Party.PartyName)

	writeAddress(party.node("cac:PostalAddress"), snap.Party.PostalAddress)

	tax := party.node("cac:PartyTaxScheme")
	tax.leaf("cbc:RegistrationName", snap.Party.PartyTaxScheme.RegistrationName)
	tax.leaf("cbc:CompanyID", snap.Party.PartyTaxScheme.CompanyID)
	tax.leaf("cbc:ExemptionReason", snap.Party.PartyTaxScheme.ExemptionReason)
	scheme := tax.node("cac:TaxScheme")
	scheme.leaf("cbc:ID", snap.Party.PartyTaxScheme.TaxScheme.ID)
	scheme.leaf("cbc:TaxTypeCode", snap.Party.PartyTaxScheme.TaxScheme.TaxTypeCode)

	contact := party.node("cac:Contact")
	contact.leaf("cbc:Name", snap.Party.Contact.Name)
	contact.leaf("cbc:Telephone", snap.Party.Contact.Telephone)
	contact.leaf("cbc:Telefax", snap.Party.Contact.Telefax)
	contact.leaf("cbc:ElectronicMail", snap.Party.Contact.ElectronicMail)
}

func writeAddress(block *element, addr entities.PostalAddress) {
	block.leaf("cbc:StreetName", addr.StreetName)
	block.leaf("cbc:BuildingName", addr.BuildingName)
	block.leaf("cbc:BuildingNumber", addr.BuildingNumber)
	block.leaf("cbc:CityName", addr.CityName)
	block.leaf("cbc:PostalZone", addr.PostalZone)
	block.leaf("cbc:CountrySubentity", addr.CountrySubentity)
	block.node("cac:AddressLine").leaf("cbc:Line", addr.AddressLine)
	block.node("cac:Country").leaf("cbc:IdentificationCode", addr.CountryCode)
}

func writeShipment(block *element, sh entities.Shipment) {
	block.leaf("cbc:ID", sh.ID)
	block.node("cac:Consignment").leaf("cbc:ID", sh.ConsignmentID)

	delivery := block.node("cac:Delivery")
	writeAddress(delivery.node("cac:DeliveryAddress"), sh.DeliveryAddress)
	period := delivery.node("cac:RequestedDeliveryPeriod")
	period.leaf("cbc:StartDate", sh.RequestedDeliveryPeriod.StartDate)
	period.leaf("cbc:StartTime", sh.RequestedDeliveryPeriod.StartTime)
	period.leaf("cbc:EndDate", sh.RequestedDeliveryPeriod.EndDate)
	period.leaf("cbc:EndTime", sh.RequestedDeliveryPeriod.EndTime)
}

func writeDespatchLine(block *element, line entities.DespatchLine) {
	block.leaf("cbc:ID", line.LineID)
	block.leaf("cbc:Note", line.Note)
	block.leaf("cbc:LineStatusCode", string(line.Status))
	block.leaf("cbc:DeliveredQuantity", strconv.Itoa(line.DeliveredQuantity))
	block.leaf("cbc:BackOrderQuantity", strconv.Itoa(line.BackOrderQuantity))
	block.leaf("cbc:BackOrderReason", line.BackOrderReason)

	ref := block.node("cac:OrderLineReference")
	ref.leaf("cbc:LineID", line.OrderLineRef.LineID)
	ref.leaf("cbc:SalesOrderLineID", line.OrderLineRef.SalesOrderLineID)
	orderRef := ref.node("cac:OrderReference")
	orderRef.leaf("cbc:ID", line.OrderLineRef.OrderReference.ID)
	orderRef.leaf("cbc:SalesOrderID", line.OrderLineRef.OrderReference.SalesOrderID)
	orderRef.leaf("cbc:UUID", line.OrderLineRef.OrderReference.UUID)
	orderRef.leaf("cbc:IssueDate", line.OrderLineRef.OrderReference.IssueDate)

	item := block.node("cac:Item")
	item.leaf("cbc:Description", line.Item.Description)
	item.leaf("cbc:Name", line.Item.Name)
	item.node("cac:BuyersItemIdentification").leaf("cbc:ID", line.Item.BuyersItemID)
	item.node("cac:SellersItemIdentification").leaf("cbc:ID", line.Item.SellersItemID)
	lot := item.node("cac:ItemInstance").node("cac:LotIdentification")
	lot.leaf("cbc:LotNumberID", strconv.Itoa(line.LotNumber))
	if line.ExpiryDate.IsZero() {
		lot.leaf("cbc:ExpiryDate", "")
	} else {
		lot.leaf("cbc:ExpiryDate", normalize.FormatDate(line.ExpiryDate))
	}
}

func boolText(b *bool) string {
	if b == nil {
		return "false"
	}
	return strconv.FormatBool(*b)
}

func statusCodeOrDefault(code string) string {
	if code == "" {
		return "NoStatus"
	}
	return code
}

func amountText(d *decimal.Decimal) string {
	if d == nil {
		return "0"
	}
	return d.String()
}
