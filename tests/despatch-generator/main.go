package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const orderTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<Order xmlns="urn:oasis:names:specification:ubl:schema:xsd:Order-2"
       xmlns:cbc="urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"
       xmlns:cac="urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2">
    <cbc:ID>%s</cbc:ID>
    <cbc:UUID>%s</cbc:UUID>
    <cbc:IssueDate>%s</cbc:IssueDate>
    <cbc:BuyerReference>%s</cbc:BuyerReference>
%s</Order>`

const lineTemplate = `    <cac:OrderLine>
        <cac:LineItem>
            <cbc:Quantity>%d</cbc:Quantity>
            <cac:Item>
                <cac:SellersItemIdentification>
                    <cbc:ID>ITEM-%03d</cbc:ID>
                </cac:SellersItemIdentification>
            </cac:Item>
            <cac:Price>
                <cbc:PriceAmount>%d.%02d</cbc:PriceAmount>
            </cac:Price>
        </cac:LineItem>
    </cac:OrderLine>
`

func randomHex(n int) string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:n]
}

func generateOrderDocument() (string, string) {
	orderID := "ORD-" + randomHex(8)
	docUUID := uuid.NewString()

	var lines strings.Builder
	for i := 0; i < rand.Intn(3)+1; i++ {
		fmt.Fprintf(&lines, lineTemplate,
			rand.Intn(20)+1,
			rand.Intn(900)+1,
			rand.Intn(500)+1,
			rand.Intn(100),
		)
	}

	doc := fmt.Sprintf(orderTemplate,
		orderID,
		docUUID,
		time.Now().Format("2006-01-02"),
		fmt.Sprintf("CUST-%d", rand.Intn(1000)),
		lines.String(),
	)
	return doc, orderID
}

func main() {
	addr := kafka.TCP("localhost:9092")

	writer := &kafka.Writer{
		Addr:  addr,
		Topic: "order-documents",
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	ticker := time.NewTicker(2 * time.Second)
	for {
		select {
		case <-ticker.C:
			doc, orderID := generateOrderDocument()
			writer.WriteMessages(context.Background(), kafka.Message{Value: []byte(doc)})
			log.Println("order document generated", orderID)
		case <-ctx.Done():
			return
		}
	}
}
