// Command webhook-sign prints the signature headers for a payment webhook body, for
// exercising POST /webhooks/payment by hand:
//
//	webhook-sign -secret dev-webhook-secret -order 3f2a... | sh
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	dompayment "github.com/Zhima-Mochi/minishop-inventory/internal/domain/payment"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func main() {
	var (
		secret  = flag.String("secret", os.Getenv("MINISHOP_WEBHOOK__SECRET"), "shared webhook secret")
		orderID = flag.String("order", "", "order id to confirm")
		event   = flag.String("event", dompayment.EventPaymentSucceeded, "notification type")
		eventID = flag.String("event-id", "", "event id; random when empty")
		amount  = flag.String("amount", "0", "payment amount")
		url     = flag.String("url", "http://localhost:8080/webhooks/payment", "webhook endpoint")
		stdin   = flag.Bool("stdin", false, "sign the raw body read from stdin instead of building one")
	)
	flag.Parse()

	if *secret == "" {
		fmt.Fprintln(os.Stderr, "webhook-sign: -secret is required")
		os.Exit(2)
	}
	if *eventID == "" {
		*eventID = uuid.NewString()
	}

	var body []byte
	if *stdin {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintln(os.Stderr, "webhook-sign:", err)
			os.Exit(1)
		}
		body = b
	} else {
		amt, err := decimal.NewFromString(*amount)
		if err != nil {
			fmt.Fprintln(os.Stderr, "webhook-sign: -amount:", err)
			os.Exit(2)
		}
		body, err = json.Marshal(dompayment.Notification{
			Event:    *event,
			EventID:  *eventID,
			OrderID:  *orderID,
			Amount:   amt,
			Currency: "USD",
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "webhook-sign:", err)
			os.Exit(1)
		}
	}

	sig := dompayment.Sign(body, []byte(*secret))
	fmt.Printf("curl -sS -X POST %q -H 'Content-Type: application/json' -H 'X-Webhook-Signature: %s' -H 'X-Event-Id: %s' --data-binary %q\n",
		*url, sig, *eventID, string(body))
}
