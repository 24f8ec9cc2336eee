package mail

import (
	"fmt"
	"html"
	"strings"

	"printdesk/internal/models"
)

// ConfirmationSubject returns the subject line for an order confirmation.
func ConfirmationSubject(orderNumber string) string {
	return "Order Confirmed - " + orderNumber
}

// BuildConfirmation renders the confirmation HTML from the persisted order
// row as it stands now — any status or content change since submission is
// reflected. Documents and merchandise are partitioned by the manifest's
// item kind.
func BuildConfirmation(o *models.Order) string {
	var b strings.Builder

	b.WriteString("<h2>Order Confirmation</h2>")
	fmt.Fprintf(&b, "<p><strong>Order No:</strong> %s</p>", html.EscapeString(o.OrderNumber))
	fmt.Fprintf(&b, "<p><strong>Total:</strong> ₹%.2f</p>", o.TotalCost)

	if !o.IsStationeryOnly() {
		printType := "Black & White"
		if o.PrintType == models.PrintColor {
			printType = "Color"
		}
		side := "Single Sided"
		if o.SideOption == models.SideDouble {
			side = "Back to Back"
		}
		spiral := "No"
		if o.SpiralBinding {
			spiral = "Yes"
		}
		fmt.Fprintf(&b, "<p><strong>Print Type:</strong> %s</p>", printType)
		fmt.Fprintf(&b, "<p><strong>Print Side:</strong> %s</p>", side)
		fmt.Fprintf(&b, "<p><strong>Spiral Binding:</strong> %s</p>", spiral)
	}

	if docs := o.Documents(); len(docs) > 0 {
		b.WriteString("<p><strong>Files:</strong></p><ul>")
		for _, d := range docs {
			fmt.Fprintf(&b, "<li>%s</li>", html.EscapeString(d.Label()))
		}
		b.WriteString("</ul>")
	}

	if merch := o.Merchandise(); len(merch) > 0 {
		b.WriteString("<p><strong>Stationery Items:</strong></p><ul>")
		for _, m := range merch {
			fmt.Fprintf(&b, "<li>%s</li>", html.EscapeString(m.Label()))
		}
		b.WriteString("</ul>")
	}

	return b.String()
}
