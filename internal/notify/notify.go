// Package notify composes the outbound message hand-offs: pre-filled WhatsApp
// deep links and mailto links. Delivery is the user's messaging app; there is
// no confirmation channel.
package notify

import (
	"fmt"
	"net/url"

	"github.com/zuritech/duka-api/internal/models"
)

// WhatsAppLink builds a wa.me deep link with the message pre-filled.
func WhatsAppLink(phone, message string) string {
	return fmt.Sprintf("https://wa.me/%s?text=%s", phone, url.QueryEscape(message))
}

// MailtoLink builds a mailto link with subject and body pre-filled.
func MailtoLink(to, subject, body string) string {
	params := url.Values{}
	params.Set("subject", subject)
	params.Set("body", body)
	// mailto wants %20, not + for spaces
	query := params.Encode()
	return "mailto:" + to + "?" + encodeSpaces(query)
}

func encodeSpaces(q string) string {
	out := make([]byte, 0, len(q))
	for i := 0; i < len(q); i++ {
		if q[i] == '+' {
			out = append(out, '%', '2', '0')
		} else {
			out = append(out, q[i])
		}
	}
	return string(out)
}

// OrderConfirmation is the message a customer sends the shop after checkout.
func OrderConfirmation(o *models.Order) string {
	return fmt.Sprintf(
		"Hello! I just placed order %s (special code %s). Total: KES %.0f. Please confirm.",
		o.DisplayCode, o.SpecialCode, o.Total)
}

// ListingDecision is the message sent to a seller after an admin moves their
// listing. The wording follows the new status.
func ListingDecision(l *models.GadgetListing, status models.ListingStatus) string {
	switch status {
	case models.ListingApproved:
		return fmt.Sprintf(
			"Hello %s, your listing for the %s (KES %.0f) has been approved and is now live on the marketplace.",
			l.SellerName, l.DeviceName, l.AskingPrice)
	case models.ListingRejected:
		return fmt.Sprintf(
			"Hello %s, your listing for the %s was not approved. Reply to this message if you would like details.",
			l.SellerName, l.DeviceName)
	default:
		return fmt.Sprintf(
			"Hello %s, your listing for the %s is now marked %s.",
			l.SellerName, l.DeviceName, status)
	}
}

// ListingInterest is the message a buyer sends about a marketplace gadget.
func ListingInterest(l *models.GadgetListing, buyerName string) string {
	return fmt.Sprintf(
		"Hi, this is %s. I'm interested in the %s (%s) listed at KES %.0f.",
		buyerName, l.DeviceName, l.Condition, l.AskingPrice)
}
