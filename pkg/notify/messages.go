package notify

import (
	"strings"
	"text/template"
	"time"

	"github.com/example/storefront/pkg/models"
)

type Kind string

const (
	KindWelcome           Kind = "welcome"
	KindLoginAlert        Kind = "login_alert"
	KindOrderConfirmation Kind = "order_confirmation"
	KindOrderAlert        Kind = "order_alert"
	KindNewsletterWelcome Kind = "newsletter_welcome"
	KindNewsletterAlert   Kind = "newsletter_alert"
)

// Message is one outgoing mail. Operator messages have no To; the
// dispatcher addresses them to the configured operator mailbox.
type Message struct {
	Kind     Kind
	To       []string
	Operator bool
	Subject  string
	Body     string
	EntityID string
}

const footer = `
---
This is an automated email. Please do not reply to this email.
`

var templates = template.Must(template.New("mail").Funcs(template.FuncMap{
	"date": func(t time.Time) string { return t.Format("January 02, 2006 at 03:04 PM") },
	"sub":  func(i models.OrderItem) string { return models.ItemTotal(i).StringFixed(2) },
}).Parse(`
{{define "welcome"}}Dear {{.Name}},

Thank you for registering with us!

Your account was created with the following details:
- Username: {{.Username}}
- Email: {{.Email}}

Happy shopping!
` + footer + `{{end}}

{{define "login_alert"}}Dear {{.Name}},

You have successfully logged in to your account on {{date .At}}.

If this wasn't you, please contact our support team immediately.
` + footer + `{{end}}

{{define "order_confirmation"}}Dear {{.Name}},

Thank you for your order! Your payment has been confirmed.

Order Details:
- Order Number: {{.Order.OrderNumber}}
- Order Date: {{date .Order.CreatedAt}}
- Total Amount: {{.Order.TotalAmount.StringFixed 2}}

Items Ordered:
{{range .Order.Items}}- {{.Product.Name}} x {{.Quantity}} - {{sub .}}
{{else}}No items
{{end}}
Shipping Address:
{{.Order.ShippingAddress}}
{{.Order.City}}, {{.Order.State}} - {{.Order.Pincode}}
Phone: {{.Order.Phone}}

Your order is being processed and will be shipped soon.
` + footer + `{{end}}

{{define "order_alert"}}New order received!

- Order Number: {{.Order.OrderNumber}}
- Order Date: {{date .Order.CreatedAt}}
- Customer: {{.Name}}
- Customer Email: {{.Order.Email}}
- Customer Phone: {{.Order.Phone}}
- Total Amount: {{.Order.TotalAmount.StringFixed 2}}
- Payment ID: {{.PaymentID}}
- Status: {{.Order.Status}}

Items Ordered:
{{range .Order.Items}}- {{.Product.Name}} (Qty: {{.Quantity}}) - {{sub .}}
{{else}}No items
{{end}}
Shipping Address:
{{.Order.ShippingAddress}}
{{.Order.City}}, {{.Order.State}} - {{.Order.Pincode}}
{{end}}

{{define "newsletter_welcome"}}Thank you for subscribing to our newsletter!

You will now receive beauty tips, exclusive offers and news about product launches.
` + footer + `{{end}}

{{define "newsletter_alert"}}New newsletter subscription!

Email: {{.Email}}
Subscription Date: {{date .At}}
{{end}}
`))

func render(name string, data interface{}) string {
	var b strings.Builder
	if err := templates.ExecuteTemplate(&b, name, data); err != nil {
		// Templates are fixed at compile time; a failure here is a programming error.
		panic(err)
	}
	return b.String()
}

func displayName(u models.User) string {
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.Username
}

func Welcome(u models.User) *Message {
	return &Message{
		Kind:     KindWelcome,
		To:       []string{u.Email},
		Subject:  "Welcome - Registration Successful!",
		Body:     render("welcome", map[string]interface{}{"Name": displayName(u), "Username": u.Username, "Email": u.Email}),
		EntityID: u.Username,
	}
}

func LoginAlert(u models.User, at time.Time) *Message {
	return &Message{
		Kind:     KindLoginAlert,
		To:       []string{u.Email},
		Subject:  "Login Successful",
		Body:     render("login_alert", map[string]interface{}{"Name": displayName(u), "At": at}),
		EntityID: u.Username,
	}
}

func orderCustomer(o *models.Order) string {
	if o.FullName != "" {
		return o.FullName
	}
	return o.User.Username
}

// OrderConfirmation goes to the order's contact email, falling back to the
// account email. o must have Items.Product loaded.
func OrderConfirmation(o *models.Order) *Message {
	to := o.Email
	if to == "" {
		to = o.User.Email
	}
	return &Message{
		Kind:     KindOrderConfirmation,
		To:       []string{to},
		Subject:  "Order Confirmed - " + o.OrderNumber,
		Body:     render("order_confirmation", map[string]interface{}{"Name": orderCustomer(o), "Order": o}),
		EntityID: o.OrderNumber,
	}
}

func OrderAlert(o *models.Order, paymentID string) *Message {
	return &Message{
		Kind:     KindOrderAlert,
		Operator: true,
		Subject:  "New Order Received - " + o.OrderNumber,
		Body:     render("order_alert", map[string]interface{}{"Name": orderCustomer(o), "Order": o, "PaymentID": paymentID}),
		EntityID: o.OrderNumber,
	}
}

func NewsletterWelcome(email string) *Message {
	return &Message{
		Kind:     KindNewsletterWelcome,
		To:       []string{email},
		Subject:  "Welcome to our Newsletter!",
		Body:     render("newsletter_welcome", nil),
		EntityID: email,
	}
}

func NewsletterAlert(email string, at time.Time) *Message {
	return &Message{
		Kind:     KindNewsletterAlert,
		Operator: true,
		Subject:  "New Newsletter Subscription",
		Body:     render("newsletter_alert", map[string]interface{}{"Email": email, "At": at}),
		EntityID: email,
	}
}
