package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title     string
	Heading   string
	StoreName string
	CTALabel  string
	CTAURL    string
}

type quotationReceivedEmailData struct {
	baseEmailData
	RequesterName  string
	ItemCount      int
	TotalFormatted string
}

type quotationSentEmailData struct {
	baseEmailData
	RequesterName     string
	TotalFormatted    string
	DiscountFormatted string
	ShippingFormatted string
	FinalFormatted    string
	HasDiscount       bool
}

type paymentConfirmedEmailData struct {
	baseEmailData
	BuyerName      string
	Reference      string
	TotalFormatted string
}

type orderSoldEmailData struct {
	baseEmailData
	BuyerName      string
	TotalFormatted string
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

func formatCurrency(cents int64) string {
	return fmt.Sprintf("$%.2f", float64(cents)/100)
}
