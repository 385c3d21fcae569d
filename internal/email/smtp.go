package email

import (
	"context"
	"fmt"
	"net"
	"time"

	"storefront_backend/platform/config"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender implements Sender over a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
	storeName string
}

// NewSMTPSender creates a new SMTPSender from email config.
func NewSMTPSender(cfg config.EmailConfig, notif config.NotificationConfig) *SMTPSender {
	return &SMTPSender{
		host:      cfg.GetSMTPHost(),
		port:      cfg.GetSMTPPort(),
		username:  cfg.GetSMTPUsername(),
		password:  cfg.GetSMTPPassword(),
		fromName:  cfg.GetEmailFromName(),
		fromEmail: cfg.GetEmailFromAddress(),
		storeName: notif.GetStoreName(),
	}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func (s *SMTPSender) SendQuotationReceivedEmail(ctx context.Context, toEmail, requesterName string, itemCount int, totalCents int64) error {
	content, err := renderEmailTemplate("quotation_received.html", quotationReceivedEmailData{
		baseEmailData: baseEmailData{
			Title:     subjectQuotationReceived,
			Heading:   "Request received",
			StoreName: s.storeName,
		},
		RequesterName:  requesterName,
		ItemCount:      itemCount,
		TotalFormatted: formatCurrency(totalCents),
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectQuotationReceived, content)
}

func (s *SMTPSender) SendQuotationSentEmail(ctx context.Context, toEmail, requesterName, payLink string, totalCents, discountCents, shippingCents, finalCents int64) error {
	content, err := renderEmailTemplate("quotation_sent.html", quotationSentEmailData{
		baseEmailData: baseEmailData{
			Title:     subjectQuotationSent,
			Heading:   "Your quotation is ready",
			StoreName: s.storeName,
			CTALabel:  "View and pay",
			CTAURL:    payLink,
		},
		RequesterName:     requesterName,
		TotalFormatted:    formatCurrency(totalCents),
		DiscountFormatted: formatCurrency(discountCents),
		ShippingFormatted: formatCurrency(shippingCents),
		FinalFormatted:    formatCurrency(finalCents),
		HasDiscount:       discountCents > 0,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectQuotationSent, content)
}

func (s *SMTPSender) SendPaymentConfirmedEmail(ctx context.Context, toEmail, buyerName, reference string, totalCents int64) error {
	content, err := renderEmailTemplate("payment_confirmed.html", paymentConfirmedEmailData{
		baseEmailData: baseEmailData{
			Title:     subjectPaymentConfirmed,
			Heading:   "Payment confirmed",
			StoreName: s.storeName,
		},
		BuyerName:      buyerName,
		Reference:      reference,
		TotalFormatted: formatCurrency(totalCents),
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectPaymentConfirmed, content)
}

func (s *SMTPSender) SendOrderSoldEmail(ctx context.Context, toEmail, buyerName string, totalCents int64) error {
	content, err := renderEmailTemplate("order_sold.html", orderSoldEmailData{
		baseEmailData: baseEmailData{
			Title:     subjectOrderSold,
			Heading:   "Order complete",
			StoreName: s.storeName,
		},
		BuyerName:      buyerName,
		TotalFormatted: formatCurrency(totalCents),
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectOrderSold, content)
}

// SendCustomEmail delivers a prerendered HTML body. This is the raw
// send(subject, htmlBody, recipient) surface for operator notices.
func (s *SMTPSender) SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error {
	return s.send(ctx, toEmail, subject, htmlContent)
}

var _ Sender = (*SMTPSender)(nil)
