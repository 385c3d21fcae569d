// Package service implements the payment flow: creating processor checkout
// orders for sent quotations, reconciling captures into local orders, and
// issuing direct payment links.
package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"storefront_backend/internal/events"
	"storefront_backend/internal/payment/processor"
	"storefront_backend/internal/payment/repository"
	"storefront_backend/internal/payment/transport"
	qrepo "storefront_backend/internal/quotation/repository"
	qservice "storefront_backend/internal/quotation/service"
	qtransport "storefront_backend/internal/quotation/transport"
	"storefront_backend/internal/whatsapp"
	"storefront_backend/platform/apperr"
	"storefront_backend/platform/config"
	"storefront_backend/platform/logger"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
)

// directLinkDedupWindow is how recently a link for the same buyer and source
// must have been issued to count as a duplicate submission.
const directLinkDedupWindow = 30 * time.Second

// QuotationStore is the slice of the quotation repository the payment flow
// needs.
type QuotationStore interface {
	GetBySlug(ctx context.Context, slug string) (*qrepo.Quotation, error)
	GetItems(ctx context.Context, quotationID uuid.UUID) ([]qrepo.QuotationItem, error)
	CreateWithItems(ctx context.Context, q *qrepo.Quotation, items []qrepo.QuotationItem) error
	FindRecentByEmailSource(ctx context.Context, email, source string, cutoff time.Time) (*qrepo.Quotation, error)
}

// CaptureStore records a reconciled capture.
type CaptureStore interface {
	RecordCapture(ctx context.Context, p repository.CaptureParams) (uuid.UUID, error)
}

// ProcessorClient is the external checkout API surface used here.
type ProcessorClient interface {
	CreateOrder(ctx context.Context, req processor.OrderRequest) (*processor.CreatedOrder, error)
	CaptureOrder(ctx context.Context, orderID string) (*processor.Capture, error)
}

// Service provides payment business logic.
type Service struct {
	quotations QuotationStore
	captures   CaptureStore
	processor  ProcessorClient
	wa         *whatsapp.LinkBuilder
	cfg        config.NotificationConfig
	log        *logger.Logger
	bus        events.Bus
	now        func() time.Time
}

// New creates a new payment service.
func New(quotations QuotationStore, captures CaptureStore, proc ProcessorClient, wa *whatsapp.LinkBuilder, cfg config.NotificationConfig, log *logger.Logger) *Service {
	return &Service{
		quotations: quotations,
		captures:   captures,
		processor:  proc,
		wa:         wa,
		cfg:        cfg,
		log:        log,
		now:        time.Now,
	}
}

// SetEventBus injects the event bus.
func (s *Service) SetEventBus(bus events.Bus) {
	s.bus = bus
}

// CreateProcessorOrder creates a checkout order at the processor for the
// quotation behind the slug. Only a sent quotation is payable.
func (s *Service) CreateProcessorOrder(ctx context.Context, slug string) (*transport.CreateProcessorOrderResponse, error) {
	q, err := s.payableQuotation(ctx, slug)
	if err != nil {
		return nil, err
	}

	items, err := s.quotations.GetItems(ctx, q.ID)
	if err != nil {
		return nil, err
	}

	discount := q.TotalCents + q.ShippingCents - q.FinalCents
	if discount < 0 {
		discount = 0
	}

	req := processor.OrderRequest{
		ReferenceID:   q.ID.String(),
		ItemTotal:     q.TotalCents,
		DiscountCents: discount,
		ShippingCents: q.ShippingCents,
		FinalCents:    q.FinalCents,
	}
	for _, it := range items {
		req.Items = append(req.Items, processor.OrderItem{
			Name:           it.SnapshotName,
			Quantity:       it.Quantity,
			UnitPriceCents: it.UnitPriceCents,
		})
	}

	created, err := s.processor.CreateOrder(ctx, req)
	if err != nil {
		return nil, err
	}

	return &transport.CreateProcessorOrderResponse{
		ProcessorOrderID: created.ID,
		ApproveURL:       created.ApproveURL,
	}, nil
}

// Capture captures the approved processor order and materializes the result
// as a local order. The local write is conditional and keyed on the capture
// id, so a replay or a concurrent capture yields a conflict, never a second
// order. A local failure after the processor confirmed the capture is
// reported as a persistence error and alert-logged; the caller must not
// retry the charge.
func (s *Service) Capture(ctx context.Context, slug string, req transport.CaptureRequest) (*transport.CaptureResponse, error) {
	q, err := s.payableQuotation(ctx, slug)
	if err != nil {
		return nil, err
	}

	items, err := s.quotations.GetItems(ctx, q.ID)
	if err != nil {
		return nil, err
	}

	captured, err := s.processor.CaptureOrder(ctx, req.ProcessorOrderID)
	if err != nil {
		return nil, err
	}

	buyerName := captured.PayerName
	if buyerName == "" {
		buyerName = q.RequesterName
	}
	buyerEmail := captured.PayerEmail
	if buyerEmail == "" {
		buyerEmail = q.Email
	}

	discount := q.TotalCents + q.ShippingCents - q.FinalCents
	if discount < 0 {
		discount = 0
	}

	params := repository.CaptureParams{
		QuotationID:      q.ID,
		PaymentReference: captured.CaptureID,
		PaymentMethod:    "paypal",
		BuyerName:        buyerName,
		BuyerEmail:       buyerEmail,
		TotalCents:       q.FinalCents,
		ShippingCents:    q.ShippingCents,
		DiscountCents:    discount,
	}
	if req.Shipping != nil {
		params.Shipping = repository.ShippingAddress{
			Name:       req.Shipping.Name,
			Line1:      req.Shipping.Line1,
			Line2:      req.Shipping.Line2,
			City:       req.Shipping.City,
			Region:     req.Shipping.Region,
			PostalCode: req.Shipping.PostalCode,
			Country:    req.Shipping.Country,
		}
	}
	for _, it := range items {
		params.Items = append(params.Items, repository.OrderItemParams{
			ProductID:      it.ProductID,
			Name:           it.SnapshotName,
			SKU:            it.SnapshotSKU,
			ImageURL:       it.SnapshotImageURL,
			Quantity:       it.Quantity,
			UnitPriceCents: it.UnitPriceCents,
		})
	}

	orderID, err := s.captures.RecordCapture(ctx, params)
	if err != nil {
		if apperr.GetKind(err) == apperr.KindConflict {
			// Another capture for this quotation already committed. The funds
			// for that one are recorded; this request changes nothing.
			return nil, err
		}
		s.log.PaymentAlert("record_capture", captured.CaptureID, err)
		return nil, apperr.Persistence("payment captured but order could not be recorded", err)
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.PaymentCaptured{
			BaseEvent:   events.NewBaseEvent(),
			QuotationID: q.ID,
			OrderID:     orderID,
			CaptureID:   captured.CaptureID,
			BuyerName:   buyerName,
			BuyerEmail:  buyerEmail,
			TotalCents:  q.FinalCents,
			ItemCount:   len(items),
		})
	}

	return &transport.CaptureResponse{
		OrderID:   orderID,
		CaptureID: captured.CaptureID,
		Status:    string(qtransport.StatusClosedWon),
	}, nil
}

// CreateDirectPaymentLink issues an ad hoc payment link backed by a
// quotation that is born in the sent state, carrying the cart as real line
// items. A link for the same buyer and source inside the dedup window is
// treated as a double submission.
func (s *Service) CreateDirectPaymentLink(ctx context.Context, req transport.DirectPaymentLinkRequest) (*transport.DirectPaymentLinkResponse, error) {
	source := req.Source
	if source == "" {
		source = "direct"
	}

	cutoff := s.now().Add(-directLinkDedupWindow)
	if recent, err := s.quotations.FindRecentByEmailSource(ctx, req.BuyerEmail, source, cutoff); err != nil {
		return nil, err
	} else if recent != nil {
		return nil, apperr.Conflict("a payment link for this buyer was just created")
	}

	var base int64
	for _, it := range req.Items {
		base += it.UnitPriceCents * int64(it.Quantity)
	}

	final := base + req.ShippingCents
	var discountType *string
	var discountValue int64
	if req.DiscountType != nil {
		res, err := qservice.ApplyDiscount(base, qservice.DiscountSpec{
			Type:  *req.DiscountType,
			Value: req.DiscountValue,
		}, qservice.DiscountContext{ShippingCents: req.ShippingCents})
		if err != nil {
			return nil, err
		}
		final = res.FinalCents
		t := string(*req.DiscountType)
		discountType = &t
		discountValue = req.DiscountValue
	}

	discount := base + req.ShippingCents - final
	if discount < 0 {
		discount = 0
	}

	slug, err := newSlug()
	if err != nil {
		return nil, err
	}

	now := s.now()
	q := qrepo.Quotation{
		ID:            uuid.New(),
		Status:        string(qtransport.StatusSentToClient),
		RequesterName: req.BuyerName,
		Email:         req.BuyerEmail,
		Phone:         req.BuyerPhone,
		Source:        source,
		Channel:       "payment_link",
		DiscountType:  discountType,
		DiscountValue: discountValue,
		TotalCents:    base,
		ShippingCents: req.ShippingCents,
		FinalCents:    final,
		Slug:          &slug,
		RespondedAt:   &now,
		CreatedAt:     now,
	}
	items := make([]qrepo.QuotationItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = qrepo.QuotationItem{
			ID:                 uuid.New(),
			QuotationID:        q.ID,
			ProductID:          uuid.New(),
			Quantity:           it.Quantity,
			UnitPriceCents:     it.UnitPriceCents,
			SnapshotName:       it.Name,
			SnapshotSKU:        it.SKU,
			SnapshotImageURL:   it.ImageURL,
			SnapshotPriceCents: it.UnitPriceCents,
			CreatedAt:          now,
		}
	}

	if err := s.quotations.CreateWithItems(ctx, &q, items); err != nil {
		return nil, err
	}

	payLink := s.payLink(slug)
	messagingLink := s.wa.PaymentLink(req.BuyerName, payLink, final)

	resp := &transport.DirectPaymentLinkResponse{
		QuotationID:   q.ID,
		Slug:          slug,
		PayLink:       payLink,
		MessagingLink: messagingLink,
		TotalCents:    base,
		DiscountCents: discount,
		ShippingCents: req.ShippingCents,
		AmountCents:   final,
	}

	if png, err := qrcode.Encode(payLink, qrcode.Medium, 256); err != nil {
		s.log.Error("qr code generation failed", "error", err)
	} else {
		resp.QRCodePNG = base64.StdEncoding.EncodeToString(png)
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.DirectPaymentLinkCreated{
			BaseEvent:     events.NewBaseEvent(),
			QuotationID:   q.ID,
			BuyerEmail:    req.BuyerEmail,
			PayLink:       payLink,
			MessagingLink: messagingLink,
			FinalCents:    final,
		})
	}

	return resp, nil
}

// payableQuotation loads the quotation behind a slug and checks it can still
// take a payment. A won quotation answers conflict so the buyer sees a clear
// "already paid"; everything else is indistinguishable from a bad slug.
func (s *Service) payableQuotation(ctx context.Context, slug string) (*qrepo.Quotation, error) {
	q, err := s.quotations.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	switch q.Status {
	case string(qtransport.StatusSentToClient):
		return q, nil
	case string(qtransport.StatusClosedWon):
		return nil, apperr.Conflict("quotation has already been paid")
	default:
		return nil, apperr.NotFound("quotation not found")
	}
}

func (s *Service) payLink(slug string) string {
	return strings.TrimRight(s.cfg.GetAppBaseURL(), "/") + "/pay/" + slug
}

func newSlug() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate slug: %w", err)
	}
	return hex.EncodeToString(b), nil
}
