package mailer

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"storefront/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/gomail.v2"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	customerTemplate = "customer_order.html"
	internalTemplate = "internal_order.html"
)

// Sender delivers one fully built message. Implementations must return once
// ctx is done.
type Sender interface {
	Send(ctx context.Context, msg *gomail.Message) error
}

// Options holds the store identity used when composing order emails
type Options struct {
	From           string
	StoreName      string
	ReplyTo        string
	OrderEmailTo   string
	CurrencySymbol string
}

// OrderEmail is everything needed to notify customer and store about an order
type OrderEmail struct {
	OrderID      uuid.UUID
	CustomerName string
	Email        string
	Phone        string
	Address      string
	Items        domain.OrderItems
	Total        decimal.Decimal
}

// Mailer renders and sends order notifications
type Mailer struct {
	sender    Sender
	opts      Options
	templates *template.Template
	logger    *zap.Logger
}

// New parses the embedded templates and returns a Mailer sending through sender
func New(sender Sender, opts Options, logger *zap.Logger) (*Mailer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}

	if opts.ReplyTo == "" {
		opts.ReplyTo = opts.From
	}

	return &Mailer{
		sender:    sender,
		opts:      opts,
		templates: tmpl,
		logger:    logger,
	}, nil
}

type emailLine struct {
	Name      string
	Quantity  int
	UnitPrice string
	LineTotal string
}

type emailView struct {
	StoreName    string
	ReplyTo      string
	OrderRef     string
	CustomerName string
	Email        string
	Phone        string
	Address      string
	Lines        []emailLine
	Total        string
}

// SendOrderEmails sends the customer confirmation and the internal
// notification concurrently. Both are always attempted; the returned error
// joins every failure.
func (m *Mailer) SendOrderEmails(ctx context.Context, order OrderEmail) error {
	customerMsg, err := m.customerMessage(order)
	if err != nil {
		return err
	}

	internalMsg, err := m.internalMessage(order)
	if err != nil {
		return err
	}

	// the group has no shared context so one failure never cancels the other send
	var customerErr, internalErr error
	var g errgroup.Group

	g.Go(func() error {
		if err := m.send(ctx, customerMsg); err != nil {
			customerErr = fmt.Errorf("customer confirmation: %w", err)
		}
		return customerErr
	})
	g.Go(func() error {
		if err := m.send(ctx, internalMsg); err != nil {
			internalErr = fmt.Errorf("internal notification: %w", err)
		}
		return internalErr
	})

	if g.Wait() == nil {
		m.logger.Info("Order emails sent", zap.String("order_id", order.OrderID.String()))
		return nil
	}

	err = errors.Join(customerErr, internalErr)
	m.logger.Warn("Order email delivery failed",
		zap.String("order_id", order.OrderID.String()),
		zap.Error(err),
	)
	return err
}

func (m *Mailer) customerMessage(order OrderEmail) (*gomail.Message, error) {
	body, err := m.render(customerTemplate, order)
	if err != nil {
		return nil, err
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.opts.From, m.opts.StoreName)
	msg.SetHeader("To", order.Email)
	msg.SetHeader("Reply-To", m.opts.ReplyTo)
	msg.SetHeader("Subject", headerSafe(fmt.Sprintf("Order confirmation - %s", m.opts.StoreName)))
	msg.SetBody("text/html", body)
	return msg, nil
}

func (m *Mailer) internalMessage(order OrderEmail) (*gomail.Message, error) {
	body, err := m.render(internalTemplate, order)
	if err != nil {
		return nil, err
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.opts.From, m.opts.StoreName+" Orders")
	msg.SetHeader("To", m.opts.OrderEmailTo)
	msg.SetHeader("Reply-To", order.Email)
	msg.SetHeader("Subject", headerSafe(fmt.Sprintf("New order from %s - %s", order.CustomerName, m.money(order.Total))))
	msg.SetBody("text/html", body)
	return msg, nil
}

func (m *Mailer) render(name string, order OrderEmail) (string, error) {
	view := emailView{
		StoreName:    m.opts.StoreName,
		ReplyTo:      m.opts.ReplyTo,
		OrderRef:     orderRef(order.OrderID),
		CustomerName: order.CustomerName,
		Email:        order.Email,
		Phone:        order.Phone,
		Address:      order.Address,
		Lines:        make([]emailLine, 0, len(order.Items)),
		Total:        m.money(order.Total),
	}
	for _, item := range order.Items {
		view.Lines = append(view.Lines, emailLine{
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: m.money(item.UnitPrice),
			LineTotal: m.money(item.LineTotal()),
		})
	}

	var buf bytes.Buffer
	if err := m.templates.ExecuteTemplate(&buf, name, view); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.String(), nil
}

func (m *Mailer) send(ctx context.Context, msg *gomail.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.sender.Send(ctx, msg)
}

func (m *Mailer) money(amount decimal.Decimal) string {
	return strings.TrimSpace(m.opts.CurrencySymbol + " " + amount.StringFixed(2))
}

func orderRef(id uuid.UUID) string {
	return strings.ToUpper(id.String()[:8])
}

var headerReplacer = strings.NewReplacer("\r", " ", "\n", " ")

func headerSafe(s string) string {
	return headerReplacer.Replace(s)
}
