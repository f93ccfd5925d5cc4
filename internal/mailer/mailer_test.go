package mailer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"storefront/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

type fakeSender struct {
	mu       sync.Mutex
	messages []*gomail.Message
	failTo   map[string]error
	block    chan struct{}
}

func (f *fakeSender) Send(ctx context.Context, msg *gomail.Message) error {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if to := msg.GetHeader("To"); len(to) > 0 {
		if err, ok := f.failTo[to[0]]; ok {
			return err
		}
	}
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeSender) sentTo(addr string) *gomail.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, msg := range f.messages {
		if to := msg.GetHeader("To"); len(to) > 0 && to[0] == addr {
			return msg
		}
	}
	return nil
}

func testOptions() Options {
	return Options{
		From:           "orders@store.test",
		StoreName:      "Vortex",
		ReplyTo:        "support@store.test",
		OrderEmailTo:   "team@store.test",
		CurrencySymbol: "R$",
	}
}

func testOrder() OrderEmail {
	return OrderEmail{
		OrderID:      uuid.MustParse("3f2b8c1e-0000-4000-8000-000000000001"),
		CustomerName: "Ana <Souza>",
		Email:        "ana@example.com",
		Phone:        "+55 11 99999-0000",
		Items: domain.OrderItems{
			{ProductID: uuid.New(), Name: "BPC-157", Quantity: 10, UnitPrice: decimal.NewFromInt(8), UnitPriceWholesale: decimal.NewFromInt(8)},
			{ProductID: uuid.New(), Name: "TB-500", Quantity: 1, UnitPrice: decimal.RequireFromString("59.9"), UnitPriceWholesale: decimal.NewFromInt(45)},
		},
		Total: decimal.RequireFromString("139.9"),
	}
}

func newTestMailer(t *testing.T, sender Sender) *Mailer {
	t.Helper()
	m, err := New(sender, testOptions(), zap.NewNop())
	require.NoError(t, err)
	return m
}

func TestSendOrderEmails_SendsBothMessages(t *testing.T) {
	sender := &fakeSender{}
	m := newTestMailer(t, sender)

	require.NoError(t, m.SendOrderEmails(context.Background(), testOrder()))

	customer := sender.sentTo("ana@example.com")
	require.NotNil(t, customer, "customer confirmation sent")
	assert.Equal(t, []string{"support@store.test"}, customer.GetHeader("Reply-To"))
	assert.Equal(t, []string{"Order confirmation - Vortex"}, customer.GetHeader("Subject"))

	internal := sender.sentTo("team@store.test")
	require.NotNil(t, internal, "internal notification sent")
	assert.Equal(t, []string{"ana@example.com"}, internal.GetHeader("Reply-To"))
	assert.Equal(t, []string{"New order from Ana <Souza> - R$ 139.90"}, internal.GetHeader("Subject"))
}

func TestSendOrderEmails_OneFailureDoesNotSuppressTheOther(t *testing.T) {
	smtpDown := errors.New("550 mailbox unavailable")
	sender := &fakeSender{failTo: map[string]error{"ana@example.com": smtpDown}}
	m := newTestMailer(t, sender)

	err := m.SendOrderEmails(context.Background(), testOrder())
	require.Error(t, err)
	assert.ErrorIs(t, err, smtpDown)
	assert.Contains(t, err.Error(), "customer confirmation")

	assert.NotNil(t, sender.sentTo("team@store.test"), "internal notification still sent")
}

func TestSendOrderEmails_BothFailuresAreJoined(t *testing.T) {
	customerErr := errors.New("customer down")
	internalErr := errors.New("internal down")
	sender := &fakeSender{failTo: map[string]error{
		"ana@example.com": customerErr,
		"team@store.test": internalErr,
	}}
	m := newTestMailer(t, sender)

	err := m.SendOrderEmails(context.Background(), testOrder())
	assert.ErrorIs(t, err, customerErr)
	assert.ErrorIs(t, err, internalErr)
}

func TestSendOrderEmails_RespectsContext(t *testing.T) {
	sender := &fakeSender{block: make(chan struct{})}
	defer close(sender.block)
	m := newTestMailer(t, sender)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := m.SendOrderEmails(ctx, testOrder())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRender_CustomerTemplate(t *testing.T) {
	m := newTestMailer(t, &fakeSender{})

	body, err := m.render(customerTemplate, testOrder())
	require.NoError(t, err)

	assert.Contains(t, body, "Hello, Ana &lt;Souza&gt;!", "customer name is escaped")
	assert.Contains(t, body, "#3F2B8C1E")
	assert.Contains(t, body, "BPC-157")
	assert.Contains(t, body, "R$ 8.00")
	assert.Contains(t, body, "R$ 80.00")
	assert.Contains(t, body, "R$ 59.90")
	assert.Contains(t, body, "R$ 139.90")
	assert.Contains(t, body, "+55 11 99999-0000")
	assert.NotContains(t, body, "Address:", "absent address is omitted")
	assert.Contains(t, body, "support@store.test")
}

func TestRender_InternalTemplate(t *testing.T) {
	m := newTestMailer(t, &fakeSender{})

	order := testOrder()
	order.Phone = ""

	body, err := m.render(internalTemplate, order)
	require.NoError(t, err)

	assert.Contains(t, body, "New order received")
	assert.Contains(t, body, "mailto:ana@example.com")
	assert.Equal(t, 2, strings.Count(body, ">-<"), "missing phone and address render as a dash")
	assert.Contains(t, body, "Action required")
	assert.Contains(t, body, "R$ 139.90")
}

func TestNew_DefaultsReplyToSender(t *testing.T) {
	opts := testOptions()
	opts.ReplyTo = ""

	m, err := New(&fakeSender{}, opts, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "orders@store.test", m.opts.ReplyTo)
}
