package notify

import (
	"fmt"
	"net/smtp"

	"go.uber.org/zap"

	"github.com/Sjay2468/MedicoHubWebsite-sub001/internal/domain/order"
)

// SMTPConfig holds mail transport settings.
type SMTPConfig struct {
	Host          string
	Port          int
	Username      string
	Password      string
	From          string
	OperatorEmail string
}

// Configured reports whether the transport has enough settings to send.
func (c SMTPConfig) Configured() bool {
	return c.Host != "" && c.From != ""
}

var _ order.Notifier = (*SMTPDispatcher)(nil)

// SMTPDispatcher sends order emails over SMTP. Each send runs in its own
// goroutine; failures are logged and never reach the caller.
type SMTPDispatcher struct {
	cfg SMTPConfig
	lg  *zap.Logger

	// send is swapped out in tests to capture messages.
	send func(msg message) error
}

// NewSMTPDispatcher creates a dispatcher using the given transport settings.
func NewSMTPDispatcher(cfg SMTPConfig, lg *zap.Logger) *SMTPDispatcher {
	d := &SMTPDispatcher{cfg: cfg, lg: lg}
	d.send = d.sendSMTP
	return d
}

func (d *SMTPDispatcher) OrderConfirmation(o *order.Order) { d.dispatch(KindOrderConfirmation, o) }
func (d *SMTPDispatcher) OrderAlert(o *order.Order)        { d.dispatch(KindOrderAlert, o) }
func (d *SMTPDispatcher) StatusUpdate(o *order.Order)      { d.dispatch(KindStatusUpdate, o) }

// dispatch renders and sends asynchronously. Orders carry a snapshot of the
// data the templates need, so the goroutine shares nothing mutable with the
// request that spawned it.
func (d *SMTPDispatcher) dispatch(kind Kind, o *order.Order) {
	msg := render(kind, o, d.cfg.OperatorEmail)
	if msg.To == "" {
		d.lg.Warn("notification skipped, no recipient",
			zap.String("kind", string(kind)),
			zap.String("order_id", o.ID),
		)
		return
	}

	go func() {
		if err := d.send(msg); err != nil {
			d.lg.Error("notification delivery failed",
				zap.String("kind", string(kind)),
				zap.String("order_id", o.ID),
				zap.String("to", msg.To),
				zap.Error(err),
			)
			return
		}
		d.lg.Info("notification sent",
			zap.String("kind", string(kind)),
			zap.String("order_id", o.ID),
		)
	}()
}

func (d *SMTPDispatcher) sendSMTP(msg message) error {
	addr := fmt.Sprintf("%s:%d", d.cfg.Host, d.cfg.Port)

	var auth smtp.Auth
	if d.cfg.Username != "" {
		auth = smtp.PlainAuth("", d.cfg.Username, d.cfg.Password, d.cfg.Host)
	}

	body := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		d.cfg.From, msg.To, msg.Subject, msg.Body)

	return smtp.SendMail(addr, auth, d.cfg.From, []string{msg.To}, []byte(body))
}
