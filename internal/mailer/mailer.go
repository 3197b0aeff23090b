package mailer

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"time"

	"github.com/go-mail/mail/v2"
	"github.com/sony/gobreaker/v2"
)

//go:embed "templates"
var templateFS embed.FS

// ErrUnavailable is returned while the breaker is open and sends are being
// refused without contacting the SMTP server.
var ErrUnavailable = errors.New("mailer: smtp temporarily unavailable")

// failureThreshold consecutive send failures open the breaker for openTimeout.
const (
	failureThreshold = 3
	openTimeout      = 30 * time.Second
)

type dialer interface {
	DialAndSend(m ...*mail.Message) error
}

type Mailer struct {
	dialer  dialer
	sender  string
	breaker *gobreaker.CircuitBreaker[any]
}

func New(host string, port int, username, password, sender string) Mailer {
	d := mail.NewDialer(host, port, username, password)
	d.Timeout = 5 * time.Second

	return newMailer(d, sender)
}

func newMailer(d dialer, sender string) Mailer {
	settings := gobreaker.Settings{
		Name:        "smtp",
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failureThreshold
		},
	}

	return Mailer{
		dialer:  d,
		sender:  sender,
		breaker: gobreaker.NewCircuitBreaker[any](settings),
	}
}

// State reports the breaker state: "closed", "half-open" or "open".
func (m Mailer) State() string {
	return m.breaker.State().String()
}

// Send renders the subject, plainBody and htmlBody templates from
// templateFile with data and delivers the message to recipient.
func (m Mailer) Send(recipient, templateFile string, data any) error {
	msg, err := m.render(recipient, templateFile, data)
	if err != nil {
		return err
	}

	_, err = m.breaker.Execute(func() (any, error) {
		return nil, m.dialer.DialAndSend(msg)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrUnavailable
	}

	return err
}

func (m Mailer) render(recipient, templateFile string, data any) (*mail.Message, error) {
	tmpl, err := template.New("email").ParseFS(templateFS, "templates/"+templateFile)
	if err != nil {
		return nil, err
	}

	subject := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(subject, "subject", data); err != nil {
		return nil, err
	}

	plainBody := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(plainBody, "plainBody", data); err != nil {
		return nil, err
	}

	htmlBody := new(bytes.Buffer)
	if err := tmpl.ExecuteTemplate(htmlBody, "htmlBody", data); err != nil {
		return nil, err
	}

	msg := mail.NewMessage()
	msg.SetHeader("To", recipient)
	msg.SetHeader("From", m.sender)
	msg.SetHeader("Subject", subject.String())
	msg.SetBody("text/plain", plainBody.String())
	msg.AddAlternative("text/html", htmlBody.String())

	return msg, nil
}
