package dispatch

import (
	"context"
	"fmt"
	"html"

	"gopkg.in/gomail.v2"

	"github.com/adviserops/chaser/internal/domain"
)

// MailSender sends one assembled message over SMTP
type MailSender interface {
	DialAndSend(m ...*gomail.Message) error
}

// EmailDispatcher delivers email-channel communications over SMTP. Non-email
// channels are passed through to the fallback dispatcher, since SMS and phone
// delivery run through adviser task queues rather than direct sends.
type EmailDispatcher struct {
	sender   MailSender
	fromAddr string
	resolver RecipientResolver
	fallback Dispatcher
}

// Dispatcher mirrors the service-level contract so dispatchers can chain
// without importing the service package.
type Dispatcher interface {
	Dispatch(ctx context.Context, comm *domain.Communication) error
}

// RecipientResolver maps a client reference to a deliverable email address
type RecipientResolver interface {
	EmailForClient(ctx context.Context, firmID, clientRef string) (string, error)
}

// EmailConfig carries the SMTP settings for outbound chase emails
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// NewEmailDispatcher creates an SMTP-backed dispatcher. The fallback handles
// every non-email channel and may not be nil.
func NewEmailDispatcher(cfg EmailConfig, resolver RecipientResolver, fallback Dispatcher) *EmailDispatcher {
	return &EmailDispatcher{
		sender:   gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		fromAddr: cfg.From,
		resolver: resolver,
		fallback: fallback,
	}
}

// Dispatch sends the communication, routing non-email channels to the
// fallback dispatcher
func (d *EmailDispatcher) Dispatch(ctx context.Context, comm *domain.Communication) error {
	if comm.Channel != domain.ChannelEmail {
		return d.fallback.Dispatch(ctx, comm)
	}

	to, err := d.resolver.EmailForClient(ctx, comm.FirmID, comm.ClientRef)
	if err != nil {
		return fmt.Errorf("failed to resolve recipient for client %s: %w", comm.ClientRef, err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", d.fromAddr)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subjectFor(comm))
	m.SetBody("text/html", bodyFor(comm))

	if err := d.sender.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send chase email to %s: %w", to, err)
	}
	return nil
}

func subjectFor(comm *domain.Communication) string {
	switch comm.Priority {
	case domain.PriorityUrgent:
		return "Urgent: action needed on your outstanding item"
	case domain.PriorityHigh:
		return "Reminder: outstanding item needs your attention"
	default:
		return "A gentle reminder from your adviser"
	}
}

func bodyFor(comm *domain.Communication) string {
	return fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<p>%s</p>
			<p style="color: #777; font-size: 12px;">Sent on behalf of your financial adviser. Reply to this email if anything is unclear.</p>
		</div>`, html.EscapeString(comm.Message))
}
