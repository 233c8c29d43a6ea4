package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"os"
	"sync"
	"time"
	"wedding-registry/config"
	"wedding-registry/models"
	"wedding-registry/utils"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/rs/zerolog/log"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"google.golang.org/api/option"
)

// Notifier is called after the fact; failures are logged and never returned,
// so nothing on the funding path depends on a notification being delivered.
type Notifier interface {
	NotifyContributionApproved(ctx context.Context, intent models.ContributionIntent, gift models.Gift, contributorEmail string)
	NotifyRSVP(ctx context.Context, invitation models.Invitation, changed []models.Guest)
}

type NopNotifier struct{}

func (NopNotifier) NotifyContributionApproved(context.Context, models.ContributionIntent, models.Gift, string) {
}

func (NopNotifier) NotifyRSVP(context.Context, models.Invitation, []models.Guest) {}

// AsyncNotifier delivers notifications off the request path. Each delivery
// runs under its own deadline and Wait lets shutdown drain the ones in flight.
type AsyncNotifier struct {
	next    Notifier
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewAsyncNotifier(next Notifier, timeout time.Duration) *AsyncNotifier {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &AsyncNotifier{next: next, timeout: timeout}
}

func (a *AsyncNotifier) NotifyContributionApproved(ctx context.Context, intent models.ContributionIntent, gift models.Gift, contributorEmail string) {
	a.dispatch(ctx, func(ctx context.Context) {
		a.next.NotifyContributionApproved(ctx, intent, gift, contributorEmail)
	})
}

func (a *AsyncNotifier) NotifyRSVP(ctx context.Context, invitation models.Invitation, changed []models.Guest) {
	a.dispatch(ctx, func(ctx context.Context) {
		a.next.NotifyRSVP(ctx, invitation, changed)
	})
}

// dispatch detaches from the caller's cancellation, which ends with the request.
func (a *AsyncNotifier) dispatch(parent context.Context, deliver func(context.Context)) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), a.timeout)
		defer cancel()
		deliver(ctx)
	}()
}

// Wait blocks until every delivery started so far has returned or ctx is done.
func (a *AsyncNotifier) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// emailSender and pushSender are the parts of the sendgrid and firebase
// messaging clients the service calls.
type emailSender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

type pushSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// NotificationService sends synchronously; wrap it in an AsyncNotifier to keep
// deliveries off the request path.
type NotificationService struct {
	email     emailSender
	from      *mail.Email
	organizer string
	push      pushSender
	topic     string
	appName   string
}

// NewNotificationService enables each channel only when it is configured.
func NewNotificationService(ctx context.Context, cfg *config.Config) *NotificationService {
	ns := &NotificationService{
		from:      mail.NewEmail(cfg.AppName, cfg.SendGridFrom),
		organizer: cfg.OrganizerEmail,
		topic:     cfg.FirebaseTopic,
		appName:   cfg.AppName,
	}

	if cfg.SendGridAPIKey != "" {
		ns.email = sendgrid.NewSendClient(cfg.SendGridAPIKey)
	} else {
		log.Warn().Msg("⚠️  SendGrid API key not set, emails disabled")
	}

	if _, err := os.Stat(cfg.FirebaseCredPath); err == nil {
		client, err := firebaseMessaging(ctx, cfg.FirebaseCredPath)
		if err != nil {
			log.Warn().Err(err).Msg("⚠️  Firebase messaging unavailable, push disabled")
		} else {
			ns.push = client
		}
	} else {
		log.Warn().Str("path", cfg.FirebaseCredPath).Msg("⚠️  Firebase credentials not found, push disabled")
	}

	return ns
}

func firebaseMessaging(ctx context.Context, credPath string) (*messaging.Client, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credPath))
	if err != nil {
		return nil, err
	}
	return app.Messaging(ctx)
}

// ============================================================
// NOTIFICATION EVENTS
// ============================================================

// NotifyContributionApproved tells the organizers a gift was credited and thanks the contributor.
func (ns *NotificationService) NotifyContributionApproved(ctx context.Context, intent models.ContributionIntent, gift models.Gift, contributorEmail string) {
	amount := utils.FormatMoney(intent.Amount, intent.Currency)

	title := fmt.Sprintf("%s sent a gift", intent.Contributor)
	body := fmt.Sprintf("%s contributed %s to \"%s\"", intent.Contributor, amount, gift.Title)
	ns.sendPush(ctx, title, body, map[string]string{
		"type":      "contribution_approved",
		"intent_id": intent.ID.String(),
		"gift_id":   gift.ID.String(),
	})

	if ns.organizer != "" {
		html := render(contributionTemplate, map[string]interface{}{
			"Contributor": intent.Contributor,
			"Message":     intent.Message,
			"Amount":      amount,
			"Gift":        gift.Title,
			"Collected":   utils.FormatMoney(gift.AmountCollected, intent.Currency),
			"Goal":        utils.FormatMoney(gift.Value, intent.Currency),
		})
		ns.sendEmail(ctx, ns.organizer, "", body, html)
	}

	if contributorEmail != "" {
		html := render(thankYouTemplate, map[string]interface{}{
			"Contributor": intent.Contributor,
			"Amount":      amount,
			"Gift":        gift.Title,
			"AppName":     ns.appName,
		})
		ns.sendEmail(ctx, contributorEmail, intent.Contributor, "Thank you for your gift!", html)
	}
}

// NotifyRSVP sends the organizers a summary of the guests whose answer changed.
func (ns *NotificationService) NotifyRSVP(ctx context.Context, invitation models.Invitation, changed []models.Guest) {
	if ns.organizer == "" || len(changed) == 0 {
		return
	}
	html := render(rsvpTemplate, map[string]interface{}{
		"Invitation": invitation.Identifier,
		"Guests":     changed,
	})
	ns.sendEmail(ctx, ns.organizer, "", fmt.Sprintf("RSVP update from %s", invitation.Identifier), html)
}

// ============================================================
// CHANNELS
// ============================================================

func (ns *NotificationService) sendPush(ctx context.Context, title, body string, data map[string]string) {
	if ns.push == nil {
		return
	}
	_, err := ns.push.Send(ctx, &messaging.Message{
		Topic:        ns.topic,
		Notification: &messaging.Notification{Title: title, Body: body},
		Data:         data,
	})
	if err != nil {
		log.Warn().Err(err).Str("topic", ns.topic).Msg("push send failed")
		return
	}
	log.Debug().Str("topic", ns.topic).Msg("push sent")
}

func (ns *NotificationService) sendEmail(ctx context.Context, toEmail, toName, subject, htmlBody string) {
	if ns.email == nil {
		log.Debug().Str("to", toEmail).Msg("email disabled, skipping")
		return
	}

	msg := mail.NewSingleEmail(ns.from, subject, mail.NewEmail(toName, toEmail), subject, htmlBody)
	resp, err := ns.email.SendWithContext(ctx, msg)
	if err != nil {
		log.Warn().Err(err).Str("to", toEmail).Msg("email send failed")
		return
	}
	if resp.StatusCode >= 300 {
		log.Warn().Int("status", resp.StatusCode).Str("to", toEmail).Msg("sendgrid rejected email")
		return
	}
	log.Debug().Str("to", toEmail).Msg("email sent")
}

// ============================================================
// EMAIL TEMPLATES
// ============================================================

const layoutStart = `<!DOCTYPE html>
<html>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; background-color: #f7f3ee;">
	<div style="background: white; border-radius: 12px; padding: 32px; box-shadow: 0 2px 8px rgba(0,0,0,0.1);">`

const layoutEnd = `
	</div>
</body>
</html>`

var (
	contributionTemplate = template.Must(template.New("contribution").Parse(layoutStart + `
		<h2 style="color: #b5838d; margin-top: 0;">🎁 New gift received</h2>
		<p><strong>{{.Contributor}}</strong> contributed <strong>{{.Amount}}</strong> to <strong>{{.Gift}}</strong>.</p>
		{{if .Message}}<blockquote style="border-left: 3px solid #e5989b; padding-left: 12px; color: #555;">{{.Message}}</blockquote>{{end}}
		<p style="color: #666;">Collected so far: {{.Collected}} of {{.Goal}}</p>` + layoutEnd))

	thankYouTemplate = template.Must(template.New("thanks").Parse(layoutStart + `
		<h2 style="color: #b5838d; margin-top: 0;">💕 Thank you, {{.Contributor}}!</h2>
		<p>Your contribution of <strong>{{.Amount}}</strong> towards <strong>{{.Gift}}</strong> was confirmed.</p>
		<p style="color: #999; font-size: 12px; margin-top: 24px;">Sent by {{.AppName}}</p>` + layoutEnd))

	rsvpTemplate = template.Must(template.New("rsvp").Parse(layoutStart + `
		<h2 style="color: #b5838d; margin-top: 0;">📬 RSVP update</h2>
		<p><strong>{{.Invitation}}</strong> updated their answers:</p>
		<ul>{{range .Guests}}<li>{{.Name}}: <strong>{{.Status}}</strong></li>{{end}}</ul>` + layoutEnd))
)

func render(t *template.Template, data interface{}) string {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		log.Warn().Err(err).Str("template", t.Name()).Msg("render email")
	}
	return buf.String()
}
