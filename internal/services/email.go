package services

import (
	"fmt"
	"html"

	"github.com/chachabrian/mooveit-carpool/internal/config"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"
)

const companyName = "MooveIt Carpool"

const emailHeader = `
<!DOCTYPE html>
<html>
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; margin: 0; padding: 0;">
	<div style="max-width: 600px; margin: 0 auto; padding: 20px;">
		<div style="text-align: center; margin-bottom: 30px; background-color: #f9f9f9; padding: 20px;">
			<h2 style="color: #4CAF50; margin: 0;">MooveIt Carpool</h2>
		</div>
`

const emailFooter = `
		<div style="text-align: center; margin-top: 20px; font-size: 12px; color: #666; border-top: 1px solid #eee; padding-top: 20px;">
			<p>This is an automated message, please do not reply to this email.</p>
		</div>
	</div>
</body>
</html>
`

// MailSender sends one HTML email.
type MailSender interface {
	Send(to, subject, body string) error
}

// Mailer sends transactional emails over SMTP.
type Mailer struct {
	cfg    config.SMTPConfig
	dialer *gomail.Dialer
	log    *logrus.Logger
}

func NewMailer(cfg config.SMTPConfig, log *logrus.Logger) *Mailer {
	return &Mailer{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		log:    log,
	}
}

func (m *Mailer) Send(to, subject, body string) error {
	if !m.cfg.Enabled() {
		return fmt.Errorf("email configuration not set")
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.cfg.From, companyName)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetHeader("X-Mailer", "MooveIt-Mailer")
	msg.SetBody("text/html", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		m.log.WithError(err).WithField("to", to).Error("failed to send email")
		return err
	}
	m.log.WithField("to", to).Debug("email sent")
	return nil
}

// RenderNotificationEmail wraps a notification title and message in the
// branded HTML layout.
func RenderNotificationEmail(recipientName, title, message, baseURL string) string {
	return fmt.Sprintf(emailHeader+`
		<div style="background-color: #f9f9f9; padding: 20px; border-radius: 5px;">
			<h1 style="color: #2c3e50; text-align: center;">%s</h1>
			<p>Hello %s,</p>
			<p>%s</p>
			<div style="text-align: center; margin: 30px 0;">
				<a href="%s/login" style="background-color: #4CAF50; color: white; padding: 12px 25px; text-decoration: none; border-radius: 5px;">Open MooveIt</a>
			</div>
			<p>Best regards,<br>The MooveIt Team</p>
		</div>`+emailFooter,
		html.EscapeString(title), html.EscapeString(recipientName), html.EscapeString(message), baseURL)
}
