package email

import (
	"bytes"
	"crypto/tls"
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jon4hz/wanderlust/internal/config"
	mail "github.com/xhit/go-simple-mail/v2"
)

// NotificationService sends account emails.
type NotificationService struct {
	config *config.EmailConfig
}

// Welcome contains the data for the welcome email of a new user.
type Welcome struct {
	Username     string
	Email        string
	AppURL       string
	RegisteredAt time.Time
}

// New creates a new email notification service.
func New(cfg *config.EmailConfig) *NotificationService {
	return &NotificationService{
		config: cfg,
	}
}

// Enabled reports whether emails are sent at all.
func (n *NotificationService) Enabled() bool {
	return n.config != nil && n.config.Enabled
}

// SendWelcome sends the welcome email to a freshly registered user.
func (n *NotificationService) SendWelcome(welcome Welcome) error {
	if !n.Enabled() {
		log.Debug("Email notifications are disabled, skipping welcome email")
		return nil
	}

	if welcome.Email == "" {
		log.Warn("User email is empty, skipping welcome email", "user", welcome.Username)
		return nil
	}

	body, err := n.generateEmailBody("welcome.html", welcome)
	if err != nil {
		return fmt.Errorf("failed to generate email body: %w", err)
	}

	return n.sendEmail(welcome.Email, "[Wanderlust] Welcome to Wanderlust", body)
}

//go:embed templates/*.html
var templatesFS embed.FS

func (n *NotificationService) generateEmailBody(name string, data any) (string, error) {
	t, err := template.New("").ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func (n *NotificationService) sendEmail(to, subject, body string) error {
	server := mail.NewSMTPClient()
	server.Host = n.config.SMTPHost
	server.Port = n.config.SMTPPort
	server.Username = n.config.Username
	server.Password = n.config.Password

	switch {
	case n.config.UseSSL:
		server.Encryption = mail.EncryptionSSLTLS
	case n.config.UseTLS:
		server.Encryption = mail.EncryptionSTARTTLS
	default:
		server.Encryption = mail.EncryptionNone
	}

	if n.config.InsecureSkipVerify {
		server.TLSConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}

	server.KeepAlive = false
	server.ConnectTimeout = 10 * time.Second
	server.SendTimeout = 10 * time.Second

	smtpClient, err := server.Connect()
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer func() {
		if closeErr := smtpClient.Close(); closeErr != nil {
			log.Warn("Failed to close SMTP client", "error", closeErr)
		}
	}()

	fromName := n.config.FromName
	if fromName == "" {
		fromName = "Wanderlust"
	}

	msg := mail.NewMSG()
	msg.SetFrom(fmt.Sprintf("%s <%s>", fromName, n.config.FromEmail))
	msg.AddTo(to)
	msg.SetSubject(subject)
	msg.SetBody(mail.TextHTML, body)

	if err := msg.Send(smtpClient); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	log.Info("Email sent", "to", to, "subject", subject)
	return nil
}
