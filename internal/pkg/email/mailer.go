// internal/pkg/email/mailer.go
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/sirupsen/logrus"
	"github.com/wneessen/go-mail"
	"github.com/your-org/feedmarket-backend/internal/config"
	"github.com/your-org/feedmarket-backend/internal/domain/appointment"
	"github.com/your-org/feedmarket-backend/internal/domain/order"
)

// Mailer sends transactional mail. Sending is best-effort: failures
// are logged, never propagated into the payment flow.
type Mailer struct {
	config *config.Config
	logger *logrus.Logger
}

// NewMailer creates a new mailer
func NewMailer(cfg *config.Config, logger *logrus.Logger) *Mailer {
	return &Mailer{
		config: cfg,
		logger: logger,
	}
}

// SendOrderConfirmation mails the buyer after their order is paid
func (m *Mailer) SendOrderConfirmation(ctx context.Context, o *order.Order) {
	body, err := renderTemplate(orderConfirmationTemplate, o)
	if err != nil {
		m.logger.WithError(err).WithField("order_code", o.OrderCode).
			Error("Failed to render order confirmation email")
		return
	}

	subject := fmt.Sprintf("Pembayaran diterima untuk pesanan %s", o.OrderCode)
	m.send(ctx, o.Email, subject, body, "order_code", o.OrderCode)
}

// SendAppointmentConfirmation mails the customer after their
// consultation booking is paid and confirmed
func (m *Mailer) SendAppointmentConfirmation(ctx context.Context, a *appointment.Appointment) {
	body, err := renderTemplate(appointmentConfirmationTemplate, a)
	if err != nil {
		m.logger.WithError(err).WithField("appointment_code", a.AppointmentCode).
			Error("Failed to render appointment confirmation email")
		return
	}

	subject := fmt.Sprintf("Konsultasi %s terkonfirmasi", a.AppointmentCode)
	m.send(ctx, a.Email, subject, body, "appointment_code", a.AppointmentCode)
}

func (m *Mailer) send(ctx context.Context, to, subject, htmlBody, logKey, logValue string) {
	if !m.config.Mail.Enabled {
		m.logger.WithField(logKey, logValue).Debug("Mail disabled, skipping send")
		return
	}

	msg := mail.NewMsg()
	if err := msg.FromFormat(m.config.Mail.FromName, m.config.Mail.FromEmail); err != nil {
		m.logger.WithError(err).Error("Invalid mail sender address")
		return
	}
	if err := msg.To(to); err != nil {
		m.logger.WithError(err).WithField(logKey, logValue).Error("Invalid mail recipient")
		return
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	client, err := mail.NewClient(m.config.Mail.Host,
		mail.WithPort(m.config.Mail.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(m.config.Mail.Username),
		mail.WithPassword(m.config.Mail.Password),
	)
	if err != nil {
		m.logger.WithError(err).Error("Failed to create mail client")
		return
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		m.logger.WithError(err).WithField(logKey, logValue).Error("Failed to send email")
		return
	}

	m.logger.WithField(logKey, logValue).Info("Confirmation email sent")
}

func renderTemplate(tmpl *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

var orderConfirmationTemplate = template.Must(template.New("order_confirmation").Funcs(template.FuncMap{
	"rupiah": formatRupiah,
}).Parse(`
<h2>Terima kasih, pesanan Anda sudah dibayar</h2>
<p>Nomor pesanan: <strong>{{.OrderCode}}</strong></p>
<table>
  {{range .Items}}
  <tr>
    <td>{{.Name}}{{if .VariantLabel}} ({{.VariantLabel}}){{end}}</td>
    <td>{{.Quantity}} x Rp {{rupiah .UnitPrice}}</td>
    <td>Rp {{rupiah .TotalPrice}}</td>
  </tr>
  {{end}}
</table>
<p>Subtotal: Rp {{rupiah .SubtotalAmount}}<br>
Ongkos kirim ({{.Courier}} {{.CourierService}}): Rp {{rupiah .ShippingAmount}}<br>
Diskon: -Rp {{rupiah .DiscountAmount}}<br>
Pajak: Rp {{rupiah .TaxAmount}}<br>
<strong>Total: Rp {{rupiah .TotalAmount}}</strong></p>
<p>Pesanan akan dikirim ke:<br>
{{.ShippingAddress.RecipientName}}<br>
{{.ShippingAddress.Detail}}, {{.ShippingAddress.Subdistrict}}, {{.ShippingAddress.District}}<br>
{{.ShippingAddress.City}}, {{.ShippingAddress.Province}} {{.ShippingAddress.PostalCode}}</p>
`))

var appointmentConfirmationTemplate = template.Must(template.New("appointment_confirmation").Funcs(template.FuncMap{
	"rupiah": formatRupiah,
}).Parse(`
<h2>Konsultasi Anda terkonfirmasi</h2>
<p>Kode booking: <strong>{{.AppointmentCode}}</strong></p>
<p>Konsultan: {{.Consultant.Name}} ({{.Consultant.Specialty}})<br>
Jadwal: {{.ScheduledDate}} pukul {{.ScheduledTime}}<br>
Biaya: Rp {{rupiah .TotalAmount}}</p>
`))

// formatRupiah renders an IDR amount with thousand separators
func formatRupiah(amount int64) string {
	s := fmt.Sprintf("%d", amount)
	if len(s) <= 3 {
		return s
	}
	var out []byte
	for i, c := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, '.')
		}
		out = append(out, c)
	}
	return string(out)
}
