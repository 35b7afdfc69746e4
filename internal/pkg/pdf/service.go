// internal/pkg/pdf/service.go
package pdf

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/your-org/feedmarket-backend/internal/config"
	"github.com/your-org/feedmarket-backend/internal/domain/order"
)

// Service handles PDF generation
type Service struct {
	config *config.Config
}

// NewService creates a new PDF service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
	}
}

// InvoiceData represents the data passed to the invoice template
type InvoiceData struct {
	InvoiceNumber string
	InvoiceDate   string
	PlatformName  string
	ContactEmail  string
	Order         *order.Order
}

// GenerateInvoice generates a PDF invoice for a paid order
func (s *Service) GenerateInvoice(o *order.Order) (*bytes.Buffer, error) {
	if o.PaymentStatus != order.PaymentStatusPaid {
		return nil, fmt.Errorf("invoice is only available for paid orders")
	}

	data := InvoiceData{
		InvoiceNumber: fmt.Sprintf("INV-%s", o.OrderCode),
		InvoiceDate:   time.Now().Format("2 January 2006"),
		PlatformName:  s.config.App.Name,
		ContactEmail:  s.config.Mail.FromEmail,
		Order:         o,
	}

	htmlContent, err := s.generateHTML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to generate HTML: %w", err)
	}

	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF generator: %w", err)
	}

	pdfg.Dpi.Set(300)
	pdfg.Orientation.Set(wkhtmltopdf.OrientationPortrait)

	page := wkhtmltopdf.NewPageReader(bytes.NewReader([]byte(htmlContent)))
	page.FooterRight.Set("[page]")
	page.FooterFontSize.Set(9)
	page.Zoom.Set(0.95)
	pdfg.AddPage(page)

	if err := pdfg.Create(); err != nil {
		return nil, fmt.Errorf("failed to create PDF: %w", err)
	}

	return bytes.NewBuffer(pdfg.Bytes()), nil
}

func (s *Service) generateHTML(data InvoiceData) (string, error) {
	var buf bytes.Buffer
	if err := invoiceTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

var invoiceTemplate = template.Must(template.New("invoice").Funcs(template.FuncMap{
	"rupiah": formatRupiah,
}).Parse(invoiceHTML))

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

const invoiceHTML = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Invoice {{.InvoiceNumber}}</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 0; padding: 20px; color: #333; }
        .header { margin-bottom: 30px; border-bottom: 2px solid #eee; padding-bottom: 20px; }
        .invoice-title { font-size: 28px; font-weight: bold; color: #166534; }
        .meta td { padding: 4px 12px 4px 0; }
        .items-table { width: 100%; border-collapse: collapse; margin: 30px 0; }
        .items-table th, .items-table td { border: 1px solid #ddd; padding: 10px 8px; text-align: left; }
        .items-table th { background-color: #f8f9fa; }
        .num { text-align: right; }
        .totals { float: right; width: 320px; }
        .totals td { padding: 6px 8px; border-bottom: 1px solid #eee; }
        .totals .label { text-align: right; font-weight: bold; }
        .total-row td { font-size: 16px; font-weight: bold; border-top: 2px solid #333; }
        .footer { margin-top: 60px; padding-top: 20px; border-top: 1px solid #eee; text-align: center; color: #666; font-size: 12px; }
    </style>
</head>
<body>
    <div class="header">
        <div class="invoice-title">{{.PlatformName}}</div>
        <table class="meta">
            <tr><td><strong>Invoice</strong></td><td>{{.InvoiceNumber}}</td></tr>
            <tr><td><strong>Tanggal</strong></td><td>{{.InvoiceDate}}</td></tr>
            <tr><td><strong>Pesanan</strong></td><td>{{.Order.OrderCode}}</td></tr>
        </table>
    </div>

    <p><strong>Dikirim ke:</strong><br>
    {{.Order.ShippingAddress.RecipientName}} ({{.Order.ShippingAddress.Phone}})<br>
    {{.Order.ShippingAddress.Detail}}<br>
    {{.Order.ShippingAddress.Subdistrict}}, {{.Order.ShippingAddress.District}},
    {{.Order.ShippingAddress.City}}, {{.Order.ShippingAddress.Province}} {{.Order.ShippingAddress.PostalCode}}</p>

    <table class="items-table">
        <thead>
            <tr>
                <th>Produk</th>
                <th class="num">Qty</th>
                <th class="num">Harga</th>
                <th class="num">Jumlah</th>
            </tr>
        </thead>
        <tbody>
            {{range .Order.Items}}
            <tr>
                <td>{{.Name}}{{if .VariantLabel}} &mdash; {{.VariantLabel}}{{end}}</td>
                <td class="num">{{.Quantity}}</td>
                <td class="num">Rp {{rupiah .UnitPrice}}</td>
                <td class="num">Rp {{rupiah .TotalPrice}}</td>
            </tr>
            {{end}}
        </tbody>
    </table>

    <div class="totals">
        <table>
            <tr><td class="label">Subtotal</td><td class="num">Rp {{rupiah .Order.SubtotalAmount}}</td></tr>
            <tr><td class="label">Ongkos kirim ({{.Order.Courier}} {{.Order.CourierService}})</td><td class="num">Rp {{rupiah .Order.ShippingAmount}}</td></tr>
            {{if gt .Order.DiscountAmount 0}}
            <tr><td class="label">Diskon</td><td class="num">-Rp {{rupiah .Order.DiscountAmount}}</td></tr>
            {{end}}
            <tr><td class="label">Pajak</td><td class="num">Rp {{rupiah .Order.TaxAmount}}</td></tr>
            <tr class="total-row"><td class="label">Total</td><td class="num">Rp {{rupiah .Order.TotalAmount}}</td></tr>
        </table>
    </div>

    <div style="clear: both;"></div>

    <div class="footer">
        <p>Terima kasih telah berbelanja di {{.PlatformName}}.</p>
        <p>Pertanyaan tentang invoice ini: {{.ContactEmail}}</p>
    </div>
</body>
</html>
`
