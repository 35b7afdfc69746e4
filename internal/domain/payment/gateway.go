// internal/domain/payment/gateway.go
package payment

import (
	"bytes"
	"context"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/your-org/feedmarket-backend/internal/config"
	"github.com/your-org/feedmarket-backend/internal/domain/order"
)

// GatewayStatus is the raw transaction status reported by the gateway
type GatewayStatus string

const (
	GatewaySettlement GatewayStatus = "settlement"
	GatewayCapture    GatewayStatus = "capture"
	GatewayPending    GatewayStatus = "pending"
	GatewayDeny       GatewayStatus = "deny"
	GatewayCancel     GatewayStatus = "cancel"
	GatewayExpire     GatewayStatus = "expire"
	GatewayFailure    GatewayStatus = "failure"
)

// TransactionRequest describes the hosted payment page to create
type TransactionRequest struct {
	OrderCode    string
	GrossAmount  int64
	CustomerName string
	Email        string
	Expiry       time.Duration
}

// Session is a live hosted payment page: the token identifies it at the
// gateway, the redirect URL is where the customer pays
type Session struct {
	ID          string     `json:"id"`
	RedirectURL string     `json:"redirect_url"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

// Notification is the gateway's server-to-server payment notification
type Notification struct {
	OrderCode         string        `json:"order_id" binding:"required"`
	TransactionStatus GatewayStatus `json:"transaction_status" binding:"required"`
	StatusCode        string        `json:"status_code"`
	GrossAmount       string        `json:"gross_amount"`
	SignatureKey      string        `json:"signature_key"`
	FraudStatus       string        `json:"fraud_status"`
}

// Gateway talks to the payment provider
type Gateway interface {
	// CreateTransaction mints a hosted payment page for the payable.
	CreateTransaction(ctx context.Context, req *TransactionRequest) (*Session, error)

	// GetTransactionStatus queries the authoritative status of a
	// transaction by its order code.
	GetTransactionStatus(ctx context.Context, orderCode string) (GatewayStatus, error)

	// VerifyNotification checks a webhook notification's signature.
	VerifyNotification(n *Notification) error
}

// snapGateway implements Gateway against a snap-style hosted payment
// API: transactions are created keyed by order code and the customer is
// redirected to a gateway-hosted page
type snapGateway struct {
	baseURL    string
	serverKey  string
	callback   string
	httpClient *http.Client
}

// NewSnapGateway creates the HTTP gateway client
func NewSnapGateway(cfg *config.Config) Gateway {
	return &snapGateway{
		baseURL:   cfg.Gateway.BaseURL,
		serverKey: cfg.Gateway.ServerKey,
		callback:  cfg.Gateway.CallbackURL,
		httpClient: &http.Client{
			Timeout: cfg.Gateway.Timeout,
		},
	}
}

type snapTransactionRequest struct {
	TransactionDetails struct {
		OrderID     string `json:"order_id"`
		GrossAmount int64  `json:"gross_amount"`
	} `json:"transaction_details"`
	CustomerDetails struct {
		FirstName string `json:"first_name"`
		Email     string `json:"email"`
	} `json:"customer_details"`
	Expiry struct {
		Duration int    `json:"duration"`
		Unit     string `json:"unit"`
	} `json:"expiry"`
	Callbacks struct {
		Finish string `json:"finish"`
	} `json:"callbacks"`
}

type snapTransactionResponse struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
}

func (g *snapGateway) CreateTransaction(ctx context.Context, req *TransactionRequest) (*Session, error) {
	var body snapTransactionRequest
	body.TransactionDetails.OrderID = req.OrderCode
	body.TransactionDetails.GrossAmount = req.GrossAmount
	body.CustomerDetails.FirstName = req.CustomerName
	body.CustomerDetails.Email = req.Email
	body.Expiry.Duration = int(req.Expiry.Minutes())
	body.Expiry.Unit = "minute"
	body.Callbacks.Finish = g.callback

	respBody, err := g.makeAPICall(ctx, http.MethodPost, "/snap/v1/transactions", body)
	if err != nil {
		return nil, err
	}

	var resp snapTransactionResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse transaction response: %w", err)
	}
	if resp.Token == "" || resp.RedirectURL == "" {
		return nil, fmt.Errorf("%w: incomplete transaction response", ErrGatewayRejected)
	}

	expiresAt := time.Now().Add(req.Expiry)
	return &Session{
		ID:          resp.Token,
		RedirectURL: resp.RedirectURL,
		ExpiresAt:   &expiresAt,
	}, nil
}

type snapStatusResponse struct {
	TransactionStatus GatewayStatus `json:"transaction_status"`
	StatusCode        string        `json:"status_code"`
	GrossAmount       string        `json:"gross_amount"`
	FraudStatus       string        `json:"fraud_status"`
}

func (g *snapGateway) GetTransactionStatus(ctx context.Context, orderCode string) (GatewayStatus, error) {
	respBody, err := g.makeAPICall(ctx, http.MethodGet, fmt.Sprintf("/v2/%s/status", orderCode), nil)
	if err != nil {
		return "", err
	}

	var resp snapStatusResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("failed to parse status response: %w", err)
	}
	if resp.TransactionStatus == "" {
		return "", fmt.Errorf("%w: missing transaction status", ErrGatewayRejected)
	}

	// A captured card payment flagged by fraud screening is not settled
	if resp.TransactionStatus == GatewayCapture && resp.FraudStatus == "challenge" {
		return GatewayPending, nil
	}

	return resp.TransactionStatus, nil
}

// VerifyNotification recomputes the notification signature:
// sha512(order_id + status_code + gross_amount + server_key)
func (g *snapGateway) VerifyNotification(n *Notification) error {
	payload := n.OrderCode + n.StatusCode + n.GrossAmount + g.serverKey
	sum := sha512.Sum512([]byte(payload))
	if hex.EncodeToString(sum[:]) != n.SignatureKey {
		return ErrInvalidSignature
	}
	return nil
}

// makeAPICall makes HTTP calls to the gateway API
func (g *snapGateway) makeAPICall(ctx context.Context, method, endpoint string, data interface{}) ([]byte, error) {
	var reqBody []byte
	var err error
	if data != nil {
		reqBody, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request data: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+endpoint, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(g.serverKey, "")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	var respBody bytes.Buffer
	if _, err := respBody.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: status %d", ErrGatewayUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: status %d: %s", ErrGatewayRejected, resp.StatusCode, respBody.String())
	}

	return respBody.Bytes(), nil
}

// MapGatewayStatus translates a raw gateway status into the payment
// state machine. Pending maps to pending: not an error, just not
// resolved yet.
func MapGatewayStatus(gs GatewayStatus) order.PaymentStatus {
	switch gs {
	case GatewaySettlement, GatewayCapture:
		return order.PaymentStatusPaid
	case GatewayDeny, GatewayCancel, GatewayFailure:
		return order.PaymentStatusFailed
	case GatewayExpire:
		return order.PaymentStatusExpired
	default:
		return order.PaymentStatusPending
	}
}
