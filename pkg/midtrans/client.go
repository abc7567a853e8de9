package midtrans

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"

	"github.com/nandazuhri/lokapasar-backend/pkg/config"
	"github.com/nandazuhri/lokapasar-backend/pkg/logger"
)

const (
	sandboxEnv    = "sandbox"
	productionEnv = "production"
)

var (
	errServerKeyRequired = errors.New("midtrans server key is required")
	errInvalidEnv        = fmt.Errorf("midtrans environment must be %q or %q", sandboxEnv, productionEnv)
)

// LineItem is one priced row forwarded to the gateway.
type LineItem struct {
	ID    string
	Name  string
	Price int64
	Qty   int32
}

// Session is the gateway's handle for a newly initialized payment.
type Session struct {
	Token       string
	RedirectURL string
}

// Client wraps the Snap API client plus the server key used for
// notification signature checks.
type Client struct {
	snap        snap.Client
	serverKey   string
	environment string
}

// NewClient initializes the gateway client once with the configured secrets.
func NewClient(ctx context.Context, cfg config.MidtransConfig, logg *logger.Logger) (*Client, error) {
	serverKey := strings.TrimSpace(cfg.ServerKey)
	if serverKey == "" {
		return nil, errServerKeyRequired
	}

	env, err := normalizeEnv(cfg.Environment)
	if err != nil {
		return nil, err
	}
	gatewayEnv := midtrans.Sandbox
	if env == productionEnv {
		gatewayEnv = midtrans.Production
	}

	var sc snap.Client
	sc.New(serverKey, gatewayEnv)

	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("midtrans client initialized (%s)", env))
	}

	return &Client{
		snap:        sc,
		serverKey:   serverKey,
		environment: env,
	}, nil
}

// Environment reports the normalized gateway environment in use.
func (c *Client) Environment() string {
	if c == nil {
		return ""
	}
	return c.environment
}

// CreateTransaction requests a Snap session for the given order reference.
// The amount is in minor units; item prices must sum to the amount.
func (c *Client) CreateTransaction(ctx context.Context, orderCode string, amount int64, items []LineItem) (*Session, error) {
	if c == nil {
		return nil, errors.New("midtrans client is nil")
	}
	if orderCode == "" {
		return nil, errors.New("order code is required")
	}
	if amount <= 0 {
		return nil, fmt.Errorf("amount must be positive, got %d", amount)
	}

	// The snap SDK call carries no context; the gateway client's own HTTP
	// timeout bounds it.
	resp, gatewayErr := c.snap.CreateTransaction(buildSnapRequest(orderCode, amount, items))
	if gatewayErr != nil {
		return nil, fmt.Errorf("snap create transaction: %w", gatewayErr)
	}
	return &Session{Token: resp.Token, RedirectURL: resp.RedirectURL}, nil
}

func buildSnapRequest(orderCode string, amount int64, items []LineItem) *snap.Request {
	details := make([]midtrans.ItemDetails, 0, len(items))
	for _, item := range items {
		details = append(details, midtrans.ItemDetails{
			ID:    item.ID,
			Name:  truncateName(item.Name),
			Price: item.Price,
			Qty:   item.Qty,
		})
	}

	return &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderCode,
			GrossAmt: amount,
		},
		Items: &details,
	}
}

// VerifySignature checks the sha512 signature carried by an HTTP notification:
// hex(sha512(order_id + status_code + gross_amount + server_key)).
func (c *Client) VerifySignature(orderCode, statusCode, grossAmount, signature string) bool {
	if c == nil || signature == "" {
		return false
	}
	sum := sha512.Sum512([]byte(orderCode + statusCode + grossAmount + c.serverKey))
	expected := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(signature))) == 1
}

func normalizeEnv(value string) (string, error) {
	env := strings.ToLower(strings.TrimSpace(value))
	switch env {
	case "", sandboxEnv:
		return sandboxEnv, nil
	case productionEnv:
		return productionEnv, nil
	default:
		return "", errInvalidEnv
	}
}

// Midtrans caps item names at 50 characters.
func truncateName(name string) string {
	if len(name) <= 50 {
		return name
	}
	return name[:50]
}
