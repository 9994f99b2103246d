package polymarket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/polycopy/engine/internal/domain"
)

const (
	balancePath = "/balance-allowance?asset_type=COLLATERAL"
	orderPath   = "/order"

	// USDC usa 6 decimales en el CLOB.
	usdcDecimals = 1e6
)

// Trader implementa ports.Executor contra el CLOB real con auth L2.
// Solo se usa en modo live; en paper mode el executor es una simulación.
type Trader struct {
	client *Client
	creds  Credentials
}

// NewTrader crea un Trader. Devuelve error si faltan credenciales.
func NewTrader(client *Client, creds Credentials) (*Trader, error) {
	if !creds.Complete() {
		return nil, fmt.Errorf("incomplete CLOB credentials: address, api key, secret and passphrase are required")
	}
	return &Trader{client: client, creds: creds}, nil
}

// GetBalance devuelve el balance USDC disponible en dólares.
func (t *Trader) GetBalance(ctx context.Context) (float64, error) {
	var resp clobBalanceResponse
	if err := t.signedRequest(ctx, http.MethodGet, balancePath, nil, &resp); err != nil {
		return 0, fmt.Errorf("clob.GetBalance: %w", err)
	}

	raw, err := strconv.ParseFloat(resp.Balance, 64)
	if err != nil {
		return 0, fmt.Errorf("clob.GetBalance: parse balance %q: %w", resp.Balance, err)
	}
	return raw / usdcDecimals, nil
}

// GetMarket resuelve el mercado por slug vía Gamma+CLOB.
func (t *Trader) GetMarket(ctx context.Context, slug string) (domain.Market, error) {
	m, found, err := t.client.GetMarketBySlug(ctx, slug)
	if err != nil {
		return domain.Market{}, err
	}
	if !found {
		return domain.Market{}, fmt.Errorf("market %q not found", slug)
	}
	return m, nil
}

// PlaceOrder envía una orden al CLOB. Una orden rechazada es un error.
func (t *Trader) PlaceOrder(ctx context.Context, req domain.PlaceOrderRequest) (domain.PlacedOrder, error) {
	body := clobOrderRequest{
		TokenID: req.TokenID,
		Price:   req.Price,
		Size:    req.Shares,
		Side:    string(req.Side),
	}

	var resp clobOrderResponse
	if err := t.signedRequest(ctx, http.MethodPost, orderPath, body, &resp); err != nil {
		return domain.PlacedOrder{}, fmt.Errorf("clob.PlaceOrder: %w", err)
	}
	if !resp.Success {
		return domain.PlacedOrder{}, fmt.Errorf("clob.PlaceOrder: rejected: %s", resp.ErrorMsg)
	}

	return domain.PlacedOrder{OrderID: resp.OrderID}, nil
}

// signedRequest hace un request L2 firmado contra el CLOB, con el mismo
// rate limiting y retries que los requests públicos. La firma se
// regenera en cada intento porque lleva el timestamp.
func (t *Trader) signedRequest(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		payload = b
	}

	c := t.client
	return c.doWithRetry(ctx, c.clobLimiter, func() (*http.Response, error) {
		timestamp := strconv.FormatInt(time.Now().Unix(), 10)
		signature, err := buildHmacSignature(t.creds.Secret, timestamp, method, path, string(payload))
		if err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, method, c.clobBase+path, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("POLY_ADDRESS", t.creds.Address)
		req.Header.Set("POLY_API_KEY", t.creds.APIKey)
		req.Header.Set("POLY_PASSPHRASE", t.creds.Passphrase)
		req.Header.Set("POLY_TIMESTAMP", timestamp)
		req.Header.Set("POLY_SIGNATURE", signature)

		return c.http.Do(req)
	}, out)
}
