package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"transit-booking/internal/usecase"
	"transit-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MoMoClient talks to a request-to-pay mobile-money API.
type MoMoClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *zap.Logger
}

func NewMoMoClient(config utils.GatewayConfig, log *zap.Logger) *MoMoClient {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &MoMoClient{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		apiKey:  config.APIKey,
		http:    &http.Client{Timeout: timeout},
		log:     log.With(zap.String("gateway", "momo")),
	}
}

type party struct {
	PartyIDType string `json:"partyIdType"`
	PartyID     string `json:"partyId"`
}

type requestToPay struct {
	ExternalID   string `json:"externalId"`
	Amount       string `json:"amount"`
	Currency     string `json:"currency"`
	Payer        party  `json:"payer"`
	PayerMessage string `json:"payerMessage"`
	PayeeNote    string `json:"payeeNote"`
}

type requestToPayStatus struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Initiate starts a request-to-pay. The correlation id is the X-Reference-Id
// the gateway later resolves status by.
func (c *MoMoClient) Initiate(ctx context.Context, req usecase.MobileMoneyRequest) (string, error) {
	correlationID := uuid.NewString()

	body, err := json.Marshal(requestToPay{
		ExternalID: req.ExternalID,
		Amount:     req.Amount.StringFixed(0),
		Currency:   req.Currency,
		Payer: party{
			PartyIDType: "MSISDN",
			PartyID:     strings.TrimPrefix(req.Phone, "+"),
		},
		PayerMessage: req.Description,
		PayeeNote:    "Transport booking payment",
	})
	if err != nil {
		return "", fmt.Errorf("marshal request-to-pay: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1_0/requesttopay", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request-to-pay: %w", err)
	}
	c.authorize(httpReq)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Reference-Id", correlationID)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send request-to-pay: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.log.Error("Request-to-pay rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(msg)),
			zap.String("external_id", req.ExternalID),
		)
		return "", fmt.Errorf("request-to-pay rejected with status %d", resp.StatusCode)
	}

	return correlationID, nil
}

func (c *MoMoClient) Status(ctx context.Context, correlationID string) (usecase.GatewayStatus, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1_0/requesttopay/"+correlationID, nil)
	if err != nil {
		return "", fmt.Errorf("build status request: %w", err)
	}
	c.authorize(httpReq)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send status request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return usecase.GatewayFailed, nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status request failed with status %d", resp.StatusCode)
	}

	var status requestToPayStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return "", fmt.Errorf("decode status response: %w", err)
	}

	switch strings.ToUpper(status.Status) {
	case "SUCCESSFUL":
		return usecase.GatewaySuccessful, nil
	case "FAILED", "REJECTED", "TIMEOUT":
		return usecase.GatewayFailed, nil
	default:
		return usecase.GatewayPending, nil
	}
}

func (c *MoMoClient) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
