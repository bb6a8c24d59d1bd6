package signing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bizmatch/deal-engine-backend/internal/config"
)

// Signer is one recipient of an envelope.
type Signer struct {
	UserID uuid.UUID `json:"user_id"`
	Name   string    `json:"name"`
	Email  string    `json:"email"`
	Role   string    `json:"role"`
}

// SignatureRequest asks the provider to collect signatures on a document.
type SignatureRequest struct {
	DocumentID    uuid.UUID `json:"document_id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	Title         string    `json:"title"`
	Signers       []Signer  `json:"signers"`
	CallbackURL   string    `json:"callback_url"`
}

// Envelope is the provider's handle for a signature round.
type Envelope struct {
	ID         string    `json:"id"`
	DocumentID uuid.UUID `json:"document_id"`
	Status     string    `json:"status"`
	SentAt     time.Time `json:"sent_at"`
}

// Provider sends documents out for electronic signature. Results come back
// asynchronously through the signing webhook.
type Provider interface {
	SendForSignature(ctx context.Context, req *SignatureRequest) (*Envelope, error)
}

// HTTPProvider talks to an external e-signature service over its REST API.
type HTTPProvider struct {
	cfg        config.SigningConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPProvider creates a new HTTP signing provider
func NewHTTPProvider(cfg config.SigningConfig, logger *zap.Logger) *HTTPProvider {
	timeout := cfg.SendTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProvider{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// SendForSignature creates an envelope with the provider.
func (p *HTTPProvider) SendForSignature(ctx context.Context, req *SignatureRequest) (*Envelope, error) {
	if len(req.Signers) == 0 {
		return nil, fmt.Errorf("signature request needs at least one signer")
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode signature request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/v1/envelopes", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build signature request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("signature provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("signature provider returned status %d", resp.StatusCode)
	}

	var envelope Envelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode envelope: %w", err)
	}

	p.logger.Info("Envelope sent for signature",
		zap.String("envelope_id", envelope.ID),
		zap.String("document_id", req.DocumentID.String()),
		zap.Int("signers", len(req.Signers)))

	return &envelope, nil
}
