package inbound

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-webhook-ingest/core"
	"github.com/goliatone/go-webhook-ingest/webhooks"
	"github.com/shopspring/decimal"
)

const (
	DefaultMaxBodyBytes int64 = 1 << 20
	successMessage            = "Webhook received and processed successfully"
)

type Ingester interface {
	Process(ctx context.Context, delivery webhooks.Delivery) (webhooks.Result, error)
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	Ingester        Ingester
	Transactions    core.TransactionReader
	Readiness       Pinger
	SignatureHeader string
	MaxBodyBytes    int64
	ReadyTimeout    time.Duration
	Logger          core.Logger
	Now             func() time.Time
}

type HandlerOption func(*Handler)

func WithTransactionReader(reader core.TransactionReader) HandlerOption {
	return func(h *Handler) {
		h.Transactions = reader
	}
}

func WithReadinessCheck(pinger Pinger) HandlerOption {
	return func(h *Handler) {
		h.Readiness = pinger
	}
}

func WithSignatureHeader(header string) HandlerOption {
	return func(h *Handler) {
		if header = strings.TrimSpace(header); header != "" {
			h.SignatureHeader = header
		}
	}
}

func WithMaxBodyBytes(limit int64) HandlerOption {
	return func(h *Handler) {
		if limit > 0 {
			h.MaxBodyBytes = limit
		}
	}
}

func WithLogger(logger core.Logger) HandlerOption {
	return func(h *Handler) {
		h.Logger = logger
	}
}

func NewHandler(ingester Ingester, opts ...HandlerOption) (*Handler, error) {
	if ingester == nil {
		return nil, fmt.Errorf("inbound: ingester is required")
	}
	_, logger := glog.Resolve("ingest.http", nil, nil)
	handler := &Handler{
		Ingester:        ingester,
		SignatureHeader: core.DefaultSignatureHeader,
		MaxBodyBytes:    DefaultMaxBodyBytes,
		ReadyTimeout:    time.Second,
		Logger:          logger,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(handler)
	}
	handler.Logger = glog.Ensure(handler.Logger)
	return handler, nil
}

// Register mounts /health, /ready and the /api/v1/webhooks routes.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/health", h.health)
	r.GET("/ready", h.ready)

	api := r.Group("/api/v1/webhooks")
	api.POST("/payment", h.receivePayment)
	api.GET("/events/:event_id/transaction", h.getTransaction)
}

func (h *Handler) receivePayment(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes()))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(c, core.BadInputError(fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)))
			return
		}
		h.writeError(c, core.BadInputError("request body could not be read"))
		return
	}

	result, err := h.Ingester.Process(c.Request.Context(), webhooks.Delivery{
		Body:      body,
		Signature: c.GetHeader(h.signatureHeader()),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"eventId": result.EventID,
		"message": successMessage,
	})
}

func (h *Handler) getTransaction(c *gin.Context) {
	if h.Transactions == nil {
		h.writeError(c, core.NotFoundError("transaction lookups are not enabled"))
		return
	}
	txn, err := h.Transactions.GetByEventID(c.Request.Context(), c.Param("event_id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTransactionResponse(txn))
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) ready(c *gin.Context) {
	if h.Readiness == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.readyTimeout())
	defer cancel()

	if err := h.Readiness.PingContext(ctx); err != nil {
		h.Logger.Warn("readiness check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// RequestTimeout bounds every downstream call made with the request context.
func RequestTimeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if timeout <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (h *Handler) signatureHeader() string {
	if header := strings.TrimSpace(h.SignatureHeader); header != "" {
		return header
	}
	return core.DefaultSignatureHeader
}

func (h *Handler) maxBodyBytes() int64 {
	if h.MaxBodyBytes > 0 {
		return h.MaxBodyBytes
	}
	return DefaultMaxBodyBytes
}

func (h *Handler) readyTimeout() time.Duration {
	if h.ReadyTimeout > 0 {
		return h.ReadyTimeout
	}
	return time.Second
}

func (h *Handler) now() time.Time {
	if h != nil && h.Now != nil {
		return h.Now()
	}
	return time.Now().UTC()
}

type partyResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Country string `json:"country,omitempty"`
}

type transactionResponse struct {
	ID            string          `json:"id"`
	EventID       string          `json:"eventId"`
	TransactionID string          `json:"transactionId"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Sender        partyResponse   `json:"sender"`
	Receiver      partyResponse   `json:"receiver"`
	PaymentMethod string          `json:"paymentMethod,omitempty"`
	Reference     string          `json:"reference,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	Status        string          `json:"status"`
	ProcessingFee decimal.Decimal `json:"processingFee"`
	NetAmount     decimal.Decimal `json:"netAmount"`
	ExchangeRate  decimal.Decimal `json:"exchangeRate"`
	ProcessedAt   time.Time       `json:"processedAt"`
	CreatedAt     time.Time       `json:"createdAt"`
}

func newTransactionResponse(txn core.Transaction) transactionResponse {
	return transactionResponse{
		ID:            txn.ID,
		EventID:       txn.EventID,
		TransactionID: txn.TransactionID,
		Amount:        txn.Amount,
		Currency:      txn.Currency,
		Sender:        partyResponse(txn.Sender),
		Receiver:      partyResponse(txn.Receiver),
		PaymentMethod: txn.PaymentMethod,
		Reference:     txn.Reference,
		Notes:         txn.Notes,
		Status:        string(txn.Status),
		ProcessingFee: txn.ProcessingFee,
		NetAmount:     txn.NetAmount,
		ExchangeRate:  txn.ExchangeRate,
		ProcessedAt:   txn.ProcessedAt,
		CreatedAt:     txn.CreatedAt,
	}
}
