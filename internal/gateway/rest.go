package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	domainErrors "github.com/cassiomorais/checkout-gateway/internal/domain/errors"
	"github.com/cassiomorais/checkout-gateway/internal/domain/method"
	"github.com/cassiomorais/checkout-gateway/internal/domain/transaction"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const restTimeout = 30 * time.Second

// RESTGateway talks to the live remote payment platform over its JSON API.
// It implements every port in this package; version conflicts and missing
// entities are translated into their domain errors so callers never see raw
// status codes.
type RESTGateway struct {
	baseURL string
	userID  int64
	apiKey  string
	client  *http.Client
}

// NewRESTGateway creates a RESTGateway against the given base URL.
func NewRESTGateway(baseURL string, userID int64, apiKey string) *RESTGateway {
	return &RESTGateway{
		baseURL: baseURL,
		userID:  userID,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout:   restTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (g *RESTGateway) Create(ctx context.Context, spaceID int64, draft *transaction.Draft) (*transaction.Transaction, error) {
	var tx transaction.Transaction
	if err := g.call(ctx, http.MethodPost, "/api/transaction/create", spaceQuery(spaceID), draft, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

func (g *RESTGateway) Read(ctx context.Context, spaceID, id int64) (*transaction.Transaction, error) {
	q := spaceQuery(spaceID)
	q.Set("id", strconv.FormatInt(id, 10))
	var tx transaction.Transaction
	if err := g.call(ctx, http.MethodGet, "/api/transaction/read", q, nil, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

func (g *RESTGateway) Update(ctx context.Context, spaceID int64, pending *transaction.Pending) (*transaction.Transaction, error) {
	var tx transaction.Transaction
	if err := g.call(ctx, http.MethodPost, "/api/transaction/update", spaceQuery(spaceID), pending, &tx); err != nil {
		return nil, g.conflictFor(err, pending)
	}
	return &tx, nil
}

func (g *RESTGateway) Confirm(ctx context.Context, spaceID int64, pending *transaction.Pending) (*transaction.Transaction, error) {
	var tx transaction.Transaction
	if err := g.call(ctx, http.MethodPost, "/api/transaction/confirm", spaceQuery(spaceID), pending, &tx); err != nil {
		return nil, g.conflictFor(err, pending)
	}
	return &tx, nil
}

func (g *RESTGateway) FetchPossible(ctx context.Context, spaceID, transactionID int64, integration string) ([]method.Configuration, error) {
	q := spaceQuery(spaceID)
	q.Set("id", strconv.FormatInt(transactionID, 10))
	q.Set("integrationMode", integration)
	var methods []method.Configuration
	if err := g.call(ctx, http.MethodGet, "/api/transaction/fetch-possible-payment-methods", q, nil, &methods); err != nil {
		return nil, err
	}
	for i := range methods {
		methods[i].SpaceID = spaceID
		methods[i].Kind = method.KindFull
	}
	return methods, nil
}

func (g *RESTGateway) JavascriptURL(ctx context.Context, spaceID, transactionID int64) (string, error) {
	return g.fetchURL(ctx, "/api/transaction/build-javascript-url", spaceID, transactionID)
}

func (g *RESTGateway) PaymentPageURL(ctx context.Context, spaceID, transactionID int64) (string, error) {
	return g.fetchURL(ctx, "/api/transaction/build-payment-page-url", spaceID, transactionID)
}

func (g *RESTGateway) fetchURL(ctx context.Context, path string, spaceID, transactionID int64) (string, error) {
	q := spaceQuery(spaceID)
	q.Set("id", strconv.FormatInt(transactionID, 10))
	var out string
	if err := g.call(ctx, http.MethodGet, path, q, nil, &out); err != nil {
		return "", err
	}
	return out, nil
}

func (g *RESTGateway) SearchByTransaction(ctx context.Context, spaceID, transactionID int64) ([]ChargeAttempt, error) {
	q := spaceQuery(spaceID)
	q.Set("transactionId", strconv.FormatInt(transactionID, 10))
	var attempts []ChargeAttempt
	if err := g.call(ctx, http.MethodGet, "/api/charge-attempt/search", q, nil, &attempts); err != nil {
		return nil, err
	}
	return attempts, nil
}

func (g *RESTGateway) ListActive(ctx context.Context, spaceID int64) ([]Listener, error) {
	var listeners []Listener
	if err := g.call(ctx, http.MethodGet, "/api/webhook-listener/search", spaceQuery(spaceID), nil, &listeners); err != nil {
		return nil, err
	}
	return listeners, nil
}

func (g *RESTGateway) UpdateListener(ctx context.Context, spaceID int64, listener Listener) error {
	return g.call(ctx, http.MethodPost, "/api/webhook-listener/update", spaceQuery(spaceID), listener, nil)
}

// call runs one authenticated JSON round trip and decodes the response into
// out when it is non-nil.
func (g *RESTGateway) call(ctx context.Context, httpMethod, path string, query url.Values, body, out any) error {
	endpoint := g.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, httpMethod, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.SetBasicAuth(strconv.FormatInt(g.userID, 10), g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return NewAPIError(0, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		switch resp.StatusCode {
		case http.StatusNotFound:
			return domainErrors.ErrTransactionNotFound
		case http.StatusConflict:
			return domainErrors.ErrVersionConflict
		default:
			return NewAPIError(resp.StatusCode, string(msg))
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return NewAPIError(resp.StatusCode, "undecodable response: "+err.Error())
	}
	return nil
}

// conflictFor upgrades the bare conflict sentinel into a ConflictError
// carrying the submitted version, for logs and retry decisions.
func (g *RESTGateway) conflictFor(err error, pending *transaction.Pending) error {
	if err == domainErrors.ErrVersionConflict {
		return &ConflictError{
			TransactionID:   pending.ID,
			ExpectedVersion: pending.Version,
		}
	}
	return err
}

func spaceQuery(spaceID int64) url.Values {
	q := url.Values{}
	q.Set("spaceId", strconv.FormatInt(spaceID, 10))
	return q
}
