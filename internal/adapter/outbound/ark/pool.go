package ark

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/reelforge/server/internal/module/generation"
	apperrors "github.com/reelforge/server/internal/shared/errors"
	"github.com/reelforge/server/internal/shared/metrics"
)

// Pool builds ordered provider client lists. A caller-supplied base-URL
// override yields exactly that endpoint with no fallback diversity;
// otherwise the fixed regional list is used.
//
// Each configured endpoint carries a circuit breaker shared across
// requests: an endpoint that keeps failing is skipped quickly instead
// of eating its full timeout every round. Override endpoints come from
// request input and get a plain client; holding state per arbitrary
// caller URL would let callers grow the pool without bound.
type Pool struct {
	endpoints []string
	http      *http.Client
	metrics   *metrics.Metrics
	breakers  map[string]*gobreaker.CircuitBreaker[any]
}

// NewPool creates a pool over the given ordered regional endpoints.
func NewPool(endpoints []string, httpClient *http.Client, m *metrics.Metrics) *Pool {
	p := &Pool{
		endpoints: endpoints,
		http:      httpClient,
		metrics:   m,
		breakers:  make(map[string]*gobreaker.CircuitBreaker[any], len(endpoints)),
	}
	for _, endpoint := range endpoints {
		p.breakers[endpoint] = newBreaker(endpoint)
	}
	return p
}

// Clients returns the ordered client list for a credential. No network
// I/O happens here.
func (p *Pool) Clients(apiKey, baseURL string) []generation.ProviderClient {
	if baseURL != "" {
		return []generation.ProviderClient{NewClient(baseURL, apiKey, p.http, p.metrics)}
	}
	clients := make([]generation.ProviderClient, 0, len(p.endpoints))
	for _, endpoint := range p.endpoints {
		clients = append(clients, &breakerClient{
			client:  NewClient(endpoint, apiKey, p.http, p.metrics),
			breaker: p.breakers[endpoint],
		})
	}
	return clients
}

func newBreaker(endpoint string) *gobreaker.CircuitBreaker[any] {
	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        endpoint,
		MaxRequests: 1,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Credential rejections are the caller's problem, not a sign
		// the endpoint is down; they must not trip the breaker.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, apperrors.ErrUnauthorized)
		},
	})
}

// breakerClient decorates a Client with its endpoint's circuit breaker.
type breakerClient struct {
	client  *Client
	breaker *gobreaker.CircuitBreaker[any]
}

func (b *breakerClient) Endpoint() string {
	return b.client.Endpoint()
}

func (b *breakerClient) CreateTask(ctx context.Context, model, prompt string, referenceImageURLs []string) (string, error) {
	result, err := b.breaker.Execute(func() (any, error) {
		return b.client.CreateTask(ctx, model, prompt, referenceImageURLs)
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (b *breakerClient) GetTask(ctx context.Context, taskID string) (*generation.TaskView, error) {
	result, err := b.breaker.Execute(func() (any, error) {
		return b.client.GetTask(ctx, taskID)
	})
	if err != nil {
		return nil, err
	}
	return result.(*generation.TaskView), nil
}

var _ generation.ClientPool = (*Pool)(nil)
var _ generation.ProviderClient = (*breakerClient)(nil)
