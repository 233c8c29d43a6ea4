package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"
	"wedding-registry/models"
)

// Sandbox is an in-memory provider. It backs any method whose credentials are
// not configured and lets tests drive intents to a chosen status.
type Sandbox struct {
	method models.PaymentMethod

	mu          sync.Mutex
	seq         int
	statuses    map[string]models.IntentStatus
	createErr   error
	queryErr    error
	delay       time.Duration
	createCalls int
	queryCalls  int
}

func NewSandbox(method models.PaymentMethod) *Sandbox {
	return &Sandbox{method: method, statuses: make(map[string]models.IntentStatus)}
}

func (s *Sandbox) Method() models.PaymentMethod { return s.method }

func (s *Sandbox) CreateIntent(ctx context.Context, req CreateRequest) (*Intent, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.createCalls++
	if s.createErr != nil {
		err := s.createErr
		s.mu.Unlock()
		return nil, err
	}
	s.seq++
	ref := fmt.Sprintf("sbx_%s_%d", s.method, s.seq)
	s.statuses[ref] = models.IntentPending
	s.mu.Unlock()

	intent := &Intent{ProviderRef: ref, Status: models.IntentPending}
	if s.method == models.MethodPix {
		intent.QRCode = fmt.Sprintf("SANDBOX|%s|%d|%s", req.Reference, req.Amount, req.Currency)
		png, err := renderQR(intent.QRCode)
		if err != nil {
			return nil, err
		}
		intent.QRCodeBase64 = png
	} else {
		intent.RedirectURL = "https://sandbox.invalid/checkout/" + ref
	}
	return intent, nil
}

func (s *Sandbox) QueryStatus(ctx context.Context, providerRef string) (models.IntentStatus, error) {
	if err := s.wait(ctx); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.queryCalls++
	if s.queryErr != nil {
		return "", s.queryErr
	}
	status, ok := s.statuses[providerRef]
	if !ok {
		return "", &ProviderError{StatusCode: 404, Body: "unknown payment " + providerRef}
	}
	return status, nil
}

// SetStatus moves a sandbox payment, as the payer or provider would.
func (s *Sandbox) SetStatus(providerRef string, status models.IntentStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[providerRef] = status
}

func (s *Sandbox) FailCreate(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createErr = err
}

func (s *Sandbox) FailQuery(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queryErr = err
}

// SetDelay makes every call wait d or until its context is done.
func (s *Sandbox) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

func (s *Sandbox) Calls() (create, query int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createCalls, s.queryCalls
}

func (s *Sandbox) wait(ctx context.Context) error {
	s.mu.Lock()
	d := s.delay
	s.mu.Unlock()
	if d == 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
