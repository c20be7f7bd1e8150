package app

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/transfa/schoolfees-service/internal/domain"
	"github.com/transfa/schoolfees-service/internal/store"
	"github.com/transfa/schoolfees-service/pkg/paystackclient"
)

// repoStub embeds the Repository interface; tests override only what they exercise.
type repoStub struct {
	store.Repository

	mu            sync.Mutex
	usersByEmail  map[string]*domain.User
	usersByID     map[uuid.UUID]*domain.User
	activeTokens  map[uuid.UUID]string
	deactivations int
	createdUsers  []domain.NewUser

	settleCalls   int
	settleResults []error
	settled       []domain.Settlement

	purgeCutoff time.Time
	purgeCount  int64
}

func newRepoStub(users ...*domain.User) *repoStub {
	s := &repoStub{
		usersByEmail: make(map[string]*domain.User),
		usersByID:    make(map[uuid.UUID]*domain.User),
		activeTokens: make(map[uuid.UUID]string),
	}
	for _, u := range users {
		s.usersByEmail[u.Email] = u
		s.usersByID[u.ID] = u
	}
	return s
}

func (s *repoStub) CreateUser(ctx context.Context, input domain.NewUser) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.usersByEmail[input.Email]; exists {
		return nil, store.ErrAlreadyExists
	}
	s.createdUsers = append(s.createdUsers, input)
	u := &domain.User{
		ID:             uuid.New(),
		FirstName:      input.FirstName,
		LastName:       input.LastName,
		Email:          input.Email,
		HashedPassword: input.HashedPassword,
		Roles:          []string{input.RoleName},
	}
	s.usersByEmail[u.Email] = u
	s.usersByID[u.ID] = u
	return u, nil
}

func (s *repoStub) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.usersByEmail[email]; ok {
		return u, nil
	}
	return nil, store.ErrNotFound
}

func (s *repoStub) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.usersByID[id]; ok {
		return u, nil
	}
	return nil, store.ErrNotFound
}

func (s *repoStub) ReplaceActiveRefreshToken(ctx context.Context, userID uuid.UUID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeTokens[userID] = token
	return nil
}

func (s *repoStub) GetActiveRefreshToken(ctx context.Context, userID uuid.UUID) (*domain.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.activeTokens[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &domain.RefreshToken{Token: token, UserID: userID, IsActive: true}, nil
}

func (s *repoStub) DeactivateRefreshTokens(ctx context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.activeTokens, userID)
	s.deactivations++
	return nil
}

func (s *repoStub) SettlePayment(ctx context.Context, settlement domain.Settlement) (*domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	call := s.settleCalls
	s.settleCalls++
	if call < len(s.settleResults) && s.settleResults[call] != nil {
		return nil, s.settleResults[call]
	}
	s.settled = append(s.settled, settlement)
	return &domain.Payment{ID: uuid.New(), TransactionReference: settlement.Reference, SchoolID: settlement.SchoolID}, nil
}

func (s *repoStub) PurgeRefreshTokens(ctx context.Context, olderThan time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeCutoff = olderThan
	return s.purgeCount, nil
}

type publishedEvent struct {
	exchange   string
	routingKey string
	body       interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{exchange: exchange, routingKey: routingKey, body: body})
	return p.err
}

func (p *recordingPublisher) Close() {}

type gatewayStub struct {
	chargeRequests []paystackclient.ChargeRequest
	chargeResult   *paystackclient.ChargeResult
	chargeErr      error
	otpResult      *paystackclient.ChargeResult
	otpErr         error
	signatureOK    bool
}

func (g *gatewayStub) InitiateUSSDCharge(ctx context.Context, req paystackclient.ChargeRequest) (*paystackclient.ChargeResult, error) {
	g.chargeRequests = append(g.chargeRequests, req)
	if g.chargeErr != nil {
		return nil, g.chargeErr
	}
	if g.chargeResult != nil {
		return g.chargeResult, nil
	}
	return &paystackclient.ChargeResult{Reference: req.Reference, Status: "send_otp"}, nil
}

func (g *gatewayStub) SubmitOTP(ctx context.Context, reference, otp string) (*paystackclient.ChargeResult, error) {
	if g.otpErr != nil {
		return nil, g.otpErr
	}
	if g.otpResult != nil {
		return g.otpResult, nil
	}
	return &paystackclient.ChargeResult{Reference: reference, Status: "pay_offline"}, nil
}

func (g *gatewayStub) VerifyTransaction(ctx context.Context, reference string) (*paystackclient.ChargeResult, error) {
	return &paystackclient.ChargeResult{Reference: reference, Status: "success"}, nil
}

func (g *gatewayStub) VerifySignature(rawBody []byte, signature string) bool {
	return g.signatureOK
}
