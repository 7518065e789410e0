package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"vcard-service/internal/catalog"
	"vcard-service/internal/events"
	"vcard-service/internal/issuer"
	"vcard-service/internal/model"
	"vcard-service/internal/navigation"
	"vcard-service/internal/repository/storage"
	"vcard-service/internal/util"
)

var (
	ErrInvalidProfile = errors.New("name, email and phone are required")
	ErrInvalidInput   = errors.New("invalid input")
)

// SessionService owns the card state of one browser profile: the identity,
// the single active-card slot, the history ledger and the countdown of the
// presented card. Every operation and every timer callback runs under mu.
type SessionService struct {
	mu sync.Mutex

	deviceID string
	identity *storage.IdentityStore
	sessions *storage.SessionStore
	factory  *issuer.Factory
	clock    clockwork.Clock
	emitter  events.Emitter
	logger   *zap.Logger

	user       *model.UserProfile
	restored   bool
	session    model.Session
	generation uint64
	countdown  *countdown
}

// Deps groups the collaborators shared by every SessionService.
type Deps struct {
	Factory *issuer.Factory
	Clock   clockwork.Clock
	Emitter events.Emitter
	Logger  *zap.Logger
}

func NewSessionService(deviceID string, identity *storage.IdentityStore, sessions *storage.SessionStore, deps Deps) *SessionService {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Factory == nil {
		deps.Factory = issuer.NewFactory(issuer.WithClock(deps.Clock))
	}
	if deps.Emitter == nil {
		deps.Emitter = events.Nop{}
	}
	if deps.Logger == nil {
		deps.Logger = util.Get()
	}
	return &SessionService{
		deviceID: deviceID,
		identity: identity,
		sessions: sessions,
		factory:  deps.Factory,
		clock:    deps.Clock,
		emitter:  deps.Emitter,
		logger:   deps.Logger.With(zap.String("device_id", deviceID)),
	}
}

// ==============================
// Identity
// ==============================

// Login replaces the current identity and swaps in the stored session of the
// new email. Timers armed for the previous session are cancelled first.
func (s *SessionService) Login(ctx context.Context, profile model.UserProfile) (*model.UserProfile, error) {
	profile = model.UserProfile{
		Name:  strings.TrimSpace(profile.Name),
		Email: strings.TrimSpace(profile.Email),
		Phone: strings.TrimSpace(profile.Phone),
	}
	if profile.Name == "" || profile.Email == "" || profile.Phone == "" {
		return nil, ErrInvalidProfile
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.resetTimersLocked()

	session, err := s.sessions.Load(ctx, profile.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if err := s.identity.SaveUser(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to persist identity: %w", err)
	}

	s.user = &profile
	s.session = session
	s.restored = true

	s.logger.Info("User logged in",
		util.Email("user", profile.Email),
		util.Int("history_len", len(session.History)),
		util.Bool("has_active", session.ActiveCard != nil))

	out := profile
	return &out, nil
}

// Logout clears the identity and the in-memory session. Stored partitions are
// kept so a later login restores them.
func (s *SessionService) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.restoreLocked(ctx); err != nil {
		return err
	}
	s.resetTimersLocked()

	if s.user != nil {
		if err := s.identity.ClearUser(ctx, *s.user); err != nil {
			return fmt.Errorf("failed to clear identity: %w", err)
		}
		s.logger.Info("User logged out", util.Email("user", s.user.Email))
	}

	s.user = nil
	s.session = model.Session{}
	s.restored = true
	return nil
}

// CurrentProfile returns the logged-in user, restoring it from storage on the
// first call after a cold start.
func (s *SessionService) CurrentProfile(ctx context.Context) (*model.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.restoreLocked(ctx); err != nil {
		return nil, err
	}
	return cloneProfile(s.user), nil
}

// LoginHint returns the profile of the last logout for form auto-fill.
func (s *SessionService) LoginHint(ctx context.Context) (*model.UserProfile, error) {
	return s.identity.LastUser(ctx)
}

func (s *SessionService) AcknowledgeIntro(ctx context.Context) error {
	return s.identity.MarkIntroSeen(ctx)
}

func (s *SessionService) IntroSeen(ctx context.Context) (bool, error) {
	return s.identity.IntroSeen(ctx)
}

// PermittedRoute applies the navigation guard to requested for this profile.
func (s *SessionService) PermittedRoute(ctx context.Context, requested string) (string, error) {
	seen, err := s.identity.IntroSeen(ctx)
	if err != nil {
		return "", err
	}
	user, err := s.CurrentProfile(ctx)
	if err != nil {
		return "", err
	}
	return navigation.PermittedRoute(seen, user != nil, requested), nil
}

// ==============================
// Transactions
// ==============================

// ValidateCreateRequest checks a create request against the catalog. Catalog
// entries may be named by id or by display value.
func ValidateCreateRequest(req model.CreateCardRequest) error {
	if _, ok := catalog.FindPlatform(req.Platform); !ok {
		return fmt.Errorf("%w: unknown platform %q", ErrInvalidInput, req.Platform)
	}
	if _, ok := catalog.FindNetwork(req.Network); !ok {
		return fmt.Errorf("%w: unknown network %q", ErrInvalidInput, req.Network)
	}
	if _, ok := catalog.FindBank(req.Bank); !ok {
		return fmt.Errorf("%w: unknown bank %q", ErrInvalidInput, req.Bank)
	}
	if _, ok := catalog.FindColor(req.Color); !ok {
		return fmt.Errorf("%w: unknown colour %q", ErrInvalidInput, req.Color)
	}
	if req.AmountUsd <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	return nil
}

// displayRequest replaces catalog references with the values a card records:
// platform and bank names, the network id and the colour gradient. Values the
// catalog does not know are kept as given.
func displayRequest(req model.CreateCardRequest) model.CreateCardRequest {
	if p, ok := catalog.FindPlatform(req.Platform); ok {
		req.Platform = p.Name
	}
	if n, ok := catalog.FindNetwork(req.Network); ok {
		req.Network = n.ID
	}
	if b, ok := catalog.FindBank(req.Bank); ok {
		req.Bank = b.Name
	}
	if c, ok := catalog.FindColor(req.Color); ok {
		req.Color = c.Value
	}
	return req
}

// CreateTransaction builds a new card and makes it the active card,
// replacing any previous one. Without an identity the card lives in memory
// only.
func (s *SessionService) CreateTransaction(ctx context.Context, req model.CreateCardRequest) (model.CardTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.restoreLocked(ctx); err != nil {
		return model.CardTransaction{}, err
	}

	tx := s.factory.Build(displayRequest(req))
	s.resetTimersLocked()
	active := tx
	s.session.ActiveCard = &active

	if err := s.persistLocked(ctx); err != nil {
		return model.CardTransaction{}, err
	}
	s.emitLocked(events.CardCreated, tx)

	s.logger.Info("Card created",
		util.String("transaction_id", tx.ID),
		util.String("platform", tx.Platform),
		util.Int64("amount_inr", tx.AmountInr))
	return tx, nil
}

// ConfirmPayment records the active card in history. It is a no-op without
// an active card and when the card is already recorded.
func (s *SessionService) ConfirmPayment(ctx context.Context) (*model.CardTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.restoreLocked(ctx); err != nil {
		return nil, err
	}
	active := s.session.ActiveCard
	if active == nil {
		return nil, nil
	}
	if s.historyIndexLocked(active.ID) >= 0 {
		out := *active
		return &out, nil
	}

	history := make([]model.CardTransaction, 0, len(s.session.History)+1)
	history = append(history, *active)
	s.session.History = append(history, s.session.History...)

	if err := s.persistLocked(ctx); err != nil {
		return nil, err
	}
	s.emitLocked(events.CardConfirmed, *active)

	s.logger.Info("Payment confirmed", util.String("transaction_id", active.ID))
	out := *active
	return &out, nil
}

// Expire marks every ACTIVE history entry with id as EXPIRED and clears the
// active slot when it holds id. Calling it again changes nothing.
func (s *SessionService) Expire(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.restoreLocked(ctx); err != nil {
		return err
	}
	if c := s.countdown; c != nil && c.tx.ID == id && !c.expired {
		c.remaining = 0
		s.finishCountdownLocked(c)
	}
	return s.expireLocked(ctx, id)
}

func (s *SessionService) expireLocked(ctx context.Context, id string) error {
	var (
		changed bool
		last    model.CardTransaction
	)
	for i := range s.session.History {
		entry := &s.session.History[i]
		if entry.ID == id && entry.Status == model.StatusActive {
			entry.Status = model.StatusExpired
			last = *entry
			changed = true
		}
	}
	if active := s.session.ActiveCard; active != nil && active.ID == id {
		if !changed {
			last = *active
			last.Status = model.StatusExpired
		}
		s.session.ActiveCard = nil
		changed = true
	}
	if !changed {
		return nil
	}

	if err := s.persistLocked(ctx); err != nil {
		return err
	}
	s.emitLocked(events.CardExpired, last)
	s.logger.Info("Card expired", util.String("transaction_id", id))
	return nil
}

// ==============================
// Countdown
// ==============================

// PresentActiveCard starts a fresh countdown for the active card. Without an
// active card it returns nil.
func (s *SessionService) PresentActiveCard(ctx context.Context) (*model.CountdownView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.restoreLocked(ctx); err != nil {
		return nil, err
	}
	if s.countdown != nil {
		s.countdown.cancel()
		s.countdown = nil
	}
	active := s.session.ActiveCard
	if active == nil {
		return nil, nil
	}

	c := newCountdown(*active, s.generation)
	s.countdown = c
	go s.runTicker(c, s.clock.NewTicker(time.Second))

	v := c.view()
	return &v, nil
}

// Countdown returns the presented countdown, or nil when nothing is shown.
func (s *SessionService) Countdown() *model.CountdownView {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.countdown == nil {
		return nil
	}
	v := s.countdown.view()
	return &v
}

// DismissActiveCard tears down the presented view and its timers.
func (s *SessionService) DismissActiveCard() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.countdown != nil {
		s.countdown.cancel()
		s.countdown = nil
	}
}

func (s *SessionService) runTicker(c *countdown, ticker clockwork.Ticker) {
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.Chan():
			s.tick(c)
		}
	}
}

// tick advances c by one second. At zero it expires the card once and starts
// the refund acknowledgement.
func (s *SessionService) tick(c *countdown) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ownsLocked(c) || c.expired {
		return
	}
	c.remaining--
	if c.remaining > 0 {
		return
	}
	c.remaining = 0
	s.finishCountdownLocked(c)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.expireLocked(ctx, c.tx.ID); err != nil {
		s.logger.Error("Failed to persist expiry",
			util.String("transaction_id", c.tx.ID),
			util.ErrorField(err))
	}
}

// finishCountdownLocked marks c expired, stops its ticker and arms the refund
// acknowledgement.
func (s *SessionService) finishCountdownLocked(c *countdown) {
	c.expired = true
	c.stopTicker()
	c.refundPhase = model.RefundProcessing
	c.refundTimer = s.clock.AfterFunc(refundDelay, func() { s.completeRefund(c) })
}

func (s *SessionService) completeRefund(c *countdown) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ownsLocked(c) || c.refundPhase != model.RefundProcessing {
		return
	}
	c.refundPhase = model.RefundDone

	tx := c.tx
	tx.Status = model.StatusExpired
	s.emitLocked(events.CardRefundAcknowledged, tx)
	s.logger.Info("Refund acknowledged", util.String("transaction_id", tx.ID))
}

// ownsLocked reports whether c is still the presented countdown of the
// current generation.
func (s *SessionService) ownsLocked(c *countdown) bool {
	return s.countdown == c && c.generation == s.generation
}

// ==============================
// Projections
// ==============================

// Snapshot returns the identity, intro flag, active card and history.
func (s *SessionService) Snapshot(ctx context.Context) (model.SessionSnapshot, error) {
	seen, err := s.identity.IntroSeen(ctx)
	if err != nil {
		return model.SessionSnapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.restoreLocked(ctx); err != nil {
		return model.SessionSnapshot{}, err
	}
	return model.SessionSnapshot{
		User:       cloneProfile(s.user),
		IntroSeen:  seen,
		ActiveCard: cloneCard(s.session.ActiveCard),
		History:    cloneHistory(s.session.History),
	}, nil
}

func (s *SessionService) ActiveCard(ctx context.Context) (*model.CardTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.restoreLocked(ctx); err != nil {
		return nil, err
	}
	return cloneCard(s.session.ActiveCard), nil
}

func (s *SessionService) History(ctx context.Context) ([]model.CardTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.restoreLocked(ctx); err != nil {
		return nil, err
	}
	return cloneHistory(s.session.History), nil
}

// PaymentIntent returns the mock UPI request for the active card, or nil.
func (s *SessionService) PaymentIntent(ctx context.Context) (*model.PaymentIntent, error) {
	active, err := s.ActiveCard(ctx)
	if err != nil || active == nil {
		return nil, err
	}
	intent := issuer.NewPaymentIntent(*active)
	return &intent, nil
}

const chartPoints = 5

// Dashboard totals the history and charts the five newest cards, oldest first.
func (s *SessionService) Dashboard(ctx context.Context) (model.DashboardSummary, error) {
	history, err := s.History(ctx)
	if err != nil {
		return model.DashboardSummary{}, err
	}

	summary := model.DashboardSummary{
		CardCount: len(history),
		Recent:    make([]model.ChartPoint, 0, chartPoints),
	}
	for _, tx := range history {
		summary.TotalSpentInr += tx.AmountInr
		if tx.Status == model.StatusActive {
			summary.ActiveCount++
		}
	}
	n := min(chartPoints, len(history))
	for i := n - 1; i >= 0; i-- {
		summary.Recent = append(summary.Recent, model.ChartPoint{
			Platform:  history[i].Platform,
			AmountUsd: history[i].AmountUsd,
		})
	}
	return summary, nil
}

// Close cancels every timer. The service must not be used afterwards.
func (s *SessionService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetTimersLocked()
}

// ==============================
// Internals
// ==============================

// restoreLocked loads the persisted identity and its session once per
// process lifetime.
func (s *SessionService) restoreLocked(ctx context.Context) error {
	if s.restored {
		return nil
	}
	user, err := s.identity.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore identity: %w", err)
	}
	if user != nil {
		session, err := s.sessions.Load(ctx, user.Email)
		if err != nil {
			return fmt.Errorf("failed to restore session: %w", err)
		}
		s.user = user
		s.session = session
		s.logger.Debug("Session restored", util.Email("user", user.Email))
	}
	s.restored = true
	return nil
}

// resetTimersLocked invalidates every armed callback and drops the countdown.
func (s *SessionService) resetTimersLocked() {
	s.generation++
	if s.countdown != nil {
		s.countdown.cancel()
		s.countdown = nil
	}
}

func (s *SessionService) persistLocked(ctx context.Context) error {
	if s.user == nil {
		return nil
	}
	if err := s.sessions.Save(ctx, s.user.Email, s.session); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	return nil
}

func (s *SessionService) emitLocked(typ events.Type, tx model.CardTransaction) {
	email := ""
	if s.user != nil {
		email = s.user.Email
	}
	s.emitter.Emit(events.New(typ, s.deviceID, email, tx, s.clock.Now()))
}

func (s *SessionService) historyIndexLocked(id string) int {
	for i, tx := range s.session.History {
		if tx.ID == id {
			return i
		}
	}
	return -1
}

func cloneProfile(p *model.UserProfile) *model.UserProfile {
	if p == nil {
		return nil
	}
	out := *p
	return &out
}

func cloneCard(tx *model.CardTransaction) *model.CardTransaction {
	if tx == nil {
		return nil
	}
	out := *tx
	return &out
}

func cloneHistory(h []model.CardTransaction) []model.CardTransaction {
	out := make([]model.CardTransaction, len(h))
	copy(out, h)
	return out
}
