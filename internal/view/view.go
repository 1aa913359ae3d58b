package view

import (
	"context"
	"sync"

	"foodshare/internal/foodapi"
	"foodshare/internal/metrics"
	"foodshare/internal/utils"
	"foodshare/pkg/types"

	"github.com/sirupsen/logrus"
)

// FoodService is the remote API as the views use it. *foodapi.Client
// implements it.
type FoodService interface {
	ListFoods(ctx context.Context, opts foodapi.ListFoodsOptions, sess *types.Session) ([]*types.Food, error)
	GetFood(ctx context.Context, id string) (*types.Food, error)
	CreateFood(ctx context.Context, input types.FoodInput, sess *types.Session) (*types.Food, error)
	UpdateFood(ctx context.Context, id string, update types.FoodUpdate, sess *types.Session) (*types.Food, error)
	DeleteFood(ctx context.Context, id string, sess *types.Session) error
	MyFoods(ctx context.Context, sess *types.Session) ([]*types.Food, error)
	SubmitRequest(ctx context.Context, foodID string, input types.RequestInput, sess *types.Session) (*types.Request, error)
	FoodRequests(ctx context.Context, foodID string, sess *types.Session) ([]*types.Request, error)
	UpdateRequestStatus(ctx context.Context, requestID string, status types.RequestStatus, sess *types.Session) (*types.Request, error)
	MyRequests(ctx context.Context, sess *types.Session) ([]*types.Request, error)
}

var _ FoodService = (*foodapi.Client)(nil)

type Kind string

const (
	KindAvailableFoods Kind = "available-foods"
	KindFeaturedFoods  Kind = "featured-foods"
	KindFoodDetails    Kind = "food-details"
	KindMyFoods        Kind = "my-foods"
	KindMyRequests     Kind = "my-requests"
)

// View is a mounted page.
type View interface {
	ID() string
	Kind() Kind
	// Retry re-runs the page's fetch with the caller's current session.
	Retry(ctx context.Context, sess *types.Session) error
	Notifications() *Notifications
	// Close unmounts the view and cancels any fetch still running.
	Close()
}

type Deps struct {
	Service FoodService
	Session *types.Session
	Logger  logrus.FieldLogger
	Metrics *metrics.Metrics
}

// base is the lifetime scope and bookkeeping every view shares.
type base struct {
	id      string
	kind    Kind
	svc     FoodService
	logger  logrus.FieldLogger
	metrics *metrics.Metrics

	scope  context.Context
	cancel context.CancelFunc

	phases Phases
	notes  Notifications

	mu      sync.Mutex
	session *types.Session
}

func newBase(kind Kind, d Deps) *base {
	scope, cancel := context.WithCancel(context.Background())

	logger := d.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	id := utils.NanoID()
	return &base{
		id:      id,
		kind:    kind,
		svc:     d.Service,
		logger:  logger.WithFields(logrus.Fields{"view": string(kind), "view_id": id}),
		metrics: d.Metrics,
		scope:   scope,
		cancel:  cancel,
		session: d.Session,
	}
}

func (b *base) ID() string                    { return b.id }
func (b *base) Kind() Kind                    { return b.kind }
func (b *base) Notifications() *Notifications { return &b.notes }
func (b *base) Close()                        { b.cancel() }

// Phase reports the mutation phase of the item with the given identifier.
func (b *base) Phase(id string) Phase {
	return b.phases.Get(id)
}

// Session is the session the view currently fetches with.
func (b *base) Session() *types.Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session
}

// bind records the caller's session so later fetches use it.
func (b *base) bind(sess *types.Session) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.session = sess
}

func (b *base) user() *types.User {
	sess := b.Session()
	if sess == nil {
		return nil
	}
	u := sess.User
	return &u
}

func (b *base) mutation(action, id string) mutation {
	return mutation{
		action:  action,
		id:      id,
		notes:   &b.notes,
		phases:  &b.phases,
		metrics: b.metrics,
	}
}
