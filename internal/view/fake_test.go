package view

import (
	"context"
	"errors"
	"sync"

	"foodshare/internal/foodapi"
	"foodshare/pkg/types"
)

var errBoom = &foodapi.Error{StatusCode: 500, Message: "server exploded"}

// fakeService is an in-memory FoodService. Hooks override single methods.
type fakeService struct {
	mu    sync.Mutex
	calls map[string]int

	foods    []*types.Food
	requests map[string][]*types.Request
	mine     []*types.Request

	listFoods     func(ctx context.Context) ([]*types.Food, error)
	getFood       func(ctx context.Context, id string) (*types.Food, error)
	foodRequests  func(ctx context.Context, id string) ([]*types.Request, error)
	updateFood    func(ctx context.Context, id string, u types.FoodUpdate) (*types.Food, error)
	deleteFood    func(ctx context.Context, id string) error
	submitRequest func(ctx context.Context, id string, in types.RequestInput) (*types.Request, error)
	updateRequest func(ctx context.Context, id string, s types.RequestStatus) (*types.Request, error)
}

func newFakeService() *fakeService {
	return &fakeService{calls: map[string]int{}, requests: map[string][]*types.Request{}}
}

func (f *fakeService) count(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
}

func (f *fakeService) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeService) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func cloneFoods(foods []*types.Food) []*types.Food {
	out := make([]*types.Food, 0, len(foods))
	for _, fd := range foods {
		c := *fd
		out = append(out, &c)
	}
	return out
}

func (f *fakeService) ListFoods(ctx context.Context, _ foodapi.ListFoodsOptions, _ *types.Session) ([]*types.Food, error) {
	f.count("ListFoods")
	if f.listFoods != nil {
		return f.listFoods(ctx)
	}
	return cloneFoods(f.foods), nil
}

func (f *fakeService) GetFood(ctx context.Context, id string) (*types.Food, error) {
	f.count("GetFood")
	if f.getFood != nil {
		return f.getFood(ctx, id)
	}
	for _, fd := range f.foods {
		if fd.ID == id {
			c := *fd
			return &c, nil
		}
	}
	return nil, types.ErrFoodNotFound
}

func (f *fakeService) CreateFood(context.Context, types.FoodInput, *types.Session) (*types.Food, error) {
	f.count("CreateFood")
	return nil, errors.New("not used")
}

func (f *fakeService) UpdateFood(ctx context.Context, id string, u types.FoodUpdate, _ *types.Session) (*types.Food, error) {
	f.count("UpdateFood")
	if f.updateFood != nil {
		return f.updateFood(ctx, id, u)
	}
	return nil, nil
}

func (f *fakeService) DeleteFood(ctx context.Context, id string, _ *types.Session) error {
	f.count("DeleteFood")
	if f.deleteFood != nil {
		return f.deleteFood(ctx, id)
	}
	return nil
}

func (f *fakeService) MyFoods(context.Context, *types.Session) ([]*types.Food, error) {
	f.count("MyFoods")
	return cloneFoods(f.foods), nil
}

func (f *fakeService) SubmitRequest(ctx context.Context, id string, in types.RequestInput, sess *types.Session) (*types.Request, error) {
	f.count("SubmitRequest")
	if f.submitRequest != nil {
		return f.submitRequest(ctx, id, in)
	}
	return &types.Request{
		ID:        "new-req",
		FoodID:    id,
		Location:  in.Location,
		Reason:    in.Reason,
		Contact:   in.Contact,
		Requester: types.Requester{Email: sess.User.Email},
		Status:    types.RequestStatusPending,
	}, nil
}

func (f *fakeService) FoodRequests(ctx context.Context, id string, _ *types.Session) ([]*types.Request, error) {
	f.count("FoodRequests")
	if f.foodRequests != nil {
		return f.foodRequests(ctx, id)
	}
	out := []*types.Request{}
	for _, r := range f.requests[id] {
		c := *r
		out = append(out, &c)
	}
	return out, nil
}

func (f *fakeService) UpdateRequestStatus(ctx context.Context, id string, s types.RequestStatus, _ *types.Session) (*types.Request, error) {
	f.count("UpdateRequestStatus")
	if f.updateRequest != nil {
		return f.updateRequest(ctx, id, s)
	}
	return nil, nil
}

func (f *fakeService) MyRequests(context.Context, *types.Session) ([]*types.Request, error) {
	f.count("MyRequests")
	return f.mine, nil
}

func session(email string) *types.Session {
	return &types.Session{User: types.User{UID: "uid-" + email, Email: email, DisplayName: email}, IDToken: "tok-" + email}
}
