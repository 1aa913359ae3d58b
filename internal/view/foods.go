package view

import (
	"context"
	"sync"

	"foodshare/internal/foodapi"
	"foodshare/pkg/types"
)

// AvailableFoods lists foods that can still be requested, narrowed by a
// search query.
type AvailableFoods struct {
	*base
	foods *Loader[[]*types.Food]

	qmu   sync.Mutex
	query string
}

func NewAvailableFoods(d Deps) *AvailableFoods {
	v := &AvailableFoods{base: newBase(KindAvailableFoods, d)}
	v.foods = NewLoader(v.scope, func(ctx context.Context) ([]*types.Food, error) {
		return v.svc.ListFoods(ctx, foodapi.ListFoodsOptions{Status: types.FoodStatusAvailable}, v.Session())
	})
	return v
}

func (v *AvailableFoods) Load(ctx context.Context) error {
	return v.foods.Load(ctx)
}

func (v *AvailableFoods) Retry(ctx context.Context, sess *types.Session) error {
	v.bind(sess)
	return v.foods.Retry(ctx)
}

func (v *AvailableFoods) SetQuery(q string) {
	v.qmu.Lock()
	defer v.qmu.Unlock()
	v.query = q
}

func (v *AvailableFoods) Query() string {
	v.qmu.Lock()
	defer v.qmu.Unlock()
	return v.query
}

// Foods returns the loaded foods matching the current query.
func (v *AvailableFoods) Foods() []*types.Food {
	return FilterFoods(v.foods.Data(), v.Query())
}

func (v *AvailableFoods) State() State { return v.foods.State() }
func (v *AvailableFoods) Err() error   { return v.foods.Err() }

// FeaturedFoods shows the available foods with the largest quantities.
type FeaturedFoods struct {
	*base
	foods *Loader[[]*types.Food]
}

func NewFeaturedFoods(d Deps) *FeaturedFoods {
	v := &FeaturedFoods{base: newBase(KindFeaturedFoods, d)}
	v.foods = NewLoader(v.scope, func(ctx context.Context) ([]*types.Food, error) {
		foods, err := v.svc.ListFoods(ctx, foodapi.ListFoodsOptions{Status: types.FoodStatusAvailable}, v.Session())
		if err != nil {
			return nil, err
		}
		return Featured(foods), nil
	})
	return v
}

func (v *FeaturedFoods) Load(ctx context.Context) error {
	return v.foods.Load(ctx)
}

func (v *FeaturedFoods) Retry(ctx context.Context, sess *types.Session) error {
	v.bind(sess)
	return v.foods.Retry(ctx)
}

func (v *FeaturedFoods) Foods() []*types.Food { return v.foods.Data() }
func (v *FeaturedFoods) State() State         { return v.foods.State() }
func (v *FeaturedFoods) Err() error           { return v.foods.Err() }
