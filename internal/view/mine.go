package view

import (
	"context"

	"foodshare/pkg/types"
)

// MyFoods lists the signed-in user's donations and lets them delete one or
// mark it donated.
type MyFoods struct {
	*base
	foods *Loader[[]*types.Food]
}

func NewMyFoods(d Deps) *MyFoods {
	v := &MyFoods{base: newBase(KindMyFoods, d)}
	v.foods = NewLoader(v.scope, func(ctx context.Context) ([]*types.Food, error) {
		sess := v.Session()
		if sess == nil {
			return []*types.Food{}, nil
		}
		return v.svc.MyFoods(ctx, sess)
	})
	return v
}

func (v *MyFoods) Load(ctx context.Context) error {
	return v.foods.Load(ctx)
}

func (v *MyFoods) Retry(ctx context.Context, sess *types.Session) error {
	v.bind(sess)
	return v.foods.Retry(ctx)
}

func (v *MyFoods) Foods() []*types.Food { return v.foods.Data() }
func (v *MyFoods) State() State         { return v.foods.State() }
func (v *MyFoods) Err() error           { return v.foods.Err() }

// Delete removes the food remotely and then drops exactly that item from
// the list.
func (v *MyFoods) Delete(ctx context.Context, sess *types.Session, id string) error {
	if sess == nil {
		return types.ErrSignInRequired
	}
	if findFood(v.foods.Data(), id) == nil {
		return types.ErrFoodNotFound
	}
	v.bind(sess)

	m := v.mutation("delete_food", id)
	m.failure = "Delete failed"
	m.success = Notification{Level: LevelSuccess, Message: "Deleted successfully"}
	m.call = func() error {
		return v.svc.DeleteFood(ctx, id, sess)
	}
	m.apply = func() {
		v.foods.Update(func(foods []*types.Food) []*types.Food {
			return removeFood(foods, id)
		})
	}
	return m.run()
}

// MarkDonated sets the food's status to Donated. The server's copy of the
// food replaces the local one when the response carries it.
func (v *MyFoods) MarkDonated(ctx context.Context, sess *types.Session, id string) error {
	if sess == nil {
		return types.ErrSignInRequired
	}
	current := findFood(v.foods.Data(), id)
	if current == nil {
		return types.ErrFoodNotFound
	}
	v.bind(sess)

	donated := types.FoodStatusDonated
	update := types.FoodUpdate{Status: &donated}
	var updated *types.Food

	m := v.mutation("mark_donated", id)
	m.failure = "Update failed"
	m.success = Notification{Level: LevelSuccess, Message: "Marked as donated"}
	m.call = func() error {
		var err error
		updated, err = v.svc.UpdateFood(ctx, id, update, sess)
		return err
	}
	m.apply = func() {
		v.foods.Update(func(foods []*types.Food) []*types.Food {
			next := updated
			if next == nil || next.ID != id {
				cur := findFood(foods, id)
				if cur == nil {
					return foods
				}
				patched := update.Apply(*cur)
				next = &patched
			}
			return replaceFood(foods, next)
		})
	}
	return m.run()
}

// MyRequests lists the requests the signed-in user has filed.
type MyRequests struct {
	*base
	requests *Loader[[]*types.Request]
}

func NewMyRequests(d Deps) *MyRequests {
	v := &MyRequests{base: newBase(KindMyRequests, d)}
	v.requests = NewLoader(v.scope, func(ctx context.Context) ([]*types.Request, error) {
		sess := v.Session()
		if sess == nil {
			return []*types.Request{}, nil
		}
		return v.svc.MyRequests(ctx, sess)
	})
	return v
}

func (v *MyRequests) Load(ctx context.Context) error {
	return v.requests.Load(ctx)
}

func (v *MyRequests) Retry(ctx context.Context, sess *types.Session) error {
	v.bind(sess)
	return v.requests.Retry(ctx)
}

func (v *MyRequests) Requests() []*types.Request { return v.requests.Data() }
func (v *MyRequests) State() State               { return v.requests.State() }
func (v *MyRequests) Err() error                 { return v.requests.Err() }
