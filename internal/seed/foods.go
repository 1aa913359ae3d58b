// Package seed fills a food API with sample listings for local development.
package seed

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"time"

	"foodshare/internal/utils"
	"foodshare/pkg/types"
)

// NotesPrefix marks seeded foods so a later run can remove them.
const NotesPrefix = "[seed] "

// Store is the part of the food API seeding needs.
type Store interface {
	CreateFood(ctx context.Context, input types.FoodInput, sess *types.Session) (*types.Food, error)
	MyFoods(ctx context.Context, sess *types.Session) ([]*types.Food, error)
	DeleteFood(ctx context.Context, id string, sess *types.Session) error
}

type fakeFood struct {
	Name     string
	Quantity string
	Notes    string
}

var fakeFoods = []fakeFood{
	{"Chicken biryani", "Serves 6 people", "Cooked this afternoon, still warm."},
	{"Vegetable khichuri", "4 plates", "Mild spice, good for kids."},
	{"Fresh bread loaves", "10 loaves", "From today's bakery batch."},
	{"Rice and lentils", "5 kg rice, 2 kg lentils", "Sealed bags."},
	{"Fruit basket", "12 pieces", "Bananas, apples and oranges."},
	{"Paratha and curry", "8 parathas", "Curry is in a separate container."},
	{"Boiled eggs", "2 dozen", "Boiled this morning."},
	{"Milk cartons", "6 cartons", "Expires in three days."},
	{"Pasta bake", "Serves 3 people", "Contains cheese."},
	{"Sandwich platter", "15 sandwiches", "Leftover from an office event."},
}

var fakeLocations = []string{
	"Dhanmondi 27, Dhaka",
	"Gulshan 2 Circle, Dhaka",
	"Mirpur 10, Dhaka",
	"Uttara Sector 7, Dhaka",
	"Banani Road 11, Dhaka",
	"Mohammadpur Bus Stand, Dhaka",
}

type weightedFoodStatus struct {
	Status types.FoodStatus
	Weight int
}

var weightedStatuses = []weightedFoodStatus{
	{Status: types.FoodStatusAvailable, Weight: 80},
	{Status: types.FoodStatusDonated, Weight: 20},
}

type Options struct {
	Count int
	Reset bool
	Out   io.Writer
	Rand  *rand.Rand
	Now   func() time.Time
}

// SeedFoods creates Count sample foods donated by the session's user. With
// Reset set, foods from an earlier seed run are deleted first.
func SeedFoods(ctx context.Context, store Store, sess *types.Session, opts Options) error {
	if sess == nil {
		return types.ErrSignInRequired
	}

	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(now().UnixNano()))
	}

	if opts.Reset {
		deleted, err := resetFoods(ctx, store, sess)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Reset seeded foods: %d deleted\n", deleted)
	}

	if opts.Count <= 0 {
		fmt.Fprintln(out, "Skipping fake foods seed because count <= 0")
		return nil
	}

	created := 0
	for i := 0; i < opts.Count; i++ {
		fake := fakeFoods[rng.Intn(len(fakeFoods))]
		expire := now().AddDate(0, 0, rng.Intn(5)+1).Format("2006-01-02")

		input := types.FoodInput{
			Name:           fake.Name,
			QuantityText:   fake.Quantity,
			QuantityNumber: types.ParseQuantity(fake.Quantity, 1),
			PickupLocation: fakeLocations[rng.Intn(len(fakeLocations))],
			ExpireDate:     utils.StringPtr(expire),
			Notes:          NotesPrefix + fake.Notes,
			Donator: types.Donator{
				Name:  sess.User.Name(),
				Email: sess.User.Email,
				Photo: sess.User.PhotoURL,
				UID:   utils.NonEmptyPtr(sess.User.UID),
			},
			Status:    pickWeightedStatus(rng),
			CreatedAt: now().UTC(),
		}

		if _, err := store.CreateFood(ctx, input, sess); err != nil {
			return fmt.Errorf("failed to create fake food %d: %w", i+1, err)
		}

		created++
	}

	fmt.Fprintf(out, "Fake foods seeded: %d created\n", created)
	return nil
}

func resetFoods(ctx context.Context, store Store, sess *types.Session) (int, error) {
	foods, err := store.MyFoods(ctx, sess)
	if err != nil {
		return 0, fmt.Errorf("failed to list foods for reset: %w", err)
	}

	deleted := 0
	for _, food := range foods {
		if !strings.HasPrefix(food.Notes, NotesPrefix) {
			continue
		}
		if err := store.DeleteFood(ctx, food.ID, sess); err != nil {
			return deleted, fmt.Errorf("failed to delete seeded food %s: %w", food.ID, err)
		}
		deleted++
	}

	return deleted, nil
}

func pickWeightedStatus(rng *rand.Rand) types.FoodStatus {
	total := 0
	for _, item := range weightedStatuses {
		total += item.Weight
	}

	if total == 0 {
		return types.FoodStatusAvailable
	}

	roll := rng.Intn(total)
	running := 0
	for _, item := range weightedStatuses {
		running += item.Weight
		if roll < running {
			return item.Status
		}
	}

	return types.FoodStatusAvailable
}
