package foodapi

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"foodshare/pkg/types"
)

type ListFoodsOptions struct {
	Status       types.FoodStatus
	DonatorEmail string
}

func (o ListFoodsOptions) values() url.Values {
	q := url.Values{}
	if o.Status != "" {
		q.Set("status", string(o.Status))
	}
	if o.DonatorEmail != "" {
		q.Set("donatorEmail", o.DonatorEmail)
	}
	return q
}

// ListFoods lists foods, optionally filtered by status and donator. The
// session is optional.
func (c *Client) ListFoods(ctx context.Context, opts ListFoodsOptions, sess *types.Session) ([]*types.Food, error) {
	raw, err := c.do(ctx, call{
		operation:  "list foods",
		method:     http.MethodGet,
		path:       "/api/foods",
		query:      opts.values(),
		session:    sess,
		defaultErr: "Failed to load foods",
	})
	if err != nil {
		return nil, err
	}

	return decodeList[types.Food](raw, "foods")
}

// GetFood fetches one food. A 404 is reported as types.ErrFoodNotFound.
func (c *Client) GetFood(ctx context.Context, id string) (*types.Food, error) {
	if err := requireID("get food", id); err != nil {
		return nil, err
	}

	raw, err := c.do(ctx, call{
		operation:  "get food",
		method:     http.MethodGet,
		path:       "/api/foods/" + url.PathEscape(id),
		defaultErr: "Failed to load food",
	})
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) && apiErr.NotFound() {
			return nil, types.ErrFoodNotFound
		}
		return nil, err
	}

	return decodeOne[types.Food](raw, "food", false)
}

func (c *Client) CreateFood(ctx context.Context, input types.FoodInput, sess *types.Session) (*types.Food, error) {
	if err := requireSession("create food", sess); err != nil {
		return nil, err
	}

	raw, err := c.do(ctx, call{
		operation:  "create food",
		method:     http.MethodPost,
		path:       "/api/foods",
		body:       input,
		session:    sess,
		defaultErr: "Create food failed",
	})
	if err != nil {
		return nil, err
	}

	return decodeOne[types.Food](raw, "food", true)
}

// UpdateFood patches the set fields of update. The returned food is nil when
// the API acknowledges without echoing the record.
func (c *Client) UpdateFood(ctx context.Context, id string, update types.FoodUpdate, sess *types.Session) (*types.Food, error) {
	if err := requireID("update food", id); err != nil {
		return nil, err
	}
	if update.Status != nil && !update.Status.Valid() {
		return nil, types.ErrInvalidStatus
	}
	if err := requireSession("update food", sess); err != nil {
		return nil, err
	}

	raw, err := c.do(ctx, call{
		operation:  "update food",
		method:     http.MethodPatch,
		path:       "/api/foods/" + url.PathEscape(id),
		body:       update,
		session:    sess,
		defaultErr: "Update failed",
	})
	if err != nil {
		return nil, err
	}

	return decodeOne[types.Food](raw, "food", true)
}

func (c *Client) DeleteFood(ctx context.Context, id string, sess *types.Session) error {
	if err := requireID("delete food", id); err != nil {
		return err
	}
	if err := requireSession("delete food", sess); err != nil {
		return err
	}

	_, err := c.do(ctx, call{
		operation:  "delete food",
		method:     http.MethodDelete,
		path:       "/api/foods/" + url.PathEscape(id),
		session:    sess,
		defaultErr: "Delete failed",
	})
	return err
}

// MyFoods lists the foods donated by the session's user.
func (c *Client) MyFoods(ctx context.Context, sess *types.Session) ([]*types.Food, error) {
	if err := requireSession("my foods", sess); err != nil {
		return nil, err
	}

	raw, err := c.do(ctx, call{
		operation:  "my foods",
		method:     http.MethodGet,
		path:       "/api/foods/my/list/me",
		session:    sess,
		defaultErr: "Failed to fetch my foods",
	})
	if err != nil {
		return nil, err
	}

	return decodeList[types.Food](raw, "foods")
}
