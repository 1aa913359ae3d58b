package foodapi

import (
	"context"
	"net/http"
	"net/url"

	"foodshare/pkg/types"
)

// SubmitRequest files a request against foodID on behalf of the session's
// user. Field validation is the caller's job; the API validates again.
func (c *Client) SubmitRequest(ctx context.Context, foodID string, input types.RequestInput, sess *types.Session) (*types.Request, error) {
	if err := requireID("submit request", foodID); err != nil {
		return nil, err
	}
	if err := requireSession("submit request", sess); err != nil {
		return nil, err
	}

	raw, err := c.do(ctx, call{
		operation:  "submit request",
		method:     http.MethodPost,
		path:       "/api/foods/" + url.PathEscape(foodID) + "/requests",
		body:       input,
		session:    sess,
		defaultErr: "Failed to submit request",
	})
	if err != nil {
		return nil, err
	}

	req, err := decodeOne[types.Request](raw, "request", false)
	if err != nil {
		return nil, err
	}
	if req.FoodID == "" {
		req.FoodID = foodID
	}

	return req, nil
}

// FoodRequests lists the requests filed against foodID. Only the food's
// donator is allowed to see them.
func (c *Client) FoodRequests(ctx context.Context, foodID string, sess *types.Session) ([]*types.Request, error) {
	if err := requireID("food requests", foodID); err != nil {
		return nil, err
	}
	if err := requireSession("food requests", sess); err != nil {
		return nil, err
	}

	raw, err := c.do(ctx, call{
		operation:  "food requests",
		method:     http.MethodGet,
		path:       "/api/foods/" + url.PathEscape(foodID) + "/requests",
		session:    sess,
		defaultErr: "Failed to fetch requests",
	})
	if err != nil {
		return nil, err
	}

	return decodeList[types.Request](raw, "requests")
}

// UpdateRequestStatus moves a request to status. The returned request is nil
// when the API only acknowledges the change.
func (c *Client) UpdateRequestStatus(ctx context.Context, requestID string, status types.RequestStatus, sess *types.Session) (*types.Request, error) {
	if err := requireID("update request", requestID); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, types.ErrInvalidStatus
	}
	if err := requireSession("update request", sess); err != nil {
		return nil, err
	}

	raw, err := c.do(ctx, call{
		operation:  "update request",
		method:     http.MethodPatch,
		path:       "/api/requests/" + url.PathEscape(requestID),
		body:       map[string]types.RequestStatus{"status": status},
		session:    sess,
		defaultErr: "Failed to update request",
	})
	if err != nil {
		return nil, err
	}

	return decodeOne[types.Request](raw, "request", true)
}

// MyRequests lists the requests filed by the session's user.
func (c *Client) MyRequests(ctx context.Context, sess *types.Session) ([]*types.Request, error) {
	if err := requireSession("my requests", sess); err != nil {
		return nil, err
	}

	raw, err := c.do(ctx, call{
		operation:  "my requests",
		method:     http.MethodGet,
		path:       "/api/my/requests",
		session:    sess,
		defaultErr: "Failed to fetch my requests",
	})
	if err != nil {
		return nil, err
	}

	return decodeList[types.Request](raw, "requests")
}
