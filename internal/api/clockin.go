package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"stratolift/internal/models"
)

type ClockInQuery struct {
	Status models.ClockInStatus
	Limit  int
}

func (q ClockInQuery) values() url.Values {
	v := url.Values{}
	if q.Status != "" {
		v.Set("status", string(q.Status))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

type ClockInRequest struct {
	Location models.GeoLocation `json:"location"`
	Notes    string             `json:"notes"`
	Image    string             `json:"image"`
}

type ClockOutRequest struct {
	ID    string `json:"id"`
	Notes string `json:"notes,omitempty"`
}

func (c *Client) ListClockIns(ctx context.Context, q ClockInQuery) ([]models.ClockIn, error) {
	var out envelope[[]models.ClockIn]
	if err := c.send(ctx, request{
		method:   http.MethodGet,
		path:     "/clock-in",
		query:    q.values(),
		auth:     true,
		fallback: "Failed to fetch clock-in data",
	}, &out); err != nil {
		return nil, err
	}
	if out.failed() {
		return nil, &Error{Kind: ErrRequest, Status: http.StatusOK, Message: "Failed to fetch clock-in data"}
	}
	if out.Data == nil {
		return []models.ClockIn{}, nil
	}
	return out.Data, nil
}

// ActiveClockIn returns the open shift, or nil when clocked out.
func (c *Client) ActiveClockIn(ctx context.Context) (*models.ClockIn, error) {
	items, err := c.ListClockIns(ctx, ClockInQuery{Status: models.ClockInStatusActive})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

func (c *Client) ClockIn(ctx context.Context, req ClockInRequest) (models.ClockIn, error) {
	return c.clockResult(ctx, request{
		method:   http.MethodPost,
		path:     "/clock-in",
		body:     req,
		auth:     true,
		fallback: "Failed to clock in",
	})
}

func (c *Client) ClockOut(ctx context.Context, req ClockOutRequest) (models.ClockIn, error) {
	if req.ID == "" {
		return models.ClockIn{}, ValidationError("No active clock-in found.")
	}
	return c.clockResult(ctx, request{
		method:   http.MethodPut,
		path:     "/clock-in",
		body:     req,
		auth:     true,
		fallback: "Failed to clock out",
	})
}

// clockResult treats success:false like a rejected request.
func (c *Client) clockResult(ctx context.Context, req request) (models.ClockIn, error) {
	var out envelope[*models.ClockIn]
	if err := c.send(ctx, req, &out); err != nil {
		return models.ClockIn{}, err
	}
	if out.Success == nil || !*out.Success {
		msg := out.Message
		if msg == "" {
			msg = req.fallback
		}
		return models.ClockIn{}, &Error{Kind: ErrRequest, Status: http.StatusOK, Message: msg}
	}
	if out.Data == nil {
		return models.ClockIn{}, &Error{Kind: ErrProtocol, Status: http.StatusOK, Message: msgInvalidResponse}
	}
	return *out.Data, nil
}
