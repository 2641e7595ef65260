package client

import (
	"context"
	"encoding/json"
	"fmt"

	catalog "github.com/eugener/arcscout/internal"
	"github.com/eugener/arcscout/internal/telemetry"
)

const calculatePath = "/loadouts/calculate"

// CalculateLoadout asks the API to compute aggregate stats for a selection.
// Empty selections are rejected without a request. Errors are never masked
// by cached data.
func (c *Client) CalculateLoadout(ctx context.Context, req catalog.LoadoutRequest) (*catalog.LoadoutResult, error) {
	if req.Empty() {
		return nil, &ComputationError{Path: calculatePath, Err: catalog.ErrEmptyLoadout}
	}
	if req.WeaponIDs == nil {
		req.WeaponIDs = []string{}
	}
	if req.ArmorIDs == nil {
		req.ArmorIDs = []string{}
	}

	payload, err := c.Post(ctx, calculatePath, req)
	if err != nil {
		c.countComputation(telemetry.OutcomeFailed)
		return nil, err
	}
	var res catalog.LoadoutResult
	if err := json.Unmarshal(payload, &res); err != nil {
		c.countComputation(telemetry.OutcomeFailed)
		return nil, &ComputationError{Path: calculatePath, Err: fmt.Errorf("%w: %v", catalog.ErrParse, err)}
	}
	c.countComputation(telemetry.OutcomeOK)
	return &res, nil
}

func (c *Client) countComputation(outcome string) {
	if c.metrics != nil {
		c.metrics.Computations.WithLabelValues(outcome).Inc()
	}
}
