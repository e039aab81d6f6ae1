// Package accounting is the client for the external accounting backend
// (/api/caja, /api/categorias, /api/transacciones, /api/logs, /api/cartera).
// Wizard mutations (new transaction, cashout, abono, bank withdrawal) are not
// here: they go through submission.Handler so their outcome is classified.
package accounting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"atmricky/internal/apiclient"
)

type Client struct {
	api *apiclient.Client
}

func New(api *apiclient.Client) *Client {
	return &Client{api: api}
}

// getList decodes a JSON array; any other JSON shape yields an empty list, as
// the dashboard does.
func getList[T any](ctx context.Context, api *apiclient.Client, path, failMsg string) ([]T, error) {
	var raw json.RawMessage
	if err := api.GetJSON(ctx, path, &raw); err != nil {
		return nil, fmt.Errorf("%s: %w", failMsg, err)
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return []T{}, nil
	}
	var out []T
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", failMsg, err)
	}
	return out, nil
}
