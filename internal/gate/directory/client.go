// Package directory is a thin read-only client for the account directory
// service. The gate only ever needs to resolve an account id to its
// username and the factor kinds the account is allowed to use.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/copperline/gate/internal/gate/domain"
)

var (
	ErrAccountNotFound = errors.New("directory: account not found")
	ErrUnavailable     = errors.New("directory: unavailable")
)

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type accountResponse struct {
	ID                 string   `json:"id"`
	Username           string   `json:"username"`
	EnabledFactorKinds []string `json:"enabled_factor_kinds"`
}

// GetAccount resolves an account by id. ErrAccountNotFound on a 404,
// ErrUnavailable on transport trouble or any other non-200 answer.
func (c *Client) GetAccount(ctx context.Context, accountID string) (domain.Account, error) {
	path := c.BaseURL + "/v1/accounts/" + url.PathEscape(accountID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, path, nil)
	if err != nil {
		return domain.Account{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return domain.Account{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// fallthrough to decode
	case http.StatusNotFound:
		return domain.Account{}, ErrAccountNotFound
	default:
		return domain.Account{}, fmt.Errorf("%w: unexpected status %d", ErrUnavailable, resp.StatusCode)
	}

	var body accountResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.Account{}, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}

	acct := domain.Account{
		ID:       body.ID,
		Username: body.Username,
	}
	for _, k := range body.EnabledFactorKinds {
		acct.EnabledFactorKinds = append(acct.EnabledFactorKinds, domain.FactorKind(k))
	}
	return acct, nil
}
