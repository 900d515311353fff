package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/nikolayk812/licensing-storefront/internal/domain"
)

type LoginResult struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

func (c *Client) Login(ctx context.Context, creds domain.Credentials) (LoginResult, error) {
	return c.login(ctx, ResourceLogin, creds)
}

// DistributorLogin signs in a distributor; the returned user always carries the distributor role.
func (c *Client) DistributorLogin(ctx context.Context, creds domain.Credentials) (LoginResult, error) {
	res, err := c.login(ctx, ResourceDistributorLogin, creds)
	if err != nil {
		return LoginResult{}, err
	}
	res.User.Role = domain.RoleDistributor
	return res, nil
}

func (c *Client) login(ctx context.Context, r Resource, creds domain.Credentials) (LoginResult, error) {
	if creds.Email == "" || creds.Password == "" {
		return LoginResult{}, fmt.Errorf("email and password are required")
	}

	var res LoginResult
	err := c.do(ctx, call{
		resource: r,
		method:   http.MethodPost,
		url:      c.endpoints.URL(r),
		body:     creds,
	}, &res)
	if err != nil {
		return LoginResult{}, fmt.Errorf("c.do: %w", err)
	}
	if res.Token == "" {
		return LoginResult{}, fmt.Errorf("login response has no token")
	}
	return res, nil
}

func (c *Client) RegisterDistributor(ctx context.Context, reg domain.DistributorRegistration) error {
	err := c.do(ctx, call{
		resource: ResourceDistributorRegister,
		method:   http.MethodPost,
		url:      c.endpoints.URL(ResourceDistributorRegister),
		body:     reg,
	}, nil)
	if err != nil {
		return fmt.Errorf("c.do: %w", err)
	}
	return nil
}
