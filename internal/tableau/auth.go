package tableau

import (
	"context"
	"fmt"
	"net/http"

	"github.com/vvka-141/csv2hyper/pkg/csv2hyper"
)

// SignIn opens a session on site (content URL; empty is the default site).
// Personal access tokens take precedence over username and password.
func (c *Client) SignIn(ctx context.Context, site string, creds csv2hyper.Credentials) error {
	if c.version == "" {
		return fmt.Errorf("REST API version is not set: %w", csv2hyper.ErrInvalidConfig)
	}

	req := &credentialsReq{Site: siteRef{ContentURL: site}}
	if creds.IsToken() {
		req.PersonalAccessTokenName = creds.TokenName
		req.PersonalAccessTokenSecret = creds.TokenSecret
	} else {
		req.Name = creds.Username
		req.Password = creds.Password
	}

	var resp tsResponse
	if err := c.doXML(ctx, http.MethodPost, c.apiPath("auth", "signin"), &tsRequest{Credentials: req}, &resp); err != nil {
		return fmt.Errorf("sign-in failed: %w", err)
	}
	if resp.Credentials == nil || resp.Credentials.Token == "" {
		return fmt.Errorf("sign-in response carries no token: %w", csv2hyper.ErrAuthenticationFailed)
	}

	c.token = resp.Credentials.Token
	c.siteID = resp.Credentials.Site.ID
	c.userID = resp.Credentials.User.ID
	return nil
}

// SignOut invalidates the session token. It is a no-op when not signed in.
func (c *Client) SignOut(ctx context.Context) error {
	if c.token == "" {
		return nil
	}
	err := c.doXML(ctx, http.MethodPost, c.apiPath("auth", "signout"), nil, nil)
	c.token = ""
	c.siteID = ""
	c.userID = ""
	if err != nil {
		return fmt.Errorf("sign-out failed: %w", err)
	}
	return nil
}
