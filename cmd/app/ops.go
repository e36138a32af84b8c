package main

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// Read operations go over the unix socket when transport is "uds" and over
// REST otherwise. Mutations always use REST through the screens.

func doLogin(ctx context.Context, cfg cliConfig, email, password, tokenName string, out any) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "auth.login", map[string]any{
			"email":     email,
			"password":  password,
			"tokenName": tokenName,
		}, out)
	}
	client := newAPIClient(cfg.Server, "")
	return client.request(ctx, http.MethodPost, "/api/auth/login", map[string]any{
		"email":     email,
		"password":  password,
		"mode":      "token",
		"tokenName": tokenName,
	}, out)
}

func doJoin(ctx context.Context, cfg cliConfig, in map[string]string, out any) error {
	client := newAPIClient(cfg.Server, "")
	return client.request(ctx, http.MethodPost, "/api/auth/join", in, out)
}

func doWhoAmI(ctx context.Context, cfg cliConfig, out any) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "auth.whoami", map[string]any{"token": cfg.Token}, out)
	}
	client := newAPIClient(cfg.Server, cfg.Token)
	return client.request(ctx, http.MethodGet, "/api/auth/whoami", nil, out)
}

func doLogout(ctx context.Context, cfg cliConfig) error {
	if cfg.Transport == "uds" {
		return nil
	}
	client := newAPIClient(cfg.Server, cfg.Token)
	return client.request(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

func doTeamsList(ctx context.Context, cfg cliConfig, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "teams.list", map[string]any{"token": cfg.Token}, out)
	}
	return newAPIClient(cfg.Server, cfg.Token).request(ctx, http.MethodGet, "/api/teams", nil, out)
}

func doTeamGet(ctx context.Context, cfg cliConfig, slug string, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "teams.get", map[string]any{"token": cfg.Token, "slug": slug}, out)
	}
	return newAPIClient(cfg.Server, cfg.Token).request(ctx, http.MethodGet, "/api/teams/"+url.PathEscape(slug), nil, out)
}

func doMembersList(ctx context.Context, cfg cliConfig, slug string, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "members.list", map[string]any{"token": cfg.Token, "slug": slug}, out)
	}
	return newAPIClient(cfg.Server, cfg.Token).request(ctx, http.MethodGet, "/api/teams/"+url.PathEscape(slug)+"/members", nil, out)
}

func doInvitationsList(ctx context.Context, cfg cliConfig, slug string, sentViaEmail *bool, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "invitations.list", map[string]any{"token": cfg.Token, "slug": slug, "sentViaEmail": sentViaEmail}, out)
	}
	path := "/api/teams/" + url.PathEscape(slug) + "/invitations"
	if sentViaEmail != nil {
		path += "?sentViaEmail=" + strconv.FormatBool(*sentViaEmail)
	}
	return newAPIClient(cfg.Server, cfg.Token).request(ctx, http.MethodGet, path, nil, out)
}

func doAPIKeysList(ctx context.Context, cfg cliConfig, slug string, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "apikeys.list", map[string]any{"token": cfg.Token, "slug": slug}, out)
	}
	return newAPIClient(cfg.Server, cfg.Token).request(ctx, http.MethodGet, "/api/teams/"+url.PathEscape(slug)+"/api-keys", nil, out)
}

func doAuditList(ctx context.Context, cfg cliConfig, team string, limit int, out any) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "audit.list", map[string]any{"token": cfg.Token, "team": team, "limit": limit}, out)
	}
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	if team != "" {
		q.Set("team", team)
	}
	return newAPIClient(cfg.Server, cfg.Token).request(ctx, http.MethodGet, "/api/audit?"+q.Encode(), nil, out)
}

func uintToString(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
