package rpcjson

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/igormartsekha/saas-starter-kit/internal/application"
	"github.com/igormartsekha/saas-starter-kit/internal/domain"
	"github.com/igormartsekha/saas-starter-kit/internal/logging"
	"github.com/igormartsekha/saas-starter-kit/internal/validation"
)

const (
	codeParse          = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = 40100
	codeValidation     = 42200
	codeInternal       = 50000
)

// Server answers newline delimited JSON-RPC 2.0 requests on a unix socket.
// Every method except auth.login takes an API token in params.token.
type Server struct {
	service  *application.Service
	logger   *slog.Logger
	listener net.Listener
	path     string
}

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      any             `json:"id"`
}

type response struct {
	JSONRPC string    `json:"jsonrpc"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
	ID      any       `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func Start(path string, service *application.Service, logger *slog.Logger) (*Server, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("rpc socket path is required")
	}
	if logger == nil {
		logger = logging.Nop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(path, 0o600); err != nil {
		_ = ln.Close()
		_ = os.Remove(path)
		return nil, err
	}

	s := &Server{service: service, logger: logger, listener: ln, path: path}
	go s.serve()
	return s, nil
}

func (s *Server) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handleConn(conn)
	}
}

func (s *Server) Close() error {
	err := s.listener.Close()
	_ = os.Remove(s.path)
	return err
}

func (s *Server) handleConn(conn net.Conn) {
	defer func() { _ = conn.Close() }()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)

	for {
		var req request
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			_ = enc.Encode(response{JSONRPC: "2.0", Error: &rpcError{Code: codeParse, Message: "parse error"}})
			return
		}

		resp := s.dispatch(context.Background(), req)
		if err := enc.Encode(resp); err != nil {
			return
		}
	}
}

type slugParams struct {
	Slug string `json:"slug"`
}

func (s *Server) dispatch(ctx context.Context, req request) response {
	if req.JSONRPC != "2.0" || strings.TrimSpace(req.Method) == "" {
		return response{JSONRPC: "2.0", Error: &rpcError{Code: codeInvalidRequest, Message: "invalid request"}, ID: req.ID}
	}

	if req.Method == "auth.login" {
		return s.handleAuthLogin(ctx, req)
	}

	identity, rpcResp, ok := s.authz(ctx, req)
	if !ok {
		return rpcResp
	}

	switch req.Method {
	case "auth.whoami":
		return result(req.ID, identity.User.Client())
	case "teams.list":
		out, err := s.service.ListTeams(ctx, identity)
		return s.reply(req, out, err)
	case "teams.get":
		var p slugParams
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.GetTeam(ctx, identity, p.Slug)
		return s.reply(req, out, err)
	case "teams.create":
		var p application.CreateTeamInput
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.CreateTeam(ctx, identity, p)
		return s.reply(req, out, err)
	case "members.list":
		var p slugParams
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.ListMembers(ctx, identity, p.Slug)
		return s.reply(req, out, err)
	case "invitations.list":
		var p struct {
			Slug         string `json:"slug"`
			SentViaEmail *bool  `json:"sentViaEmail"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.ListInvitations(ctx, identity, p.Slug, p.SentViaEmail)
		return s.reply(req, out, err)
	case "apikeys.list":
		var p slugParams
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.service.ListAPIKeys(ctx, identity, p.Slug)
		return s.reply(req, out, err)
	case "apikeys.create":
		var p struct {
			Slug string `json:"slug"`
			Name string `json:"name"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		key, err := s.service.CreateAPIKey(ctx, identity, p.Slug, application.CreateAPIKeyInput{Name: p.Name})
		return s.reply(req, map[string]string{"apiKey": key}, err)
	case "apikeys.delete":
		var p struct {
			Slug string `json:"slug"`
			ID   string `json:"id"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		err := s.service.DeleteAPIKey(ctx, identity, p.Slug, p.ID)
		return s.reply(req, map[string]bool{"deleted": true}, err)
	case "audit.list":
		var p struct {
			Team  string `json:"team"`
			Limit int    `json:"limit"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		if p.Limit <= 0 {
			p.Limit = 200
		}
		out, err := s.service.ListAuditLogs(ctx, identity, p.Team, p.Limit)
		return s.reply(req, out, err)
	default:
		return response{JSONRPC: "2.0", Error: &rpcError{Code: codeMethodNotFound, Message: "method not found"}, ID: req.ID}
	}
}

func (s *Server) handleAuthLogin(ctx context.Context, req request) response {
	var p struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		TokenName string `json:"tokenName"`
	}
	if !decodeParams(req.Params, &p) {
		return invalidParams(req.ID)
	}
	u, token, err := s.service.LoginWithAPIToken(ctx, p.Email, p.Password, p.TokenName, nil)
	if err != nil {
		return s.failure(req, err)
	}
	return result(req.ID, map[string]any{"user": u.Client(), "token": token})
}

func (s *Server) authz(ctx context.Context, req request) (domain.Identity, response, bool) {
	var p struct {
		Token string `json:"token"`
	}
	if !decodeParams(req.Params, &p) {
		return domain.Identity{}, invalidParams(req.ID), false
	}
	identity, err := s.service.AuthenticateBearerToken(ctx, p.Token)
	if err != nil {
		return domain.Identity{}, response{JSONRPC: "2.0", Error: &rpcError{Code: codeUnauthorized, Message: "Unauthorized"}, ID: req.ID}, false
	}
	return identity, response{}, true
}

func (s *Server) reply(req request, out any, err error) response {
	if err != nil {
		return s.failure(req, err)
	}
	return result(req.ID, out)
}

// failure maps service errors onto HTTP-like codes: a 404 becomes 40400.
func (s *Server) failure(req request, err error) response {
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		return response{JSONRPC: "2.0", Error: &rpcError{Code: apiErr.Status * 100, Message: apiErr.Message}, ID: req.ID}
	}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		return response{JSONRPC: "2.0", Error: &rpcError{Code: codeValidation, Message: "Validation Error: " + verrs.Error()}, ID: req.ID}
	}
	s.logger.Error("rpc call failed", "method", req.Method, "err", err)
	return response{JSONRPC: "2.0", Error: &rpcError{Code: codeInternal, Message: "Something went wrong"}, ID: req.ID}
}

func result(id any, out any) response {
	return response{JSONRPC: "2.0", Result: out, ID: id}
}

func decodeParams(raw json.RawMessage, out any) bool {
	if len(raw) == 0 {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

func invalidParams(id any) response {
	return response{JSONRPC: "2.0", Error: &rpcError{Code: codeInvalidParams, Message: "invalid params"}, ID: id}
}
