package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/igormartsekha/saas-starter-kit/internal/mutation"
)

const (
	defaultServer = "http://127.0.0.1:8080"
	defaultSocket = "/tmp/saaskit.sock"
)

type cliConfig struct {
	Transport string `json:"transport"`
	Server    string `json:"server"`
	Socket    string `json:"socket"`
	Token     string `json:"token"`
}

// apiClient is the REST side of the CLI. It shares the envelope handling of
// the mutation client so server messages are shown verbatim.
type apiClient struct {
	client *mutation.Client
}

func newAPIClient(server, token string) *apiClient {
	return &apiClient{client: mutation.NewClient(server, mutation.WithToken(token))}
}

func (c *apiClient) request(ctx context.Context, method, path string, in any, out any) error {
	res := c.client.Do(ctx, mutation.Request{Method: method, Path: path, Body: in})
	if res.Err != nil {
		if res.Err.StatusCode == 0 {
			return fmt.Errorf("api error: %s", res.Err.Message)
		}
		return fmt.Errorf("api error (%d): %s", res.Err.StatusCode, res.Err.Message)
	}
	if out == nil {
		return nil
	}
	return res.Decode(out)
}

func configPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".saaskit", "config.json"), nil
}

func loadConfig() (cliConfig, error) {
	path, err := configPath()
	if err != nil {
		return cliConfig{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cliConfig{Transport: "uds", Server: defaultServer, Socket: defaultSocket}, nil
		}
		return cliConfig{}, err
	}
	var cfg cliConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cliConfig{}, err
	}
	if cfg.Transport == "" {
		cfg.Transport = "uds"
	}
	if cfg.Server == "" {
		cfg.Server = defaultServer
	}
	if cfg.Socket == "" {
		cfg.Socket = defaultSocket
	}
	return cfg, nil
}

func saveConfig(cfg cliConfig) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
