package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

var (
	// ErrOrgNotFound is returned when no auth file exists for the requested org.
	ErrOrgNotFound = errors.New("no authorization found for org")

	// ErrNoTargetOrg is returned when neither --target-org nor a default is set.
	ErrNoTargetOrg = errors.New("no target org specified; use --target-org or set target-org in config.toml")
)

// DefaultAPIVersion is used when neither the flag, the project nor the org specify one.
const DefaultAPIVersion = "60.0"

// OrgAuth is the stored authorization for one org, kept at orgs/<username>.toml.
type OrgAuth struct {
	Username    string `toml:"username"`
	OrgID       string `toml:"org_id"`
	InstanceURL string `toml:"instance_url"`
	AccessToken string `toml:"access_token"`
	APIVersion  string `toml:"api_version,omitempty"`
}

// Validate checks that the auth file carries everything needed to connect.
func (a *OrgAuth) Validate() error {
	switch {
	case a.Username == "":
		return fmt.Errorf("org auth: username is required")
	case a.OrgID == "":
		return fmt.Errorf("org auth %s: org_id is required", a.Username)
	case a.InstanceURL == "":
		return fmt.Errorf("org auth %s: instance_url is required", a.Username)
	case a.AccessToken == "":
		return fmt.Errorf("org auth %s: access_token is required", a.Username)
	}
	return nil
}

// CLIConfig is the global config.toml.
type CLIConfig struct {
	TargetOrg string            `toml:"target-org,omitempty"`
	Aliases   map[string]string `toml:"aliases,omitempty"`
}

// OrgStore loads org authorizations and CLI config from the global paths.
type OrgStore struct {
	paths *Paths
}

// NewOrgStore creates an OrgStore over the given paths.
func NewOrgStore(paths *Paths) *OrgStore {
	return &OrgStore{paths: paths}
}

// LoadCLIConfig reads config.toml; a missing file yields an empty config.
func (s *OrgStore) LoadCLIConfig() (*CLIConfig, error) {
	cfg := &CLIConfig{}
	data, err := os.ReadFile(s.paths.Config)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.paths.Config, err)
	}
	return cfg, nil
}

// Resolve turns a username, alias or empty string (default org) into an OrgAuth.
func (s *OrgStore) Resolve(nameOrAlias string) (*OrgAuth, error) {
	cfg, err := s.LoadCLIConfig()
	if err != nil {
		return nil, err
	}

	name := nameOrAlias
	if name == "" {
		name = cfg.TargetOrg
	}
	if name == "" {
		return nil, ErrNoTargetOrg
	}
	if username, ok := cfg.Aliases[name]; ok {
		name = username
	}

	return s.Load(name)
}

// Load reads the auth file for username.
func (s *OrgStore) Load(username string) (*OrgAuth, error) {
	if username == "" || strings.ContainsAny(username, `/\`) || username == "." || username == ".." {
		return nil, fmt.Errorf("invalid org username %q", username)
	}

	data, err := os.ReadFile(filepath.Join(s.paths.Orgs, username+".toml"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrOrgNotFound, username)
		}
		return nil, fmt.Errorf("failed to read org auth: %w", err)
	}

	var auth OrgAuth
	if err := toml.Unmarshal(data, &auth); err != nil {
		return nil, fmt.Errorf("failed to parse org auth for %s: %w", username, err)
	}
	if auth.Username == "" {
		auth.Username = username
	}
	if err := auth.Validate(); err != nil {
		return nil, err
	}
	return &auth, nil
}

// Save writes the auth file for auth.Username.
func (s *OrgStore) Save(auth *OrgAuth) error {
	if err := auth.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.paths.Orgs, 0700); err != nil {
		return fmt.Errorf("failed to create orgs directory: %w", err)
	}
	data, err := toml.Marshal(auth)
	if err != nil {
		return fmt.Errorf("failed to marshal org auth: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.paths.Orgs, auth.Username+".toml"), data, 0600); err != nil {
		return fmt.Errorf("failed to write org auth: %w", err)
	}
	return nil
}
