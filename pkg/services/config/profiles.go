package config

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/ini.v1"
)

// Profile is one server connection from the profiles file
// (~/.sitewardencfg): server URL plus a personal access token pair, with an
// optional site scope. Secrets may be supplied via environment instead of
// the file.
type Profile struct {
	Name        string
	ServerURL   string
	TokenName   string
	TokenSecret string
	SiteScope   string
}

type Registry interface {
	GetProfiles(ctx context.Context) ([]string, error)
	GetProfile(ctx context.Context, name string) (*Profile, error)
}

type cfgRegistry struct {
	cfg *ini.File
}

func NewRegistry(path string) (Registry, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	return &cfgRegistry{cfg: cfg}, nil
}

func (cr *cfgRegistry) GetProfiles(_ context.Context) ([]string, error) {
	var profiles []string
	for _, section := range cr.cfg.Sections() {
		if len(section.Keys()) > 0 {
			profiles = append(profiles, section.Name())
		}
	}
	return profiles, nil
}

func (cr *cfgRegistry) GetProfile(_ context.Context, name string) (*Profile, error) {
	section := cr.cfg.Section(name)
	if section == nil || len(section.Keys()) == 0 {
		return nil, fmt.Errorf("profile %s not found", name)
	}

	profile := &Profile{
		Name:        name,
		ServerURL:   section.Key("server_url").String(),
		TokenName:   section.Key("token_name").String(),
		TokenSecret: section.Key("token_secret").String(),
		SiteScope:   section.Key("site").String(),
	}
	applyEnvOverrides(profile)

	if profile.ServerURL == "" {
		return nil, fmt.Errorf("profile %s: server_url is required (or set WARDEN_SERVER_URL)", name)
	}
	if profile.TokenName == "" || profile.TokenSecret == "" {
		return nil, fmt.Errorf("profile %s: token_name and token_secret are required (or set WARDEN_TOKEN_NAME/WARDEN_TOKEN_SECRET)", name)
	}
	return profile, nil
}

// applyEnvOverrides lets the environment win over the file so secrets never
// have to live on disk.
func applyEnvOverrides(p *Profile) {
	if v := os.Getenv("WARDEN_SERVER_URL"); v != "" {
		p.ServerURL = v
	}
	if v := os.Getenv("WARDEN_TOKEN_NAME"); v != "" {
		p.TokenName = v
	}
	if v := os.Getenv("WARDEN_TOKEN_SECRET"); v != "" {
		p.TokenSecret = v
	}
	if v := os.Getenv("WARDEN_SITE"); v != "" {
		p.SiteScope = v
	}
}
