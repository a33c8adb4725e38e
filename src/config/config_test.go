package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prbuild-agent/src/provider"
)

func intPtr(v int) *int { return &v }

func validConfig() *Config {
	return &Config{
		BaseURL:  "https://ci.example.org/",
		Username: "robot",
		Password: "secret",
		Repository: map[string][]BuildDefinitionRecord{
			"CasePro": {
				{BuildType: "CasePro_Pulls", Name: "Pull requests", Order: intPtr(2)},
				{BuildType: "CasePro_Linux", Name: "Linux images", Group: "Docker", Depends: "CasePro_Pulls"},
			},
		},
	}
}

func TestResolve(t *testing.T) {
	t.Run("returns definitions in configuration order", func(t *testing.T) {
		defs, err := Resolve(validConfig(), "CasePro")
		require.NoError(t, err)
		require.Len(t, defs, 2)

		assert.Equal(t, "CasePro_Pulls", defs[0].BuildTypeID)
		assert.Equal(t, "Pull requests", defs[0].DisplayName)
		require.NotNil(t, defs[0].Order)
		assert.Equal(t, 2, *defs[0].Order)

		assert.Equal(t, "CasePro_Linux", defs[1].BuildTypeID)
		assert.Equal(t, "Docker", defs[1].Group)
		assert.Equal(t, "CasePro_Pulls", defs[1].DependsOn)
		assert.Nil(t, defs[1].Order)
	})

	t.Run("repository names are case-sensitive", func(t *testing.T) {
		_, err := Resolve(validConfig(), "casepro")
		assert.ErrorIs(t, err, provider.ErrNoConfig)
	})

	t.Run("unknown repository", func(t *testing.T) {
		_, err := Resolve(validConfig(), "Other")
		assert.ErrorIs(t, err, provider.ErrNoConfig)
	})

	t.Run("nil config", func(t *testing.T) {
		_, err := Resolve(nil, "CasePro")
		assert.ErrorIs(t, err, provider.ErrInvalidConfig)
	})

	t.Run("display name falls back to build type", func(t *testing.T) {
		cfg := validConfig()
		cfg.Repository["CasePro"][0].Name = ""
		defs, err := Resolve(cfg, "CasePro")
		require.NoError(t, err)
		assert.Equal(t, "CasePro_Pulls", defs[0].DisplayName)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid basic auth", mutate: func(c *Config) {}},
		{name: "missing base URL", mutate: func(c *Config) { c.BaseURL = "" }, wantErr: true},
		{name: "base URL without trailing slash", mutate: func(c *Config) { c.BaseURL = "https://ci.example.org" }, wantErr: true},
		{name: "missing username", mutate: func(c *Config) { c.Username = "" }, wantErr: true},
		{name: "missing password", mutate: func(c *Config) { c.Password = "" }, wantErr: true},
		{name: "missing repository map", mutate: func(c *Config) { c.Repository = nil }, wantErr: true},
		{
			name: "cookie auth needs only a token",
			mutate: func(c *Config) {
				c.AuthMode = AuthCookie
				c.Username, c.Password = "", ""
				c.SessionToken = "abc"
			},
		},
		{
			name: "cookie auth without token",
			mutate: func(c *Config) {
				c.AuthMode = AuthCookie
				c.SessionToken = ""
			},
			wantErr: true,
		},
		{
			name: "jar auth with cookie file",
			mutate: func(c *Config) {
				c.AuthMode = AuthJar
				c.Username, c.Password = "", ""
				c.CookieFile = "/home/dev/.config/prbuild/cookies.txt"
			},
		},
		{name: "jar auth without cookie file", mutate: func(c *Config) { c.AuthMode = AuthJar }, wantErr: true},
		{name: "unknown auth mode", mutate: func(c *Config) { c.AuthMode = "oauth" }, wantErr: true},
		{name: "bad timeout", mutate: func(c *Config) { c.Timeout = "soon" }, wantErr: true},
		{
			name: "definition without build type",
			mutate: func(c *Config) {
				c.Repository["CasePro"] = append(c.Repository["CasePro"], BuildDefinitionRecord{Name: "nameless"})
			},
			wantErr: true,
		},
		{
			name: "duplicate build type",
			mutate: func(c *Config) {
				c.Repository["CasePro"] = append(c.Repository["CasePro"], BuildDefinitionRecord{BuildType: "CasePro_Pulls"})
			},
			wantErr: true,
		},
		{name: "unknown host kind", mutate: func(c *Config) { c.Hosts = []HostConfig{{Kind: "bitbucket", Host: "bitbucket.org"}} }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, provider.ErrInvalidConfig), "Validate() error = %v, want ErrInvalidConfig", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSnapshotIsIndependent(t *testing.T) {
	cfg := validConfig()
	snap := cfg.Snapshot()

	*cfg.Repository["CasePro"][0].Order = 99
	cfg.Repository["CasePro"][1].Name = "changed"
	cfg.Repository["Other"] = nil

	assert.Equal(t, 2, *snap.Repository["CasePro"][0].Order)
	assert.Equal(t, "Linux images", snap.Repository["CasePro"][1].Name)
	assert.NotContains(t, snap.Repository, "Other")
}

func TestRedacted(t *testing.T) {
	cfg := validConfig()
	cfg.SessionToken = "cookie-value"
	red := cfg.Redacted()

	assert.Equal(t, redactedValue, red.Password)
	assert.Equal(t, redactedValue, red.SessionToken)
	assert.Equal(t, "secret", cfg.Password)
}

func TestFindDefinition(t *testing.T) {
	cfg := validConfig()
	def, ok := cfg.FindDefinition("CasePro_Linux")
	require.True(t, ok)
	assert.Equal(t, "Docker", def.Group)

	_, ok = cfg.FindDefinition("Missing")
	assert.False(t, ok)
}

func TestRepositoryDefinition(t *testing.T) {
	cfg := validConfig()
	cfg.Repository["Other"] = []BuildDefinitionRecord{{BuildType: "CasePro_Linux", BranchPrefix: "pull"}}

	def, ok := cfg.RepositoryDefinition("Other", "CasePro_Linux")
	require.True(t, ok)
	assert.Equal(t, "pull", def.BranchPrefix)

	def, ok = cfg.RepositoryDefinition("CasePro", "CasePro_Linux")
	require.True(t, ok)
	assert.Empty(t, def.BranchPrefix)

	_, ok = cfg.RepositoryDefinition("Other", "CasePro_Pulls")
	assert.False(t, ok)
}

func TestRequestTimeout(t *testing.T) {
	assert.Equal(t, DefaultTimeout, (*Config)(nil).RequestTimeout())
	assert.Equal(t, DefaultTimeout, (&Config{}).RequestTimeout())
	assert.Equal(t, "5s", (&Config{Timeout: "5s"}).RequestTimeout().String())
}

func TestParseAndMarshal(t *testing.T) {
	blob := []byte(`{
		"BaseUrl": "https://ci.example.org/",
		"Username": "robot",
		"Password": "secret",
		"Repository": {
			"CasePro": [
				{"BuildType": "CasePro_Pulls", "Name": "Pulls", "Order": 1, "BranchPrefix": "pull", "Depends": "Core"}
			]
		}
	}`)

	cfg, err := Parse(blob)
	require.NoError(t, err)
	assert.Equal(t, AuthBasic, cfg.AuthMode)
	assert.Equal(t, DefaultSessionCookie, cfg.SessionCookie)
	assert.Equal(t, DefaultHosts(), cfg.Hosts)

	rec := cfg.Repository["CasePro"][0]
	assert.Equal(t, "pull", rec.BranchPrefix)
	assert.Equal(t, "Core", rec.Depends)
	require.NotNil(t, rec.Order)
	assert.Equal(t, 1, *rec.Order)

	data, err := Marshal(cfg)
	require.NoError(t, err)
	again, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)

	_, err = Parse([]byte("{not json"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("yaml file keeps repository case", func(t *testing.T) {
		path := filepath.Join(dir, "prbuild.yaml")
		content := `BaseUrl: https://ci.example.org/
Username: robot
Password: secret
Timeout: 10s
Repository:
  CasePro:
    - BuildType: CasePro_Pulls
      Name: Pull requests
      Group: Web
      Order: 3
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "https://ci.example.org/", cfg.BaseURL)
		assert.Equal(t, "10s", cfg.Timeout)
		require.Contains(t, cfg.Repository, "CasePro")
		assert.Equal(t, "Web", cfg.Repository["CasePro"][0].Group)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("json file", func(t *testing.T) {
		path := filepath.Join(dir, "prbuild.json")
		content := `{"BaseUrl":"https://ci.example.org/","Username":"robot","Password":"secret",
"Repository":{"Web":[{"BuildType":"Web_Build","Name":"Web"}]}}`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		cfg, err := Load(path)
		require.NoError(t, err)
		require.Contains(t, cfg.Repository, "Web")
		assert.Equal(t, "Web_Build", cfg.Repository["Web"][0].BuildType)
	})

	t.Run("environment overrides file", func(t *testing.T) {
		path := filepath.Join(dir, "env.yaml")
		require.NoError(t, os.WriteFile(path, []byte("BaseUrl: https://ci.example.org/\nPassword: from-file\n"), 0o600))
		t.Setenv("PRBUILD_PASSWORD", "from-env")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "from-env", cfg.Password)
	})

	t.Run("explicit missing file is an error", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "missing.yaml"))
		assert.Error(t, err)
	})
}
