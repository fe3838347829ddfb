// Copyright 2024 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/blinklabs-io/elections/database/plugin/blob/gcs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetGlobalConfig() {
	globalConfig = &Config{
		BindAddr:        "0.0.0.0",
		DatabasePath:    ".elections",
		ApiPort:         8080,
		MetricsPort:     12798,
		BlobPlugin:      DefaultBlobPlugin,
		MetadataPlugin:  DefaultMetadataPlugin,
		RunMode:         RunModeServe,
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	tmpFile := filepath.Join(t.TempDir(), "test-elections.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(content), 0o600))
	return tmpFile
}

func TestLoad_CompareFullStruct(t *testing.T) {
	resetGlobalConfig()
	policy := strings.Repeat("0f", 32)
	yamlContent := `
databasePath: "/var/lib/elections"
bindAddr: "127.0.0.1"
apiPort: 9000
metricsPort: 9001
shutdownTimeout: "10s"
humanIssuer: "issuer.near"
authorities:
  - "admin.near"
  - "council.near"
policy: "` + policy + `"
runMode: "dev"
tracing: true
tracingStdout: true
`
	cfg, err := LoadConfig(writeConfigFile(t, yamlContent))
	require.NoError(t, err)
	expected := &Config{
		BlobPlugin:      DefaultBlobPlugin,
		MetadataPlugin:  DefaultMetadataPlugin,
		DatabasePath:    "/var/lib/elections",
		BindAddr:        "127.0.0.1",
		ApiPort:         9000,
		MetricsPort:     9001,
		ShutdownTimeout: "10s",
		HumanIssuer:     "issuer.near",
		Authorities:     []string{"admin.near", "council.near"},
		Policy:          policy,
		RunMode:         RunModeDev,
		Tracing:         true,
		TracingStdout:   true,
	}
	assert.Equal(t, expected, cfg)
	assert.True(t, cfg.RunMode.IsDevMode())
}

func TestLoad_ConfigSection(t *testing.T) {
	resetGlobalConfig()
	yamlContent := `
config:
  humanIssuer: "issuer.near"
  apiPort: 8181
`
	cfg, err := LoadConfig(writeConfigFile(t, yamlContent))
	require.NoError(t, err)
	assert.Equal(t, "issuer.near", cfg.HumanIssuer)
	assert.Equal(t, uint(8181), cfg.ApiPort)
	// Untouched defaults survive the overlay
	assert.Equal(t, uint(12798), cfg.MetricsPort)
	assert.Equal(t, ".elections", cfg.DatabasePath)
}

func TestLoad_DatabasePluginSection(t *testing.T) {
	resetGlobalConfig()
	yamlContent := `
config:
  humanIssuer: "issuer.near"
database:
  blob:
    plugin: "gcs"
    gcs:
      bucket: "elections-bucket"
  metadata:
    plugin: "postgres"
`
	cfg, err := LoadConfig(writeConfigFile(t, yamlContent))
	require.NoError(t, err)
	assert.Equal(t, "gcs", cfg.BlobPlugin)
	assert.Equal(t, "postgres", cfg.MetadataPlugin)
}

func TestLoad_InvalidPluginOption(t *testing.T) {
	resetGlobalConfig()
	yamlContent := `
database:
  blob:
    gcs:
      bucket: 42
`
	_, err := LoadConfig(writeConfigFile(t, yamlContent))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error processing plugin config")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	resetGlobalConfig()
	t.Setenv("ELECTIONS_HUMAN_ISSUER", "env-issuer.near")
	t.Setenv("ELECTIONS_AUTHORITIES", "a.near,b.near")
	t.Setenv("ELECTIONS_API_PORT", "9999")
	t.Setenv("ELECTIONS_DATABASE_BLOB_PLUGIN", "s3")
	yamlContent := `
humanIssuer: "file-issuer.near"
apiPort: 9000
`
	cfg, err := LoadConfig(writeConfigFile(t, yamlContent))
	require.NoError(t, err)
	assert.Equal(t, "env-issuer.near", cfg.HumanIssuer)
	assert.Equal(t, []string{"a.near", "b.near"}, cfg.Authorities)
	assert.Equal(t, uint(9999), cfg.ApiPort)
	assert.Equal(t, "s3", cfg.BlobPlugin)
}

func TestLoad_InvalidRunMode(t *testing.T) {
	resetGlobalConfig()
	_, err := LoadConfig(writeConfigFile(t, `runMode: "load"`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid runMode")
}

func TestLoad_EmptyRunModeDefaultsToServe(t *testing.T) {
	resetGlobalConfig()
	cfg, err := LoadConfig(writeConfigFile(t, `runMode: ""`))
	require.NoError(t, err)
	assert.Equal(t, RunModeServe, cfg.RunMode)
}

func TestLoad_InvalidPolicy(t *testing.T) {
	resetGlobalConfig()
	_, err := LoadConfig(writeConfigFile(t, `policy: "f1c09f8"`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid policy")
}

func TestLoad_MissingFile(t *testing.T) {
	resetGlobalConfig()
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestContextRoundTrip(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
	cfg := &Config{HumanIssuer: "issuer.near"}
	ctx := WithContext(context.Background(), cfg)
	assert.Same(t, cfg, FromContext(ctx))
}

func TestRunModeValid(t *testing.T) {
	assert.True(t, RunModeServe.Valid())
	assert.True(t, RunModeDev.Valid())
	assert.True(t, RunMode("").Valid())
	assert.False(t, RunMode("load").Valid())
	assert.False(t, RunModeServe.IsDevMode())
}
