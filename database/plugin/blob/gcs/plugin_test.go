// Copyright 2025 Blink Labs Software
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

package gcs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/blinklabs-io/elections/database/plugin"
	"github.com/blinklabs-io/elections/database/plugin/blob/gcs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCredentials(t *testing.T) {
	tempDir := t.TempDir()
	existing := filepath.Join(tempDir, "credentials.json")
	require.NoError(t, os.WriteFile(existing, []byte("{}"), 0o600))

	testDefs := []struct {
		name     string
		path     string
		errorMsg string
	}{
		{name: "existing file", path: existing},
		{name: "no file configured", path: ""},
		{
			name:     "missing file",
			path:     filepath.Join(tempDir, "missing.json"),
			errorMsg: "GCS credentials file does not exist",
		},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			err := gcs.ValidateCredentials(testDef.path)
			if testDef.errorMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, testDef.errorMsg)
		})
	}
}

func TestStartChecksSettingsBeforeConnecting(t *testing.T) {
	store, err := gcs.NewWithOptions()
	require.NoError(t, err)
	require.ErrorContains(t, store.Start(), "bucket not set")

	store, err = gcs.NewWithOptions(
		gcs.WithBucket("elections"),
		gcs.WithCredentialsFile(filepath.Join(t.TempDir(), "missing.json")),
	)
	require.NoError(t, err)
	require.ErrorContains(t, store.Start(), "does not exist")
	assert.NoError(t, store.Close())
}

func TestPluginFromOptions(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.json")
	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeBlob, "gcs", "bucket", "elections"))
	require.NoError(t, plugin.SetPluginOption(plugin.PluginTypeBlob, "gcs", "credentials-file", missing))
	t.Cleanup(func() {
		_ = plugin.SetPluginOption(plugin.PluginTypeBlob, "gcs", "bucket", "")
		_ = plugin.SetPluginOption(plugin.PluginTypeBlob, "gcs", "credentials-file", "")
	})

	_, err := plugin.StartPlugin(plugin.PluginTypeBlob, "gcs", nil, nil)
	require.ErrorContains(t, err, missing)
}
