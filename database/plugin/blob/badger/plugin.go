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

package badger

import (
	"sync"

	"github.com/blinklabs-io/elections/database/plugin"
)

const defaultDataDir = ".elections"

// pluginSettings holds the values bound to config, flags and env
type pluginSettings struct {
	dataDir        string
	blockCacheSize uint64
	indexCacheSize uint64
	gc             bool
}

func defaultPluginSettings() pluginSettings {
	return pluginSettings{
		dataDir:        defaultDataDir,
		blockCacheSize: DefaultBlockCacheSize,
		indexCacheSize: DefaultIndexCacheSize,
		gc:             true,
	}
}

func (s pluginSettings) storeOptions() []BlobStoreBadgerOptionFunc {
	return []BlobStoreBadgerOptionFunc{
		WithDataDir(s.dataDir),
		WithBlockCacheSize(s.blockCacheSize),
		WithIndexCacheSize(s.indexCacheSize),
		WithGc(s.gc),
	}
}

var (
	cmdlineOptions      = defaultPluginSettings()
	cmdlineOptionsMutex sync.RWMutex
)

func init() {
	def := defaultPluginSettings()
	plugin.Register(
		plugin.PluginEntry{
			Type:               plugin.PluginTypeBlob,
			Name:               "badger",
			Description:        "BadgerDB local key-value store",
			NewFromOptionsFunc: NewFromCmdlineOptions,
			Options: []plugin.PluginOption{
				{
					Name:         "data-dir",
					Type:         plugin.PluginOptionTypeString,
					Description:  "directory for the badger files, empty for in-memory",
					DefaultValue: def.dataDir,
					Dest:         &cmdlineOptions.dataDir,
				},
				{
					Name:         "block-cache-size",
					Type:         plugin.PluginOptionTypeUint,
					Description:  "block cache size in bytes",
					DefaultValue: def.blockCacheSize,
					Dest:         &cmdlineOptions.blockCacheSize,
				},
				{
					Name:         "index-cache-size",
					Type:         plugin.PluginOptionTypeUint,
					Description:  "index cache size in bytes",
					DefaultValue: def.indexCacheSize,
					Dest:         &cmdlineOptions.indexCacheSize,
				},
				{
					Name:         "gc",
					Type:         plugin.PluginOptionTypeBool,
					Description:  "run value log garbage collection",
					DefaultValue: def.gc,
					Dest:         &cmdlineOptions.gc,
				},
			},
		},
	)
}

// NewFromCmdlineOptions creates a store from the registered plugin options
func NewFromCmdlineOptions() plugin.Plugin {
	cmdlineOptionsMutex.RLock()
	settings := cmdlineOptions
	cmdlineOptionsMutex.RUnlock()
	p, err := New(settings.storeOptions()...)
	if err != nil {
		return plugin.NewErrorPlugin(err)
	}
	return p
}
