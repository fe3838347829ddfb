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

package plugin

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

type PluginType int

const (
	PluginTypeBlob PluginType = iota + 1
	PluginTypeMetadata
)

// EnvVarPrefix is prepended to every plugin environment variable
const EnvVarPrefix = "ELECTIONS"

func PluginTypeName(pluginType PluginType) string {
	switch pluginType {
	case PluginTypeBlob:
		return "blob"
	case PluginTypeMetadata:
		return "metadata"
	default:
		return ""
	}
}

type PluginEntry struct {
	Type               PluginType
	Name               string
	Description        string
	NewFromOptionsFunc func() Plugin
	Options            []PluginOption
}

var pluginEntries []PluginEntry

// Register adds a plugin entry to the registry. It is meant to be called
// from the init function of each plugin package.
func Register(pluginEntry PluginEntry) {
	pluginEntries = append(pluginEntries, pluginEntry)
}

// GetPlugins returns the registered entries of the given type
func GetPlugins(pluginType PluginType) []PluginEntry {
	var ret []PluginEntry
	for _, p := range pluginEntries {
		if p.Type == pluginType {
			ret = append(ret, p)
		}
	}
	return ret
}

// GetPlugin builds a new instance of the named plugin from its current
// options. It returns nil if no such plugin is registered.
func GetPlugin(pluginType PluginType, pluginName string) Plugin {
	entry := findEntry(pluginType, pluginName)
	if entry == nil || entry.NewFromOptionsFunc == nil {
		return nil
	}
	return entry.NewFromOptionsFunc()
}

func findEntry(pluginType PluginType, pluginName string) *PluginEntry {
	for i := range pluginEntries {
		p := &pluginEntries[i]
		if p.Type == pluginType && p.Name == pluginName {
			return p
		}
	}
	return nil
}

// PopulateCmdlineOptions adds a flag for every option of every registered
// plugin, named <type>-<plugin>-<option>
func PopulateCmdlineOptions(fs *pflag.FlagSet) error {
	for _, p := range pluginEntries {
		for i := range p.Options {
			if err := p.Options[i].AddToFlagSet(fs, PluginTypeName(p.Type), p.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

// ProcessEnvVars applies ELECTIONS_<TYPE>_<PLUGIN>_<OPTION> environment
// variables to the registered plugin options
func ProcessEnvVars() error {
	for _, p := range pluginEntries {
		envPrefix := fmt.Sprintf(
			"%s_%s_%s",
			EnvVarPrefix,
			strings.ToUpper(PluginTypeName(p.Type)),
			strings.ToUpper(strings.ReplaceAll(p.Name, "-", "_")),
		)
		for i := range p.Options {
			if err := p.Options[i].ProcessEnvVars(envPrefix); err != nil {
				return err
			}
		}
	}
	return nil
}

// ProcessConfig applies plugin options from a config file. The map is keyed
// by plugin type, then plugin name, then option name.
func ProcessConfig(pluginConfig map[string]map[string]map[string]any) error {
	for _, p := range pluginEntries {
		typeData, ok := pluginConfig[PluginTypeName(p.Type)]
		if !ok {
			continue
		}
		pluginData, ok := typeData[p.Name]
		if !ok {
			continue
		}
		for i := range p.Options {
			if err := p.Options[i].ProcessConfig(pluginData); err != nil {
				return fmt.Errorf(
					"%s plugin '%s': %w",
					PluginTypeName(p.Type),
					p.Name,
					err,
				)
			}
		}
	}
	return nil
}
