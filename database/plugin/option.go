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
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

type PluginOptionType int

const (
	PluginOptionTypeString PluginOptionType = iota + 1
	PluginOptionTypeBool
	PluginOptionTypeInt
	PluginOptionTypeUint
)

type PluginOption struct {
	Name         string
	Type         PluginOptionType
	Description  string
	DefaultValue any
	// CustomEnvVar is consulted when the prefixed variable is not set
	CustomEnvVar string
	Dest         any
}

var errNilDest = errors.New("nil destination")

// AddToFlagSet registers the option as a flag named <type>-<plugin>-<option>
func (p *PluginOption) AddToFlagSet(
	fs *pflag.FlagSet,
	pluginType string,
	pluginName string,
) error {
	flagName := fmt.Sprintf("%s-%s-%s", pluginType, pluginName, p.Name)
	switch p.Type {
	case PluginOptionTypeString:
		dest, ok := p.Dest.(*string)
		if !ok || dest == nil {
			return fmt.Errorf("option %s: invalid destination type, expected *string", p.Name)
		}
		def, _ := p.DefaultValue.(string)
		fs.StringVar(dest, flagName, def, p.Description)
	case PluginOptionTypeBool:
		dest, ok := p.Dest.(*bool)
		if !ok || dest == nil {
			return fmt.Errorf("option %s: invalid destination type, expected *bool", p.Name)
		}
		def, _ := p.DefaultValue.(bool)
		fs.BoolVar(dest, flagName, def, p.Description)
	case PluginOptionTypeInt:
		dest, ok := p.Dest.(*int)
		if !ok || dest == nil {
			return fmt.Errorf("option %s: invalid destination type, expected *int", p.Name)
		}
		def, _ := p.DefaultValue.(int)
		fs.IntVar(dest, flagName, def, p.Description)
	case PluginOptionTypeUint:
		dest, ok := p.Dest.(*uint64)
		if !ok || dest == nil {
			return fmt.Errorf("option %s: invalid destination type, expected *uint64", p.Name)
		}
		def, _ := p.DefaultValue.(uint64)
		fs.Uint64Var(dest, flagName, def, p.Description)
	default:
		return fmt.Errorf("unknown plugin option type %d for option %s", p.Type, p.Name)
	}
	return nil
}

// ProcessEnvVars sets the option from <envPrefix>_<OPTION>, or from
// CustomEnvVar, when present
func (p *PluginOption) ProcessEnvVars(envPrefix string) error {
	envName := envPrefix + "_" + strings.ToUpper(
		strings.ReplaceAll(p.Name, "-", "_"),
	)
	value, ok := os.LookupEnv(envName)
	if !ok && p.CustomEnvVar != "" {
		envName = p.CustomEnvVar
		value, ok = os.LookupEnv(envName)
	}
	if !ok {
		return nil
	}
	var err error
	switch p.Type {
	case PluginOptionTypeString:
		err = p.setValue(value)
	case PluginOptionTypeBool:
		var v bool
		v, err = strconv.ParseBool(value)
		if err == nil {
			err = p.setValue(v)
		}
	case PluginOptionTypeInt:
		var v int
		v, err = strconv.Atoi(value)
		if err == nil {
			err = p.setValue(v)
		}
	case PluginOptionTypeUint:
		var v uint64
		v, err = strconv.ParseUint(value, 10, 64)
		if err == nil {
			err = p.setValue(v)
		}
	default:
		err = fmt.Errorf("unknown plugin option type %d", p.Type)
	}
	if err != nil {
		return fmt.Errorf("environment variable %s: %w", envName, err)
	}
	return nil
}

// ProcessConfig sets the option from a plugin config section when present
func (p *PluginOption) ProcessConfig(pluginData map[string]any) error {
	value, ok := pluginData[p.Name]
	if !ok {
		return nil
	}
	if err := p.setValue(value); err != nil {
		return fmt.Errorf("option %s: %w", p.Name, err)
	}
	return nil
}

func (p *PluginOption) setValue(value any) error {
	if p.Dest == nil {
		return errNilDest
	}
	switch p.Type {
	case PluginOptionTypeString:
		v, ok := value.(string)
		if !ok {
			return errors.New("invalid type: expected string")
		}
		dest, ok := p.Dest.(*string)
		if !ok || dest == nil {
			return errors.New("invalid destination type: expected *string")
		}
		*dest = v
	case PluginOptionTypeBool:
		v, ok := value.(bool)
		if !ok {
			return errors.New("invalid type: expected bool")
		}
		dest, ok := p.Dest.(*bool)
		if !ok || dest == nil {
			return errors.New("invalid destination type: expected *bool")
		}
		*dest = v
	case PluginOptionTypeInt:
		v, ok := value.(int)
		if !ok {
			return errors.New("invalid type: expected int")
		}
		dest, ok := p.Dest.(*int)
		if !ok || dest == nil {
			return errors.New("invalid destination type: expected *int")
		}
		*dest = v
	case PluginOptionTypeUint:
		dest, ok := p.Dest.(*uint64)
		if !ok || dest == nil {
			return errors.New("invalid destination type: expected *uint64")
		}
		// YAML decodes plain integers as int
		switch tv := value.(type) {
		case uint64:
			*dest = tv
		case uint:
			*dest = uint64(tv)
		case int:
			if tv < 0 {
				return errors.New("invalid value: negative int")
			}
			*dest = uint64(tv)
		default:
			return errors.New("invalid type: expected uint64 or int")
		}
	default:
		return fmt.Errorf("unknown plugin option type %d", p.Type)
	}
	return nil
}
