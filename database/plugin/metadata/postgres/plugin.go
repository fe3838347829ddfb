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

package postgres

import (
	"sync"

	"github.com/blinklabs-io/elections/database/plugin"
)

var (
	cmdlineOptions struct {
		conn connSettings
		dsn  string
	}
	cmdlineOptionsMutex sync.RWMutex
)

func init() {
	cmdlineOptions.conn = defaultConnSettings()
	plugin.Register(
		plugin.PluginEntry{
			Type:               plugin.PluginTypeMetadata,
			Name:               "postgres",
			Description:        "Postgres relational database",
			NewFromOptionsFunc: NewFromCmdlineOptions,
			Options:            pluginOptions(),
		},
	)
}

// pluginOptions binds the connection settings to config, flags and env.
// The password has no default and must always be supplied.
func pluginOptions() []plugin.PluginOption {
	def := defaultConnSettings()
	conn := &cmdlineOptions.conn
	return []plugin.PluginOption{
		{
			Name:         "host",
			Type:         plugin.PluginOptionTypeString,
			Description:  "Postgres host",
			DefaultValue: def.host,
			Dest:         &conn.host,
		},
		{
			Name:         "port",
			Type:         plugin.PluginOptionTypeUint,
			Description:  "Postgres port",
			DefaultValue: def.port,
			Dest:         &conn.port,
		},
		{
			Name:         "user",
			Type:         plugin.PluginOptionTypeString,
			Description:  "Postgres role",
			DefaultValue: def.user,
			Dest:         &conn.user,
		},
		{
			Name:         "password",
			Type:         plugin.PluginOptionTypeString,
			Description:  "Postgres password",
			DefaultValue: "",
			Dest:         &conn.password,
		},
		{
			Name:         "database",
			Type:         plugin.PluginOptionTypeString,
			Description:  "Postgres database name",
			DefaultValue: def.database,
			Dest:         &conn.database,
		},
		{
			Name:         "ssl-mode",
			Type:         plugin.PluginOptionTypeString,
			Description:  "libpq sslmode",
			DefaultValue: def.sslMode,
			Dest:         &conn.sslMode,
		},
		{
			Name:         "dsn",
			Type:         plugin.PluginOptionTypeString,
			Description:  "full connection string, replaces the settings above",
			DefaultValue: "",
			Dest:         &cmdlineOptions.dsn,
		},
	}
}

// NewFromCmdlineOptions creates a store from the registered plugin options.
// The logger and metrics registry arrive later through plugin.Instrumented.
func NewFromCmdlineOptions() plugin.Plugin {
	cmdlineOptionsMutex.RLock()
	conn := cmdlineOptions.conn
	dsn := cmdlineOptions.dsn
	cmdlineOptionsMutex.RUnlock()

	p, err := NewWithOptions(
		WithServer(conn.host, conn.port),
		WithCredentials(conn.user, conn.password),
		WithDatabase(conn.database),
		WithSSLMode(conn.sslMode),
		WithDSN(dsn),
	)
	if err != nil {
		return plugin.NewErrorPlugin(err)
	}
	return p
}
