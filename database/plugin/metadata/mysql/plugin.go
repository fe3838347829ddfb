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

package mysql

import (
	"sync"

	"github.com/blinklabs-io/elections/database/plugin"
)

var (
	cmdlineOptions struct {
		conn     connSettings
		dsn      string
		maxConns int
	}
	cmdlineOptionsMutex sync.RWMutex
)

func init() {
	cmdlineOptions.conn = defaultConnSettings()
	cmdlineOptions.maxConns = DefaultMaxConnections
	plugin.Register(
		plugin.PluginEntry{
			Type:               plugin.PluginTypeMetadata,
			Name:               "mysql",
			Description:        "MySQL relational database",
			NewFromOptionsFunc: NewFromCmdlineOptions,
			Options:            pluginOptions(),
		},
	)
}

// pluginOptions binds the connection settings to config, flags and env. The
// MYSQL_* variables are honored so that the usual container env works
// unchanged.
func pluginOptions() []plugin.PluginOption {
	def := defaultConnSettings()
	conn := &cmdlineOptions.conn
	return []plugin.PluginOption{
		{
			Name:         "host",
			Type:         plugin.PluginOptionTypeString,
			Description:  "MySQL host",
			DefaultValue: def.host,
			CustomEnvVar: "MYSQL_HOST",
			Dest:         &conn.host,
		},
		{
			Name:         "port",
			Type:         plugin.PluginOptionTypeUint,
			Description:  "MySQL port",
			DefaultValue: def.port,
			CustomEnvVar: "MYSQL_PORT",
			Dest:         &conn.port,
		},
		{
			Name:         "user",
			Type:         plugin.PluginOptionTypeString,
			Description:  "MySQL user",
			DefaultValue: def.user,
			CustomEnvVar: "MYSQL_USER",
			Dest:         &conn.user,
		},
		{
			Name:         "password",
			Type:         plugin.PluginOptionTypeString,
			Description:  "MySQL password",
			DefaultValue: "",
			CustomEnvVar: "MYSQL_PASSWORD",
			Dest:         &conn.password,
		},
		{
			Name:         "database",
			Type:         plugin.PluginOptionTypeString,
			Description:  "MySQL database, created if missing",
			DefaultValue: def.database,
			CustomEnvVar: "MYSQL_DATABASE",
			Dest:         &conn.database,
		},
		{
			Name:         "tls",
			Type:         plugin.PluginOptionTypeString,
			Description:  "driver tls mode (true, skip-verify, preferred)",
			DefaultValue: "",
			CustomEnvVar: "MYSQL_TLS",
			Dest:         &conn.tlsMode,
		},
		{
			Name:         "dsn",
			Type:         plugin.PluginOptionTypeString,
			Description:  "full driver DSN, replaces the settings above",
			DefaultValue: "",
			CustomEnvVar: "MYSQL_DSN",
			Dest:         &cmdlineOptions.dsn,
		},
		{
			Name:         "max-connections",
			Type:         plugin.PluginOptionTypeInt,
			Description:  "maximum number of open connections",
			DefaultValue: DefaultMaxConnections,
			Dest:         &cmdlineOptions.maxConns,
		},
	}
}

// NewFromCmdlineOptions creates a store from the registered plugin options.
// The logger and metrics registry arrive later through plugin.Instrumented.
func NewFromCmdlineOptions() plugin.Plugin {
	cmdlineOptionsMutex.RLock()
	conn := cmdlineOptions.conn
	dsn := cmdlineOptions.dsn
	maxConns := cmdlineOptions.maxConns
	cmdlineOptionsMutex.RUnlock()

	p, err := NewWithOptions(
		WithServer(conn.host, conn.port),
		WithCredentials(conn.user, conn.password),
		WithDatabase(conn.database),
		WithTLSMode(conn.tlsMode),
		WithDSN(dsn),
		WithMaxConnections(maxConns),
	)
	if err != nil {
		return plugin.NewErrorPlugin(err)
	}
	return p
}
