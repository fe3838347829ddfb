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
	"log/slog"
	"strconv"
	"strings"
)

// connSettings are the connection parameters used when no DSN is given.
// Sessions always run in UTC as every stored timestamp is unix milliseconds.
type connSettings struct {
	host     string
	port     uint64
	user     string
	password string
	database string
	sslMode  string
}

func defaultConnSettings() connSettings {
	return connSettings{
		host:     "localhost",
		port:     5432,
		user:     "postgres",
		database: "postgres",
		sslMode:  "disable",
	}
}

func (c connSettings) withDefaults() connSettings {
	def := defaultConnSettings()
	if c.host == "" {
		c.host = def.host
	}
	if c.port == 0 {
		c.port = def.port
	}
	if c.user == "" {
		c.user = def.user
	}
	if c.database == "" {
		c.database = def.database
	}
	if c.sslMode == "" {
		c.sslMode = def.sslMode
	}
	return c
}

// keywordString renders the settings as a libpq keyword/value string
func (c connSettings) keywordString() string {
	return strings.Join(
		[]string{
			"host=" + c.host,
			"user=" + c.user,
			"password=" + c.password,
			"dbname=" + c.database,
			"port=" + strconv.FormatUint(c.port, 10),
			"sslmode=" + c.sslMode,
			"TimeZone=UTC",
		},
		" ",
	)
}

type Option func(*MetadataStorePostgres)

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) Option {
	return func(m *MetadataStorePostgres) {
		m.logger = logger
	}
}

// WithServer sets the address of the Postgres server
func WithServer(host string, port uint64) Option {
	return func(m *MetadataStorePostgres) {
		m.conn.host = host
		m.conn.port = port
	}
}

// WithCredentials sets the role the store connects as
func WithCredentials(user, password string) Option {
	return func(m *MetadataStorePostgres) {
		m.conn.user = user
		m.conn.password = password
	}
}

func WithDatabase(name string) Option {
	return func(m *MetadataStorePostgres) {
		m.conn.database = name
	}
}

// WithSSLMode sets the libpq sslmode, e.g. "require" or "verify-full"
func WithSSLMode(mode string) Option {
	return func(m *MetadataStorePostgres) {
		m.conn.sslMode = mode
	}
}

// WithDSN sets a full connection string. It replaces every other connection
// setting.
func WithDSN(dsn string) Option {
	return func(m *MetadataStorePostgres) {
		m.dsn = strings.TrimSpace(dsn)
	}
}
