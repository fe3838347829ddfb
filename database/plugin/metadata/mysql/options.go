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
	"log/slog"
	"net"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// connSettings are the connection parameters used when no DSN is given
type connSettings struct {
	host     string
	port     uint64
	user     string
	password string
	database string
	tlsMode  string
}

func defaultConnSettings() connSettings {
	return connSettings{
		host:     "localhost",
		port:     3306,
		user:     "root",
		database: "elections",
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
	return c
}

// driverConfig returns the driver settings. Times are always read and
// written in UTC.
func (c connSettings) driverConfig() *mysql.Config {
	cfg := mysql.NewConfig()
	cfg.User = c.user
	cfg.Passwd = c.password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(c.host, strconv.FormatUint(c.port, 10))
	cfg.DBName = c.database
	cfg.ParseTime = true
	cfg.TLSConfig = c.tlsMode
	return cfg
}

type Option func(*MetadataStoreMysql)

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) Option {
	return func(m *MetadataStoreMysql) {
		m.logger = logger
	}
}

// WithServer sets the address of the MySQL server
func WithServer(host string, port uint64) Option {
	return func(m *MetadataStoreMysql) {
		m.conn.host = host
		m.conn.port = port
	}
}

func WithCredentials(user, password string) Option {
	return func(m *MetadataStoreMysql) {
		m.conn.user = user
		m.conn.password = password
	}
}

// WithDatabase sets the database name. It is created on first start when
// the user may do so.
func WithDatabase(name string) Option {
	return func(m *MetadataStoreMysql) {
		m.conn.database = name
	}
}

// WithTLSMode sets the driver tls parameter: "true", "skip-verify",
// "preferred" or the name of a registered TLS config
func WithTLSMode(mode string) Option {
	return func(m *MetadataStoreMysql) {
		m.conn.tlsMode = mode
	}
}

// WithDSN sets a full driver DSN. It replaces every other connection setting.
func WithDSN(dsn string) Option {
	return func(m *MetadataStoreMysql) {
		m.dsn = strings.TrimSpace(dsn)
	}
}

// WithMaxConnections caps the number of open connections in the pool
func WithMaxConnections(maxConns int) Option {
	return func(m *MetadataStoreMysql) {
		m.maxConnections = maxConns
	}
}
