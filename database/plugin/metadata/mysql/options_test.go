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
	"io"
	"log/slog"
	"strings"
	"testing"
)

func TestNewWithOptionsDefaults(t *testing.T) {
	m, err := NewWithOptions()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if m.conn.host != "localhost" || m.conn.port != 3306 || m.conn.user != "root" {
		t.Errorf("unexpected connection defaults: %+v", m.conn)
	}
	if m.conn.database != "elections" {
		t.Errorf("Expected database to default to 'elections', got '%s'", m.conn.database)
	}
	if m.maxConnections != DefaultMaxConnections {
		t.Errorf(
			"Expected maxConnections to default to %d, got %d",
			DefaultMaxConnections,
			m.maxConnections,
		)
	}
}

func TestWithLogger(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := &MetadataStoreMysql{}
	WithLogger(logger)(m)
	if m.logger != logger {
		t.Errorf("Expected logger to be set")
	}
}

func TestDriverConfigFromSettings(t *testing.T) {
	testDefs := []struct {
		name     string
		opts     []Option
		expected string
	}{
		{
			name: "plain",
			opts: []Option{
				WithServer("db.local", 0),
				WithCredentials("", "secret"),
			},
			expected: "root:secret@tcp(db.local:3306)/elections?parseTime=true",
		},
		{
			name: "tls",
			opts: []Option{
				WithServer("::1", 3307),
				WithCredentials("voter", "pw"),
				WithDatabase("ballots"),
				WithTLSMode("skip-verify"),
			},
			expected: "voter:pw@tcp([::1]:3307)/ballots?parseTime=true&tls=skip-verify",
		},
	}
	for _, testDef := range testDefs {
		m, err := NewWithOptions(testDef.opts...)
		if err != nil {
			t.Fatalf("%s: unexpected error: %s", testDef.name, err)
		}
		cfg, err := m.driverConfig()
		if err != nil {
			t.Fatalf("%s: unexpected error: %s", testDef.name, err)
		}
		if got := cfg.FormatDSN(); got != testDef.expected {
			t.Errorf("%s: expected %q, got %q", testDef.name, testDef.expected, got)
		}
	}
}

func TestDriverConfigFromDSN(t *testing.T) {
	m, err := NewWithOptions(
		WithServer("ignored.local", 1),
		WithDSN(" root:secret@tcp(other:3306)/votes?parseTime=true "),
	)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	cfg, err := m.driverConfig()
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if cfg.Addr != "other:3306" || cfg.DBName != "votes" {
		t.Errorf("DSN did not take precedence: addr %s database %s", cfg.Addr, cfg.DBName)
	}
}

func TestStartRejectsInvalidDSN(t *testing.T) {
	m, err := NewWithOptions(WithDSN("localhost"))
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	err = m.Start()
	if err == nil || !strings.Contains(err.Error(), "invalid mysql dsn") {
		t.Errorf("expected an invalid DSN error, got %v", err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("unexpected error closing unstarted store: %s", err)
	}
}

func TestQuoteIdentifier(t *testing.T) {
	if got := quoteIdentifier("elec`tions"); got != "`elec``tions`" {
		t.Errorf("unexpected quoted identifier: %s", got)
	}
}

func TestNewFromCmdlineOptions(t *testing.T) {
	cmdlineOptionsMutex.Lock()
	saved := cmdlineOptions
	cmdlineOptions.conn.host = "mysql.internal"
	cmdlineOptions.maxConns = 8
	cmdlineOptionsMutex.Unlock()
	t.Cleanup(func() {
		cmdlineOptionsMutex.Lock()
		cmdlineOptions = saved
		cmdlineOptionsMutex.Unlock()
	})

	store, ok := NewFromCmdlineOptions().(*MetadataStoreMysql)
	if !ok {
		t.Fatal("expected a mysql store")
	}
	if store.conn.host != "mysql.internal" || store.maxConnections != 8 {
		t.Errorf("settings were not carried over: %+v max %d", store.conn, store.maxConnections)
	}
}
