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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/blinklabs-io/elections/database/plugin/metadata/internal/gormstore"
	"github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DefaultMaxConnections = 100

	// MySQL error number for an unknown database
	errUnknownDatabase = 1049
)

// MetadataStoreMysql stores metadata in MySQL.
type MetadataStoreMysql struct {
	*gormstore.Store

	promRegistry   prometheus.Registerer
	logger         *slog.Logger
	maxConnections int
	conn           connSettings
	dsn            string
}

// NewWithOptions creates a new database with options. The connection is
// opened by Start.
func NewWithOptions(opts ...Option) (*MetadataStoreMysql, error) {
	db := &MetadataStoreMysql{}
	for _, opt := range opts {
		opt(db)
	}
	db.conn = db.conn.withDefaults()
	if db.maxConnections <= 0 {
		db.maxConnections = DefaultMaxConnections
	}
	if db.logger == nil {
		db.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return db, nil
}

// driverConfig returns the settings parsed from the DSN when one is set
func (d *MetadataStoreMysql) driverConfig() (*mysql.Config, error) {
	if d.dsn == "" {
		return d.conn.driverConfig(), nil
	}
	cfg, err := mysql.ParseDSN(d.dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid mysql dsn: %w", err)
	}
	return cfg, nil
}

func openGorm(cfg *mysql.Config) (*gorm.DB, error) {
	return gorm.Open(
		gormmysql.Open(cfg.FormatDSN()),
		&gorm.Config{
			Logger:                 gormlogger.Discard,
			SkipDefaultTransaction: true,
			PrepareStmt:            true,
		},
	)
}

// Start implements the plugin.Plugin interface
func (d *MetadataStoreMysql) Start() error {
	cfg, err := d.driverConfig()
	if err != nil {
		return err
	}
	metadataDb, err := openGorm(cfg)
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == errUnknownDatabase {
		if createErr := createDatabase(cfg); createErr != nil {
			return errors.Join(err, createErr)
		}
		d.logger.Info(
			"created mysql database",
			"component", "database",
			"database", cfg.DBName,
		)
		metadataDb, err = openGorm(cfg)
	}
	if err != nil {
		return err
	}
	d.logger.Info(
		"connected to mysql metadata store",
		"component", "database",
		"addr", cfg.Addr,
		"database", cfg.DBName,
	)
	sqlDB, err := metadataDb.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(d.maxConnections)
	sqlDB.SetConnMaxLifetime(time.Hour)

	d.Store = gormstore.New(metadataDb, d.logger)
	// Store is kept on error so that Close can release the connection
	return d.Setup()
}

// createDatabase connects without selecting a database and creates the one
// named in cfg
func createDatabase(cfg *mysql.Config) error {
	if cfg.DBName == "" {
		return errors.New("no database name to create")
	}
	adminCfg := cfg.Clone()
	adminCfg.DBName = ""
	adminDb, err := openGorm(adminCfg)
	if err != nil {
		return err
	}
	sqlAdminDb, err := adminDb.DB()
	if err != nil {
		return err
	}
	defer sqlAdminDb.Close()
	return adminDb.Exec(
		"CREATE DATABASE IF NOT EXISTS " + quoteIdentifier(cfg.DBName),
	).Error
}

func quoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// Stop implements the plugin.Plugin interface
func (d *MetadataStoreMysql) Stop() error {
	return d.Close()
}

// Close closes the database handle. It is safe to call before Start.
func (d *MetadataStoreMysql) Close() error {
	if d.Store == nil {
		return nil
	}
	return d.Store.Close()
}

// SetLogger implements the plugin.Instrumented interface
func (d *MetadataStoreMysql) SetLogger(logger *slog.Logger) {
	d.logger = logger
}

// SetPromRegistry implements the plugin.Instrumented interface
func (d *MetadataStoreMysql) SetPromRegistry(registry prometheus.Registerer) {
	d.promRegistry = registry
}
