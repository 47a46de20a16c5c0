package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"

	"github.com/BartekS5/rawimport/pkg/logger"
	"github.com/BartekS5/rawimport/pkg/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// DriverName maps a config db_type onto the registered database/sql driver.
func DriverName(dbType string) (string, error) {
	switch dbType {
	case "mysql":
		return "mysql", nil
	case "sqlserver", "mssql":
		return "sqlserver", nil
	case "sqlite", "sqlite3":
		return "sqlite", nil
	default:
		return "", fmt.Errorf("no SQL driver for db_type %q", dbType)
	}
}

// SQLDSN builds a connection string for cfg unless one is given explicitly.
func SQLDSN(cfg models.AdapterConfig) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	switch cfg.DBType {
	case "mysql":
		port := cfg.Port
		if port == 0 {
			port = 3306
		}
		mc := mysql.NewConfig()
		mc.User = cfg.User
		mc.Passwd = cfg.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(cfg.Hostname, strconv.Itoa(port))
		mc.DBName = cfg.Database
		mc.ParseTime = true
		return mc.FormatDSN(), nil
	case "sqlserver", "mssql":
		port := cfg.Port
		if port == 0 {
			port = 1433
		}
		u := &url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(cfg.User, cfg.Password),
			Host:     net.JoinHostPort(cfg.Hostname, strconv.Itoa(port)),
			RawQuery: url.Values{"database": {cfg.Database}}.Encode(),
		}
		return u.String(), nil
	case "sqlite", "sqlite3":
		if cfg.Database == "" {
			return "", fmt.Errorf("sqlite adapter needs a database path")
		}
		return cfg.Database, nil
	default:
		return "", fmt.Errorf("no SQL driver for db_type %q", cfg.DBType)
	}
}

// ConnectSQL opens and pings a database/sql handle.
func ConnectSQL(ctx context.Context, driver, connString string) (*sql.DB, error) {
	db, err := sql.Open(driver, connString)
	if err != nil {
		return nil, fmt.Errorf("error opening SQL database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to SQL database (ping failed): %w", err)
	}

	logger.Debugf("Connected to %s database", driver)
	return db, nil
}

// MongoURI builds a mongodb:// URI for cfg unless a DSN is given.
func MongoURI(cfg models.AdapterConfig) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	host := cfg.Hostname
	if host == "" {
		host = "localhost"
	}
	if cfg.Port != 0 {
		host = net.JoinHostPort(host, strconv.Itoa(cfg.Port))
	}
	u := &url.URL{Scheme: "mongodb", Host: host, Path: "/"}
	if cfg.User != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
		u.RawQuery = url.Values{"authSource": {"admin"}}.Encode()
	}
	return u.String()
}

// ConnectMongo creates a client and verifies the primary is reachable.
func ConnectMongo(ctx context.Context, connString string) (*mongo.Client, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(connString))
	if err != nil {
		return nil, fmt.Errorf("error creating MongoDB client: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		_ = client.Disconnect(disconnectCtx)

		return nil, fmt.Errorf("error connecting to MongoDB (ping failed): %w", err)
	}

	logger.Debugf("Connected to MongoDB")
	return client, nil
}
