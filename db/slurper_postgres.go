package db

// DCSO MTUCORR
// Copyright (c) 2024, DCSO GmbH

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/DCSO/mtucorr/types"

	"github.com/jackc/pgx/v4/pgxpool"
	log "github.com/sirupsen/logrus"
)

var maxRetries = 20

// PostgresSlurper is a Slurper that stores reports in a PostgreSQL database.
type PostgresSlurper struct {
	DB     *pgxpool.Pool
	DBUser string
	// CopyFn allows injecting a custom COPY executor for testing.
	// It should execute a COPY FROM STDIN using the provided SQL and reader and return rows copied.
	CopyFn func(ctx context.Context, pool *pgxpool.Pool, sql string, r io.Reader) (int64, error)
	// ExecFn allows injecting execution for DDL statements (e.g., CREATE TABLE ... GRANT ...)
	ExecFn    func(ctx context.Context, sql string) error
	TableName string
	ChunkSize int
	Logger    *log.Entry
	done      chan struct{}
}

// MakePostgresSlurper creates a new PostgresSlurper instance.
func MakePostgresSlurper(host string, database string, user string,
	password string, table string, chunkSize int) (*PostgresSlurper, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable", user, password, host, database)
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pgx config: %w", err)
	}
	db, err := pgxpool.ConnectConfig(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres via pgxpool: %w", err)
	}
	l := log.WithFields(log.Fields{
		"domain":  "slurper",
		"slurper": "postgres",
	})
	for i := 0; ; i++ {
		err = db.Ping(context.Background())
		if err == nil || i > maxRetries || !strings.Contains(err.Error(), "system is starting up") {
			break
		}
		l.Warnf("database not ready: %s -- retrying %d/%d", err.Error(), i, maxRetries)
		time.Sleep(10 * time.Second)
	}
	if err != nil {
		db.Close()
		return nil, err
	}
	l.WithFields(log.Fields{
		"user":     user,
		"host":     host,
		"database": database,
	}).Info("connected to database")
	if table == "" {
		table = DefaultReportTable
	}
	if chunkSize < 1 {
		chunkSize = 1
	}
	return &PostgresSlurper{
		DB:        db,
		DBUser:    user,
		TableName: table,
		ChunkSize: chunkSize,
		Logger:    l,
	}, nil
}

func (s *PostgresSlurper) exec(ctx context.Context, sql string) error {
	if s.ExecFn != nil {
		return s.ExecFn(ctx, sql)
	}
	_, err := s.DB.Exec(ctx, sql)
	return err
}

func (s *PostgresSlurper) copy(ctx context.Context, copybuf *bytes.Buffer, n int) {
	sql := fmt.Sprintf(SQLCopy, s.TableName)
	r := strings.NewReader(copybuf.String())
	var err error
	if s.CopyFn != nil {
		_, err = s.CopyFn(ctx, s.DB, sql, r)
	} else {
		conn, acqErr := s.DB.Acquire(ctx)
		if acqErr != nil {
			s.Logger.WithError(acqErr).Warn("failed to acquire connection for COPY")
			return
		}
		_, err = conn.Conn().PgConn().CopyFrom(ctx, r, sql)
		conn.Release()
	}
	if err != nil {
		s.Logger.Warn(err)
	} else {
		s.Logger.WithFields(log.Fields{
			"reports": n,
			"table":   s.TableName,
		}).Debug("COPY complete")
	}
}

func (s *PostgresSlurper) slurpPostgres(ctx context.Context, reportchan chan types.HourReport) {
	defer close(s.done)
	crSQL := fmt.Sprintf(SQLCreate, s.TableName, s.TableName, s.TableName,
		s.TableName, s.DBUser)
	if err := s.exec(ctx, crSQL); err != nil {
		s.Logger.WithFields(log.Fields{
			"table": s.TableName,
			"error": err.Error(),
		}).Warn("error creating table")
	}

	cnt := 0
	var copybuf bytes.Buffer
	for report := range reportchan {
		payload, err := json.Marshal(report)
		if err != nil {
			s.Logger.Warn(err)
			continue
		}
		copybuf.WriteString(report.Datetime)
		copybuf.WriteString("\t")
		copybuf.Write(payload)
		copybuf.WriteString("\n")
		cnt++
		if cnt%s.ChunkSize == 0 {
			s.copy(ctx, &copybuf, cnt)
			copybuf.Reset()
			cnt = 0
		}
	}
	if cnt > 0 {
		s.copy(ctx, &copybuf, cnt)
	}
}

// Run starts a PostgresSlurper.
func (s *PostgresSlurper) Run(ctx context.Context, reportchan chan types.HourReport) {
	s.done = make(chan struct{})
	go s.slurpPostgres(ctx, reportchan)
}

// Finish waits for all pending reports to be copied and closes the pool.
func (s *PostgresSlurper) Finish() {
	if s.done != nil {
		<-s.done
	}
	if s.DB != nil {
		s.DB.Close()
	}
}
