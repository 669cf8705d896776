package db

// DCSO MTUCORR
// Copyright (c) 2024, DCSO GmbH

// DefaultReportTable is the default name of the table holding hourly reports.
const DefaultReportTable = "mtu_reports"

// SQLCreate is an SQL/DDL clause to create the report table and its index.
const SQLCreate = `CREATE TABLE IF NOT EXISTS "%s"
  (ts timestamp without time zone,
   payload jsonb);
CREATE INDEX IF NOT EXISTS "%s_ts" ON "%s" (ts);
GRANT ALL PRIVILEGES ON TABLE "%s" to %s;`

// SQLCopy is an SQL/DDL clause to bulk insert a chunk of JSON reports into
// the database
const SQLCopy = `COPY "%s" (ts, payload) FROM STDIN WITH CSV DELIMITER E'\t' QUOTE E'\b'`
