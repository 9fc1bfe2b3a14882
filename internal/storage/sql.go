package storage

import (
	_ "embed"
)

//go:embed schema.sql
var initSchemaSQL string

const (
	initIndexesSQL = `
CREATE INDEX IF NOT EXISTS idx_samples_session_time ON samples (session_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_samples_session_band ON samples (session_id, band, timestamp);`

	insertSessionSQL = `
INSERT INTO sessions (start_time,
                      device_id,
                      config)
VALUES (?, ?, ?)`

	selectSessionSQL = `
SELECT id,
       start_time,
       device_id,
       config
FROM sessions
WHERE id = ?`

	selectSessionsSQL = `
SELECT id,
       start_time,
       device_id,
       config
FROM sessions
ORDER BY start_time, id`

	insertSampleSQL = `
INSERT INTO samples (session_id,
                     cycle,
                     timestamp,
                     band,
                     level,
                     heading,
                     heading_status,
                     packet)
VALUES `

	selectSampleStatsSQL = `
SELECT COUNT(*),
       MIN(timestamp),
       MAX(timestamp),
       MIN(level),
       MAX(level)
FROM samples
WHERE session_id = ?1
  AND (?2 IS NULL OR band = ?2)`

	selectSamplesSQL = `
SELECT cycle,
       timestamp,
       band,
       level,
       heading,
       heading_status
FROM samples
WHERE session_id = ?1
  AND timestamp BETWEEN ?2 AND ?3
  AND (?4 IS NULL OR band = ?4)
ORDER BY timestamp, band`
)
