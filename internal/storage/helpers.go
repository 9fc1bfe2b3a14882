package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roman-kulish/rf-relay/internal/spectrum"
)

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if rbErr := rb.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone && *err == nil {
		*err = rbErr
	}
}

func toUnixMilli(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromUnixMilli(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func toConfigData(config any) (sql.NullString, error) {
	switch v := config.(type) {
	case nil:
		return sql.NullString{}, nil
	case string:
		return sql.NullString{String: v, Valid: true}, nil
	case []byte:
		return sql.NullString{String: string(v), Valid: true}, nil
	default:
		p, err := json.Marshal(v)
		if err != nil {
			return sql.NullString{}, fmt.Errorf("marshaling config: %w", err)
		}
		return sql.NullString{String: string(p), Valid: true}, nil
	}
}

func toSampleData(sessionID int64, cycle uint64, s spectrum.ScanSample, p spectrum.TelemetryPacket) (sampleData, error) {
	packet, err := p.MarshalBinary()
	if err != nil {
		return sampleData{}, err
	}
	return sampleData{
		SessionID:     sessionID,
		Cycle:         cycle,
		Timestamp:     toUnixMilli(s.Timestamp),
		Band:          uint8(s.Band),
		Level:         s.Level,
		Heading:       s.Heading,
		HeadingStatus: uint8(s.HeadingStatus),
		Packet:        packet,
	}, nil
}

func (d sessionData) toSession() *spectrum.ScanSession {
	sess := &spectrum.ScanSession{
		ID:        d.ID,
		StartTime: fromUnixMilli(d.StartTime),
		DeviceID:  d.DeviceID,
	}
	if d.Config.Valid {
		sess.Config = &d.Config.String
	}
	return sess
}
