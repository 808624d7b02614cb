package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/moodlog/internal/models"
	"github.com/julianstephens/moodlog/internal/storage"
)

const recordColumns = `id, slot, mood_score, latitude, longitude, duration_seconds,
	video_path, status, remote_id, error, created_at, uploaded_at`

func (s *Store) AddRecord(r models.Record) error {
	_, err := s.db.Exec(`INSERT INTO records (`+recordColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		r.ID, r.Slot, r.MoodScore, nullFloat(r.Latitude), nullFloat(r.Longitude), r.DurationSeconds,
		r.VideoPath, r.Status, r.RemoteID, r.Error, r.CreatedAt.UTC(), nullTime(r.UploadedAt))
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

func (s *Store) UpdateRecord(r models.Record) error {
	res, err := s.db.Exec(`UPDATE records
		SET video_path = $1, status = $2, remote_id = $3, error = $4, uploaded_at = $5
		WHERE id = $6`,
		r.VideoPath, r.Status, r.RemoteID, r.Error, nullTime(r.UploadedAt), r.ID)
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrRecordNotFound
	}
	return nil
}

func (s *Store) GetRecord(id string) (models.Record, error) {
	r, err := scanRecord(s.db.QueryRow("SELECT "+recordColumns+" FROM records WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Record{}, storage.ErrRecordNotFound
	}
	return r, err
}

func (s *Store) ListRecords(status string) ([]models.Record, error) {
	query := "SELECT " + recordColumns + " FROM records"
	var args []interface{}
	if status != "" {
		query += " WHERE status = $1"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *Store) ClearRecords() (int, error) {
	res, err := s.db.Exec("DELETE FROM records")
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (models.Record, error) {
	var r models.Record
	var lat, lng sql.NullFloat64
	var uploadedAt sql.NullTime
	if err := row.Scan(&r.ID, &r.Slot, &r.MoodScore, &lat, &lng, &r.DurationSeconds,
		&r.VideoPath, &r.Status, &r.RemoteID, &r.Error, &r.CreatedAt, &uploadedAt); err != nil {
		return models.Record{}, err
	}
	if lat.Valid {
		r.Latitude = &lat.Float64
	}
	if lng.Valid {
		r.Longitude = &lng.Float64
	}
	if uploadedAt.Valid {
		r.UploadedAt = &uploadedAt.Time
	}
	return r, nil
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
