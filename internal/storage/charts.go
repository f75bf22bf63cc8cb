package storage

import "time"

// ChartRecord indexes one generated Chart document so the CLI and
// background workers can answer "what charts exist for this folder"
// without a directory walk.
type ChartRecord struct {
	ID          int64
	ContentHash string
	Difficulty  string
	AudioPath   string
	CachePath   string
	AudioMtime  time.Time
	BPM         int
	NoteCount   int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// UpsertChart records or refreshes the index entry for a generated
// Chart, keyed by (content_hash, difficulty).
func (d *DB) UpsertChart(r *ChartRecord) (int64, error) {
	res, err := d.db.Exec(`
		INSERT INTO charts (content_hash, difficulty, audio_path, cache_path, audio_mtime, bpm, note_count, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(content_hash, difficulty) DO UPDATE SET
			audio_path = excluded.audio_path,
			cache_path = excluded.cache_path,
			audio_mtime = excluded.audio_mtime,
			bpm = excluded.bpm,
			note_count = excluded.note_count,
			updated_at = CURRENT_TIMESTAMP
	`, r.ContentHash, r.Difficulty, r.AudioPath, r.CachePath, r.AudioMtime, r.BPM, r.NoteCount)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetChart looks up the index entry for an audio content hash and
// difficulty.
func (d *DB) GetChart(contentHash, difficulty string) (*ChartRecord, error) {
	r := &ChartRecord{}
	var audioMtime, createdAt, updatedAt string

	row := d.db.QueryRow(`
		SELECT id, content_hash, difficulty, audio_path, cache_path, audio_mtime, bpm, note_count, created_at, updated_at
		FROM charts WHERE content_hash = ? AND difficulty = ?
	`, contentHash, difficulty)

	if err := row.Scan(&r.ID, &r.ContentHash, &r.Difficulty, &r.AudioPath, &r.CachePath, &audioMtime, &r.BPM, &r.NoteCount, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	r.AudioMtime, _ = time.Parse(time.RFC3339, audioMtime)
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	r.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return r, nil
}

// ListChartsForAudio returns every difficulty indexed for one audio
// path.
func (d *DB) ListChartsForAudio(audioPath string) ([]*ChartRecord, error) {
	rows, err := d.db.Query(`
		SELECT id, content_hash, difficulty, audio_path, cache_path, audio_mtime, bpm, note_count, created_at, updated_at
		FROM charts WHERE audio_path = ? ORDER BY difficulty ASC
	`, audioPath)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ChartRecord
	for rows.Next() {
		r := &ChartRecord{}
		var audioMtime, createdAt, updatedAt string
		if err := rows.Scan(&r.ID, &r.ContentHash, &r.Difficulty, &r.AudioPath, &r.CachePath, &audioMtime, &r.BPM, &r.NoteCount, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		r.AudioMtime, _ = time.Parse(time.RFC3339, audioMtime)
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		r.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteChart removes the index entry for a content hash and
// difficulty, returning sql.ErrNoRows-free success even if absent.
func (d *DB) DeleteChart(contentHash, difficulty string) error {
	_, err := d.db.Exec(`DELETE FROM charts WHERE content_hash = ? AND difficulty = ?`, contentHash, difficulty)
	return err
}
