package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"rhythmcore/internal/analyzer"
)

// FeatureBlob caches an Analyser's onset envelope and spectral
// centroid under the audio file's content hash, content-addressed the
// same way the teacher cached waveform tiles, so re-running the
// Builder at a different difficulty never re-decodes or re-analyses
// the audio.
type FeatureBlob struct {
	Hash        string
	ContentHash string
	SampleRate  int
	Data        []byte
	Size        int
	CreatedAt   time.Time
}

// PutFeatures serialises Features to JSON and stores it content-
// addressed, returning the blob hash.
func (d *DB) PutFeatures(contentHash string, f *analyzer.Features) (string, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return "", err
	}
	hash := hashData(data)

	_, err = d.db.Exec(`
		INSERT OR IGNORE INTO feature_blobs (hash, content_hash, sample_rate, data, size)
		VALUES (?, ?, ?, ?, ?)
	`, hash, contentHash, f.SampleRate, data, len(data))
	if err != nil {
		return "", err
	}
	return hash, nil
}

// GetFeatures retrieves the most recently stored Features for a
// content hash; it returns sql.ErrNoRows if none is cached.
func (d *DB) GetFeatures(contentHash string) (*analyzer.Features, error) {
	row := d.db.QueryRow(`
		SELECT data FROM feature_blobs WHERE content_hash = ? ORDER BY created_at DESC LIMIT 1
	`, contentHash)

	var data []byte
	if err := row.Scan(&data); err != nil {
		return nil, err
	}

	var f analyzer.Features
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// DeleteFeaturesForContent deletes all cached feature blobs for a
// content hash.
func (d *DB) DeleteFeaturesForContent(contentHash string) error {
	_, err := d.db.Exec(`DELETE FROM feature_blobs WHERE content_hash = ?`, contentHash)
	return err
}

func hashData(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// ContentHash hashes raw audio bytes for use as the charts/feature_blobs
// key, the same content-addressing scheme the teacher used for tracks.
func ContentHash(data []byte) string {
	return hashData(data)
}
