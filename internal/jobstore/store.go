package jobstore

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store is the concurrency-safe Job persistence layer: the underlying
// *sql.DB already supports concurrent readers and serializes writers,
// satisfying §5's "concurrent readers and exclusive writers, single-
// writer semantics per row" requirement without an extra lock layer.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the sqlite database at path and
// applies the additive migration set.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open jobstore: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate jobstore: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// Insert persists a newly created job.
func (s *Store) Insert(j *Job) error {
	_, err := s.db.Exec(`
		INSERT INTO jobs (
			id, kind, state, filename, file_size, file_data,
			payment_address, payment_wif, required_satoshis, admin_paid,
			manifest_txid, download_link, message, progress,
			created_at, updated_at, network,
			track_title, artist, cover_data, cover_txid, lyrics
		) VALUES (?,?,?,?,?,?, ?,?,?,?, ?,?,?,?, ?,?,?, ?,?,?,?,?)`,
		j.ID, string(j.Kind), string(j.State), j.Filename, j.FileSize, j.FileData,
		j.PaymentAddress, j.PaymentWIF, j.RequiredSatoshis, j.AdminPaid,
		j.ManifestTxid, j.DownloadLink, j.Message, j.Progress,
		j.CreatedAt, j.UpdatedAt, j.Network,
		j.TrackTitle, j.Artist, j.CoverData, j.CoverTxid, j.Lyrics,
	)
	return err
}

// Get looks up a job by id. ok is false when no such job exists.
func (s *Store) Get(id string) (*Job, bool, error) {
	row := s.db.QueryRow(`
		SELECT id, kind, state, filename, file_size, file_data,
		       payment_address, payment_wif, required_satoshis, admin_paid,
		       manifest_txid, download_link, message, progress,
		       created_at, updated_at, network,
		       track_title, artist, cover_data, cover_txid, lyrics
		FROM jobs WHERE id = ?`, id)
	j, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return j, true, nil
}

// ListByState returns every job currently in state.
func (s *Store) ListByState(state State) ([]*Job, error) {
	rows, err := s.db.Query(`
		SELECT id, kind, state, filename, file_size, file_data,
		       payment_address, payment_wif, required_satoshis, admin_paid,
		       manifest_txid, download_link, message, progress,
		       created_at, updated_at, network,
		       track_title, artist, cover_data, cover_txid, lyrics
		FROM jobs WHERE state = ?`, string(state))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// UpdateProgress advances a job's message/progress without changing state.
func (s *Store) UpdateProgress(id string, progress float64, message string) error {
	_, err := s.db.Exec(`UPDATE jobs SET progress=?, message=?, updated_at=? WHERE id=?`,
		progress, message, time.Now(), id)
	return err
}

// UpdateState transitions a job's state (e.g. AwaitingPayment -> Processing).
func (s *Store) UpdateState(id string, state State, message string) error {
	_, err := s.db.Exec(`UPDATE jobs SET state=?, message=?, updated_at=? WHERE id=?`,
		string(state), message, time.Now(), id)
	return err
}

// CompleteUpload marks an upload job Complete with its manifest txid.
func (s *Store) CompleteUpload(id, manifestTxid string) error {
	_, err := s.db.Exec(`
		UPDATE jobs SET state=?, manifest_txid=?, progress=100, message=?, updated_at=?
		WHERE id=?`,
		string(StateComplete), manifestTxid, "upload complete", time.Now(), id)
	return err
}

// CompleteDownload marks a download job Complete with its retrieval link.
func (s *Store) CompleteDownload(id, downloadLink, filename, title, artist, coverTxid, lyrics string) error {
	_, err := s.db.Exec(`
		UPDATE jobs SET state=?, download_link=?, filename=?, progress=100, message=?,
		       track_title=?, artist=?, cover_txid=?, lyrics=?, updated_at=?
		WHERE id=?`,
		string(StateComplete), downloadLink, filename, "download complete",
		title, artist, coverTxid, lyrics, time.Now(), id)
	return err
}

// UpdateError moves a job to Failed with a diagnostic message. Progress
// is left untouched, frozen at its last recorded value per §7.
func (s *Store) UpdateError(id, message string) error {
	_, err := s.db.Exec(`UPDATE jobs SET state=?, message=?, updated_at=? WHERE id=?`,
		string(StateFailed), message, time.Now(), id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var j Job
	var kind, state string
	if err := row.Scan(
		&j.ID, &kind, &state, &j.Filename, &j.FileSize, &j.FileData,
		&j.PaymentAddress, &j.PaymentWIF, &j.RequiredSatoshis, &j.AdminPaid,
		&j.ManifestTxid, &j.DownloadLink, &j.Message, &j.Progress,
		&j.CreatedAt, &j.UpdatedAt, &j.Network,
		&j.TrackTitle, &j.Artist, &j.CoverData, &j.CoverTxid, &j.Lyrics,
	); err != nil {
		return nil, err
	}
	j.Kind = Kind(kind)
	j.State = State(state)
	return &j, nil
}
