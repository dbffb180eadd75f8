package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"medical-voice-agent/pkg"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no session matches the given session id.
var ErrNotFound = errors.New("db: session not found")

const sessionColumns = `id, session_id, notes, selected_doctor, conversation, report, created_by, created_on`

// Repository wraps database operations for consultation sessions.
type Repository struct {
	DB *sql.DB
}

// NewRepository constructs a new Repository from an existing sql.DB.
// The caller is responsible for managing the DB connection lifecycle.
func NewRepository(db *sql.DB) *Repository { return &Repository{DB: db} }

// CreateSession stores a new session for the selected doctor under a fresh
// UUID session id.
func (r *Repository) CreateSession(ctx context.Context, notes string, doctor pkg.Doctor, createdBy string) (*pkg.SessionDetail, error) {
	doc, err := json.Marshal(doctor)
	if err != nil {
		return nil, fmt.Errorf("encode doctor: %w", err)
	}
	row := r.DB.QueryRowContext(ctx,
		`INSERT INTO session_chats (session_id, notes, selected_doctor, created_by)
         VALUES ($1, $2, $3, $4)
         RETURNING `+sessionColumns,
		uuid.NewString(), notes, doc, createdBy,
	)
	return scanSession(row)
}

// GetSession returns the session with the given session id.
func (r *Repository) GetSession(ctx context.Context, sessionID string) (*pkg.SessionDetail, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return nil, ErrNotFound
	}
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+sessionColumns+`
         FROM session_chats
         WHERE session_id = $1`, sessionID)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

// ListSessions returns every session, newest first.
func (r *Repository) ListSessions(ctx context.Context) ([]pkg.SessionDetail, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+sessionColumns+`
         FROM session_chats
         ORDER BY created_on DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	sessions := []pkg.SessionDetail{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// SaveReport stores the normalized report and the conversation it was
// generated from on the session row.
func (r *Repository) SaveReport(ctx context.Context, sessionID string, report *pkg.Report, conversation []pkg.Utterance) error {
	rep, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	conv, err := json.Marshal(conversation)
	if err != nil {
		return fmt.Errorf("encode conversation: %w", err)
	}
	if _, err := uuid.Parse(sessionID); err != nil {
		return ErrNotFound
	}
	res, err := r.DB.ExecContext(ctx,
		`UPDATE session_chats
         SET report = $1, conversation = $2
         WHERE session_id = $3`,
		rep, conv, sessionID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*pkg.SessionDetail, error) {
	var (
		s                    pkg.SessionDetail
		doctor, conv, report []byte
	)
	if err := row.Scan(&s.ID, &s.SessionID, &s.Notes, &doctor, &conv, &report, &s.CreatedBy, &s.CreatedOn); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(doctor, &s.SelectedDoctor); err != nil {
		return nil, fmt.Errorf("decode selected_doctor: %w", err)
	}
	if len(conv) > 0 {
		if err := json.Unmarshal(conv, &s.Conversation); err != nil {
			return nil, fmt.Errorf("decode conversation: %w", err)
		}
	}
	if len(report) > 0 && string(report) != "null" {
		s.Report = &pkg.Report{}
		if err := json.Unmarshal(report, s.Report); err != nil {
			return nil, fmt.Errorf("decode report: %w", err)
		}
	}
	return &s, nil
}
