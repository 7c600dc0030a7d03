package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/cv-builder/internal/types"
)

// Document is an archived generated CV.
type Document struct {
	ID        uuid.UUID    `json:"id"`
	SessionID string       `json:"session_id"`
	Language  string       `json:"language"`
	State     *types.State `json:"state"`
	Output    string       `json:"output"`
	CreatedAt time.Time    `json:"created_at"`
}

// ArchiveDocument stores the state a document was generated from, together
// with the reply that announced it.
func (db *DB) ArchiveDocument(ctx context.Context, sessionID string, st *types.State) (uuid.UUID, error) {
	stateJSON, err := json.Marshal(st)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal state: %w", err)
	}

	id := uuid.New()
	_, err = db.pool.Exec(ctx,
		`INSERT INTO cv_documents (id, session_id, language, state, output)
		 VALUES ($1, $2, $3, $4, $5)`,
		id, sessionID, string(st.Language), stateJSON, st.CVOutput,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to archive document: %w", err)
	}
	return id, nil
}

// GetDocument retrieves an archived document by id. It returns nil when none exists.
func (db *DB) GetDocument(ctx context.Context, id uuid.UUID) (*Document, error) {
	var (
		doc       Document
		stateJSON []byte
	)
	err := db.pool.QueryRow(ctx,
		`SELECT id, session_id, language, state, output, created_at
		 FROM cv_documents WHERE id = $1`,
		id,
	).Scan(&doc.ID, &doc.SessionID, &doc.Language, &stateJSON, &doc.Output, &doc.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	if err := decodeState(stateJSON, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListDocuments returns a session's documents, newest first.
func (db *DB) ListDocuments(ctx context.Context, sessionID string, limit int) ([]Document, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, session_id, language, state, output, created_at
		 FROM cv_documents WHERE session_id = $1
		 ORDER BY created_at DESC LIMIT $2`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			doc       Document
			stateJSON []byte
		)
		if err := rows.Scan(&doc.ID, &doc.SessionID, &doc.Language, &stateJSON, &doc.Output, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		if err := decodeState(stateJSON, &doc); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return docs, nil
}

func decodeState(data []byte, doc *Document) error {
	var st types.State
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("failed to unmarshal document state: %w", err)
	}
	doc.State = &st
	return nil
}
