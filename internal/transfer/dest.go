package transfer

import (
	"context"
	"fmt"

	"github.com/sqlferry/sqlferry/internal/driver"
)

// SessionDest adapts a live destination session to the Dest contract.
type SessionDest struct {
	sess driver.Session
}

// NewSessionDest wraps a destination session.
func NewSessionDest(sess driver.Session) *SessionDest {
	return &SessionDest{sess: sess}
}

// ApplySchema drops and recreates the table on the destination.
func (s *SessionDest) ApplySchema(ctx context.Context, table, dropStmt, createStmt string) error {
	if dropStmt != "" {
		if err := s.sess.Execute(ctx, dropStmt); err != nil {
			return fmt.Errorf("dropping %s: %w", table, err)
		}
	}
	if createStmt != "" {
		if err := s.sess.Execute(ctx, createStmt); err != nil {
			return fmt.Errorf("creating %s: %w", table, err)
		}
	}
	return nil
}

// BeginTableData is a no-op for live sessions.
func (s *SessionDest) BeginTableData(ctx context.Context, table string, approxRows int64) error {
	return nil
}

// InsertBatch writes the rows through the session.
func (s *SessionDest) InsertBatch(ctx context.Context, table string, columns []string, rows [][]driver.Value) error {
	return s.sess.InsertBatch(ctx, table, columns, rows)
}
