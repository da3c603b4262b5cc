// Package postgres stores conversation travel state in PostgreSQL.
package postgres

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"github.com/aretw0/tripgate/pkg/domain"
	"github.com/aretw0/tripgate/pkg/ports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrations embed.FS

const columns = `conversation_id, user_id, current_revision_id, trip_profile_json,
	current_itinerary_json, last_user_query, created_at, updated_at`

// StateStore implements ports.StateStore on a pgx pool.
type StateStore struct {
	db *pgxpool.Pool
}

var _ ports.StateStore = (*StateStore)(nil)

// NewPool opens a connection pool for dsn.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	return pgxpool.New(ctx, dsn)
}

// NewStateStore returns a StateStore backed by the given pool.
func NewStateStore(db *pgxpool.Pool) *StateStore {
	return &StateStore{db: db}
}

// Migrate applies the embedded migrations in file name order. Every migration is idempotent.
func (s *StateStore) Migrate(ctx context.Context) error {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, name := range names {
		sql, err := migrations.ReadFile(name)
		if err != nil {
			return err
		}
		// Without arguments pgx uses the simple protocol, which accepts several statements.
		if _, err := s.db.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("failed to apply %s: %w", name, err)
		}
	}
	return nil
}

func (s *StateStore) Get(ctx context.Context, conversationID string) (*domain.ConversationState, error) {
	row := s.db.QueryRow(ctx, `SELECT `+columns+` FROM travel_conversation_states WHERE conversation_id = $1`, conversationID)
	state, err := scanState(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrStateNotFound
	}
	return state, err
}

func (s *StateStore) Upsert(ctx context.Context, conversationID string, u domain.StateUpdate) (*domain.ConversationState, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO travel_conversation_states AS t
			(conversation_id, user_id, current_revision_id, trip_profile_json, current_itinerary_json, last_user_query)
		VALUES ($1, $2, $3, $4::jsonb, $5::jsonb, $6)
		ON CONFLICT (conversation_id) DO UPDATE SET
			user_id                = COALESCE(EXCLUDED.user_id, t.user_id),
			current_revision_id    = COALESCE(EXCLUDED.current_revision_id, t.current_revision_id),
			trip_profile_json      = COALESCE(EXCLUDED.trip_profile_json, t.trip_profile_json),
			current_itinerary_json = COALESCE(EXCLUDED.current_itinerary_json, t.current_itinerary_json),
			last_user_query        = COALESCE(EXCLUDED.last_user_query, t.last_user_query),
			updated_at             = now()
		RETURNING `+columns,
		conversationID, u.UserID, u.CurrentRevisionID, jsonArg(u.TripProfile), jsonArg(u.CurrentItinerary), u.LastUserQuery,
	)
	state, err := scanState(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert conversation state: %w", err)
	}
	return state, nil
}

func (s *StateStore) Reset(ctx context.Context, conversationID string, userID *int64, lastQuery *string) (*domain.ConversationState, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO travel_conversation_states AS t (conversation_id, user_id, last_user_query)
		VALUES ($1, $2, $3)
		ON CONFLICT (conversation_id) DO UPDATE SET
			user_id                = COALESCE(EXCLUDED.user_id, t.user_id),
			current_revision_id    = NULL,
			trip_profile_json      = NULL,
			current_itinerary_json = NULL,
			last_user_query        = COALESCE(EXCLUDED.last_user_query, t.last_user_query),
			updated_at             = now()
		RETURNING `+columns,
		conversationID, userID, lastQuery,
	)
	state, err := scanState(row)
	if err != nil {
		return nil, fmt.Errorf("failed to reset conversation state: %w", err)
	}
	return state, nil
}

// Close closes the pool.
func (s *StateStore) Close() {
	s.db.Close()
}

func scanState(row pgx.Row) (*domain.ConversationState, error) {
	var (
		st        domain.ConversationState
		profile   []byte
		itinerary []byte
	)
	err := row.Scan(
		&st.ConversationID,
		&st.UserID,
		&st.CurrentRevisionID,
		&profile,
		&itinerary,
		&st.LastUserQuery,
		&st.CreatedAt,
		&st.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	st.TripProfile = json.RawMessage(profile)
	st.CurrentItinerary = json.RawMessage(itinerary)
	return &st, nil
}

// jsonArg passes nil documents as SQL NULL.
func jsonArg(raw json.RawMessage) any {
	if raw == nil {
		return nil
	}
	return string(raw)
}
