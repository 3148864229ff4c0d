package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"autoresearch/pkg/model"
	"autoresearch/pkg/utils"
)

// SQLiteDocumentStore is the DocumentStore implementation backed by
// SQLite: one table per record kind, with the secondary indexes the
// query methods need (session id + timestamp on episodes; category,
// confidence, last_accessed on facts; strategy name, success rate on
// strategies).
type SQLiteDocumentStore struct {
	db *sql.DB
}

// NewSQLiteDocumentStore opens (creating if needed) the SQLite file at
// path and initializes the schema.
func NewSQLiteDocumentStore(path string) (*SQLiteDocumentStore, error) {
	if path == "" {
		return nil, fmt.Errorf("store: sqlite path cannot be empty")
	}
	if err := utils.EnsureParentDir(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite at %s: %w", path, err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping sqlite: %w", err)
	}

	s := &SQLiteDocumentStore{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteDocumentStore) initSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	user_id TEXT,
	topic TEXT,
	data TEXT NOT NULL,
	status TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);
CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id);

CREATE TABLE IF NOT EXISTS episodes (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	data TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	tags TEXT
);
CREATE INDEX IF NOT EXISTS idx_episodes_session ON episodes(session_id);
CREATE INDEX IF NOT EXISTS idx_episodes_created ON episodes(created_at);

CREATE TABLE IF NOT EXISTS facts (
	id TEXT PRIMARY KEY,
	category TEXT NOT NULL,
	content TEXT NOT NULL,
	confidence REAL NOT NULL,
	last_accessed DATETIME NOT NULL,
	data TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_facts_category ON facts(category);
CREATE INDEX IF NOT EXISTS idx_facts_confidence ON facts(confidence);
CREATE INDEX IF NOT EXISTS idx_facts_last_accessed ON facts(last_accessed);

CREATE TABLE IF NOT EXISTS strategies (
	id TEXT PRIMARY KEY,
	strategy_name TEXT NOT NULL,
	success_rate REAL NOT NULL,
	data TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_strategies_name ON strategies(strategy_name);
CREATE INDEX IF NOT EXISTS idx_strategies_success ON strategies(success_rate);

CREATE TABLE IF NOT EXISTS feedback (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	data TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_feedback_session ON feedback(session_id);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("store: init schema: %w", err)
	}
	return nil
}

func (s *SQLiteDocumentStore) Close() error { return s.db.Close() }

// --- sessions ---

func (s *SQLiteDocumentStore) CreateSession(ctx context.Context, sess *model.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("store: marshal session: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, topic, data, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.UserID, sess.Topic, data, sess.Status, sess.CreatedAt, sess.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: create session %s: %w", sess.ID, err)
	}
	return nil
}

func (s *SQLiteDocumentStore) GetSession(ctx context.Context, id string) (*model.Session, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM sessions WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Kind: "session", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("store: get session %s: %w", id, err)
	}
	var sess model.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("store: decode session %s: %w", id, err)
	}
	return &sess, nil
}

func (s *SQLiteDocumentStore) ListSessions(ctx context.Context, filter SessionFilter) ([]*model.Session, error) {
	query := `SELECT data FROM sessions WHERE 1=1`
	var args []interface{}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.UserID != "" {
		query += ` AND user_id = ?`
		args = append(args, filter.UserID)
	}
	if filter.Since != nil {
		query += ` AND created_at >= ?`
		args = append(args, *filter.Since)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list sessions: %w", err)
	}
	defer rows.Close()

	var out []*model.Session
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("store: scan session row: %w", err)
		}
		var sess model.Session
		if err := json.Unmarshal(data, &sess); err != nil {
			return nil, fmt.Errorf("store: decode session row: %w", err)
		}
		out = append(out, &sess)
	}
	return out, rows.Err()
}

func (s *SQLiteDocumentStore) UpdateSession(ctx context.Context, sess *model.Session) error {
	sess.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("store: marshal session: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET data = ?, status = ?, updated_at = ? WHERE id = ?`,
		data, sess.Status, sess.UpdatedAt, sess.ID)
	if err != nil {
		return fmt.Errorf("store: update session %s: %w", sess.ID, err)
	}
	return requireAffected(res, "session", sess.ID)
}

func (s *SQLiteDocumentStore) DeleteSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete session %s: %w", id, err)
	}
	return requireAffected(res, "session", id)
}

// --- episodes ---

func (s *SQLiteDocumentStore) StoreEpisode(ctx context.Context, e *model.EpisodicMemory) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("store: marshal episode: %w", err)
	}
	tags, _ := json.Marshal(e.Tags)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO episodes (id, session_id, data, created_at, tags) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET data=excluded.data`,
		e.ID, e.SessionID, data, e.CreatedAt, tags)
	if err != nil {
		return fmt.Errorf("store: store episode %s: %w", e.ID, err)
	}
	return nil
}

func (s *SQLiteDocumentStore) GetEpisode(ctx context.Context, id string) (*model.EpisodicMemory, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM episodes WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Kind: "episode", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("store: get episode %s: %w", id, err)
	}
	var e model.EpisodicMemory
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("store: decode episode %s: %w", id, err)
	}
	return &e, nil
}

func (s *SQLiteDocumentStore) GetEpisodesBySession(ctx context.Context, sessionID string) ([]*model.EpisodicMemory, error) {
	return s.queryEpisodes(ctx, `SELECT data FROM episodes WHERE session_id = ? ORDER BY created_at ASC`, sessionID)
}

func (s *SQLiteDocumentStore) QueryEpisodesByTag(ctx context.Context, tag string) ([]*model.EpisodicMemory, error) {
	return s.queryEpisodes(ctx, `SELECT data FROM episodes WHERE tags LIKE ? ORDER BY created_at DESC`, "%\""+tag+"\"%")
}

func (s *SQLiteDocumentStore) QueryEpisodesSince(ctx context.Context, since time.Time) ([]*model.EpisodicMemory, error) {
	return s.queryEpisodes(ctx, `SELECT data FROM episodes WHERE created_at >= ? ORDER BY created_at DESC`, since)
}

func (s *SQLiteDocumentStore) queryEpisodes(ctx context.Context, query string, arg interface{}) ([]*model.EpisodicMemory, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("store: query episodes: %w", err)
	}
	defer rows.Close()

	var out []*model.EpisodicMemory
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("store: scan episode row: %w", err)
		}
		var e model.EpisodicMemory
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("store: decode episode row: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (s *SQLiteDocumentStore) DeleteEpisode(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM episodes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete episode %s: %w", id, err)
	}
	return requireAffected(res, "episode", id)
}

// --- facts ---

func (s *SQLiteDocumentStore) StoreFact(ctx context.Context, f *model.Fact) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("store: marshal fact: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO facts (id, category, content, confidence, last_accessed, data) VALUES (?, ?, ?, ?, ?, ?)`,
		f.ID, f.Category, f.Content, f.Confidence, f.LastAccessed, data)
	if err != nil {
		return fmt.Errorf("store: store fact %s: %w", f.ID, err)
	}
	return nil
}

func (s *SQLiteDocumentStore) UpdateFact(ctx context.Context, f *model.Fact) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("store: marshal fact: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE facts SET category=?, content=?, confidence=?, last_accessed=?, data=? WHERE id=?`,
		f.Category, f.Content, f.Confidence, f.LastAccessed, data, f.ID)
	if err != nil {
		return fmt.Errorf("store: update fact %s: %w", f.ID, err)
	}
	return requireAffected(res, "fact", f.ID)
}

func (s *SQLiteDocumentStore) GetFactsByCategory(ctx context.Context, category string) ([]*model.Fact, error) {
	return s.queryFacts(ctx, `SELECT data FROM facts WHERE category = ? ORDER BY confidence DESC`, category)
}

func (s *SQLiteDocumentStore) SearchFactsByText(ctx context.Context, prefix string) ([]*model.Fact, error) {
	return s.queryFacts(ctx, `SELECT data FROM facts WHERE content LIKE ? ORDER BY last_accessed DESC`, prefix+"%")
}

func (s *SQLiteDocumentStore) ListFacts(ctx context.Context) ([]*model.Fact, error) {
	return s.queryFacts(ctx, `SELECT data FROM facts ORDER BY last_accessed DESC`)
}

func (s *SQLiteDocumentStore) queryFacts(ctx context.Context, query string, args ...interface{}) ([]*model.Fact, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query facts: %w", err)
	}
	defer rows.Close()

	var out []*model.Fact
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("store: scan fact row: %w", err)
		}
		var f model.Fact
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("store: decode fact row: %w", err)
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}

func (s *SQLiteDocumentStore) DeleteFact(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM facts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete fact %s: %w", id, err)
	}
	return requireAffected(res, "fact", id)
}

// --- strategies ---

func (s *SQLiteDocumentStore) StoreStrategy(ctx context.Context, st *model.Strategy) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("store: marshal strategy: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO strategies (id, strategy_name, success_rate, data) VALUES (?, ?, ?, ?)`,
		st.ID, st.StrategyName, st.SuccessRate, data)
	if err != nil {
		return fmt.Errorf("store: store strategy %s: %w", st.ID, err)
	}
	return nil
}

func (s *SQLiteDocumentStore) UpdateStrategy(ctx context.Context, st *model.Strategy) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("store: marshal strategy: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE strategies SET strategy_name=?, success_rate=?, data=? WHERE id=?`,
		st.StrategyName, st.SuccessRate, data, st.ID)
	if err != nil {
		return fmt.Errorf("store: update strategy %s: %w", st.ID, err)
	}
	return requireAffected(res, "strategy", st.ID)
}

func (s *SQLiteDocumentStore) GetStrategy(ctx context.Context, id string) (*model.Strategy, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM strategies WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, &NotFoundError{Kind: "strategy", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("store: get strategy %s: %w", id, err)
	}
	var st model.Strategy
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("store: decode strategy %s: %w", id, err)
	}
	return &st, nil
}

func (s *SQLiteDocumentStore) ListStrategies(ctx context.Context) ([]*model.Strategy, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM strategies ORDER BY success_rate DESC`)
	if err != nil {
		return nil, fmt.Errorf("store: list strategies: %w", err)
	}
	defer rows.Close()

	var out []*model.Strategy
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("store: scan strategy row: %w", err)
		}
		var st model.Strategy
		if err := json.Unmarshal(data, &st); err != nil {
			return nil, fmt.Errorf("store: decode strategy row: %w", err)
		}
		out = append(out, &st)
	}
	return out, rows.Err()
}

func (s *SQLiteDocumentStore) RecordStrategyUse(ctx context.Context, id string, success bool, durationMS int64) error {
	st, err := s.GetStrategy(ctx, id)
	if err != nil {
		return err
	}

	const alpha = 0.2
	outcome := 0.0
	if success {
		outcome = 1.0
	}
	if st.TimesUsed == 0 {
		st.SuccessRate = outcome
	} else {
		st.SuccessRate = alpha*outcome + (1-alpha)*st.SuccessRate
	}
	st.AverageDuration = (st.AverageDuration*float64(st.TimesUsed) + float64(durationMS)) / float64(st.TimesUsed+1)
	st.TimesUsed++
	now := time.Now().UTC()
	st.LastUsed = &now

	return s.UpdateStrategy(ctx, st)
}

// --- feedback ---

func (s *SQLiteDocumentStore) StoreFeedback(ctx context.Context, f *model.Feedback) error {
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("store: marshal feedback: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO feedback (id, session_id, data, created_at) VALUES (?, ?, ?, ?)`,
		f.ID, f.SessionID, data, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: store feedback %s: %w", f.ID, err)
	}
	return nil
}

func (s *SQLiteDocumentStore) GetFeedbackBySession(ctx context.Context, sessionID string) ([]*model.Feedback, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM feedback WHERE session_id = ? ORDER BY created_at DESC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("store: query feedback: %w", err)
	}
	defer rows.Close()

	var out []*model.Feedback
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("store: scan feedback row: %w", err)
		}
		var f model.Feedback
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("store: decode feedback row: %w", err)
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}

func requireAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: rows affected for %s %s: %w", kind, id, err)
	}
	if n == 0 {
		return &NotFoundError{Kind: kind, ID: id}
	}
	return nil
}
