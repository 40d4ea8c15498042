package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Sessions table - one row per analysis session
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			side TEXT NOT NULL CHECK(side IN ('left', 'right', 'auto')),
			reps INTEGER NOT NULL DEFAULT 0,
			invalid_reps INTEGER NOT NULL DEFAULT 0,
			started_at DATETIME NOT NULL,
			ended_at DATETIME
		)`,

		// Reps table - every completed swing, valid or not
		`CREATE TABLE IF NOT EXISTS reps (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			valid INTEGER NOT NULL,
			hip_angle INTEGER NOT NULL,
			knee_angle INTEGER NOT NULL,
			created_at DATETIME NOT NULL
		)`,

		// Settings table - key-value pairs such as the tuning override
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_reps_session_id ON reps(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
