package postgres

var schema = []string{
	`CREATE TABLE IF NOT EXISTS factors (
		key          TEXT PRIMARY KEY,
		name         TEXT NOT NULL DEFAULT '',
		volatility   TEXT NOT NULL,
		ttl_seconds  BIGINT NOT NULL DEFAULT 0,
		weight       DOUBLE PRECISION NOT NULL,
		instructions TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS skills (
		key      TEXT PRIMARY KEY,
		name     TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS skill_prerequisites (
		skill        TEXT NOT NULL REFERENCES skills(key) ON DELETE CASCADE,
		prerequisite TEXT NOT NULL REFERENCES skills(key),
		PRIMARY KEY (skill, prerequisite)
	)`,
	`CREATE TABLE IF NOT EXISTS learnings (
		skill   TEXT PRIMARY KEY,
		status  TEXT NOT NULL,
		ease    INTEGER,
		demand  INTEGER,
		passion INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS roles (
		name   TEXT PRIMARY KEY,
		entity TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS role_requirements (
		role  TEXT NOT NULL REFERENCES roles(name) ON DELETE CASCADE,
		skill TEXT NOT NULL,
		level TEXT NOT NULL,
		pos   INTEGER NOT NULL,
		PRIMARY KEY (role, skill)
	)`,
	`CREATE TABLE IF NOT EXISTS research_findings (
		entity      TEXT NOT NULL,
		factor      TEXT NOT NULL,
		score       INTEGER NOT NULL CHECK (score BETWEEN 1 AND 10),
		evidence    TEXT NOT NULL DEFAULT '',
		source      TEXT NOT NULL DEFAULT '',
		captured_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (entity, factor)
	)`,
	`CREATE TABLE IF NOT EXISTS desirability_scores (
		entity     TEXT PRIMARY KEY,
		payload    JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS gap_reports (
		role       TEXT PRIMARY KEY,
		payload    JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}
