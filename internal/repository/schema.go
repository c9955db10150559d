package repository

// SchemaStatements creates the election tables. Every statement is
// idempotent so the migration can be re-run.
var SchemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS voters (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		reg_no VARCHAR(20) NOT NULL,
		token UUID NOT NULL,
		has_voted BOOLEAN NOT NULL DEFAULT false,
		voted_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT ` + ConstraintVoterRegNo + ` UNIQUE (reg_no),
		CONSTRAINT ` + ConstraintVoterToken + ` UNIQUE (token),
		CONSTRAINT voters_voted_at_check CHECK (has_voted = (voted_at IS NOT NULL))
	)`,

	`CREATE TABLE IF NOT EXISTS positions (
		id BIGSERIAL PRIMARY KEY,
		title VARCHAR(100) NOT NULL,
		description TEXT,
		start_time TIMESTAMPTZ,
		end_time TIMESTAMPTZ,
		is_active BOOLEAN NOT NULL DEFAULT true,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT ` + ConstraintPositionTitle + ` UNIQUE (title)
	)`,

	`CREATE TABLE IF NOT EXISTS candidates (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		reg_no VARCHAR(20) NOT NULL,
		bio TEXT,
		photo_url TEXT,
		is_active BOOLEAN NOT NULL DEFAULT true,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS candidate_positions (
		candidate_id BIGINT NOT NULL REFERENCES candidates(id) ON DELETE CASCADE,
		position_id BIGINT NOT NULL REFERENCES positions(id) ON DELETE CASCADE,
		PRIMARY KEY (candidate_id, position_id)
	)`,

	`CREATE TABLE IF NOT EXISTS votes (
		id BIGSERIAL PRIMARY KEY,
		voter_id BIGINT NOT NULL REFERENCES voters(id) ON DELETE CASCADE,
		position_id BIGINT NOT NULL REFERENCES positions(id) ON DELETE CASCADE,
		candidate_id BIGINT NOT NULL REFERENCES candidates(id) ON DELETE CASCADE,
		voted_at TIMESTAMPTZ NOT NULL,
		ip_address INET,
		CONSTRAINT ` + ConstraintVoteVoterPosition + ` UNIQUE (voter_id, position_id),
		CONSTRAINT ` + ConstraintVoteCandidateLink + ` FOREIGN KEY (candidate_id, position_id)
			REFERENCES candidate_positions(candidate_id, position_id) ON DELETE CASCADE
	)`,

	`CREATE TABLE IF NOT EXISTS election_settings (
		id SMALLINT PRIMARY KEY CHECK (id = 1),
		election_title VARCHAR(200) NOT NULL,
		election_description TEXT,
		is_election_active BOOLEAN NOT NULL DEFAULT true,
		show_live_results BOOLEAN NOT NULL DEFAULT true,
		results_refresh_interval INTEGER NOT NULL DEFAULT 30 CHECK (results_refresh_interval >= 1),
		technical_head_email VARCHAR(254),
		audit_password_hash TEXT NOT NULL,
		audit_access_code VARCHAR(100) NOT NULL,
		voting_start_time TIMESTAMPTZ,
		voting_end_time TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT election_settings_window_check CHECK (
			voting_end_time IS NULL OR voting_start_time IS NULL OR voting_end_time > voting_start_time
		)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_votes_position_candidate ON votes(position_id, candidate_id)`,
	`CREATE INDEX IF NOT EXISTS idx_votes_voted_at ON votes(voted_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_candidate_positions_position ON candidate_positions(position_id)`,
	`CREATE INDEX IF NOT EXISTS idx_voters_has_voted ON voters(has_voted)`,
	`CREATE INDEX IF NOT EXISTS idx_candidates_reg_no ON candidates(reg_no)`,
}

// DropStatements removes every election table, dependents first.
var DropStatements = []string{
	`DROP TABLE IF EXISTS votes CASCADE`,
	`DROP TABLE IF EXISTS candidate_positions CASCADE`,
	`DROP TABLE IF EXISTS candidates CASCADE`,
	`DROP TABLE IF EXISTS positions CASCADE`,
	`DROP TABLE IF EXISTS voters CASCADE`,
	`DROP TABLE IF EXISTS election_settings CASCADE`,
}
