package repository

import "class-election/pkg/database"

// NewPostgresRepositories wires every repository to the same pool.
func NewPostgresRepositories(db *database.PostgresDB) *Repositories {
	return &Repositories{
		Voters:     NewVoterRepository(db),
		Positions:  NewPositionRepository(db),
		Candidates: NewCandidateRepository(db),
		Votes:      NewVoteRepository(db),
		Ballots:    NewBallotStore(db),
		Settings:   NewSettingsRepository(db),
	}
}
