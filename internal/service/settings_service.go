package service

import (
	"context"
	"crypto/subtle"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"class-election/internal/domain"
	"class-election/internal/repository"
	"class-election/pkg/errors"
	"class-election/pkg/logger"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"golang.org/x/crypto/bcrypt"
)

// SettingsUpdate carries the fields an auditor may change. Nil fields are
// left as they are.
type SettingsUpdate struct {
	ElectionTitle          *string    `json:"election_title"`
	ElectionDescription    *string    `json:"election_description"`
	IsElectionActive       *bool      `json:"is_election_active"`
	ShowLiveResults        *bool      `json:"show_live_results"`
	ResultsRefreshInterval *int       `json:"results_refresh_interval"`
	TechnicalHeadEmail     *string    `json:"technical_head_email"`
	VotingStartTime        *time.Time `json:"voting_start_time"`
	VotingEndTime          *time.Time `json:"voting_end_time"`
	ClearVotingWindow      bool       `json:"clear_voting_window"`
	AuditPassword          *string    `json:"audit_password"`
	AuditAccessCode        *string    `json:"audit_access_code"`
}

// Validate checks the update in isolation; the window is checked again
// after merging with the stored row.
func (u SettingsUpdate) Validate() error {
	return validation.ValidateStruct(&u,
		validation.Field(&u.ElectionTitle, validation.NilOrNotEmpty, validation.Length(1, 200)),
		validation.Field(&u.ResultsRefreshInterval, validation.By(positiveInterval), validation.Max(3600)),
		validation.Field(&u.TechnicalHeadEmail, is.Email),
		validation.Field(&u.AuditPassword, validation.NilOrNotEmpty, validation.Length(6, 128)),
		validation.Field(&u.AuditAccessCode, validation.NilOrNotEmpty, validation.Length(4, 64)),
	)
}

func positiveInterval(value interface{}) error {
	if v, ok := value.(*int); ok && v != nil && *v < 1 {
		return stderrors.New("must be at least 1 second")
	}
	return nil
}

// SettingsService reads and writes the single settings row. The row is
// created lazily with defaults the first time it is read.
type SettingsService struct {
	repo            repository.SettingsRepository
	defaultPassword string
	defaultCode     string
	logger          *logger.Logger

	once        sync.Once
	defaultHash string
	hashErr     error
}

// NewSettingsService creates a new settings service
func NewSettingsService(repo repository.SettingsRepository, defaultPassword, defaultCode string, log *logger.Logger) *SettingsService {
	return &SettingsService{
		repo:            repo,
		defaultPassword: defaultPassword,
		defaultCode:     defaultCode,
		logger:          log,
	}
}

func (s *SettingsService) defaults() (*domain.ElectionSettings, error) {
	s.once.Do(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte(s.defaultPassword), bcrypt.DefaultCost)
		s.defaultHash, s.hashErr = string(hash), err
	})
	if s.hashErr != nil {
		return nil, fmt.Errorf("hash default audit password: %w", s.hashErr)
	}
	return domain.DefaultSettings(s.defaultHash, s.defaultCode), nil
}

// Get returns the settings row.
func (s *SettingsService) Get(ctx context.Context) (*domain.ElectionSettings, error) {
	defaults, err := s.defaults()
	if err != nil {
		return nil, errors.NewInternalError("Failed to prepare default settings", err)
	}
	settings, err := s.repo.GetOrCreate(ctx, defaults)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load election settings")
		return nil, errors.NewInternalError("Failed to load election settings", err)
	}
	return settings, nil
}

// Status computes the voting status at now from the stored window.
func (s *SettingsService) Status(ctx context.Context, now time.Time) (domain.VotingStatus, *domain.ElectionSettings, error) {
	settings, err := s.Get(ctx)
	if err != nil {
		return domain.StatusNotConfigured, nil, err
	}
	return settings.StatusAt(now), settings, nil
}

// Update validates and applies the change, always writing row 1.
func (s *SettingsService) Update(ctx context.Context, update SettingsUpdate) (*domain.ElectionSettings, error) {
	if err := update.Validate(); err != nil {
		return nil, errors.FromValidation("Invalid settings", err)
	}

	settings, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}

	if update.ElectionTitle != nil {
		settings.ElectionTitle = strings.TrimSpace(*update.ElectionTitle)
	}
	if update.ElectionDescription != nil {
		settings.ElectionDescription = *update.ElectionDescription
	}
	if update.IsElectionActive != nil {
		settings.IsElectionActive = *update.IsElectionActive
	}
	if update.ShowLiveResults != nil {
		settings.ShowLiveResults = *update.ShowLiveResults
	}
	if update.ResultsRefreshInterval != nil {
		settings.ResultsRefreshInterval = *update.ResultsRefreshInterval
	}
	if update.TechnicalHeadEmail != nil {
		settings.TechnicalHeadEmail = strings.TrimSpace(*update.TechnicalHeadEmail)
	}
	if update.ClearVotingWindow {
		settings.VotingStartTime = nil
		settings.VotingEndTime = nil
	}
	if update.VotingStartTime != nil {
		start := update.VotingStartTime.UTC()
		settings.VotingStartTime = &start
	}
	if update.VotingEndTime != nil {
		end := update.VotingEndTime.UTC()
		settings.VotingEndTime = &end
	}
	if settings.VotingStartTime != nil && settings.VotingEndTime != nil &&
		!settings.VotingEndTime.After(*settings.VotingStartTime) {
		return nil, errors.NewValidationError("Invalid settings", map[string]interface{}{
			"voting_end_time": "must be after voting_start_time",
		})
	}
	if update.AuditPassword != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*update.AuditPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, errors.NewInternalError("Failed to hash audit password", err)
		}
		settings.AuditPasswordHash = string(hash)
	}
	if update.AuditAccessCode != nil {
		settings.AuditAccessCode = *update.AuditAccessCode
	}

	if err := s.repo.Save(ctx, settings); err != nil {
		if stderrors.Is(err, repository.ErrIntegrity) {
			return nil, errors.NewValidationError("Invalid settings", map[string]interface{}{"error": err.Error()})
		}
		s.logger.WithError(err).Error("Failed to save election settings")
		return nil, errors.NewInternalError("Failed to save election settings", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"status":            settings.StatusAt(time.Now()).String(),
		"show_live_results": settings.ShowLiveResults,
	}).Info("Election settings updated")

	return s.Get(ctx)
}

// VerifyAuditCredentials checks the auditor password and access code.
func (s *SettingsService) VerifyAuditCredentials(ctx context.Context, password, accessCode string) error {
	settings, err := s.Get(ctx)
	if err != nil {
		return err
	}
	passwordErr := bcrypt.CompareHashAndPassword([]byte(settings.AuditPasswordHash), []byte(password))
	codeOK := subtle.ConstantTimeCompare([]byte(settings.AuditAccessCode), []byte(accessCode)) == 1
	if passwordErr != nil || !codeOK {
		return errors.NewAuthenticationError("Invalid audit credentials")
	}
	return nil
}
