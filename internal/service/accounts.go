package service

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/vorokhovskii-creator/felix-hub/internal/i18n"
	"github.com/vorokhovskii-creator/felix-hub/internal/models"
	"github.com/vorokhovskii-creator/felix-hub/internal/store"
)

const minPasswordLength = 6

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// AuthenticateAdmin checks admin credentials.
func (s *Service) AuthenticateAdmin(ctx context.Context, username, password string) (*models.Admin, error) {
	admin, err := s.store.GetAdminByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if admin == nil || !checkPassword(admin.Password, password) {
		return nil, ErrInvalidCredentials
	}
	return admin, nil
}

// AuthenticateMechanic checks mechanic credentials and records the login.
// Deactivated accounts get ErrInactive even with the right password.
func (s *Service) AuthenticateMechanic(ctx context.Context, username, password string) (*models.Mechanic, error) {
	m, err := s.store.GetMechanicByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !checkPassword(m.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if !m.IsActive {
		return nil, ErrInactive
	}
	if err := s.store.TouchMechanicLogin(ctx, m.ID); err != nil {
		return nil, err
	}
	return m, nil
}

// MechanicPatch is a partial mechanic update; nil fields are left alone.
type MechanicPatch struct {
	Username           *string `json:"username"`
	Password           *string `json:"password"`
	FullName           *string `json:"full_name"`
	ChatID             *string `json:"telegram_id"`
	Phone              *string `json:"phone"`
	Email              *string `json:"email"`
	IsActive           *bool   `json:"is_active"`
	NotifyOnReady      *bool   `json:"notify_on_ready"`
	NotifyOnProcessing *bool   `json:"notify_on_processing"`
	NotifyOnCancelled  *bool   `json:"notify_on_cancelled"`
	Language           *string `json:"language"`
}

// SelfService drops the fields a mechanic may not change on their own
// profile.
func (p MechanicPatch) SelfService() MechanicPatch {
	p.Username, p.Password, p.IsActive = nil, nil, nil
	return p
}

// Settings keeps only the notification preferences.
func (p MechanicPatch) Settings() MechanicPatch {
	return MechanicPatch{
		NotifyOnReady:      p.NotifyOnReady,
		NotifyOnProcessing: p.NotifyOnProcessing,
		NotifyOnCancelled:  p.NotifyOnCancelled,
	}
}

func (p MechanicPatch) apply(m *models.Mechanic) error {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&m.Username, p.Username)
	set(&m.FullName, p.FullName)
	set(&m.ChatID, p.ChatID)
	set(&m.Phone, p.Phone)
	set(&m.Email, p.Email)
	set(&m.Language, p.Language)
	for dst, src := range map[*bool]*bool{
		&m.IsActive:           p.IsActive,
		&m.NotifyOnReady:      p.NotifyOnReady,
		&m.NotifyOnProcessing: p.NotifyOnProcessing,
		&m.NotifyOnCancelled:  p.NotifyOnCancelled,
	} {
		if src != nil {
			*dst = *src
		}
	}

	if m.Username == "" {
		return invalid("", "username is required")
	}
	if m.FullName == "" {
		return invalid("", "full name is required")
	}
	if !i18n.IsSupported(m.Language) {
		return invalid("", "unsupported language %q", m.Language)
	}
	return nil
}

// CreateMechanic registers a mechanic. Username, full name and password
// are required; notification defaults are ready on, the rest off.
func (s *Service) CreateMechanic(ctx context.Context, p MechanicPatch) (*models.Mechanic, error) {
	m := &models.Mechanic{IsActive: true, NotifyOnReady: true, Language: i18n.Default}
	if err := p.apply(m); err != nil {
		return nil, err
	}
	if p.Password == nil || *p.Password == "" {
		return nil, invalid("", "password is required")
	}
	if len(*p.Password) < minPasswordLength {
		return nil, invalid("", "password must be at least %d characters", minPasswordLength)
	}
	hash, err := HashPassword(*p.Password)
	if err != nil {
		return nil, err
	}
	m.PasswordHash = hash
	if err := s.store.CreateMechanic(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// UpdateMechanic applies p. A non-empty password resets the mechanic's
// password in the same transaction.
func (s *Service) UpdateMechanic(ctx context.Context, id int64, p MechanicPatch) (*models.Mechanic, error) {
	var m *models.Mechanic
	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		var err error
		if m, err = tx.GetMechanic(ctx, id); err != nil {
			return err
		}
		if err := p.apply(m); err != nil {
			return err
		}
		if err := tx.UpdateMechanic(ctx, m); err != nil {
			return err
		}
		if p.Password == nil || *p.Password == "" {
			return nil
		}
		if len(*p.Password) < minPasswordLength {
			return invalid("", "password must be at least %d characters", minPasswordLength)
		}
		hash, err := HashPassword(*p.Password)
		if err != nil {
			return err
		}
		m.PasswordHash = hash
		return tx.UpdateMechanicPassword(ctx, id, hash)
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// ChangePassword replaces a mechanic's password after checking the old one.
func (s *Service) ChangePassword(ctx context.Context, id int64, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return invalid("", "both passwords are required")
	}
	m, err := s.store.GetMechanic(ctx, id)
	if err != nil {
		return err
	}
	if !checkPassword(m.PasswordHash, oldPassword) {
		return invalid("", "current password is incorrect")
	}
	if len(newPassword) < minPasswordLength {
		return invalid("", "password must be at least %d characters", minPasswordLength)
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.store.UpdateMechanicPassword(ctx, id, hash)
}

// MechanicProfile is a mechanic with their order counts.
type MechanicProfile struct {
	models.Mechanic
	Stats models.OrderStats `json:"stats"`
}

func (s *Service) MechanicProfile(ctx context.Context, m *models.Mechanic) (*MechanicProfile, error) {
	stats, err := s.MechanicStats(ctx, m.ID)
	if err != nil {
		return nil, err
	}
	return &MechanicProfile{Mechanic: *m, Stats: stats}, nil
}

func (s *Service) MechanicProfiles(ctx context.Context) ([]MechanicProfile, error) {
	mechanics, err := s.store.ListMechanics(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]MechanicProfile, 0, len(mechanics))
	for i := range mechanics {
		p, err := s.MechanicProfile(ctx, &mechanics[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}
