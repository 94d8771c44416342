package pgsql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/filevaulthq/filevault_app/internal/apperrors"
	"github.com/filevaulthq/filevault_app/internal/core/domain"
	portsrepo "github.com/filevaulthq/filevault_app/internal/core/ports/repositories"
	"github.com/filevaulthq/filevault_app/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the PostgreSQL error code for a unique index conflict.
const uniqueViolation = "23505"

type PgxUserRepository struct {
	db *pgxpool.Pool
}

func newPgxUserRepository(db *pgxpool.Pool) portsrepo.UserRepositoryFacade {
	return &PgxUserRepository{db: db}
}

// Ensure PgxUserRepository implements portsrepo.UserRepositoryFacade
var _ portsrepo.UserRepositoryFacade = (*PgxUserRepository)(nil)

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// Helper to convert domain.User to models.User
func toModelUser(d domain.User) models.User {
	return models.User{
		UserID:                 d.UserID,
		Email:                  d.Email,
		Name:                   d.Name,
		AvatarURL:              nullString(d.AvatarURL),
		Role:                   string(d.Role),
		PasswordHash:           nullString(d.PasswordHash),
		AuthProvider:           string(d.AuthProvider),
		ProviderUserID:         nullString(d.ProviderUserID),
		IsEmailVerified:        d.IsEmailVerified,
		VerificationToken:      nullString(d.VerificationToken),
		ResetPasswordToken:     nullString(d.ResetPasswordToken),
		ResetPasswordExpiry:    nullTime(d.ResetPasswordExpiry),
		RefreshTokenHash:       nullString(d.RefreshTokenHash),
		RefreshTokenExpiryTime: nullTime(d.RefreshTokenExpiryTime),
		IsActive:               d.IsActive,
		LastLoginAt:            nullTime(d.LastLoginAt),
		AuditFields: models.AuditFields{
			CreatedAt:     d.CreatedAt,
			CreatedBy:     d.CreatedBy,
			LastUpdatedAt: d.LastUpdatedAt,
			LastUpdatedBy: d.LastUpdatedBy,
		},
		DeletedAt: d.DeletedAt,
	}
}

// Helper to convert models.User to domain.User
func toDomainUser(m models.User) domain.User {
	return domain.User{
		UserID:                 m.UserID,
		Email:                  m.Email,
		Name:                   m.Name,
		AvatarURL:              m.AvatarURL.String,
		Role:                   domain.UserRole(m.Role),
		PasswordHash:           m.PasswordHash.String,
		AuthProvider:           domain.AuthProvider(m.AuthProvider),
		ProviderUserID:         m.ProviderUserID.String,
		IsEmailVerified:        m.IsEmailVerified,
		VerificationToken:      m.VerificationToken.String,
		ResetPasswordToken:     m.ResetPasswordToken.String,
		ResetPasswordExpiry:    timePtr(m.ResetPasswordExpiry),
		RefreshTokenHash:       m.RefreshTokenHash.String,
		RefreshTokenExpiryTime: timePtr(m.RefreshTokenExpiryTime),
		IsActive:               m.IsActive,
		LastLoginAt:            timePtr(m.LastLoginAt),
		AuditFields: domain.AuditFields{
			CreatedAt:     m.CreatedAt,
			CreatedBy:     m.CreatedBy,
			LastUpdatedAt: m.LastUpdatedAt,
			LastUpdatedBy: m.LastUpdatedBy,
		},
		DeletedAt: m.DeletedAt,
	}
}

// userColumns is the select list shared by every user query, kept in scan
// order of scanUserRow.
const userColumns = `user_id, email, name, avatar_url, role, password_hash, auth_provider, provider_user_id,
		is_email_verified, verification_token, reset_password_token, reset_password_expiry,
		refresh_token_hash, refresh_token_expiry_time, is_active, last_login_at,
		created_at, created_by, last_updated_at, last_updated_by, deleted_at`

func scanUserRow(row pgx.Row) (*models.User, error) {
	var m models.User
	err := row.Scan(
		&m.UserID,
		&m.Email,
		&m.Name,
		&m.AvatarURL,
		&m.Role,
		&m.PasswordHash,
		&m.AuthProvider,
		&m.ProviderUserID,
		&m.IsEmailVerified,
		&m.VerificationToken,
		&m.ResetPasswordToken,
		&m.ResetPasswordExpiry,
		&m.RefreshTokenHash,
		&m.RefreshTokenExpiryTime,
		&m.IsActive,
		&m.LastLoginAt,
		&m.CreatedAt,
		&m.CreatedBy,
		&m.LastUpdatedAt,
		&m.LastUpdatedBy,
		&m.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *PgxUserRepository) SaveUser(ctx context.Context, user domain.User) error {
	m := toModelUser(user)
	query := `
        INSERT INTO users (
            user_id, email, name, avatar_url, role, password_hash, auth_provider, provider_user_id,
            is_email_verified, verification_token, is_active,
            created_at, created_by, last_updated_at, last_updated_by
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15);
    `
	_, err := r.db.Exec(ctx, query,
		m.UserID,
		m.Email,
		m.Name,
		m.AvatarURL,
		m.Role,
		m.PasswordHash,
		m.AuthProvider,
		m.ProviderUserID,
		m.IsEmailVerified,
		m.VerificationToken,
		m.IsActive,
		m.CreatedAt,
		m.CreatedBy,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperrors.ErrDuplicate
		}
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

func (r *PgxUserRepository) findOne(ctx context.Context, where string, args ...any) (*domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE %s AND deleted_at IS NULL;`, userColumns, where)
	m, err := scanUserRow(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	d := toDomainUser(*m)
	return &d, nil
}

func (r *PgxUserRepository) FindUserByID(ctx context.Context, userID string) (*domain.User, error) {
	return r.findOne(ctx, "user_id = $1", userID)
}

func (r *PgxUserRepository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, "email = $1", email)
}

func (r *PgxUserRepository) FindUserByProviderID(ctx context.Context, provider domain.AuthProvider, providerUserID string) (*domain.User, error) {
	return r.findOne(ctx, "auth_provider = $1 AND provider_user_id = $2", string(provider), providerUserID)
}

func (r *PgxUserRepository) FindUsers(ctx context.Context, limit int, offset int) ([]domain.User, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`
        SELECT %s FROM users
        WHERE deleted_at IS NULL
        ORDER BY created_at DESC
        LIMIT $1 OFFSET $2;
    `, userColumns)
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		m, err := scanUserRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		users = append(users, toDomainUser(*m))
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", rows.Err())
	}
	return users, nil
}

func (r *PgxUserRepository) UpdateUser(ctx context.Context, user domain.User) error {
	m := toModelUser(user)
	query := `
        UPDATE users
        SET name = $1, avatar_url = $2, password_hash = $3, auth_provider = $4,
            provider_user_id = $5, is_email_verified = $6, verification_token = $7,
            reset_password_token = $8, reset_password_expiry = $9,
            last_updated_at = $10, last_updated_by = $11
        WHERE user_id = $12 AND deleted_at IS NULL;
    `
	cmdTag, err := r.db.Exec(ctx, query,
		m.Name,
		m.AvatarURL,
		m.PasswordHash,
		m.AuthProvider,
		m.ProviderUserID,
		m.IsEmailVerified,
		m.VerificationToken,
		m.ResetPasswordToken,
		m.ResetPasswordExpiry,
		m.LastUpdatedAt,
		m.LastUpdatedBy,
		m.UserID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperrors.ErrDuplicate
		}
		return fmt.Errorf("failed to execute update user query: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("user not found or already deleted: %w", apperrors.ErrNotFound)
	}
	return nil
}

func (r *PgxUserRepository) UpdateLastLogin(ctx context.Context, userID string, loginAt time.Time) error {
	query := `
        UPDATE users
        SET last_login_at = $1
        WHERE user_id = $2 AND deleted_at IS NULL;
    `
	cmdTag, err := r.db.Exec(ctx, query, loginAt, userID)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *PgxUserRepository) SetActive(ctx context.Context, userID string, active bool) error {
	query := `
        UPDATE users
        SET is_active = $1, last_updated_at = $2
        WHERE user_id = $3 AND deleted_at IS NULL;
    `
	cmdTag, err := r.db.Exec(ctx, query, active, time.Now(), userID)
	if err != nil {
		return fmt.Errorf("failed to set active flag: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *PgxUserRepository) UpdateRefreshToken(ctx context.Context, userID string, refreshTokenHash string, refreshTokenExpiryTime time.Time) error {
	query := `
        UPDATE users
        SET refresh_token_hash = $1, refresh_token_expiry_time = $2
        WHERE user_id = $3 AND deleted_at IS NULL;
    `
	cmdTag, err := r.db.Exec(ctx, query, refreshTokenHash, refreshTokenExpiryTime, userID)
	if err != nil {
		return fmt.Errorf("failed to update refresh token: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// RotateRefreshToken is the atomic compare-then-set behind refresh rotation.
// The WHERE clause on the old hash makes the database arbitrate concurrent
// refreshes: whichever UPDATE runs second sees a changed slot, matches zero
// rows and reports the token as already consumed.
func (r *PgxUserRepository) RotateRefreshToken(ctx context.Context, userID string, oldHash, newHash string, refreshTokenExpiryTime time.Time) error {
	query := `
        UPDATE users
        SET refresh_token_hash = $1, refresh_token_expiry_time = $2
        WHERE user_id = $3 AND refresh_token_hash = $4 AND deleted_at IS NULL;
    `
	cmdTag, err := r.db.Exec(ctx, query, newHash, refreshTokenExpiryTime, userID, oldHash)
	if err != nil {
		return fmt.Errorf("failed to rotate refresh token: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrInvalidRefreshToken
	}
	return nil
}

func (r *PgxUserRepository) ClearRefreshToken(ctx context.Context, userID string) error {
	query := `
        UPDATE users
        SET refresh_token_hash = NULL, refresh_token_expiry_time = NULL
        WHERE user_id = $1 AND deleted_at IS NULL;
    `
	// Clearing an already empty slot still matches the row; no rows check.
	if _, err := r.db.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to clear refresh token: %w", err)
	}
	return nil
}

func (r *PgxUserRepository) MarkUserDeleted(ctx context.Context, userID string, deletedAt time.Time, deletedBy string) error {
	query := `
        UPDATE users
        SET deleted_at = $1, last_updated_at = $1, last_updated_by = $2
        WHERE user_id = $3 AND deleted_at IS NULL;
    `
	cmdTag, err := r.db.Exec(ctx, query, deletedAt, deletedBy, userID)
	if err != nil {
		return fmt.Errorf("failed to mark user as deleted: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
