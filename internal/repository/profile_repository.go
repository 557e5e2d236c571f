package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"cleanhub/internal/models"
)

var (
	ErrProfileNotFound = errors.New("cleaner profile not found")
	ErrProfileExists   = errors.New("cleaner profile already exists")
)

type ProfileRepository struct {
	db DBTX
}

func NewProfileRepository(db DBTX) *ProfileRepository {
	return &ProfileRepository{db: db}
}

const profileColumns = `id, user_id, first_name, last_name, address, city, bio, email, services,
	is_available, rating, completed_jobs, approval_status, is_verified, approved_at, rejected_at,
	admin_notes, rejection_reason, created_at, updated_at`

func (r *ProfileRepository) Create(ctx context.Context, p models.CleanerProfile) error {
	const query = `
		INSERT INTO cleaner_profiles (
			id, user_id, first_name, last_name, address, city, bio, email, services,
			is_available, approval_status, is_verified, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, FALSE, $12, $12
		)
	`
	_, err := r.db.Exec(ctx, query,
		p.ID,
		p.UserID,
		p.FirstName,
		p.LastName,
		p.Address,
		p.City,
		p.Bio,
		p.Email,
		p.Services,
		p.Available,
		string(p.Status),
		p.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrProfileExists
	}
	if err != nil {
		return fmt.Errorf("insert cleaner profile: %w", err)
	}
	return nil
}

func (r *ProfileRepository) GetByID(ctx context.Context, id string) (models.CleanerProfile, error) {
	return r.findOne(ctx, `SELECT `+profileColumns+` FROM cleaner_profiles WHERE id = $1`, id)
}

func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (models.CleanerProfile, error) {
	return r.findOne(ctx, `SELECT `+profileColumns+` FROM cleaner_profiles WHERE user_id = $1`, userID)
}

// UpdateFields writes the cleaner-editable columns of the profile owned by
// userID. A nil field keeps the stored column. Approval columns are never
// touched here.
func (r *ProfileRepository) UpdateFields(ctx context.Context, userID string, f models.ProfileFields) (models.CleanerProfile, error) {
	query := `
		UPDATE cleaner_profiles SET
			first_name = COALESCE($2::text, first_name),
			last_name = COALESCE($3::text, last_name),
			address = COALESCE($4::text, address),
			city = COALESCE($5::text, city),
			bio = COALESCE($6::text, bio),
			email = COALESCE($7::text, email),
			services = COALESCE($8::text[], services),
			is_available = COALESCE($9::boolean, is_available),
			updated_at = NOW()
		WHERE user_id = $1
		RETURNING ` + profileColumns
	return r.findOne(ctx, query,
		userID,
		f.FirstName,
		f.LastName,
		f.Address,
		f.City,
		f.Bio,
		f.Email,
		f.Services,
		f.Available,
	)
}

// ApplyDecision moves a profile to the decided status and appends the history
// entry in one statement. The status guard makes concurrent identical
// decisions resolve to exactly one transition.
func (r *ProfileRepository) ApplyDecision(ctx context.Context, profileID string, d models.Decision) (models.CleanerProfile, error) {
	if d.Status != models.ApprovalApproved && d.Status != models.ApprovalRejected {
		return models.CleanerProfile{}, models.ErrInvalidDecision
	}

	const query = `
		WITH updated AS (
			UPDATE cleaner_profiles SET
				approval_status = $2::text,
				admin_notes = $3::text,
				is_verified = CASE WHEN $2::text = 'approved' THEN TRUE ELSE is_verified END,
				approved_at = CASE WHEN $2::text = 'approved' THEN $5::timestamptz ELSE approved_at END,
				rejected_at = CASE WHEN $2::text = 'rejected' THEN $5::timestamptz ELSE rejected_at END,
				rejection_reason = CASE WHEN $2::text = 'rejected' THEN $6::text ELSE rejection_reason END,
				updated_at = $5::timestamptz
			WHERE id = $1 AND approval_status <> $2::text
			RETURNING id
		)
		INSERT INTO cleaner_profile_history (profile_id, status, notes, admin_id, changed_at)
		SELECT id, $2::text, $3::text, $4::text, $5::timestamptz FROM updated
	`
	cmd, err := r.db.Exec(ctx, query,
		profileID,
		string(d.Status),
		d.EffectiveNotes(),
		d.AdminID,
		d.At,
		d.Reason,
	)
	if err != nil {
		return models.CleanerProfile{}, fmt.Errorf("apply decision: %w", err)
	}

	if cmd.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, profileID); err != nil {
			return models.CleanerProfile{}, err
		}
		return models.CleanerProfile{}, models.ErrStatusUnchanged
	}

	return r.GetByID(ctx, profileID)
}

func (r *ProfileRepository) History(ctx context.Context, profileID string) ([]models.HistoryEntry, error) {
	const query = `
		SELECT status, notes, admin_id, changed_at
		FROM cleaner_profile_history
		WHERE profile_id = $1
		ORDER BY id ASC
	`
	rows, err := r.db.Query(ctx, query, profileID)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	entries := []models.HistoryEntry{}
	for rows.Next() {
		var e models.HistoryEntry
		if err := rows.Scan(&e.Status, &e.Notes, &e.AdminID, &e.ChangedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListPending returns one page of pending profiles, newest first, and the
// total number of pending profiles matching the filter.
func (r *ProfileRepository) ListPending(ctx context.Context, f models.PendingFilter) ([]models.CleanerProfile, int, error) {
	where := []string{"approval_status = 'pending'"}
	var args []any

	if f.City != "" {
		args = append(args, "%"+escapeLike(f.City)+"%")
		where = append(where, fmt.Sprintf(`city ILIKE $%d ESCAPE '\'`, len(args)))
	}
	if f.Service != "" {
		args = append(args, f.Service)
		where = append(where, fmt.Sprintf("$%d = ANY(services)", len(args)))
	}
	clause := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM cleaner_profiles WHERE `+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count pending profiles: %w", err)
	}

	offset := (f.Page - 1) * f.Limit
	listArgs := append(append([]any{}, args...), f.Limit, offset)
	query := fmt.Sprintf(
		`SELECT %s FROM cleaner_profiles WHERE %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		profileColumns, clause, len(args)+1, len(args)+2,
	)

	profiles, err := r.findMany(ctx, query, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	return profiles, total, nil
}

// ListAvailable returns profiles open for work, best rated first.
func (r *ProfileRepository) ListAvailable(ctx context.Context, f models.CleanerFilter) ([]models.CleanerProfile, error) {
	where := []string{"is_available = TRUE"}
	var args []any

	if f.Service != "" {
		args = append(args, f.Service)
		where = append(where, fmt.Sprintf("$%d = ANY(services)", len(args)))
	}
	if f.City != "" {
		args = append(args, "%"+escapeLike(f.City)+"%")
		where = append(where, fmt.Sprintf(`city ILIKE $%d ESCAPE '\'`, len(args)))
	}
	if f.MinRating > 0 {
		args = append(args, f.MinRating)
		where = append(where, fmt.Sprintf("rating >= $%d", len(args)))
	}

	query := `SELECT ` + profileColumns + ` FROM cleaner_profiles WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY rating DESC, completed_jobs DESC, created_at ASC`
	return r.findMany(ctx, query, args...)
}

func (r *ProfileRepository) CountByStatus(ctx context.Context) (map[models.ApprovalStatus]int, error) {
	rows, err := r.db.Query(ctx, `SELECT approval_status, COUNT(*) FROM cleaner_profiles GROUP BY approval_status`)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	counts := map[models.ApprovalStatus]int{
		models.ApprovalPending:  0,
		models.ApprovalApproved: 0,
		models.ApprovalRejected: 0,
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[models.ApprovalStatus(status)] = n
	}
	return counts, rows.Err()
}

func (r *ProfileRepository) CountPendingSince(ctx context.Context, cutoff time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM cleaner_profiles WHERE approval_status = 'pending' AND created_at < $1`,
		cutoff,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count stale pending: %w", err)
	}
	return n, nil
}

func (r *ProfileRepository) IncrementCompletedJobs(ctx context.Context, profileID string) error {
	cmd, err := r.db.Exec(ctx,
		`UPDATE cleaner_profiles SET completed_jobs = completed_jobs + 1, updated_at = NOW() WHERE id = $1`,
		profileID,
	)
	if err != nil {
		return fmt.Errorf("increment completed jobs: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrProfileNotFound
	}
	return nil
}

func (r *ProfileRepository) findOne(ctx context.Context, query string, args ...any) (models.CleanerProfile, error) {
	p, err := scanProfile(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.CleanerProfile{}, ErrProfileNotFound
		}
		return models.CleanerProfile{}, err
	}
	return p, nil
}

func (r *ProfileRepository) findMany(ctx context.Context, query string, args ...any) ([]models.CleanerProfile, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	profiles := []models.CleanerProfile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func scanProfile(row pgx.Row) (models.CleanerProfile, error) {
	var p models.CleanerProfile
	var status string
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.FirstName,
		&p.LastName,
		&p.Address,
		&p.City,
		&p.Bio,
		&p.Email,
		&p.Services,
		&p.Available,
		&p.Rating,
		&p.CompletedJobs,
		&status,
		&p.Verified,
		&p.ApprovedAt,
		&p.RejectedAt,
		&p.AdminNotes,
		&p.RejectionReason,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	p.Status = models.ApprovalStatus(status)
	return p, err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
