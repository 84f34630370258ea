package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"contacts-api/internal/model"
)

type ContactRepository struct {
	pool *pgxpool.Pool
}

func NewContactRepository(pool *pgxpool.Pool) *ContactRepository {
	return &ContactRepository{pool: pool}
}

const contactColumns = `id, first_name, last_name, email, COALESCE(phone_number, ''),
	COALESCE(birthday, 'epoch'::date), COALESCE(add_info, ''), created_at, user_id`

func (r *ContactRepository) List(ctx context.Context, userID int64, filter model.ContactFilter, limit int, offset int) ([]model.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE user_id = $1`
	args := []any{userID}

	if filter.FirstName != "" {
		args = append(args, filter.FirstName)
		query += fmt.Sprintf(" AND first_name = $%d", len(args))
	}
	if filter.LastName != "" {
		args = append(args, filter.LastName)
		query += fmt.Sprintf(" AND last_name = $%d", len(args))
	}
	if filter.Email != "" {
		args = append(args, filter.Email)
		query += fmt.Sprintf(" AND email = $%d", len(args))
	}

	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY id LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	return scanContacts(rows)
}

// UpcomingBirthdays returns the user's contacts whose next birthday occurrence
// falls within [0, days] days from today. Birthdays that already passed this
// year wrap to the next year. The window check runs in Go because the wrap
// logic is awkward to express portably in SQL.
func (r *ContactRepository) UpcomingBirthdays(ctx context.Context, userID int64, days int, limit int, offset int) ([]model.Contact, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+contactColumns+` FROM contacts
		 WHERE user_id = $1 AND birthday IS NOT NULL ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list contacts for birthdays: %w", err)
	}
	defer rows.Close()

	contacts, err := scanContacts(rows)
	if err != nil {
		return nil, err
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	upcoming := make([]model.Contact, 0)
	for _, contact := range contacts {
		if contact.Birthday.IsZero() {
			continue
		}
		until := daysUntilBirthday(contact.Birthday, today)
		if until >= 0 && until <= days {
			upcoming = append(upcoming, contact)
		}
	}

	if offset >= len(upcoming) {
		return []model.Contact{}, nil
	}
	upcoming = upcoming[offset:]
	if len(upcoming) > limit {
		upcoming = upcoming[:limit]
	}
	return upcoming, nil
}

// daysUntilBirthday computes the day-count from today to the next occurrence
// of the birthday, moving it to the following year when this year's date has
// already passed.
func daysUntilBirthday(birthday time.Time, today time.Time) int {
	next := time.Date(today.Year(), birthday.Month(), birthday.Day(), 0, 0, 0, 0, time.UTC)
	if next.Before(today) {
		next = time.Date(today.Year()+1, birthday.Month(), birthday.Day(), 0, 0, 0, 0, time.UTC)
	}
	return int(next.Sub(today).Hours() / 24)
}

func (r *ContactRepository) FindByID(ctx context.Context, userID int64, contactID int64) (model.Contact, error) {
	var c model.Contact
	err := r.pool.QueryRow(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE id = $1 AND user_id = $2`,
		contactID, userID).
		Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.PhoneNumber,
			&c.Birthday, &c.AddInfo, &c.CreatedAt, &c.UserID)

	if errors.Is(err, pgx.ErrNoRows) {
		return model.Contact{}, model.ErrContactNotFound
	}
	if err != nil {
		return model.Contact{}, fmt.Errorf("find contact by id: %w", err)
	}
	return c, nil
}

func (r *ContactRepository) Create(ctx context.Context, c model.Contact) (model.Contact, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO contacts (first_name, last_name, email, phone_number, birthday, add_info, user_id)
		 VALUES ($1, $2, $3, NULLIF($4, ''), $5, NULLIF($6, ''), $7)
		 RETURNING id, created_at`,
		c.FirstName, c.LastName, c.Email, c.PhoneNumber, nullableDate(c.Birthday), c.AddInfo, c.UserID).
		Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return model.Contact{}, fmt.Errorf("create contact: %w", err)
	}
	return c, nil
}

func (r *ContactRepository) Update(ctx context.Context, c model.Contact) (model.Contact, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE contacts
		 SET first_name = $3, last_name = $4, email = $5,
		     phone_number = NULLIF($6, ''), birthday = $7, add_info = NULLIF($8, '')
		 WHERE id = $1 AND user_id = $2`,
		c.ID, c.UserID, c.FirstName, c.LastName, c.Email, c.PhoneNumber,
		nullableDate(c.Birthday), c.AddInfo)
	if err != nil {
		return model.Contact{}, fmt.Errorf("update contact: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.Contact{}, model.ErrContactNotFound
	}
	return r.FindByID(ctx, c.UserID, c.ID)
}

func (r *ContactRepository) Delete(ctx context.Context, userID int64, contactID int64) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM contacts WHERE id = $1 AND user_id = $2`, contactID, userID)
	if err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	return nil
}

func scanContacts(rows pgx.Rows) ([]model.Contact, error) {
	contacts := make([]model.Contact, 0)
	for rows.Next() {
		var c model.Contact
		if err := rows.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.PhoneNumber,
			&c.Birthday, &c.AddInfo, &c.CreatedAt, &c.UserID); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		if c.Birthday.Unix() == 0 {
			c.Birthday = time.Time{}
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

func nullableDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
