package service

import (
	"context"
	"net/http"
	"time"

	"contacts-api/internal/model"
	"contacts-api/pkg/apierror"
)

const (
	minPageLimit = 10
	maxPageLimit = 500
)

// ContactStore is the persistence contract for the contact book. Every
// operation is scoped to a user id; rows belonging to other users behave as
// if they do not exist.
type ContactStore interface {
	List(ctx context.Context, userID int64, filter model.ContactFilter, limit int, offset int) ([]model.Contact, error)
	UpcomingBirthdays(ctx context.Context, userID int64, days int, limit int, offset int) ([]model.Contact, error)
	FindByID(ctx context.Context, userID int64, contactID int64) (model.Contact, error)
	Create(ctx context.Context, c model.Contact) (model.Contact, error)
	Update(ctx context.Context, c model.Contact) (model.Contact, error)
	Delete(ctx context.Context, userID int64, contactID int64) error
}

type ContactService struct {
	contacts ContactStore
}

func NewContactService(contacts ContactStore) *ContactService {
	return &ContactService{contacts: contacts}
}

func (s *ContactService) List(ctx context.Context, user model.User, filter model.ContactFilter, limit int, offset int) ([]model.Contact, error) {
	return s.contacts.List(ctx, user.ID, filter, clampLimit(limit), clampOffset(offset))
}

func (s *ContactService) UpcomingBirthdays(ctx context.Context, user model.User, days int, limit int, offset int) ([]model.Contact, error) {
	if days < 1 {
		days = 7
	}
	return s.contacts.UpcomingBirthdays(ctx, user.ID, days, clampLimit(limit), clampOffset(offset))
}

func (s *ContactService) Get(ctx context.Context, user model.User, contactID int64) (model.Contact, error) {
	return s.contacts.FindByID(ctx, user.ID, contactID)
}

func (s *ContactService) Create(ctx context.Context, user model.User, req model.ContactRequest) (model.Contact, error) {
	contact, err := contactFromRequest(req)
	if err != nil {
		return model.Contact{}, err
	}

	contact.UserID = user.ID
	return s.contacts.Create(ctx, contact)
}

func (s *ContactService) Update(ctx context.Context, user model.User, contactID int64, req model.ContactRequest) (model.Contact, error) {
	contact, err := contactFromRequest(req)
	if err != nil {
		return model.Contact{}, err
	}

	contact.ID = contactID
	contact.UserID = user.ID
	return s.contacts.Update(ctx, contact)
}

// Delete removes the contact if present. Deleting an absent contact is not
// an error.
func (s *ContactService) Delete(ctx context.Context, user model.User, contactID int64) error {
	return s.contacts.Delete(ctx, user.ID, contactID)
}

func contactFromRequest(req model.ContactRequest) (model.Contact, error) {
	if req.FirstName == "" || req.LastName == "" || req.Email == "" {
		return model.Contact{}, apierror.New("BAD_REQUEST", "first_name, last_name and email are required", http.StatusBadRequest)
	}

	var birthday time.Time
	if req.Birthday != "" {
		parsed, err := time.Parse("2006-01-02", req.Birthday)
		if err != nil {
			return model.Contact{}, apierror.New("BAD_REQUEST", "birthday must be formatted as YYYY-MM-DD", http.StatusBadRequest)
		}
		birthday = parsed
	}

	return model.Contact{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Birthday:    birthday,
		AddInfo:     req.AddInfo,
	}, nil
}

func clampLimit(limit int) int {
	if limit < minPageLimit {
		return minPageLimit
	}
	if limit > maxPageLimit {
		return maxPageLimit
	}
	return limit
}

func clampOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
