package user

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	apperrors "github.com/louisbranch/roleandroll/internal/platform/errors"
	"github.com/louisbranch/roleandroll/internal/platform/id"
)

// Role grants platform-wide capabilities.
type Role string

const (
	// RoleUser is the default role for every signed-in account.
	RoleUser Role = "user"
	// RoleAdmin may decide seller verification and edit site configuration.
	RoleAdmin Role = "admin"
)

// MaxDisplayNameLength bounds stored display names.
const MaxDisplayNameLength = 64

var (
	// ErrEmptyEmail indicates a missing email address.
	ErrEmptyEmail = apperrors.New(apperrors.CodeInvalidArgument, "email is required")
	// ErrInvalidEmail indicates an email address that cannot be parsed.
	ErrInvalidEmail = apperrors.New(apperrors.CodeInvalidArgument, "email is invalid")
	// ErrInvalidRole indicates an unknown role value.
	ErrInvalidRole = apperrors.New(apperrors.CodeInvalidArgument, "role is invalid")
)

// User represents an authenticated identity record.
type User struct {
	ID          string
	Email       string
	DisplayName string
	AvatarURL   string
	Role        Role
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// CreateUserInput describes the metadata needed to create a user.
type CreateUserInput struct {
	Email       string
	DisplayName string
	AvatarURL   string
	Role        Role
}

// ParseRole normalizes a role label; empty selects RoleUser.
func ParseRole(value string) (Role, bool) {
	switch role := Role(strings.ToLower(strings.TrimSpace(value))); role {
	case "", RoleUser:
		return RoleUser, true
	case RoleAdmin:
		return RoleAdmin, true
	default:
		return "", false
	}
}

// CreateUser creates a durable user identity from validated input.
func CreateUser(input CreateUserInput, now func() time.Time, idGenerator func() (string, error)) (User, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	normalized, err := NormalizeCreateUserInput(input)
	if err != nil {
		return User{}, err
	}

	userID, err := idGenerator()
	if err != nil {
		return User{}, fmt.Errorf("generate user id: %w", err)
	}

	createdAt := now().UTC()
	return User{
		ID:          userID,
		Email:       normalized.Email,
		DisplayName: normalized.DisplayName,
		AvatarURL:   normalized.AvatarURL,
		Role:        normalized.Role,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}, nil
}

// NormalizeCreateUserInput trims and normalizes input before validation.
//
// A missing display name falls back to the local part of the email address.
func NormalizeCreateUserInput(input CreateUserInput) (CreateUserInput, error) {
	email, err := NormalizeEmail(input.Email)
	if err != nil {
		return CreateUserInput{}, err
	}
	input.Email = email

	role, ok := ParseRole(string(input.Role))
	if !ok {
		return CreateUserInput{}, ErrInvalidRole
	}
	input.Role = role

	input.DisplayName = strings.TrimSpace(input.DisplayName)
	if input.DisplayName == "" {
		input.DisplayName = email[:strings.Index(email, "@")]
	}
	if runes := []rune(input.DisplayName); len(runes) > MaxDisplayNameLength {
		input.DisplayName = string(runes[:MaxDisplayNameLength])
	}
	input.AvatarURL = strings.TrimSpace(input.AvatarURL)
	return input, nil
}

// NormalizeEmail lowercases and validates a bare email address.
func NormalizeEmail(value string) (string, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "", ErrEmptyEmail
	}
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		return "", ErrInvalidEmail
	}
	return value, nil
}
