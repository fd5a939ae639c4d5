package chat

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"roomchat/backend/internal/apperror"
	"roomchat/backend/internal/config"

	"github.com/go-playground/validator/v10"
)

var (
	validate = newValidator()

	userNamePattern = regexp.MustCompile(`^[A-Za-z0-9_.\-]+$`)
	roomNamePattern = regexp.MustCompile(`^[A-Za-z0-9_\-]+$`)
)

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return userNamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("roomname", func(fl validator.FieldLevel) bool {
		return roomNamePattern.MatchString(fl.Field().String())
	})
	return v
}

func ValidateUserName(name string) error {
	tag := fmt.Sprintf("required,max=%d,username", config.MaxUserNameLength)
	if err := validate.Var(name, tag); err != nil {
		return apperror.Validation("'%s' is not a valid user name. Use up to %d letters, digits, '.', '_' or '-'.", name, config.MaxUserNameLength)
	}
	return nil
}

func ValidateRoomName(name string) error {
	tag := fmt.Sprintf("required,max=%d,roomname", config.MaxRoomNameLength)
	if err := validate.Var(name, tag); err != nil {
		return apperror.Validation("'%s' is not a valid room name.", name)
	}
	return nil
}

func ValidatePassword(password string) error {
	if err := validate.Var(password, fmt.Sprintf("min=%d", config.MinPasswordLength)); err != nil {
		return apperror.Validation("Passwords must be at least %d characters long.", config.MinPasswordLength)
	}
	return nil
}

func ValidateNote(note string) error {
	if err := validate.Var(note, fmt.Sprintf("max=%d", config.MaxNoteLength)); err != nil {
		return apperror.Validation("Sorry, but your note is too long. Please keep it under %d characters.", config.MaxNoteLength)
	}
	return nil
}

func ValidateTopic(topic string) error {
	if err := validate.Var(topic, fmt.Sprintf("max=%d", config.MaxTopicLength)); err != nil {
		return apperror.Validation("Sorry, but your topic is too long. Please keep it under %d characters.", config.MaxTopicLength)
	}
	return nil
}

// ValidateIsoCode accepts ISO 3166-1 alpha-2 country codes in any case.
func ValidateIsoCode(code string) error {
	if err := validate.Var(strings.ToUpper(code), "required,iso3166_1_alpha2"); err != nil {
		return apperror.Validation("Sorry, but the country ISO code you requested doesn't exist. Please refer to http://en.wikipedia.org/wiki/ISO_3166-1_alpha-2 for a proper list of country ISO codes.")
	}
	return nil
}

func ValidateEmail(email string) error {
	if err := validate.Var(email, "required,email"); err != nil {
		return apperror.Validation("'%s' is not a valid email address.", email)
	}
	return nil
}

// GravatarHash returns the gravatar id of an email address.
func GravatarHash(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:])
}
