package onboarding

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/vanshika/indica/backend/internal/domain"
)

// Field names a single wizard input.
type Field string

const (
	FieldName                 Field = "name"
	FieldNationalID           Field = "nationalId"
	FieldEmail                Field = "email"
	FieldPhone                Field = "phone"
	FieldPostalCode           Field = "postalCode"
	FieldStreet               Field = "street"
	FieldNumber               Field = "number"
	FieldComplement           Field = "complement"
	FieldNeighborhood         Field = "neighborhood"
	FieldCity                 Field = "city"
	FieldStateCode            Field = "stateCode"
	FieldPassword             Field = "password"
	FieldPasswordConfirmation Field = "passwordConfirmation"
)

// AllFields lists every field in form order.
var AllFields = []Field{
	FieldName,
	FieldNationalID,
	FieldEmail,
	FieldPhone,
	FieldPostalCode,
	FieldStreet,
	FieldNumber,
	FieldComplement,
	FieldNeighborhood,
	FieldCity,
	FieldStateCode,
	FieldPassword,
	FieldPasswordConfirmation,
}

// PostalCodeLength is the number of digits in a complete CEP.
const PostalCodeLength = 8

var nonDigitRegex = regexp.MustCompile(`\D+`)

// ParseField resolves a field by its wire name.
func ParseField(name string) (Field, error) {
	f := Field(strings.TrimSpace(name))
	if !f.valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return f, nil
}

func (f Field) valid() bool {
	for _, known := range AllFields {
		if f == known {
			return true
		}
	}
	return false
}

func (f Field) secret() bool {
	return f == FieldPassword || f == FieldPasswordConfirmation
}

// Fields is the flat record of everything typed into the wizard.
type Fields struct {
	Name                 string
	NationalID           string
	Email                string
	Phone                string
	PostalCode           string
	Street               string
	Number               string
	Complement           string
	Neighborhood         string
	City                 string
	StateCode            string
	Password             string
	PasswordConfirmation string
}

// Get returns the value held for field.
func (f Fields) Get(field Field) string {
	if p := f.slot(field); p != nil {
		return *p
	}
	return ""
}

func (f *Fields) set(field Field, value string) {
	if p := f.slot(field); p != nil {
		*p = value
	}
}

func (f *Fields) slot(field Field) *string {
	switch field {
	case FieldName:
		return &f.Name
	case FieldNationalID:
		return &f.NationalID
	case FieldEmail:
		return &f.Email
	case FieldPhone:
		return &f.Phone
	case FieldPostalCode:
		return &f.PostalCode
	case FieldStreet:
		return &f.Street
	case FieldNumber:
		return &f.Number
	case FieldComplement:
		return &f.Complement
	case FieldNeighborhood:
		return &f.Neighborhood
	case FieldCity:
		return &f.City
	case FieldStateCode:
		return &f.StateCode
	case FieldPassword:
		return &f.Password
	case FieldPasswordConfirmation:
		return &f.PasswordConfirmation
	default:
		return nil
	}
}

// Address projects the address fields.
func (f Fields) Address() domain.Address {
	return domain.Address{
		PostalCode:   digitsOnly(f.PostalCode),
		Street:       f.Street,
		Number:       f.Number,
		Complement:   f.Complement,
		Neighborhood: f.Neighborhood,
		City:         f.City,
		StateCode:    f.StateCode,
	}
}

// normalizeValue trims and NFC-normalises typed text. Passwords are kept verbatim.
func normalizeValue(field Field, value string) string {
	if field.secret() {
		return value
	}
	value = norm.NFC.String(strings.TrimSpace(value))
	switch field {
	case FieldEmail:
		return strings.ToLower(value)
	case FieldStateCode:
		return strings.ToUpper(value)
	default:
		return value
	}
}

func digitsOnly(value string) string {
	return nonDigitRegex.ReplaceAllString(value, "")
}
