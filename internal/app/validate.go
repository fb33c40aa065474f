/**
 * @description
 * Whitelist validation for every externally supplied field. Validators are pure and
 * total: they operate on decoded JSON maps, treat a wrong-typed field as a field
 * violation rather than an error, and aggregate all violations in one pass so the
 * client sees every problem at once. Nothing reaches the store or the business
 * logic without passing through here first.
 */

package app

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/globepay/payments-service/internal/domain"
)

var (
	fullNamePattern      = regexp.MustCompile(`^[a-zA-Z\s'-]+$`)
	idNumberPattern      = regexp.MustCompile(`^[0-9]{13}$`)
	accountNumberPattern = regexp.MustCompile(`^[0-9]{10,16}$`)
	usernamePattern      = regexp.MustCompile(`^[a-z0-9_]+$`)
	amountPattern        = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)
	currencyPattern      = regexp.MustCompile(`^[A-Z]{3}$`)
	providerPattern      = regexp.MustCompile(`^[A-Z]+$`)
	payeeAccountPattern  = regexp.MustCompile(`^[A-Z0-9]{8,34}$`)
	swiftCodePattern     = regexp.MustCompile(`^[A-Z]{6}[A-Z0-9]{2}([A-Z0-9]{3})?$`)
	notesPattern         = regexp.MustCompile(`^[a-zA-Z0-9\s.,!?'-]*$`)
	notesStripPattern    = regexp.MustCompile(`[^a-zA-Z0-9\s.,!?'-]`)
	passwordCharsPattern = regexp.MustCompile(`^[A-Za-z\d@$!%*?&]+$`)
)

// RegisterInput is a registration payload after validation and normalization.
type RegisterInput struct {
	FullName      string
	IDNumber      string
	AccountNumber string
	Username      string
	Password      string
}

// stringField extracts a trimmed string from a decoded JSON payload. The second
// return distinguishes "absent or empty" from "present but not a string".
func stringField(payload map[string]any, field string) (value string, present, isString bool) {
	raw, ok := payload[field]
	if !ok || raw == nil {
		return "", false, true
	}
	s, ok := raw.(string)
	if !ok {
		return "", true, false
	}
	return strings.TrimSpace(s), true, true
}

// validPassword enforces the password policy: at least 8 characters drawn from the
// allowed set, with at least one lowercase letter, one uppercase letter, one digit,
// and one special character. Spelled out as separate checks because RE2 has no
// lookaheads.
func validPassword(password string) bool {
	if len(password) < 8 || !passwordCharsPattern.MatchString(password) {
		return false
	}
	return strings.ContainsAny(password, "abcdefghijklmnopqrstuvwxyz") &&
		strings.ContainsAny(password, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") &&
		strings.ContainsAny(password, "0123456789") &&
		strings.ContainsAny(password, "@$!%*?&")
}

// ValidateRegistration checks a registration payload against the account whitelist
// rules and returns the normalized input alongside every violation found.
func ValidateRegistration(payload map[string]any) (*RegisterInput, []FieldError) {
	var violations []FieldError
	input := &RegisterInput{}

	fullName, present, isString := stringField(payload, "fullName")
	switch {
	case !isString:
		violations = append(violations, FieldError{"fullName", "Full name must be a string"})
	case !present || fullName == "":
		violations = append(violations, FieldError{"fullName", "Full name is required"})
	case len(fullName) < 2 || len(fullName) > 100:
		violations = append(violations, FieldError{"fullName", "Full name must be between 2 and 100 characters"})
	case !fullNamePattern.MatchString(fullName):
		violations = append(violations, FieldError{"fullName", "Full name can only contain letters, spaces, hyphens, and apostrophes"})
	default:
		input.FullName = fullName
	}

	idNumber, present, isString := stringField(payload, "idNumber")
	switch {
	case !isString:
		violations = append(violations, FieldError{"idNumber", "ID number must be a string"})
	case !present || idNumber == "":
		violations = append(violations, FieldError{"idNumber", "ID number is required"})
	case !idNumberPattern.MatchString(idNumber):
		violations = append(violations, FieldError{"idNumber", "ID number must be exactly 13 digits"})
	default:
		input.IDNumber = idNumber
	}

	accountNumber, present, isString := stringField(payload, "accountNumber")
	switch {
	case !isString:
		violations = append(violations, FieldError{"accountNumber", "Account number must be a string"})
	case !present || accountNumber == "":
		violations = append(violations, FieldError{"accountNumber", "Account number is required"})
	case !accountNumberPattern.MatchString(accountNumber):
		violations = append(violations, FieldError{"accountNumber", "Account number must be between 10 and 16 digits"})
	default:
		input.AccountNumber = accountNumber
	}

	username, present, isString := stringField(payload, "username")
	username = strings.ToLower(username)
	switch {
	case !isString:
		violations = append(violations, FieldError{"username", "Username must be a string"})
	case !present || username == "":
		violations = append(violations, FieldError{"username", "Username is required"})
	case len(username) < 3 || len(username) > 30:
		violations = append(violations, FieldError{"username", "Username must be between 3 and 30 characters"})
	case !usernamePattern.MatchString(username):
		violations = append(violations, FieldError{"username", "Username can only contain lowercase letters, numbers, and underscores"})
	default:
		input.Username = username
	}

	// Password is deliberately not trimmed; whitespace is simply not allowed.
	rawPassword, ok := payload["password"]
	password, isString := "", true
	if rawPassword != nil {
		password, isString = rawPassword.(string)
	}
	switch {
	case !isString:
		violations = append(violations, FieldError{"password", "Password must be a string"})
	case !ok || password == "":
		violations = append(violations, FieldError{"password", "Password is required"})
	case !validPassword(password):
		violations = append(violations, FieldError{"password", "Password must be at least 8 characters and contain at least one uppercase letter, one lowercase letter, one number, and one special character"})
	default:
		input.Password = password
	}

	if len(violations) > 0 {
		return nil, violations
	}
	return input, nil
}

// NormalizeLoginUsername trims and lowercases a login username and rejects anything
// outside the username whitelist. Shape failures short-circuit the login before any
// store lookup happens.
func NormalizeLoginUsername(username string) (string, bool) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || !usernamePattern.MatchString(username) {
		return "", false
	}
	return username, true
}

// ValidLoginAccountNumber reports whether an account number supplied at login has
// the expected shape.
func ValidLoginAccountNumber(accountNumber string) bool {
	return accountNumberPattern.MatchString(strings.TrimSpace(accountNumber))
}

// amountField extracts the amount as its decimal string form. JSON numbers arrive
// as json.Number (the handlers decode with UseNumber), but a quoted string is
// accepted too.
func amountField(payload map[string]any) (text string, present, wellTyped bool) {
	raw, ok := payload["amount"]
	if !ok || raw == nil {
		return "", false, true
	}
	switch v := raw.(type) {
	case json.Number:
		return v.String(), true, true
	case string:
		return strings.TrimSpace(v), true, true
	default:
		return "", true, false
	}
}

func inSet(value string, set []string) bool {
	for _, member := range set {
		if value == member {
			return true
		}
	}
	return false
}

// ValidatePayment checks a create-payment payload against the whitelist rules and
// returns the normalized input. Payee account number and SWIFT code are uppercased
// before matching; enumerated fields are checked by set membership on top of their
// shape pattern, since a shape match alone would admit unlisted values.
func ValidatePayment(payload map[string]any) (*domain.PaymentInput, []FieldError) {
	var violations []FieldError
	input := &domain.PaymentInput{}

	amountText, present, wellTyped := amountField(payload)
	switch {
	case !present:
		violations = append(violations, FieldError{"amount", "Amount is required"})
	case !wellTyped, !amountPattern.MatchString(amountText):
		violations = append(violations, FieldError{"amount", "Amount must be a valid number with up to 2 decimal places"})
	default:
		amount, err := strconv.ParseFloat(amountText, 64)
		if err != nil || amount < 0.01 || amount > 1000000 {
			violations = append(violations, FieldError{"amount", "Amount must be between 0.01 and 1,000,000"})
		} else {
			input.Amount = amount
		}
	}

	currency, present, isString := stringField(payload, "currency")
	switch {
	case !isString:
		violations = append(violations, FieldError{"currency", "Currency must be a string"})
	case !present || currency == "":
		violations = append(violations, FieldError{"currency", "Currency is required"})
	case !currencyPattern.MatchString(currency), !inSet(currency, domain.Currencies):
		violations = append(violations, FieldError{"currency", "Invalid currency"})
	default:
		input.Currency = currency
	}

	provider, present, isString := stringField(payload, "provider")
	switch {
	case !isString:
		violations = append(violations, FieldError{"provider", "Provider must be a string"})
	case !present || provider == "":
		violations = append(violations, FieldError{"provider", "Provider is required"})
	case !providerPattern.MatchString(provider), !inSet(provider, domain.Providers):
		violations = append(violations, FieldError{"provider", "Invalid provider"})
	default:
		input.Provider = provider
	}

	payeeAccount, present, isString := stringField(payload, "payeeAccountNumber")
	payeeAccount = strings.ToUpper(payeeAccount)
	switch {
	case !isString:
		violations = append(violations, FieldError{"payeeAccountNumber", "Payee account number must be a string"})
	case !present || payeeAccount == "":
		violations = append(violations, FieldError{"payeeAccountNumber", "Payee account number is required"})
	case !payeeAccountPattern.MatchString(payeeAccount):
		violations = append(violations, FieldError{"payeeAccountNumber", "Payee account number must be alphanumeric and between 8-34 characters"})
	default:
		input.PayeeAccountNumber = payeeAccount
	}

	payeeName, present, isString := stringField(payload, "payeeName")
	switch {
	case !isString:
		violations = append(violations, FieldError{"payeeName", "Payee name must be a string"})
	case !present || payeeName == "":
		violations = append(violations, FieldError{"payeeName", "Payee name is required"})
	case len(payeeName) < 2 || len(payeeName) > 100:
		violations = append(violations, FieldError{"payeeName", "Payee name must be between 2 and 100 characters"})
	case !fullNamePattern.MatchString(payeeName):
		violations = append(violations, FieldError{"payeeName", "Payee name can only contain letters, spaces, hyphens, and apostrophes"})
	default:
		input.PayeeName = payeeName
	}

	swiftCode, present, isString := stringField(payload, "swiftCode")
	swiftCode = strings.ToUpper(swiftCode)
	switch {
	case !isString:
		violations = append(violations, FieldError{"swiftCode", "SWIFT code must be a string"})
	case !present || swiftCode == "":
		violations = append(violations, FieldError{"swiftCode", "SWIFT code is required"})
	case !swiftCodePattern.MatchString(swiftCode):
		violations = append(violations, FieldError{"swiftCode", "Invalid SWIFT/BIC code format (8 or 11 characters)"})
	default:
		input.SwiftCode = swiftCode
	}

	notes, present, isString := stringField(payload, "notes")
	switch {
	case !isString:
		violations = append(violations, FieldError{"notes", "Notes must be a string"})
	case !present || notes == "":
		// optional
	case len(notes) > 500:
		violations = append(violations, FieldError{"notes", "Notes cannot exceed 500 characters"})
	case !notesPattern.MatchString(notes):
		violations = append(violations, FieldError{"notes", "Notes contain invalid characters"})
	default:
		input.Notes = notes
	}

	if len(violations) > 0 {
		return nil, violations
	}
	return input, nil
}

// CleanNoteText strips every character outside the notes whitelist and clamps the
// result to the notes length bound. Used to sanitize free-text rejection reasons.
func CleanNoteText(text string) string {
	clean := notesStripPattern.ReplaceAllString(text, "")
	clean = strings.TrimSpace(clean)
	if len(clean) > 500 {
		clean = clean[:500]
	}
	return clean
}
