package garminconnect

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is shared by all parameter checks. Validator instances are safe
// for concurrent use and cache struct metadata.
var validate = validator.New()

type credentialParams struct {
	Email    string `validate:"required"`
	Password string `validate:"required"`
}

type dateParams struct {
	Date string `validate:"required,datetime=2006-01-02"`
}

type deviceParams struct {
	DeviceID string `validate:"required"`
}

// validCredentials rejects empty account credentials before a Client is
// built. The values themselves are never echoed back.
func validCredentials(email, password string) error {
	if err := validate.Struct(credentialParams{Email: email, Password: password}); err != nil {
		return newError(ErrConfiguration, "email and password are required")
	}
	return nil
}

// validDate rejects anything but an ISO-8601 calendar date. Checked before
// any network traffic, including the implicit login.
func validDate(date string) error {
	if err := validate.Struct(dateParams{Date: date}); err != nil {
		return newError(ErrConfiguration, fmt.Sprintf("invalid calendar date %q, want YYYY-MM-DD", date))
	}
	return nil
}

// validDeviceID rejects an empty device identifier.
func validDeviceID(deviceID string) error {
	if err := validate.Struct(deviceParams{DeviceID: deviceID}); err != nil {
		return newError(ErrConfiguration, "device id is required")
	}
	return nil
}
