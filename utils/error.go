package utils

import "errors"

var (
	ErrorRecordNotFound  = errors.New("record not found")
	ErrorSessionExpired  = errors.New("session not found or expired")
	ErrorMissingRequired = errors.New("required data missing")
)
