package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	UpgradesErrorBadInput        = "UPGRADES_BAD_INPUT"
	UpgradesErrorUnauthorized    = "UPGRADES_UNAUTHORIZED"
	UpgradesErrorInvalidVersion  = "UPGRADES_INVALID_VERSION"
	UpgradesErrorPackageNotFound = "UPGRADES_PACKAGE_NOT_FOUND"
	UpgradesErrorProxyAdminOnly  = "UPGRADES_PROXY_ADMIN_ONLY"
	UpgradesErrorOperationFailed = "UPGRADES_OPERATION_FAILED"
	UpgradesErrorInternal        = "UPGRADES_INTERNAL_ERROR"
)

func upgradesErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureUpgradesErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "not the current owner"), strings.Contains(msg, "unauthorized"):
		return newUpgradesError(err.Error(), goerrors.CategoryAuthz, UpgradesErrorUnauthorized)
	case strings.Contains(msg, "admin"), strings.Contains(msg, "administered"):
		return newUpgradesError(err.Error(), goerrors.CategoryAuthz, UpgradesErrorProxyAdminOnly)
	case strings.Contains(msg, "version") && (strings.Contains(msg, "not registered") || strings.Contains(msg, "unknown") || strings.Contains(msg, "invalid")):
		return newUpgradesError(err.Error(), goerrors.CategoryValidation, UpgradesErrorInvalidVersion)
	case strings.Contains(msg, "no binding"), strings.Contains(msg, "not found"):
		return newUpgradesError(err.Error(), goerrors.CategoryNotFound, UpgradesErrorPackageNotFound)
	case strings.Contains(msg, "required"), strings.Contains(msg, "must not"), strings.Contains(msg, "mismatch"):
		return newUpgradesError(err.Error(), goerrors.CategoryBadInput, UpgradesErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureUpgradesErrorEnvelope(mapped)
}

func newUpgradesError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureUpgradesErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureUpgradesErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = upgradesHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultUpgradesTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultUpgradesTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput:
		return UpgradesErrorBadInput
	case goerrors.CategoryValidation:
		return UpgradesErrorInvalidVersion
	case goerrors.CategoryNotFound:
		return UpgradesErrorPackageNotFound
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return UpgradesErrorUnauthorized
	case goerrors.CategoryOperation:
		return UpgradesErrorOperationFailed
	default:
		return UpgradesErrorInternal
	}
}

func upgradesHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput:
		return http.StatusBadRequest
	case goerrors.CategoryValidation:
		return http.StatusUnprocessableEntity
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryOperation:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
