package gigachat

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a generation failure. The retry loop branches on this
// enumeration instead of matching error types: authentication (beyond
// the built-in forced refresh), authorization and bad-request failures
// indicate misconfiguration and are fatal; everything else is worth
// another attempt.
type Kind string

const (
	KindAuthentication Kind = "authentication" // HTTP 401
	KindAuthorization  Kind = "authorization"  // HTTP 403
	KindBadRequest     Kind = "bad_request"    // HTTP 400
	KindTransient      Kind = "transient"      // 5xx, network, other HTTP
	KindMalformed      Kind = "malformed"      // JSON or schema failure
	KindUnsafeOutput   Kind = "unsafe_output"  // generated recipe failed the safety gate
	KindExhausted      Kind = "exhausted"      // attempt budget consumed
)

// Error is a classified generation failure.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gigachat: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("gigachat: %s", e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the failure kind, or KindTransient for errors that
// did not pass through the classifier.
func KindOf(err error) Kind {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Kind
	}
	return KindTransient
}

// retryable reports whether a failure class is worth another attempt.
func retryable(kind Kind) bool {
	switch kind {
	case KindTransient, KindMalformed, KindUnsafeOutput:
		return true
	}
	return false
}

// classifyStatus maps an HTTP status code from the generation backend
// to a failure kind.
func classifyStatus(status int) Kind {
	switch status {
	case 401:
		return KindAuthentication
	case 403:
		return KindAuthorization
	case 400:
		return KindBadRequest
	default:
		return KindTransient
	}
}

// causeKind resolves the kind a user-facing message should be built
// from: for an exhausted retry budget that is the last underlying
// cause, not the aggregate itself.
func causeKind(err error) Kind {
	kind := KindOf(err)
	if kind != KindExhausted {
		return kind
	}
	for unwrapped := errors.Unwrap(err); unwrapped != nil; unwrapped = errors.Unwrap(unwrapped) {
		var inner *Error
		if errors.As(unwrapped, &inner) && inner.Kind != KindExhausted {
			return inner.Kind
		}
	}
	return KindExhausted
}

// UserMessage renders a category-specific, user-facing explanation so
// operators can self-diagnose fatal classes without reading logs.
// Retry exhaustion over transport errors deliberately stays generic.
func UserMessage(err error) string {
	details := strings.ToUpper(err.Error())

	switch causeKind(err) {
	case KindUnsafeOutput:
		return "Не удалось безопасно сгенерировать рецепт по этому запросу. " +
			"Уточните съедобные ингредиенты и попробуйте снова."
	case KindAuthentication:
		return "Ошибка авторизации GigaChat (401). Проверьте Basic-ключ в GIGACHAT_AUTH_KEY."
	case KindAuthorization:
		return "Доступ к GigaChat отклонен (403). Проверьте права ключа и scope."
	case KindBadRequest:
		return "Некорректный запрос к GigaChat (400). Проверьте модель и параметры запроса."
	}

	if strings.Contains(details, "SSL") || strings.Contains(details, "TLS") || strings.Contains(details, "CERT") {
		return "Не удалось установить защищенное соединение с GigaChat. " +
			"Проверьте сертификаты (Минцифры) или установите GIGACHAT_SSL_VERIFY=false."
	}

	return "Не удалось получить рецепт от GigaChat. Проверьте токен и попробуйте еще раз."
}
