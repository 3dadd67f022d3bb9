package http

import (
	"errors"
	"net/http"

	"ahorro/internal/core"
	"ahorro/internal/identity"
	"ahorro/internal/log"
)

const msgInternal = "Ocurrió un error inesperado. Inténtalo de nuevo."

type errorMapping struct {
	status  int
	code    string
	message string
}

var identityErrors = map[string]errorMapping{
	identity.CodeUserNotFound:      {http.StatusNotFound, identity.CodeUserNotFound, "Usuario no encontrado"},
	identity.CodeWrongPassword:     {http.StatusUnauthorized, identity.CodeWrongPassword, "Contraseña incorrecta"},
	identity.CodeEmailAlreadyInUse: {http.StatusConflict, identity.CodeEmailAlreadyInUse, "El correo ya está registrado"},
	identity.CodeInvalidEmail:      {http.StatusBadRequest, identity.CodeInvalidEmail, "Correo electrónico inválido"},
	identity.CodeWeakPassword:      {http.StatusBadRequest, identity.CodeWeakPassword, "La contraseña debe tener al menos 6 caracteres"},
	identity.CodePasswordTooLong:   {http.StatusBadRequest, identity.CodePasswordTooLong, "La contraseña es demasiado larga (máximo 72 bytes)"},
	identity.CodeInvalidToken:      {http.StatusUnauthorized, identity.CodeInvalidToken, "Sesión inválida o expirada"},
	identity.CodeInternal:          {http.StatusInternalServerError, "internal", msgInternal},
}

var domainErrors = []struct {
	err error
	errorMapping
}{
	{core.ErrNotAuthenticated, errorMapping{http.StatusUnauthorized, "unauthenticated", "Debes iniciar sesión"}},
	{core.ErrNotFound, errorMapping{http.StatusNotFound, "not-found", "No encontrado"}},
	{core.ErrInvalidAmount, errorMapping{http.StatusUnprocessableEntity, "invalid-amount", "Monto inválido"}},
	{core.ErrInvalidExpenseType, errorMapping{http.StatusUnprocessableEntity, "invalid-expense-type", "Tipo de egreso inválido"}},
	{core.ErrNoteTooLong, errorMapping{http.StatusUnprocessableEntity, "note-too-long", "La nota no puede superar los 200 caracteres"}},
	{core.ErrInvalidIncome, errorMapping{http.StatusUnprocessableEntity, "invalid-income", "Ingreso mensual inválido"}},
	{core.ErrInvalidGoal, errorMapping{http.StatusUnprocessableEntity, "invalid-goal", "Meta de ahorro inválida"}},
	{core.ErrInvalidSimulation, errorMapping{http.StatusUnprocessableEntity, "invalid-simulation", "Los montos de la simulación deben ser positivos"}},
	{core.ErrNotShared, errorMapping{http.StatusForbidden, "not-shared", "Este usuario no comparte sus estadísticas"}},
	{core.ErrNotFriends, errorMapping{http.StatusForbidden, "not-friends", "Solo puedes ver el resumen de tus amigos"}},
	{core.ErrSelfRequest, errorMapping{http.StatusUnprocessableEntity, "self-request", "No puedes enviarte una solicitud a ti mismo"}},
	{core.ErrRequestExists, errorMapping{http.StatusConflict, "request-exists", "Ya existe una solicitud pendiente"}},
	{core.ErrAlreadyFriends, errorMapping{http.StatusConflict, "already-friends", "Ya son amigos"}},
	{core.ErrRequestNotPending, errorMapping{http.StatusConflict, "request-not-pending", "La solicitud ya no está pendiente"}},
	{core.ErrNotRecipient, errorMapping{http.StatusForbidden, "not-recipient", "La solicitud no está dirigida a ti"}},
	{core.ErrUsernameTaken, errorMapping{http.StatusConflict, "username-taken", "El nombre de usuario ya está en uso"}},
	{core.ErrInvalidUsername, errorMapping{http.StatusUnprocessableEntity, "invalid-username", "Nombre de usuario inválido: de 3 a 30 caracteres entre letras, números, punto o guion bajo"}},
}

// mapError picks the status, code and message shown for err. Identity
// errors with an unknown code keep their own text.
func mapError(err error) errorMapping {
	if code := identity.CodeOf(err); code != "" {
		if m, ok := identityErrors[code]; ok {
			return m
		}
		return errorMapping{http.StatusBadRequest, code, err.Error()}
	}
	for _, d := range domainErrors {
		if errors.Is(err, d.err) {
			return d.errorMapping
		}
	}
	return errorMapping{http.StatusInternalServerError, "internal", msgInternal}
}

func errorType(status int) string {
	switch {
	case status >= 500:
		return log.ErrorTypeInternal
	case status == http.StatusUnauthorized:
		return log.ErrorTypeAuth
	case status == http.StatusForbidden:
		return log.ErrorTypeForbidden
	case status == http.StatusNotFound:
		return log.ErrorTypeNotFound
	case status == http.StatusConflict:
		return log.ErrorTypeConflict
	default:
		return log.ErrorTypeValidation
	}
}

// writeError logs err and writes the mapped error response.
func writeError(w http.ResponseWriter, r *http.Request, err error, component, operation string) {
	m := mapError(err)
	ctx := r.Context()
	fields := log.NewFields().WithHTTPRequest(r.Method, r.URL.Path, "")
	if uid, uerr := identity.UIDFromContext(ctx); uerr == nil {
		fields = fields.WithUser(uid)
	}
	log.NewStructuredLogger(log.FromContext(ctx)).
		LogError(ctx, "Request failed", err, component, operation, errorType(m.status), fields)
	ErrorResponse(m.status, m.code, m.message).Write(w)
}
