package validators

import (
	"net/http"
	"strings"

	pkgerrors "github.com/angelmondragon/nilgirisfresh-backend/pkg/errors"
)

const bearerScheme = "bearer"

func noCredentials() error {
	return pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
}

// BearerToken returns the credential from an "Authorization: Bearer <token>"
// header. Any other scheme is treated as no credentials at all.
func BearerToken(r *http.Request) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, bearerScheme) {
		return "", noCredentials()
	}
	if token = strings.TrimSpace(token); token == "" || strings.ContainsAny(token, " \t") {
		return "", noCredentials()
	}
	return token, nil
}
