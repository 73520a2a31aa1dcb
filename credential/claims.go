package credential

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// decodeExpiry extracts the `exp` claim from the access token without
// verifying its signature. The decoded instant is a scheduling hint
// only, never a security control: the server enforces authorization on
// every request regardless of what the client believes about validity.
func decodeExpiry(accessToken string) (int64, error) {
	if accessToken == "" {
		return 0, errors.New("[decodeExpiry] empty access token")
	}

	token, _, err := jwt.NewParser().ParseUnverified(accessToken, jwt.MapClaims{})
	if err != nil {
		return 0, errors.Wrap(err, "[decodeExpiry] ParseUnverified")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, errors.New("[decodeExpiry] error extracting claims")
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return 0, errors.New("[decodeExpiry] missing exp claim")
	}

	return int64(exp), nil
}
