package webhook

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// VerifyToken проверяет подпись токена из платёжного уведомления и
// соответствие claim "id" идентификатору счёта. При пустом секрете проверка
// пропускается: так ведёт себя и платёжный кабинет без настроенного ключа,
// о чём конфигурация предупреждает при старте.
func VerifyToken(tokenString, secret, invoiceId string) error {
	if secret == "" {
		return nil
	}
	if tokenString == "" {
		return fmt.Errorf("missing token")
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return fmt.Errorf("token verification failed: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return fmt.Errorf("unexpected claims type")
	}
	claimId, _ := claims["id"].(string)
	if claimId != invoiceId {
		return fmt.Errorf("token id %q does not match invoice %q", claimId, invoiceId)
	}
	return nil
}
