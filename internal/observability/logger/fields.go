package logger

import (
	"time"

	"go.uber.org/zap"
)

// Campos estándar HTTP.

func RequestID(v string) zap.Field { return zap.String("request_id", v) }
func Method(v string) zap.Field    { return zap.String("method", v) }
func Path(v string) zap.Field      { return zap.String("path", v) }
func Status(v int) zap.Field       { return zap.Int("status", v) }
func Bytes(v int) zap.Field        { return zap.Int("bytes", v) }
func ClientIP(v string) zap.Field  { return zap.String("client_ip", v) }

func Duration(v time.Duration) zap.Field { return zap.Duration("duration", v) }
func DurationMs(v int64) zap.Field       { return zap.Int64("duration_ms", v) }

// Campos estándar del dominio identidad.

// Provider crea un campo para el provider de identidad (google/apple).
func Provider(v string) zap.Field { return zap.String("provider", v) }

// AccountID crea un campo para el ID de la cuenta local.
func AccountID(v string) zap.Field { return zap.String("account_id", v) }

// EmailMasked crea un campo con el email enmascarado; nunca logueamos el
// email completo.
func EmailMasked(email string) zap.Field { return zap.String("email_masked", maskEmail(email)) }

// Component identifica el componente emisor (resolver, jwks, smtp...).
func Component(v string) zap.Field { return zap.String("component", v) }

// Layer identifica la capa (controller, service).
func Layer(v string) zap.Field { return zap.String("layer", v) }

// Op identifica la operación puntual.
func Op(v string) zap.Field { return zap.String("op", v) }

// Err crea un campo de error estándar.
func Err(err error) zap.Field { return zap.Error(err) }

func String(k, v string) zap.Field { return zap.String(k, v) }
func Bool(k string, v bool) zap.Field { return zap.Bool(k, v) }
func Int(k string, v int) zap.Field   { return zap.Int(k, v) }
func Any(k string, v any) zap.Field   { return zap.Any(k, v) }

// maskEmail deja la primera letra del local part y el dominio completo.
func maskEmail(email string) string {
	for i := 0; i < len(email); i++ {
		if email[i] == '@' {
			if i <= 1 {
				return "*" + email[i:]
			}
			return email[:1] + "***" + email[i:]
		}
	}
	return "***"
}
