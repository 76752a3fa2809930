// Package email envía notificaciones transaccionales del servicio.
//
// El único correo que emite hoy es el aviso de seguridad cuando un
// proveedor social nuevo queda vinculado a una cuenta existente.
package email

import "context"

// Sender es la interfaz para enviar emails.
// Implementada por SMTPSender.
type Sender interface {
	// Send envía un email con contenido HTML y texto plano.
	// El destinatario recibe ambas versiones como multipart/alternative.
	Send(to string, subject string, htmlBody string, textBody string) error
}

// Notifier publica los avisos de seguridad del flujo de vinculación.
type Notifier interface {
	ProviderLinked(ctx context.Context, to, provider string) error
}

// Noop descarta todos los avisos. Se usa cuando SMTP no está configurado.
type Noop struct{}

func (Noop) ProviderLinked(context.Context, string, string) error { return nil }
