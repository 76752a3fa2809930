package email

import (
	"context"
	"fmt"
	"strings"
)

// SecurityNotifier arma y envía los avisos de seguridad por SMTP.
type SecurityNotifier struct {
	Sender  Sender
	AppName string
}

func NewSecurityNotifier(s Sender, appName string) *SecurityNotifier {
	if appName == "" {
		appName = "GigLink"
	}
	return &SecurityNotifier{Sender: s, AppName: appName}
}

// ProviderLinked avisa al dueño de la cuenta que un sign-in social
// nuevo quedó vinculado. El envío es best-effort; el caller decide
// si ignora el error.
func (n *SecurityNotifier) ProviderLinked(_ context.Context, to, provider string) error {
	display := providerDisplay(provider)
	subject := fmt.Sprintf("%s: nuevo método de acceso vinculado", n.AppName)

	text := fmt.Sprintf(
		"Hola,\n\n"+
			"Se vinculó %s como método de acceso a tu cuenta de %s.\n"+
			"Si fuiste vos, no hay nada más que hacer.\n\n"+
			"Si no reconocés esta actividad, cambiá tu contraseña cuanto antes.\n",
		display, n.AppName,
	)
	html := fmt.Sprintf(
		"<p>Hola,</p>"+
			"<p>Se vinculó <strong>%s</strong> como método de acceso a tu cuenta de %s.</p>"+
			"<p>Si fuiste vos, no hay nada más que hacer.</p>"+
			"<p>Si no reconocés esta actividad, cambiá tu contraseña cuanto antes.</p>",
		display, n.AppName,
	)

	return n.Sender.Send(to, subject, html, text)
}

func providerDisplay(p string) string {
	switch strings.ToLower(p) {
	case "google":
		return "Google"
	case "apple":
		return "Apple"
	default:
		return p
	}
}
