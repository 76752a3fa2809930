package linktoken_test

import (
	"errors"
	"testing"
	"time"

	"github.com/oscarho2/giglink-identity/internal/identity"
	"github.com/oscarho2/giglink-identity/internal/identity/linktoken"
	"github.com/oscarho2/giglink-identity/internal/session"
)

var secret = []byte("super-secret-de-test-0123456789ab")

func pendingIdentity() identity.ExternalIdentity {
	return identity.ExternalIdentity{
		Provider:    identity.ProviderGoogle,
		SubjectID:   "google-sub-1",
		Email:       "Ana@Example.com",
		DisplayName: "Ana",
	}
}

func TestIssueRedeem_RoundTrip(t *testing.T) {
	iss := linktoken.NewIssuer(secret, "giglink", 10*time.Minute)

	token, err := iss.Issue(pendingIdentity(), "ana@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	claims, err := iss.Redeem(token)
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	if claims.Identity.Provider != identity.ProviderGoogle {
		t.Fatalf("provider: got %q", claims.Identity.Provider)
	}
	if claims.Identity.SubjectID != "google-sub-1" {
		t.Fatalf("sub: got %q", claims.Identity.SubjectID)
	}
	if claims.Email != "ana@example.com" {
		t.Fatalf("email should come back normalizado, got %q", claims.Email)
	}
}

func TestRedeem_Expired(t *testing.T) {
	iss := linktoken.NewIssuer(secret, "giglink", 10*time.Minute)
	token, err := iss.Issue(pendingIdentity(), "ana@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	later := linktoken.NewIssuer(secret, "giglink", 10*time.Minute).
		WithClock(func() time.Time { return time.Now().Add(time.Hour) })
	if _, err := later.Redeem(token); !errors.Is(err, identity.ErrLinkTokenExpired) {
		t.Fatalf("want ErrLinkTokenExpired, got %v", err)
	}
}

func TestRedeem_WrongSecret(t *testing.T) {
	iss := linktoken.NewIssuer(secret, "giglink", 10*time.Minute)
	token, err := iss.Issue(pendingIdentity(), "ana@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	otro := linktoken.NewIssuer([]byte("otro-secret"), "giglink", 10*time.Minute)
	if _, err := otro.Redeem(token); !errors.Is(err, identity.ErrLinkTokenInvalid) {
		t.Fatalf("want ErrLinkTokenInvalid, got %v", err)
	}
}

// Los dos tipos de token comparten secret; el claim purpose es lo único que
// los separa y tiene que cortar en ambas direcciones.
func TestPurposeConfusion(t *testing.T) {
	links := linktoken.NewIssuer(secret, "giglink", 10*time.Minute)
	sessions := session.NewIssuer(secret, "giglink", time.Hour)

	sessTok, _, err := sessions.Issue("acct-1", "ana@example.com")
	if err != nil {
		t.Fatalf("session Issue: %v", err)
	}
	if _, err := links.Redeem(sessTok); !errors.Is(err, identity.ErrLinkTokenInvalid) {
		t.Fatalf("session token must not redeem as link token, got %v", err)
	}

	linkTok, err := links.Issue(pendingIdentity(), "ana@example.com")
	if err != nil {
		t.Fatalf("link Issue: %v", err)
	}
	if _, err := sessions.Verify(linkTok); !errors.Is(err, session.ErrInvalid) {
		t.Fatalf("link token must not verify as session, got %v", err)
	}
}
