package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"
)

func signHS256(t *testing.T, secret, headerJSON, payloadJSON string) string {
	t.Helper()
	enc := base64.RawURLEncoding
	signing := enc.EncodeToString([]byte(headerJSON)) + "." + enc.EncodeToString([]byte(payloadJSON))
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signing))
	return signing + "." + enc.EncodeToString(mac.Sum(nil))
}

func TestVerifyDevToken(t *testing.T) {
	v := &Verifier{Mode: "dev"}
	p, err := v.Verify("t_acme:Admin")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if p.Tenant != "t_acme" || p.Role != "admin" {
		t.Fatalf("principal: %+v", p)
	}
	if _, err := v.Verify("garbage"); err == nil {
		t.Fatal("expected error for malformed dev token")
	}
}

func TestVerifyHMACToken(t *testing.T) {
	v := &Verifier{Mode: "hmac", HMACSecret: []byte("s3cret"), TenantClaim: "tenant", RoleClaim: "role"}
	tok := signHS256(t, "s3cret", `{"alg":"HS256","typ":"JWT"}`, `{"tenant":"t1","role":"operator"}`)
	p, err := v.Verify(tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if p.Tenant != "t1" || p.Role != "operator" {
		t.Fatalf("principal: %+v", p)
	}

	bad := signHS256(t, "wrong", `{"alg":"HS256"}`, `{"tenant":"t1","role":"operator"}`)
	if _, err := v.Verify(bad); err == nil {
		t.Fatal("expected bad signature error")
	}

	expired := signHS256(t, "s3cret", `{"alg":"HS256"}`, `{"tenant":"t1","role":"operator","exp":1}`)
	if _, err := v.Verify(expired); err == nil {
		t.Fatal("expected token expired error")
	}
}
