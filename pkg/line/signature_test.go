package line

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"
)

func TestValidateSignature(t *testing.T) {
	secret := "channel-secret"
	body := []byte(`{"destination":"U1","events":[]}`)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	sig := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	if !ValidateSignature(secret, body, sig) {
		t.Fatal("expected valid signature to pass")
	}
	if ValidateSignature(secret, body, "bogus") {
		t.Fatal("expected invalid signature to fail")
	}
	if ValidateSignature("", body, sig) {
		t.Fatal("expected empty secret to fail")
	}
	if ValidateSignature(secret, []byte("tampered"), sig) {
		t.Fatal("expected tampered body to fail")
	}
}
