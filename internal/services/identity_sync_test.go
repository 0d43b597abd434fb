package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"
)

const testWebhookSecret = "whsec_test"

func signPayload(t *testing.T, secret string, payload []byte, issued time.Time) string {
	t.Helper()

	ts := fmt.Sprintf("%d", issued.Unix())
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifyWebhookSignature_Valid(t *testing.T) {
	now := time.Now()
	payload := []byte(`{"type":"user.created"}`)
	header := signPayload(t, testWebhookSecret, payload, now)

	if err := VerifyWebhookSignature(testWebhookSecret, payload, header, now); err != nil {
		t.Fatalf("VerifyWebhookSignature: %v", err)
	}
}

func TestVerifyWebhookSignature_WrongSecret(t *testing.T) {
	now := time.Now()
	payload := []byte(`{"type":"user.created"}`)
	header := signPayload(t, "other-secret", payload, now)

	err := VerifyWebhookSignature(testWebhookSecret, payload, header, now)
	if !errors.Is(err, ErrBadSignature) {
		t.Fatalf("err = %v, want ErrBadSignature", err)
	}
}

func TestVerifyWebhookSignature_TamperedPayload(t *testing.T) {
	now := time.Now()
	header := signPayload(t, testWebhookSecret, []byte(`{"a":1}`), now)

	err := VerifyWebhookSignature(testWebhookSecret, []byte(`{"a":2}`), header, now)
	if !errors.Is(err, ErrBadSignature) {
		t.Fatalf("err = %v, want ErrBadSignature", err)
	}
}

// Signatures older than the tolerance window are replays, not retries.
func TestVerifyWebhookSignature_StaleTimestamp(t *testing.T) {
	now := time.Now()
	payload := []byte(`{}`)
	header := signPayload(t, testWebhookSecret, payload, now.Add(-6*time.Minute))

	err := VerifyWebhookSignature(testWebhookSecret, payload, header, now)
	if !errors.Is(err, ErrStaleWebhook) {
		t.Fatalf("err = %v, want ErrStaleWebhook", err)
	}
}

func TestVerifyWebhookSignature_FutureTimestamp(t *testing.T) {
	now := time.Now()
	payload := []byte(`{}`)
	header := signPayload(t, testWebhookSecret, payload, now.Add(6*time.Minute))

	err := VerifyWebhookSignature(testWebhookSecret, payload, header, now)
	if !errors.Is(err, ErrStaleWebhook) {
		t.Fatalf("err = %v, want ErrStaleWebhook", err)
	}
}

func TestVerifyWebhookSignature_MalformedHeader(t *testing.T) {
	now := time.Now()
	payload := []byte(`{}`)

	for _, header := range []string{
		"",
		"garbage",
		"t=123",
		"v1=abcd",
		"t=notanumber,v1=abcd",
		"t=123,v1=not-hex",
	} {
		err := VerifyWebhookSignature(testWebhookSecret, payload, header, now)
		if err == nil {
			t.Fatalf("header %q: expected an error", header)
		}
	}
}

func TestVerifyWebhookSignature_EmptySecretFailsClosed(t *testing.T) {
	now := time.Now()
	payload := []byte(`{}`)
	header := signPayload(t, "", payload, now)

	err := VerifyWebhookSignature("", payload, header, now)
	if !errors.Is(err, ErrBadSignature) {
		t.Fatalf("err = %v, want ErrBadSignature", err)
	}
}
