package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSMSProvider_Send(t *testing.T) {
	var gotTo, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if user, _, ok := r.BasicAuth(); !ok || user != "AC123" {
			t.Errorf("missing or wrong basic auth")
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotTo = r.PostFormValue("To")
		gotBody = r.PostFormValue("Body")

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"sid": "SM42"})
	}))
	defer server.Close()

	p := NewSMSProvider(SMSConfig{
		BaseURL:    server.URL,
		AccountSID: "AC123",
		AuthToken:  "secret",
		FromNumber: "+1555000",
		Timeout:    time.Second,
	})

	ref, err := p.Send(context.Background(), "+639171234567", "test alert")
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if ref != "SM42" {
		t.Errorf("expected provider ref SM42, got %q", ref)
	}
	if gotTo != "+639171234567" || gotBody != "test alert" {
		t.Errorf("unexpected form data: to=%q body=%q", gotTo, gotBody)
	}
}

func TestSMSProvider_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"invalid number"}`))
	}))
	defer server.Close()

	p := NewSMSProvider(SMSConfig{
		BaseURL:    server.URL,
		AccountSID: "AC123",
		AuthToken:  "secret",
		FromNumber: "+1555000",
		Timeout:    time.Second,
	})

	_, err := p.Send(context.Background(), "bad", "msg")
	if err == nil {
		t.Fatal("expected error for rejected send")
	}
}

func TestSMSProvider_NotConfigured(t *testing.T) {
	p := NewSMSProvider(SMSConfig{Timeout: time.Second})

	_, err := p.Send(context.Background(), "+1", "msg")
	if err == nil {
		t.Fatal("expected not-configured error")
	}
}

func TestEmailProvider_Send(t *testing.T) {
	var got emailRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer key-1" {
			t.Errorf("missing bearer token")
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{"message_id": "m-7"})
	}))
	defer server.Close()

	p := NewEmailProvider(EmailConfig{
		BaseURL:     server.URL,
		APIKey:      "key-1",
		FromAddress: "alerts@example.com",
		Timeout:     time.Second,
	})

	ref, err := p.Send(context.Background(), "ana@example.com", "water is rising")
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if ref != "m-7" {
		t.Errorf("expected message id m-7, got %q", ref)
	}
	if got.To != "ana@example.com" || got.Subject != EmailSubject || got.Body != "water is rising" {
		t.Errorf("unexpected mail payload: %+v", got)
	}
}

func TestPushProvider_Send(t *testing.T) {
	var got pushRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "p-3"})
	}))
	defer server.Close()

	p := NewPushProvider(PushConfig{
		BaseURL: server.URL,
		APIKey:  "key-2",
		Timeout: time.Second,
	})

	ref, err := p.Send(context.Background(), "resident-9", "water is rising")
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if ref != "p-3" {
		t.Errorf("expected id p-3, got %q", ref)
	}
	if got.To != "resident-9" || got.Title != PushTitle {
		t.Errorf("unexpected push payload: %+v", got)
	}
}

func TestProviderTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		json.NewEncoder(w).Encode(map[string]string{"id": "late"})
	}))
	defer server.Close()

	p := NewPushProvider(PushConfig{
		BaseURL: server.URL,
		Timeout: time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := p.Send(ctx, "resident-9", "msg")
	if err == nil {
		t.Fatal("expected timeout error")
	}
}
