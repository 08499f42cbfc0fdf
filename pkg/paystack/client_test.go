package paystack

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/storepay-backend/pkg/errors"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func newTestClient(t *testing.T, rt roundTripFunc) *Client {
	t.Helper()
	client, err := NewClient("sk_test_123", WithBaseURL("http://paystack.test"), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestVerifyConfirmedTransaction(t *testing.T) {
	var capturedURL string
	var capturedAuth string

	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		capturedAuth = req.Header.Get("Authorization")
		return jsonResponse(http.StatusOK, `{"status":true,"message":"Verification successful","data":{"reference":"ref_1","status":"success","amount":500000,"currency":"NGN"}}`), nil
	})

	result, err := client.Verify(context.Background(), "ref_1")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if capturedURL != "http://paystack.test/transaction/verify/ref_1" {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
	if capturedAuth != "Bearer sk_test_123" {
		t.Fatalf("unexpected authorization header %q", capturedAuth)
	}
	if !result.Confirmed || result.AmountMinor != 500000 || result.Currency != "NGN" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestVerifyDeclines(t *testing.T) {
	cases := map[string]*http.Response{
		"abandoned":      jsonResponse(http.StatusOK, `{"status":true,"message":"Verification successful","data":{"reference":"ref_1","status":"abandoned"}}`),
		"failed":         jsonResponse(http.StatusOK, `{"status":true,"message":"Verification successful","data":{"reference":"ref_1","status":"failed"}}`),
		"unknown ref":    jsonResponse(http.StatusBadRequest, `{"status":false,"message":"Transaction reference not found"}`),
		"status false":   jsonResponse(http.StatusOK, `{"status":false,"message":"nope","data":{"status":"success"}}`),
		"not found code": jsonResponse(http.StatusNotFound, `{"status":false,"message":"Transaction not found"}`),
	}

	for name, resp := range cases {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, func(*http.Request) (*http.Response, error) { return resp, nil })
			confirmed, err := client.Confirm(context.Background(), "ref_1")
			if err != nil {
				t.Fatalf("decline should not be an error: %v", err)
			}
			if confirmed {
				t.Fatal("expected transaction to be reported unconfirmed")
			}
		})
	}
}

func TestVerifyDependencyFailures(t *testing.T) {
	cases := map[string]roundTripFunc{
		"transport": func(*http.Request) (*http.Response, error) { return nil, errors.New("connection refused") },
		"server error": func(*http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusBadGateway, `upstream down`), nil
		},
		"bad key": func(*http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusUnauthorized, `{"status":false,"message":"Invalid key"}`), nil
		},
		"garbage body": func(*http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, `<html>`), nil
		},
	}

	for name, rt := range cases {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, rt)
			_, err := client.Confirm(context.Background(), "ref_1")
			if err == nil {
				t.Fatal("expected an error")
			}
			if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
				t.Fatalf("expected dependency error, got %v", err)
			}
		})
	}
}

func TestVerifyHonorsTimeout(t *testing.T) {
	client, err := NewClient("sk_test_123",
		WithBaseURL("http://paystack.test"),
		WithTimeout(20*time.Millisecond),
		WithHTTPClient(&http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			<-req.Context().Done()
			return nil, req.Context().Err()
		})}),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	start := time.Now()
	if _, err := client.Verify(context.Background(), "ref_1"); err == nil {
		t.Fatal("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("verify should give up near its timeout, took %v", elapsed)
	}
}

func TestVerifyRequiresReference(t *testing.T) {
	client := newTestClient(t, func(*http.Request) (*http.Response, error) {
		t.Fatal("no request expected")
		return nil, nil
	})
	_, err := client.Verify(context.Background(), "  ")
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNewClientRequiresSecret(t *testing.T) {
	if _, err := NewClient(" "); err == nil {
		t.Fatal("expected missing secret error")
	}
}
