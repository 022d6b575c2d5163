package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

type printerBridge struct {
	mu   sync.Mutex
	jobs []string
	reqs []labelRequest
}

func (b *printerBridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req labelRequest
	json.NewDecoder(r.Body).Decode(&req)
	b.mu.Lock()
	b.jobs = append(b.jobs, r.URL.Path)
	b.reqs = append(b.reqs, req)
	b.mu.Unlock()
	json.NewEncoder(w).Encode(printResponse{Success: true})
}

func TestPrintItemLabelSplitsIntoSheets(t *testing.T) {
	st := newShop(t)
	bridge := &printerBridge{}
	srv := httptest.NewServer(bridge)
	defer srv.Close()

	svc := NewPrinterService(st, srv.URL)
	if err := svc.PrintItemLabel(context.Background(), "shirt", 5); err != nil {
		t.Fatal(err)
	}
	if len(bridge.jobs) != 2 || bridge.jobs[0] != "/print-2up" || bridge.jobs[1] != "/print-full" {
		t.Fatalf("jobs = %v", bridge.jobs)
	}
	if bridge.reqs[0].Copies != 2 || bridge.reqs[1].Copies != 1 || bridge.reqs[0].Line1 == "" {
		t.Fatalf("requests = %+v", bridge.reqs)
	}
}

func TestPrintItemLabelErrors(t *testing.T) {
	st := newShop(t)
	if err := NewPrinterService(st, "").PrintItemLabel(context.Background(), "shirt", 1); !errors.Is(err, ErrPrinterDisabled) {
		t.Fatalf("err = %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(printResponse{Success: false, Message: "paper out"})
	}))
	defer srv.Close()
	svc := NewPrinterService(st, srv.URL)
	if err := svc.PrintItemLabel(context.Background(), "shirt", 1); err == nil {
		t.Fatal("bridge failure not reported")
	}
	if err := svc.PrintItemLabel(context.Background(), "shirt", 500); !errors.Is(err, ErrValidation) {
		t.Fatalf("too many copies err = %v", err)
	}
}
