package health

import (
	"context"
	"errors"
	"testing"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type fixedClients int

func (n fixedClients) ClientCount() int { return int(n) }

func TestCheckBasic(t *testing.T) {
	up := NewHealthChecker(pingFunc(func(context.Context) error { return nil }), nil)
	if s := up.CheckBasic(context.Background()); s.Status != "healthy" || s.Cache != "disabled" {
		t.Fatalf("status = %+v", s)
	}

	down := NewHealthChecker(pingFunc(func(context.Context) error { return errors.New("refused") }), nil)
	if s := down.CheckBasic(context.Background()); s.Status != "unhealthy" || s.Database.Status != "unhealthy" {
		t.Fatalf("status = %+v", s)
	}
}

func TestCheckDetailed(t *testing.T) {
	h := NewHealthChecker(pingFunc(func(context.Context) error { return nil }), fixedClients(3))
	h.host = func() HostStats { return HostStats{CPUPercent: 12.5} }

	d := h.CheckDetailed(context.Background())
	if d.WebsocketClients != 3 || d.Host.CPUPercent != 12.5 || d.Status != "healthy" {
		t.Fatalf("detailed = %+v", d)
	}
}
