package usage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"decodo-usage-bot/pkg/decodo"
	"decodo-usage-bot/pkg/models"
)

type fakeFetcher struct {
	usage   *decodo.Usage
	err     error
	windows []models.UsageWindow
}

func (f *fakeFetcher) Fetch(_ context.Context, window models.UsageWindow) (*decodo.Usage, error) {
	f.windows = append(f.windows, window)
	if f.err != nil {
		return nil, f.err
	}
	return f.usage, nil
}

func TestServiceQuery(t *testing.T) {
	limit := 10.0
	cfg := &models.Config{
		Subscription: models.SubscriptionConfig{LimitGB: &limit, AnchorDay: 15},
	}
	fetcher := &fakeFetcher{usage: &decodo.Usage{
		ProxyType:  models.ProxyTypeResidential,
		TotalBytes: 2 * models.BytesPerGB,
	}}
	now := time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC)
	svc := NewService(cfg, fetcher).WithClock(func() time.Time { return now })

	res, err := svc.Query(context.Background())
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}

	if len(fetcher.windows) != 1 {
		t.Fatalf("fetch called %d times, want 1", len(fetcher.windows))
	}
	wantStart := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	if !res.Window.Start.Equal(wantStart) || !res.Window.End.Equal(now) {
		t.Errorf("window = %v → %v, want %v → %v", res.Window.Start, res.Window.End, wantStart, now)
	}
	if *res.Summary.RemainingGB != 8 {
		t.Errorf("RemainingGB = %v, want 8", *res.Summary.RemainingGB)
	}
	if res.ProxyType() != models.ProxyTypeResidential {
		t.Errorf("ProxyType() = %q", res.ProxyType())
	}

	text := svc.Text(res)
	if !strings.Contains(text, "Decodo Usage | residential_proxies") || !strings.Contains(text, "Remaining: 8.00 GB") {
		t.Errorf("unexpected text:\n%s", text)
	}
}

func TestServiceFixedEndWindow(t *testing.T) {
	end := time.Date(2024, 5, 31, 23, 59, 59, 0, time.UTC)
	cfg := &models.Config{Subscription: models.SubscriptionConfig{FixedEnd: end}}
	fetcher := &fakeFetcher{usage: &decodo.Usage{}}
	svc := NewService(cfg, fetcher).WithClock(func() time.Time {
		return time.Date(2024, 7, 2, 0, 0, 0, 0, time.UTC)
	})

	res, err := svc.Query(context.Background())
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	if !res.Window.End.Equal(end) {
		t.Errorf("window end = %v, want %v", res.Window.End, end)
	}
	if res.Summary.LimitGB != nil {
		t.Error("no limit configured, LimitGB should be nil")
	}
}

func TestServiceQueryError(t *testing.T) {
	upstream := &decodo.StatusError{StatusCode: 401}
	svc := NewService(&models.Config{}, &fakeFetcher{err: upstream})

	_, err := svc.Query(context.Background())
	var se *decodo.StatusError
	if !errors.As(err, &se) || se.StatusCode != 401 {
		t.Fatalf("error = %v, want wrapped StatusError 401", err)
	}
}
