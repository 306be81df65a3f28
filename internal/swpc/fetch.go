package swpc

import (
	"context"
	"sync"
	"time"
)

// Source names used in dataHealth.
const (
	SourceKp        = "kp"
	SourceXray      = "xray"
	SourceSolarWind = "solarwind"
	SourceDonki     = "donki"
	SourceProducts  = "products"
)

// Sources lists every health-tracked feed.
var Sources = []string{SourceKp, SourceXray, SourceSolarWind, SourceDonki, SourceProducts}

// eventWindow is how far back the DONKI event feeds are read. Wide enough
// that an event is still listed on the tick after it first appears, so the
// known-id sets see it twice and suppress a duplicate alert.
const eventWindow = 7 * 24 * time.Hour

// Results carries the per-source outcome of one fetch fan-out. A nil error
// means the corresponding value is usable.
type Results struct {
	FetchedAt time.Time

	Kp    KpResult
	KpErr error

	Xray    XrayResult
	XrayErr error

	Wind    WindResult
	WindErr error

	Donki    DonkiResult
	DonkiErr error

	Products    ProductsResult
	ProductsErr error
}

// Err returns the error recorded for the named source.
func (r *Results) Err(source string) error {
	switch source {
	case SourceKp:
		return r.KpErr
	case SourceXray:
		return r.XrayErr
	case SourceSolarWind:
		return r.WindErr
	case SourceDonki:
		return r.DonkiErr
	case SourceProducts:
		return r.ProductsErr
	}
	return nil
}

// FetchAll runs every fetcher concurrently, each under its own deadline.
// A failing source never fails the fan-out; its error is recorded and the
// pipeline continues with substitutes.
func (c *Client) FetchAll(ctx context.Context) *Results {
	results := &Results{FetchedAt: time.Now().UTC()}

	withDeadline := func(fn func(ctx context.Context)) func() {
		return func() {
			fetchCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()
			fn(fetchCtx)
		}
	}

	var wg sync.WaitGroup
	for _, fetch := range []func(){
		withDeadline(func(ctx context.Context) { results.Kp, results.KpErr = c.FetchKp(ctx) }),
		withDeadline(func(ctx context.Context) { results.Xray, results.XrayErr = c.FetchXray(ctx) }),
		withDeadline(func(ctx context.Context) { results.Wind, results.WindErr = c.FetchSolarWind(ctx) }),
		withDeadline(func(ctx context.Context) {
			results.Donki, results.DonkiErr = c.FetchEvents(ctx, results.FetchedAt, eventWindow)
		}),
		withDeadline(func(ctx context.Context) { results.Products, results.ProductsErr = c.FetchProducts(ctx) }),
	} {
		wg.Add(1)
		go func(fn func()) {
			defer wg.Done()
			fn()
		}(fetch)
	}
	wg.Wait()

	for _, source := range Sources {
		if err := results.Err(source); err != nil {
			c.logger.Warnf("Fetch %s failed: %v", source, err)
		}
	}
	return results
}
