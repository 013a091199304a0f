// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides the injectable time source of the frame loop.
//
// The scheduler paces itself either with a ticker (one frame per tick)
// or by sleeping for whatever is left of the frame budget. Both paths
// go through [Clock], so tests can run the loop against [Fake]: Sleep
// on a FakeClock advances time instantly and records the requested
// duration, and tickers fire when the test calls Advance.
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	c.OnSleep(func(time.Duration) { frames++ })
//	go loop.Run(ctx)
//	c.WaitForTickers(1)
//	c.Advance(16 * time.Millisecond)
package clock
