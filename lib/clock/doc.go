// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source for testability.
//
// Code that stamps records with the current time accepts a Clock
// instead of calling time.Now directly. In production, Real() provides
// the standard library behavior. In tests, Fake() provides a clock
// that moves only when Advance or Set is called, so ordering by
// timestamp can be asserted exactly:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	service := snapshot.New(ctx, snapshot.Options{Clock: c, ...})
//	first, _ := service.Snapshot(ctx, state, "")
//	c.Advance(time.Second)
//	second, _ := service.Snapshot(ctx, state, first)
package clock
