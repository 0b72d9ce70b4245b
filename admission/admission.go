// Copyright (C) 2020-2026, the routerd authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package admission implements §4.3: triplet-window admission, AIMD
// window tuning, the QoS scheduler with preemption, and ECN watermark
// hysteresis. The hysteresis/threshold shape generalizes a "k consecutive
// successful polls" confirmation counter into "n consecutive latency
// samples above/below a bound."
package admission

import (
	"github.com/atp-router/routerd/errcode"
	"github.com/atp-router/routerd/session"
)

// ErrBackpressure is returned when any triplet dimension would be
// exceeded (§4.3, §7).
var ErrBackpressure = errcode.New(errcode.CodeBackpressure, "triplet window exceeded")

// Preflight checks all three budget dimensions atomically and returns
// ErrBackpressure if any would be exceeded (§4.3: "Admission checks all
// three dimensions atomically; fails with backpressure if any would
// exceed its limit").
func Preflight(b *session.Budget, estTokens, estUSDMicros int64, estParallel int) error {
	if !b.PreflightOK(estTokens, estUSDMicros, estParallel) {
		return ErrBackpressure
	}
	return nil
}
