/*
Copyright (c) 2025 Mike Lane

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

// Package cleanup schedules reconciliation runs for the long-running serve mode.
//
// The scheduler runs one reconciliation at startup, then one per interval.
// Webhook deliveries can request an immediate run through Trigger; requests
// that arrive while one is already pending are merged into it, so a burst of
// branch deletions causes a single extra run.
//
// Key features:
//   - Periodic reconciliation based on a configurable interval (default: 15 minutes)
//   - Immediate, coalesced runs on demand
//   - Failed runs are logged and never stop the scheduler
//   - Graceful shutdown via context cancellation
//
// Example usage:
//
//	scheduler := cleanup.NewScheduler(
//		syncer,
//		15*time.Minute, // Reconcile every 15 minutes
//	)
//	if err := scheduler.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
package cleanup
