// Package notify carries user-facing notices (illegal move, empty deck).
// Fire and forget; nothing here blocks or fails.
package notify

import "Temperature/internal/utils"

type Notifier interface {
	Notify(msg string)
}

// Func adapts a plain function to a Notifier.
type Func func(string)

func (f Func) Notify(msg string) { f(msg) }

// Log writes notices through the shared logger.
type Log struct{}

func (Log) Notify(msg string) { utils.Log.Info(msg) }

// Discard swallows notices; handy in tests.
type Discard struct{}

func (Discard) Notify(string) {}
