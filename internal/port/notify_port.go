package port

import (
	"context"
	"time"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

type Toast struct {
	Level    Level
	Message  string
	Duration time.Duration
}

type Notifier interface {
	Notify(ctx context.Context, toast Toast)
}
