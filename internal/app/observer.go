package app

import (
	"log"
	"time"
)

// Observer receives operational events. It is for humans and metrics only;
// failures are always also returned to the caller as values.
type Observer interface {
	SubmissionFinished(sessionID string, generation uint64, err error, elapsed time.Duration)
	StaleCompletion(sessionID string, generation uint64, err error)
	StoreFailure(op string, err error)
}

// LogObserver writes events to a standard logger.
type LogObserver struct {
	Logger *log.Logger
}

func NewLogObserver(logger *log.Logger) *LogObserver {
	if logger == nil {
		logger = log.Default()
	}
	return &LogObserver{Logger: logger}
}

func (o *LogObserver) SubmissionFinished(sessionID string, generation uint64, err error, elapsed time.Duration) {
	if err != nil {
		o.Logger.Printf("submission failed session=%s gen=%d elapsed=%s: %v", sessionID, generation, elapsed, err)
		return
	}
	o.Logger.Printf("submission saved session=%s gen=%d elapsed=%s", sessionID, generation, elapsed)
}

func (o *LogObserver) StaleCompletion(sessionID string, generation uint64, err error) {
	o.Logger.Printf("dropping stale submission result session=%s gen=%d err=%v", sessionID, generation, err)
}

func (o *LogObserver) StoreFailure(op string, err error) {
	o.Logger.Printf("result store %s failed: %v", op, err)
}

// NopObserver discards every event.
type NopObserver struct{}

func (NopObserver) SubmissionFinished(string, uint64, error, time.Duration) {}
func (NopObserver) StaleCompletion(string, uint64, error)                   {}
func (NopObserver) StoreFailure(string, error)                              {}
