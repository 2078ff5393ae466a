// Package kvslog adapts go.uber.org/zap to the kvs.Logger interface.
package kvslog

import "go.uber.org/zap"

// Zap wraps a *zap.SugaredLogger to satisfy kvs.Logger.
type Zap struct {
	s *zap.SugaredLogger
}

// NewZap builds a Zap adapter around l.
func NewZap(l *zap.Logger) Zap {
	return Zap{s: l.Sugar()}
}

// Debugf implements kvs.Logger.
func (z Zap) Debugf(format string, args ...interface{}) {
	z.s.Debugf(format, args...)
}

// Warnf implements kvs.Logger.
func (z Zap) Warnf(format string, args ...interface{}) {
	z.s.Warnf(format, args...)
}

// Errorf implements kvs.Logger.
func (z Zap) Errorf(format string, args ...interface{}) {
	z.s.Errorf(format, args...)
}
