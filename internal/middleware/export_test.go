package middleware

import "time"

func SetClock(l *IPLimiter, now func() time.Time) { l.now = now }

func Visitors(l *IPLimiter) int { return l.size() }
