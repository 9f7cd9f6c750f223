package types

import (
	log "github.com/sirupsen/logrus"
)

// Recurring 重复警告计数，首次输出警告，之后只计数
type Recurring struct {
	Count int
}

// Warn 记录一次警告
func (r *Recurring) Warn(fields log.Fields, msg string) {
	r.Count++
	if r.Count < 2 {
		log.WithFields(fields).Warn(msg)
		return
	}
	log.WithFields(fields).WithField("count", r.Count).Debug(msg + " (持续)")
}
