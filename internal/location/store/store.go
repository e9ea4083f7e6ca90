// Package store keeps one live location record per delivering partner and
// fans out every overwrite or removal to that partner's subscribers.
package store

import (
	"givetrack/internal/location/models"
)

// updateBuffer bounds each subscriber's queue. Viewers only care about the
// latest position, so a full queue sheds its oldest entry.
const updateBuffer = 8

// Subscriber is a live feed of one partner's updates. Updates is closed once
// Close has been called or the backend connection ends.
type Subscriber interface {
	Updates() <-chan models.Update
	Close() error
}

// offer delivers u without blocking, dropping the oldest queued update when
// the subscriber is behind.
func offer(ch chan models.Update, u models.Update) {
	for {
		select {
		case ch <- u:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
