package processing

import (
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
)

const TicketTTL = time.Hour

type ticket struct {
	userID      string
	contentType string
	expires     time.Time
}

// UploadTickets remembers which storage keys were issued to which user
type UploadTickets struct {
	m   cmap.ConcurrentMap[string, ticket]
	ttl time.Duration
	now func() time.Time
}

func NewUploadTickets(ttl time.Duration) *UploadTickets {
	return &UploadTickets{m: cmap.New[ticket](), ttl: ttl, now: time.Now}
}

func (t *UploadTickets) Issue(key, userID, contentType string) {
	t.m.Set(key, ticket{userID: userID, contentType: contentType, expires: t.now().Add(t.ttl)})
}

// Check returns the content type the key was issued for, if userID holds a live ticket
func (t *UploadTickets) Check(key, userID string) (string, bool) {
	tk, ok := t.m.Get(key)
	if !ok || tk.userID != userID || !t.now().Before(tk.expires) {
		return "", false
	}
	return tk.contentType, true
}

func (t *UploadTickets) Redeem(key string) {
	t.m.Remove(key)
}

// Sweep drops expired tickets and returns how many were dropped
func (t *UploadTickets) Sweep() int {
	now := t.now()
	var expired []string
	for item := range t.m.IterBuffered() {
		if !now.Before(item.Val.expires) {
			expired = append(expired, item.Key)
		}
	}
	for _, key := range expired {
		t.m.RemoveCb(key, func(_ string, v ticket, exists bool) bool {
			return exists && !now.Before(v.expires)
		})
	}
	return len(expired)
}

func (t *UploadTickets) Count() int {
	return t.m.Count()
}
