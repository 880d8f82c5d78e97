package ledger

// Subscribe returns a channel that receives every snapshot published after
// the call. Delivery coalesces: a slow reader only ever sees the latest
// snapshot, never a backlog. The returned cancel func stops delivery and
// closes the channel.
func (l *Ledger) Subscribe() (<-chan *Snapshot, func()) {
	ch := make(chan *Snapshot, 1)

	l.subMu.Lock()
	id := l.nextSub
	l.nextSub++
	l.subs[id] = ch
	l.subMu.Unlock()

	cancel := func() {
		l.subMu.Lock()
		defer l.subMu.Unlock()
		if _, ok := l.subs[id]; ok {
			delete(l.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

func (l *Ledger) notify(snap *Snapshot) {
	l.subMu.Lock()
	defer l.subMu.Unlock()
	for _, ch := range l.subs {
		// Drop the stale snapshot the reader has not picked up yet.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}
