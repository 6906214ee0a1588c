package diskxfer

// ReadLogEntry is one distinct disk-read failure event.
type ReadLogEntry struct {
	Sector        int
	StatusCode    int
	StatusMessage string
	RetryCount    int
}

// readLogNode is a node in the circular list described in the original
// disk tool's add_read_log/iterate_read_logs: the tail's next pointer
// always circles back to the head, and a freshly created log is its own
// self-pointing sentinel.
type readLogNode struct {
	entry ReadLogEntry
	next  *readLogNode
}

// ReadLog is the per-sector failure diary. It never drives protocol
// decisions; it exists purely to populate the final transfer report.
type ReadLog struct {
	tail *readLogNode
	n    int
}

// NewReadLog returns an empty log.
func NewReadLog() *ReadLog { return &ReadLog{} }

// Add records a failure. If the most recent entry shares both Sector and
// StatusCode with e, its RetryCount is updated in place instead of
// appending a new entry — consecutive entries never duplicate
// (sector, status_code).
func (l *ReadLog) Add(sector, statusCode int, statusMessage string, retryCount int) {
	e := ReadLogEntry{Sector: sector, StatusCode: statusCode, StatusMessage: statusMessage, RetryCount: retryCount}
	if l.tail != nil && l.tail.entry.Sector == sector && l.tail.entry.StatusCode == statusCode {
		l.tail.entry = e
		return
	}
	node := &readLogNode{entry: e}
	if l.tail == nil {
		node.next = node
		l.tail = node
	} else {
		node.next = l.tail.next
		l.tail.next = node
		l.tail = node
	}
	l.n++
}

// Len returns the number of distinct entries in the log.
func (l *ReadLog) Len() int { return l.n }

// Iterate visits every entry once, in insertion order, starting at the
// head (tail.next) and stopping once it cycles back to the tail.
func (l *ReadLog) Iterate(visit func(ReadLogEntry)) {
	if l.tail == nil {
		return
	}
	head := l.tail.next
	node := head
	for {
		visit(node.entry)
		if node == l.tail {
			return
		}
		node = node.next
	}
}

// Entries materializes the log as a slice, in insertion order.
func (l *ReadLog) Entries() []ReadLogEntry {
	out := make([]ReadLogEntry, 0, l.n)
	l.Iterate(func(e ReadLogEntry) { out = append(out, e) })
	return out
}

// Find performs a linear scan for the most recent entry matching sector.
func (l *ReadLog) Find(sector int) (ReadLogEntry, bool) {
	var found ReadLogEntry
	ok := false
	l.Iterate(func(e ReadLogEntry) {
		if e.Sector == sector {
			found = e
			ok = true
		}
	})
	return found, ok
}
