package kernel

// #region audit-ring
// auditRing is the size-capped, append-only decision log. Old entries are
// overwritten once capacity is reached.
type auditRing struct {
	buf   []Decision
	next  int
	count int
}

func newAuditRing(capacity int) *auditRing {
	if capacity <= 0 {
		capacity = DefaultConfig().AuditLogSize
	}
	return &auditRing{buf: make([]Decision, capacity)}
}

func (r *auditRing) append(d Decision) {
	r.buf[r.next] = d
	r.next = (r.next + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

// entries returns logged decisions oldest-first.
func (r *auditRing) entries() []Decision {
	out := make([]Decision, 0, r.count)
	start := r.next - r.count
	if start < 0 {
		start += len(r.buf)
	}
	for i := 0; i < r.count; i++ {
		out = append(out, r.buf[(start+i)%len(r.buf)])
	}
	return out
}

// #endregion audit-ring

// #region audit-api

// AuditLog returns the logged decisions, oldest first.
func (k *Kernel) AuditLog() []Decision {
	return k.audit.entries()
}

// RecentViolations counts DENY decisions among the last n log entries.
// Supports escalation decisions elsewhere.
func (k *Kernel) RecentViolations(n int) int {
	entries := k.audit.entries()
	if n < len(entries) {
		entries = entries[len(entries)-n:]
	}
	var denied int
	for _, d := range entries {
		if !d.Allowed {
			denied++
		}
	}
	return denied
}

// #endregion audit-api
